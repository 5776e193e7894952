// Package state persists all durable pagewarden data in a single bbolt
// database: the credential chain, the scheduled-post queue, and the
// ledger of comments already replied to.
package state

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	bolt "go.etcd.io/bbolt"

	pwerrors "github.com/alexjbarnes/pagewarden/internal/errors"
)

const (
	// stateDirPerm is the permission mode for the state directory
	// (~/.pagewarden/).
	stateDirPerm = fs.FileMode(0o700)

	// stateFilePerm is the permission mode for the state database file.
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt
	// database lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	credentialsBucket = []byte("credentials")
	queueBucket       = []byte("post_queue")
	repliedBucket     = []byte("replied")

	chainKey = []byte("chain")
)

// Chain is the persisted credential chain: the long-lived user token,
// the page token derived from it, and the identities needed to re-derive
// both. ExpiresAt and LastRefreshedAt are unix milliseconds; an
// ExpiresAt of 0 means the expiry is unknown.
type Chain struct {
	UserToken       string `json:"user_token"`
	PageToken       string `json:"page_token"`
	PageID          string `json:"page_id"`
	PageName        string `json:"page_name"`
	AppID           string `json:"app_id"`
	AppSecret       string `json:"app_secret,omitempty"`
	ExpiresAt       int64  `json:"expires_at"`
	LastRefreshedAt int64  `json:"last_refreshed_at"`
}

// ScheduledPost is one entry in the publish queue. ID is a ULID, so
// lexicographic bucket order is creation order.
type ScheduledPost struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	PublishAt time.Time `json:"publish_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps a bbolt database for all persistent application state.
type Store struct {
	db      *bolt.DB
	entropy *ulid.MonotonicEntropy
}

// Load opens the state database at ~/.pagewarden/state.db, creating it
// if it does not exist.
func Load() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}

	return LoadAt(filepath.Join(home, ".pagewarden", "state.db"))
}

// LoadAt opens a state database at the given path, creating it if it
// does not exist. Useful for tests that need an isolated database.
func LoadAt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirPerm); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{credentialsBucket, queueBucket, repliedBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db: %w", err)
	}

	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Credentials returns the stored credential chain. The second return is
// false when no chain has been stored yet.
func (s *Store) Credentials() (Chain, bool, error) {
	var (
		chain Chain
		found bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(credentialsBucket).Get(chainKey)
		if v == nil {
			return nil
		}

		found = true

		return json.Unmarshal(v, &chain)
	})
	if err != nil {
		return Chain{}, false, fmt.Errorf("reading credential chain: %w", err)
	}

	return chain, found, nil
}

// SetCredentials persists the full credential chain in one transaction.
// All fields are written together; a partially updated chain is never
// observable. A page token without its page ID is rejected, since the
// token cannot be re-derived or attributed without it.
func (s *Store) SetCredentials(chain Chain) error {
	if chain.PageToken != "" && chain.PageID == "" {
		return fmt.Errorf("refusing to store page token without page id")
	}

	payload, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("encoding credential chain: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Put(chainKey, payload)
	})
	if err != nil {
		return fmt.Errorf("writing credential chain: %w", err)
	}

	return nil
}

// PageToken returns the stored page token, or ErrNoCredentials when no
// chain (or no page token) has been stored.
func (s *Store) PageToken() (string, error) {
	chain, found, err := s.Credentials()
	if err != nil {
		return "", err
	}

	if !found || chain.PageToken == "" {
		return "", pwerrors.ErrNoCredentials
	}

	return chain.PageToken, nil
}

// --- scheduled-post queue ---

// QueuePost adds a post to the publish queue and returns it with its
// assigned ID.
func (s *Store) QueuePost(message string, publishAt time.Time) (ScheduledPost, error) {
	now := time.Now().UTC()

	post := ScheduledPost{
		ID:        ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Message:   message,
		PublishAt: publishAt.UTC(),
		CreatedAt: now,
	}

	payload, err := json.Marshal(post)
	if err != nil {
		return ScheduledPost{}, fmt.Errorf("encoding scheduled post: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(queueBucket).Put([]byte(post.ID), payload)
	})
	if err != nil {
		return ScheduledPost{}, fmt.Errorf("queueing post: %w", err)
	}

	return post, nil
}

// DuePosts returns queued posts whose publish time is at or before now,
// in creation order.
func (s *Store) DuePosts(now time.Time) ([]ScheduledPost, error) {
	var due []ScheduledPost

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(queueBucket).ForEach(func(_, v []byte) error {
			var post ScheduledPost
			if err := json.Unmarshal(v, &post); err != nil {
				return err
			}

			if !post.PublishAt.After(now) {
				due = append(due, post)
			}

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing due posts: %w", err)
	}

	return due, nil
}

// PendingPosts returns every queued post in creation order.
func (s *Store) PendingPosts() ([]ScheduledPost, error) {
	var all []ScheduledPost

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(queueBucket).ForEach(func(_, v []byte) error {
			var post ScheduledPost
			if err := json.Unmarshal(v, &post); err != nil {
				return err
			}

			all = append(all, post)

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing queued posts: %w", err)
	}

	return all, nil
}

// DeletePost removes a queued post after it has been published.
func (s *Store) DeletePost(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(queueBucket).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("deleting queued post: %w", err)
	}

	return nil
}

// --- reply ledger ---

// MarkReplied records that a reply was posted for the given comment, so
// later sweeps skip it.
func (s *Store) MarkReplied(commentID string) error {
	var ts [8]byte

	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixMilli()))

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(repliedBucket).Put([]byte(commentID), ts[:])
	})
	if err != nil {
		return fmt.Errorf("marking comment replied: %w", err)
	}

	return nil
}

// HasReplied reports whether a reply was already posted for the comment.
func (s *Store) HasReplied(commentID string) (bool, error) {
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(repliedBucket).Get([]byte(commentID)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("reading reply ledger: %w", err)
	}

	return found, nil
}

// PruneReplied drops ledger entries older than the cutoff. The Graph API
// stops returning comments on old posts, so entries past the sweep
// window only cost space.
func (s *Store) PruneReplied(cutoff time.Time) (int, error) {
	var pruned int

	cutoffMs := uint64(cutoff.UnixMilli())

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(repliedBucket)
		c := b.Cursor()

		var stale [][]byte

		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(v) != 8 {
				stale = append(stale, bytes.Clone(k))
				continue
			}

			if binary.BigEndian.Uint64(v) < cutoffMs {
				stale = append(stale, bytes.Clone(k))
			}
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		pruned = len(stale)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning reply ledger: %w", err)
	}

	return pruned, nil
}
