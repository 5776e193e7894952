// Package sweep implements the two scheduler entry points: the comment
// sweep (moderate new comments) and the scheduled-post sweep (publish
// due posts). Both go through the resilient invoker, so a session
// expiry mid-sweep is repaired transparently.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	pwerrors "github.com/alexjbarnes/pagewarden/internal/errors"
	"github.com/alexjbarnes/pagewarden/internal/graph"
	"github.com/alexjbarnes/pagewarden/internal/session"
	"github.com/alexjbarnes/pagewarden/internal/state"
)

// ledgerRetention is how long reply-ledger entries are kept. Comments
// on posts older than the sweep window never come back, so a month is
// generous.
const ledgerRetention = 30 * 24 * time.Hour

// Matcher decides which reply, if any, a comment earns.
type Matcher interface {
	Match(text string) (reply string, ok bool)
}

// Config tunes a Sweeper.
type Config struct {
	// PostWindow is how many recent posts the comment sweep inspects.
	PostWindow int

	// ReplyCooldown is the pause between consecutive replies. A
	// throttle for upstream rate limits, not a concurrency control.
	ReplyCooldown time.Duration
}

// Sweeper runs the periodic moderation work. Each sweep method assumes
// at most one invocation of itself is active at a time; the ticker
// loops in main guarantee that.
type Sweeper struct {
	api     *graph.Client
	invoker *session.Invoker
	store   *state.Store
	rules   Matcher
	limiter *rate.Limiter
	window  int
	logger  *slog.Logger
}

// New creates a Sweeper.
func New(api *graph.Client, invoker *session.Invoker, store *state.Store, rules Matcher, cfg Config, logger *slog.Logger) *Sweeper {
	if cfg.PostWindow <= 0 {
		cfg.PostWindow = 25
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.ReplyCooldown > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.ReplyCooldown), 1)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		api:     api,
		invoker: invoker,
		store:   store,
		rules:   rules,
		limiter: limiter,
		window:  cfg.PostWindow,
		logger:  logger,
	}
}

// SweepComments fetches comments on the page's recent posts, matches
// them against the rules, and posts replies. Idempotent per comment:
// the reply ledger prevents double replies across invocations. Replies
// already sent are kept if a later call fails.
func (s *Sweeper) SweepComments(ctx context.Context) error {
	chain, found, err := s.store.Credentials()
	if err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}

	if !found || chain.PageID == "" {
		return pwerrors.ErrNoCredentials
	}

	body, err := s.invoker.Do(ctx, "fetch posts", func(ctx context.Context, token string) (int, []byte, error) {
		return s.api.FetchPosts(ctx, token, chain.PageID, s.window)
	})
	if err != nil {
		return err
	}

	posts, err := graph.DecodePosts(body)
	if err != nil {
		return err
	}

	var scanned, replied int

	for _, post := range posts {
		n, err := s.sweepPost(ctx, chain.PageID, post)
		replied += n

		if err != nil {
			return fmt.Errorf("sweeping post %s: %w", post.ID, err)
		}

		scanned++
	}

	if pruned, err := s.store.PruneReplied(time.Now().Add(-ledgerRetention)); err != nil {
		s.logger.Warn("pruning reply ledger", slog.String("error", err.Error()))
	} else if pruned > 0 {
		s.logger.Debug("pruned reply ledger", slog.Int("entries", pruned))
	}

	s.logger.Info("comment sweep done",
		slog.Int("posts", scanned),
		slog.Int("replies", replied),
	)

	return nil
}

// sweepPost handles one post's comments, returning how many replies
// were sent before any error.
func (s *Sweeper) sweepPost(ctx context.Context, pageID string, post graph.Post) (int, error) {
	body, err := s.invoker.Do(ctx, "fetch comments", func(ctx context.Context, token string) (int, []byte, error) {
		return s.api.FetchComments(ctx, token, post.ID)
	})
	if err != nil {
		return 0, err
	}

	comments, err := graph.DecodeComments(body)
	if err != nil {
		return 0, err
	}

	var replied int

	for _, comment := range comments {
		// Never reply to the page's own comments, including our own
		// earlier replies.
		if comment.From.ID == pageID {
			continue
		}

		done, err := s.store.HasReplied(comment.ID)
		if err != nil {
			return replied, err
		}

		if done {
			continue
		}

		reply, ok := s.rules.Match(comment.Message)
		if !ok {
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return replied, err
		}

		respBody, err := s.invoker.Do(ctx, "post reply", func(ctx context.Context, token string) (int, []byte, error) {
			return s.api.PostReply(ctx, token, comment.ID, reply)
		})
		if err != nil {
			return replied, err
		}

		resp, err := graph.DecodePublish(respBody)
		if err != nil {
			return replied, err
		}

		if err := s.store.MarkReplied(comment.ID); err != nil {
			// The reply is out; failing to record it risks a double
			// reply next sweep, which is worth surfacing loudly.
			return replied, fmt.Errorf("reply %s sent but not recorded: %w", resp.ID, err)
		}

		replied++

		s.logger.Debug("replied to comment",
			slog.String("comment", comment.ID),
			slog.String("reply_id", resp.ID),
		)
	}

	return replied, nil
}

// SweepScheduled publishes every queued post whose time has come.
// Published entries are deleted from the queue as they go, so a later
// failure never republishes earlier ones.
func (s *Sweeper) SweepScheduled(ctx context.Context) error {
	chain, found, err := s.store.Credentials()
	if err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}

	if !found || chain.PageID == "" {
		return pwerrors.ErrNoCredentials
	}

	due, err := s.store.DuePosts(time.Now())
	if err != nil {
		return err
	}

	for _, post := range due {
		body, err := s.invoker.Do(ctx, "publish post", func(ctx context.Context, token string) (int, []byte, error) {
			return s.api.PublishPost(ctx, token, chain.PageID, post.Message)
		})
		if err != nil {
			return fmt.Errorf("publishing queued post %s: %w", post.ID, err)
		}

		resp, err := graph.DecodePublish(body)
		if err != nil {
			return err
		}

		if err := s.store.DeletePost(post.ID); err != nil {
			return fmt.Errorf("post %s published as %s but not dequeued: %w", post.ID, resp.ID, err)
		}

		s.logger.Info("published scheduled post",
			slog.String("queue_id", post.ID),
			slog.String("post_id", resp.ID),
		)
	}

	return nil
}
