package e2e_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/pagewarden/internal/graph"
	"github.com/alexjbarnes/pagewarden/internal/rules"
	"github.com/alexjbarnes/pagewarden/internal/session"
	"github.com/alexjbarnes/pagewarden/internal/state"
	"github.com/alexjbarnes/pagewarden/internal/sweep"
)

const (
	shortUserToken = "e2e-short-user-token"
	longUserToken  = "e2e-long-user-token"
	pageToken      = "e2e-page-token-1"
	testAppID      = "424242"
	testAppSecret  = "e2e-app-secret"
	testPageID     = "page-1"
	testPageName   = "Test Page"
)

const defaultRules = `rules:
  - keywords: [price, cost]
    reply: "Please check our pinned post for pricing."
  - keywords: [hours]
    reply: "We are open 9 to 5, Monday through Friday."
`

type fakePage struct {
	ID    string
	Name  string
	Token string
}

type fakePost struct {
	ID      string
	Message string
}

type fakeComment struct {
	ID       string
	Message  string
	FromID   string
	FromName string
}

type recordedReply struct {
	CommentID string
	Message   string
	Token     string
}

// fakeGraph is an in-memory Graph API double. Tokens listed in valid
// are accepted; everything else bounces with the session-expired
// envelope, the same way the real upstream rejects lapsed sessions.
type fakeGraph struct {
	mu sync.Mutex

	valid     map[string]bool
	expiry    map[string]int64 // unix seconds, reported by /debug_token
	longToken string           // minted by the exchange; empty disables it
	pages     []fakePage
	posts     []fakePost
	comments  map[string][]fakeComment

	replies   []recordedReply
	published []string

	exchangeCalls   int
	accountsCalls   int
	introspectCalls int
	postListCalls   int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		valid:    map[string]bool{},
		expiry:   map[string]int64{},
		comments: map[string][]fakeComment{},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func graphError(msg string) map[string]any {
	return map[string]any{"error": map[string]any{
		"message": msg,
		"type":    "OAuthException",
		"code":    190,
	}}
}

func writeExpired(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest,
		graphError("Error validating access token: Session has expired on Sunday, 01-Mar-26 04:00:00 PST. The current time is Monday, 02-Mar-26 09:00:00 PST."))
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, graphError("malformed request"))
		return
	}

	token := r.Form.Get("access_token")
	path := r.URL.Path

	switch {
	case path == "/debug_token":
		f.introspectCalls++

		input := r.Form.Get("input_token")
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"app_id":     testAppID,
				"user_id":    "user-1",
				"is_valid":   f.valid[input],
				"expires_at": f.expiry[input],
				"scopes":     []string{"pages_manage_engagement", "pages_read_engagement"},
			},
		})

	case path == "/oauth/access_token_info":
		if !f.valid[token] {
			writeExpired(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"token_type":   "bearer",
			"expires_in":   3600,
		})

	case path == "/oauth/access_token":
		f.exchangeCalls++

		if r.Form.Get("grant_type") != "fb_exchange_token" ||
			r.Form.Get("client_secret") != testAppSecret ||
			f.longToken == "" {
			writeJSON(w, http.StatusBadRequest, graphError("Invalid OAuth access token."))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": f.longToken,
			"token_type":   "bearer",
			"expires_in":   5184000,
		})

	case path == "/me/accounts":
		f.accountsCalls++

		if !f.valid[token] {
			writeExpired(w)
			return
		}

		data := make([]map[string]any, 0, len(f.pages))
		for _, p := range f.pages {
			data = append(data, map[string]any{"id": p.ID, "name": p.Name, "access_token": p.Token})
		}

		writeJSON(w, http.StatusOK, map[string]any{"data": data})

	case strings.HasSuffix(path, "/posts"):
		f.postListCalls++

		if !f.valid[token] {
			writeExpired(w)
			return
		}

		data := make([]map[string]any, 0, len(f.posts))
		for _, p := range f.posts {
			data = append(data, map[string]any{"id": p.ID, "message": p.Message})
		}

		writeJSON(w, http.StatusOK, map[string]any{"data": data})

	case strings.HasSuffix(path, "/comments") && r.Method == http.MethodGet:
		if !f.valid[token] {
			writeExpired(w)
			return
		}

		postID := strings.Trim(strings.TrimSuffix(path, "/comments"), "/")

		data := make([]map[string]any, 0, len(f.comments[postID]))
		for _, c := range f.comments[postID] {
			data = append(data, map[string]any{
				"id":      c.ID,
				"message": c.Message,
				"from":    map[string]any{"id": c.FromID, "name": c.FromName},
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"data": data})

	case strings.HasSuffix(path, "/comments") && r.Method == http.MethodPost:
		if !f.valid[token] {
			writeExpired(w)
			return
		}

		commentID := strings.Trim(strings.TrimSuffix(path, "/comments"), "/")
		f.replies = append(f.replies, recordedReply{
			CommentID: commentID,
			Message:   r.Form.Get("message"),
			Token:     token,
		})

		writeJSON(w, http.StatusOK, map[string]any{"id": fmt.Sprintf("%s_reply_%d", commentID, len(f.replies))})

	case strings.HasSuffix(path, "/feed") && r.Method == http.MethodPost:
		if !f.valid[token] {
			writeExpired(w)
			return
		}

		f.published = append(f.published, r.Form.Get("message"))
		writeJSON(w, http.StatusOK, map[string]any{"id": fmt.Sprintf("published-%d", len(f.published))})

	default:
		writeJSON(w, http.StatusNotFound, graphError("Unknown path: "+path))
	}
}

// --- thread-safe mutators and accessors ---

func (f *fakeGraph) setValid(token string, ok bool) {
	f.mu.Lock()
	f.valid[token] = ok
	f.mu.Unlock()
}

func (f *fakeGraph) revokeAll() {
	f.mu.Lock()
	f.valid = map[string]bool{}
	f.longToken = ""
	f.mu.Unlock()
}

func (f *fakeGraph) addPost(id, message string) {
	f.mu.Lock()
	f.posts = append(f.posts, fakePost{ID: id, Message: message})
	f.mu.Unlock()
}

func (f *fakeGraph) addComment(postID string, c fakeComment) {
	f.mu.Lock()
	f.comments[postID] = append(f.comments[postID], c)
	f.mu.Unlock()
}

func (f *fakeGraph) recordedReplies() []recordedReply {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]recordedReply, len(f.replies))
	copy(out, f.replies)

	return out
}

func (f *fakeGraph) publishedPosts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.published))
	copy(out, f.published)

	return out
}

func (f *fakeGraph) upstreamCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.exchangeCalls + f.accountsCalls + f.introspectCalls + f.postListCalls
}

// harness wires the full stack: a fake Graph server, a real bbolt
// store, real rules, and the guardian/invoker/sweeper on top.
type harness struct {
	Graph    *fakeGraph
	Store    *state.Store
	Guardian *session.Guardian
	Invoker  *session.Invoker
	Sweeper  *sweep.Sweeper
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fg := newFakeGraph()
	srv := httptest.NewServer(fg)
	t.Cleanup(srv.Close)

	dir := t.TempDir()

	store, err := state.LoadAt(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(defaultRules), 0o600))

	ruleSet, err := rules.Load(rulesPath)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	client := graph.NewClientWithBase(srv.Client(), srv.URL)

	guardian := session.NewGuardian(store, client, client, session.Options{}, logger)
	invoker := session.NewInvoker(store, guardian, logger)
	sweeper := sweep.New(client, invoker, store, ruleSet, sweep.Config{PostWindow: 10}, logger)

	return &harness{
		Graph:    fg,
		Store:    store,
		Guardian: guardian,
		Invoker:  invoker,
		Sweeper:  sweeper,
	}
}

// seedUpstream primes the fake Graph with a working token chain: the
// short token exchanges to the long one, which manages a single page.
func (h *harness) seedUpstream() {
	h.Graph.mu.Lock()
	defer h.Graph.mu.Unlock()

	h.Graph.valid[shortUserToken] = true
	h.Graph.valid[longUserToken] = true
	h.Graph.valid[pageToken] = true
	h.Graph.expiry[longUserToken] = time.Now().Add(50 * 24 * time.Hour).Unix()
	h.Graph.longToken = longUserToken
	h.Graph.pages = []fakePage{{ID: testPageID, Name: testPageName, Token: pageToken}}
}

// seedOnboarded leaves the store the way a completed setup run does.
func (h *harness) seedOnboarded(t *testing.T) {
	t.Helper()

	h.seedUpstream()

	require.NoError(t, h.Store.SetCredentials(state.Chain{
		UserToken:       longUserToken,
		PageToken:       pageToken,
		PageID:          testPageID,
		PageName:        testPageName,
		AppID:           testAppID,
		AppSecret:       testAppSecret,
		ExpiresAt:       time.Now().Add(50 * 24 * time.Hour).UnixMilli(),
		LastRefreshedAt: time.Now().UnixMilli(),
	}))
}
