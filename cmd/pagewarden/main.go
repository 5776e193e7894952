package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexjbarnes/pagewarden/internal/config"
	"github.com/alexjbarnes/pagewarden/internal/graph"
	"github.com/alexjbarnes/pagewarden/internal/logging"
	"github.com/alexjbarnes/pagewarden/internal/rules"
	"github.com/alexjbarnes/pagewarden/internal/session"
	"github.com/alexjbarnes/pagewarden/internal/state"
	"github.com/alexjbarnes/pagewarden/internal/sweep"
)

var Version = "dev"

func main() {
	var err error

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "setup":
			err = runSetup(os.Args[2:])
		case "queue":
			err = runQueue(os.Args[2:])
		case "status":
			err = runStatus()
		default:
			err = run()
		}
	} else {
		err = run()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the state database at the configured or default path.
func openStore(cfg *config.Config) (*state.Store, error) {
	path := cfg.StatePath
	if path == "" {
		var err error

		path, err = config.DefaultStatePath()
		if err != nil {
			return nil, err
		}
	}

	return state.LoadAt(path)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)
	logger.Info("pagewarden starting",
		slog.String("version", Version),
		slog.Duration("comment_sweep", cfg.CommentSweepInterval),
		slog.Duration("post_sweep", cfg.PostSweepInterval),
	)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer store.Close()

	ruleSet, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	logger.Info("rules loaded",
		slog.String("file", cfg.RulesFile),
		slog.Int("rules", ruleSet.Len()),
	)

	client := graph.NewClient(nil)

	guardian := session.NewGuardian(store, client, client, session.Options{
		Buffer:     cfg.ValidityBuffer,
		DefaultTTL: cfg.DefaultTokenTTL,
		PageName:   cfg.PageName,
	}, logger)

	invoker := session.NewInvoker(store, guardian, logger)

	sweeper := sweep.New(client, invoker, store, ruleSet, sweep.Config{
		PostWindow:    cfg.PostWindow,
		ReplyCooldown: cfg.ReplyCooldown,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !guardian.EnsureValid(ctx) {
		logger.Warn("credential chain not valid at startup; sweeps will retry until refresh succeeds")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweepLoop(gctx, logger, "comments", cfg.CommentSweepInterval, sweeper.SweepComments)
	})

	g.Go(func() error {
		return sweepLoop(gctx, logger, "scheduled posts", cfg.PostSweepInterval, sweeper.SweepScheduled)
	})

	g.Go(func() error {
		return ruleSet.Watch(gctx, logger)
	})

	err = g.Wait()
	if err != nil && ctx.Err() != nil {
		// Clean shutdown via signal.
		logger.Info("pagewarden stopped")
		return nil
	}

	return err
}

// sweepLoop runs one sweep immediately and then on every tick until the
// context is cancelled. A failed sweep is logged, never fatal; the next
// tick tries again.
func sweepLoop(ctx context.Context, logger *slog.Logger, name string, interval time.Duration, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			logger.Error("sweep failed",
				slog.String("sweep", name),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runSetup onboards a credential chain from a user access token. Short
// or long-lived both work: the guardian's refresh protocol exchanges,
// resolves the page token, and reconciles the expiry.
func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: pagewarden setup <user-access-token>")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one token argument")
	}

	token := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer store.Close()

	// Seed the chain with just the user token and app identity; the
	// refresh protocol fills in the rest.
	seed := state.Chain{
		UserToken: token,
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
	}

	if err := store.SetCredentials(seed); err != nil {
		return fmt.Errorf("storing initial chain: %w", err)
	}

	client := graph.NewClient(nil)

	guardian := session.NewGuardian(store, client, client, session.Options{
		Buffer:     cfg.ValidityBuffer,
		DefaultTTL: cfg.DefaultTokenTTL,
		PageName:   cfg.PageName,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !guardian.EnsureValid(ctx) {
		return fmt.Errorf("setup failed: could not establish a working credential chain (see log)")
	}

	chain, _, err := store.Credentials()
	if err != nil {
		return err
	}

	fmt.Printf("setup complete: moderating page %q (%s), token expires %s\n",
		chain.PageName, chain.PageID, time.UnixMilli(chain.ExpiresAt).Format(time.RFC3339))

	return nil
}

// runQueue adds a post to the scheduled-post queue.
func runQueue(args []string) error {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	at := fs.String("at", "", "publish time, RFC3339 (default: now)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: pagewarden queue [-at RFC3339] <message>")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one message argument")
	}

	publishAt := time.Now()

	if *at != "" {
		var err error

		publishAt, err = time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("parsing -at: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer store.Close()

	post, err := store.QueuePost(fs.Arg(0), publishAt)
	if err != nil {
		return err
	}

	fmt.Printf("queued post %s for %s\n", post.ID, post.PublishAt.Format(time.RFC3339))

	return nil
}

// runStatus prints the stored chain and queue for operators.
func runStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer store.Close()

	chain, found, err := store.Credentials()
	if err != nil {
		return err
	}

	if !found {
		fmt.Println("no credentials stored; run: pagewarden setup <token>")
	} else {
		expires := "unknown"
		if chain.ExpiresAt > 0 {
			expires = time.UnixMilli(chain.ExpiresAt).Format(time.RFC3339)
		}

		fmt.Printf("page: %q (%s)\ntoken expires: %s\nlast refreshed: %s\n",
			chain.PageName, chain.PageID, expires,
			time.UnixMilli(chain.LastRefreshedAt).Format(time.RFC3339))
	}

	pending, err := store.PendingPosts()
	if err != nil {
		return err
	}

	fmt.Printf("queued posts: %d\n", len(pending))

	for _, p := range pending {
		fmt.Printf("  %s  %s  %.60q\n", p.ID, p.PublishAt.Format(time.RFC3339), p.Message)
	}

	return nil
}
