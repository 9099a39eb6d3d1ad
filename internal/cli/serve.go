package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/soleren/tempo/internal/aggregate"
	"github.com/soleren/tempo/internal/auth"
	"github.com/soleren/tempo/internal/config"
	"github.com/soleren/tempo/internal/daemon"
	"github.com/soleren/tempo/internal/session"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Port > 0 {
		cfg.Daemon.Port = c.Port
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	logger := newLogger(cfg, c.globals)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed configured blocklist entries into the store so the daemon
	// reports them from its first request.
	for _, domain := range cfg.Block.Domains {
		if err := store.AddBlockedDomain(ctx, domain); err != nil {
			return fmt.Errorf("seed blocklist: %w", err)
		}
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("auth.secret not configured, issued tokens will not survive a restart")
	}
	authsvc := auth.NewService(store, secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, cfg.Auth.BcryptCost)

	agg := aggregate.New(store)
	tracker := session.New(
		session.FromConfig(cfg.Tracking),
		config.NewIgnoreMatcher(cfg.Ignore),
		agg,
		session.NewHTTPFaviconSource(nil),
		logger,
	)

	srv := daemon.NewServer(cfg.Daemon, tracker, agg, store, authsvc, logger, c.version)

	trackerDone := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(trackerDone)
	}()

	err = srv.ListenAndServe(ctx)

	// Cancel the tracker and wait for its final close-out so the last
	// open session is credited before the store closes.
	stop()
	<-trackerDone

	return err
}
