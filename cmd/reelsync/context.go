package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/edgeauth"
	"reelsync/internal/logging"
	"reelsync/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openStore opens the entity store for the configured data directory.
// The caller owns the returned store.
func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg)
}

// catalogClient builds an authenticated feed client, seeded with the
// persisted credential when one is still valid.
func (c *commandContext) catalogClient(ctx context.Context, st *store.Store, logger *slog.Logger) (*catalog.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	issuer, err := edgeauth.NewIssuer(
		cfg.Catalog.SigningSecret,
		cfg.Catalog.TokenACL,
		time.Duration(cfg.Catalog.TokenWindowSeconds)*time.Second,
	)
	if err != nil {
		return nil, err
	}

	client := catalog.NewClient(cfg.Catalog, issuer, logger)
	if cred, err := st.ActiveCredential(ctx); err == nil && cred.ExpiresAt.After(time.Now()) {
		client.Seed(edgeauth.Credential{
			Token:     cred.Token,
			IssuedAt:  cred.IssuedAt,
			ExpiresAt: cred.ExpiresAt,
		})
	}
	return client, nil
}

// withLock runs fn while holding the single-instance lock. Commands
// that write to the store take it so overlapping syncs cannot race.
func (c *commandContext) withLock(fn func() error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "reelsync.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelsync instance is already running")
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
