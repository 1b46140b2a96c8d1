package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/adaptive-context/internal/config"
	"github.com/danielpatrickdp/adaptive-context/internal/learning"
	"github.com/danielpatrickdp/adaptive-context/internal/logging"
	"github.com/danielpatrickdp/adaptive-context/internal/oracle"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/storage"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

// #region backend
// backend holds everything an operator command needs, opened from config.
type backend struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   posterior.Store
	traces  *trace.Log
	oracle  *oracle.Client
	closers []func() error
}

// openBackend loads config, opens storage and, when oracle.addr is set, an
// oracle client. Storage and oracle failures are wrapped in
// learning.ErrBackendUnreachable.
func openBackend() (*backend, error) {
	b, err := openLocalBackend()
	if err != nil {
		return nil, err
	}
	if b.cfg.Oracle.Addr != "" {
		client, err := oracle.NewClient(b.cfg.Oracle.Addr, b.cfg.Learning.Learner)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("%w: %w", learning.ErrBackendUnreachable, err)
		}
		b.oracle = client
		b.closers = append(b.closers, client.Close)
	}
	return b, nil
}

// openLocalBackend is openBackend without the oracle client, for the process
// that serves the oracle itself.
func openLocalBackend() (*backend, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	b := &backend{cfg: cfg, logger: logger}
	if err := b.openStorage(); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: %w", learning.ErrBackendUnreachable, err)
	}
	return b, nil
}

// openStorage opens the posterior store and trace log. With the sqlite driver
// both share one database file.
func (b *backend) openStorage() error {
	switch b.cfg.Storage.Driver {
	case config.DriverBadger:
		store, err := posterior.NewBadgerStore(posterior.BadgerConfig{
			Dir:        b.cfg.Storage.BadgerDir,
			SyncWrites: true,
			Logger:     b.logger,
		})
		if err != nil {
			return err
		}
		b.store = store
		b.closers = append(b.closers, store.Close)

		log, err := trace.OpenLog(b.cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.traces = log
		b.closers = append(b.closers, log.Close)
	default:
		db, err := storage.OpenSQLite(b.cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, db.Close)

		store, err := posterior.NewSQLiteStoreWithDB(db)
		if err != nil {
			return err
		}
		b.store = store

		log, err := trace.NewLog(db)
		if err != nil {
			return err
		}
		b.traces = log
	}
	return nil
}

// learner builds a learner over the opened backend.
func (b *backend) learner() *learning.Learner {
	opts := learning.Options{
		Config: learning.FromConfig(*b.cfg),
		Store:  b.store,
		Log:    b.traces,
		Logger: b.logger,
	}
	if b.oracle != nil {
		opts.Oracle = b.oracle
	}
	return learning.New(opts)
}

// Close releases resources in reverse order of opening.
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Debug("close failed", zap.Error(err))
		}
	}
	b.closers = nil
	_ = b.logger.Sync()
}

// #endregion backend
