package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/config"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/db"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/etcd"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/firebase"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/memory"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/redis"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/sqlite"
)

// backends is the opened storage for one process.  close releases every
// connection in reverse order of opening.
type backends struct {
	users       store.UserStore
	credentials store.CredentialStore
	closers     []func() error
}

func (b *backends) close() error {
	var errs []error
	for _, c := range slices.Backward(b.closers) {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func openBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{}

	seed := db.DemoRoster()
	if cfg.RosterSeed != "" {
		users, err := config.LoadRosterSeed(cfg.RosterSeed)
		if err != nil {
			return nil, err
		}
		seed = users
	}

	needSQLite := cfg.Store == "sqlite" || cfg.RosterBackend == "sqlite"
	var (
		sqlDB  *sql.DB
		writer *db.Worker
	)
	if needSQLite {
		var err error
		sqlDB, err = db.Open(ctx, db.Config{Path: cfg.DBPath})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, sqlDB.Close)
		if err := db.Migrate(ctx, sqlDB); err != nil {
			_ = b.close()
			return nil, err
		}
		writer = db.NewWorker(sqlDB)
		b.closers = append(b.closers, func() error { writer.Close(); return nil })
		logger.Info("sqlite ready", zap.String("path", cfg.DBPath))
	}

	switch cfg.RosterBackend {
	case "sqlite":
		if err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{Users: seed}); err != nil {
			_ = b.close()
			return nil, err
		}
		b.users = sqlite.NewUserStore(sqlDB, writer)
	default:
		b.users = memory.NewUserStore(seed)
	}

	creds, closeFn, err := openCredentialStore(ctx, cfg, sqlDB, writer)
	if err != nil {
		_ = b.close()
		return nil, err
	}
	if closeFn != nil {
		b.closers = append(b.closers, closeFn)
	}
	b.credentials = creds

	logger.Info("backends opened",
		zap.String("roster", cfg.RosterBackend),
		zap.String("credentials", cfg.Store),
		zap.Int("seed_users", len(seed)))
	return b, nil
}

func openCredentialStore(ctx context.Context, cfg config.Config, sqlDB *sql.DB, writer *db.Worker) (store.CredentialStore, func() error, error) {
	switch strings.ToLower(cfg.Store) {
	case "memory":
		return memory.NewCredentialStore(), nil, nil
	case "sqlite":
		return sqlite.NewCredentialStore(sqlDB, writer), nil, nil
	case "firebase":
		s, err := firebase.Dial(ctx, firebase.Config{
			DatabaseURL:     cfg.Firebase.DatabaseURL,
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "redis":
		s, client, err := redis.NewStoreFromURL(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return s, client.Close, nil
	case "etcd":
		s, client, err := etcd.Dial(ctx, etcd.Config{Endpoints: cfg.Etcd.Endpoints, Prefix: cfg.Etcd.Prefix})
		if err != nil {
			return nil, nil, err
		}
		return s, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown credential store %q", cfg.Store)
}
