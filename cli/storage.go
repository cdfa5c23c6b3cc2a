package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"induction-portal/config"
	"induction-portal/db"
	"induction-portal/session"
)

// openBackend opens the document backend selected by STORAGE.BACKEND.
func openBackend(ctx context.Context, c *config.Config) (db.Backend, error) {
	switch c.Storage.Backend {
	case "", "file":
		return db.NewFileBackend(c.DataFile), nil
	case "badger":
		return db.OpenBadger(db.BadgerConfig{Path: c.Storage.BadgerPath, GCInterval: 10 * time.Minute})
	case "postgres":
		return db.OpenPostgres(ctx, c.Storage.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
}

// openStore wraps the configured backend in a cached Store.
func openStore(ctx context.Context, c *config.Config) (*db.Store, db.Backend, error) {
	backend, err := openBackend(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	defaults, err := db.SeedDefaults(c.SeedFile)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	store := db.NewStore(backend,
		db.WithTTL(c.CacheTTL),
		db.WithDefaults(defaults),
		db.WithLogger(logrus.WithFields(logrus.Fields{"component": "store", "backend": c.Storage.Backend})),
	)
	return store, backend, nil
}

// openSessionStore returns the store selected by SESSION.BACKEND and a
// function releasing it.
func openSessionStore(ctx context.Context, c *config.Config) (session.Store, func(), error) {
	switch c.Session.Backend {
	case "", "memory":
		return session.NewMemoryStore(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: c.Session.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", c.Session.RedisAddr, err)
		}
		return session.NewRedisStore(client), func() { client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown session backend %q", c.Session.Backend)
}
