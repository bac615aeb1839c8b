package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/codewandler/tokenstore/adapters/nats"
	"github.com/codewandler/tokenstore/adapters/ristretto"
	"github.com/codewandler/tokenstore/adapters/sqlstore"
	"github.com/codewandler/tokenstore/core/cache"
	"github.com/codewandler/tokenstore/core/seq"
	"github.com/codewandler/tokenstore/core/token"
)

func newRegistry(cfg config, log *slog.Logger) *seq.StoreRegistry[token.Token] {
	r := seq.NewStoreRegistry[token.Token]()

	checkErr(r.Register("memory", func(context.Context) (seq.Store[token.Token], error) {
		return seq.NewInMemoryStore[token.Token](), nil
	}))
	checkErr(r.Register("nats", func(ctx context.Context) (seq.Store[token.Token], error) {
		s, err := nats.NewStore[token.Token](ctx, nats.StoreConfig{
			Connect: nats.ConnectDefault(),
			Log:     log,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}))
	dsn := map[string]func() (string, error){
		sqlstore.SQLite.Name: func() (string, error) {
			return cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
		},
		sqlstore.Postgres.Name: func() (string, error) {
			if cfg.DatabaseURL == "" {
				return "", errors.New("DATABASE_URL not set")
			}
			return cfg.DatabaseURL, nil
		},
	}
	for kind, getDSN := range dsn {
		checkErr(r.Register(kind, func(ctx context.Context) (seq.Store[token.Token], error) {
			dialect, err := sqlstore.DialectByName(kind)
			if err != nil {
				return nil, err
			}
			d, err := getDSN()
			if err != nil {
				return nil, err
			}
			return openSQL(ctx, sqlstore.Config{
				Dialect: dialect,
				DSN:     d,
				Create:  true,
				Log:     log,
			})
		}))
	}

	return r
}

func openSQL(ctx context.Context, cfg sqlstore.Config) (seq.Store[token.Token], error) {
	s, err := sqlstore.Open[token.Token](ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// lookasideFactory returns nil for the manager's default EvictionCache.
func lookasideFactory(cfg config) seq.LookasideFactory {
	switch cfg.Lookaside {
	case "ristretto":
		return func(string) (cache.Cache[int, token.Token], error) {
			l, err := ristretto.New[token.Token](int64(cfg.CacheSize))
			if err != nil {
				return nil, err
			}
			return l, nil
		}
	case "none":
		return func(string) (cache.Cache[int, token.Token], error) {
			return cache.NewNop[int, token.Token](), nil
		}
	default:
		return nil
	}
}
