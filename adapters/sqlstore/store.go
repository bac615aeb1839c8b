// Package sqlstore keeps sequences in a SQL database through database/sql.
// PostgreSQL (github.com/lib/pq) and SQLite (modernc.org/sqlite) are
// supported; the schema scripts for both are embedded.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codewandler/tokenstore/core/seq"
	"github.com/codewandler/tokenstore/internal/codec"
)

const DefaultQueryTimeout = 5 * time.Second

type Config struct {
	Dialect Dialect
	// DSN is passed to sql.Open. Ignored when DB is set.
	DSN string
	// DB reuses an existing pool. The store does not close it.
	DB *sql.DB
	// Codec encodes elements (default: codec.Default).
	Codec codec.Codec
	// QueryTimeout bounds every statement (default: DefaultQueryTimeout).
	QueryTimeout time.Duration
	// Create runs the create script on open.
	Create bool
	Log    *slog.Logger
}

type queries struct {
	count  string
	insert string
	read   string
}

// Store implements seq.Store on a single seq_elements table. Each Write is
// one transaction, so a batch is stored completely or not at all.
type Store[T any] struct {
	db      *sql.DB
	ownsDB  bool
	dialect Dialect
	codec   codec.Codec
	timeout time.Duration
	log     *slog.Logger
	q       queries
}

func Open[T any](ctx context.Context, cfg Config) (*Store[T], error) {
	if cfg.Dialect.Driver == "" {
		return nil, errors.New("dialect is required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("store", "sql"), slog.String("dialect", cfg.Dialect.Name))

	db, owns := cfg.DB, false
	if db == nil {
		var err error
		db, err = sql.Open(cfg.Dialect.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		owns = true
		if cfg.Dialect.Name == SQLite.Name {
			// one writer at a time, avoids SQLITE_BUSY between pooled connections
			db.SetMaxOpenConns(1)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		if owns {
			_ = db.Close()
		}
		return nil, fmt.Errorf("ping %s: %w", cfg.Dialect.Name, err)
	}

	c := cfg.Codec
	if c == nil {
		c = codec.Default
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	d := cfg.Dialect
	s := &Store[T]{
		db:      db,
		ownsDB:  owns,
		dialect: d,
		codec:   c,
		timeout: timeout,
		log:     log,
		q: queries{
			count:  d.bind("SELECT COUNT(*) FROM seq_elements WHERE seq_id = :1", 1),
			insert: d.bind("INSERT INTO seq_elements (seq_id, pos, data) VALUES (:1, :2, :3)", 3),
			read:   d.bind("SELECT data FROM seq_elements WHERE seq_id = :1 AND pos = :2", 2),
		},
	}

	if cfg.Create {
		if err := s.Create(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	log.Debug("opened")
	return s, nil
}

func (s *Store[T]) Name() string { return s.dialect.Name }

// DB exposes the underlying pool.
func (s *Store[T]) DB() *sql.DB { return s.db }

// Create makes sure the schema exists.
func (s *Store[T]) Create(ctx context.Context) error { return s.runScript(ctx, "create") }

// Clean deletes every stored element but keeps the schema.
func (s *Store[T]) Clean(ctx context.Context) error { return s.runScript(ctx, "clean") }

// Drop removes the schema.
func (s *Store[T]) Drop(ctx context.Context) error { return s.runScript(ctx, "drop") }

func (s *Store[T]) runScript(ctx context.Context, name string) error {
	f, err := s.dialect.script(name)
	if err != nil {
		return fmt.Errorf("%s script: %w", name, err)
	}
	defer f.Close()

	if _, err := ExecScript(ctx, s.db, f, s.log.With(slog.String("script", name))); err != nil {
		return fmt.Errorf("%s script: %w", name, err)
	}
	return nil
}

func (s *Store[T]) Count(ctx context.Context, seqID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, s.q.count, seqID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", seqID, err)
	}
	return n, nil
}

func (s *Store[T]) Write(ctx context.Context, seqID string, batch []T) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var start int
	if err := tx.QueryRowContext(ctx, s.q.count, seqID).Scan(&start); err != nil {
		return 0, fmt.Errorf("count %s: %w", seqID, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.q.insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range batch {
		data, err := s.codec.Marshal(v)
		if err != nil {
			return 0, fmt.Errorf("encode element %d: %w", start+i, err)
		}
		if _, err := stmt.ExecContext(ctx, seqID, start+i, data); err != nil {
			return 0, fmt.Errorf("insert element %d: %w", start+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit write: %w", err)
	}

	s.log.Debug(
		"write",
		slog.String("seq", seqID),
		slog.Int("start", start),
		slog.Int("count", len(batch)),
	)
	return len(batch), nil
}

func (s *Store[T]) ReadAt(ctx context.Context, seqID string, index int) (out T, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var data []byte
	err = s.db.QueryRowContext(ctx, s.q.read, seqID, index).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("%w: %s[%d]", seq.ErrNotFound, seqID, index)
	}
	if err != nil {
		return out, fmt.Errorf("read %s[%d]: %w", seqID, index, err)
	}
	if err := s.codec.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s[%d]: %w", seqID, index, err)
	}
	return out, nil
}

// Close closes the pool if the store opened it.
func (s *Store[T]) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

var _ seq.Store[any] = (*Store[any])(nil)
