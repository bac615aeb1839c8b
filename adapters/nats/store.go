package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/tokenstore/core/seq"
	"github.com/codewandler/tokenstore/internal/codec"
)

var (
	// ErrConflict means another writer claimed the same positions or
	// advanced the count first. Nothing of the failed batch is kept.
	ErrConflict  = errors.New("concurrent write to sequence")
	ErrInvalidID = errors.New("sequence id is not a valid key token")
)

const rollbackTimeout = 5 * time.Second

var validID = regexp.MustCompile(`^[-_=a-zA-Z0-9]+$`)

type StoreConfig struct {
	Connect Connector    // Connect is used to create the underlying NATS connection. If nil, ConnectDefault() is used.
	Log     *slog.Logger // Log for diagnostics (optional)
	Bucket  string       // Bucket is the key-value bucket name (default: "tokenstore")
	Codec   codec.Codec  // Codec encodes elements (default: codec.Default)

	// MaxBytes bounds the bucket size. Zero means unlimited.
	MaxBytes int64
	Storage  jetstream.StorageType
}

// Store keeps sequences in a JetStream key-value bucket. Element i of
// sequence s lives under "s.e.i", the number of committed elements under
// "s.count". Writes create the element keys first and then move the count
// with a revision check, so a reader never sees a count ahead of its
// elements. Element keys are created, never overwritten: of two writers
// starting at the same position only one can claim it, the other gets
// ErrConflict and deletes the keys it had already created.
type Store[T any] struct {
	nc    *natsgo.Conn
	close closeFunc
	kv    jetstream.KeyValue
	codec codec.Codec
	log   *slog.Logger
}

func NewStore[T any](ctx context.Context, cfg StoreConfig) (*Store[T], error) {
	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}

	nc, closeConn, err := doConnect()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, err
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "tokenstore"
	}
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = -1
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("store", "nats_kv"), slog.String("bucket", bucket))

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   bucket,
		Storage:  cfg.Storage,
		MaxBytes: maxBytes,
		History:  1,
	})
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", bucket, err)
	}
	log.Debug("ensured bucket")

	c := cfg.Codec
	if c == nil {
		c = codec.Default
	}

	return &Store[T]{nc: nc, close: closeConn, kv: kv, codec: c, log: log}, nil
}

func (s *Store[T]) Name() string { return "nats" }

func countKey(seqID string) string           { return seqID + ".count" }
func elemKey(seqID string, index int) string { return seqID + ".e." + strconv.Itoa(index) }

func checkID(seqID string) error {
	if !validID.MatchString(seqID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, seqID)
	}
	return nil
}

// count returns the committed element count and the revision of the count
// key. Revision 0 means the sequence has never been written.
func (s *Store[T]) count(ctx context.Context, seqID string) (int, uint64, error) {
	entry, err := s.kv.Get(ctx, countKey(seqID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to get count of %s: %w", seqID, err)
	}
	n, err := strconv.Atoi(string(entry.Value()))
	if err != nil {
		return 0, 0, fmt.Errorf("corrupt count of %s: %w", seqID, err)
	}
	return n, entry.Revision(), nil
}

func (s *Store[T]) Count(ctx context.Context, seqID string) (int, error) {
	if err := checkID(seqID); err != nil {
		return 0, err
	}
	n, _, err := s.count(ctx, seqID)
	return n, err
}

func (s *Store[T]) Write(ctx context.Context, seqID string, batch []T) (int, error) {
	if err := checkID(seqID); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	encoded := make([][]byte, len(batch))
	for i, v := range batch {
		data, err := s.codec.Marshal(v)
		if err != nil {
			return 0, fmt.Errorf("failed to encode element %d of batch: %w", i, err)
		}
		encoded[i] = data
	}

	start, rev, err := s.count(ctx, seqID)
	if err != nil {
		return 0, err
	}

	for i, data := range encoded {
		if _, err := s.kv.Create(ctx, elemKey(seqID, start+i), data); err != nil {
			s.rollback(seqID, start, i)
			if isRevisionConflict(err) {
				return 0, fmt.Errorf("%w: %s at %d", ErrConflict, seqID, start+i)
			}
			return 0, fmt.Errorf("failed to create element %d: %w", start+i, err)
		}
	}

	next := []byte(strconv.Itoa(start + len(batch)))
	if rev == 0 {
		_, err = s.kv.Create(ctx, countKey(seqID), next)
	} else {
		_, err = s.kv.Update(ctx, countKey(seqID), next, rev)
	}
	if err != nil {
		if isRevisionConflict(err) {
			s.rollback(seqID, start, len(batch))
			return 0, fmt.Errorf("%w: %s at %d", ErrConflict, seqID, start)
		}
		return 0, fmt.Errorf("failed to update count of %s: %w", seqID, err)
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
	if err := checkID(seqID); err != nil {
		return out, err
	}

	n, _, err := s.count(ctx, seqID)
	if err != nil {
		return out, err
	}
	if index < 0 || index >= n {
		return out, fmt.Errorf("%w: %s[%d]", seq.ErrNotFound, seqID, index)
	}

	entry, err := s.kv.Get(ctx, elemKey(seqID, index))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return out, fmt.Errorf("%w: %s[%d]", seq.ErrNotFound, seqID, index)
		}
		return out, fmt.Errorf("failed to get element %d: %w", index, err)
	}
	if err := s.codec.Unmarshal(entry.Value(), &out); err != nil {
		return out, fmt.Errorf("failed to decode element %d: %w", index, err)
	}
	return out, nil
}

// rollback deletes the first n element keys a failed write created at
// start, so the next writer can claim those positions.
func (s *Store[T]) rollback(seqID string, start, n int) {
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()
	for i := 0; i < n; i++ {
		if err := s.kv.Delete(ctx, elemKey(seqID, start+i)); err != nil {
			s.log.Warn(
				"failed to roll back element",
				slog.String("seq", seqID),
				slog.Int("index", start+i),
				slog.Any("error", err),
			)
		}
	}
}

// Close releases the connection lease.
func (s *Store[T]) Close() error {
	s.close()
	s.log.Debug("closed store")
	return nil
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

var _ seq.Store[any] = (*Store[any])(nil)
