// Package boltdb stores keystore entries in a BoltDB file.
// Each entry is kept as one encoded keystore line under a sequence key,
// so insertion order and matching rules are the same as the flat file store.
package boltdb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.etcd.io/bbolt"

	"github.com/iudanet/filekeystore/internal/keystore"
)

var (
	// BoltDB bucket names
	bucketEntries = []byte("entries")

	errBucketNotFound = errors.New("entries bucket not found")
)

// Storage represents BoltDB keystore implementation
type Storage struct {
	db     *bbolt.DB
	logger *slog.Logger
}

var _ keystore.Keystore = (*Storage)(nil)

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new BoltDB keystore
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	if dbPath == "" {
		return nil, keystore.ErrNoPath
	}

	// Открываем BoltDB; bbolt держит эксклюзивный flock, пока файл открыт
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open boltdb: %w", keystore.ErrIO, err)
	}

	storage := &Storage{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(storage)
	}

	// Создаем bucket, если его нет
	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize buckets: %w", keystore.ErrIO, err)
	}

	storage.logger.DebugContext(ctx, "opened boltdb keystore", "path", dbPath)
	return storage, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets creates the entries bucket if it does not exist
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return fmt.Errorf("failed to create entries bucket: %w", err)
		}
		return nil
	})
}

// load decodes every stored line of the bucket into a list.
// keys[i] is the bolt key of list entry i.
func load(bucket *bbolt.Bucket) (*keystore.List, [][]byte, error) {
	list := &keystore.List{}
	var keys [][]byte

	n := 0
	err := bucket.ForEach(func(k, v []byte) error {
		n++
		entry, err := keystore.DecodeEntry(string(v))
		if err != nil {
			return &keystore.LineError{Line: n, Err: err}
		}
		e := list.NewEntry()
		e.Values = entry.Values
		e.Secret = entry.Secret
		keys = append(keys, append([]byte(nil), k...))
		return nil
	})
	if err != nil {
		list.Free()
		return nil, nil, err
	}

	return list, keys, nil
}

// discard drops every entry after a corrupt value was found,
// matching the destructive recovery of the flat file store.
func (s *Storage) discard(ctx context.Context, cause error) {
	s.logger.WarnContext(ctx, "discarding boltdb keystore entries", "cause", cause)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketEntries)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to reset entries bucket", "error", err)
	}
}

// finish classifies a transaction error and runs recovery for corrupt data.
func (s *Storage) finish(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keystore.ErrCorruptFormat):
		s.discard(ctx, err)
		return err
	case errors.Is(err, keystore.ErrInvalidEntry), errors.Is(err, keystore.ErrEncoding):
		return err
	default:
		return fmt.Errorf("%w: %w", keystore.ErrIO, err)
	}
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
