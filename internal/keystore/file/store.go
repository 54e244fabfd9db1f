// Package file implements a plaintext keystore kept in a single flat file.
//
// Every line of the file holds one credential:
//
//	{protocol:aHR0cHM=,server:ZXhhbXBsZS5jb20=}:c2VjcmV0
//
// Field values and the secret are base64 encoded, not encrypted. Each
// operation locks the file, reads it whole, and rewrites it whole when
// something changed. A file that cannot be parsed or fully rewritten is
// truncated and removed rather than left half written.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/iudanet/filekeystore/internal/keystore"
	"github.com/iudanet/filekeystore/internal/validation"
)

// Store is a keystore backed by one file.
// Operations are serialized across processes by the file lock only;
// callers sharing a Store between goroutines must serialize themselves.
type Store struct {
	logger *slog.Logger
	path   string
}

var _ keystore.Keystore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics. Values and secrets are never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New makes sure the file at path exists, creating it empty if needed,
// and returns a Store for it.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, keystore.ErrNoPath
	}

	s := &Store{
		path:   path,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("%w: keystore path %s is a directory", keystore.ErrIO, path)
		}
	case errors.Is(err, os.ErrNotExist):
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create keystore file: %w", keystore.ErrIO, err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("%w: failed to create keystore file: %w", keystore.ErrIO, err)
		}
		s.logger.Info("created keystore file", "path", path)
	default:
		return nil, fmt.Errorf("%w: failed to stat keystore file: %w", keystore.ErrIO, err)
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Close is a no-op; the file is only held open during an operation.
func (s *Store) Close() error {
	return nil
}

// Store inserts the entry keyed by values, or replaces the secret of the
// entry whose fields equal values exactly.
func (s *Store) Store(ctx context.Context, values keystore.Values, secret []byte) error {
	if err := validation.ValidateValues(values); err != nil {
		return err
	}
	if err := validation.ValidateSecret(secret); err != nil {
		return err
	}

	return s.update(ctx, "store", func(list *keystore.List) bool {
		entry, _ := list.FindExact(values)
		if entry == nil {
			entry = list.NewEntry()
		}
		entry.Values = values.Clone()
		entry.SetSecret(secret)
		return true
	})
}

// Find returns copies of every entry matching query in file order.
// A missing file holds no entries.
func (s *Store) Find(ctx context.Context, query keystore.Values) ([]*keystore.Entry, error) {
	if err := validation.ValidateQuery(query); err != nil {
		return nil, err
	}

	lf, err := openLocked(s.path, false, s.logger)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer lf.close()

	list, err := lf.readAll()
	if err != nil {
		return nil, err
	}
	defer list.Free()

	var found []*keystore.Entry
	for i := 0; ; i++ {
		entry, idx := list.Find(query, i)
		if entry == nil {
			break
		}
		found = append(found, entry.Clone())
		i = idx
	}

	s.logger.DebugContext(ctx, "keystore find", "path", s.path, "fields", fieldNames(query), "count", len(found))
	return found, nil
}

// Remove deletes every entry matching query and returns how many were removed.
// When the rewrite fails the count is 0.
func (s *Store) Remove(ctx context.Context, query keystore.Values) (int, error) {
	if err := validation.ValidateQuery(query); err != nil {
		return 0, err
	}

	removed := 0
	err := s.update(ctx, "remove", func(list *keystore.List) bool {
		for i := 0; ; i++ {
			entry, idx := list.Find(query, i)
			if entry == nil {
				break
			}
			list.Release(idx)
			removed++
			i = idx
		}
		return removed > 0
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

// update runs fn over the decoded file under the lock and rewrites the file
// when fn reports a change.
func (s *Store) update(ctx context.Context, op string, fn func(list *keystore.List) bool) error {
	lf, err := openLocked(s.path, true, s.logger)
	if err != nil {
		return err
	}
	defer lf.close()

	list, err := lf.readAll()
	if err != nil {
		return err
	}
	defer list.Free()

	dirty := fn(list)
	if dirty {
		if err := lf.rewriteAll(list); err != nil {
			return err
		}
	}

	s.logger.DebugContext(ctx, "keystore "+op, "path", s.path, "rewritten", dirty, "entries", len(list.Live()))
	return nil
}

func fieldNames(v keystore.Values) []string {
	names := make([]string, 0, len(v))
	for _, k := range keystore.Keys() {
		if _, ok := v[k]; ok {
			names = append(names, k.String())
		}
	}
	return names
}
