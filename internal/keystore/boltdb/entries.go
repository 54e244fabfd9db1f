package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/filekeystore/internal/keystore"
	"github.com/iudanet/filekeystore/internal/validation"
)

// Store inserts or replaces the entry keyed exactly by values
func (s *Storage) Store(ctx context.Context, values keystore.Values, secret []byte) error {
	if err := validation.ValidateValues(values); err != nil {
		return err
	}
	if err := validation.ValidateSecret(secret); err != nil {
		return err
	}

	line, err := keystore.EncodeEntry(&keystore.Entry{Values: values, Secret: secret})
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if bucket == nil {
			return errBucketNotFound
		}

		list, keys, err := load(bucket)
		if err != nil {
			return err
		}
		defer list.Free()

		// Reuse the key of an existing entry so its position is kept
		var key []byte
		// Ищем запись с тем же набором полей
		if _, idx := list.FindExact(values); idx >= 0 {
			key = keys[idx]
		} else {
			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("failed to allocate entry key: %w", err)
			}
			key = itob(seq)
		}

		if err := bucket.Put(key, []byte(line)); err != nil {
			return fmt.Errorf("failed to save entry: %w", err)
		}
		return nil
	})

	return s.finish(ctx, err)
}

// Find returns copies of all entries matching query in insertion order
func (s *Storage) Find(ctx context.Context, query keystore.Values) ([]*keystore.Entry, error) {
	if err := validation.ValidateQuery(query); err != nil {
		return nil, err
	}

	var found []*keystore.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if bucket == nil {
			return errBucketNotFound
		}

		list, _, err := load(bucket)
		if err != nil {
			return err
		}
		defer list.Free()

		for i := 0; ; i++ {
			entry, idx := list.Find(query, i)
			if entry == nil {
				break
			}
			found = append(found, entry.Clone())
			i = idx
		}
		return nil
	})
	if err := s.finish(ctx, err); err != nil {
		return nil, err
	}

	return found, nil
}

// Remove deletes all entries matching query and returns their count
func (s *Storage) Remove(ctx context.Context, query keystore.Values) (int, error) {
	if err := validation.ValidateQuery(query); err != nil {
		return 0, err
	}

	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if bucket == nil {
			return errBucketNotFound
		}

		list, keys, err := load(bucket)
		if err != nil {
			return err
		}
		defer list.Free()

		for i := 0; ; i++ {
			entry, idx := list.Find(query, i)
			if entry == nil {
				break
			}
			if err := bucket.Delete(keys[idx]); err != nil {
				return fmt.Errorf("failed to delete entry: %w", err)
			}
			list.Release(idx)
			removed++
			i = idx
		}
		return nil
	})
	if err := s.finish(ctx, err); err != nil {
		return 0, err
	}

	return removed, nil
}
