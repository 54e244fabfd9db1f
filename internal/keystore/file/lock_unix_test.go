//go:build unix

package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/filekeystore/internal/keystore"
)

func TestStore_ConcurrentWritersAreSerialized(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keystore")
	_, err := New(path)
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// each writer behaves like a separate process with its own descriptor
			s, err := New(path)
			if err != nil {
				errs <- err
				return
			}
			user := fmt.Sprintf("user%02d", i)
			errs <- s.Store(ctx, keystore.Values{keystore.KeyUser: user}, []byte(user))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, err := New(path)
	require.NoError(t, err)
	found, err := s.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, found, writers, "no update may be lost")
}

func TestLockFile_Blocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore")
	_, err := New(path)
	require.NoError(t, err)

	first, err := openLocked(path, true, discardLogger())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := openLocked(path, false, discardLogger())
		if err == nil {
			second.close()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second open acquired the lock while the first still holds it")
	case <-time.After(100 * time.Millisecond):
	}

	first.close()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not released")
	}
}

func TestStore_WaitingWriterFollowsDiscardedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keystore")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	s, err := New(path, WithLogger(discardLogger()))
	require.NoError(t, err)

	holder, err := openLocked(path, true, discardLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- s.Store(ctx, keystore.Values{keystore.KeyUser: "bob"}, []byte("pw"))
	}()

	// let the writer block on the held lock
	time.Sleep(100 * time.Millisecond)

	_, err = holder.readAll()
	require.ErrorIs(t, err, keystore.ErrCorruptFormat)
	holder.close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("writer did not finish after the lock was released")
	}

	found, err := s.Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, found, 1, "the entry must land in the file at path")
	assert.Equal(t, []byte("pw"), found[0].Secret)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{user:Ym9i}:cHc=", string(data))
}
