package file

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/iudanet/filekeystore/internal/keystore"
)

const (
	// fileMode is used when the keystore file has to be created
	fileMode = 0o600

	lineSeparator = '\n'
)

var errLockUnsupported = errors.New("advisory locking not supported")

// syncFile flushes the rewritten file to stable storage.
var syncFile = (*os.File).Sync

// lockedFile is the backing file held under an exclusive advisory lock for
// the duration of one operation.
type lockedFile struct {
	f      *os.File
	logger *slog.Logger
	path   string
	locked bool
}

// openLocked opens path read-only or read-write and locks it.
// A read-write open creates the file if it is missing.
// The lock is only kept once the locked descriptor still names the file at
// path; a file unlinked while we waited is reopened.
func openLocked(path string, writable bool, logger *slog.Logger) (*lockedFile, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}

	for {
		f, err := os.OpenFile(path, flag, fileMode)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open keystore file: %w", keystore.ErrIO, err)
		}

		lf := &lockedFile{f: f, path: path, logger: logger}
		if err := lockFile(f); err != nil {
			if !errors.Is(err, errLockUnsupported) {
				f.Close()
				return nil, fmt.Errorf("%w: failed to lock keystore file: %w", keystore.ErrIO, err)
			}
			logger.Debug("keystore file is not locked", "path", path, "reason", err)
			return lf, nil
		}
		lf.locked = true

		current, err := lf.current()
		if err != nil {
			lf.close()
			return nil, fmt.Errorf("%w: failed to stat keystore file: %w", keystore.ErrIO, err)
		}
		if current {
			return lf, nil
		}

		// Файл удален, пока мы ждали блокировку
		logger.Debug("keystore file replaced while waiting for lock, reopening", "path", path)
		lf.close()
	}
}

// current reports whether the locked descriptor is still the file at path.
func (lf *lockedFile) current() (bool, error) {
	held, err := lf.f.Stat()
	if err != nil {
		return false, err
	}
	onDisk, err := os.Stat(lf.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return os.SameFile(held, onDisk), nil
}

// close releases the lock and closes the descriptor.
func (lf *lockedFile) close() {
	if lf.locked {
		if err := unlockFile(lf.f); err != nil {
			lf.logger.Warn("failed to unlock keystore file", "path", lf.path, "error", err)
		}
		lf.locked = false
	}
	if err := lf.f.Close(); err != nil {
		lf.logger.Warn("failed to close keystore file", "path", lf.path, "error", err)
	}
}

// readAll decodes every line of the file into a new list.
// A corrupt line discards the partial list and destroys the file.
func (lf *lockedFile) readAll() (*keystore.List, error) {
	if _, err := lf.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: failed to rewind keystore file: %w", keystore.ErrIO, err)
	}

	list := &keystore.List{}
	r := bufio.NewReader(lf.f)
	for n := 1; ; n++ {
		line, err := r.ReadString(lineSeparator)
		if err != nil && !errors.Is(err, io.EOF) {
			list.Free()
			return nil, fmt.Errorf("%w: failed to read keystore file: %w", keystore.ErrIO, err)
		}
		if line == "" && errors.Is(err, io.EOF) {
			break
		}

		entry, decErr := keystore.DecodeEntry(strings.TrimSuffix(line, string(lineSeparator)))
		if decErr != nil {
			list.Free()
			lineErr := &keystore.LineError{Line: n, Err: decErr}
			lf.discard(lineErr)
			return nil, lineErr
		}
		e := list.NewEntry()
		e.Values = entry.Values
		e.Secret = entry.Secret

		if errors.Is(err, io.EOF) {
			break
		}
	}

	return list, nil
}

// rewriteAll truncates the file and writes every live entry of list,
// one per line with no trailing newline. Any failure destroys the file.
func (lf *lockedFile) rewriteAll(list *keystore.List) error {
	if err := lf.truncate(); err != nil {
		err = fmt.Errorf("%w: failed to truncate keystore file: %w", keystore.ErrIO, err)
		lf.discard(err)
		return err
	}

	w := bufio.NewWriter(lf.f)
	for i, e := range list.Live() {
		line, err := keystore.EncodeEntry(e)
		if err != nil {
			err = fmt.Errorf("%w: %w", keystore.ErrEncoding, err)
			lf.discard(err)
			return err
		}
		if i > 0 {
			if err := w.WriteByte(lineSeparator); err != nil {
				return lf.writeFailed(err)
			}
		}
		if _, err := w.WriteString(line); err != nil {
			return lf.writeFailed(err)
		}
	}
	if err := w.Flush(); err != nil {
		return lf.writeFailed(err)
	}
	if err := syncFile(lf.f); err != nil {
		return lf.writeFailed(err)
	}

	return nil
}

func (lf *lockedFile) writeFailed(err error) error {
	err = fmt.Errorf("%w: failed to write keystore file: %w", keystore.ErrIO, err)
	lf.discard(err)
	return err
}

func (lf *lockedFile) truncate() error {
	if _, err := lf.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return lf.f.Truncate(0)
}

// discard empties the file and unlinks it so no partially written or
// unparsable content survives. A read-only descriptor cannot be truncated;
// the unlink still removes the file.
func (lf *lockedFile) discard(cause error) {
	lf.logger.Warn("discarding keystore file", "path", lf.path, "cause", cause)

	if err := lf.truncate(); err != nil {
		lf.logger.Debug("failed to truncate keystore file", "path", lf.path, "error", err)
	}
	if err := os.Remove(lf.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		lf.logger.Error("failed to remove keystore file", "path", lf.path, "error", err)
	}
}
