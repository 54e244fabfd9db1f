//go:build !unix && !windows

package file

import "os"

func lockFile(*os.File) error {
	return errLockUnsupported
}

func unlockFile(*os.File) error {
	return nil
}
