//go:build !unix

package db

import (
	"errors"
	"os"
)

var errLocked = errors.New("file is locked by another process")

// Advisory locking is unix-only; other platforms rely on the process mutex.
func tryLock(*os.File) error { return nil }

func unlock(*os.File) error { return nil }
