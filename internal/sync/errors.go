package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a file or object absent where presence was assumed.
	// Usually swallowed after cleaning up the cache entry.
	ErrNotFound = errors.New("sync: not found")

	// ErrSyncAlreadyRunning is returned when a pass is requested while the
	// previous one is still executing.
	ErrSyncAlreadyRunning = errors.New("sync: pass already running")
)

// AccessError marks a permission or IO failure against a storage directory.
// Surfacing one at pass level forces a full-pass restart so missing
// resources get recreated.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("sync: access error on %q: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// TransferError marks a failed upload or download that is neither a
// connectivity, auth nor folder problem. Logged, the file skipped, the pass
// continues.
type TransferError struct {
	Op   string
	Name string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("sync: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
