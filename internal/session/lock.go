package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// AcquireWatchLock takes an exclusive, non-blocking lock on dir/watch.lock so
// only one process keeps an event-stream connection open per state directory.
// The caller must Unlock the returned lock.
func AcquireWatchLock(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, "watch.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire watch lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another watcher is already running for %s", dir)
	}
	return lock, nil
}
