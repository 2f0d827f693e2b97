package backup

import (
	"io/fs"
	"os"
	"time"

	"github.com/savekeeperapp/savekeeper/internal/errors"
)

// readFileShared reads a save file that the game process may still
// hold an exclusive lock on for a short window after the change
// notification fires. It retries transient open/read failures with a
// fixed delay, bounded by maxRetries attempts (worst case roughly
// maxRetries * retryDelay).
//
// A missing file is not transient and short-circuits immediately:
// the save was deleted between the notification and the read, and the
// delete event will be handled on its own.
func readFileShared(path string, maxRetries int, retryDelay time.Duration) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		content, err := os.ReadFile(path)
		if err == nil {
			return content, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, errors.CodeIO, "save file %s disappeared before it could be read", path)
		}
		lastErr = err
	}

	return nil, errors.Wrapf(lastErr, errors.CodeFileLocked,
		"save file %s still locked after %d attempts", path, maxRetries)
}
