package guard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savekeeperapp/savekeeper/internal/backup"
	"github.com/savekeeperapp/savekeeper/internal/watcher"
)

// waitFor polls cond until it's true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal(msg)
}

// TestSession_EndToEnd drives a session through a real watcher: a
// save is written (backup appears), deleted (save comes back), and
// the restore's own change notification creates no second backup.
func TestSession_EndToEnd(t *testing.T) {
	saveDir := t.TempDir()
	logger := testLogger()

	store := backup.NewStore(backup.Config{
		Dir: filepath.Join(saveDir, "backups"),
	}, logger)

	w, err := watcher.New(logger, watcher.Options{
		Pattern:     "*.baronysave",
		SettleDelay: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	session := NewSession(Config{
		WatchDir:    saveDir,
		SavePattern: "*.baronysave",
	}, store, w, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go session.Run(ctx) //nolint:errcheck // Test goroutine

	// Give the watcher a moment to arm.
	time.Sleep(100 * time.Millisecond)

	savePath := filepath.Join(saveDir, "slot1.baronysave")
	require.NoError(t, os.WriteFile(savePath, []byte(`{"dungeon_lvl": 5}`), 0o644))

	backups := func() []backup.Ref {
		refs, listErr := store.List("slot1.baronysave")
		require.NoError(t, listErr)
		return refs
	}

	waitFor(t, 5*time.Second, func() bool { return len(backups()) == 1 },
		"timed out waiting for the backup to appear")

	require.NoError(t, os.Remove(savePath))

	waitFor(t, 5*time.Second, func() bool {
		_, statErr := os.Stat(savePath)
		return statErr == nil
	}, "timed out waiting for the save to be restored")

	content, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Equal(t, `{"dungeon_lvl": 5}`, string(content))

	// The restore write triggers its own change notification; inside
	// the suppression window it must not produce a second backup.
	time.Sleep(time.Second)
	assert.Len(t, backups(), 1, "restore echo should have been suppressed")
}
