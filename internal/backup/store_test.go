package backup

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savekeeperapp/savekeeper/internal/errors"
	"github.com/savekeeperapp/savekeeper/internal/save"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// fixedClock returns a Clock that yields t plus one second per call,
// so successive backups never collide at second resolution.
func fixedClock(t time.Time) func() time.Time {
	calls := 0
	return func() time.Time {
		now := t.Add(time.Duration(calls) * time.Second)
		calls++
		return now
	}
}

func writeSave(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStore_Create(t *testing.T) {
	saveDir := t.TempDir()
	backupDir := filepath.Join(saveDir, "backups")
	createdAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)

	store := NewStore(Config{
		Dir:   backupDir,
		Clock: func() time.Time { return createdAt },
	}, testLogger())

	t.Run("well-formed save", func(t *testing.T) {
		content := `{"dungeon_lvl": 5, "player": "herx"}`
		path := writeSave(t, saveDir, "slot1.baronysave", content)

		ref, err := store.Create(path)
		require.NoError(t, err)
		assert.Equal(t, "slot1.baronysave", ref.OriginalName)
		assert.Equal(t, save.KnownLevel(5), ref.Level)
		assert.True(t, createdAt.Equal(ref.CreatedAt))

		want := filepath.Join(backupDir, "slot1.baronysave.5.20240115_103000")
		assert.Equal(t, want, ref.Path)

		copied, err := os.ReadFile(want)
		require.NoError(t, err)
		assert.Equal(t, content, string(copied))
	})

	t.Run("malformed save backs up as unknown", func(t *testing.T) {
		path := writeSave(t, saveDir, "slot2.baronysave", "not json at all")

		ref, err := store.Create(path)
		require.NoError(t, err)
		assert.False(t, ref.Level.Known)
		assert.Equal(t, filepath.Join(backupDir, "slot2.baronysave.unknown.20240115_103000"), ref.Path)
	})

	t.Run("missing save file", func(t *testing.T) {
		_, err := store.Create(filepath.Join(saveDir, "nope.baronysave"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		assert.False(t, errors.Is(err, errors.ErrFileLocked))
	})

	t.Run("same-second collision is last write wins", func(t *testing.T) {
		path := writeSave(t, saveDir, "slot3.baronysave", `{"dungeon_lvl": 1}`)
		first, err := store.Create(path)
		require.NoError(t, err)

		writeSave(t, saveDir, "slot3.baronysave", `{"dungeon_lvl": 1, "gold": 99}`)
		second, err := store.Create(path)
		require.NoError(t, err)
		assert.Equal(t, first.Path, second.Path)

		content, err := os.ReadFile(second.Path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "gold")
	})
}

func TestStore_List(t *testing.T) {
	saveDir := t.TempDir()
	backupDir := filepath.Join(saveDir, "backups")
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)

	store := NewStore(Config{Dir: backupDir, Clock: fixedClock(base)}, testLogger())

	t.Run("missing backup dir is empty, not an error", func(t *testing.T) {
		refs, err := store.List("slot1.baronysave")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	path1 := writeSave(t, saveDir, "slot1.baronysave", `{"dungeon_lvl": 3}`)
	path2 := writeSave(t, saveDir, "slot10.baronysave", `{"dungeon_lvl": 9}`)

	_, err := store.Create(path1)
	require.NoError(t, err)
	_, err = store.Create(path1)
	require.NoError(t, err)
	_, err = store.Create(path2)
	require.NoError(t, err)

	t.Run("prefix match does not bleed across saves", func(t *testing.T) {
		refs, err := store.List("slot1.baronysave")
		require.NoError(t, err)
		assert.Len(t, refs, 2)
		for _, ref := range refs {
			assert.Equal(t, "slot1.baronysave", ref.OriginalName)
		}
	})

	t.Run("foreign file names fall back to mtime and unknown level", func(t *testing.T) {
		foreign := filepath.Join(backupDir, "slot1.baronysave.manualcopy")
		require.NoError(t, os.WriteFile(foreign, []byte("x"), 0o644))

		refs, err := store.List("slot1.baronysave")
		require.NoError(t, err)
		require.Len(t, refs, 3)

		var found *Ref
		for i := range refs {
			if refs[i].Path == foreign {
				found = &refs[i]
			}
		}
		require.NotNil(t, found)
		assert.False(t, found.Level.Known)

		info, err := os.Stat(foreign)
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(found.CreatedAt))

		require.NoError(t, os.Remove(foreign))
	})
}

func TestStore_EnforceRetention(t *testing.T) {
	saveDir := t.TempDir()
	backupDir := filepath.Join(saveDir, "backups")
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)

	store := NewStore(Config{Dir: backupDir, MaxPerSave: 3, Clock: fixedClock(base)}, testLogger())

	path := writeSave(t, saveDir, "slot1.baronysave", `{"dungeon_lvl": 4}`)
	for range 5 {
		_, err := store.Create(path)
		require.NoError(t, err)
	}

	removed, err := store.EnforceRetention("slot1.baronysave")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	refs, err := store.List("slot1.baronysave")
	require.NoError(t, err)
	require.Len(t, refs, 3)

	// The retained backups are the three newest.
	cutoff := base.Add(2 * time.Second)
	for _, ref := range refs {
		assert.False(t, ref.CreatedAt.Before(cutoff), "retained backup %s is older than a deleted one", ref.Path)
	}

	t.Run("idempotent with no new backups", func(t *testing.T) {
		removed, err := store.EnforceRetention("slot1.baronysave")
		require.NoError(t, err)
		assert.Zero(t, removed)

		refs, err := store.List("slot1.baronysave")
		require.NoError(t, err)
		assert.Len(t, refs, 3)
	})

	t.Run("under the limit is a no-op", func(t *testing.T) {
		other := writeSave(t, saveDir, "slot2.baronysave", `{"dungeon_lvl": 1}`)
		_, err := store.Create(other)
		require.NoError(t, err)

		removed, err := store.EnforceRetention("slot2.baronysave")
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}

func TestStore_EnforceRetention_Overflow(t *testing.T) {
	backupDir := t.TempDir()
	store := NewStore(Config{Dir: backupDir}, testLogger())

	// 1001 pre-existing backups, one per second, against the default
	// limit of 1000. Written directly so the test stays fast.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	oldest := filepath.Join(backupDir, EncodeName("slot1.baronysave", save.KnownLevel(1), base))
	for i := range 1001 {
		name := EncodeName("slot1.baronysave", save.KnownLevel(1), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), []byte("s"), 0o644))
	}

	removed, err := store.EnforceRetention("slot1.baronysave")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(oldest)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "exactly the oldest backup should be gone")

	refs, err := store.List("slot1.baronysave")
	require.NoError(t, err)
	assert.Len(t, refs, 1000)
}

func TestStore_RestoreNewest(t *testing.T) {
	saveDir := t.TempDir()
	backupDir := filepath.Join(saveDir, "backups")
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)

	store := NewStore(Config{Dir: backupDir, Clock: fixedClock(base)}, testLogger())
	savePath := filepath.Join(saveDir, "slot1.baronysave")

	t.Run("no backups", func(t *testing.T) {
		_, err := store.RestoreNewest("slot1.baronysave", savePath)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNoBackupFound))
		_, statErr := os.Stat(savePath)
		assert.True(t, errors.Is(statErr, fs.ErrNotExist), "restore must not touch the filesystem without a backup")
	})

	// Three generations at increasing levels and timestamps.
	for lvl := 3; lvl <= 5; lvl++ {
		writeSave(t, saveDir, "slot1.baronysave", fmt.Sprintf(`{"dungeon_lvl": %d}`, lvl))
		_, err := store.Create(savePath)
		require.NoError(t, err)
	}
	require.NoError(t, os.Remove(savePath))

	ref, err := store.RestoreNewest("slot1.baronysave", savePath)
	require.NoError(t, err)
	assert.Equal(t, save.KnownLevel(5), ref.Level)

	content, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Equal(t, `{"dungeon_lvl": 5}`, string(content))
}

func TestSortRefs_TieBreak(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)
	refs := []Ref{
		{Path: "backups/b.baronysave.2.20240115_103000", CreatedAt: at},
		{Path: "backups/a.baronysave.1.20240115_103000", CreatedAt: at},
	}
	sortRefs(refs)
	assert.Equal(t, "backups/a.baronysave.1.20240115_103000", refs[0].Path)
	assert.Equal(t, "backups/b.baronysave.2.20240115_103000", refs[1].Path)
}
