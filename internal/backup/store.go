package backup

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/savekeeperapp/savekeeper/internal/errors"
	"github.com/savekeeperapp/savekeeper/internal/save"
)

// Default limits, overridable through Config.
const (
	DefaultMaxPerSave = 1000
	DefaultMaxRetries = 20
	DefaultRetryDelay = 50 * time.Millisecond
)

// Ref is a handle to one stored backup, with the metadata decoded
// from its file name.
type Ref struct {
	// Path is the absolute or store-relative path of the backup file.
	Path string
	// OriginalName is the save file name this backup belongs to.
	OriginalName string
	// Level is the dungeon level encoded in the name, if any.
	Level save.Level
	// CreatedAt is the creation time encoded in the name, or the
	// file's own modification time for foreign-format names.
	CreatedAt time.Time
}

// Config holds the tunables of a backup store.
type Config struct {
	// Dir is the backup directory. Created on first backup.
	Dir string
	// MaxPerSave bounds the retention set per save (default 1000).
	MaxPerSave int
	// MaxRetries and RetryDelay bound the shared-read gate used when
	// the game still holds the save open (defaults 20 and 50ms).
	MaxRetries int
	RetryDelay time.Duration
	// Clock supplies backup creation timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// Store owns the backup directory's contents. Backups are immutable
// once written; only EnforceRetention removes them.
type Store struct {
	cfg    Config
	logger *slog.Logger
}

// NewStore creates a backup store for the given directory.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	if cfg.MaxPerSave <= 0 {
		cfg.MaxPerSave = DefaultMaxPerSave
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Store{cfg: cfg, logger: logger}
}

// Dir returns the backup directory.
func (s *Store) Dir() string {
	return s.cfg.Dir
}

// MaxPerSave returns the configured retention bound.
func (s *Store) MaxPerSave() int {
	return s.cfg.MaxPerSave
}

// Create captures a new backup of the save file at savePath. The
// content is read once through the shared-read gate, the level is
// extracted best-effort (malformed content backs up as "unknown"),
// and the bytes are copied verbatim into the backup directory.
//
// If a backup with the same name already exists (same save, level and
// second) it is overwritten; last write wins at second resolution.
func (s *Store) Create(savePath string) (*Ref, error) {
	content, err := readFileShared(savePath, s.cfg.MaxRetries, s.cfg.RetryDelay)
	if err != nil {
		return nil, err
	}

	originalName := filepath.Base(savePath)

	level, err := save.ExtractLevel(content)
	if err != nil {
		s.logger.Debug("could not extract level, tagging backup as unknown",
			"save", originalName,
			"error", err,
		)
	}

	createdAt := s.cfg.Clock()
	name := EncodeName(originalName, level, createdAt)
	dst := filepath.Join(s.cfg.Dir, name)

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "create backup dir %s", s.cfg.Dir)
	}
	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "write backup %s", dst)
	}

	return &Ref{
		Path:         dst,
		OriginalName: originalName,
		Level:        level,
		CreatedAt:    createdAt,
	}, nil
}

// List returns every backup belonging to originalName, oldest first.
// A missing or empty backup directory yields an empty list, not an
// error.
func (s *Store) List(originalName string) ([]Ref, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.CodeIO, "read backup dir %s", s.cfg.Dir)
	}

	prefix := originalName + "."
	var refs []Ref
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		refs = append(refs, s.refFor(entry, originalName))
	}
	sortRefs(refs)
	return refs, nil
}

// refFor decodes a directory entry into a Ref. Names that do not
// carry a decodable timestamp fall back to the file's own
// modification time and an unknown level.
func (s *Store) refFor(entry fs.DirEntry, originalName string) Ref {
	ref := Ref{
		Path:         filepath.Join(s.cfg.Dir, entry.Name()),
		OriginalName: originalName,
	}

	if orig, ok := OriginalName(entry.Name()); ok {
		ref.OriginalName = orig
	}

	level, createdAt, ok := DecodeName(entry.Name())
	if ok {
		ref.Level = level
		ref.CreatedAt = createdAt
		return ref
	}

	if info, err := entry.Info(); err == nil {
		ref.CreatedAt = info.ModTime()
	}
	return ref
}

// EnforceRetention deletes the oldest backups of originalName until
// at most MaxPerSave remain. Individual delete failures are logged
// and skipped; cleanup of the remaining files continues. Returns the
// number of backups actually removed.
func (s *Store) EnforceRetention(originalName string) (int, error) {
	refs, err := s.List(originalName)
	if err != nil {
		return 0, err
	}
	if len(refs) <= s.cfg.MaxPerSave {
		return 0, nil
	}

	removed := 0
	for _, ref := range refs[:len(refs)-s.cfg.MaxPerSave] {
		if err := os.Remove(ref.Path); err != nil {
			s.logger.Warn("failed to delete stale backup",
				"file", ref.Path,
				"error", err,
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("pruned stale backups",
			"save", originalName,
			"removed", removed,
			"kept", len(refs)-removed,
		)
	}
	return removed, nil
}

// RestoreNewest copies the most recent backup of originalName back to
// destPath, overwriting whatever is there. Ties at second resolution
// break lexicographically on the backup file name, so selection is
// deterministic. Returns the restored backup's Ref.
func (s *Store) RestoreNewest(originalName, destPath string) (*Ref, error) {
	refs, err := s.List(originalName)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, errors.NoBackupFoundf("no backups exist for %s", originalName)
	}
	newest := refs[len(refs)-1]

	content, err := os.ReadFile(newest.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "read backup %s", newest.Path)
	}
	if err := os.WriteFile(destPath, content, 0o644); err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "restore %s to %s", newest.Path, destPath)
	}

	return &newest, nil
}

// sortRefs orders backups oldest first. Backups created within the
// same second order lexicographically on file name.
func sortRefs(refs []Ref) {
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].CreatedAt.Before(refs[j].CreatedAt)
		}
		return filepath.Base(refs[i].Path) < filepath.Base(refs[j].Path)
	})
}
