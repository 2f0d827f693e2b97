// Package backup stores, prunes and restores timestamped copies of
// game save files. All backup metadata lives in the backup file name
// itself; the directory is flat and the files are byte-identical
// copies of the save at capture time.
package backup

import (
	"strings"
	"time"

	"github.com/savekeeperapp/savekeeper/internal/save"
)

// timestampLayout is the second-resolution creation time encoded in
// every backup name.
const timestampLayout = "20060102_150405"

// EncodeName builds a backup file name from the original save name,
// the extracted level and the creation time:
//
//	<originalName>.<level|unknown>.<YYYYMMDD_HHMMSS>
//
// The original name keeps its extension, so a backup of
// "slot1.baronysave" at level 5 is "slot1.baronysave.5.20240115_103000".
func EncodeName(originalName string, level save.Level, createdAt time.Time) string {
	var b strings.Builder
	b.WriteString(originalName)
	b.WriteByte('.')
	b.WriteString(level.String())
	b.WriteByte('.')
	b.WriteString(createdAt.Format(timestampLayout))
	return b.String()
}

// DecodeName recovers the level and creation time from a backup file
// name. The last dot-separated segment must be a timestamp in the
// exact encoded layout; the segment before it carries the level.
//
// ok is false when the name does not carry a decodable timestamp, in
// which case callers fall back to the backup file's own modification
// time and an unknown level. A name whose timestamp decodes but whose
// level segment is not an integer (the "unknown" token included)
// keeps the decoded timestamp, so unknown-level backups round-trip.
func DecodeName(backupName string) (level save.Level, createdAt time.Time, ok bool) {
	parts := strings.Split(backupName, ".")
	if len(parts) < 3 {
		return save.Level{}, time.Time{}, false
	}

	ts, err := time.ParseInLocation(timestampLayout, parts[len(parts)-1], time.Local)
	if err != nil {
		return save.Level{}, time.Time{}, false
	}

	return save.ParseLevelToken(parts[len(parts)-2]), ts, true
}

// OriginalName strips the level and timestamp segments from a
// well-formed backup name. The second result is false for names that
// were not produced by EncodeName.
func OriginalName(backupName string) (string, bool) {
	if _, _, ok := DecodeName(backupName); !ok {
		return "", false
	}
	parts := strings.Split(backupName, ".")
	return strings.Join(parts[:len(parts)-2], "."), true
}
