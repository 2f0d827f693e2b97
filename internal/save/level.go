// Package save understands the content of game save files.
package save

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"math"
	"strconv"

	"github.com/savekeeperapp/savekeeper/internal/errors"
)

// UnknownToken is the name segment used for backups whose level could
// not be determined.
const UnknownToken = "unknown"

// Level is the dungeon level recovered from a save file. The zero
// value means the level is unknown, which is a normal outcome for
// malformed or foreign save content — backups are still created, just
// tagged with UnknownToken.
type Level struct {
	Value int
	Known bool
}

// KnownLevel returns a Level carrying the given value.
func KnownLevel(v int) Level {
	return Level{Value: v, Known: true}
}

// String renders the level as its decimal digits, or UnknownToken.
func (l Level) String() string {
	if !l.Known {
		return UnknownToken
	}
	return strconv.Itoa(l.Value)
}

// ParseLevelToken parses a backup name segment back into a Level.
// Anything that is not a plain decimal integer is unknown.
func ParseLevelToken(token string) Level {
	v, err := strconv.Atoi(token)
	if err != nil {
		return Level{}
	}
	return KnownLevel(v)
}

// ExtractLevel reads the top-level "dungeon_lvl" field from a save
// file's JSON content. The returned error is always a MalformedSave
// domain error; callers log it and keep going with the zero Level.
func ExtractLevel(content []byte) (Level, error) {
	var doc map[string]jsontext.Value
	if err := json.Unmarshal(content, &doc); err != nil {
		return Level{}, errors.Wrap(err, errors.CodeMalformedSave, "save content is not valid JSON")
	}

	raw, ok := doc["dungeon_lvl"]
	if !ok {
		return Level{}, errors.MalformedSave("save content has no dungeon_lvl field")
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		return Level{}, errors.Wrap(err, errors.CodeMalformedSave, "dungeon_lvl is not a number")
	}

	// JSON has no integer type; reject fractional values rather than
	// silently truncating.
	if num != math.Trunc(num) {
		return Level{}, errors.MalformedSave("dungeon_lvl is not an integer")
	}

	return KnownLevel(int(num)), nil
}
