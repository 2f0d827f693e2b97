package save

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savekeeperapp/savekeeper/internal/errors"
)

func TestExtractLevel(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Level
		wantErr bool
	}{
		{
			name:    "well-formed save",
			content: `{"dungeon_lvl": 5, "player": "herx"}`,
			want:    KnownLevel(5),
		},
		{
			name:    "level zero",
			content: `{"dungeon_lvl": 0}`,
			want:    KnownLevel(0),
		},
		{
			name:    "level after nested objects",
			content: `{"inventory": {"gold": 10, "items": ["sword"]}, "dungeon_lvl": 9}`,
			want:    KnownLevel(9),
		},
		{
			name:    "negative level",
			content: `{"dungeon_lvl": -2}`,
			want:    KnownLevel(-2),
		},
		{
			name:    "not JSON at all",
			content: "BARONYSAVE\x00\x01binary",
			wantErr: true,
		},
		{
			name:    "JSON but not an object",
			content: `[1, 2, 3]`,
			wantErr: true,
		},
		{
			name:    "missing dungeon_lvl",
			content: `{"player": "herx"}`,
			wantErr: true,
		},
		{
			name:    "dungeon_lvl is a string",
			content: `{"dungeon_lvl": "5"}`,
			wantErr: true,
		},
		{
			name:    "dungeon_lvl is fractional",
			content: `{"dungeon_lvl": 5.5}`,
			wantErr: true,
		},
		{
			name:    "empty content",
			content: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractLevel([]byte(tt.content))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrMalformedSave), "want a MALFORMED_SAVE error, got %v", err)
				assert.False(t, got.Known)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "5", KnownLevel(5).String())
	assert.Equal(t, "0", KnownLevel(0).String())
	assert.Equal(t, "unknown", Level{}.String())
}

func TestParseLevelToken(t *testing.T) {
	assert.Equal(t, KnownLevel(12), ParseLevelToken("12"))
	assert.Equal(t, Level{}, ParseLevelToken("unknown"))
	assert.Equal(t, Level{}, ParseLevelToken(""))
	assert.Equal(t, Level{}, ParseLevelToken("5a"))
	// Round trip through String.
	assert.Equal(t, KnownLevel(7), ParseLevelToken(KnownLevel(7).String()))
}
