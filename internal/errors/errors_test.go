package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Is(t *testing.T) {
	err := NoBackupFoundf("no backups for %s", "slot1.baronysave")

	assert.True(t, Is(err, ErrNoBackupFound))
	assert.False(t, Is(err, ErrFileLocked))
}

func TestError_IsThroughWrapping(t *testing.T) {
	inner := FileLocked("save still held")
	outer := fmt.Errorf("handling change: %w", inner)

	assert.True(t, Is(outer, ErrFileLocked))
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CodeIO, "copy failed")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "copy failed: disk full", err.Error())
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNoBackupFound, http.StatusNotFound},
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeMalformedSave, http.StatusBadRequest},
		{CodeFileLocked, http.StatusConflict},
		{CodeIO, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_WithDetails(t *testing.T) {
	base := Validation("validation failed")
	detailed := base.WithDetails(map[string]string{"save": "is required"})

	assert.Equal(t, base.Code, detailed.Code)
	assert.NotNil(t, detailed.Details)
	assert.Nil(t, base.Details)
}

func TestError_WithCause(t *testing.T) {
	cause := fmt.Errorf("read: permission denied")
	err := IO("backup read failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, ErrIO))
}
