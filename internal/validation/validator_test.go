package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/savekeeperapp/savekeeper/internal/errors"
)

type restoreRequest struct {
	Save string `json:"save" validate:"required,max=255,excludesall=/\\"`
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	t.Run("valid struct passes", func(t *testing.T) {
		assert.NoError(t, v.Validate(restoreRequest{Save: "slot1.baronysave"}))
	})

	t.Run("missing required field", func(t *testing.T) {
		err := v.Validate(restoreRequest{})
		require.Error(t, err)

		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

		details, ok := domainErr.Details.(map[string]string)
		require.True(t, ok)
		assert.Equal(t, "is required", details["save"])
	})

	t.Run("path separator rejected", func(t *testing.T) {
		err := v.Validate(restoreRequest{Save: "../slot1.baronysave"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domainerrors.ErrValidation))
	})

	t.Run("uses json tag names", func(t *testing.T) {
		err := v.Validate(restoreRequest{})
		require.Error(t, err)

		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		details := domainErr.Details.(map[string]string)
		_, hasJSONName := details["save"]
		_, hasGoName := details["Save"]
		assert.True(t, hasJSONName)
		assert.False(t, hasGoName)
	})
}
