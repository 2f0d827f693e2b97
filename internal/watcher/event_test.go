package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "changed", EventChanged.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
