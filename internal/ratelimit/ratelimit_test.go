package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst allows initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kl := New(tt.rps, tt.burst)

			passed := 0
			for range tt.calls {
				if kl.Allow("client") {
					passed++
				}
			}

			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedLimiter_IndependentKeys(t *testing.T) {
	kl := New(1, 1)

	// Exhaust key1
	assert.True(t, kl.Allow("127.0.0.1"))
	assert.False(t, kl.Allow("127.0.0.1"))

	// key2 is independent
	assert.True(t, kl.Allow("192.168.1.20"))
}
