package protocol

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerKey(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rl := NewRateLimiter(logger, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("calculator"), "call %d should be allowed", i)
	}
	assert.False(t, rl.Allow("calculator"))

	// Other keys have their own bucket
	assert.True(t, rl.Allow("echo_tool"))

	stats := rl.GetStats()
	assert.Equal(t, 2, stats["tracked_keys"])
	assert.Equal(t, int64(1), stats["total_violations"])
	assert.NotEmpty(t, hook.AllEntries())
}

func TestRateLimiterSetLimit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	rl := NewRateLimiter(logger, 1)

	assert.True(t, rl.Allow("tool"))
	assert.False(t, rl.Allow("tool"))

	rl.SetLimit(5)
	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("tool"))
	}
	assert.False(t, rl.Allow("tool"))
}
