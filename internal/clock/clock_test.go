package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_TodayTracksAdvance(t *testing.T) {
	t.Parallel()

	c := NewFake(time.Date(2026, 7, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "2026-07-31", c.Today())

	c.Advance(2 * time.Minute)
	assert.Equal(t, "2026-08-01", c.Today())
}

func TestReal_TodayIsUTC(t *testing.T) {
	t.Parallel()

	r := New()
	assert.Equal(t, r.Now().UTC().Format("2006-01-02"), r.Today())
}
