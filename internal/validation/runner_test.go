package validation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerNoOpWithoutFeedKey(t *testing.T) {
	db := newTestStore(t)
	feed := NewMarketFeed("", zerolog.Nop())
	r := NewRunner(db, feed, "SPY", zerolog.Nop())

	v, err := r.Run(context.Background(), "2026-07-27")
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestWeekBoundaryOnlyMonday(t *testing.T) {
	_, ok := weekBoundary("2026-07-27") // a Monday
	assert.True(t, ok)
	_, ok = weekBoundary("2026-07-29") // a Wednesday
	assert.False(t, ok)
}
