package providers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassesTitleFilter(t *testing.T) {
	cases := []struct {
		title, source string
		want          bool
	}{
		{"Fed signals a pause in rate hikes", "Reuters", true},
		{"short", "Reuters", false},
		{"", "Reuters", false},
		{"Reuters", "Reuters", false},
		{"[Removed] this headline was taken down", "Reuters", false},
		{"example.com", "Reuters", false},
		{"Reuters reports on the Federal Reserve meeting", "Reuters", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, passesTitleFilter(c.title, c.source), "title=%q source=%q", c.title, c.source)
	}
}

func TestNewsAPIAdapterAvailability(t *testing.T) {
	a := NewNewsAPIAdapter(nil, zerolog.Nop())
	assert.False(t, a.IsAvailable())

	a = NewNewsAPIAdapter([]string{"key1", "key2"}, zerolog.Nop())
	assert.True(t, a.IsAvailable())

	a.markLimited("key1")
	a.markLimited("key2")
	assert.False(t, a.IsAvailable())
	assert.True(t, a.RateLimitStatus().Limited)
}

func TestParseGDELTDate(t *testing.T) {
	got := parseGDELTDate("20260115143000")
	want := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Markets <b>rallied</b> today.</p>")
	assert.Equal(t, "Markets rallied today.", got)
}

func TestRSSAdapterFetchSinceRejectsUnknownCategory(t *testing.T) {
	a := NewRSSAdapter(zerolog.Nop())
	_, err := a.fetchSince(context.Background(), "not-a-real-category", time.Now())
	require.Error(t, err)
}

func TestFeedHost(t *testing.T) {
	assert.Equal(t, "example.com", feedHost("https://example.com/rss/feed.xml"))
}
