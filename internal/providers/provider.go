// Package providers implements the heterogeneous news-source adapters that
// feed the collector: NewsAPI, RSS, and GDELT. Each adapter implements the
// uniform Provider interface so the collector can iterate them without any
// provider-specific branching.
package providers

import (
	"context"

	"github.com/aristath/sentinel/internal/store"
)

// RateLimitStatus reports whether a provider is presently able to serve
// requests and, if not, why.
type RateLimitStatus struct {
	Limited bool
	Reason  string
}

// Provider is the uniform fetch contract every news source implements.
type Provider interface {
	Name() string
	IsAvailable() bool
	FetchArticles(ctx context.Context, category store.Category) ([]store.RawArticle, error)
	RateLimitStatus() RateLimitStatus
}
