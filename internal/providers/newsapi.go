package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/sentinel/internal/store"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"
const newsAPIKeyFlushInterval = 12 * time.Hour
const newsAPIPacing = 500 * time.Millisecond

// categoryQuery is the fixed canned query/ticker table, one row per
// category.
type categoryQuery struct {
	Query  string
	Ticker string
}

var newsAPICategoryTable = map[store.Category]categoryQuery{
	store.CategoryAIComputeInfra:  {Query: "AI data center OR GPU cluster OR compute infrastructure", Ticker: "NVDA"},
	store.CategoryFintechRegtech:  {Query: "fintech regulation OR payments compliance", Ticker: "SQ"},
	store.CategoryRPAEnterpriseAI: {Query: "robotic process automation OR enterprise AI adoption", Ticker: "PATH"},
	store.CategorySemiconductor:   {Query: "semiconductor fab OR chip export controls", Ticker: "TSM"},
	store.CategoryCybersecurity:   {Query: "cybersecurity breach OR ransomware attack", Ticker: "CRWD"},
	store.CategoryGeopolitics:     {Query: "geopolitical tension OR sanctions OR trade war", Ticker: ""},
}

var bareDomainPattern = regexp.MustCompile(`^[a-z0-9-]+\.[a-z]{2,}$`)

// NewsAPIAdapter rotates across an ordered pool of API keys, skipping any
// marked rate-limited until 12h have passed since the mark.
type NewsAPIAdapter struct {
	keys    []string
	limiter *rate.Limiter
	client  *http.Client
	log     zerolog.Logger

	mu         sync.Mutex
	limitedAt  map[string]time.Time
	nextKeyIdx int
}

// NewNewsAPIAdapter builds the adapter over an ordered key pool. An empty
// pool is valid; IsAvailable reports false and the collector skips it.
func NewNewsAPIAdapter(keys []string, log zerolog.Logger) *NewsAPIAdapter {
	return &NewsAPIAdapter{
		keys:      keys,
		limiter:   rate.NewLimiter(rate.Every(newsAPIPacing), 1),
		client:    &http.Client{Timeout: 12 * time.Second},
		log:       log.With().Str("provider", "newsapi").Logger(),
		limitedAt: make(map[string]time.Time),
	}
}

func (a *NewsAPIAdapter) Name() string { return "newsapi" }

func (a *NewsAPIAdapter) IsAvailable() bool {
	return len(a.availableKeys()) > 0
}

func (a *NewsAPIAdapter) RateLimitStatus() RateLimitStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.limitedAt) >= len(a.keys) && len(a.keys) > 0 {
		return RateLimitStatus{Limited: true, Reason: "all keys rate-limited"}
	}
	return RateLimitStatus{}
}

// availableKeys flushes any key whose rate-limit mark has aged past the
// flush interval, then returns the keys not presently marked.
func (a *NewsAPIAdapter) availableKeys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for k, t := range a.limitedAt {
		if now.Sub(t) >= newsAPIKeyFlushInterval {
			delete(a.limitedAt, k)
		}
	}
	var out []string
	for _, k := range a.keys {
		if _, limited := a.limitedAt[k]; !limited {
			out = append(out, k)
		}
	}
	return out
}

func (a *NewsAPIAdapter) markLimited(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limitedAt[key] = time.Now()
}

type newsAPIArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Articles []newsAPIArticle `json:"articles"`
}

// FetchArticles round-robins across available keys until one succeeds or
// the pool is exhausted.
func (a *NewsAPIAdapter) FetchArticles(ctx context.Context, category store.Category) ([]store.RawArticle, error) {
	cq, ok := newsAPICategoryTable[category]
	if !ok {
		return nil, fmt.Errorf("newsapi: no query configured for category %s", category)
	}

	keys := a.availableKeys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("newsapi: no available keys")
	}

	a.mu.Lock()
	start := a.nextKeyIdx % len(keys)
	a.nextKeyIdx++
	a.mu.Unlock()
	keys = append(append([]string(nil), keys[start:]...), keys[:start]...)

	var lastErr error
	for _, key := range keys {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		articles, err := a.fetchWithKey(ctx, key, cq.Query)
		if err == errRateLimited {
			a.markLimited(key)
			a.log.Warn().Str("key_suffix", keySuffix(key)).Msg("key rate-limited, rotating")
			lastErr = err
			continue
		}
		if err != nil {
			lastErr = err
			continue
		}

		result := make([]store.RawArticle, 0, len(articles))
		for _, raw := range articles {
			if !passesTitleFilter(raw.Title, raw.Source.Name) {
				continue
			}
			publishedAt, parseErr := time.Parse(time.RFC3339, raw.PublishedAt)
			if parseErr != nil {
				publishedAt = time.Now().UTC()
			}
			result = append(result, store.RawArticle{
				ID:          store.ArticleID(raw.URL),
				Title:       raw.Title,
				Description: raw.Description,
				Content:     raw.Content,
				URL:         raw.URL,
				Source:      raw.Source.Name,
				PublishedAt: publishedAt,
				Category:    category,
				Ticker:      cq.Ticker,
				Provider:    a.Name(),
				ImageURL:    raw.URLToImage,
			})
		}
		return result, nil
	}
	return nil, fmt.Errorf("newsapi: exhausted key pool: %w", lastErr)
}

var errRateLimited = fmt.Errorf("rate limited")

func (a *NewsAPIAdapter) fetchWithKey(ctx context.Context, key, query string) ([]newsAPIArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, newsAPIBaseURL, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", "50")
	q.Set("apiKey", key)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", "market-intelligence-pipeline/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}

	var parsed newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("newsapi decode: %w", err)
	}
	bodyLower := strings.ToLower(parsed.Status)
	if strings.Contains(bodyLower, "rate limit") || strings.Contains(bodyLower, "too many requests") {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi status %d", resp.StatusCode)
	}
	return parsed.Articles, nil
}

// passesTitleFilter rejects junk titles: too short, or a "[Removed]"
// placeholder.
func passesTitleFilter(title, sourceName string) bool {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" || len(trimmed) < 20 {
		return false
	}
	if strings.Contains(trimmed, "[Removed]") {
		return false
	}
	lowerTitle := strings.ToLower(trimmed)
	lowerSource := strings.ToLower(strings.TrimSpace(sourceName))
	if lowerSource != "" && (lowerTitle == lowerSource || strings.Contains(lowerTitle, lowerSource)) {
		return false
	}
	if bareDomainPattern.MatchString(lowerTitle) {
		return false
	}
	return true
}

func keySuffix(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[len(key)-4:]
}
