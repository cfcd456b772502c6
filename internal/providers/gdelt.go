package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

const gdeltBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"
const gdeltFetchTimeout = 15 * time.Second

// gdeltCategoryQuery is the per-category GDELT query string.
var gdeltCategoryQuery = map[store.Category]string{
	store.CategoryAIComputeInfra:  "artificial intelligence data center",
	store.CategoryFintechRegtech:  "fintech regulation",
	store.CategoryRPAEnterpriseAI: "robotic process automation enterprise",
	store.CategorySemiconductor:   "semiconductor chip export",
	store.CategoryCybersecurity:   "cybersecurity breach",
	store.CategoryGeopolitics:     "geopolitical sanctions conflict",
}

type gdeltArticle struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Domain   string `json:"domain"`
	SeenDate string `json:"seendate"`
}

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

// GDELTAdapter queries the single public GDELT document API. No auth, no
// rate limit, never marked unavailable.
type GDELTAdapter struct {
	client *http.Client
	log    zerolog.Logger
}

func NewGDELTAdapter(log zerolog.Logger) *GDELTAdapter {
	return &GDELTAdapter{
		client: &http.Client{Timeout: gdeltFetchTimeout},
		log:    log.With().Str("provider", "gdelt").Logger(),
	}
}

func (a *GDELTAdapter) Name() string             { return "gdelt" }
func (a *GDELTAdapter) IsAvailable() bool        { return true }
func (a *GDELTAdapter) RateLimitStatus() RateLimitStatus { return RateLimitStatus{} }

func (a *GDELTAdapter) FetchArticles(ctx context.Context, category store.Category) ([]store.RawArticle, error) {
	query, ok := gdeltCategoryQuery[category]
	if !ok {
		return nil, fmt.Errorf("gdelt: no query configured for category %s", category)
	}

	reqURL := gdeltBaseURL + "?" + url.Values{
		"query":    {query},
		"mode":     {"artlist"},
		"format":   {"json"},
		"maxrecords": {"40"},
		"sort":     {"datedesc"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "market-intelligence-pipeline/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gdelt fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gdelt status %d", resp.StatusCode)
	}

	var parsed gdeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("gdelt decode: %w", err)
	}

	out := make([]store.RawArticle, 0, len(parsed.Articles))
	for _, art := range parsed.Articles {
		if art.URL == "" || art.Title == "" {
			continue
		}
		out = append(out, store.RawArticle{
			ID:          store.ArticleID(art.URL),
			Title:       art.Title,
			Description: a.previewText(ctx, art.URL),
			URL:         art.URL,
			Source:      art.Domain,
			PublishedAt: parseGDELTDate(art.SeenDate),
			Category:    category,
			Provider:    a.Name(),
		})
	}
	return out, nil
}

// parseGDELTDate parses the GDELT seendate format YYYYMMDDHHMMSS into a
// time.Time.
func parseGDELTDate(s string) time.Time {
	t, err := time.Parse("20060102150405", s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

// previewText best-effort fetches the DocURL and extracts readable text
// via goquery. Failure is not fatal: the article is still usable with an
// empty description.
func (a *GDELTAdapter) previewText(ctx context.Context, docURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "market-intelligence-pipeline/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(doc.Find("p").First().Text())
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}
