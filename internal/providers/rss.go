package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

const rssFetchTimeout = 10 * time.Second
const rssMaxItemsPerFeed = 10

// rssFeedTable is the per-category static feed list. This adapter decodes
// the feed XML with the standard library directly.
var rssFeedTable = map[store.Category][]string{
	store.CategoryAIComputeInfra:  {"https://www.datacenterdynamics.com/en/rss/", "https://blogs.nvidia.com/feed/"},
	store.CategoryFintechRegtech:  {"https://www.finextra.com/rss/headlines.aspx"},
	store.CategoryRPAEnterpriseAI: {"https://www.uipath.com/blog/rss.xml"},
	store.CategorySemiconductor:   {"https://www.semiconductor-digest.com/feed/"},
	store.CategoryCybersecurity:   {"https://www.bleepingcomputer.com/feed/"},
	store.CategoryGeopolitics:     {"https://www.cfr.org/rss.xml"},
}

type rssChannel struct {
	XMLName xml.Name  `xml:"channel"`
	Items   []rssItem `xml:"item"`
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// RSSAdapter fetches a fixed per-category feed list. It is never rate-limited.
type RSSAdapter struct {
	client *http.Client
	log    zerolog.Logger
}

func NewRSSAdapter(log zerolog.Logger) *RSSAdapter {
	return &RSSAdapter{
		client: &http.Client{Timeout: rssFetchTimeout},
		log:    log.With().Str("provider", "rss").Logger(),
	}
}

func (a *RSSAdapter) Name() string             { return "rss" }
func (a *RSSAdapter) IsAvailable() bool        { return true }
func (a *RSSAdapter) RateLimitStatus() RateLimitStatus { return RateLimitStatus{} }

// FetchArticles fetches every feed configured for category, keeping only
// the 10 most recent items per feed and filtering anything published more
// than seven days ago.
func (a *RSSAdapter) FetchArticles(ctx context.Context, category store.Category) ([]store.RawArticle, error) {
	return a.fetchSince(ctx, category, time.Now().Add(-7*24*time.Hour))
}

// fetchSince is the testable core of FetchArticles, taking the from_date
// cutoff explicitly instead of always deriving it from time.Now.
func (a *RSSAdapter) fetchSince(ctx context.Context, category store.Category, fromDate time.Time) ([]store.RawArticle, error) {
	feeds, ok := rssFeedTable[category]
	if !ok {
		return nil, fmt.Errorf("rss: no feeds configured for category %s", category)
	}

	var out []store.RawArticle
	for _, feedURL := range feeds {
		items, err := a.fetchFeed(ctx, feedURL)
		if err != nil {
			a.log.Warn().Err(err).Str("feed", feedURL).Msg("feed fetch failed, skipping")
			continue
		}

		sort.Slice(items, func(i, j int) bool {
			return parseRSSDate(items[i].PubDate).After(parseRSSDate(items[j].PubDate))
		})
		if len(items) > rssMaxItemsPerFeed {
			items = items[:rssMaxItemsPerFeed]
		}

		for _, item := range items {
			published := parseRSSDate(item.PubDate)
			if published.Before(fromDate) {
				continue
			}
			out = append(out, store.RawArticle{
				ID:          store.ArticleID(item.Link),
				Title:       strings.TrimSpace(item.Title),
				Description: stripHTML(item.Description),
				URL:         item.Link,
				Source:      feedHost(feedURL),
				PublishedAt: published,
				Category:    category,
				Provider:    a.Name(),
			})
		}
	}
	return out, nil
}

func (a *RSSAdapter) fetchFeed(ctx context.Context, feedURL string) ([]rssItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "market-intelligence-pipeline/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rss fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss status %d", resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("rss decode: %w", err)
	}
	return feed.Channel.Items, nil
}

var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
}

func parseRSSDate(s string) time.Time {
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func feedHost(feedURL string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(feedURL, "https://"), "http://")
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

// stripHTML removes markup from an RSS <description> field using goquery,
// since several feeds embed full HTML fragments instead of plain text.
func stripHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.TrimSpace(doc.Text())
}
