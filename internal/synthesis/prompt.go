package synthesis

import (
	"fmt"
	"strings"

	"github.com/aristath/sentinel/internal/store"
)

const systemPrompt = `You are a market intelligence analyst producing a concise executive briefing ` +
	`for a daily geopolitical and technology risk digest. Respond with a single JSON object and nothing else, ` +
	`matching this shape: {"executive_summary": string, "key_risks": [string, ...]}. ` +
	`The executive_summary should be 250-350 words of analytical prose with no headers and no bullets, ` +
	`written for a portfolio manager, referencing the most ` +
	`consequential stories of the day without restating raw statistics.`

const maxPromptClusters = 5
const maxHeadlinesPerCluster = 3

// clusterDigest is the reduced per-cluster view the prompt includes.
type clusterDigest struct {
	Topic     string
	Keywords  []string
	Sentiment float64
	Impact    float64
	Headlines []string
}

// BuildPrompt renders the day's GPR index, trend, and top clusters into the
// user-turn prompt text.
func BuildPrompt(date string, gprScore float64, gprTrend string, clusters []clusterDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Geopolitical Risk Index: %.1f (trend: %s)\n\n", gprScore, gprTrend)
	fmt.Fprintf(&b, "Top stories today:\n")

	n := len(clusters)
	if n > maxPromptClusters {
		n = maxPromptClusters
	}
	for i := 0; i < n; i++ {
		c := clusters[i]
		fmt.Fprintf(&b, "%d. %s (sentiment %.0f, impact %.0f, keywords: %s)\n", i+1, c.Topic, c.Sentiment, c.Impact, strings.Join(c.Keywords, ", "))
		for j, h := range c.Headlines {
			if j >= maxHeadlinesPerCluster {
				break
			}
			fmt.Fprintf(&b, "   - %s\n", h)
		}
	}
	return b.String()
}

// ClusterDigests reduces clusters plus their member headlines into the
// prompt's cluster view, one digest per cluster in input order; BuildPrompt
// keeps only the first maxPromptClusters (clusters are already impact-sorted
// by clustering.Run).
func ClusterDigests(clusters []store.Cluster, headlinesByCluster map[string][]string) []clusterDigest {
	digests := make([]clusterDigest, 0, len(clusters))
	for _, c := range clusters {
		digests = append(digests, clusterDigest{
			Topic:     c.Topic,
			Keywords:  c.Keywords,
			Sentiment: c.AggregateSentiment,
			Impact:    c.AggregateImpact,
			Headlines: headlinesByCluster[c.ID],
		})
	}
	return digests
}
