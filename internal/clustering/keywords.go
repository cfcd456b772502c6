package clustering

import (
	"fmt"
	"sort"
	"strings"
)

// stopWords excludes common function words from keyword extraction.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "have": true, "has": true, "are": true, "was": true, "were": true,
	"will": true, "after": true, "their": true, "its": true, "into": true, "over": true,
	"amid": true, "says": true, "said": true, "about": true, "more": true, "than": true,
	"could": true, "would": true, "should": true, "been": true, "also": true,
}

// ExtractKeywords returns up to 10 deduplicated keywords (length > 3,
// stop-listed words excluded) ranked by frequency across the cluster's
// combined text.
func ExtractKeywords(texts []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, t := range texts {
		for _, tok := range embedTokenPattern.FindAllString(strings.ToLower(t), -1) {
			if len(tok) <= 3 || stopWords[tok] {
				continue
			}
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	if len(order) > 10 {
		order = order[:10]
	}
	return order
}

// Topic derives a cluster's topic label from its keywords, falling back to
// a truncated headline when keyword extraction fails.
func Topic(keywords []string, firstHeadline string) string {
	if len(keywords) == 0 {
		if len(firstHeadline) > 47 {
			return firstHeadline[:47] + "…"
		}
		return firstHeadline
	}
	top := keywords
	if len(top) > 3 {
		top = top[:3]
	}
	titled := make([]string, len(top))
	for i, k := range top {
		titled[i] = strings.ToUpper(k[:1]) + k[1:]
	}
	return fmt.Sprintf("Trends in %s", strings.Join(titled, " "))
}
