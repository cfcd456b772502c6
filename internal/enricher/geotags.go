package enricher

import "strings"

// geoBuckets is the keyword table for the seven geopolitical tag buckets.
// Keywords carry no weights; one match per bucket suffices.
var geoBuckets = map[string][]string{
	"sanctions":            {"sanction", "sanctions", "export ban", "embargo", "blacklist"},
	"conflict":             {"war", "invasion", "strike", "military", "missile", "airstrike"},
	"trade_war":            {"tariff", "trade war", "export control", "trade dispute"},
	"political_instability": {"coup", "unrest", "protest", "uprising", "regime"},
	"diplomatic_tension":    {"summit", "ambassador", "diplomatic", "treaty", "negotiation"},
	"regional_hotspot":      {"taiwan strait", "south china sea", "middle east", "gaza", "ukraine"},
	"security":              {"cyberattack", "espionage", "intelligence", "breach", "terrorism"},
}

// geoBucketOrder fixes iteration order so tag lists are deterministic.
var geoBucketOrder = []string{
	"sanctions", "conflict", "trade_war", "political_instability",
	"diplomatic_tension", "regional_hotspot", "security",
}

// GeoTags returns every bucket with at least one keyword match in text.
func GeoTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, bucket := range geoBucketOrder {
		for _, kw := range geoBuckets[bucket] {
			if strings.Contains(lower, kw) {
				tags = append(tags, bucket)
				break
			}
		}
	}
	return tags
}
