package enricher

import (
	"regexp"
	"strings"

	"github.com/aristath/sentinel/internal/store"
)

// capitalizedRun matches a run of one or more Title-Case words, the raw
// material for the noun-phrase heuristic below.
var capitalizedRun = regexp.MustCompile(`\b([A-Z][a-zA-Z.&-]*(?:\s+[A-Z][a-zA-Z.&-]*)*)\b`)

// orgSuffixes identifies capitalized phrases that read as organizations.
var orgSuffixes = []string{"Inc", "Inc.", "Corp", "Corp.", "Ltd", "Ltd.", "Group", "Bank", "Holdings", "LLC", "PLC", "Co.", "Technologies", "Systems"}

// knownPlaces is a small gazetteer covering the spec's own worked examples
// and common macro geographies; not exhaustive by design.
var knownPlaces = map[string]bool{
	"Taiwan": true, "China": true, "United States": true, "Europe": true, "Russia": true,
	"Ukraine": true, "Japan": true, "South Korea": true, "India": true, "Germany": true,
	"Gaza": true, "Israel": true, "Middle East": true, "Washington": true, "Beijing": true,
	"Brussels": true, "London": true, "New York": true, "California": true, "Silicon Valley": true,
}

// nerStopTopics excludes common capitalized words that are neither people
// nor organizations nor places but would otherwise leak into topics.
var nerStopTopics = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "That": true, "These": true, "Those": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true, "Friday": true,
	"Saturday": true, "Sunday": true, "January": true, "February": true, "March": true,
	"April": true, "May": true, "June": true, "July": true, "August": true, "September": true,
	"October": true, "November": true, "December": true,
}

var digitOnly = regexp.MustCompile(`^\d+$`)

// ExtractEntities applies a lightweight noun-phrase heuristic to text,
// yielding people/organizations/places/topics.
// Entity strings are deduplicated case-insensitively; topics exclude a stop
// list, digit-only tokens, and anything already claimed by the other
// categories.
func ExtractEntities(text string) store.Entities {
	phrases := capitalizedRun.FindAllString(text, -1)

	var people, orgs, places, topics []string
	seen := make(map[string]string) // lower -> category, for cross-category exclusion

	classify := func(phrase string) string {
		if knownPlaces[phrase] {
			return "place"
		}
		for _, suffix := range orgSuffixes {
			if strings.HasSuffix(phrase, suffix) {
				return "org"
			}
		}
		words := strings.Fields(phrase)
		if len(words) == 2 && !nerStopTopics[words[0]] {
			return "person"
		}
		return "topic"
	}

	for _, phrase := range phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" || nerStopTopics[phrase] || digitOnly.MatchString(phrase) {
			continue
		}
		lower := strings.ToLower(phrase)
		if _, dup := seen[lower]; dup {
			continue
		}

		switch classify(phrase) {
		case "place":
			places = append(places, phrase)
			seen[lower] = "place"
		case "org":
			orgs = append(orgs, phrase)
			seen[lower] = "org"
		case "person":
			people = append(people, phrase)
			seen[lower] = "person"
		default:
			topics = append(topics, phrase)
			seen[lower] = "topic"
		}
	}

	return store.Entities{People: people, Organizations: orgs, Places: places, Topics: topics}
}
