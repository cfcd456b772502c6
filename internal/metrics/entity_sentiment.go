package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

// entityStopList excludes generic capitalized tokens that slip through
// upstream NER but carry no tracking value.
var entityStopList = map[string]bool{
	"The": true, "Today": true, "This Week": true, "Report": true, "News": true,
}

var contractionPunctPattern = regexp.MustCompile(`['’,.!?;:"()]+`)

// normalizeEntity title-cases and strips contraction/punctuation noise from
// an entity name.
func normalizeEntity(raw string) string {
	cleaned := contractionPunctPattern.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	words := strings.Fields(cleaned)
	for i, w := range words {
		if len(w) == 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// ArticleMention is the minimal per-article input to the entity tracker.
type ArticleMention struct {
	NormalizedSentiment int
	Entities            []string
	EntityType          store.EntityType
}

// EntityTracker accumulates per-(entity,date) sentiment and persists the
// average for entities with at least 2 mentions that day.
type EntityTracker struct {
	db  *store.Store
	log zerolog.Logger
}

func NewEntityTracker(db *store.Store, log zerolog.Logger) *EntityTracker {
	return &EntityTracker{db: db, log: log.With().Str("component", "entity_tracker").Logger()}
}

type entityAccumulator struct {
	entityType store.EntityType
	sum        int
	count      int
}

// Run tallies entity mentions for the day and persists the qualifying
// averages: only entities with at least 2 mentions that day.
func (t *EntityTracker) Run(date string, mentions []ArticleMention) (int, error) {
	acc := make(map[string]*entityAccumulator)

	for _, m := range mentions {
		for _, raw := range m.Entities {
			name := normalizeEntity(raw)
			if name == "" || entityStopList[name] {
				continue
			}
			a, ok := acc[name]
			if !ok {
				a = &entityAccumulator{entityType: m.EntityType}
				acc[name] = a
			}
			a.sum += m.NormalizedSentiment
			a.count++
		}
	}

	var batch []store.EntitySentimentPoint
	for name, a := range acc {
		if a.count < 2 {
			continue
		}
		batch = append(batch, store.EntitySentimentPoint{
			Entity:       name,
			EntityType:   a.entityType,
			Date:         date,
			AvgSentiment: float64(a.sum) / float64(a.count),
			ArticleCount: a.count,
		})
	}

	if len(batch) > 0 {
		if err := t.db.SaveEntitySentiment(batch); err != nil {
			return 0, fmt.Errorf("save entity sentiment: %w", err)
		}
	}
	t.log.Info().Int("entities", len(batch)).Str("date", date).Msg("entity sentiment tracked")
	return len(batch), nil
}
