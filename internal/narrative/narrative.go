// Package narrative links today's clusters to clusters from the last 7
// days, extending or opening multi-day narrative threads.
package narrative

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

const lookbackDays = 7
const maxThreadAgeForExtension = 14 * 24 * time.Hour
const staleThreadAge = 5 * 24 * time.Hour

const minEntityOverlap = 2
const minKeywordOverlap = 2
const maxSentimentGap = 80.0
const minMatchScore = 10.0

// Engine links today's clusters into narrative threads.
type Engine struct {
	db  *store.Store
	log zerolog.Logger
}

func New(db *store.Store, log zerolog.Logger) *Engine {
	return &Engine{db: db, log: log.With().Str("component", "narrative").Logger()}
}

// clusterContext pairs a persisted cluster with the merged, title-cased
// entity set drawn from its member articles.
type clusterContext struct {
	cluster  store.Cluster
	entities map[string]bool
}

func (e *Engine) buildContext(cluster store.Cluster) (clusterContext, error) {
	memberIDs := cluster.MemberIDs
	if len(memberIDs) == 0 {
		ids, err := e.db.GetClusterMembers(cluster.ID)
		if err != nil {
			return clusterContext{}, fmt.Errorf("load cluster member ids: %w", err)
		}
		memberIDs = ids
		cluster.MemberIDs = ids
	}

	_, enriched, err := e.db.GetEnrichedArticlesByIDs(memberIDs)
	if err != nil {
		return clusterContext{}, fmt.Errorf("load cluster members: %w", err)
	}
	entities := make(map[string]bool)
	for _, m := range enriched {
		for _, name := range allEntities(m.Entities) {
			entities[strings.ToLower(name)] = true
		}
	}
	return clusterContext{cluster: cluster, entities: entities}, nil
}

func allEntities(e store.Entities) []string {
	out := make([]string, 0, len(e.People)+len(e.Organizations)+len(e.Places)+len(e.Topics))
	out = append(out, e.People...)
	out = append(out, e.Organizations...)
	out = append(out, e.Places...)
	out = append(out, e.Topics...)
	return out
}

// Run matches each of today's clusters against the last lookbackDays days'
// clusters and returns the updated/created narrative threads.
func (e *Engine) Run(date string, todayClusters []store.Cluster) ([]store.NarrativeThread, error) {
	today, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	from := today.AddDate(0, 0, -lookbackDays).Format("2006-01-02")
	to := today.AddDate(0, 0, -1).Format("2006-01-02")

	historical, err := e.db.GetClustersInRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("load historical clusters: %w", err)
	}

	histCtx := make([]clusterContext, 0, len(historical))
	for _, c := range historical {
		ctx, err := e.buildContext(c)
		if err != nil {
			return nil, err
		}
		histCtx = append(histCtx, ctx)
	}

	var threads []store.NarrativeThread
	for _, tc := range todayClusters {
		todayCtx, err := e.buildContext(tc)
		if err != nil {
			return nil, err
		}

		best, bestScore, ok := bestMatch(todayCtx, histCtx)
		if !ok {
			continue
		}

		thread, err := e.resolveThread(date, todayCtx, best)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
		e.log.Debug().Str("cluster", tc.ID).Float64("score", bestScore).Msg("narrative match")
	}

	if len(threads) > 0 {
		if err := e.db.SaveNarrativeThreads(threads); err != nil {
			return nil, fmt.Errorf("save narrative threads: %w", err)
		}
	}
	return threads, nil
}

// bestMatch scores today's cluster against every historical candidate and
// returns the admitted match with the highest score, if any.
func bestMatch(today clusterContext, historical []clusterContext) (clusterContext, float64, bool) {
	var best clusterContext
	bestScore := -1.0
	found := false

	for _, hist := range historical {
		entityOverlap := setOverlap(today.entities, hist.entities)
		keywordOverlap := sliceOverlap(today.cluster.Keywords, hist.cluster.Keywords)
		categoryMatch := sharesCategory(today.cluster.Categories, hist.cluster.Categories)

		if entityOverlap < minEntityOverlap || keywordOverlap < minKeywordOverlap {
			continue
		}
		if !categoryMatch {
			continue
		}
		if math.Abs(today.cluster.AggregateSentiment-hist.cluster.AggregateSentiment) > maxSentimentGap {
			continue
		}

		categoryBit := 0.0
		if categoryMatch {
			categoryBit = 1
		}
		score := 3*float64(entityOverlap) + 2*float64(keywordOverlap) + 2*categoryBit
		if score < minMatchScore {
			continue
		}

		if score > bestScore {
			best, bestScore, found = hist, score, true
		}
	}
	return best, bestScore, found
}

func setOverlap(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}

func sliceOverlap(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, k := range a {
		set[strings.ToLower(k)] = true
	}
	n := 0
	for _, k := range b {
		if set[strings.ToLower(k)] {
			n++
		}
	}
	return n
}

func sharesCategory(a, b []store.Category) bool {
	set := make(map[store.Category]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if set[c] {
			return true
		}
	}
	return false
}

// resolveThread either extends the thread already touching the matched
// historical cluster, or opens a new two-node thread.
func (e *Engine) resolveThread(date string, today clusterContext, matched clusterContext) (store.NarrativeThread, error) {
	active, err := e.db.GetActiveThreadsTouchingCluster(matched.cluster.ID)
	if err != nil {
		return store.NarrativeThread{}, fmt.Errorf("load active threads: %w", err)
	}

	if len(active) > 0 {
		thread := active[0]
		firstSeen, _ := time.Parse("2006-01-02", thread.FirstSeen)
		if time.Since(firstSeen) <= maxThreadAgeForExtension {
			return extendThread(thread, date, today), nil
		}
	}

	return newThread(date, matched, today), nil
}

func extendThread(thread store.NarrativeThread, date string, today clusterContext) store.NarrativeThread {
	thread.ClusterIDs = append(thread.ClusterIDs, today.cluster.ID)
	thread.LastSeen = date
	thread.DurationDays = durationDays(thread.FirstSeen, thread.LastSeen)
	thread.SentimentArc = append(thread.SentimentArc, today.cluster.AggregateSentiment)

	merged := make(map[string]bool)
	for _, e := range thread.Entities {
		merged[e] = true
	}
	for e := range today.entities {
		merged[e] = true
	}
	thread.Entities = sortedKeys(merged)

	thread.Title = fmt.Sprintf("%s (%d days developing)", today.cluster.Topic, thread.DurationDays)
	thread.Escalation = classifyEscalation(thread.SentimentArc)
	return thread
}

func newThread(date string, matched, today clusterContext) store.NarrativeThread {
	merged := make(map[string]bool)
	for e := range matched.entities {
		merged[e] = true
	}
	for e := range today.entities {
		merged[e] = true
	}

	arc := []float64{matched.cluster.AggregateSentiment, today.cluster.AggregateSentiment}
	firstSeen := matched.cluster.Date
	lastSeen := date

	return store.NarrativeThread{
		ID:           store.SortedKeyHash([]string{matched.cluster.ID, today.cluster.ID}),
		Title:        today.cluster.Topic,
		FirstSeen:    firstSeen,
		LastSeen:     lastSeen,
		DurationDays: durationDays(firstSeen, lastSeen),
		ClusterIDs:   []string{matched.cluster.ID, today.cluster.ID},
		SentimentArc: arc,
		Entities:     sortedKeys(merged),
		Escalation:   classifyEscalation(arc),
		Status:       store.ThreadActive,
	}
}

func durationDays(first, last string) int {
	f, err1 := time.Parse("2006-01-02", first)
	l, err2 := time.Parse("2006-01-02", last)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(l.Sub(f).Hours() / 24)
}

// classifyEscalation classifies a thread's sentiment arc by its
// first-to-last diff.
func classifyEscalation(arc []float64) store.EscalationState {
	if len(arc) < 2 {
		return store.EscalationStable
	}
	diff := arc[len(arc)-1] - arc[0]
	switch {
	case diff < -10:
		return store.EscalationRising
	case diff > 10:
		return store.EscalationDeclining
	default:
		return store.EscalationStable
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ResolveStaleThreads transitions any active thread with no update in at
// least staleThreadAge to resolved. Resolution is one-way: a resolved
// thread never reactivates.
func (e *Engine) ResolveStaleThreads(asOf string) (int, error) {
	activeStatus := store.ThreadActive
	threads, err := e.db.GetNarrativeThreads(3650, &activeStatus)
	if err != nil {
		return 0, fmt.Errorf("load active threads: %w", err)
	}

	now, err := time.Parse("2006-01-02", asOf)
	if err != nil {
		return 0, fmt.Errorf("parse as-of date: %w", err)
	}

	var toResolve []store.NarrativeThread
	for _, t := range threads {
		lastSeen, err := time.Parse("2006-01-02", t.LastSeen)
		if err != nil {
			continue
		}
		if now.Sub(lastSeen) >= staleThreadAge {
			t.Status = store.ThreadResolved
			toResolve = append(toResolve, t)
		}
	}
	if len(toResolve) > 0 {
		if err := e.db.SaveNarrativeThreads(toResolve); err != nil {
			return 0, fmt.Errorf("persist resolved threads: %w", err)
		}
	}
	return len(toResolve), nil
}
