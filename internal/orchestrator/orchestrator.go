// Package orchestrator sequences one end-to-end daily pipeline run:
// ingestion, enrichment, clustering, GPR, entity tracking, volume anomaly
// detection, narrative threading, and briefing synthesis, recording a
// per-stage health sidecar row for each step.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/cache"
	"github.com/aristath/sentinel/internal/clustering"
	"github.com/aristath/sentinel/internal/collector"
	"github.com/aristath/sentinel/internal/enricher"
	"github.com/aristath/sentinel/internal/metrics"
	"github.com/aristath/sentinel/internal/narrative"
	"github.com/aristath/sentinel/internal/store"
	"github.com/aristath/sentinel/internal/synthesis"
	"github.com/aristath/sentinel/internal/validation"
)

// Orchestrator wires every stage collaborator and runs them in sequence.
type Orchestrator struct {
	db          *store.Store
	collector   *collector.Collector
	enricher    *enricher.Enricher
	clustering  *clustering.Clustering
	narrative   *narrative.Engine
	gpr         *metrics.GPRTracker
	entities    *metrics.EntityTracker
	anomaly     *metrics.VolumeAnomalyDetector
	synthesizer *synthesis.Synthesizer
	validation  *validation.Runner
	sentiments  *cache.SentimentCache
	feedDir     string
	log         zerolog.Logger
}

// New assembles an Orchestrator from its already-constructed collaborators.
// feedDir is the directory MirrorToJSONFeed writes news_feed.json under.
func New(
	db *store.Store,
	col *collector.Collector,
	enr *enricher.Enricher,
	clu *clustering.Clustering,
	narr *narrative.Engine,
	gpr *metrics.GPRTracker,
	ent *metrics.EntityTracker,
	anomaly *metrics.VolumeAnomalyDetector,
	synth *synthesis.Synthesizer,
	val *validation.Runner,
	sentiments *cache.SentimentCache,
	feedDir string,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		db: db, collector: col, enricher: enr, clustering: clu, narrative: narr,
		gpr: gpr, entities: ent, anomaly: anomaly, synthesizer: synth,
		validation: val,
		sentiments: sentiments,
		feedDir:    feedDir,
		log:        log.With().Str("component", "orchestrator").Logger(),
	}
}

// RunResult summarizes one orchestrator run for the caller (CLI output,
// scheduler logging, health endpoint).
type RunResult struct {
	RunID           string
	Date            string
	ArticlesFetched int
	ClustersFormed  int
	ThreadsUpdated  int
	Briefing        store.DailyBriefing
	FatalErr        error
}

// fatalStages are the steps whose failure aborts the rest of the run;
// everything downstream degrades gracefully instead.
var fatalStages = map[string]bool{
	"ingestion":  true,
	"enrichment": true,
	"clustering": true,
	"synthesis":  true,
}

// Run executes one full pipeline pass for the current UTC date (YYYY-MM-DD).
// It takes no date argument.
func (o *Orchestrator) Run(ctx context.Context) RunResult {
	date := time.Now().UTC().Format("2006-01-02")
	runID := uuid.NewString()
	result := RunResult{RunID: runID, Date: date}
	log := o.log.With().Str("run_id", runID).Str("date", date).Logger()
	log.Info().Msg("pipeline run starting")

	collectRes, err := o.stage(date, "ingestion", func() (int, error) {
		res, err := o.collector.Run(ctx, store.AllCategories)
		if err != nil {
			return 0, err
		}
		return len(res.Articles), nil
	})
	result.ArticlesFetched = collectRes
	if err != nil {
		result.FatalErr = err
		return result
	}

	enrichedCount, err := o.stage(date, "enrichment", func() (int, error) {
		return o.enricher.Run(0)
	})
	if err != nil {
		result.FatalErr = err
		return result
	}
	_ = enrichedCount

	raw, enriched, err := o.loadTodayEnriched(date)
	if err != nil {
		o.recordStage(date, "enrichment", store.StageFailure, 0, 0, err)
		result.FatalErr = err
		return result
	}

	var clusters []store.Cluster
	if _, err := o.stage(date, "clustering", func() (int, error) {
		cs, err := o.clustering.RunEnriched(raw, enriched)
		clusters = cs
		return len(cs), err
	}); err != nil {
		result.FatalErr = err
		return result
	}
	result.ClustersFormed = len(clusters)

	texts := make([]string, len(raw))
	for i, r := range raw {
		texts[i] = r.Title + ". " + r.Description
	}
	var gprPoint store.GPRDatapoint
	if _, err := o.stage(date, "gpr", func() (int, error) {
		p, err := o.gpr.Run(date, texts)
		gprPoint = p
		return p.ArticleCount, err
	}); err != nil {
		log.Warn().Err(err).Msg("gpr computation failed")
	}

	if _, err := o.stage(date, "entity_tracking", func() (int, error) {
		return o.entities.Run(date, buildMentions(enriched))
	}); err != nil {
		log.Warn().Err(err).Msg("entity tracking failed")
	}

	categoryCounts := countByCategory(raw)
	if _, err := o.stage(date, "volume_anomaly", func() (int, error) {
		n := 0
		for cat, count := range categoryCounts {
			if _, err := o.anomaly.Run(date, cat, count); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	}); err != nil {
		log.Warn().Err(err).Msg("volume anomaly detection failed")
	}

	var threads []store.NarrativeThread
	if _, err := o.stage(date, "narrative", func() (int, error) {
		if len(clusters) > 0 {
			t, err := o.narrative.Run(date, clusters)
			if err != nil {
				return 0, err
			}
			threads = t
		}
		resolved, err := o.narrative.ResolveStaleThreads(date)
		if err != nil {
			return len(threads), err
		}
		return len(threads) + resolved, nil
	}); err != nil {
		log.Warn().Err(err).Msg("narrative threading failed")
	}
	result.ThreadsUpdated = len(threads)

	trend, err := o.gpr.Trend()
	if err != nil {
		trend = metrics.TrendStable
	}

	var marketSentiment float64
	if _, err := o.stage(date, "market_sentiment", func() (int, error) {
		v, err := o.validation.Run(ctx, date)
		marketSentiment = v
		return 1, err
	}); err != nil {
		log.Warn().Err(err).Msg("market-sentiment aggregate failed")
	}

	if len(clusters) > 0 {
		if _, err := o.stage(date, "synthesis", func() (int, error) {
			headlines := headlinesByCluster(raw, enriched, clusters)
			briefing, err := o.synthesizer.Run(ctx, date, clusters, headlines, gprPoint.Score, string(trend), marketSentiment)
			result.Briefing = briefing
			return 1, err
		}); err != nil {
			result.FatalErr = err
			return result
		}
	}

	if err := o.db.MirrorToJSONFeed(o.feedDir); err != nil {
		log.Warn().Err(err).Msg("json feed mirror failed")
	}
	if o.sentiments != nil {
		if err := o.sentiments.SaveSnapshot(o.feedDir); err != nil {
			log.Warn().Err(err).Msg("sentiment cache snapshot failed")
		}
	}

	log.Info().Int("clusters", result.ClustersFormed).Int("threads", result.ThreadsUpdated).Msg("pipeline run complete")
	return result
}

// stage times fn, records a health sidecar row, and classifies the outcome
// as fatal or non-fatal per fatalStages.
func (o *Orchestrator) stage(date, name string, fn func() (int, error)) (int, error) {
	start := time.Now()
	n, err := fn()
	duration := time.Since(start)

	status := store.StageSuccess
	if err != nil {
		status = store.StageFailure
	}
	o.recordStage(date, name, status, duration.Milliseconds(), n, err)

	if err != nil && fatalStages[name] {
		return n, fmt.Errorf("stage %s: %w", name, err)
	}
	return n, nil
}

func (o *Orchestrator) recordStage(date, step string, status store.StageStatus, durationMS int64, count int, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if saveErr := o.db.SaveStageHealth(store.StageHealthRecord{
		Date: date, Step: step, Status: status, DurationMS: durationMS, ItemCount: count, Error: msg,
	}); saveErr != nil {
		o.log.Warn().Err(saveErr).Str("step", step).Msg("failed to persist stage health")
	}
}

func (o *Orchestrator) loadTodayEnriched(date string) ([]store.RawArticle, []store.EnrichedArticle, error) {
	return o.db.GetEnrichedArticlesForDate(date)
}

func countByCategory(raw []store.RawArticle) map[store.Category]int {
	out := make(map[store.Category]int)
	for _, r := range raw {
		out[r.Category]++
	}
	return out
}

func buildMentions(enriched []store.EnrichedArticle) []metrics.ArticleMention {
	out := make([]metrics.ArticleMention, 0, len(enriched))
	for _, e := range enriched {
		for _, name := range e.Entities.People {
			out = append(out, metrics.ArticleMention{NormalizedSentiment: e.Sentiment.NormalizedScore, Entities: []string{name}, EntityType: store.EntityPerson})
		}
		for _, name := range e.Entities.Organizations {
			out = append(out, metrics.ArticleMention{NormalizedSentiment: e.Sentiment.NormalizedScore, Entities: []string{name}, EntityType: store.EntityOrganization})
		}
		for _, name := range e.Entities.Places {
			out = append(out, metrics.ArticleMention{NormalizedSentiment: e.Sentiment.NormalizedScore, Entities: []string{name}, EntityType: store.EntityPlace})
		}
		for _, name := range e.Entities.Topics {
			out = append(out, metrics.ArticleMention{NormalizedSentiment: e.Sentiment.NormalizedScore, Entities: []string{name}, EntityType: store.EntityTopic})
		}
	}
	return out
}

func headlinesByCluster(raw []store.RawArticle, enriched []store.EnrichedArticle, clusters []store.Cluster) map[string][]string {
	titleByID := make(map[string]string, len(raw))
	for _, r := range raw {
		titleByID[r.ID] = r.Title
	}
	out := make(map[string][]string, len(clusters))
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			if t, ok := titleByID[id]; ok {
				out[c.ID] = append(out[c.ID], t)
			}
		}
	}
	return out
}
