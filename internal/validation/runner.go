package validation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/enricher"
	"github.com/aristath/sentinel/internal/store"
)

const alignmentWindowDays = 30
const marketFetchDays = 30

// Runner wires the market-data feed, correlator, and weight optimizer into
// the orchestrator's non-fatal market-sentiment stage. It is a thin no-op
// when no Finnhub key is configured: the feed reports unavailable and the
// run is skipped.
type Runner struct {
	db         *store.Store
	feed       *MarketFeed
	correlator *Correlator
	optimizer  *WeightOptimizer
	symbol     string
	log        zerolog.Logger
}

func NewRunner(db *store.Store, feed *MarketFeed, symbol string, log zerolog.Logger) *Runner {
	return &Runner{
		db:         db,
		feed:       feed,
		correlator: NewCorrelator(db, log),
		optimizer:  NewWeightOptimizer(db, log),
		symbol:     symbol,
		log:        log.With().Str("component", "validation_runner").Logger(),
	}
}

// Run fetches the latest market candles (if a feed is configured),
// persists them, aligns them against this pipeline's own daily sentiment
// series, backtests the correlation, rolls a weekly scorecard on ISO week
// boundaries, and grid-searches impact weights. It returns the most recent
// aligned sentiment value so synthesis can cross-reference it in the daily
// briefing; 0 when validation is disabled or has no data yet.
func (r *Runner) Run(ctx context.Context, date string) (float64, error) {
	if r.feed == nil || !r.feed.IsAvailable() {
		return 0, nil
	}

	candles, err := r.feed.FetchDaily(ctx, r.symbol, marketFetchDays)
	if err != nil {
		return 0, err
	}
	if err := r.db.SaveMarketData(candles); err != nil {
		return 0, err
	}

	history, err := r.db.GetMarketData(r.symbol, marketFetchDays)
	if err != nil {
		return 0, err
	}
	sentimentSeries, err := r.db.GetDailySentiment(alignmentWindowDays)
	if err != nil {
		return 0, err
	}

	pairs := Align(sentimentSeries, history)
	if len(pairs) == 0 {
		return 0, nil
	}
	latest := pairs[len(pairs)-1].SentimentSide

	if len(pairs) < minBacktestPairs {
		return latest, nil
	}

	if _, err := r.correlator.Backtest(pairs); err != nil {
		r.log.Warn().Err(err).Msg("backtest skipped")
	}

	if weekStart, ok := weekBoundary(date); ok {
		weekPairs := pairsSinceWeek(pairs, weekStart)
		if len(weekPairs) > 0 {
			if _, err := r.correlator.WeeklyScorecard(weekStart, weekPairs); err != nil {
				r.log.Warn().Err(err).Msg("weekly scorecard failed")
			}
		}
	}

	dayInputs, err := r.buildDayInputs(pairs)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to build optimizer inputs")
		return latest, nil
	}
	if len(dayInputs) >= minBacktestPairs {
		if _, err := r.optimizer.Run(dayInputs); err != nil {
			r.log.Warn().Err(err).Msg("weight optimizer found no candidate")
		}
	}

	return latest, nil
}

// weekBoundary reports whether date is a Monday (ISO week start) and
// returns that date, so the weekly scorecard is computed once per calendar
// week.
func weekBoundary(date string) (string, bool) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", false
	}
	return date, d.Weekday() == time.Monday
}

func pairsSinceWeek(pairs []AlignedPair, weekStart string) []AlignedPair {
	weekStartDate, err := time.Parse("2006-01-02", weekStart)
	if err != nil {
		return nil
	}
	from := weekStartDate.AddDate(0, 0, -7).Format("2006-01-02")
	var out []AlignedPair
	for _, p := range pairs {
		if p.Date >= from && p.Date <= weekStart {
			out = append(out, p)
		}
	}
	return out
}

// buildDayInputs reconstructs each aligned day's per-article impact
// ingredients from already-persisted enriched articles, using each
// article's currently-stored cluster size as the cluster-size proxy. This
// is an approximation: it does not re-run clustering per candidate weight
// set, so the optimizer's search is over scoring weights only, not
// cluster membership.
func (r *Runner) buildDayInputs(pairs []AlignedPair) ([]DayInputs, error) {
	out := make([]DayInputs, 0, len(pairs))
	for _, p := range pairs {
		raw, enriched, err := r.db.GetEnrichedArticlesForDate(p.Date)
		if err != nil {
			return nil, err
		}
		if len(enriched) == 0 {
			continue
		}
		clusterSizes, err := r.clusterSizesForDate(p.Date)
		if err != nil {
			return nil, err
		}
		rawByID := make(map[string]store.RawArticle, len(raw))
		for _, a := range raw {
			rawByID[a.ID] = a
		}

		articles := make([]enricher.ImpactInputs, 0, len(enriched))
		for _, e := range enriched {
			a, ok := rawByID[e.ID]
			if !ok {
				continue
			}
			size := 1
			if e.ClusterID != "" {
				if n, ok := clusterSizes[e.ClusterID]; ok {
					size = n
				}
			}
			articles = append(articles, enricher.ImpactInputs{
				NormalizedSentiment: e.Sentiment.NormalizedScore,
				ClusterSize:         size,
				Source:              a.Source,
				PublishedAt:         a.PublishedAt,
			})
		}
		out = append(out, DayInputs{Date: p.Date, Articles: articles, MarketChange: p.MarketChange})
	}
	return out, nil
}

func (r *Runner) clusterSizesForDate(date string) (map[string]int, error) {
	clusters, err := r.db.GetClustersByDate(date)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(clusters))
	for _, c := range clusters {
		out[c.ID] = c.ArticleCount
	}
	return out, nil
}
