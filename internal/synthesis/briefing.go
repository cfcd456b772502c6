package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/cache"
	"github.com/aristath/sentinel/internal/store"
)

// llmResponse is the JSON envelope the prompt asks Gemini to return.
// Malformed responses are passed through json-repair before unmarshaling,
// since LLM output commonly arrives with markdown fences or trailing commas.
type llmResponse struct {
	ExecutiveSummary string   `json:"executive_summary"`
	KeyRisks         []string `json:"key_risks"`
}

// Synthesizer produces the daily executive briefing, gating LLM calls
// behind the briefing cache's idempotence check.
type Synthesizer struct {
	db     *store.Store
	llm    *GeminiClient
	bcache *cache.BriefingCache
	log    zerolog.Logger
}

func NewSynthesizer(db *store.Store, llm *GeminiClient, bcache *cache.BriefingCache, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{db: db, llm: llm, bcache: bcache, log: log.With().Str("component", "synthesis").Logger()}
}

// Run produces (or reuses) the briefing for date. marketSentiment is the
// optional cross-reference to the validation stage's latest aggregate; pass
// 0 if unavailable.
func (s *Synthesizer) Run(ctx context.Context, date string, clusters []store.Cluster, headlinesByCluster map[string][]string, gprScore float64, gprTrend string, marketSentiment float64) (store.DailyBriefing, error) {
	gate, err := s.bcache.CheckBeforeLLMCall(clusters)
	if err != nil {
		return store.DailyBriefing{}, fmt.Errorf("briefing cache gate: %w", err)
	}
	if !gate.ShouldCall && gate.Cached != nil {
		s.log.Info().Str("date", date).Msg("briefing cache hit, skipping LLM call")
		return *gate.Cached, nil
	}

	topClusterIDs := make([]string, 0, maxPromptClusters)
	for i, c := range clusters {
		if i >= maxPromptClusters {
			break
		}
		topClusterIDs = append(topClusterIDs, c.ID)
	}

	summary, source := s.generateSummary(ctx, date, gprScore, gprTrend, clusters, headlinesByCluster)

	briefing := store.DailyBriefing{
		Date:             date,
		ExecutiveSummary: summary,
		CacheHash:        gate.InputHash,
		Source:           source,
		GPRIndex:         gprScore,
		MarketSentiment:  marketSentiment,
		GeneratedAt:      time.Now().UTC(),
		TopClusters:      topClusterIDs,
	}

	if err := s.db.SaveBriefing(briefing); err != nil {
		return store.DailyBriefing{}, fmt.Errorf("save briefing: %w", err)
	}
	if err := s.bcache.Put(gate.InputHash, briefing); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist briefing cache entry")
	}
	return briefing, nil
}

func (s *Synthesizer) generateSummary(ctx context.Context, date string, gprScore float64, gprTrend string, clusters []store.Cluster, headlinesByCluster map[string][]string) (string, store.BriefingSource) {
	if s.llm == nil || !s.llm.IsAvailable() {
		return localFallback(date, gprScore, gprTrend, clusters), store.BriefingSourceFallback
	}

	digests := ClusterDigests(clusters, headlinesByCluster)
	prompt := BuildPrompt(date, gprScore, gprTrend, digests)

	raw, err := s.llm.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		s.log.Warn().Err(err).Msg("llm synthesis failed, using local fallback")
		return localFallback(date, gprScore, gprTrend, clusters), store.BriefingSourceFallback
	}

	parsed, err := parseLLMResponse(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("llm response unparseable after repair, using local fallback")
		return localFallback(date, gprScore, gprTrend, clusters), store.BriefingSourceFallback
	}
	if parsed.ExecutiveSummary == "" {
		return localFallback(date, gprScore, gprTrend, clusters), store.BriefingSourceFallback
	}

	summary := parsed.ExecutiveSummary
	if len(parsed.KeyRisks) > 0 {
		summary = summary + "\n\nKey risks: " + strings.Join(parsed.KeyRisks, "; ")
	}
	return summary, store.BriefingSourceLLM
}

// parseLLMResponse unmarshals the model's JSON reply, repairing it first
// since Gemini frequently wraps JSON in markdown fences or drops a
// trailing brace.
func parseLLMResponse(raw string) (llmResponse, error) {
	var out llmResponse
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}
	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return llmResponse{}, fmt.Errorf("repair llm response: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return llmResponse{}, fmt.Errorf("decode repaired llm response: %w", err)
	}
	return out, nil
}

// gprElevatedThreshold is the 0-100 GPR score at or above which the local
// fallback classifies geopolitical risk as "Elevated" rather than "Stable".
const gprElevatedThreshold = 50.0

// localFallback builds a deterministic, template-based briefing when no
// LLM key is configured or every call failed; synthesis must degrade to a
// deterministic summary rather than fail the pipeline run.
func localFallback(date string, gprScore float64, gprTrend string, clusters []store.Cluster) string {
	riskLevel := "Stable"
	if gprScore >= gprElevatedThreshold {
		riskLevel = "Elevated"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Market intelligence digest for %s. Geopolitical risk remains %s at index level %.1f, trend %s.", date, riskLevel, gprScore, gprTrend)
	n := len(clusters)
	if n > maxPromptClusters {
		n = maxPromptClusters
	}
	if n > 0 {
		b.WriteString(" Top stories: ")
		topics := make([]string, n)
		for i := 0; i < n; i++ {
			topics[i] = clusters[i].Topic
		}
		b.WriteString(strings.Join(topics, "; "))
		b.WriteString(".")
	}
	return b.String()
}
