// Command pipeline runs the market intelligence pipeline: either a single
// one-shot run ("run"), or the scheduled cron + read-API HTTP server
// ("serve").
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/sentinel/internal/cache"
	"github.com/aristath/sentinel/internal/clustering"
	"github.com/aristath/sentinel/internal/collector"
	"github.com/aristath/sentinel/internal/config"
	"github.com/aristath/sentinel/internal/enricher"
	"github.com/aristath/sentinel/internal/metrics"
	"github.com/aristath/sentinel/internal/narrative"
	"github.com/aristath/sentinel/internal/orchestrator"
	"github.com/aristath/sentinel/internal/providers"
	"github.com/aristath/sentinel/internal/readapi"
	"github.com/aristath/sentinel/internal/reliability"
	"github.com/aristath/sentinel/internal/scheduler"
	"github.com/aristath/sentinel/internal/store"
	"github.com/aristath/sentinel/internal/synthesis"
	"github.com/aristath/sentinel/internal/validation"
	"github.com/aristath/sentinel/pkg/logger"
)

var httpAddr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Market intelligence pipeline",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pipeline pass immediately and exit",
		RunE:  runOnce,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cron scheduler and read-API HTTP server",
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&httpAddr, "addr", ":8080", "HTTP listen address for the read API")

	rootCmd.AddCommand(runCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles every constructed collaborator so both subcommands assemble
// identically.
type app struct {
	cfg          *config.Config
	db           *store.Store
	orchestrator *orchestrator.Orchestrator
	backup       *reliability.BackupService
	log          func() string
}

func buildApp() (*orchestrator.Orchestrator, *store.Store, *config.Config, *reliability.BackupService, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})

	db, err := store.Open(store.Config{Path: cfg.StorePath}, log)
	if err != nil {
		return nil, nil, nil, nil, zerolog.Logger{}, fmt.Errorf("open store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		return nil, nil, nil, nil, zerolog.Logger{}, fmt.Errorf("migrate store: %w", err)
	}

	sentimentCache := cache.NewSentimentCache()
	if err := sentimentCache.LoadSnapshot(cfg.NewsFeedDir); err != nil {
		log.Warn().Err(err).Msg("failed to load sentiment cache snapshot")
	}
	clusterCache := cache.NewClusterCache(db)
	briefingCache := cache.NewBriefingCache(db)

	ordered := []providers.Provider{
		providers.NewNewsAPIAdapter(cfg.NewsAPIKeys, log),
		providers.NewRSSAdapter(log),
		providers.NewGDELTAdapter(log),
	}
	col := collector.New(db, ordered, log)

	scorer := enricher.NewScorer(enricher.NewLazyModel(nil), sentimentCache)
	weights := enricher.NewWeightPolicy(db)
	enr := enricher.New(db, scorer, weights, log)

	embedder := clustering.NewHashedNgramEmbedder()
	clu := clustering.New(db, clusterCache, embedder, log)

	narr := narrative.New(db, log)
	gpr := metrics.NewGPRTracker(db, log)
	entities := metrics.NewEntityTracker(db, log)
	anomaly := metrics.NewVolumeAnomalyDetector(db, log)

	llm := synthesis.NewGeminiClient(cfg.GeminiAPIKeys, log)
	synth := synthesis.NewSynthesizer(db, llm, briefingCache, log)

	marketFeed := validation.NewMarketFeed(cfg.FinnhubAPIKey, log)
	val := validation.NewRunner(db, marketFeed, cfg.MarketSymbol, log)

	orch := orchestrator.New(db, col, enr, clu, narr, gpr, entities, anomaly, synth, val, sentimentCache, cfg.NewsFeedDir, log)

	backupCfg := reliability.BackupConfig{
		DataDir:   cfg.NewsFeedDir,
		AccessKey: cfg.R2AccessKey,
		SecretKey: cfg.R2SecretKey,
		Bucket:    cfg.R2Bucket,
		Endpoint:  cfg.R2Endpoint,
	}
	backup := reliability.NewBackupService(backupCfg, log)

	return orch, db, cfg, backup, log, nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	orch, db, _, backup, _, err := buildApp()
	if err != nil {
		return err
	}
	defer db.Conn().Close()

	result := orch.Run(context.Background())
	if result.FatalErr != nil {
		return fmt.Errorf("pipeline run failed: %w", result.FatalErr)
	}

	if _, err := backup.Snapshot(context.Background(), db); err != nil {
		fmt.Fprintf(os.Stderr, "backup snapshot failed: %v\n", err)
	}
	return nil
}

// orchestratorJob adapts *orchestrator.Orchestrator to scheduler.Job,
// snapshotting the store after every scheduled pass.
type orchestratorJob struct {
	orch   *orchestrator.Orchestrator
	backup *reliability.BackupService
	db     *store.Store
}

func (j orchestratorJob) Name() string { return "market_intelligence_pipeline" }

func (j orchestratorJob) Run() error {
	result := j.orch.Run(context.Background())
	if result.FatalErr != nil {
		return result.FatalErr
	}
	if _, err := j.backup.Snapshot(context.Background(), j.db); err != nil {
		return fmt.Errorf("backup snapshot: %w", err)
	}
	return nil
}

func serve(cmd *cobra.Command, args []string) error {
	orch, db, cfg, backup, log, err := buildApp()
	if err != nil {
		return err
	}
	defer db.Conn().Close()

	if !cfg.DevMode {
		sched := scheduler.New(log)
		if err := sched.AddJob(cfg.SchedulerCron, orchestratorJob{orch: orch, backup: backup, db: db}); err != nil {
			return fmt.Errorf("register scheduled job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	api := readapi.New(db)
	refresher := refreshTrigger{orch: orch}
	httpServer := readapi.NewServer(httpAddr, api, refresher, cfg.DevMode, log)

	return httpServer.Start()
}

// refreshTrigger adapts the orchestrator to readapi.Refresher. Trigger runs
// one synchronous pipeline pass and blocks until it completes, matching the
// refresh endpoint's "run now and report the outcome" contract.
type refreshTrigger struct {
	orch *orchestrator.Orchestrator
}

func (t refreshTrigger) Trigger() readapi.RefreshResult {
	result := t.orch.Run(context.Background())
	if result.FatalErr != nil {
		return readapi.RefreshResult{
			Success: false,
			Message: fmt.Sprintf("pipeline run failed: %v", result.FatalErr),
		}
	}
	return readapi.RefreshResult{
		Success:      true,
		Message:      fmt.Sprintf("fetched %d articles, formed %d clusters", result.ArticlesFetched, result.ClustersFormed),
		FetchedDates: []string{result.Date},
	}
}
