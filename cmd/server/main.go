package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/services"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
	"github.com/gridironlabs/gridiron-predict/internal/validation"
	"github.com/gridironlabs/gridiron-predict/pkg/config"
	"github.com/gridironlabs/gridiron-predict/pkg/database"
	"github.com/gridironlabs/gridiron-predict/pkg/logger"
)

func main() {
	season := flag.Int("season", time.Now().Year(), "season to process")
	week := flag.Int("week", 0, "predict a single week (0 skips weekly predictions)")
	sampleSize := flag.Int("sample", 20, "number of completed games to analyze")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())

	// Connect to database
	db, err := database.NewConnection(database.Config{
		URL:             cfg.DatabaseURL,
		Development:     cfg.IsDevelopment(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize services
	store := storage.NewPostgresStore(db)
	cacheService := services.NewCacheService(redisClient, log)
	baselines := league.Defaults()

	vlog := validation.NewValidationLogger(log, cfg.ValidationHistoryCap)
	tracer := validation.NewTracer(vlog)

	aggregator := services.NewStatsAggregator(log)
	calculator := services.NewEfficiencyCalculator(
		store, store, cacheService, aggregator, baselines,
		time.Duration(cfg.ProfileCacheTTL)*time.Second, log)

	weightManager := services.NewWeightManager(store, cacheService, baselines, services.WeightManagerConfig{
		SignificanceThreshold: cfg.SignificanceThreshold,
		RSquaredThreshold:     cfg.RSquaredThreshold,
		ScaleFactor:           cfg.WeightScaleFactor,
		SumTolerance:          cfg.WeightSumTolerance,
	}, log)

	regressionService := services.NewRegressionService(store, store, calculator, services.RegressionConfig{
		SignificanceThreshold: cfg.SignificanceThreshold,
		RSquaredThreshold:     cfg.RSquaredThreshold,
		ScaleFactor:           cfg.WeightScaleFactor,
		MinSampleSize:         cfg.MinRegressionSample,
	}, log)

	boundary := services.NewBoundaryValidator(services.BoundaryConfig{
		FloorPctHigh:     cfg.BoundaryFloorPctHigh,
		FloorPctMedium:   cfg.BoundaryFloorPctMedium,
		FloorPctLow:      cfg.BoundaryFloorPctLow,
		CeilingMulHigh:   cfg.BoundaryCeilingMulHigh,
		CeilingMulMedium: cfg.BoundaryCeilingMulMedium,
		CeilingMulLow:    cfg.BoundaryCeilingMulLow,
		LookbackSeasons:  cfg.HistoricalLookbackSeasons,
	}, baselines, log)

	engine := services.NewPredictionEngine(
		store, store, store, calculator, aggregator, weightManager, boundary,
		cacheService, tracer, baselines,
		time.Duration(cfg.PredictionCacheTTL)*time.Second, log)

	processor := services.NewSeasonProcessor(
		store, calculator, cfg.CircuitBreakerThreshold, cfg.BatchSize, cfg.BatchDelay, log)

	verifier := validation.NewWeightVerifier(
		weightManager, store, store, vlog, baselines, cfg.WeightSumTolerance, log)
	analyzer := validation.NewSampleGameAnalyzer(store, engine, vlog, log)
	reporter := validation.NewAnalysisReporter(vlog, log)

	if err := runPipeline(ctx, log, pipelineDeps{
		season:      *season,
		week:        *week,
		sampleSize:  *sampleSize,
		processor:   processor,
		regressions: regressionService,
		weights:     weightManager,
		engine:      engine,
		verifier:    verifier,
		analyzer:    analyzer,
		reporter:    reporter,
	}); err != nil {
		log.WithError(err).Fatal("Pipeline run failed")
	}
}

type pipelineDeps struct {
	season     int
	week       int
	sampleSize int

	processor   *services.SeasonProcessor
	regressions *services.RegressionService
	weights     *services.WeightManager
	engine      *services.PredictionEngine
	verifier    *validation.WeightVerifier
	analyzer    *validation.SampleGameAnalyzer
	reporter    *validation.AnalysisReporter
}

// runPipeline executes one full season pass: profile recomputation,
// regression, weight derivation, verification, predictions, sample analysis
// and the intuitive report.
func runPipeline(ctx context.Context, log *logrus.Logger, deps pipelineDeps) error {
	logger.WithSeason(log, deps.season).Info("Starting pipeline run")

	summary, err := deps.processor.ProcessSeason(ctx, deps.season)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"processed": summary.TeamsProcessed,
		"failed":    summary.TeamsFailed,
	}).Info("Efficiency profiles recomputed")

	analysis, err := deps.regressions.RunRegressionAnalysis(ctx, deps.season)
	if err != nil {
		log.WithError(err).Warn("Regression analysis unavailable, continuing with current weights")
	} else {
		reason := "automated weekly recalculation from latest regression analysis"
		if _, err := deps.weights.DeriveWeightsFromRegression(ctx, analysis, reason); err != nil {
			log.WithError(err).Warn("Weight derivation failed, continuing with current weights")
		}
	}

	health := deps.verifier.ValidateWeights(ctx, deps.season)
	if health.HasCritical() {
		log.WithField("score", health.Score).Error("Weight verification found critical errors; predictions may be unreliable")
	}

	if deps.week > 0 {
		predictions, err := deps.engine.GetWeeklyPredictions(ctx, deps.season, deps.week)
		if err != nil {
			return err
		}
		for _, p := range predictions {
			log.WithFields(logrus.Fields{
				"home_team_id": p.HomeTeamID,
				"away_team_id": p.AwayTeamID,
				"home_score":   p.HomeAdjustedScore,
				"away_score":   p.AwayAdjustedScore,
				"win_prob":     p.HomeWinProbability,
				"confidence":   p.Confidence,
			}).Info("Weekly prediction")
		}
	}

	analyses, err := deps.analyzer.AnalyzeSampleGames(ctx, deps.season, deps.sampleSize)
	if err != nil {
		log.WithError(err).Warn("Sample game analysis unavailable, skipping report")
		return nil
	}

	report := deps.reporter.GenerateIntuitiveReport(deps.season, analyses, health)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return err
	}

	log.Info("Pipeline run finished")
	return nil
}
