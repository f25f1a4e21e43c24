package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
	"github.com/gridironlabs/gridiron-predict/pkg/logger"
)

const (
	// probPointsPerScorePoint converts score differential to win-probability
	// points before damping.
	probPointsPerScorePoint = 3.5

	// adequateCombinedGames is the combined sample at which the sample-size
	// confidence penalty vanishes.
	adequateCombinedGames = 16
)

// TraceRecorder is the calculation-tracing capability the engine needs.
// The validation framework provides the implementation.
type TraceRecorder interface {
	Open(component models.ValidationComponent) *models.CalculationTrace
	Step(trace *models.CalculationTrace, name, computation string, inputs map[string]interface{}, output interface{}, passed bool)
	Close(trace *models.CalculationTrace)
}

// PredictionEngine combines two teams' efficiency profiles with the current
// weights into a point-differential prediction. The formula is additive, not
// multiplicative: weighted efficiency deltas on top of a fixed national
// baseline.
type PredictionEngine struct {
	games       storage.GameStore
	predictions storage.PredictionStore
	regressions storage.RegressionStore
	calculator  *EfficiencyCalculator
	aggregator  *StatsAggregator
	weights     *WeightManager
	boundary    *BoundaryValidator
	cache       *CacheService
	tracer      TraceRecorder
	baselines   league.Baselines
	cacheTTL    time.Duration
	logger      *logrus.Logger
}

func NewPredictionEngine(
	games storage.GameStore,
	predictions storage.PredictionStore,
	regressions storage.RegressionStore,
	calculator *EfficiencyCalculator,
	aggregator *StatsAggregator,
	weights *WeightManager,
	boundary *BoundaryValidator,
	cache *CacheService,
	tracer TraceRecorder,
	baselines league.Baselines,
	cacheTTL time.Duration,
	logger *logrus.Logger,
) *PredictionEngine {
	return &PredictionEngine{
		games:       games,
		predictions: predictions,
		regressions: regressions,
		calculator:  calculator,
		aggregator:  aggregator,
		weights:     weights,
		boundary:    boundary,
		cache:       cache,
		tracer:      tracer,
		baselines:   baselines,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// GetGamePrediction runs the full pipeline for one matchup.
func (p *PredictionEngine) GetGamePrediction(ctx context.Context, homeTeamID, awayTeamID uint, season int, gameID *uint, isNeutralSite bool) (*models.GamePrediction, error) {
	cacheKey := PredictionCacheKey(season, homeTeamID, awayTeamID, isNeutralSite)
	if p.cache != nil && gameID == nil {
		var cached models.GamePrediction
		if err := p.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	data, err := LoadSeasonData(ctx, p.games, season)
	if err != nil {
		return nil, err
	}

	trace := p.openTrace()

	homeProfile := p.calculator.ComputeProfile(data, homeTeamID)
	awayProfile := p.calculator.ComputeProfile(data, awayTeamID)
	p.step(trace, "load_profiles", "compute opponent-relative efficiency profiles for both sides",
		map[string]interface{}{"home_team_id": homeTeamID, "away_team_id": awayTeamID, "season": season},
		map[string]interface{}{"home_games": homeProfile.GamesPlayed, "away_games": awayProfile.GamesPlayed},
		homeProfile.GamesPlayed > 0 && awayProfile.GamesPlayed > 0)

	if homeProfile.GamesPlayed == 0 || awayProfile.GamesPlayed == 0 {
		p.closeTrace(trace)
		return nil, fmt.Errorf("%w: home=%d games, away=%d games", ErrInsufficientData,
			homeProfile.GamesPlayed, awayProfile.GamesPlayed)
	}

	homeAgg := p.aggregator.BuildAggregate(data, homeTeamID)
	awayAgg := p.aggregator.BuildAggregate(data, awayTeamID)

	weights := p.weights.GetCurrentWeights(ctx, season)

	homeBreakdown := p.scoreSide(homeProfile, awayProfile, weights.Weights, !isNeutralSite)
	awayBreakdown := p.scoreSide(awayProfile, homeProfile, weights.Weights, false)
	p.step(trace, "compute_raw_scores", "baseline plus weighted category deltas per side",
		map[string]interface{}{"baseline": p.baselines.PointsPerGame, "neutral_site": isNeutralSite},
		map[string]interface{}{"home_raw": homeBreakdown.RawScore, "away_raw": awayBreakdown.RawScore},
		!math.IsNaN(homeBreakdown.RawScore) && !math.IsNaN(awayBreakdown.RawScore))

	boundaryResult := p.boundary.ValidateScores(
		sideInput{RawScore: homeBreakdown.RawScore, Aggregate: homeAgg, Profile: homeProfile},
		sideInput{RawScore: awayBreakdown.RawScore, Aggregate: awayAgg, Profile: awayProfile},
	)
	p.attachStatChecks(ctx, &boundaryResult, season, homeAgg, awayAgg, homeProfile, awayProfile)
	p.step(trace, "boundary_validation", "constrain predicted scores to historically plausible ranges",
		map[string]interface{}{"home_raw": boundaryResult.HomeRawScore, "away_raw": boundaryResult.AwayRawScore},
		map[string]interface{}{
			"home_adjusted": boundaryResult.HomeAdjustedScore,
			"away_adjusted": boundaryResult.AwayAdjustedScore,
			"is_adjusted":   boundaryResult.IsAdjusted,
		},
		boundaryResult.TotalConfidenceReduction <= maxConfidenceReduction)

	statistical := p.statisticalConfidence(ctx, season, homeProfile, awayProfile)

	combinedLevel := homeProfile.ConfidenceLevel.Weaker(awayProfile.ConfidenceLevel)
	diff := boundaryResult.HomeAdjustedScore - boundaryResult.AwayAdjustedScore
	winProb := winProbability(diff, combinedLevel, statistical.ModelRSquared)
	p.step(trace, "win_probability", "linear-logistic mapping of score differential, damped by confidence and model quality",
		map[string]interface{}{"differential": diff, "confidence_level": combinedLevel, "model_r_squared": statistical.ModelRSquared},
		winProb, winProb >= 5 && winProb <= 95)

	avgConvergence := (homeProfile.ConvergenceScore + awayProfile.ConvergenceScore) / 2
	confidence := overallConfidence(combinedLevel, statistical, boundaryResult.TotalConfidenceReduction, avgConvergence)
	p.step(trace, "confidence", "compose 0-100 confidence from level base, model fit, boundary penalty, sample size and convergence",
		map[string]interface{}{"base_level": combinedLevel, "boundary_reduction": boundaryResult.TotalConfidenceReduction},
		confidence, confidence >= 20 && confidence <= 95)

	prediction := &models.GamePrediction{
		PredictionID:       uuid.New().String(),
		Season:             season,
		GameID:             gameID,
		HomeTeamID:         homeTeamID,
		AwayTeamID:         awayTeamID,
		IsNeutral:          isNeutralSite,
		HomeInitialScore:   homeBreakdown.RawScore,
		AwayInitialScore:   awayBreakdown.RawScore,
		HomeAdjustedScore:  boundaryResult.HomeAdjustedScore,
		AwayAdjustedScore:  boundaryResult.AwayAdjustedScore,
		HomeWinProbability: winProb,
		Spread:             diff,
		Total:              boundaryResult.HomeAdjustedScore + boundaryResult.AwayAdjustedScore,
		Confidence:         confidence,
		Breakdown:          models.TeamBreakdownPair{Home: homeBreakdown, Away: awayBreakdown},
		Statistical:        statistical,
		BoundaryValidation: boundaryResult,
		CreatedAt:          time.Now().UTC(),
	}

	p.closeTrace(trace)

	if err := p.predictions.SavePrediction(ctx, prediction); err != nil {
		logger.WithPredictionID(p.logger, prediction.PredictionID).WithError(err).
			Warn("Failed to persist prediction")
	}
	if p.cache != nil && gameID == nil {
		if err := p.cache.SetWithRetry(ctx, cacheKey, prediction, p.cacheTTL, 3); err != nil {
			logger.WithPredictionID(p.logger, prediction.PredictionID).WithError(err).
				Warn("Failed to cache prediction")
		}
	}

	logger.WithMatchup(p.logger, homeTeamID, awayTeamID, season).WithFields(logrus.Fields{
		"prediction_id": prediction.PredictionID,
		"spread":        prediction.Spread,
		"win_prob":      prediction.HomeWinProbability,
		"confidence":    prediction.Confidence,
	}).Info("Prediction generated")

	return prediction, nil
}

// GetWeeklyPredictions predicts every game scheduled in a week. A matchup
// failing with insufficient data is skipped and logged, not fatal to the
// rest of the slate.
func (p *PredictionEngine) GetWeeklyPredictions(ctx context.Context, season, week int) ([]models.GamePrediction, error) {
	games, err := p.games.GamesForWeek(ctx, season, week)
	if err != nil {
		return nil, err
	}

	predictions := make([]models.GamePrediction, 0, len(games))
	for _, g := range games {
		gameID := g.ID
		pred, err := p.GetGamePrediction(ctx, g.HomeTeamID, g.AwayTeamID, season, &gameID, g.IsNeutralSite)
		if err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"component": "prediction_engine",
				"game_id":   g.ID,
				"season":    season,
				"week":      week,
			}).Warn("Skipping game prediction")
			continue
		}
		predictions = append(predictions, *pred)
	}
	return predictions, nil
}

func (p *PredictionEngine) scoreSide(team, opponent models.TeamEfficiencyProfile, weights models.WeightVector, homeField bool) models.TeamBreakdown {
	return ScoreBreakdown(team, opponent, weights, p.baselines, homeField)
}

// ScoreBreakdown applies the point-differential formula for one side. Each
// category contribution is exactly weight times delta, recorded separately
// for transparency. Exported so the verification framework can replay the
// formula against synthetic profiles.
func ScoreBreakdown(team, opponent models.TeamEfficiencyProfile, weights models.WeightVector, baselines league.Baselines, homeField bool) models.TeamBreakdown {
	breakdown := models.TeamBreakdown{
		TeamID:   team.TeamID,
		Baseline: baselines.PointsPerGame,
	}

	score := breakdown.Baseline
	for _, c := range league.Categories() {
		delta := matchupDelta(team, opponent, c)
		contribution := weights[c] * delta
		breakdown.Contributions = append(breakdown.Contributions, models.CategoryContribution{
			Category:     c,
			Weight:       weights[c],
			Delta:        delta,
			Contribution: contribution,
		})
		score += contribution
	}

	if homeField {
		breakdown.HomeFieldTerm = weights[league.WeightHomeField] * baselines.HomeFieldPoints
		score += breakdown.HomeFieldTerm
	}

	breakdown.RawScore = score
	return breakdown
}

// attachStatChecks projects per-game statistics for both sides, runs them
// through the per-statistic boundary checks, and folds their penalties into
// the game's total confidence reduction.
func (p *PredictionEngine) attachStatChecks(ctx context.Context, result *models.BoundaryValidationResult, season int, homeAgg, awayAgg models.TeamSeasonAggregate, homeProfile, awayProfile models.TeamEfficiencyProfile) {
	patterns, err := p.boundary.BuildHistoricalPatterns(ctx, p.games, season)
	if err != nil {
		p.logger.WithError(err).Warn("Skipping per-statistic boundary checks")
		return
	}

	type projection struct {
		name      string
		projected float64
		seasonAvg float64
		pattern   string
	}
	sides := []struct {
		prefix  string
		agg     models.TeamSeasonAggregate
		profile models.TeamEfficiencyProfile
	}{
		{"home", homeAgg, homeProfile},
		{"away", awayAgg, awayProfile},
	}

	for _, side := range sides {
		projections := []projection{
			{"passing_yards", side.agg.AvgPassingYards + side.profile.PassingOffense, side.agg.AvgPassingYards, "passing_yards"},
			{"rushing_yards", side.agg.AvgRushingYards + side.profile.RushingOffense, side.agg.AvgRushingYards, "rushing_yards"},
			{"turnovers", side.agg.AvgTurnovers - side.profile.TurnoverMargin/2, side.agg.AvgTurnovers, "turnovers"},
			{"sacks", side.agg.AvgSacks, side.agg.AvgSacks, "sacks"},
			{"field_goals", side.agg.AvgFieldGoalsMade + side.profile.SpecialTeams/3, side.agg.AvgFieldGoalsMade, "field_goals"},
		}
		for _, proj := range projections {
			check := p.boundary.ValidateStatistic(
				side.prefix+"_"+proj.name, proj.projected, proj.seasonAvg, patterns[proj.pattern])
			result.StatChecks = append(result.StatChecks, check)
			if check.WasAdjusted {
				result.IsAdjusted = true
				result.AdjustmentReasons = append(result.AdjustmentReasons, check.AdjustmentReason)
			}
		}
	}

	// Per-statistic penalties count toward the game's total reduction just
	// like the score-level ones.
	result.TotalConfidenceReduction = combineReductions(result.IndividualReductions())
}

// statisticalConfidence assembles the model-quality block from the latest
// regression run for the season.
func (p *PredictionEngine) statisticalConfidence(ctx context.Context, season int, home, away models.TeamEfficiencyProfile) models.StatisticalConfidence {
	confidence := models.StatisticalConfidence{
		ReliabilityTier: "unproven",
		CombinedGames:   home.GamesPlayed + away.GamesPlayed,
	}
	confidence.SampleSizeAdequate = confidence.CombinedGames >= adequateCombinedGames

	analysis, err := p.regressions.LatestAnalysis(ctx, season)
	if err != nil {
		if err != storage.ErrNotFound {
			p.logger.WithError(err).Warn("Failed to load latest regression analysis")
		}
		return confidence
	}

	confidence.ModelRSquared = analysis.OverallRSquared
	if scoring, ok := analysis.MetricByName(league.CategoryScoringOffense); ok {
		confidence.ConfidenceIntervalLow = scoring.ConfidenceIntervalLow
		confidence.ConfidenceIntervalHigh = scoring.ConfidenceIntervalHigh
	}
	switch {
	case analysis.OverallRSquared >= 0.5 && analysis.SampleSizeAdequate:
		confidence.ReliabilityTier = "strong"
	case analysis.OverallRSquared >= 0.3:
		confidence.ReliabilityTier = "moderate"
	default:
		confidence.ReliabilityTier = "weak"
	}
	return confidence
}

// winProbability maps a score differential onto a 0-100 home win
// probability: ~3.5 probability points per point of differential, damped by
// the matchup confidence level and model quality, clamped to [5,95].
// Monotonic non-decreasing in the differential for fixed damping.
func winProbability(differential float64, level models.ConfidenceLevel, modelRSquared float64) float64 {
	qualityMul := math.Max(0.5, math.Min(1.0, modelRSquared+0.3))
	raw := differential * probPointsPerScorePoint * level.Multiplier() * qualityMul
	return clamp(50+raw, 5, 95)
}

// overallConfidence composes the 0-100 prediction confidence.
func overallConfidence(level models.ConfidenceLevel, statistical models.StatisticalConfidence, boundaryReduction, avgConvergence float64) float64 {
	score := level.BaseScore()

	// Up to +20 for model fit.
	score += 20 * clamp(statistical.ModelRSquared, 0, 1)

	// Up to -30 proportional to the boundary penalty.
	score -= 30 * (boundaryReduction / maxConfidenceReduction)

	// Up to -20 for inadequate combined sample size.
	adequacy := clamp(float64(statistical.CombinedGames)/adequateCombinedGames, 0, 1)
	score -= 20 * (1 - adequacy)

	// ±10 from the convergence score.
	score += (avgConvergence - 0.5) * 20

	return clamp(score, 20, 95)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *PredictionEngine) openTrace() *models.CalculationTrace {
	if p.tracer == nil {
		return nil
	}
	return p.tracer.Open(models.ComponentPredictionEngine)
}

func (p *PredictionEngine) step(trace *models.CalculationTrace, name, computation string, inputs map[string]interface{}, output interface{}, passed bool) {
	if p.tracer == nil || trace == nil {
		return
	}
	p.tracer.Step(trace, name, computation, inputs, output, passed)
}

func (p *PredictionEngine) closeTrace(trace *models.CalculationTrace) {
	if p.tracer == nil || trace == nil {
		return
	}
	p.tracer.Close(trace)
}
