package services

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

// RegressionConfig carries the statistical thresholds for analysis runs.
type RegressionConfig struct {
	SignificanceThreshold float64
	RSquaredThreshold     float64
	ScaleFactor           float64
	MinSampleSize         int
}

// RegressionService regresses actual game margins against per-category
// matchup deltas to measure how much each efficiency category matters.
// Results are append-only.
type RegressionService struct {
	games      storage.GameStore
	results    storage.RegressionStore
	calculator *EfficiencyCalculator
	cfg        RegressionConfig
	logger     *logrus.Logger
}

func NewRegressionService(
	games storage.GameStore,
	results storage.RegressionStore,
	calculator *EfficiencyCalculator,
	cfg RegressionConfig,
	logger *logrus.Logger,
) *RegressionService {
	return &RegressionService{
		games:      games,
		results:    results,
		calculator: calculator,
		cfg:        cfg,
		logger:     logger,
	}
}

// RunRegressionAnalysis builds one sample per completed game (per-category
// matchup delta from the home side's view against the actual home margin),
// fits per-metric ordinary least squares, and persists the run.
func (r *RegressionService) RunRegressionAnalysis(ctx context.Context, season int) (*models.RegressionAnalysisResult, error) {
	data, err := LoadSeasonData(ctx, r.games, season)
	if err != nil {
		return nil, err
	}

	profiles := make(map[uint]models.TeamEfficiencyProfile)
	for _, teamID := range data.TeamIDs() {
		profiles[teamID] = r.calculator.ComputeProfile(data, teamID)
	}

	deltasByMetric := make(map[string][]float64)
	var margins []float64
	for _, g := range data.Games {
		home, okHome := profiles[g.HomeTeamID]
		away, okAway := profiles[g.AwayTeamID]
		if !okHome || !okAway {
			continue
		}
		margins = append(margins, float64(g.Margin()))
		for _, c := range league.Categories() {
			deltasByMetric[c] = append(deltasByMetric[c], matchupDelta(home, away, c))
		}
	}

	sampleSize := len(margins)
	result := &models.RegressionAnalysisResult{
		Season:                            season,
		SampleSize:                        sampleSize,
		SampleSizeAdequate:                sampleSize >= r.cfg.MinSampleSize,
		StatisticalSignificanceConsidered: sampleSize >= r.cfg.MinSampleSize,
	}

	rSquaredSum := 0.0
	for _, c := range league.Categories() {
		metric := r.fitMetric(c, deltasByMetric[c], margins)
		result.Metrics = append(result.Metrics, metric)
		rSquaredSum += metric.RSquared
	}
	if len(result.Metrics) > 0 {
		result.OverallRSquared = rSquaredSum / float64(len(result.Metrics))
	}

	if err := r.results.AppendAnalysis(ctx, result); err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"component":            "regression",
		"season":               season,
		"sample_size":          sampleSize,
		"sample_size_adequate": result.SampleSizeAdequate,
		"overall_r_squared":    result.OverallRSquared,
	}).Info("Regression analysis completed")

	return result, nil
}

// fitMetric runs one single-variable OLS fit with a t-test on the slope.
func (r *RegressionService) fitMetric(name string, xs, ys []float64) models.MetricRegression {
	metric := models.MetricRegression{Metric: name, PValue: 1.0}
	n := len(xs)
	if n < 3 {
		return metric
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return metric
	}
	metric.Intercept = alpha
	metric.Coefficient = beta
	metric.RSquared = stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(metric.RSquared) || metric.RSquared < 0 {
		metric.RSquared = 0
	}

	// Standard error of the slope for the t-test.
	xMean := stat.Mean(xs, nil)
	sse, sxx := 0.0, 0.0
	for i := range xs {
		resid := ys[i] - (alpha + beta*xs[i])
		sse += resid * resid
		dx := xs[i] - xMean
		sxx += dx * dx
	}
	if sxx == 0 {
		return metric
	}
	se := math.Sqrt(sse / float64(n-2) / sxx)
	if se == 0 {
		metric.PValue = 0
	} else {
		tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
		t := math.Abs(beta / se)
		metric.PValue = 2 * tDist.Survival(t)
		tCrit := tDist.Quantile(0.975)
		metric.ConfidenceIntervalLow = beta - tCrit*se
		metric.ConfidenceIntervalHigh = beta + tCrit*se
	}

	metric.CalculatedWeight = math.Abs(beta) * r.cfg.ScaleFactor
	metric.IsStatisticallySignificant = metric.PValue < r.cfg.SignificanceThreshold &&
		metric.RSquared > r.cfg.RSquaredThreshold
	return metric
}

// matchupDelta is the per-category edge the home side holds over the away
// side, expressed in the category's native units.
func matchupDelta(home, away models.TeamEfficiencyProfile, category string) float64 {
	switch category {
	case league.CategoryPassingOffense:
		return home.PassingOffense - away.PassingDefense
	case league.CategoryRushingOffense:
		return home.RushingOffense - away.RushingDefense
	case league.CategoryScoringOffense:
		return home.ScoringOffense - away.ScoringDefense
	case league.CategoryPassingDefense:
		return home.PassingDefense - away.PassingOffense
	case league.CategoryRushingDefense:
		return home.RushingDefense - away.RushingOffense
	case league.CategoryScoringDefense:
		return home.ScoringDefense - away.ScoringOffense
	case league.CategoryTurnoverMargin:
		return home.TurnoverMargin - away.TurnoverMargin
	case league.CategorySpecialTeams:
		return home.SpecialTeams - away.SpecialTeams
	default:
		return 0
	}
}
