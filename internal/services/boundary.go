package services

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

const (
	// minimumScore is a field goal, the lowest plausible non-zero score.
	minimumScore = 3.0

	// softBlend is the fraction moved toward the regression target when a
	// prediction is softened instead of clamped.
	softBlend = 0.01

	// extremeEfficiencyFloor marks a category bad enough to count as an
	// extreme circumstance.
	extremeEfficiencyFloor = -0.8

	// maxConfidenceReduction caps the total boundary penalty per game.
	maxConfidenceReduction = 0.8

	// statDeviationRatio is the own-season deviation that triggers soft
	// regression of a projected statistic.
	statDeviationRatio = 1.5

	// historicalSigmaLimit is the historical-distribution deviation (in
	// standard deviations) that triggers soft regression.
	historicalSigmaLimit = 3.0

	// historicalSigmaTarget is where an out-of-distribution statistic is
	// regressed to, in standard deviations from the historical mean.
	historicalSigmaTarget = 2.5
)

// BoundaryConfig holds the per-confidence-tier bounds. The multipliers are
// deliberately permissive so the opponent-relative signal is not washed
// out; they are tuning parameters, not derived invariants.
type BoundaryConfig struct {
	FloorPctHigh     float64
	FloorPctMedium   float64
	FloorPctLow      float64
	CeilingMulHigh   float64
	CeilingMulMedium float64
	CeilingMulLow    float64
	LookbackSeasons  int
}

func (c BoundaryConfig) floorPct(level models.ConfidenceLevel) float64 {
	switch level {
	case models.ConfidenceHigh:
		return c.FloorPctHigh
	case models.ConfidenceMedium:
		return c.FloorPctMedium
	default:
		return c.FloorPctLow
	}
}

func (c BoundaryConfig) ceilingMul(level models.ConfidenceLevel) float64 {
	switch level {
	case models.ConfidenceHigh:
		return c.CeilingMulHigh
	case models.ConfidenceMedium:
		return c.CeilingMulMedium
	default:
		return c.CeilingMulLow
	}
}

// BoundaryValidator constrains raw predictions to historically plausible
// ranges. Corrections are never silent: every adjustment carries a reason
// and a confidence reduction.
type BoundaryValidator struct {
	cfg       BoundaryConfig
	baselines league.Baselines
	logger    *logrus.Logger
}

func NewBoundaryValidator(cfg BoundaryConfig, baselines league.Baselines, logger *logrus.Logger) *BoundaryValidator {
	return &BoundaryValidator{cfg: cfg, baselines: baselines, logger: logger}
}

// sideInput bundles one side's boundary inputs.
type sideInput struct {
	RawScore  float64
	Aggregate models.TeamSeasonAggregate
	Profile   models.TeamEfficiencyProfile
}

// ValidateScores applies floor/ceiling validation to both sides and rolls
// up the per-side penalties.
func (v *BoundaryValidator) ValidateScores(home, away sideInput) models.BoundaryValidationResult {
	result := models.BoundaryValidationResult{
		HomeRawScore: home.RawScore,
		AwayRawScore: away.RawScore,
	}

	homeAdj, homeMin, homeMax, homeReduction, homeReasons := v.validateScore(home)
	result.HomeAdjustedScore = homeAdj
	result.HomeMinAllowed = homeMin
	result.HomeMaxAllowed = homeMax
	result.HomeConfidenceReduction = homeReduction
	result.AdjustmentReasons = append(result.AdjustmentReasons, homeReasons...)

	awayAdj, awayMin, awayMax, awayReduction, awayReasons := v.validateScore(away)
	result.AwayAdjustedScore = awayAdj
	result.AwayMinAllowed = awayMin
	result.AwayMaxAllowed = awayMax
	result.AwayConfidenceReduction = awayReduction
	result.AdjustmentReasons = append(result.AdjustmentReasons, awayReasons...)

	result.IsAdjusted = homeAdj != home.RawScore || awayAdj != away.RawScore
	result.TotalConfidenceReduction = combineReductions(result.IndividualReductions())
	return result
}

// validateScore bounds one side's predicted score against permissive
// multiples of its season scoring average.
func (v *BoundaryValidator) validateScore(in sideInput) (adjusted, minAllowed, maxAllowed, reduction float64, reasons []string) {
	seasonAvg := in.Aggregate.AvgPoints
	if in.Aggregate.IsEmpty() || seasonAvg <= 0 {
		seasonAvg = v.baselines.PointsPerGame
	}

	level := in.Profile.ConfidenceLevel
	minAllowed = seasonAvg * v.cfg.floorPct(level)
	maxAllowed = seasonAvg * v.cfg.ceilingMul(level)
	adjusted = in.RawScore

	switch {
	case in.RawScore < 0:
		adjusted = minimumScore
		reduction = 0.3
		reasons = append(reasons, fmt.Sprintf(
			"team %d: negative predicted score %.1f floored at minimum field-goal score", in.Profile.TeamID, in.RawScore))

	case in.RawScore < minAllowed && v.hasExtremeCircumstance(in.Profile):
		// Extreme circumstance: soften instead of clamping so a genuinely
		// collapsing team can still predict below its floor.
		target := (minAllowed + in.RawScore) / 2
		adjusted = in.RawScore + softBlend*(target-in.RawScore)
		reduction = 0.5
		reasons = append(reasons, fmt.Sprintf(
			"team %d: score %.1f below floor %.1f under extreme circumstances, soft regression applied", in.Profile.TeamID, in.RawScore, minAllowed))

	case in.RawScore < minAllowed:
		adjusted = minAllowed
		reduction = 0.3
		reasons = append(reasons, fmt.Sprintf(
			"team %d: score %.1f below floor %.1f, clamped", in.Profile.TeamID, in.RawScore, minAllowed))

	case in.RawScore > maxAllowed:
		target := (maxAllowed + seasonAvg) / 2
		adjusted = in.RawScore + softBlend*(target-in.RawScore)
		reduction = 0.2
		reasons = append(reasons, fmt.Sprintf(
			"team %d: score %.1f above ceiling %.1f, soft regression toward season norm", in.Profile.TeamID, in.RawScore, maxAllowed))
	}

	if adjusted < minimumScore {
		if reduction < 0.2 {
			reduction = 0.2
		}
		if adjusted != in.RawScore || in.RawScore < minimumScore {
			reasons = append(reasons, fmt.Sprintf(
				"team %d: adjusted score floored at minimum field-goal score", in.Profile.TeamID))
		}
		adjusted = minimumScore
	}

	return adjusted, minAllowed, maxAllowed, reduction, reasons
}

// hasExtremeCircumstance detects teams whose profile justifies predictions
// outside normal bounds: at least one category worse than the extreme
// floor, or low confidence with an unstable estimate.
func (v *BoundaryValidator) hasExtremeCircumstance(profile models.TeamEfficiencyProfile) bool {
	_, worst := profile.WorstCategory()
	if worst < extremeEfficiencyFloor {
		return true
	}
	return profile.ConfidenceLevel == models.ConfidenceLow && profile.ConvergenceScore < 0.5
}

// ValidateStatistic checks one projected statistic against the team's own
// season average and the multi-season historical distribution.
func (v *BoundaryValidator) ValidateStatistic(name string, projected, seasonAvg float64, pattern models.HistoricalPattern) models.StatBoundaryCheck {
	check := models.StatBoundaryCheck{
		Statistic:     name,
		Value:         projected,
		AdjustedValue: projected,
	}

	if seasonAvg > 0 && math.Abs(projected-seasonAvg) > statDeviationRatio*seasonAvg {
		check.AdjustedValue = projected + 0.5*(seasonAvg-projected)
		check.WasAdjusted = true
		check.ConfidenceReduction = 0.1
		check.AdjustmentReason = fmt.Sprintf(
			"%s projection %.1f deviates more than %.0f%% from season average %.1f, regressed toward it",
			name, projected, statDeviationRatio*100, seasonAvg)
	}

	if pattern.SampleSize > 0 && pattern.StdDev > 0 {
		deviation := math.Abs(check.AdjustedValue - pattern.Mean)
		if deviation > historicalSigmaLimit*pattern.StdDev {
			direction := 1.0
			if check.AdjustedValue < pattern.Mean {
				direction = -1.0
			}
			check.AdjustedValue = pattern.Mean + direction*historicalSigmaTarget*pattern.StdDev
			check.WasAdjusted = true
			if check.ConfidenceReduction < 0.15 {
				check.ConfidenceReduction = 0.15
			}
			check.AdjustmentReason = fmt.Sprintf(
				"%s projection outside %.0f standard deviations of the %d-sample historical distribution, regressed to mean%+.1fσ",
				name, historicalSigmaLimit, pattern.SampleSize, direction*historicalSigmaTarget)
		}
	}

	return check
}

// combineReductions rolls individual penalties into the per-game total:
// min(0.7·max + 0.3·avg, cap).
func combineReductions(reductions []float64) float64 {
	if len(reductions) == 0 {
		return 0
	}
	maxR, sum := 0.0, 0.0
	for _, r := range reductions {
		if r > maxR {
			maxR = r
		}
		sum += r
	}
	avg := sum / float64(len(reductions))
	return math.Min(0.7*maxR+0.3*avg, maxConfidenceReduction)
}

// BuildHistoricalPatterns computes per-statistic distributions over the
// lookback window ending at the given season. Purely derived; recomputed
// per prediction run.
func (v *BoundaryValidator) BuildHistoricalPatterns(ctx context.Context, games storage.GameStore, throughSeason int) (map[string]models.HistoricalPattern, error) {
	values := make(map[string][]float64)
	for season := throughSeason - v.cfg.LookbackSeasons + 1; season <= throughSeason; season++ {
		stats, err := games.GameStats(ctx, season)
		if err != nil {
			return nil, fmt.Errorf("failed to load season %d stats for historical patterns: %w", season, err)
		}
		for _, s := range stats {
			values["points"] = append(values["points"], float64(s.Points))
			values["passing_yards"] = append(values["passing_yards"], float64(s.PassingYards))
			values["rushing_yards"] = append(values["rushing_yards"], float64(s.RushingYards))
			values["turnovers"] = append(values["turnovers"], float64(s.Turnovers))
			values["sacks"] = append(values["sacks"], float64(s.Sacks))
			values["field_goals"] = append(values["field_goals"], float64(s.FieldGoalsMade))
		}
	}

	patterns := make(map[string]models.HistoricalPattern, len(values))
	for name, vals := range values {
		if len(vals) == 0 {
			continue
		}
		p := models.HistoricalPattern{
			Statistic:  name,
			Min:        vals[0],
			Max:        vals[0],
			Mean:       stat.Mean(vals, nil),
			SampleSize: len(vals),
		}
		for _, val := range vals {
			if val < p.Min {
				p.Min = val
			}
			if val > p.Max {
				p.Max = val
			}
		}
		if len(vals) > 1 {
			p.StdDev = stat.StdDev(vals, nil)
		}
		patterns[name] = p
	}
	return patterns, nil
}
