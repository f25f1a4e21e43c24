package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

func newTestBoundaryValidator() *BoundaryValidator {
	// Tight bounds so tests can exercise the floor and ceiling without
	// building absurd aggregates.
	return NewBoundaryValidator(BoundaryConfig{
		FloorPctHigh:     0.25,
		FloorPctMedium:   0.20,
		FloorPctLow:      0.10,
		CeilingMulHigh:   1.5,
		CeilingMulMedium: 2.0,
		CeilingMulLow:    3.0,
		LookbackSeasons:  3,
	}, league.Defaults(), logrus.New())
}

func side(raw float64, avgPoints float64, level models.ConfidenceLevel) sideInput {
	return sideInput{
		RawScore: raw,
		Aggregate: models.TeamSeasonAggregate{
			GamesPlayed: 8,
			AvgPoints:   avgPoints,
		},
		Profile: models.TeamEfficiencyProfile{
			TeamID:           1,
			ConfidenceLevel:  level,
			ConvergenceScore: 0.8,
		},
	}
}

func TestValidateScoresWithinBounds(t *testing.T) {
	v := newTestBoundaryValidator()

	result := v.ValidateScores(
		side(27, 28, models.ConfidenceHigh),
		side(24, 26, models.ConfidenceHigh),
	)

	assert.False(t, result.IsAdjusted)
	assert.Equal(t, 27.0, result.HomeAdjustedScore)
	assert.Equal(t, 24.0, result.AwayAdjustedScore)
	assert.Zero(t, result.TotalConfidenceReduction)
	assert.Empty(t, result.AdjustmentReasons)
}

func TestValidateScoresNegativePrediction(t *testing.T) {
	v := newTestBoundaryValidator()

	result := v.ValidateScores(
		side(-5, 28, models.ConfidenceHigh),
		side(24, 26, models.ConfidenceHigh),
	)

	assert.True(t, result.IsAdjusted)
	assert.Equal(t, minimumScore, result.HomeAdjustedScore)
	assert.NotEmpty(t, result.AdjustmentReasons)
	assert.Greater(t, result.TotalConfidenceReduction, 0.0)
}

func TestValidateScoresFloorClamp(t *testing.T) {
	v := newTestBoundaryValidator()

	// Floor for high confidence at 28 avg is 7; raw 5 clamps up.
	result := v.ValidateScores(
		side(5, 28, models.ConfidenceHigh),
		side(24, 26, models.ConfidenceHigh),
	)

	assert.True(t, result.IsAdjusted)
	assert.InDelta(t, 7.0, result.HomeAdjustedScore, 1e-9)
	assert.InDelta(t, 7.0, result.HomeMinAllowed, 1e-9)
}

func TestValidateScoresExtremeCircumstanceSoftens(t *testing.T) {
	v := newTestBoundaryValidator()

	in := side(5, 28, models.ConfidenceHigh)
	in.Profile.ScoringOffense = -1.2 // worse than the extreme floor

	result := v.ValidateScores(in, side(24, 26, models.ConfidenceHigh))

	// Soft regression: 1% toward the midpoint of floor and raw, so the
	// prediction stays essentially below the floor.
	assert.True(t, result.IsAdjusted)
	assert.InDelta(t, 5.01, result.HomeAdjustedScore, 1e-6)
	assert.Less(t, result.HomeAdjustedScore, result.HomeMinAllowed)
}

func TestValidateScoresCeilingSoftRegression(t *testing.T) {
	v := newTestBoundaryValidator()

	// Ceiling for high confidence at 28 avg is 42; raw 85 blends 1% toward
	// (42+28)/2 = 35.
	result := v.ValidateScores(
		side(85, 28, models.ConfidenceHigh),
		side(24, 26, models.ConfidenceHigh),
	)

	assert.True(t, result.IsAdjusted)
	assert.InDelta(t, 85+softBlend*(35-85.0), result.HomeAdjustedScore, 1e-9)
	assert.Less(t, result.HomeAdjustedScore, result.HomeRawScore)
	assert.Greater(t, result.HomeAdjustedScore, result.HomeMaxAllowed)
}

func TestValidateScoresEmptyAggregateUsesBaseline(t *testing.T) {
	v := newTestBoundaryValidator()

	in := sideInput{
		RawScore:  27,
		Aggregate: models.TeamSeasonAggregate{},
		Profile:   models.TeamEfficiencyProfile{ConfidenceLevel: models.ConfidenceLow, ConvergenceScore: 0.8},
	}
	result := v.ValidateScores(in, side(24, 26, models.ConfidenceHigh))

	baseline := league.Defaults().PointsPerGame
	assert.InDelta(t, baseline*0.10, result.HomeMinAllowed, 1e-9)
	assert.InDelta(t, baseline*3.0, result.HomeMaxAllowed, 1e-9)
}

func TestCombineReductions(t *testing.T) {
	assert.Zero(t, combineReductions(nil))
	assert.InDelta(t, 0.7*0.5+0.3*0.4, combineReductions([]float64{0.5, 0.3}), 1e-9)
	// Capped.
	assert.InDelta(t, maxConfidenceReduction, combineReductions([]float64{2.0}), 1e-9)
}

func TestValidateStatisticSeasonDeviation(t *testing.T) {
	v := newTestBoundaryValidator()

	check := v.ValidateStatistic("home_passing_yards", 300, 100, models.HistoricalPattern{})

	assert.True(t, check.WasAdjusted)
	// Regressed halfway back toward the season average.
	assert.InDelta(t, 200.0, check.AdjustedValue, 1e-9)
	assert.InDelta(t, 0.1, check.ConfidenceReduction, 1e-9)
	assert.NotEmpty(t, check.AdjustmentReason)
}

func TestValidateStatisticHistoricalDeviation(t *testing.T) {
	v := newTestBoundaryValidator()

	pattern := models.HistoricalPattern{Statistic: "passing_yards", Mean: 100, StdDev: 10, SampleSize: 500}
	check := v.ValidateStatistic("home_passing_yards", 200, 180, pattern)

	// Within 150% of its own season average but far outside the historical
	// distribution: regressed to mean + 2.5 sigma.
	assert.True(t, check.WasAdjusted)
	assert.InDelta(t, 100+historicalSigmaTarget*10, check.AdjustedValue, 1e-9)
	assert.InDelta(t, 0.15, check.ConfidenceReduction, 1e-9)
}

func TestValidateStatisticWithinBounds(t *testing.T) {
	v := newTestBoundaryValidator()

	pattern := models.HistoricalPattern{Mean: 250, StdDev: 60, SampleSize: 500}
	check := v.ValidateStatistic("home_passing_yards", 260, 255, pattern)

	assert.False(t, check.WasAdjusted)
	assert.Equal(t, check.Value, check.AdjustedValue)
	assert.Zero(t, check.ConfidenceReduction)
}

func TestBuildHistoricalPatterns(t *testing.T) {
	store := storage.NewMemoryStore()
	store.AddStats(
		models.TeamGameStat{GameID: 1, TeamID: 1, Season: 2023, Points: 20, PassingYards: 240},
		models.TeamGameStat{GameID: 1, TeamID: 2, Season: 2023, Points: 30, PassingYards: 260},
		models.TeamGameStat{GameID: 2, TeamID: 1, Season: 2024, Points: 25, PassingYards: 250},
	)

	v := newTestBoundaryValidator()
	patterns, err := v.BuildHistoricalPatterns(context.Background(), store, 2024)
	require.NoError(t, err)

	points := patterns["points"]
	assert.Equal(t, 3, points.SampleSize)
	assert.InDelta(t, 25.0, points.Mean, 1e-9)
	assert.Equal(t, 20.0, points.Min)
	assert.Equal(t, 30.0, points.Max)
	assert.Greater(t, points.StdDev, 0.0)
}
