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

func newTestWeightManager(store storage.WeightStore) *WeightManager {
	return NewWeightManager(store, nil, league.Defaults(), WeightManagerConfig{
		SignificanceThreshold: 0.1,
		RSquaredThreshold:     0.2,
		ScaleFactor:           1.0,
		SumTolerance:          0.1,
	}, logrus.New())
}

func TestGetCurrentWeightsBaselineFallback(t *testing.T) {
	manager := newTestWeightManager(storage.NewMemoryStore())

	weights := manager.GetCurrentWeights(context.Background(), 2024)

	assert.Equal(t, "baseline", weights.Source)
	assert.Equal(t, 2024, weights.Season)
	assert.InDelta(t, 1.0, weights.Weights.CategorySum(), 1e-9)
	assert.NotEmpty(t, weights.VersionID)
}

func TestGetCurrentWeightsPriorSeasonFallback(t *testing.T) {
	store := storage.NewMemoryStore()
	manager := newTestWeightManager(store)
	ctx := context.Background()

	vector := league.Defaults().Weights
	reason := "initial derivation for the prior season based on the final regression run of the year"
	_, err := manager.UpdateWeights(ctx, 2023, models.WeightVector(vector).Clone(), reason, "analyst")
	require.NoError(t, err)

	current := manager.GetCurrentWeights(ctx, 2024)
	assert.Equal(t, 2023, current.Season)
	assert.Equal(t, "manual", current.Source)
}

func TestDeriveVectorFiltersAndNormalizes(t *testing.T) {
	manager := newTestWeightManager(storage.NewMemoryStore())

	analysis := &models.RegressionAnalysisResult{
		Season:     2024,
		SampleSize: 120,
		Metrics: models.MetricRegressionList{
			{Metric: league.CategoryPassingOffense, Coefficient: 0.3, PValue: 0.01, RSquared: 0.5},
			{Metric: league.CategoryScoringOffense, Coefficient: -0.7, PValue: 0.02, RSquared: 0.6},
			// Filtered out: not significant.
			{Metric: league.CategoryRushingOffense, Coefficient: 0.9, PValue: 0.5, RSquared: 0.5},
			// Filtered out: poor fit.
			{Metric: league.CategoryTurnoverMargin, Coefficient: 0.4, PValue: 0.01, RSquared: 0.1},
		},
	}

	vector, err := manager.DeriveVector(analysis)
	require.NoError(t, err)

	// Absolute coefficients normalized to sum 1.0: 0.3 and 0.7.
	assert.InDelta(t, 0.3, vector[league.CategoryPassingOffense], 1e-9)
	assert.InDelta(t, 0.7, vector[league.CategoryScoringOffense], 1e-9)
	assert.Zero(t, vector[league.CategoryRushingOffense])
	assert.Zero(t, vector[league.CategoryTurnoverMargin])
	assert.InDelta(t, 1.0, vector.CategorySum(), 1e-9)

	// Home field carries the baseline value, outside the normalized sum.
	assert.InDelta(t, league.Defaults().Weights[league.WeightHomeField], vector[league.WeightHomeField], 1e-9)
}

func TestDeriveVectorNoUsableMetrics(t *testing.T) {
	manager := newTestWeightManager(storage.NewMemoryStore())

	analysis := &models.RegressionAnalysisResult{
		Metrics: models.MetricRegressionList{
			{Metric: league.CategoryPassingOffense, Coefficient: 0.3, PValue: 0.9, RSquared: 0.01},
		},
	}

	_, err := manager.DeriveVector(analysis)
	assert.ErrorIs(t, err, ErrNoRegressionMetrics)
}

func TestUpdateWeightsRejectsShortReason(t *testing.T) {
	manager := newTestWeightManager(storage.NewMemoryStore())

	_, err := manager.UpdateWeights(context.Background(), 2024,
		models.WeightVector(league.Defaults().Weights).Clone(), "too short", "analyst")
	assert.ErrorIs(t, err, ErrReasonTooShort)
}

func TestUpdateWeightsRejectsInvalidVector(t *testing.T) {
	manager := newTestWeightManager(storage.NewMemoryStore())
	reason := "manual override with a sufficiently long justification describing the rationale in detail"

	outOfBounds := models.WeightVector(league.Defaults().Weights).Clone()
	outOfBounds[league.CategoryPassingOffense] = 2.5
	_, err := manager.UpdateWeights(context.Background(), 2024, outOfBounds, reason, "analyst")
	assert.ErrorIs(t, err, ErrInvalidWeights)

	badSum := models.WeightVector(league.Defaults().Weights).Clone()
	badSum[league.CategoryScoringOffense] += 0.5
	_, err = manager.UpdateWeights(context.Background(), 2024, badSum, reason, "analyst")
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestUpdateWeightsAppendsUnbrokenChain(t *testing.T) {
	store := storage.NewMemoryStore()
	manager := newTestWeightManager(store)
	ctx := context.Background()

	first := models.WeightVector(league.Defaults().Weights).Clone()
	reason1 := "manual override applying preseason judgement before any regression run has landed for 2024"
	v1, err := manager.UpdateWeights(ctx, 2024, first, reason1, "analyst")
	require.NoError(t, err)
	assert.Equal(t, "manual", v1.Source)

	second := first.Clone()
	second[league.CategoryPassingOffense] += 0.02
	second[league.CategoryScoringOffense] -= 0.02
	reason2 := "manual override shifting weight from scoring to passing after reviewing week four results in depth"
	_, err = manager.UpdateWeights(ctx, 2024, second, reason2, "analyst")
	require.NoError(t, err)

	history, err := store.History(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Entry N's previous vector equals entry N-1's new vector.
	assert.True(t, history[1].PreviousWeights.Equals(history[0].NewWeights, 1e-9))
	assert.True(t, history[0].IsManualOverride)

	latest, err := store.LatestWeights(ctx, 2024)
	require.NoError(t, err)
	assert.True(t, latest.Weights.Equals(second, 1e-9))
}

func TestDeriveWeightsFromRegressionPersistsAuditLink(t *testing.T) {
	store := storage.NewMemoryStore()
	manager := newTestWeightManager(store)
	ctx := context.Background()

	analysis := &models.RegressionAnalysisResult{
		ID:                 42,
		Season:             2024,
		SampleSize:         96,
		SampleSizeAdequate: true,
		Metrics: models.MetricRegressionList{
			{Metric: league.CategoryPassingOffense, Coefficient: 0.4, PValue: 0.01, RSquared: 0.5},
			{Metric: league.CategoryScoringOffense, Coefficient: 0.6, PValue: 0.01, RSquared: 0.5},
		},
	}

	version, err := manager.DeriveWeightsFromRegression(ctx, analysis, "significant weekly recalculation from regression run")
	require.NoError(t, err)

	assert.Equal(t, "regression", version.Source)
	require.NotNil(t, version.RegressionAnalysisID)
	assert.Equal(t, uint(42), *version.RegressionAnalysisID)

	history, err := store.History(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].IsManualOverride)
	require.NotNil(t, history[0].RegressionAnalysisID)
}

func TestMaxSingleChangeRatio(t *testing.T) {
	entry := models.WeightChangeEntry{
		PreviousWeights: models.WeightVector{league.CategoryPassingOffense: 0.2, league.CategoryScoringOffense: 0.8},
		NewWeights:      models.WeightVector{league.CategoryPassingOffense: 0.35, league.CategoryScoringOffense: 0.65},
	}
	// Passing moved 75%, scoring 18.75%.
	assert.InDelta(t, 0.75, entry.MaxSingleChangeRatio(), 1e-9)
}

func TestMaxSingleChangeRatioIntroducedWeight(t *testing.T) {
	// A category appearing from zero is a full swing even when the new
	// value is tiny; it must not slip past the major-change audit rule.
	entry := models.WeightChangeEntry{
		PreviousWeights: models.WeightVector{league.CategoryScoringOffense: 1.0},
		NewWeights:      models.WeightVector{league.CategoryScoringOffense: 0.95, league.CategoryRushingOffense: 0.05},
	}
	assert.InDelta(t, 1.0, entry.MaxSingleChangeRatio(), 1e-9)

	// A category that stays at zero does not count.
	unchanged := models.WeightChangeEntry{
		PreviousWeights: models.WeightVector{league.CategoryScoringOffense: 1.0},
		NewWeights:      models.WeightVector{league.CategoryScoringOffense: 1.0},
	}
	assert.Zero(t, unchanged.MaxSingleChangeRatio())
}

func TestContainsMajorKeyword(t *testing.T) {
	assert.True(t, containsMajorKeyword("Major rebalancing after bye weeks"))
	assert.True(t, containsMajorKeyword("a statistically SIGNIFICANT shift"))
	assert.False(t, containsMajorKeyword("routine weekly recalculation"))
}
