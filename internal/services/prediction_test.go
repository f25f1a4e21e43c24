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

func boxScore(gameID, teamID uint, points int) models.TeamGameStat {
	return models.TeamGameStat{
		GameID:       gameID,
		TeamID:       teamID,
		Season:       2024,
		PassingYards: 200 + points,
		RushingYards: 100 + points/2,
		TotalYards:   300 + points,
		Points:       points,
		Turnovers:    1,
		Sacks:        2,

		FieldGoalsMade:      1,
		FieldGoalsAttempted: 2,
	}
}

// Four teams, full round robin, complete box scores. Team 1 wins every game.
func seedRoundRobin(store *storage.MemoryStore) {
	store.AddTeams(
		models.Team{ID: 1, Name: "Ashford", Abbr: "ASH"},
		models.Team{ID: 2, Name: "Brookfield", Abbr: "BRK"},
		models.Team{ID: 3, Name: "Caldwell", Abbr: "CAL"},
		models.Team{ID: 4, Name: "Dunmore", Abbr: "DUN"},
	)
	games := []models.Game{
		{ID: 1, Season: 2024, Week: 1, HomeTeamID: 1, AwayTeamID: 2, HomeScore: 31, AwayScore: 17, Completed: true},
		{ID: 2, Season: 2024, Week: 1, HomeTeamID: 3, AwayTeamID: 4, HomeScore: 24, AwayScore: 21, Completed: true},
		{ID: 3, Season: 2024, Week: 2, HomeTeamID: 1, AwayTeamID: 3, HomeScore: 28, AwayScore: 20, Completed: true},
		{ID: 4, Season: 2024, Week: 2, HomeTeamID: 2, AwayTeamID: 4, HomeScore: 23, AwayScore: 27, Completed: true},
		{ID: 5, Season: 2024, Week: 3, HomeTeamID: 1, AwayTeamID: 4, HomeScore: 30, AwayScore: 13, Completed: true},
		{ID: 6, Season: 2024, Week: 3, HomeTeamID: 2, AwayTeamID: 3, HomeScore: 21, AwayScore: 24, Completed: true},
	}
	store.AddGames(games...)
	for _, g := range games {
		store.AddStats(boxScore(g.ID, g.HomeTeamID, g.HomeScore), boxScore(g.ID, g.AwayTeamID, g.AwayScore))
	}
}

func newTestEngine(store *storage.MemoryStore) *PredictionEngine {
	log := logrus.New()
	baselines := league.Defaults()
	aggregator := NewStatsAggregator(log)
	calculator := NewEfficiencyCalculator(store, store, nil, aggregator, baselines, 0, log)
	weights := newTestWeightManager(store)
	boundary := NewBoundaryValidator(BoundaryConfig{
		FloorPctHigh:     0.025,
		FloorPctMedium:   0.02,
		FloorPctLow:      0.01,
		CeilingMulHigh:   6,
		CeilingMulMedium: 9,
		CeilingMulLow:    12,
		LookbackSeasons:  3,
	}, baselines, log)
	return NewPredictionEngine(store, store, store, calculator, aggregator, weights, boundary, nil, nil, baselines, 0, log)
}

func TestScoreBreakdownEvenMatchup(t *testing.T) {
	baselines := league.Defaults()
	weights := models.WeightVector(baselines.Weights)

	var team, opponent models.TeamEfficiencyProfile
	breakdown := ScoreBreakdown(team, opponent, weights, baselines, false)

	// Two teams with zero efficiency everywhere predict exactly the
	// baseline on a neutral field.
	assert.InDelta(t, baselines.PointsPerGame, breakdown.RawScore, 1e-9)
	assert.Zero(t, breakdown.HomeFieldTerm)
	assert.Len(t, breakdown.Contributions, len(league.Categories()))
	for _, c := range breakdown.Contributions {
		assert.Zero(t, c.Contribution)
	}
}

func TestScoreBreakdownHomeField(t *testing.T) {
	baselines := league.Defaults()
	weights := models.WeightVector(baselines.Weights)

	var team, opponent models.TeamEfficiencyProfile
	breakdown := ScoreBreakdown(team, opponent, weights, baselines, true)

	assert.InDelta(t, weights[league.WeightHomeField]*baselines.HomeFieldPoints, breakdown.HomeFieldTerm, 1e-9)
	assert.InDelta(t, baselines.PointsPerGame+breakdown.HomeFieldTerm, breakdown.RawScore, 1e-9)
}

func TestScoreBreakdownSingleCategoryEdge(t *testing.T) {
	baselines := league.Defaults()
	weights := models.WeightVector(baselines.Weights)

	var team, opponent models.TeamEfficiencyProfile
	team.PassingOffense = 10

	breakdown := ScoreBreakdown(team, opponent, weights, baselines, false)

	// +10 passing yards against a neutral defense at weight 0.15 is worth
	// exactly 1.5 points.
	assert.InDelta(t, baselines.PointsPerGame+1.5, breakdown.RawScore, 1e-9)
	for _, c := range breakdown.Contributions {
		if c.Category == league.CategoryPassingOffense {
			assert.InDelta(t, 10.0, c.Delta, 1e-9)
			assert.InDelta(t, 1.5, c.Contribution, 1e-9)
		}
	}
}

func TestGetGamePredictionEndToEnd(t *testing.T) {
	store := storage.NewMemoryStore()
	seedRoundRobin(store)
	engine := newTestEngine(store)
	ctx := context.Background()

	prediction, err := engine.GetGamePrediction(ctx, 1, 2, 2024, nil, false)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, prediction.HomeWinProbability, 5.0)
	assert.LessOrEqual(t, prediction.HomeWinProbability, 95.0)
	assert.GreaterOrEqual(t, prediction.Confidence, 20.0)
	assert.LessOrEqual(t, prediction.Confidence, 95.0)
	assert.InDelta(t, prediction.HomeAdjustedScore-prediction.AwayAdjustedScore, prediction.Spread, 1e-9)
	assert.InDelta(t, prediction.HomeAdjustedScore+prediction.AwayAdjustedScore, prediction.Total, 1e-9)
	assert.Len(t, prediction.Breakdown.Home.Contributions, len(league.Categories()))
	assert.NotEmpty(t, prediction.PredictionID)

	// Team 1 beat everyone comfortably; it should be favored over team 2.
	assert.Equal(t, uint(1), prediction.PredictedWinner())
	assert.Greater(t, prediction.HomeWinProbability, 50.0)

	saved, err := store.PredictionsForSeason(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestGetGamePredictionDeterministic(t *testing.T) {
	store := storage.NewMemoryStore()
	seedRoundRobin(store)
	engine := newTestEngine(store)
	ctx := context.Background()

	first, err := engine.GetGamePrediction(ctx, 1, 2, 2024, nil, false)
	require.NoError(t, err)
	second, err := engine.GetGamePrediction(ctx, 1, 2, 2024, nil, false)
	require.NoError(t, err)

	assert.InDelta(t, first.HomeAdjustedScore, second.HomeAdjustedScore, 1e-9)
	assert.InDelta(t, first.AwayAdjustedScore, second.AwayAdjustedScore, 1e-9)
	assert.InDelta(t, first.HomeWinProbability, second.HomeWinProbability, 1e-9)
}

func TestGetGamePredictionInsufficientData(t *testing.T) {
	store := storage.NewMemoryStore()
	seedRoundRobin(store)
	engine := newTestEngine(store)

	_, err := engine.GetGamePrediction(context.Background(), 99, 1, 2024, nil, false)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestGetWeeklyPredictions(t *testing.T) {
	store := storage.NewMemoryStore()
	seedRoundRobin(store)
	engine := newTestEngine(store)

	predictions, err := engine.GetWeeklyPredictions(context.Background(), 2024, 1)
	require.NoError(t, err)
	assert.Len(t, predictions, 2)
}

// Team 1 passes for 40 yards a game while its opponents typically allow 110,
// so the projected home passing yardage lands far below the season average
// and the per-statistic check soft-regresses it.
func seedAnemicPassing(store *storage.MemoryStore) {
	store.AddTeams(
		models.Team{ID: 1, Name: "Ashford", Abbr: "ASH"},
		models.Team{ID: 2, Name: "Brookfield", Abbr: "BRK"},
		models.Team{ID: 3, Name: "Caldwell", Abbr: "CAL"},
		models.Team{ID: 4, Name: "Dunmore", Abbr: "DUN"},
	)
	games := []models.Game{
		{ID: 1, Season: 2024, Week: 1, HomeTeamID: 1, AwayTeamID: 2, HomeScore: 24, AwayScore: 27, Completed: true},
		{ID: 2, Season: 2024, Week: 1, HomeTeamID: 3, AwayTeamID: 4, HomeScore: 28, AwayScore: 24, Completed: true},
		{ID: 3, Season: 2024, Week: 2, HomeTeamID: 1, AwayTeamID: 3, HomeScore: 21, AwayScore: 28, Completed: true},
		{ID: 4, Season: 2024, Week: 2, HomeTeamID: 2, AwayTeamID: 4, HomeScore: 27, AwayScore: 24, Completed: true},
		{ID: 5, Season: 2024, Week: 3, HomeTeamID: 1, AwayTeamID: 4, HomeScore: 17, AwayScore: 30, Completed: true},
		{ID: 6, Season: 2024, Week: 3, HomeTeamID: 2, AwayTeamID: 3, HomeScore: 24, AwayScore: 27, Completed: true},
	}
	store.AddGames(games...)
	for _, g := range games {
		for _, teamID := range []uint{g.HomeTeamID, g.AwayTeamID} {
			passing := 110
			if teamID == 1 {
				passing = 40
			}
			points, _ := g.ScoreFor(teamID)
			store.AddStats(models.TeamGameStat{
				GameID:       g.ID,
				TeamID:       teamID,
				Season:       2024,
				PassingYards: passing,
				RushingYards: 100,
				TotalYards:   passing + 100,
				Points:       points,
				Turnovers:    1,
				Sacks:        2,

				FieldGoalsMade:      1,
				FieldGoalsAttempted: 2,
			})
		}
	}
}

func TestGetGamePredictionStatCheckReducesConfidence(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAnemicPassing(store)
	engine := newTestEngine(store)

	prediction, err := engine.GetGamePrediction(context.Background(), 1, 2, 2024, nil, false)
	require.NoError(t, err)

	boundary := prediction.BoundaryValidation
	var passingCheck *models.StatBoundaryCheck
	for i := range boundary.StatChecks {
		if boundary.StatChecks[i].Statistic == "home_passing_yards" {
			passingCheck = &boundary.StatChecks[i]
		}
	}
	require.NotNil(t, passingCheck)

	// Projected 40 + (40-110) = -30 deviates more than 150% from the season
	// average of 40 and regresses halfway back to it.
	assert.True(t, passingCheck.WasAdjusted)
	assert.InDelta(t, 0.1, passingCheck.ConfidenceReduction, 1e-9)
	assert.InDelta(t, 5.0, passingCheck.AdjustedValue, 1e-9)

	// The per-statistic penalty flows into the game's total reduction and
	// marks the prediction adjusted: min(0.7*0.1 + 0.3*0.1, 0.8) = 0.1.
	assert.True(t, boundary.IsAdjusted)
	assert.InDelta(t, 0.1, boundary.TotalConfidenceReduction, 1e-9)
	assert.Contains(t, boundary.AdjustmentReasons, passingCheck.AdjustmentReason)
}

func TestWinProbability(t *testing.T) {
	// An even matchup is a coin flip regardless of damping.
	assert.InDelta(t, 50.0, winProbability(0, models.ConfidenceHigh, 0.5), 1e-9)
	assert.InDelta(t, 50.0, winProbability(0, models.ConfidenceLow, 0.0), 1e-9)

	// Monotonic in the differential for fixed damping.
	prev := 0.0
	for _, diff := range []float64{-20, -10, -3, 0, 3, 10, 20} {
		p := winProbability(diff, models.ConfidenceMedium, 0.4)
		if prev != 0 {
			assert.GreaterOrEqual(t, p, prev)
		}
		prev = p
	}

	// Clamped to [5,95] at the extremes.
	assert.Equal(t, 95.0, winProbability(100, models.ConfidenceHigh, 1.0))
	assert.Equal(t, 5.0, winProbability(-100, models.ConfidenceHigh, 1.0))

	// Lower confidence damps the same differential toward 50.
	strong := winProbability(6, models.ConfidenceHigh, 0.7)
	weak := winProbability(6, models.ConfidenceLow, 0.7)
	assert.Greater(t, strong, weak)
}

func TestOverallConfidence(t *testing.T) {
	full := models.StatisticalConfidence{ModelRSquared: 0.5, CombinedGames: 16}
	assert.InDelta(t, 95.0, overallConfidence(models.ConfidenceHigh, full, 0, 0.5), 1e-9)

	// No model, no sample, unstable estimates: bottoms out at the floor.
	empty := models.StatisticalConfidence{}
	assert.InDelta(t, 20.0, overallConfidence(models.ConfidenceLow, empty, 0, 0), 1e-9)

	// Boundary penalties subtract proportionally.
	penalized := overallConfidence(models.ConfidenceHigh, full, maxConfidenceReduction, 0.5)
	assert.InDelta(t, 95.0-30.0, penalized, 1e-9)
}
