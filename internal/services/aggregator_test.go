package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/gridironlabs/gridiron-predict/internal/models"
)

func TestBuildAggregatePartialData(t *testing.T) {
	games := []models.Game{
		{ID: 1, Season: 2024, Week: 1, HomeTeamID: 1, AwayTeamID: 2, HomeScore: 30, AwayScore: 20, Completed: true},
		{ID: 2, Season: 2024, Week: 2, HomeTeamID: 2, AwayTeamID: 1, HomeScore: 24, AwayScore: 27, Completed: true},
		{ID: 3, Season: 2024, Week: 3, HomeTeamID: 1, AwayTeamID: 4, HomeScore: 21, AwayScore: 28, Completed: true},
	}
	stats := []models.TeamGameStat{
		// Game 1 has both box scores, game 2 only team 1's, game 3 none.
		{GameID: 1, TeamID: 1, Season: 2024, PassingYards: 280, RushingYards: 120, TotalYards: 400, Points: 30, Turnovers: 1, FieldGoalsMade: 1},
		{GameID: 1, TeamID: 2, Season: 2024, PassingYards: 210, RushingYards: 90, TotalYards: 300, Points: 20, Turnovers: 2, FieldGoalsMade: 2},
		{GameID: 2, TeamID: 1, Season: 2024, PassingYards: 300, RushingYards: 100, TotalYards: 400, Points: 27},
	}

	aggregator := NewStatsAggregator(logrus.New())
	data := NewSeasonData(2024, games, stats)

	agg := aggregator.BuildAggregate(data, 1)

	assert.Equal(t, 3, agg.GamesPlayed)
	assert.Equal(t, 2, agg.GamesWithStats)

	// Points come from the game records, so all three games contribute.
	assert.Equal(t, 78, agg.TotalPoints)
	assert.Equal(t, 72, agg.TotalPointsAllowed)
	assert.InDelta(t, 26.0, agg.AvgPoints, 1e-9)
	assert.InDelta(t, 24.0, agg.AvgPointsAllowed, 1e-9)
	assert.Greater(t, agg.ScoringStdDev, 0.0)

	// Stat fields only accumulate from games where both box scores exist.
	assert.Equal(t, 280, agg.TotalPassingYards)
	assert.InDelta(t, 280.0, agg.AvgPassingYards, 1e-9)
	assert.Equal(t, 120, agg.TotalRushingYards)

	// One partial game and one game with no rows at all.
	assert.Equal(t, 2*statFieldsPerGame, agg.Quality.MissingFields)
	assert.InDelta(t, 100*(0.7*(2.0/3.0)+0.3*(13.0/39.0)), agg.Quality.CompletenessScore, 0.01)
	assert.Equal(t, models.DataQualityInsufficient, agg.Quality.Tier)
}

func TestBuildAggregateNoGames(t *testing.T) {
	aggregator := NewStatsAggregator(logrus.New())
	data := NewSeasonData(2024, nil, nil)

	agg := aggregator.BuildAggregate(data, 7)

	assert.True(t, agg.IsEmpty())
	assert.Equal(t, 0, agg.GamesPlayed)
	assert.Equal(t, models.DataQualityInsufficient, agg.Quality.Tier)
	assert.Zero(t, agg.AvgPoints)
}

func TestBuildQualityReportTiers(t *testing.T) {
	tests := []struct {
		name           string
		gamesPlayed    int
		gamesWithStats int
		missingFields  int
		wantTier       models.DataQuality
	}{
		{"full season", 10, 10, 0, models.DataQualityExcellent},
		{"mid season", 5, 5, 0, models.DataQualityGood},
		{"early season", 3, 3, 0, models.DataQualityLimited},
		{"sparse coverage", 10, 2, 8 * statFieldsPerGame, models.DataQualityInsufficient},
		{"no games", 0, 0, 0, models.DataQualityInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := buildQualityReport(tt.gamesPlayed, tt.gamesWithStats, tt.missingFields)
			assert.Equal(t, tt.wantTier, report.Tier)
		})
	}
}

func TestBuildQualityReportCompleteness(t *testing.T) {
	report := buildQualityReport(8, 8, 0)
	assert.InDelta(t, 100.0, report.CompletenessScore, 1e-9)

	// Half the games covered, half the fields observed.
	report = buildQualityReport(8, 4, 4*statFieldsPerGame)
	assert.InDelta(t, 100*(0.7*0.5+0.3*0.5), report.CompletenessScore, 1e-9)
}
