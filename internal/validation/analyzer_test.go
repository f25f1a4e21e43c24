package validation

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/services"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		totalError    float64
		confidence    float64
		modelRSquared float64
		want          string
	}{
		{"small miss is noise", 10, 80, 0.5, ErrorStatisticalNoise},
		{"boundary of noise", 14, 80, 0.5, ErrorStatisticalNoise},
		{"big miss at low confidence", 30, 45, 0.5, ErrorModelLimitation},
		{"big confident miss with weak model", 30, 80, 0.2, ErrorDataQuality},
		{"big confident miss with good model", 30, 80, 0.5, ErrorSystematicBias},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.totalError, tt.confidence, tt.modelRSquared))
		})
	}
}

func TestClassifyStratum(t *testing.T) {
	tests := []struct {
		name string
		home int
		away int
		want string
	}{
		{"one-score game", 24, 21, StratumClose},
		{"exact touchdown margin", 28, 21, StratumClose},
		{"home blowout", 45, 10, StratumBlowout},
		{"road upset", 10, 24, StratumUpset},
		// An away blowout is also an away win by more than ten; the upset
		// heuristic takes priority.
		{"away blowout counts as upset", 3, 38, StratumUpset},
		{"two-score home win", 31, 17, StratumRegular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := models.Game{HomeScore: tt.home, AwayScore: tt.away}
			assert.Equal(t, tt.want, classifyStratum(g))
		})
	}
}

func TestStratifiedSampleDeterministic(t *testing.T) {
	games := make([]models.Game, 0, 40)
	for i := 0; i < 40; i++ {
		games = append(games, models.Game{
			ID:        uint(i + 1),
			HomeScore: 20 + i%25,
			AwayScore: 20,
		})
	}

	first := stratifiedSample(games, 10, 2024)
	second := stratifiedSample(games, 10, 2024)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].game.ID, second[i].game.ID)
		assert.Equal(t, first[i].stratum, second[i].stratum)
	}
}

func TestStratifiedSampleBackfillsSmallStrata(t *testing.T) {
	// All regular games: the close/blowout/upset quotas cannot be met, so
	// the sample backfills from what exists.
	games := make([]models.Game, 0, 12)
	for i := 0; i < 12; i++ {
		games = append(games, models.Game{ID: uint(i + 1), HomeScore: 31, AwayScore: 17})
	}

	sample := stratifiedSample(games, 8, 2024)
	assert.Len(t, sample, 8)

	seen := map[uint]bool{}
	for _, s := range sample {
		assert.False(t, seen[s.game.ID], "game sampled twice")
		seen[s.game.ID] = true
	}
}

func seedAnalyzerSeason(store *storage.MemoryStore) {
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
		store.AddStats(
			models.TeamGameStat{GameID: g.ID, TeamID: g.HomeTeamID, Season: 2024, PassingYards: 200 + g.HomeScore, RushingYards: 110, TotalYards: 310 + g.HomeScore, Points: g.HomeScore, Turnovers: 1, FieldGoalsMade: 1},
			models.TeamGameStat{GameID: g.ID, TeamID: g.AwayTeamID, Season: 2024, PassingYards: 200 + g.AwayScore, RushingYards: 100, TotalYards: 300 + g.AwayScore, Points: g.AwayScore, Turnovers: 1, FieldGoalsMade: 1},
		)
	}
}

func newAnalyzerFixture(store *storage.MemoryStore) *SampleGameAnalyzer {
	log := logrus.New()
	baselines := league.Defaults()
	vlog := NewValidationLogger(log, 100)

	aggregator := services.NewStatsAggregator(log)
	calculator := services.NewEfficiencyCalculator(store, store, nil, aggregator, baselines, 0, log)
	manager := services.NewWeightManager(store, nil, baselines, services.WeightManagerConfig{
		SignificanceThreshold: 0.1,
		RSquaredThreshold:     0.2,
		ScaleFactor:           1.0,
		SumTolerance:          0.1,
	}, log)
	boundary := services.NewBoundaryValidator(services.BoundaryConfig{
		FloorPctHigh:     0.025,
		FloorPctMedium:   0.02,
		FloorPctLow:      0.01,
		CeilingMulHigh:   6,
		CeilingMulMedium: 9,
		CeilingMulLow:    12,
		LookbackSeasons:  3,
	}, baselines, log)
	engine := services.NewPredictionEngine(store, store, store, calculator, aggregator, manager, boundary,
		nil, NewTracer(vlog), baselines, 0, log)

	return NewSampleGameAnalyzer(store, engine, vlog, log)
}

func TestAnalyzeSampleGames(t *testing.T) {
	store := storage.NewMemoryStore()
	seedAnalyzerSeason(store)
	analyzer := newAnalyzerFixture(store)

	results, err := analyzer.AnalyzeSampleGames(context.Background(), 2024, 4)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for _, r := range results {
		assert.NotZero(t, r.GameID)
		assert.NotEmpty(t, r.Stratum)
		assert.GreaterOrEqual(t, r.TotalError, 0.0)
		assert.InDelta(t, r.HomeScoreError+r.AwayScoreError, r.TotalError, 1e-9)
		assert.NotEmpty(t, r.Explanations)
		if r.WinnerCorrect {
			assert.Empty(t, r.ErrorType)
		} else {
			assert.NotEmpty(t, r.ErrorType)
		}
	}
}

func TestAnalyzeSampleGamesNoSeason(t *testing.T) {
	analyzer := newAnalyzerFixture(storage.NewMemoryStore())

	_, err := analyzer.AnalyzeSampleGames(context.Background(), 2024, 5)
	assert.Error(t, err)
}
