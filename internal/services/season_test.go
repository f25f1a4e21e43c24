package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

func TestProcessSeasonStoresAllProfiles(t *testing.T) {
	store := storage.NewMemoryStore()
	seedRoundRobin(store)

	log := logrus.New()
	calculator := NewEfficiencyCalculator(store, store, nil, NewStatsAggregator(log), league.Defaults(), 0, log)
	processor := NewSeasonProcessor(store, calculator, 5, 2, 0, log)

	summary, err := processor.ProcessSeason(context.Background(), 2024)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TeamsProcessed)
	assert.Zero(t, summary.TeamsFailed)
	assert.Empty(t, summary.Failures)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	for _, teamID := range []uint{1, 2, 3, 4} {
		profile, err := store.GetProfile(context.Background(), 2024, teamID)
		require.NoError(t, err)
		assert.Equal(t, 3, profile.GamesPlayed)
	}
}

func TestProcessSeasonEmptySeason(t *testing.T) {
	store := storage.NewMemoryStore()
	log := logrus.New()
	calculator := NewEfficiencyCalculator(store, store, nil, NewStatsAggregator(log), league.Defaults(), 0, log)
	processor := NewSeasonProcessor(store, calculator, 5, 10, 0, log)

	summary, err := processor.ProcessSeason(context.Background(), 2024)
	require.NoError(t, err)
	assert.Zero(t, summary.TeamsProcessed)
	assert.Zero(t, summary.TeamsFailed)
}
