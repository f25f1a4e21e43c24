// Package storage defines the persistence boundary of the prediction
// pipeline. Services depend on these interfaces; the postgres implementation
// backs production and the in-memory implementation backs tests.
package storage

import (
	"context"
	"errors"

	"github.com/gridironlabs/gridiron-predict/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// GameStore reads game records and box-score rows owned by the ingestion
// collaborator.
type GameStore interface {
	// CompletedGames returns every game in the season with final scores.
	CompletedGames(ctx context.Context, season int) ([]models.Game, error)
	// GamesForWeek returns every game scheduled in a week, completed or not.
	GamesForWeek(ctx context.Context, season, week int) ([]models.Game, error)
	// GameStats returns every box-score row for the season.
	GameStats(ctx context.Context, season int) ([]models.TeamGameStat, error)
	// Teams returns team identity metadata.
	Teams(ctx context.Context) ([]models.Team, error)
}

// ProfileStore persists efficiency profiles with upsert semantics on
// (season, team_id).
type ProfileStore interface {
	UpsertProfile(ctx context.Context, profile *models.TeamEfficiencyProfile) error
	GetProfile(ctx context.Context, season int, teamID uint) (*models.TeamEfficiencyProfile, error)
}

// WeightStore persists weight versions and their append-only change history.
type WeightStore interface {
	// LatestWeights returns the newest weight version for the season.
	LatestWeights(ctx context.Context, season int) (*models.PredictionWeights, error)
	// LatestWeightsBefore returns the newest weight version from the most
	// recent season strictly before the given one.
	LatestWeightsBefore(ctx context.Context, season int) (*models.PredictionWeights, error)
	// AppendWeights stores a new version and its change entry together.
	AppendWeights(ctx context.Context, weights *models.PredictionWeights, entry *models.WeightChangeEntry) error
	// History returns the season's change entries in creation order.
	History(ctx context.Context, season int) ([]models.WeightChangeEntry, error)
}

// RegressionStore persists analysis runs append-only.
type RegressionStore interface {
	AppendAnalysis(ctx context.Context, result *models.RegressionAnalysisResult) error
	LatestAnalysis(ctx context.Context, season int) (*models.RegressionAnalysisResult, error)
}

// PredictionStore persists pipeline outputs for later outcome comparison.
type PredictionStore interface {
	SavePrediction(ctx context.Context, prediction *models.GamePrediction) error
	PredictionsForSeason(ctx context.Context, season int) ([]models.GamePrediction, error)
}

// Store bundles every persistence concern for wiring convenience.
type Store interface {
	GameStore
	ProfileStore
	WeightStore
	RegressionStore
	PredictionStore
}
