package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/pkg/database"
)

// PostgresStore implements Store on top of GORM/Postgres.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CompletedGames(ctx context.Context, season int) ([]models.Game, error) {
	var games []models.Game
	err := s.db.WithContext(ctx).
		Where("season = ? AND completed = ?", season, true).
		Order("game_date ASC, id ASC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load completed games: %w", err)
	}
	return games, nil
}

func (s *PostgresStore) GamesForWeek(ctx context.Context, season, week int) ([]models.Game, error) {
	var games []models.Game
	err := s.db.WithContext(ctx).
		Where("season = ? AND week = ?", season, week).
		Order("game_date ASC, id ASC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load week games: %w", err)
	}
	return games, nil
}

func (s *PostgresStore) GameStats(ctx context.Context, season int) ([]models.TeamGameStat, error) {
	var stats []models.TeamGameStat
	err := s.db.WithContext(ctx).
		Where("season = ?", season).
		Find(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load game stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) Teams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	return teams, nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, profile *models.TeamEfficiencyProfile) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "season"}, {Name: "team_id"}},
		UpdateAll: true,
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to upsert efficiency profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, season int, teamID uint) (*models.TeamEfficiencyProfile, error) {
	var profile models.TeamEfficiencyProfile
	err := s.db.WithContext(ctx).
		Where("season = ? AND team_id = ?", season, teamID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load efficiency profile: %w", err)
	}
	return &profile, nil
}

func (s *PostgresStore) LatestWeights(ctx context.Context, season int) (*models.PredictionWeights, error) {
	var weights models.PredictionWeights
	err := s.db.WithContext(ctx).
		Where("season = ?", season).
		Order("created_at DESC, id DESC").
		First(&weights).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest weights: %w", err)
	}
	return &weights, nil
}

func (s *PostgresStore) LatestWeightsBefore(ctx context.Context, season int) (*models.PredictionWeights, error) {
	var weights models.PredictionWeights
	err := s.db.WithContext(ctx).
		Where("season < ?", season).
		Order("season DESC, created_at DESC, id DESC").
		First(&weights).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load prior-season weights: %w", err)
	}
	return &weights, nil
}

func (s *PostgresStore) AppendWeights(ctx context.Context, weights *models.PredictionWeights, entry *models.WeightChangeEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(weights).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return fmt.Errorf("failed to append weight version: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, season int) ([]models.WeightChangeEntry, error) {
	var entries []models.WeightChangeEntry
	err := s.db.WithContext(ctx).
		Where("season = ?", season).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load weight history: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) AppendAnalysis(ctx context.Context, result *models.RegressionAnalysisResult) error {
	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to append regression analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestAnalysis(ctx context.Context, season int) (*models.RegressionAnalysisResult, error) {
	var result models.RegressionAnalysisResult
	err := s.db.WithContext(ctx).
		Where("season = ?", season).
		Order("created_at DESC, id DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest regression analysis: %w", err)
	}
	return &result, nil
}

func (s *PostgresStore) SavePrediction(ctx context.Context, prediction *models.GamePrediction) error {
	if err := s.db.WithContext(ctx).Create(prediction).Error; err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

func (s *PostgresStore) PredictionsForSeason(ctx context.Context, season int) ([]models.GamePrediction, error) {
	var predictions []models.GamePrediction
	err := s.db.WithContext(ctx).
		Where("season = ?", season).
		Order("created_at ASC").
		Find(&predictions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}
	return predictions, nil
}
