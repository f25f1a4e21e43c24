package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/gridironlabs/gridiron-predict/internal/storage"
	"github.com/gridironlabs/gridiron-predict/pkg/logger"
)

// SeasonRunSummary reports one season-wide processing run. A team failure
// never aborts the rest of the batch; it lands here instead.
type SeasonRunSummary struct {
	Season         int           `json:"season"`
	TeamsProcessed int           `json:"teams_processed"`
	TeamsFailed    int           `json:"teams_failed"`
	Failures       []TeamFailure `json:"failures,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
}

// TeamFailure records one isolated per-team error.
type TeamFailure struct {
	TeamID uint   `json:"team_id"`
	Error  string `json:"error"`
}

// SeasonProcessor recomputes every team's efficiency profile for a season in
// small batches, with a short delay between batches so the backing store is
// not overwhelmed. Store reads go through a circuit breaker.
type SeasonProcessor struct {
	games      storage.GameStore
	calculator *EfficiencyCalculator
	breaker    *gobreaker.CircuitBreaker
	batchSize  int
	batchDelay time.Duration
	logger     *logrus.Logger
}

func NewSeasonProcessor(
	games storage.GameStore,
	calculator *EfficiencyCalculator,
	breakerThreshold int,
	batchSize int,
	batchDelay time.Duration,
	logger *logrus.Logger,
) *SeasonProcessor {
	settings := gobreaker.Settings{
		Name:        "season-store",
		MaxRequests: uint32(breakerThreshold),
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "season_processor",
				"breaker":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	if batchSize <= 0 {
		batchSize = 10
	}

	return &SeasonProcessor{
		games:      games,
		calculator: calculator,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		batchSize:  batchSize,
		batchDelay: batchDelay,
		logger:     logger,
	}
}

// ProcessSeason recomputes efficiency profiles for every team that appears
// in the season's completed games.
func (s *SeasonProcessor) ProcessSeason(ctx context.Context, season int) (*SeasonRunSummary, error) {
	summary := &SeasonRunSummary{
		Season:    season,
		StartedAt: time.Now().UTC(),
	}

	loaded, err := s.breaker.Execute(func() (interface{}, error) {
		return LoadSeasonData(ctx, s.games, season)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load season %d: %w", season, err)
	}
	data := loaded.(*SeasonData)

	teamIDs := data.TeamIDs()
	logger.WithComponent(s.logger, "season_processor").WithFields(logrus.Fields{
		"season":     season,
		"team_count": len(teamIDs),
		"batch_size": s.batchSize,
	}).Info("Starting season processing run")

	for start := 0; start < len(teamIDs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(teamIDs) {
			end = len(teamIDs)
		}
		for _, teamID := range teamIDs[start:end] {
			if err := s.processTeam(ctx, data, teamID); err != nil {
				summary.TeamsFailed++
				summary.Failures = append(summary.Failures, TeamFailure{
					TeamID: teamID,
					Error:  err.Error(),
				})
				logger.WithTeamContext(s.logger, teamID, season).WithError(err).
					Error("Team processing failed, continuing batch")
				continue
			}
			summary.TeamsProcessed++
		}
		if end < len(teamIDs) && s.batchDelay > 0 {
			time.Sleep(s.batchDelay)
		}
	}

	summary.FinishedAt = time.Now().UTC()
	logger.WithComponent(s.logger, "season_processor").WithFields(logrus.Fields{
		"season":    season,
		"processed": summary.TeamsProcessed,
		"failed":    summary.TeamsFailed,
	}).Info("Season processing run finished")

	return summary, nil
}

// processTeam isolates per-team failures, including panics from bad data.
func (s *SeasonProcessor) processTeam(ctx context.Context, data *SeasonData, teamID uint) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing team %d: %v", teamID, r)
		}
	}()
	_, err = s.calculator.ComputeAndStore(ctx, data, teamID)
	return err
}
