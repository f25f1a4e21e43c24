package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gridironlabs/gridiron-predict/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local experiments.
type MemoryStore struct {
	mu sync.RWMutex

	teams       []models.Team
	games       []models.Game
	stats       []models.TeamGameStat
	profiles    map[profileKey]models.TeamEfficiencyProfile
	weights     []models.PredictionWeights
	history     []models.WeightChangeEntry
	analyses    []models.RegressionAnalysisResult
	predictions []models.GamePrediction

	nextID uint
}

type profileKey struct {
	season int
	teamID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[profileKey]models.TeamEfficiencyProfile),
		nextID:   1,
	}
}

func (s *MemoryStore) allocID() uint {
	id := s.nextID
	s.nextID++
	return id
}

// AddTeams seeds team records.
func (s *MemoryStore) AddTeams(teams ...models.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = append(s.teams, teams...)
}

// AddGames seeds game records.
func (s *MemoryStore) AddGames(games ...models.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = append(s.games, games...)
}

// AddStats seeds box-score rows.
func (s *MemoryStore) AddStats(stats ...models.TeamGameStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = append(s.stats, stats...)
}

func (s *MemoryStore) CompletedGames(ctx context.Context, season int) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Game
	for _, g := range s.games {
		if g.Season == season && g.Completed {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GamesForWeek(ctx context.Context, season, week int) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Game
	for _, g := range s.games {
		if g.Season == season && g.Week == week {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GameStats(ctx context.Context, season int) ([]models.TeamGameStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TeamGameStat
	for _, st := range s.stats {
		if st.Season == season {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *MemoryStore) Teams(ctx context.Context) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Team, len(s.teams))
	copy(out, s.teams)
	return out, nil
}

func (s *MemoryStore) UpsertProfile(ctx context.Context, profile *models.TeamEfficiencyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := profileKey{season: profile.Season, teamID: profile.TeamID}
	if existing, ok := s.profiles[key]; ok {
		profile.ID = existing.ID
	} else if profile.ID == 0 {
		profile.ID = s.allocID()
	}
	profile.UpdatedAt = time.Now().UTC()
	s.profiles[key] = *profile
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, season int, teamID uint) (*models.TeamEfficiencyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[profileKey{season: season, teamID: teamID}]; ok {
		out := p
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) LatestWeights(ctx context.Context, season int) (*models.PredictionWeights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.weights) - 1; i >= 0; i-- {
		if s.weights[i].Season == season {
			out := s.weights[i]
			out.Weights = out.Weights.Clone()
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) LatestWeightsBefore(ctx context.Context, season int) (*models.PredictionWeights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := -1
	for i := len(s.weights) - 1; i >= 0; i-- {
		w := s.weights[i]
		if w.Season >= season {
			continue
		}
		if best == -1 || w.Season > s.weights[best].Season {
			best = i
		}
	}
	if best == -1 {
		return nil, ErrNotFound
	}
	out := s.weights[best]
	out.Weights = out.Weights.Clone()
	return &out, nil
}

func (s *MemoryStore) AppendWeights(ctx context.Context, weights *models.PredictionWeights, entry *models.WeightChangeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	weights.ID = s.allocID()
	if weights.CreatedAt.IsZero() {
		weights.CreatedAt = now
	}
	entry.ID = s.allocID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	stored := *weights
	stored.Weights = weights.Weights.Clone()
	s.weights = append(s.weights, stored)
	storedEntry := *entry
	storedEntry.PreviousWeights = entry.PreviousWeights.Clone()
	storedEntry.NewWeights = entry.NewWeights.Clone()
	s.history = append(s.history, storedEntry)
	return nil
}

func (s *MemoryStore) History(ctx context.Context, season int) ([]models.WeightChangeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.WeightChangeEntry
	for _, e := range s.history {
		if e.Season == season {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) AppendAnalysis(ctx context.Context, result *models.RegressionAnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = s.allocID()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	s.analyses = append(s.analyses, *result)
	return nil
}

func (s *MemoryStore) LatestAnalysis(ctx context.Context, season int) (*models.RegressionAnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].Season == season {
			out := s.analyses[i]
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SavePrediction(ctx context.Context, prediction *models.GamePrediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prediction.ID = s.allocID()
	if prediction.CreatedAt.IsZero() {
		prediction.CreatedAt = time.Now().UTC()
	}
	s.predictions = append(s.predictions, *prediction)
	return nil
}

func (s *MemoryStore) PredictionsForSeason(ctx context.Context, season int) ([]models.GamePrediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.GamePrediction
	for _, p := range s.predictions {
		if p.Season == season {
			out = append(out, p)
		}
	}
	return out, nil
}
