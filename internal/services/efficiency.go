package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

// EfficiencyCalculator turns raw season data into opponent-relative
// efficiency profiles. Every value it produces is a delta against what the
// opponent typically allows or scores in its other games, which removes
// strength-of-schedule bias: beating a weak offense by a small margin is
// weighted differently than beating a strong one by the same margin.
type EfficiencyCalculator struct {
	games      storage.GameStore
	profiles   storage.ProfileStore
	cache      *CacheService
	aggregator *StatsAggregator
	baselines  league.Baselines
	cacheTTL   time.Duration
	logger     *logrus.Logger
}

func NewEfficiencyCalculator(
	games storage.GameStore,
	profiles storage.ProfileStore,
	cache *CacheService,
	aggregator *StatsAggregator,
	baselines league.Baselines,
	cacheTTL time.Duration,
	logger *logrus.Logger,
) *EfficiencyCalculator {
	return &EfficiencyCalculator{
		games:      games,
		profiles:   profiles,
		cache:      cache,
		aggregator: aggregator,
		baselines:  baselines,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// GetTeamEfficiencyProfile returns the profile for (teamID, season), from
// cache when fresh, otherwise recomputed from the season's raw data and
// upserted.
func (e *EfficiencyCalculator) GetTeamEfficiencyProfile(ctx context.Context, teamID uint, season int) (*models.TeamEfficiencyProfile, error) {
	cacheKey := ProfileCacheKey(season, teamID)
	if e.cache != nil {
		var cached models.TeamEfficiencyProfile
		if err := e.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	data, err := LoadSeasonData(ctx, e.games, season)
	if err != nil {
		return nil, err
	}

	profile := e.ComputeProfile(data, teamID)
	if err := e.profiles.UpsertProfile(ctx, &profile); err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, cacheKey, profile, e.cacheTTL); err != nil {
			e.logger.WithError(err).Warn("Failed to cache efficiency profile")
		}
	}
	return &profile, nil
}

// ComputeAndStore recomputes one team's profile against an already-loaded
// season snapshot. Used by the season batch processor so teams in a batch
// share one snapshot.
func (e *EfficiencyCalculator) ComputeAndStore(ctx context.Context, data *SeasonData, teamID uint) (*models.TeamEfficiencyProfile, error) {
	profile := e.ComputeProfile(data, teamID)
	if err := e.profiles.UpsertProfile(ctx, &profile); err != nil {
		return nil, err
	}
	if e.cache != nil {
		if err := e.cache.Set(ctx, ProfileCacheKey(data.Season, teamID), profile, e.cacheTTL); err != nil {
			e.logger.WithError(err).Warn("Failed to cache efficiency profile")
		}
	}
	return &profile, nil
}

// ComputeProfile is the pure calculation: per game, the team's output minus
// what the opponent typically allows in its other games (offense), and what
// the opponent typically scores minus what the team allowed (defense), all
// averaged across the team's games.
func (e *EfficiencyCalculator) ComputeProfile(data *SeasonData, teamID uint) models.TeamEfficiencyProfile {
	profile := models.TeamEfficiencyProfile{
		TeamID:      teamID,
		Season:      data.Season,
		DataQuality: models.DataQualityInsufficient,
	}

	games := data.GamesFor(teamID)
	agg := e.aggregator.BuildAggregate(data, teamID)
	profile.GamesPlayed = agg.GamesWithStats
	profile.DataQuality = agg.Quality.Tier

	if len(games) == 0 {
		profile.ConfidenceLevel = models.ConfidenceLow
		return profile
	}

	deltaSums := make(map[string]float64)
	deltaCounts := make(map[string]int)
	var scoringDeltas []float64

	for _, g := range games {
		oppID := g.OpponentOf(teamID)

		// Scoring comes from the game record, so it survives missing box
		// scores (partial aggregation).
		scored, allowed := g.ScoreFor(teamID)
		typicalAllowed := e.opponentTypicalAllowed(data, oppID, league.CategoryScoringOffense, g.ID)
		typicalScored := e.opponentTypicalScored(data, oppID, league.CategoryScoringOffense, g.ID)
		offDelta := float64(scored) - typicalAllowed
		defDelta := typicalScored - float64(allowed)
		deltaSums[league.CategoryScoringOffense] += offDelta
		deltaCounts[league.CategoryScoringOffense]++
		deltaSums[league.CategoryScoringDefense] += defDelta
		deltaCounts[league.CategoryScoringDefense]++
		scoringDeltas = append(scoringDeltas, offDelta)

		own, hasOwn := data.Stat(g.ID, teamID)
		opp, hasOpp := data.Stat(g.ID, oppID)
		if !hasOwn || !hasOpp {
			continue
		}

		for _, pair := range yardageCategoryPairs() {
			offTypical := e.opponentTypicalAllowed(data, oppID, pair.offense, g.ID)
			defTypical := e.opponentTypicalScored(data, oppID, pair.offense, g.ID)
			deltaSums[pair.offense] += boxCategoryValue(own, pair.offense) - offTypical
			deltaCounts[pair.offense]++
			deltaSums[pair.defense] += defTypical - boxCategoryValue(opp, pair.offense)
			deltaCounts[pair.defense]++
		}

		// Turnover margin: the margin the team achieved against what the
		// opponent's other opponents typically achieve against it.
		teamMargin := float64(opp.Turnovers - own.Turnovers)
		typicalMargin := e.opponentTypicalAllowedMargin(data, oppID, g.ID)
		deltaSums[league.CategoryTurnoverMargin] += teamMargin - typicalMargin
		deltaCounts[league.CategoryTurnoverMargin]++

		// Special teams points against what the opponent typically allows.
		stTypical := e.opponentTypicalAllowed(data, oppID, league.CategorySpecialTeams, g.ID)
		deltaSums[league.CategorySpecialTeams] += own.SpecialTeamsPoints() - stTypical
		deltaCounts[league.CategorySpecialTeams]++
	}

	for _, c := range league.Categories() {
		if deltaCounts[c] > 0 {
			profile.SetValue(c, deltaSums[c]/float64(deltaCounts[c]))
		}
	}

	profile.ConvergenceScore = convergenceScore(scoringDeltas)
	profile.ConfidenceLevel = confidenceFor(profile.DataQuality, profile.ConvergenceScore)

	e.logger.WithFields(logrus.Fields{
		"component":    "efficiency_calculator",
		"team_id":      teamID,
		"season":       data.Season,
		"games_played": profile.GamesPlayed,
		"data_quality": profile.DataQuality,
		"convergence":  profile.ConvergenceScore,
	}).Debug("Computed efficiency profile")

	return profile
}

type categoryPair struct {
	offense string
	defense string
}

func yardageCategoryPairs() []categoryPair {
	return []categoryPair{
		{offense: league.CategoryPassingOffense, defense: league.CategoryPassingDefense},
		{offense: league.CategoryRushingOffense, defense: league.CategoryRushingDefense},
	}
}

// boxCategoryValue extracts a category's per-game value from a box-score row.
func boxCategoryValue(s models.TeamGameStat, category string) float64 {
	switch category {
	case league.CategoryPassingOffense:
		return float64(s.PassingYards)
	case league.CategoryRushingOffense:
		return float64(s.RushingYards)
	case league.CategoryScoringOffense:
		return float64(s.Points)
	case league.CategorySpecialTeams:
		return s.SpecialTeamsPoints()
	default:
		return 0
	}
}

// opponentTypicalAllowed averages what the opponent allowed in a category
// across its other games this season (excluding the current game). With no
// other observable games it substitutes the league baseline.
func (e *EfficiencyCalculator) opponentTypicalAllowed(data *SeasonData, oppID uint, category string, excludeGameID uint) float64 {
	sum, count := 0.0, 0
	for _, g := range data.GamesFor(oppID) {
		if g.ID == excludeGameID {
			continue
		}
		otherID := g.OpponentOf(oppID)
		if category == league.CategoryScoringOffense {
			scored, _ := g.ScoreFor(otherID)
			sum += float64(scored)
			count++
			continue
		}
		if st, ok := data.Stat(g.ID, otherID); ok {
			sum += boxCategoryValue(st, category)
			count++
		}
	}
	if count == 0 {
		return e.baselines.CategoryFallback(category)
	}
	return sum / float64(count)
}

// opponentTypicalScored averages the opponent's own output in a category
// across its other games this season.
func (e *EfficiencyCalculator) opponentTypicalScored(data *SeasonData, oppID uint, category string, excludeGameID uint) float64 {
	sum, count := 0.0, 0
	for _, g := range data.GamesFor(oppID) {
		if g.ID == excludeGameID {
			continue
		}
		if category == league.CategoryScoringOffense {
			scored, _ := g.ScoreFor(oppID)
			sum += float64(scored)
			count++
			continue
		}
		if st, ok := data.Stat(g.ID, oppID); ok {
			sum += boxCategoryValue(st, category)
			count++
		}
	}
	if count == 0 {
		return e.baselines.CategoryFallback(category)
	}
	return sum / float64(count)
}

// opponentTypicalAllowedMargin averages the turnover margin the opponent's
// other opponents achieved against it.
func (e *EfficiencyCalculator) opponentTypicalAllowedMargin(data *SeasonData, oppID uint, excludeGameID uint) float64 {
	sum, count := 0.0, 0
	for _, g := range data.GamesFor(oppID) {
		if g.ID == excludeGameID {
			continue
		}
		otherID := g.OpponentOf(oppID)
		oppStat, okOpp := data.Stat(g.ID, oppID)
		otherStat, okOther := data.Stat(g.ID, otherID)
		if !okOpp || !okOther {
			continue
		}
		sum += float64(oppStat.Turnovers - otherStat.Turnovers)
		count++
	}
	if count == 0 {
		return e.baselines.CategoryFallback(league.CategoryTurnoverMargin)
	}
	return sum / float64(count)
}

// convergenceScore maps the stability of per-game scoring deltas onto [0,1].
// More games and tighter deltas converge toward 1.
func convergenceScore(scoringDeltas []float64) float64 {
	n := len(scoringDeltas)
	if n == 0 {
		return 0
	}
	gamesFactor := math.Min(1.0, float64(n)/8.0)
	if n == 1 {
		return 0.3 * gamesFactor
	}
	sd := stat.StdDev(scoringDeltas, nil)
	stability := 1.0 - sd/25.0
	if stability < 0 {
		stability = 0
	}
	score := gamesFactor * stability
	if score > 1 {
		score = 1
	}
	return score
}

// confidenceFor maps data quality and convergence onto a confidence level.
func confidenceFor(quality models.DataQuality, convergence float64) models.ConfidenceLevel {
	switch {
	case (quality == models.DataQualityExcellent || quality == models.DataQualityGood) && convergence >= 0.6:
		return models.ConfidenceHigh
	case quality != models.DataQualityInsufficient && convergence >= 0.35:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
