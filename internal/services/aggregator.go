package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/gridironlabs/gridiron-predict/internal/models"
)

// statFieldsPerGame counts the non-points box-score fields tracked per game,
// used to size the missing-field share of the completeness score.
const statFieldsPerGame = 13

// StatsAggregator rolls raw box-score lines into per-team-season aggregates.
type StatsAggregator struct {
	logger *logrus.Logger
}

func NewStatsAggregator(logger *logrus.Logger) *StatsAggregator {
	return &StatsAggregator{logger: logger}
}

// BuildAggregate produces the team-season aggregate from a season snapshot.
// Zero games is not an error: the caller gets a well-defined empty aggregate
// and downstream stages degrade to league-average fallbacks.
func (a *StatsAggregator) BuildAggregate(data *SeasonData, teamID uint) models.TeamSeasonAggregate {
	agg := models.TeamSeasonAggregate{
		TeamID:     int(teamID),
		Season:     data.Season,
		ComputedAt: time.Now().UTC(),
	}

	games := data.GamesFor(teamID)
	if len(games) == 0 {
		agg.Quality = buildQualityReport(0, 0, 0)
		a.logger.WithFields(logrus.Fields{
			"component": "aggregator",
			"team_id":   teamID,
			"season":    data.Season,
		}).Warn("No completed games found, returning empty aggregate")
		return agg
	}

	var pointsPerGame []float64
	fullGames := 0
	missingFields := 0

	for _, g := range games {
		agg.GamesPlayed++

		scored, allowed := g.ScoreFor(teamID)
		agg.TotalPoints += scored
		agg.TotalPointsAllowed += allowed
		pointsPerGame = append(pointsPerGame, float64(scored))

		own, hasOwn := data.Stat(g.ID, teamID)
		if !hasOwn {
			// No box score for the querying team: the game contributes
			// points only and every stat field counts as unobserved.
			missingFields += statFieldsPerGame
			continue
		}
		agg.GamesWithStats++

		if _, hasOpp := data.Stat(g.ID, g.OpponentOf(teamID)); !hasOpp {
			// Partial aggregation: without the opponent's line the stat
			// fields are not comparable, so they stay at their defaults
			// rather than being treated as observed zeros.
			missingFields += statFieldsPerGame
			continue
		}

		fullGames++
		agg.TotalPassingYards += own.PassingYards
		agg.TotalRushingYards += own.RushingYards
		agg.TotalYards += own.TotalYards
		agg.TotalTurnovers += own.Turnovers
		agg.TotalSacks += own.Sacks
		agg.TotalInterceptions += own.Interceptions
		agg.TotalFieldGoalsMade += own.FieldGoalsMade
		agg.TotalFieldGoalsAttempted += own.FieldGoalsAttempted
		agg.ThirdDownAttempts += own.ThirdDownAttempts
		agg.ThirdDownConversions += own.ThirdDownConversions
		agg.RedZoneAttempts += own.RedZoneAttempts
		agg.RedZoneConversions += own.RedZoneConversions
		agg.AvgPossessionSeconds += float64(own.TimeOfPossessionSeconds)
	}

	n := float64(agg.GamesPlayed)
	agg.AvgPoints = float64(agg.TotalPoints) / n
	agg.AvgPointsAllowed = float64(agg.TotalPointsAllowed) / n
	if len(pointsPerGame) > 1 {
		agg.ScoringStdDev = stat.StdDev(pointsPerGame, nil)
	}

	if fullGames > 0 {
		fn := float64(fullGames)
		agg.AvgPassingYards = float64(agg.TotalPassingYards) / fn
		agg.AvgRushingYards = float64(agg.TotalRushingYards) / fn
		agg.AvgTotalYards = float64(agg.TotalYards) / fn
		agg.AvgTurnovers = float64(agg.TotalTurnovers) / fn
		agg.AvgSacks = float64(agg.TotalSacks) / fn
		agg.AvgInterceptions = float64(agg.TotalInterceptions) / fn
		agg.AvgFieldGoalsMade = float64(agg.TotalFieldGoalsMade) / fn
		agg.AvgPossessionSeconds = agg.AvgPossessionSeconds / fn
	}
	if agg.ThirdDownAttempts > 0 {
		agg.ThirdDownPct = float64(agg.ThirdDownConversions) / float64(agg.ThirdDownAttempts)
	}
	if agg.RedZoneAttempts > 0 {
		agg.RedZonePct = float64(agg.RedZoneConversions) / float64(agg.RedZoneAttempts)
	}

	agg.Quality = buildQualityReport(agg.GamesPlayed, agg.GamesWithStats, missingFields)

	a.logger.WithFields(logrus.Fields{
		"component":        "aggregator",
		"team_id":          teamID,
		"season":           data.Season,
		"games_played":     agg.GamesPlayed,
		"games_with_stats": agg.GamesWithStats,
		"quality":          agg.Quality.Tier,
	}).Debug("Built team season aggregate")

	return agg
}

// buildQualityReport scores completeness as 70% game coverage and 30% field
// coverage, then maps the score and game count onto a quality tier.
func buildQualityReport(gamesPlayed, gamesWithStats, missingFields int) models.DataQualityReport {
	report := models.DataQualityReport{
		GamesPlayed:      gamesPlayed,
		GamesWithStats:   gamesWithStats,
		MissingFields:    missingFields,
		MaxMissingFields: gamesPlayed * statFieldsPerGame,
		Tier:             models.DataQualityInsufficient,
	}
	if gamesPlayed == 0 {
		return report
	}

	gameShare := float64(gamesWithStats) / float64(gamesPlayed)
	fieldShare := float64(report.MaxMissingFields-missingFields) / float64(report.MaxMissingFields)
	report.CompletenessScore = 100 * (0.7*gameShare + 0.3*fieldShare)

	switch {
	case gamesWithStats >= 8 && report.CompletenessScore >= 90:
		report.Tier = models.DataQualityExcellent
	case gamesWithStats >= 5 && report.CompletenessScore >= 70:
		report.Tier = models.DataQualityGood
	case gamesWithStats >= 3 && report.CompletenessScore >= 50:
		report.Tier = models.DataQualityLimited
	}
	return report
}
