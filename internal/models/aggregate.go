package models

import "time"

// TeamSeasonAggregate is the per team+season rollup of raw box-score lines.
// Derived data: recomputed from scratch when new games land, replaced rather
// than mutated.
type TeamSeasonAggregate struct {
	TeamID int `json:"team_id"`
	Season int `json:"season"`

	GamesPlayed    int `json:"games_played"`
	GamesWithStats int `json:"games_with_stats"`

	TotalPoints        int     `json:"total_points"`
	TotalPointsAllowed int     `json:"total_points_allowed"`
	AvgPoints          float64 `json:"avg_points"`
	AvgPointsAllowed   float64 `json:"avg_points_allowed"`
	ScoringStdDev      float64 `json:"scoring_std_dev"`

	TotalPassingYards int     `json:"total_passing_yards"`
	TotalRushingYards int     `json:"total_rushing_yards"`
	TotalYards        int     `json:"total_yards"`
	AvgPassingYards   float64 `json:"avg_passing_yards"`
	AvgRushingYards   float64 `json:"avg_rushing_yards"`
	AvgTotalYards     float64 `json:"avg_total_yards"`

	TotalTurnovers     int     `json:"total_turnovers"`
	TotalSacks         int     `json:"total_sacks"`
	TotalInterceptions int     `json:"total_interceptions"`
	AvgTurnovers       float64 `json:"avg_turnovers"`
	AvgSacks           float64 `json:"avg_sacks"`
	AvgInterceptions   float64 `json:"avg_interceptions"`

	TotalFieldGoalsMade      int     `json:"total_field_goals_made"`
	TotalFieldGoalsAttempted int     `json:"total_field_goals_attempted"`
	AvgFieldGoalsMade        float64 `json:"avg_field_goals_made"`

	ThirdDownAttempts    int     `json:"third_down_attempts"`
	ThirdDownConversions int     `json:"third_down_conversions"`
	ThirdDownPct         float64 `json:"third_down_pct"`
	RedZoneAttempts      int     `json:"red_zone_attempts"`
	RedZoneConversions   int     `json:"red_zone_conversions"`
	RedZonePct           float64 `json:"red_zone_pct"`

	AvgPossessionSeconds float64 `json:"avg_possession_seconds"`

	Quality DataQualityReport `json:"quality"`

	ComputedAt time.Time `json:"computed_at"`
}

// IsEmpty reports whether the aggregate covers zero games, meaning
// downstream stages should fall back to league baselines.
func (a TeamSeasonAggregate) IsEmpty() bool {
	return a.GamesPlayed == 0
}

// DataQuality tiers for a team-season's raw statistics.
type DataQuality string

const (
	DataQualityExcellent    DataQuality = "excellent"
	DataQualityGood         DataQuality = "good"
	DataQualityLimited      DataQuality = "limited"
	DataQualityInsufficient DataQuality = "insufficient"
)

// DataQualityReport scores how complete a team-season's raw data is.
type DataQualityReport struct {
	CompletenessScore float64     `json:"completeness_score"`
	Tier              DataQuality `json:"tier"`
	GamesPlayed       int         `json:"games_played"`
	GamesWithStats    int         `json:"games_with_stats"`
	MissingFields     int         `json:"missing_fields"`
	MaxMissingFields  int         `json:"max_missing_fields"`
}
