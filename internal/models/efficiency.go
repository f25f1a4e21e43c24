package models

import (
	"time"

	"github.com/gridironlabs/gridiron-predict/internal/league"
)

// ConfidenceLevel grades how much trust the pipeline places in a team's
// efficiency estimate.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Multiplier is the win-probability damping factor for the level.
func (c ConfidenceLevel) Multiplier() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.85
	default:
		return 0.7
	}
}

// BaseScore is the starting point for the 0-100 overall prediction
// confidence.
func (c ConfidenceLevel) BaseScore() float64 {
	switch c {
	case ConfidenceHigh:
		return 85
	case ConfidenceMedium:
		return 70
	default:
		return 50
	}
}

// Weaker returns the lower of two confidence levels.
func (c ConfidenceLevel) Weaker(other ConfidenceLevel) ConfidenceLevel {
	rank := map[ConfidenceLevel]int{ConfidenceHigh: 2, ConfidenceMedium: 1, ConfidenceLow: 0}
	if rank[other] < rank[c] {
		return other
	}
	return c
}

// TeamEfficiencyProfile holds a team-season's opponent-adjusted efficiency
// values. Every value is an additive points/yards delta against what the
// team's opponents typically allow or score, not a ratio, so +7 means seven
// points or yards better than a typical opponent independent of schedule
// strength. Keyed uniquely by (season, team_id); recomputed and upserted
// whenever season statistics change.
type TeamEfficiencyProfile struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	TeamID uint `gorm:"uniqueIndex:idx_profile_season_team" json:"team_id"`
	Season int  `gorm:"uniqueIndex:idx_profile_season_team" json:"season"`

	PassingOffense float64 `json:"passing_offense"`
	RushingOffense float64 `json:"rushing_offense"`
	ScoringOffense float64 `json:"scoring_offense"`
	PassingDefense float64 `json:"passing_defense"`
	RushingDefense float64 `json:"rushing_defense"`
	ScoringDefense float64 `json:"scoring_defense"`
	TurnoverMargin float64 `json:"turnover_margin"`
	SpecialTeams   float64 `json:"special_teams"`

	GamesPlayed      int             `json:"games_played"`
	DataQuality      DataQuality     `json:"data_quality"`
	ConfidenceLevel  ConfidenceLevel `json:"confidence_level"`
	ConvergenceScore float64         `json:"convergence_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamEfficiencyProfile) TableName() string {
	return "team_efficiency_profiles"
}

// Value returns the efficiency for a named category.
func (p TeamEfficiencyProfile) Value(category string) float64 {
	switch category {
	case league.CategoryPassingOffense:
		return p.PassingOffense
	case league.CategoryRushingOffense:
		return p.RushingOffense
	case league.CategoryScoringOffense:
		return p.ScoringOffense
	case league.CategoryPassingDefense:
		return p.PassingDefense
	case league.CategoryRushingDefense:
		return p.RushingDefense
	case league.CategoryScoringDefense:
		return p.ScoringDefense
	case league.CategoryTurnoverMargin:
		return p.TurnoverMargin
	case league.CategorySpecialTeams:
		return p.SpecialTeams
	default:
		return 0
	}
}

// SetValue assigns the efficiency for a named category.
func (p *TeamEfficiencyProfile) SetValue(category string, v float64) {
	switch category {
	case league.CategoryPassingOffense:
		p.PassingOffense = v
	case league.CategoryRushingOffense:
		p.RushingOffense = v
	case league.CategoryScoringOffense:
		p.ScoringOffense = v
	case league.CategoryPassingDefense:
		p.PassingDefense = v
	case league.CategoryRushingDefense:
		p.RushingDefense = v
	case league.CategoryScoringDefense:
		p.ScoringDefense = v
	case league.CategoryTurnoverMargin:
		p.TurnoverMargin = v
	case league.CategorySpecialTeams:
		p.SpecialTeams = v
	}
}

// WorstCategory returns the minimum efficiency value across all categories.
func (p TeamEfficiencyProfile) WorstCategory() (string, float64) {
	worstName := ""
	worst := 0.0
	for i, c := range league.Categories() {
		v := p.Value(c)
		if i == 0 || v < worst {
			worst = v
			worstName = c
		}
	}
	return worstName, worst
}
