package models

import "time"

type Team struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"not null" json:"name"`
	Abbr       string `gorm:"index" json:"abbr"`
	Conference string `json:"conference"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}

type Game struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Season        int       `gorm:"index:idx_games_season;not null" json:"season"`
	Week          int       `json:"week"`
	HomeTeamID    uint      `gorm:"index" json:"home_team_id"`
	AwayTeamID    uint      `gorm:"index" json:"away_team_id"`
	HomeScore     int       `json:"home_score"`
	AwayScore     int       `json:"away_score"`
	Completed     bool      `gorm:"default:false" json:"completed"`
	IsNeutralSite bool      `gorm:"default:false" json:"is_neutral_site"`
	GameDate      time.Time `json:"game_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Game) TableName() string {
	return "games"
}

// Involves reports whether the team played in this game.
func (g Game) Involves(teamID uint) bool {
	return g.HomeTeamID == teamID || g.AwayTeamID == teamID
}

// OpponentOf returns the other side of the matchup, or 0 when the team did
// not play in this game.
func (g Game) OpponentOf(teamID uint) uint {
	switch teamID {
	case g.HomeTeamID:
		return g.AwayTeamID
	case g.AwayTeamID:
		return g.HomeTeamID
	default:
		return 0
	}
}

// ScoreFor returns (points scored, points allowed) for the team.
func (g Game) ScoreFor(teamID uint) (int, int) {
	if teamID == g.HomeTeamID {
		return g.HomeScore, g.AwayScore
	}
	return g.AwayScore, g.HomeScore
}

// Margin returns home score minus away score.
func (g Game) Margin() int {
	return g.HomeScore - g.AwayScore
}

// TeamGameStat is one team's box-score line for one game. Immutable once
// ingested; the ingestion job owns writes.
type TeamGameStat struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	GameID uint `gorm:"index:idx_stats_game_team,unique" json:"game_id"`
	TeamID uint `gorm:"index:idx_stats_game_team,unique" json:"team_id"`
	Season int  `gorm:"index" json:"season"`

	PassingYards int `json:"passing_yards"`
	RushingYards int `json:"rushing_yards"`
	TotalYards   int `json:"total_yards"`
	Points       int `json:"points"`

	Turnovers     int `json:"turnovers"`
	Sacks         int `json:"sacks"`
	Interceptions int `json:"interceptions"`

	FieldGoalsMade      int `json:"field_goals_made"`
	FieldGoalsAttempted int `json:"field_goals_attempted"`

	ThirdDownAttempts    int `json:"third_down_attempts"`
	ThirdDownConversions int `json:"third_down_conversions"`
	RedZoneAttempts      int `json:"red_zone_attempts"`
	RedZoneConversions   int `json:"red_zone_conversions"`

	TimeOfPossessionSeconds int `json:"time_of_possession_seconds"`

	CreatedAt time.Time `json:"created_at"`
}

func (TeamGameStat) TableName() string {
	return "team_game_stats"
}

// SpecialTeamsPoints is the points attributable to the kicking game.
func (s TeamGameStat) SpecialTeamsPoints() float64 {
	return float64(s.FieldGoalsMade) * 3.0
}
