package league

// Baselines is the versioned table of league-average fallback values used
// whenever a team or opponent has no observable history. Every numeric
// fallback in the pipeline must come from here so it stays traceable and
// testable; nothing hard-codes a default inline.
type Baselines struct {
	Version string

	// Scoring
	PointsPerGame float64

	// Yardage
	PassingYardsPerGame float64
	RushingYardsPerGame float64
	TotalYardsPerGame   float64

	// Situational
	TurnoversPerGame       float64
	SacksPerGame           float64
	InterceptionsPerGame   float64
	FieldGoalsMadePerGame  float64
	FieldGoalAttemptsGame  float64
	ThirdDownConversionPct float64
	RedZoneConversionPct   float64
	PossessionSeconds      float64

	// HomeFieldPoints is the scale applied to the home-field weight when a
	// game is not at a neutral site.
	HomeFieldPoints float64

	// Weights is the hard-coded starting weight vector used when no
	// regression-derived weights exist for any season.
	Weights map[string]float64
}

// Efficiency category names. These are the keys of every weight vector and
// contribution breakdown in the system.
const (
	CategoryPassingOffense = "passing_offense"
	CategoryRushingOffense = "rushing_offense"
	CategoryScoringOffense = "scoring_offense"
	CategoryPassingDefense = "passing_defense"
	CategoryRushingDefense = "rushing_defense"
	CategoryScoringDefense = "scoring_defense"
	CategoryTurnoverMargin = "turnover_margin"
	CategorySpecialTeams   = "special_teams"

	// WeightHomeField sits alongside the category weights in a weight
	// vector but is excluded from the sum-to-one constraint.
	WeightHomeField = "home_field_advantage"
)

// Categories lists the efficiency categories in canonical order.
func Categories() []string {
	return []string{
		CategoryPassingOffense,
		CategoryRushingOffense,
		CategoryScoringOffense,
		CategoryPassingDefense,
		CategoryRushingDefense,
		CategoryScoringDefense,
		CategoryTurnoverMargin,
		CategorySpecialTeams,
	}
}

// Defaults returns the current baseline table.
func Defaults() Baselines {
	return Baselines{
		Version: "2024.1",

		PointsPerGame: 28.0,

		PassingYardsPerGame: 250.0,
		RushingYardsPerGame: 160.0,
		TotalYardsPerGame:   410.0,

		TurnoversPerGame:       1.4,
		SacksPerGame:           2.2,
		InterceptionsPerGame:   0.8,
		FieldGoalsMadePerGame:  1.5,
		FieldGoalAttemptsGame:  1.9,
		ThirdDownConversionPct: 0.40,
		RedZoneConversionPct:   0.60,
		PossessionSeconds:      1800.0,

		HomeFieldPoints: 2.5,

		Weights: map[string]float64{
			CategoryPassingOffense: 0.15,
			CategoryRushingOffense: 0.12,
			CategoryScoringOffense: 0.18,
			CategoryPassingDefense: 0.13,
			CategoryRushingDefense: 0.10,
			CategoryScoringDefense: 0.17,
			CategoryTurnoverMargin: 0.09,
			CategorySpecialTeams:   0.06,
			WeightHomeField:        1.0,
		},
	}
}

// CategoryFallback returns the league-average per-game value for a category,
// used when an opponent has no other observable games.
func (b Baselines) CategoryFallback(category string) float64 {
	switch category {
	case CategoryPassingOffense, CategoryPassingDefense:
		return b.PassingYardsPerGame
	case CategoryRushingOffense, CategoryRushingDefense:
		return b.RushingYardsPerGame
	case CategoryScoringOffense, CategoryScoringDefense:
		return b.PointsPerGame
	case CategoryTurnoverMargin:
		return 0.0
	case CategorySpecialTeams:
		return b.FieldGoalsMadePerGame * 3.0
	default:
		return 0.0
	}
}
