package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CategoryContribution is one category's share of a predicted score, kept
// for transparency.
type CategoryContribution struct {
	Category     string  `json:"category"`
	Weight       float64 `json:"weight"`
	Delta        float64 `json:"delta"`
	Contribution float64 `json:"contribution"`
}

// TeamBreakdown is the per-team half of a prediction's calculation
// breakdown.
type TeamBreakdown struct {
	TeamID        uint                   `json:"team_id"`
	Baseline      float64                `json:"baseline"`
	HomeFieldTerm float64                `json:"home_field_term"`
	Contributions []CategoryContribution `json:"contributions"`
	RawScore      float64                `json:"raw_score"`
}

// ProjectedStat is a projected per-game statistic for one side, validated
// against the team's own history and the league's historical distribution.
type ProjectedStat struct {
	Name      string  `json:"name"`
	Projected float64 `json:"projected"`
	Adjusted  float64 `json:"adjusted"`
	SeasonAvg float64 `json:"season_avg"`
}

// StatBoundaryCheck records one statistic's boundary validation.
type StatBoundaryCheck struct {
	Statistic           string  `json:"statistic"`
	Value               float64 `json:"value"`
	AdjustedValue       float64 `json:"adjusted_value"`
	WasAdjusted         bool    `json:"was_adjusted"`
	AdjustmentReason    string  `json:"adjustment_reason,omitempty"`
	ConfidenceReduction float64 `json:"confidence_reduction"`
}

// BoundaryValidationResult is the full record of boundary corrections made
// to one prediction. Corrections are never silent: each carries a reason
// and a confidence reduction.
type BoundaryValidationResult struct {
	IsAdjusted bool `json:"is_adjusted"`

	HomeRawScore      float64 `json:"home_raw_score"`
	AwayRawScore      float64 `json:"away_raw_score"`
	HomeAdjustedScore float64 `json:"home_adjusted_score"`
	AwayAdjustedScore float64 `json:"away_adjusted_score"`

	HomeMinAllowed float64 `json:"home_min_allowed"`
	HomeMaxAllowed float64 `json:"home_max_allowed"`
	AwayMinAllowed float64 `json:"away_min_allowed"`
	AwayMaxAllowed float64 `json:"away_max_allowed"`

	StatChecks []StatBoundaryCheck `json:"stat_checks,omitempty"`

	HomeConfidenceReduction float64 `json:"home_confidence_reduction"`
	AwayConfidenceReduction float64 `json:"away_confidence_reduction"`

	AdjustmentReasons        []string `json:"adjustment_reasons,omitempty"`
	TotalConfidenceReduction float64  `json:"total_confidence_reduction"`
}

// IndividualReductions collects every nonzero penalty recorded on the
// result: the per-side score reductions plus each per-statistic reduction.
func (b BoundaryValidationResult) IndividualReductions() []float64 {
	var reductions []float64
	if b.HomeConfidenceReduction > 0 {
		reductions = append(reductions, b.HomeConfidenceReduction)
	}
	if b.AwayConfidenceReduction > 0 {
		reductions = append(reductions, b.AwayConfidenceReduction)
	}
	for _, check := range b.StatChecks {
		if check.ConfidenceReduction > 0 {
			reductions = append(reductions, check.ConfidenceReduction)
		}
	}
	return reductions
}

func (b *BoundaryValidationResult) Scan(value interface{}) error {
	if value == nil {
		*b = BoundaryValidationResult{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into BoundaryValidationResult", value)
	}
	return json.Unmarshal(bytes, b)
}

func (b BoundaryValidationResult) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// StatisticalConfidence describes the model-quality block attached to every
// prediction.
type StatisticalConfidence struct {
	ModelRSquared          float64 `json:"model_r_squared"`
	ConfidenceIntervalLow  float64 `json:"confidence_interval_low"`
	ConfidenceIntervalHigh float64 `json:"confidence_interval_high"`
	ReliabilityTier        string  `json:"reliability_tier"`
	SampleSizeAdequate     bool    `json:"sample_size_adequate"`
	CombinedGames          int     `json:"combined_games"`
}

// TeamBreakdownPair is stored as JSONB alongside the prediction.
type TeamBreakdownPair struct {
	Home TeamBreakdown `json:"home"`
	Away TeamBreakdown `json:"away"`
}

func (p *TeamBreakdownPair) Scan(value interface{}) error {
	if value == nil {
		*p = TeamBreakdownPair{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into TeamBreakdownPair", value)
	}
	return json.Unmarshal(bytes, p)
}

func (p TeamBreakdownPair) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// StatisticalConfidenceBlock wraps StatisticalConfidence for JSONB storage.
func (s *StatisticalConfidence) Scan(value interface{}) error {
	if value == nil {
		*s = StatisticalConfidence{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into StatisticalConfidence", value)
	}
	return json.Unmarshal(bytes, s)
}

func (s StatisticalConfidence) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// GamePrediction is the output of one full pipeline run for a
// (home, away, season) matchup. Recomputed per request; persisted so the
// analyzer can compare it to the actual outcome later.
type GamePrediction struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	PredictionID string `gorm:"type:uuid;index" json:"prediction_id"`
	Season       int    `gorm:"index" json:"season"`
	GameID       *uint  `json:"game_id,omitempty"`
	HomeTeamID   uint   `json:"home_team_id"`
	AwayTeamID   uint   `json:"away_team_id"`
	IsNeutral    bool   `json:"is_neutral"`

	HomeInitialScore  float64 `json:"home_initial_score"`
	AwayInitialScore  float64 `json:"away_initial_score"`
	HomeAdjustedScore float64 `json:"home_adjusted_score"`
	AwayAdjustedScore float64 `json:"away_adjusted_score"`

	// HomeWinProbability is on a 0-100 scale, clamped to [5,95].
	HomeWinProbability float64 `json:"home_win_probability"`
	Spread             float64 `json:"spread"`
	Total              float64 `json:"total"`

	// Confidence is the overall 0-100 score, clamped to [20,95].
	Confidence float64 `json:"confidence"`

	Breakdown          TeamBreakdownPair        `gorm:"type:jsonb" json:"breakdown"`
	Statistical        StatisticalConfidence    `gorm:"type:jsonb" json:"statistical"`
	BoundaryValidation BoundaryValidationResult `gorm:"type:jsonb" json:"boundary_validation"`

	CreatedAt time.Time `json:"created_at"`
}

func (GamePrediction) TableName() string {
	return "game_predictions"
}

// PredictedWinner returns the team ID favored by the adjusted scores.
func (g GamePrediction) PredictedWinner() uint {
	if g.HomeAdjustedScore >= g.AwayAdjustedScore {
		return g.HomeTeamID
	}
	return g.AwayTeamID
}

// HistoricalPattern summarizes one statistical category across a
// multi-season lookback window. Derived per run, never persisted directly.
type HistoricalPattern struct {
	Statistic  string  `json:"statistic"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	SampleSize int     `json:"sample_size"`
}
