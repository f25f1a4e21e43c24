package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gridironlabs/gridiron-predict/internal/league"
)

// WeightVector maps efficiency category names (plus home_field_advantage)
// to their prediction weights. Stored as JSONB.
type WeightVector map[string]float64

// Scan implements sql.Scanner for JSONB columns.
func (w *WeightVector) Scan(value interface{}) error {
	if value == nil {
		*w = make(WeightVector)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into WeightVector", value)
	}
	var result map[string]float64
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*w = WeightVector(result)
	return nil
}

// Value implements driver.Valuer for JSONB columns.
func (w WeightVector) Value() (driver.Value, error) {
	if w == nil {
		return nil, nil
	}
	return json.Marshal(w)
}

// CategorySum sums the category weights, excluding home-field advantage.
func (w WeightVector) CategorySum() float64 {
	sum := 0.0
	for _, c := range league.Categories() {
		sum += w[c]
	}
	return sum
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Equals reports whether both vectors match within tolerance, key by key.
func (w WeightVector) Equals(other WeightVector, tolerance float64) bool {
	if len(w) != len(other) {
		return false
	}
	for k, v := range w {
		if math.Abs(v-other[k]) > tolerance {
			return false
		}
	}
	return true
}

// PredictionWeights is one immutable weight vector version for a season.
// Changes create a new version plus a WeightChangeEntry, never an in-place
// edit.
type PredictionWeights struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	VersionID string       `gorm:"type:uuid;uniqueIndex" json:"version_id"`
	Season    int          `gorm:"index" json:"season"`
	Weights   WeightVector `gorm:"type:jsonb" json:"weights"`

	// Source is "regression", "manual" or "baseline".
	Source               string `json:"source"`
	RegressionAnalysisID *uint  `json:"regression_analysis_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (PredictionWeights) TableName() string {
	return "prediction_weights"
}

// WeightChangeEntry is the append-only audit record for one weight change.
// The previous vector of entry N must equal the new vector of entry N-1 for
// the same season (unbroken chain).
type WeightChangeEntry struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	Season int  `gorm:"index" json:"season"`

	PreviousWeights WeightVector `gorm:"type:jsonb" json:"previous_weights"`
	NewWeights      WeightVector `gorm:"type:jsonb" json:"new_weights"`

	Reason               string `gorm:"not null" json:"reason"`
	RegressionAnalysisID *uint  `json:"regression_analysis_id,omitempty"`
	ChangedBy            string `json:"changed_by,omitempty"`
	IsManualOverride     bool   `gorm:"default:false" json:"is_manual_override"`

	CreatedAt time.Time `json:"created_at"`
}

func (WeightChangeEntry) TableName() string {
	return "weight_change_entries"
}

// MaxSingleChangeRatio returns the largest relative change of any single
// category weight between the previous and new vectors. A category
// introduced from zero has no base to measure against and counts as a full
// swing.
func (e WeightChangeEntry) MaxSingleChangeRatio() float64 {
	maxRatio := 0.0
	for _, c := range league.Categories() {
		prev := e.PreviousWeights[c]
		next := e.NewWeights[c]
		if prev == 0 {
			if next != 0 && maxRatio < 1.0 {
				maxRatio = 1.0
			}
			continue
		}
		ratio := math.Abs(next-prev) / math.Abs(prev)
		if ratio > maxRatio {
			maxRatio = ratio
		}
	}
	return maxRatio
}
