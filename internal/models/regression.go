package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MetricRegression holds the per-category output of one regression run.
type MetricRegression struct {
	Metric                     string  `json:"metric"`
	Coefficient                float64 `json:"coefficient"`
	Intercept                  float64 `json:"intercept"`
	RSquared                   float64 `json:"r_squared"`
	PValue                     float64 `json:"p_value"`
	ConfidenceIntervalLow      float64 `json:"confidence_interval_low"`
	ConfidenceIntervalHigh     float64 `json:"confidence_interval_high"`
	CalculatedWeight           float64 `json:"calculated_weight"`
	IsStatisticallySignificant bool    `json:"is_statistically_significant"`
}

// MetricRegressionList is stored as JSONB.
type MetricRegressionList []MetricRegression

func (l *MetricRegressionList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into MetricRegressionList", value)
	}
	return json.Unmarshal(bytes, l)
}

func (l MetricRegressionList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// RegressionAnalysisResult is one append-only analysis run for a season.
type RegressionAnalysisResult struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	Season     int  `gorm:"index" json:"season"`
	SampleSize int  `json:"sample_size"`

	OverallRSquared float64              `json:"overall_r_squared"`
	Metrics         MetricRegressionList `gorm:"type:jsonb" json:"metrics"`

	SampleSizeAdequate                bool `json:"sample_size_adequate"`
	StatisticalSignificanceConsidered bool `json:"statistical_significance_considered"`

	CreatedAt time.Time `json:"created_at"`
}

func (RegressionAnalysisResult) TableName() string {
	return "regression_analysis_results"
}

// MetricByName returns the sub-result for a metric, if present.
func (r RegressionAnalysisResult) MetricByName(name string) (MetricRegression, bool) {
	for _, m := range r.Metrics {
		if m.Metric == name {
			return m, true
		}
	}
	return MetricRegression{}, false
}
