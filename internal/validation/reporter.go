package validation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridironlabs/gridiron-predict/internal/models"
)

// Confidence bands used in the interpretation guide.
const (
	BandVeryLow  = "very_low"
	BandLow      = "low"
	BandModerate = "moderate"
	BandHigh     = "high"
	BandVeryHigh = "very_high"
)

// ConfidenceBand pairs a band with what a reader should expect from
// predictions carrying it.
type ConfidenceBand struct {
	Band             string  `json:"band"`
	MinConfidence    float64 `json:"min_confidence"`
	MaxConfidence    float64 `json:"max_confidence"`
	ExpectedAccuracy string  `json:"expected_accuracy"`
	Guidance         string  `json:"guidance"`
}

// ExamplePrediction is one analyzed game rendered for the report.
type ExamplePrediction struct {
	GameID         uint     `json:"game_id"`
	Week           int      `json:"week"`
	Stratum        string   `json:"stratum"`
	PredictedScore string   `json:"predicted_score"`
	ActualScore    string   `json:"actual_score"`
	WinnerCorrect  bool     `json:"winner_correct"`
	TotalError     float64  `json:"total_error"`
	Confidence     float64  `json:"confidence"`
	ErrorType      string   `json:"error_type,omitempty"`
	Explanations   []string `json:"explanations"`
}

// IntuitiveReport translates validation output into plain-language terms for
// readers without a statistics background.
type IntuitiveReport struct {
	Season      int       `json:"season"`
	GeneratedAt time.Time `json:"generated_at"`

	// Composite 0-100 confidence scores.
	DataConfidence     float64 `json:"data_confidence"`
	ModelConfidence    float64 `json:"model_confidence"`
	AccuracyConfidence float64 `json:"accuracy_confidence"`
	OverallConfidence  float64 `json:"overall_confidence"`
	OverallBand        string  `json:"overall_band"`

	GamesAnalyzed  int     `json:"games_analyzed"`
	WinnerAccuracy float64 `json:"winner_accuracy"`
	AvgScoreError  float64 `json:"avg_score_error"`

	Summary string `json:"summary"`

	SuccessfulExamples []ExamplePrediction `json:"successful_examples"`
	FailedExamples     []ExamplePrediction `json:"failed_examples"`
	InsightfulExamples []ExamplePrediction `json:"insightful_examples"`

	InterpretationGuide []ConfidenceBand `json:"interpretation_guide"`
}

// AnalysisReporter renders sample-game analyses and system health into a
// report an operator can read without touching the underlying numbers.
type AnalysisReporter struct {
	vlog   *ValidationLogger
	logger *logrus.Logger
}

func NewAnalysisReporter(vlog *ValidationLogger, logger *logrus.Logger) *AnalysisReporter {
	return &AnalysisReporter{vlog: vlog, logger: logger}
}

// GenerateIntuitiveReport builds the plain-language report for a season.
// systemHealth is the weight verifier's latest result; analyses come from
// the sample analyzer.
func (r *AnalysisReporter) GenerateIntuitiveReport(season int, analyses []GameAnalysisResult, systemHealth models.ValidationResult) *IntuitiveReport {
	report := &IntuitiveReport{
		Season:              season,
		GeneratedAt:         time.Now().UTC(),
		GamesAnalyzed:       len(analyses),
		InterpretationGuide: interpretationGuide(),
	}

	correct := 0
	totalErr := 0.0
	avgConfidence := 0.0
	for _, a := range analyses {
		if a.WinnerCorrect {
			correct++
		}
		totalErr += a.TotalError
		avgConfidence += a.Confidence
	}
	if len(analyses) > 0 {
		report.WinnerAccuracy = float64(correct) / float64(len(analyses))
		report.AvgScoreError = totalErr / float64(len(analyses)) / 2
		avgConfidence /= float64(len(analyses))
	}

	report.DataConfidence = clampScore(systemHealth.Score)
	report.ModelConfidence = clampScore(avgConfidence)
	report.AccuracyConfidence = clampScore(report.WinnerAccuracy * 100)

	// Accuracy against real outcomes is weighted heaviest; data health and
	// model self-confidence split the rest.
	report.OverallConfidence = clampScore(
		0.3*report.DataConfidence + 0.3*report.ModelConfidence + 0.4*report.AccuracyConfidence)
	report.OverallBand = bandFor(report.OverallConfidence)

	report.SuccessfulExamples = pickExamples(analyses, func(a GameAnalysisResult) bool {
		return a.WinnerCorrect && a.TotalError <= 10
	}, byLowestError)
	report.FailedExamples = pickExamples(analyses, func(a GameAnalysisResult) bool {
		return !a.WinnerCorrect
	}, byHighestError)
	report.InsightfulExamples = pickExamples(analyses, func(a GameAnalysisResult) bool {
		return a.Stratum == StratumUpset || a.Stratum == StratumBlowout
	}, byHighestError)

	report.Summary = r.summarize(report)

	r.vlog.LogResult(models.ValidationResult{
		Component: models.ComponentReporter,
		IsValid:   true,
		Score:     report.OverallConfidence,
		Timestamp: report.GeneratedAt,
		Metadata: map[string]interface{}{
			"season":          season,
			"overall_band":    report.OverallBand,
			"games_analyzed":  report.GamesAnalyzed,
			"winner_accuracy": report.WinnerAccuracy,
		},
	})
	return report
}

func (r *AnalysisReporter) summarize(report *IntuitiveReport) string {
	if report.GamesAnalyzed == 0 {
		return fmt.Sprintf("No analyzed games are available for the %d season yet, so prediction quality cannot be assessed.", report.Season)
	}
	return fmt.Sprintf(
		"Across %d analyzed games from the %d season, the system picked the correct winner %.0f%% of the time and missed each team's score by %.1f points on average. Overall confidence is %s (%.0f/100): %s",
		report.GamesAnalyzed, report.Season, report.WinnerAccuracy*100, report.AvgScoreError,
		report.OverallBand, report.OverallConfidence, bandGuidance(report.OverallBand))
}

func byLowestError(a, b GameAnalysisResult) bool  { return a.TotalError < b.TotalError }
func byHighestError(a, b GameAnalysisResult) bool { return a.TotalError > b.TotalError }

func pickExamples(analyses []GameAnalysisResult, keep func(GameAnalysisResult) bool, less func(a, b GameAnalysisResult) bool) []ExamplePrediction {
	var kept []GameAnalysisResult
	for _, a := range analyses {
		if keep(a) {
			kept = append(kept, a)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return less(kept[i], kept[j]) })
	if len(kept) > 3 {
		kept = kept[:3]
	}
	examples := make([]ExamplePrediction, 0, len(kept))
	for _, a := range kept {
		examples = append(examples, ExamplePrediction{
			GameID:         a.GameID,
			Week:           a.Week,
			Stratum:        a.Stratum,
			PredictedScore: fmt.Sprintf("%.0f-%.0f", a.PredictedHomeScore, a.PredictedAwayScore),
			ActualScore:    fmt.Sprintf("%d-%d", a.ActualHomeScore, a.ActualAwayScore),
			WinnerCorrect:  a.WinnerCorrect,
			TotalError:     a.TotalError,
			Confidence:     a.Confidence,
			ErrorType:      a.ErrorType,
			Explanations:   a.Explanations,
		})
	}
	return examples
}

func interpretationGuide() []ConfidenceBand {
	return []ConfidenceBand{
		{BandVeryLow, 0, 35, "barely better than a coin flip (roughly 50-55% winners)", bandGuidance(BandVeryLow)},
		{BandLow, 35, 50, "around 55-60% winners", bandGuidance(BandLow)},
		{BandModerate, 50, 65, "around 60-68% winners", bandGuidance(BandModerate)},
		{BandHigh, 65, 80, "around 68-75% winners", bandGuidance(BandHigh)},
		{BandVeryHigh, 80, 100, "roughly 75% winners or better", bandGuidance(BandVeryHigh)},
	}
}

func bandFor(confidence float64) string {
	switch {
	case confidence < 35:
		return BandVeryLow
	case confidence < 50:
		return BandLow
	case confidence < 65:
		return BandModerate
	case confidence < 80:
		return BandHigh
	default:
		return BandVeryHigh
	}
}

func bandGuidance(band string) string {
	switch band {
	case BandVeryLow:
		return "treat predictions as informational only; the data or model quality is not there yet."
	case BandLow:
		return "predictions capture broad tendencies but individual games are unreliable."
	case BandModerate:
		return "predictions are useful directionally; expect regular misses in close games."
	case BandHigh:
		return "predictions are dependable for most matchups; upsets remain hard."
	case BandVeryHigh:
		return "predictions are as reliable as this class of model gets; remaining misses are mostly game-day noise."
	default:
		return ""
	}
}

func clampScore(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
