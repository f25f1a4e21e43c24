package models

import "time"

// ValidationComponent tags which subsystem produced a validation result.
type ValidationComponent string

const (
	ComponentAggregator        ValidationComponent = "aggregator"
	ComponentEfficiency        ValidationComponent = "efficiency_calculator"
	ComponentWeightManager     ValidationComponent = "weight_manager"
	ComponentPredictionEngine  ValidationComponent = "prediction_engine"
	ComponentBoundaryValidator ValidationComponent = "boundary_validator"
	ComponentWeightVerifier    ValidationComponent = "weight_verifier"
	ComponentSampleAnalyzer    ValidationComponent = "sample_analyzer"
	ComponentReporter          ValidationComponent = "analysis_reporter"
)

// ValidationSeverity grades a validation error.
type ValidationSeverity string

const (
	SeverityLow      ValidationSeverity = "low"
	SeverityMedium   ValidationSeverity = "medium"
	SeverityHigh     ValidationSeverity = "high"
	SeverityCritical ValidationSeverity = "critical"
)

// ValidationError is one failed check inside a ValidationResult.
type ValidationError struct {
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// ValidationResult is the contract every validator returns, so all
// subsystems stay independently auditable.
type ValidationResult struct {
	Component       ValidationComponent    `json:"component"`
	IsValid         bool                   `json:"is_valid"`
	Score           float64                `json:"score"`
	Errors          []ValidationError      `json:"errors,omitempty"`
	Warnings        []string               `json:"warnings,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// AddError appends a failed check and drops validity.
func (v *ValidationResult) AddError(code, message string, severity ValidationSeverity) {
	v.Errors = append(v.Errors, ValidationError{Code: code, Message: message, Severity: severity})
	v.IsValid = false
}

// HasCritical reports whether any error is critical.
func (v ValidationResult) HasCritical() bool {
	for _, e := range v.Errors {
		if e.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// TraceStep is one recorded computation inside a CalculationTrace.
type TraceStep struct {
	Index       int                    `json:"index"`
	Name        string                 `json:"name"`
	Inputs      map[string]interface{} `json:"inputs,omitempty"`
	Computation string                 `json:"computation"`
	Output      interface{}            `json:"output"`
	Passed      bool                   `json:"passed"`
	Timestamp   time.Time              `json:"timestamp"`
}

// CalculationTrace is the ordered, auditable log of one prediction
// computation. Opened at the start, appended to during calculation, closed
// and logged at the end; never mutated after closing.
type CalculationTrace struct {
	TraceID   string              `json:"trace_id"`
	Component ValidationComponent `json:"component"`
	Steps     []TraceStep         `json:"steps"`
	OpenedAt  time.Time           `json:"opened_at"`
	ClosedAt  *time.Time          `json:"closed_at,omitempty"`
}

// Closed reports whether the trace has been finalized.
func (t CalculationTrace) Closed() bool {
	return t.ClosedAt != nil
}

// AllPassed reports whether every recorded step validated.
func (t CalculationTrace) AllPassed() bool {
	for _, s := range t.Steps {
		if !s.Passed {
			return false
		}
	}
	return true
}
