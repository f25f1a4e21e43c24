package validation

import (
	"time"

	"github.com/google/uuid"

	"github.com/gridironlabs/gridiron-predict/internal/models"
)

// Tracer opens, appends to and closes calculation traces. A trace is opened
// at the start of a prediction, appended to during calculation, and closed
// and logged at the end; a closed trace is never mutated again.
type Tracer struct {
	vlog *ValidationLogger
}

func NewTracer(vlog *ValidationLogger) *Tracer {
	return &Tracer{vlog: vlog}
}

// Open starts a new trace for a component.
func (t *Tracer) Open(component models.ValidationComponent) *models.CalculationTrace {
	return &models.CalculationTrace{
		TraceID:   uuid.New().String(),
		Component: component,
		OpenedAt:  time.Now().UTC(),
	}
}

// Step appends one computation record. Appending to a closed trace is
// dropped and logged as a critical integrity error.
func (t *Tracer) Step(trace *models.CalculationTrace, name, computation string, inputs map[string]interface{}, output interface{}, passed bool) {
	if trace.Closed() {
		t.vlog.LogCriticalError(trace.Component, "TRACE_MUTATION_AFTER_CLOSE",
			"attempted to append step "+name+" to closed trace "+trace.TraceID)
		return
	}
	step := models.TraceStep{
		Index:       len(trace.Steps),
		Name:        name,
		Inputs:      inputs,
		Computation: computation,
		Output:      output,
		Passed:      passed,
		Timestamp:   time.Now().UTC(),
	}
	trace.Steps = append(trace.Steps, step)
	t.vlog.LogTraceStep(trace.Component, trace.TraceID, step)
}

// Close finalizes the trace and logs its outcome.
func (t *Tracer) Close(trace *models.CalculationTrace) {
	if trace.Closed() {
		return
	}
	now := time.Now().UTC()
	trace.ClosedAt = &now

	result := models.ValidationResult{
		Component: trace.Component,
		IsValid:   trace.AllPassed(),
		Score:     100,
		Timestamp: now,
		Metadata: map[string]interface{}{
			"trace_id": trace.TraceID,
			"steps":    len(trace.Steps),
		},
	}
	if !trace.AllPassed() {
		result.AddError("TRACE_STEP_FAILED", "one or more calculation steps failed validation", models.SeverityHigh)
		result.Score = 50
	}
	t.vlog.LogResult(result)
}
