// Package validation is the verification substrate of the prediction
// pipeline: structured validation logging with bounded history, calculation
// tracing, weight-correctness verification, sample-game analysis, and
// report generation.
package validation

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridironlabs/gridiron-predict/internal/models"
)

// LogEntry is one retained validation event.
type LogEntry struct {
	Component models.ValidationComponent `json:"component"`
	Message   string                     `json:"message"`
	Severity  models.ValidationSeverity  `json:"severity"`
	Result    *models.ValidationResult   `json:"result,omitempty"`
	Timestamp time.Time                  `json:"timestamp"`
}

// ValidationLogger logs every validation result and trace step with
// component context and retains a bounded in-memory history per component
// for later inspection.
type ValidationLogger struct {
	logger *logrus.Logger
	cap    int

	mu      sync.Mutex
	history map[models.ValidationComponent][]LogEntry
}

func NewValidationLogger(logger *logrus.Logger, historyCap int) *ValidationLogger {
	if historyCap <= 0 {
		historyCap = 1000
	}
	return &ValidationLogger{
		logger:  logger,
		cap:     historyCap,
		history: make(map[models.ValidationComponent][]LogEntry),
	}
}

// LogResult records a validation result. Critical errors are logged
// distinctly at error level.
func (l *ValidationLogger) LogResult(result models.ValidationResult) {
	entry := l.logger.WithFields(logrus.Fields{
		"component": result.Component,
		"is_valid":  result.IsValid,
		"score":     result.Score,
		"errors":    len(result.Errors),
		"warnings":  len(result.Warnings),
	})
	if result.HasCritical() {
		entry.Error("Validation produced critical errors")
	} else if !result.IsValid {
		entry.Warn("Validation failed")
	} else {
		entry.Info("Validation passed")
	}

	severity := models.SeverityLow
	for _, e := range result.Errors {
		if e.Severity == models.SeverityCritical {
			severity = models.SeverityCritical
			break
		}
		if e.Severity == models.SeverityHigh {
			severity = models.SeverityHigh
		}
	}

	res := result
	l.retain(LogEntry{
		Component: result.Component,
		Message:   "validation result",
		Severity:  severity,
		Result:    &res,
		Timestamp: time.Now().UTC(),
	})
}

// LogTraceStep records one calculation trace step.
func (l *ValidationLogger) LogTraceStep(component models.ValidationComponent, traceID string, step models.TraceStep) {
	l.logger.WithFields(logrus.Fields{
		"component": component,
		"trace_id":  traceID,
		"step":      step.Name,
		"passed":    step.Passed,
	}).Debug(step.Computation)

	severity := models.SeverityLow
	if !step.Passed {
		severity = models.SeverityHigh
	}
	l.retain(LogEntry{
		Component: component,
		Message:   "trace step: " + step.Name,
		Severity:  severity,
		Timestamp: step.Timestamp,
	})
}

// LogCriticalError records an unrecoverable condition distinctly.
func (l *ValidationLogger) LogCriticalError(component models.ValidationComponent, code, message string) {
	l.logger.WithFields(logrus.Fields{
		"component": component,
		"code":      code,
	}).Error(message)
	l.retain(LogEntry{
		Component: component,
		Message:   code + ": " + message,
		Severity:  models.SeverityCritical,
		Timestamp: time.Now().UTC(),
	})
}

// History returns a copy of the retained entries for a component.
func (l *ValidationLogger) History(component models.ValidationComponent) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.history[component]
	out := make([]LogEntry, len(entries))
	copy(out, entries)
	return out
}

func (l *ValidationLogger) retain(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.history[entry.Component], entry)
	if len(entries) > l.cap {
		entries = entries[len(entries)-l.cap:]
	}
	l.history[entry.Component] = entries
}
