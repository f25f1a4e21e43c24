package services

import "errors"

var (
	// ErrInsufficientData means a prediction was requested for a matchup
	// where at least one side has no usable efficiency profile. Callers get
	// this instead of a fabricated prediction.
	ErrInsufficientData = errors.New("insufficient data for prediction")

	// ErrInvalidWeights means a candidate weight vector failed statistical
	// validity checks (NaN/Inf, out of [0,2], sum outside tolerance). The
	// previous weights stay in effect.
	ErrInvalidWeights = errors.New("invalid prediction weights")

	// ErrReasonTooShort means a weight change was submitted without an
	// adequate justification.
	ErrReasonTooShort = errors.New("weight change reason too short")

	// ErrNoRegressionMetrics means no metric survived the significance and
	// fit filters, so no weights can be derived from the run.
	ErrNoRegressionMetrics = errors.New("no statistically usable regression metrics")
)
