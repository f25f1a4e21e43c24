package validation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/services"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

const (
	// contributionTolerance is the exactness demanded of the formula replay.
	contributionTolerance = 0.001

	// derivationTolerance allows floating-point drift between stored and
	// re-derived weight vectors.
	derivationTolerance = 0.01

	// minJustificationLen is the audit-trail floor for change reasons.
	minJustificationLen = 10

	// chainTolerance is the per-weight equality tolerance for the
	// previous/new history chain.
	chainTolerance = 1e-9

	// minChangeGap flags suspiciously rapid weight churn.
	minChangeGap = time.Minute
)

// WeightValidationResult is the verifier's report, in the shared validation
// contract.
type WeightValidationResult = models.ValidationResult

// WeightVerifier independently re-checks everything the weight manager
// produced: derivation equivalence, bounds, formula contributions, and the
// audit trail. Findings are surfaced to operators, never auto-repaired.
type WeightVerifier struct {
	manager     *services.WeightManager
	weights     storage.WeightStore
	regressions storage.RegressionStore
	vlog        *ValidationLogger
	baselines   league.Baselines
	sumTolerance float64
	logger      *logrus.Logger
}

func NewWeightVerifier(
	manager *services.WeightManager,
	weights storage.WeightStore,
	regressions storage.RegressionStore,
	vlog *ValidationLogger,
	baselines league.Baselines,
	sumTolerance float64,
	logger *logrus.Logger,
) *WeightVerifier {
	return &WeightVerifier{
		manager:      manager,
		weights:      weights,
		regressions:  regressions,
		vlog:         vlog,
		baselines:    baselines,
		sumTolerance: sumTolerance,
		logger:       logger,
	}
}

// ValidateWeights runs the full verification suite for a season.
func (v *WeightVerifier) ValidateWeights(ctx context.Context, season int) WeightValidationResult {
	result := models.ValidationResult{
		Component: models.ComponentWeightVerifier,
		IsValid:   true,
		Score:     100,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]interface{}{"season": season},
	}

	current := v.manager.GetCurrentWeights(ctx, season)
	v.checkBounds(current.Weights, &result)
	v.checkDerivation(ctx, season, current, &result)
	v.checkContributions(current.Weights, &result)
	v.checkAuditTrail(ctx, season, &result)

	result.Score = scoreFromErrors(result.Errors)
	v.vlog.LogResult(result)
	return result
}

// checkBounds asserts every weight is finite, inside [0,2], and that the
// category sum stays within tolerance of 1.0.
func (v *WeightVerifier) checkBounds(vector models.WeightVector, result *models.ValidationResult) {
	for _, c := range league.Categories() {
		w := vector[c]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			result.AddError("WEIGHT_NOT_FINITE",
				fmt.Sprintf("weight %s is not a finite number", c), models.SeverityCritical)
			continue
		}
		if w < services.WeightMin || w > services.WeightMax {
			result.AddError("WEIGHT_OUT_OF_BOUNDS",
				fmt.Sprintf("weight %s=%.4f outside [%.1f, %.1f]", c, w, services.WeightMin, services.WeightMax),
				models.SeverityCritical)
		}
	}
	sum := vector.CategorySum()
	if math.Abs(sum-1.0) > v.sumTolerance {
		result.AddError("WEIGHT_SUM_TOLERANCE",
			fmt.Sprintf("category weights sum to %.4f, outside tolerance %.2f of 1.0", sum, v.sumTolerance),
			models.SeverityHigh)
	}
}

// checkDerivation re-derives weights from the latest regression run and
// asserts equivalence with the stored vector.
func (v *WeightVerifier) checkDerivation(ctx context.Context, season int, current *models.PredictionWeights, result *models.ValidationResult) {
	analysis, err := v.regressions.LatestAnalysis(ctx, season)
	if err == storage.ErrNotFound {
		result.Warnings = append(result.Warnings, "no regression analysis exists for this season; derivation equivalence not checkable")
		return
	}
	if err != nil {
		result.AddError("ANALYSIS_LOOKUP_FAILED", err.Error(), models.SeverityMedium)
		return
	}

	if !analysis.SampleSizeAdequate {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"latest regression used %d samples, below the required minimum; statistical significance was not considered",
			analysis.SampleSize))
	}

	if current.Source != "regression" {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"current weights come from source %q, not the latest regression run", current.Source))
		return
	}

	derived, err := v.manager.DeriveVector(analysis)
	if err != nil {
		result.AddError("REDERIVATION_FAILED",
			fmt.Sprintf("could not re-derive weights from analysis %d: %v", analysis.ID, err),
			models.SeverityHigh)
		return
	}
	if !derived.Equals(current.Weights, derivationTolerance) {
		result.AddError("WEIGHT_DRIFT",
			"stored weights do not match re-derivation from the latest regression analysis",
			models.SeverityHigh)
	}
}

// checkContributions replays the prediction formula with synthetic
// efficiencies and asserts each category's contribution is exactly
// efficiency times weight.
func (v *WeightVerifier) checkContributions(vector models.WeightVector, result *models.ValidationResult) {
	var team, opponent models.TeamEfficiencyProfile
	synthetic := map[string]float64{}
	for i, c := range league.Categories() {
		// Distinct, non-trivial values per category; opponent stays at
		// zero so the matchup delta equals the synthetic efficiency.
		synthetic[c] = 1.5 + float64(i)*0.75
		team.SetValue(c, synthetic[c])
	}

	breakdown := services.ScoreBreakdown(team, opponent, vector, v.baselines, false)
	for _, contribution := range breakdown.Contributions {
		expected := synthetic[contribution.Category] * vector[contribution.Category]
		if math.Abs(contribution.Contribution-expected) > contributionTolerance {
			result.AddError("CONTRIBUTION_MISMATCH",
				fmt.Sprintf("category %s contribution %.6f != efficiency×weight %.6f",
					contribution.Category, contribution.Contribution, expected),
				models.SeverityCritical)
		}
	}
}

// checkAuditTrail verifies justification quality, the unbroken previous/new
// chain, duplicates, time gaps, and major-swing acknowledgement.
func (v *WeightVerifier) checkAuditTrail(ctx context.Context, season int, result *models.ValidationResult) {
	entries, err := v.weights.History(ctx, season)
	if err != nil {
		result.AddError("HISTORY_LOOKUP_FAILED", err.Error(), models.SeverityMedium)
		return
	}
	if len(entries) == 0 {
		result.Warnings = append(result.Warnings, "no weight change history exists for this season")
		return
	}

	for i, entry := range entries {
		if len(strings.TrimSpace(entry.Reason)) < minJustificationLen {
			result.AddError("MISSING_JUSTIFICATION",
				fmt.Sprintf("history entry %d has a justification shorter than %d characters", entry.ID, minJustificationLen),
				models.SeverityHigh)
		}

		if entry.MaxSingleChangeRatio() > 0.5 && !hasMagnitudeKeyword(entry.Reason) {
			result.AddError("UNJUSTIFIED_MAJOR_CHANGE",
				fmt.Sprintf("history entry %d changes a weight by more than 50%% without referencing the magnitude", entry.ID),
				models.SeverityHigh)
		}

		if i == 0 {
			continue
		}
		prev := entries[i-1]

		if !entry.PreviousWeights.Equals(prev.NewWeights, chainTolerance) {
			result.AddError("BROKEN_CHAIN",
				fmt.Sprintf("history entry %d previous weights do not equal entry %d new weights", entry.ID, prev.ID),
				models.SeverityCritical)
		}
		if entry.NewWeights.Equals(prev.NewWeights, chainTolerance) && entry.PreviousWeights.Equals(prev.PreviousWeights, chainTolerance) {
			result.AddError("DUPLICATE_ENTRY",
				fmt.Sprintf("history entries %d and %d record identical changes", prev.ID, entry.ID),
				models.SeverityMedium)
		}
		if gap := entry.CreatedAt.Sub(prev.CreatedAt); gap >= 0 && gap < minChangeGap {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"history entries %d and %d are only %s apart", prev.ID, entry.ID, gap))
		}
	}
}

func hasMagnitudeKeyword(reason string) bool {
	lower := strings.ToLower(reason)
	return strings.Contains(lower, "major") || strings.Contains(lower, "significant")
}

// scoreFromErrors maps error severities onto the 0-100 validation score.
func scoreFromErrors(errors []models.ValidationError) float64 {
	score := 100.0
	for _, e := range errors {
		switch e.Severity {
		case models.SeverityCritical:
			score -= 25
		case models.SeverityHigh:
			score -= 15
		case models.SeverityMedium:
			score -= 8
		default:
			score -= 3
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}
