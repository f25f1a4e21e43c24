package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gridironlabs/gridiron-predict/internal/league"
	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

const (
	// WeightMin and WeightMax bound every individual weight.
	WeightMin = 0.0
	WeightMax = 2.0

	// minOverrideReasonLen is the justification floor for manual overrides.
	minOverrideReasonLen = 50

	// minReasonLen is the justification floor for any weight change.
	minReasonLen = 10

	// majorChangeRatio marks a single-weight swing that demands an explicit
	// magnitude keyword in the reason text.
	majorChangeRatio = 0.5
)

// majorChangeKeywords are accepted as explicit acknowledgement of a large
// single-weight swing.
var majorChangeKeywords = []string{"major", "significant"}

// WeightManagerConfig carries derivation thresholds.
type WeightManagerConfig struct {
	SignificanceThreshold float64
	RSquaredThreshold     float64
	ScaleFactor           float64
	SumTolerance          float64
}

// WeightManager owns the lifecycle of prediction weight vectors: retrieval
// with fallbacks, regression-based derivation, manual overrides, and the
// append-only change history. The write path serializes per season so the
// previous/new chain in the history never interleaves.
type WeightManager struct {
	store     storage.WeightStore
	cache     *CacheService
	baselines league.Baselines
	cfg       WeightManagerConfig
	logger    *logrus.Logger

	mu          sync.Mutex
	seasonLocks map[int]*sync.Mutex
}

func NewWeightManager(
	store storage.WeightStore,
	cache *CacheService,
	baselines league.Baselines,
	cfg WeightManagerConfig,
	logger *logrus.Logger,
) *WeightManager {
	return &WeightManager{
		store:       store,
		cache:       cache,
		baselines:   baselines,
		cfg:         cfg,
		logger:      logger,
		seasonLocks: make(map[int]*sync.Mutex),
	}
}

func (m *WeightManager) seasonLock(season int) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.seasonLocks[season]
	if !ok {
		lock = &sync.Mutex{}
		m.seasonLocks[season] = lock
	}
	return lock
}

// GetCurrentWeights returns the latest weights for a season, falling back to
// the most recent prior season and finally the hard-coded baseline vector.
// It never fails the caller: storage errors degrade to the baseline.
func (m *WeightManager) GetCurrentWeights(ctx context.Context, season int) *models.PredictionWeights {
	if m.cache != nil {
		var cached models.PredictionWeights
		if err := m.cache.Get(ctx, WeightsCacheKey(season), &cached); err == nil {
			return &cached
		}
	}

	weights, err := m.store.LatestWeights(ctx, season)
	if err == nil {
		m.cacheWeights(ctx, season, weights)
		return weights
	}
	if err != storage.ErrNotFound {
		m.logger.WithError(err).WithField("season", season).
			Warn("Weight lookup failed, degrading to fallbacks")
	}

	prior, err := m.store.LatestWeightsBefore(ctx, season)
	if err == nil {
		m.logger.WithFields(logrus.Fields{
			"component":    "weight_manager",
			"season":       season,
			"prior_season": prior.Season,
		}).Info("Using prior-season weights")
		return prior
	}

	return m.baselineWeights(season)
}

func (m *WeightManager) baselineWeights(season int) *models.PredictionWeights {
	vector := make(models.WeightVector, len(m.baselines.Weights))
	for k, v := range m.baselines.Weights {
		vector[k] = v
	}
	return &models.PredictionWeights{
		VersionID: uuid.New().String(),
		Season:    season,
		Weights:   vector,
		Source:    "baseline",
		CreatedAt: time.Now().UTC(),
	}
}

func (m *WeightManager) cacheWeights(ctx context.Context, season int, weights *models.PredictionWeights) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Set(ctx, WeightsCacheKey(season), weights, 5*time.Minute); err != nil {
		m.logger.WithError(err).Warn("Failed to cache weights")
	}
}

// DeriveVector turns a regression run into a candidate weight vector:
// filter metrics by significance and fit, scale absolute coefficients,
// normalize to sum 1.0, clamp into [0,2], and re-normalize if clamping
// drifted the sum beyond tolerance. Pure; used by the manager and replayed
// by the verifier.
func (m *WeightManager) DeriveVector(result *models.RegressionAnalysisResult) (models.WeightVector, error) {
	base := make(map[string]float64)
	baseSum := 0.0
	for _, metric := range result.Metrics {
		if metric.PValue >= m.cfg.SignificanceThreshold || metric.RSquared <= m.cfg.RSquaredThreshold {
			continue
		}
		w := math.Abs(metric.Coefficient) * m.cfg.ScaleFactor
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: metric %s produced non-finite weight", ErrInvalidWeights, metric.Metric)
		}
		base[metric.Metric] = w
		baseSum += w
	}
	if len(base) == 0 || baseSum == 0 {
		return nil, ErrNoRegressionMetrics
	}

	vector := make(models.WeightVector)
	for _, c := range league.Categories() {
		vector[c] = base[c] / baseSum
	}

	clamped := false
	for _, c := range league.Categories() {
		if vector[c] < WeightMin {
			vector[c] = WeightMin
			clamped = true
		}
		if vector[c] > WeightMax {
			vector[c] = WeightMax
			clamped = true
		}
	}
	if clamped && math.Abs(vector.CategorySum()-1.0) > m.cfg.SumTolerance {
		sum := vector.CategorySum()
		for _, c := range league.Categories() {
			vector[c] = vector[c] / sum
		}
	}

	vector[league.WeightHomeField] = m.baselines.Weights[league.WeightHomeField]
	return vector, nil
}

// DeriveWeightsFromRegression derives, validates and persists a new weight
// version from an analysis run, with an audit entry linking back to it.
func (m *WeightManager) DeriveWeightsFromRegression(ctx context.Context, result *models.RegressionAnalysisResult, reason string) (*models.PredictionWeights, error) {
	if len(strings.TrimSpace(reason)) < minReasonLen {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrReasonTooShort, minReasonLen)
	}

	vector, err := m.DeriveVector(result)
	if err != nil {
		return nil, err
	}
	if err := m.validateVector(vector); err != nil {
		return nil, err
	}

	if !result.SampleSizeAdequate {
		m.logger.WithFields(logrus.Fields{
			"component":   "weight_manager",
			"season":      result.Season,
			"sample_size": result.SampleSize,
		}).Warn("Deriving weights from an inadequate sample; statistical significance not considered")
	}

	return m.persistChange(ctx, result.Season, vector, reason, &result.ID, "", false)
}

// UpdateWeights records a manual override. It bypasses derivation but
// requires a substantive justification and is flagged as not
// analysis-linked in the audit entry.
func (m *WeightManager) UpdateWeights(ctx context.Context, season int, weights models.WeightVector, reason, changedBy string) (*models.PredictionWeights, error) {
	if len(strings.TrimSpace(reason)) < minOverrideReasonLen {
		return nil, fmt.Errorf("%w: manual overrides need at least %d characters", ErrReasonTooShort, minOverrideReasonLen)
	}
	if err := m.validateVector(weights); err != nil {
		return nil, err
	}
	return m.persistChange(ctx, season, weights.Clone(), reason, nil, changedBy, true)
}

// persistChange is the single serialized write path for a season's weight
// history.
func (m *WeightManager) persistChange(ctx context.Context, season int, vector models.WeightVector, reason string, analysisID *uint, changedBy string, manual bool) (*models.PredictionWeights, error) {
	lock := m.seasonLock(season)
	lock.Lock()
	defer lock.Unlock()

	previous := m.GetCurrentWeights(ctx, season)

	source := "regression"
	if manual {
		source = "manual"
	}
	version := &models.PredictionWeights{
		VersionID:            uuid.New().String(),
		Season:               season,
		Weights:              vector,
		Source:               source,
		RegressionAnalysisID: analysisID,
		CreatedAt:            time.Now().UTC(),
	}
	entry := &models.WeightChangeEntry{
		Season:               season,
		PreviousWeights:      previous.Weights.Clone(),
		NewWeights:           vector.Clone(),
		Reason:               reason,
		RegressionAnalysisID: analysisID,
		ChangedBy:            changedBy,
		IsManualOverride:     manual,
		CreatedAt:            version.CreatedAt,
	}

	if entry.MaxSingleChangeRatio() > majorChangeRatio && !containsMajorKeyword(reason) {
		// Recorded anyway; the verifier flags the entry as invalid.
		m.logger.WithFields(logrus.Fields{
			"component": "weight_manager",
			"season":    season,
			"max_swing": entry.MaxSingleChangeRatio(),
		}).Warn("Large single-weight swing without an explicit magnitude keyword in reason")
	}

	if err := m.store.AppendWeights(ctx, version, entry); err != nil {
		return nil, err
	}

	if m.cache != nil {
		if err := m.cache.Delete(ctx, WeightsCacheKey(season)); err != nil {
			m.logger.WithError(err).Warn("Failed to invalidate weights cache")
		}
	}

	m.logger.WithFields(logrus.Fields{
		"component":  "weight_manager",
		"season":     season,
		"version_id": version.VersionID,
		"source":     source,
	}).Info("Persisted new weight version")

	return version, nil
}

// validateVector rejects statistically invalid vectors at the manager
// boundary so the previous weights stay in effect.
func (m *WeightManager) validateVector(vector models.WeightVector) error {
	for _, c := range league.Categories() {
		w := vector[c]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidWeights, c)
		}
		if w < WeightMin || w > WeightMax {
			return fmt.Errorf("%w: %s=%.4f outside [%.1f, %.1f]", ErrInvalidWeights, c, w, WeightMin, WeightMax)
		}
	}
	if hf, ok := vector[league.WeightHomeField]; ok {
		if math.IsNaN(hf) || math.IsInf(hf, 0) || hf < WeightMin || hf > WeightMax {
			return fmt.Errorf("%w: home field advantage outside bounds", ErrInvalidWeights)
		}
	}
	sum := vector.CategorySum()
	if math.Abs(sum-1.0) > m.cfg.SumTolerance {
		return fmt.Errorf("%w: category sum %.4f outside tolerance %.2f of 1.0", ErrInvalidWeights, sum, m.cfg.SumTolerance)
	}
	return nil
}

func containsMajorKeyword(reason string) bool {
	lower := strings.ToLower(reason)
	for _, kw := range majorChangeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
