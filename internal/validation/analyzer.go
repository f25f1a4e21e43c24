package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/services"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

// Game strata for sampling.
const (
	StratumClose   = "close"
	StratumBlowout = "blowout"
	StratumUpset   = "upset"
	StratumRegular = "regular"
)

// Error type classification for missed predictions.
const (
	ErrorStatisticalNoise = "statistical_noise"
	ErrorModelLimitation  = "model_limitation"
	ErrorDataQuality      = "data_quality"
	ErrorSystematicBias   = "systematic_bias"
)

// GameAnalysisResult compares one re-run prediction against the actual
// outcome.
type GameAnalysisResult struct {
	GameID     uint   `json:"game_id"`
	Season     int    `json:"season"`
	Week       int    `json:"week"`
	HomeTeamID uint   `json:"home_team_id"`
	AwayTeamID uint   `json:"away_team_id"`
	Stratum    string `json:"stratum"`

	PredictedHomeScore float64 `json:"predicted_home_score"`
	PredictedAwayScore float64 `json:"predicted_away_score"`
	ActualHomeScore    int     `json:"actual_home_score"`
	ActualAwayScore    int     `json:"actual_away_score"`

	WinnerCorrect  bool    `json:"winner_correct"`
	HomeScoreError float64 `json:"home_score_error"`
	AwayScoreError float64 `json:"away_score_error"`
	TotalError     float64 `json:"total_error"`
	Confidence     float64 `json:"confidence"`
	ErrorType      string  `json:"error_type,omitempty"`

	Explanations []string `json:"explanations"`
}

// SampleGameAnalyzer explains individual predictions by re-running the
// engine on a stratified sample of completed games and comparing against
// actual outcomes.
type SampleGameAnalyzer struct {
	games  storage.GameStore
	engine *services.PredictionEngine
	vlog   *ValidationLogger
	logger *logrus.Logger
}

func NewSampleGameAnalyzer(
	games storage.GameStore,
	engine *services.PredictionEngine,
	vlog *ValidationLogger,
	logger *logrus.Logger,
) *SampleGameAnalyzer {
	return &SampleGameAnalyzer{
		games:  games,
		engine: engine,
		vlog:   vlog,
		logger: logger,
	}
}

// AnalyzeSampleGames analyzes a stratified sample of the season's completed
// games: roughly 30% close games, 25% blowouts, 20% heuristic upsets, and
// 25% regular games. A game failing with insufficient data is skipped.
func (a *SampleGameAnalyzer) AnalyzeSampleGames(ctx context.Context, season, sampleSize int) ([]GameAnalysisResult, error) {
	completed, err := a.games.CompletedGames(ctx, season)
	if err != nil {
		return nil, err
	}
	if len(completed) == 0 {
		return nil, fmt.Errorf("no completed games for season %d", season)
	}
	if sampleSize <= 0 || sampleSize > len(completed) {
		sampleSize = len(completed)
	}

	sample := stratifiedSample(completed, sampleSize, season)

	results := make([]GameAnalysisResult, 0, len(sample))
	for _, picked := range sample {
		analysis, err := a.analyzeGame(ctx, picked.game, picked.stratum)
		if err != nil {
			if errors.Is(err, services.ErrInsufficientData) {
				a.logger.WithFields(logrus.Fields{
					"component": "sample_analyzer",
					"game_id":   picked.game.ID,
				}).Debug("Skipping game with insufficient data")
				continue
			}
			a.logger.WithError(err).WithFields(logrus.Fields{
				"component": "sample_analyzer",
				"game_id":   picked.game.ID,
			}).Error("Game analysis failed, continuing sample")
			continue
		}
		results = append(results, *analysis)
	}

	a.logSummary(season, results)
	return results, nil
}

func (a *SampleGameAnalyzer) analyzeGame(ctx context.Context, g models.Game, stratum string) (*GameAnalysisResult, error) {
	gameID := g.ID
	prediction, err := a.engine.GetGamePrediction(ctx, g.HomeTeamID, g.AwayTeamID, g.Season, &gameID, g.IsNeutralSite)
	if err != nil {
		return nil, err
	}

	result := &GameAnalysisResult{
		GameID:             g.ID,
		Season:             g.Season,
		Week:               g.Week,
		HomeTeamID:         g.HomeTeamID,
		AwayTeamID:         g.AwayTeamID,
		Stratum:            stratum,
		PredictedHomeScore: prediction.HomeAdjustedScore,
		PredictedAwayScore: prediction.AwayAdjustedScore,
		ActualHomeScore:    g.HomeScore,
		ActualAwayScore:    g.AwayScore,
		Confidence:         prediction.Confidence,
	}

	predictedHomeWin := prediction.HomeAdjustedScore >= prediction.AwayAdjustedScore
	actualHomeWin := g.HomeScore >= g.AwayScore
	result.WinnerCorrect = predictedHomeWin == actualHomeWin
	result.HomeScoreError = math.Abs(prediction.HomeAdjustedScore - float64(g.HomeScore))
	result.AwayScoreError = math.Abs(prediction.AwayAdjustedScore - float64(g.AwayScore))
	result.TotalError = result.HomeScoreError + result.AwayScoreError

	if !result.WinnerCorrect {
		result.ErrorType = classifyError(result.TotalError, prediction.Confidence, prediction.Statistical.ModelRSquared)
	}

	result.Explanations = explainPrediction(prediction)
	return result, nil
}

// classifyError buckets a missed prediction by its most likely cause.
func classifyError(totalError, confidence, modelRSquared float64) string {
	switch {
	case totalError <= 14:
		return ErrorStatisticalNoise
	case confidence < 60:
		return ErrorModelLimitation
	case modelRSquared < 0.3:
		return ErrorDataQuality
	default:
		return ErrorSystematicBias
	}
}

// explainPrediction builds human-readable explanations from the top-3
// weighted category advantages across both sides.
func explainPrediction(p *models.GamePrediction) []string {
	type advantage struct {
		side         string
		category     string
		contribution float64
	}
	var advantages []advantage
	for _, c := range p.Breakdown.Home.Contributions {
		advantages = append(advantages, advantage{"home", c.Category, c.Contribution})
	}
	for _, c := range p.Breakdown.Away.Contributions {
		advantages = append(advantages, advantage{"away", c.Category, c.Contribution})
	}
	sort.Slice(advantages, func(i, j int) bool {
		return math.Abs(advantages[i].contribution) > math.Abs(advantages[j].contribution)
	})

	limit := 3
	if len(advantages) < limit {
		limit = len(advantages)
	}
	explanations := make([]string, 0, limit+1)
	for _, adv := range advantages[:limit] {
		direction := "added"
		if adv.contribution < 0 {
			direction = "cost"
		}
		explanations = append(explanations, fmt.Sprintf(
			"%s team's %s %s %.1f points", adv.side, adv.category, direction, math.Abs(adv.contribution)))
	}
	if p.Breakdown.Home.HomeFieldTerm != 0 {
		explanations = append(explanations, fmt.Sprintf(
			"home-field advantage added %.1f points", p.Breakdown.Home.HomeFieldTerm))
	}
	return explanations
}

type sampledGame struct {
	game    models.Game
	stratum string
}

// stratifiedSample draws the target mix of close games, blowouts, heuristic
// upsets and regular games. Seeded by season so a re-run over the same data
// analyzes the same games.
func stratifiedSample(games []models.Game, sampleSize, season int) []sampledGame {
	strata := map[string][]models.Game{}
	for _, g := range games {
		strata[classifyStratum(g)] = append(strata[classifyStratum(g)], g)
	}

	quotas := map[string]int{
		StratumClose:   int(math.Round(0.30 * float64(sampleSize))),
		StratumBlowout: int(math.Round(0.25 * float64(sampleSize))),
		StratumUpset:   int(math.Round(0.20 * float64(sampleSize))),
	}
	quotas[StratumRegular] = sampleSize - quotas[StratumClose] - quotas[StratumBlowout] - quotas[StratumUpset]

	rng := rand.New(rand.NewSource(int64(season)))
	var sample []sampledGame
	for _, stratum := range []string{StratumClose, StratumBlowout, StratumUpset, StratumRegular} {
		pool := strata[stratum]
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		take := quotas[stratum]
		if take > len(pool) {
			take = len(pool)
		}
		for _, g := range pool[:take] {
			sample = append(sample, sampledGame{game: g, stratum: stratum})
		}
	}

	// Backfill unmet quotas from whatever remains so small seasons still
	// produce a full sample.
	if len(sample) < sampleSize {
		taken := make(map[uint]bool, len(sample))
		for _, s := range sample {
			taken[s.game.ID] = true
		}
		for _, g := range games {
			if len(sample) >= sampleSize {
				break
			}
			if !taken[g.ID] {
				sample = append(sample, sampledGame{game: g, stratum: classifyStratum(g)})
				taken[g.ID] = true
			}
		}
	}
	return sample
}

// classifyStratum buckets a completed game. Upset detection is a margin
// heuristic (away team wins by more than 10), an approximation that stands
// in for ranking or line data.
func classifyStratum(g models.Game) string {
	margin := g.Margin()
	switch {
	case margin < -10:
		return StratumUpset
	case margin >= 28 || margin <= -28:
		return StratumBlowout
	case margin >= -7 && margin <= 7:
		return StratumClose
	default:
		return StratumRegular
	}
}

func (a *SampleGameAnalyzer) logSummary(season int, results []GameAnalysisResult) {
	correct := 0
	for _, r := range results {
		if r.WinnerCorrect {
			correct++
		}
	}
	accuracy := 0.0
	if len(results) > 0 {
		accuracy = float64(correct) / float64(len(results))
	}

	summary := models.ValidationResult{
		Component: models.ComponentSampleAnalyzer,
		IsValid:   true,
		Score:     accuracy * 100,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]interface{}{
			"season":          season,
			"games_analyzed":  len(results),
			"winner_accuracy": accuracy,
		},
	}
	a.vlog.LogResult(summary)
}
