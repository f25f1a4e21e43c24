package services

import (
	"context"
	"fmt"

	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/internal/storage"
)

// SeasonData is an in-memory snapshot of one season's completed games and
// box scores, indexed for the aggregation and efficiency passes. Loading a
// season once keeps the per-team computations pure and independent.
type SeasonData struct {
	Season int
	Games  []models.Game

	gamesByTeam map[uint][]models.Game
	statIndex   map[statKey]models.TeamGameStat
}

type statKey struct {
	gameID uint
	teamID uint
}

// LoadSeasonData pulls the season snapshot from the store.
func LoadSeasonData(ctx context.Context, store storage.GameStore, season int) (*SeasonData, error) {
	games, err := store.CompletedGames(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("failed to load season %d games: %w", season, err)
	}
	stats, err := store.GameStats(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("failed to load season %d stats: %w", season, err)
	}
	return NewSeasonData(season, games, stats), nil
}

// NewSeasonData builds the snapshot from already-loaded rows.
func NewSeasonData(season int, games []models.Game, stats []models.TeamGameStat) *SeasonData {
	d := &SeasonData{
		Season:      season,
		Games:       games,
		gamesByTeam: make(map[uint][]models.Game),
		statIndex:   make(map[statKey]models.TeamGameStat),
	}
	for _, g := range games {
		d.gamesByTeam[g.HomeTeamID] = append(d.gamesByTeam[g.HomeTeamID], g)
		d.gamesByTeam[g.AwayTeamID] = append(d.gamesByTeam[g.AwayTeamID], g)
	}
	for _, s := range stats {
		d.statIndex[statKey{gameID: s.GameID, teamID: s.TeamID}] = s
	}
	return d
}

// GamesFor returns the completed games a team played in.
func (d *SeasonData) GamesFor(teamID uint) []models.Game {
	return d.gamesByTeam[teamID]
}

// Stat returns a team's box-score row for a game.
func (d *SeasonData) Stat(gameID, teamID uint) (models.TeamGameStat, bool) {
	s, ok := d.statIndex[statKey{gameID: gameID, teamID: teamID}]
	return s, ok
}

// TeamIDs returns every team that appears in a completed game.
func (d *SeasonData) TeamIDs() []uint {
	ids := make([]uint, 0, len(d.gamesByTeam))
	for id := range d.gamesByTeam {
		ids = append(ids, id)
	}
	return ids
}
