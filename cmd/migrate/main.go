package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gridironlabs/gridiron-predict/internal/models"
	"github.com/gridironlabs/gridiron-predict/pkg/config"
	"github.com/gridironlabs/gridiron-predict/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(database.Config{
		URL:             cfg.DatabaseURL,
		Development:     cfg.IsDevelopment(),
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, logrus.StandardLogger())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	// Enable UUID extension for PostgreSQL
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Auto migrate all models
	if err := db.AutoMigrate(
		&models.Team{},
		&models.Game{},
		&models.TeamGameStat{},
		&models.TeamEfficiencyProfile{},
		&models.PredictionWeights{},
		&models.WeightChangeEntry{},
		&models.RegressionAnalysisResult{},
		&models.GamePrediction{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_games_season_week ON games(season, week)",
		"CREATE INDEX IF NOT EXISTS idx_games_home_team ON games(home_team_id, season)",
		"CREATE INDEX IF NOT EXISTS idx_games_away_team ON games(away_team_id, season)",
		"CREATE INDEX IF NOT EXISTS idx_stats_team_season ON team_game_stats(team_id, season)",
		"CREATE INDEX IF NOT EXISTS idx_weights_season_created ON prediction_weights(season, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_weight_changes_season ON weight_change_entries(season, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_regressions_season ON regression_analysis_results(season, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_predictions_season ON game_predictions(season, created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"game_predictions",
		"regression_analysis_results",
		"weight_change_entries",
		"prediction_weights",
		"team_efficiency_profiles",
		"team_game_stats",
		"games",
		"teams",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

// seedData creates a 12-team league with a full double round-robin season of
// completed games and box scores, enough to exercise aggregation, regression
// and prediction end to end.
func seedData(db *database.DB) error {
	teams := []models.Team{
		{Name: "Ashford Admirals", Abbr: "ASH", Conference: "East"},
		{Name: "Brookfield Bears", Abbr: "BRK", Conference: "East"},
		{Name: "Caldwell Comets", Abbr: "CAL", Conference: "East"},
		{Name: "Dunmore Drakes", Abbr: "DUN", Conference: "East"},
		{Name: "Eastlake Eagles", Abbr: "ELK", Conference: "East"},
		{Name: "Fairmont Foxes", Abbr: "FRM", Conference: "East"},
		{Name: "Glenview Gladiators", Abbr: "GLN", Conference: "West"},
		{Name: "Harborside Hawks", Abbr: "HRB", Conference: "West"},
		{Name: "Ironwood Icemen", Abbr: "IRW", Conference: "West"},
		{Name: "Jupiter Jets", Abbr: "JUP", Conference: "West"},
		{Name: "Kingsport Knights", Abbr: "KNG", Conference: "West"},
		{Name: "Lakewood Lions", Abbr: "LKW", Conference: "West"},
	}

	if err := db.Create(&teams).Error; err != nil {
		return fmt.Errorf("failed to create teams: %w", err)
	}

	season := time.Now().Year()
	rng := rand.New(rand.NewSource(int64(season)))

	// Per-team scoring identity so the season has real signal for the
	// regression to find, not pure noise.
	strength := make(map[uint]float64, len(teams))
	for i, t := range teams {
		strength[t.ID] = float64(i-5) * 1.8
	}

	kickoff := time.Date(season, time.September, 6, 17, 0, 0, 0, time.UTC)

	week := 1
	var games []models.Game
	for i := range teams {
		for j := range teams {
			if i == j {
				continue
			}
			home, away := teams[i], teams[j]
			homeScore := simulateScore(rng, strength[home.ID]+2.5)
			awayScore := simulateScore(rng, strength[away.ID])
			games = append(games, models.Game{
				Season:     season,
				Week:       week,
				HomeTeamID: home.ID,
				AwayTeamID: away.ID,
				HomeScore:  homeScore,
				AwayScore:  awayScore,
				Completed:  true,
				GameDate:   kickoff.AddDate(0, 0, (week-1)*7),
			})
			if len(games)%6 == 0 {
				week++
			}
		}
	}

	if err := db.CreateInBatches(&games, 50).Error; err != nil {
		return fmt.Errorf("failed to create games: %w", err)
	}

	var stats []models.TeamGameStat
	for _, g := range games {
		stats = append(stats,
			simulateBoxScore(rng, g, g.HomeTeamID, g.HomeScore),
			simulateBoxScore(rng, g, g.AwayTeamID, g.AwayScore))
	}
	if err := db.CreateInBatches(&stats, 100).Error; err != nil {
		return fmt.Errorf("failed to create box scores: %w", err)
	}

	logrus.Infof("Seeded %d teams, %d games, %d box scores for season %d",
		len(teams), len(games), len(stats), season)
	return nil
}

func simulateScore(rng *rand.Rand, expected float64) int {
	score := int(28 + expected + rng.NormFloat64()*9)
	if score < 0 {
		score = 0
	}
	return score
}

func simulateBoxScore(rng *rand.Rand, g models.Game, teamID uint, points int) models.TeamGameStat {
	passing := 180 + rng.Intn(180)
	rushing := 80 + rng.Intn(160)
	fgm := rng.Intn(4)
	return models.TeamGameStat{
		GameID:                  g.ID,
		TeamID:                  teamID,
		Season:                  g.Season,
		PassingYards:            passing,
		RushingYards:            rushing,
		TotalYards:              passing + rushing,
		Points:                  points,
		Turnovers:               rng.Intn(4),
		Sacks:                   rng.Intn(6),
		Interceptions:           rng.Intn(3),
		FieldGoalsMade:          fgm,
		FieldGoalsAttempted:     fgm + rng.Intn(2),
		ThirdDownAttempts:       10 + rng.Intn(6),
		ThirdDownConversions:    3 + rng.Intn(6),
		RedZoneAttempts:         2 + rng.Intn(4),
		RedZoneConversions:      1 + rng.Intn(3),
		TimeOfPossessionSeconds: 1500 + rng.Intn(600),
	}
}
