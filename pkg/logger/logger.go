// Package logger builds the process-wide structured logger. The logger is
// constructed once in main and handed to every component explicitly; there
// is no package-level instance.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// InitLogger initializes the structured logger with proper configuration
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	// Override with environment if not provided
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("Invalid LOG_LEVEL, using INFO")
	}

	// Set formatter based on environment
	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.SetOutput(os.Stdout)

	return log
}

// WithComponent creates an entry with pipeline component context
func WithComponent(log *logrus.Logger, component string) *logrus.Entry {
	return log.WithField("component", component)
}

// WithSeason creates an entry with season context
func WithSeason(log *logrus.Logger, season int) *logrus.Entry {
	return log.WithField("season", season)
}

// WithTeamContext creates an entry with team and season context
func WithTeamContext(log *logrus.Logger, teamID uint, season int) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"team_id": teamID,
		"season":  season,
	})
}

// WithPredictionID creates an entry with prediction context
func WithPredictionID(log *logrus.Logger, predictionID string) *logrus.Entry {
	return log.WithField("prediction_id", predictionID)
}

// WithMatchup creates an entry with full matchup context
func WithMatchup(log *logrus.Logger, homeTeamID, awayTeamID uint, season int) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"home_team_id": homeTeamID,
		"away_team_id": awayTeamID,
		"season":       season,
	})
}
