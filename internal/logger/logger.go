package logger

import (
	"fmt"

	"github.com/straye-as/labelling-app/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates the application logger. Development uses a colored console
// encoder, production (or format "json") writes JSON lines.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// WithRequest adds request context to logger
func WithRequest(logger *zap.Logger, method, path, requestID string) *zap.Logger {
	return logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithUser adds the labeller identity to logger
func WithUser(logger *zap.Logger, username, displayName string) *zap.Logger {
	return logger.With(
		zap.String("user_name", username),
		zap.String("display_name", displayName),
	)
}

// WithRun adds the labelling run and input file to logger
func WithRun(logger *zap.Logger, runID, fileName string) *zap.Logger {
	return logger.With(
		zap.String("run_id", runID),
		zap.String("input_file", fileName),
	)
}
