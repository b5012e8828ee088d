package logger

import (
	"go.uber.org/zap"
)

// LoggerConfig controls how the process-wide logger is constructed.
type LoggerConfig struct {
	Debug bool
}

// NewLogger builds a zap.Logger, defaulting to the production encoder and
// switching to the development encoder (caller, stack traces on warn) when
// Debug is set.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	if cfg != nil && cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
