package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_NilConfigDefaultsToProduction(t *testing.T) {
	log, err := NewLogger(nil)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNewLogger_DebugUsesDevelopmentEncoder(t *testing.T) {
	log, err := NewLogger(&LoggerConfig{Debug: true})
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
