package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		envLevel      string
		isDev         bool
		expectedLevel logrus.Level
		expectJSON    bool
	}{
		{
			name:          "production defaults to info json",
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
		{
			name:          "development defaults to debug text",
			isDev:         true,
			expectedLevel: logrus.DebugLevel,
			expectJSON:    false,
		},
		{
			name:          "explicit level wins over environment",
			logLevel:      "error",
			envLevel:      "debug",
			expectedLevel: logrus.ErrorLevel,
			expectJSON:    true,
		},
		{
			name:          "environment level used when argument empty",
			envLevel:      "WARN",
			expectedLevel: logrus.WarnLevel,
			expectJSON:    true,
		},
		{
			name:          "invalid level defaults to info",
			logLevel:      "loud",
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			if tt.envLevel != "" {
				os.Setenv("LOG_LEVEL", tt.envLevel)
			} else {
				os.Unsetenv("LOG_LEVEL")
			}
			os.Unsetenv("LOG_FORMAT")
			defer os.Unsetenv("LOG_LEVEL")

			log := InitLogger(tt.logLevel, tt.isDev)

			assert.Equal(t, tt.expectedLevel, log.GetLevel(), "log level mismatch")
			if tt.expectJSON {
				_, ok := log.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok, "expected JSON formatter")
			} else {
				_, ok := log.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok, "expected text formatter")
			}
			assert.Same(t, log, GetLogger())
		})
	}
}

func TestWithSimulationContext(t *testing.T) {
	Logger = nil
	os.Unsetenv("LOG_LEVEL")
	log := InitLogger("debug", false)

	var buf bytes.Buffer
	log.SetOutput(&buf)

	WithSimulationContext("sim-123", "Kansas City", "Buffalo").Info("simulation started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output should be valid JSON")
	assert.Equal(t, "sim-123", entry["simulation_id"])
	assert.Equal(t, "Kansas City", entry["home_team"])
	assert.Equal(t, "Buffalo", entry["away_team"])
	assert.Equal(t, "simulation started", entry["msg"])
}

func TestOrDefault(t *testing.T) {
	Logger = nil
	custom := logrus.New()
	assert.Same(t, custom, OrDefault(custom))
	assert.Same(t, GetLogger(), OrDefault(nil))
}
