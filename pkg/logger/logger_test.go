package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ksp/warehouse/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel("WARN", "production"))
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("", "development"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("", "production"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("loud", "staging"))
}

func TestFieldsAreAttached(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "warehouse-service").
		WithComponent("expiry_scheduler").
		WithJob("expiry_notification", "run-1")

	log.Info().Int("units", 4).Msg("done")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warehouse-service", line["service"])
	assert.Equal(t, "expiry_scheduler", line["component"])
	assert.Equal(t, "expiry_notification", line["job"])
	assert.Equal(t, "run-1", line["run_id"])
	assert.EqualValues(t, 4, line["units"])
}
