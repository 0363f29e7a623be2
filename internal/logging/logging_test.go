package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/dormportal/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })

	var buf bytes.Buffer
	require.Equal(t, zerolog.WarnLevel, logging.SetupWriter(&buf, "PROD", "WARN"))

	log.Info().Msg("dropped")
	log.Warn().Str("tenant_id", "t-1").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "kept", line["message"])
	require.Equal(t, "t-1", line["tenant_id"])
}

func TestSetupWriter_UnknownLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })

	var buf bytes.Buffer
	require.Equal(t, zerolog.InfoLevel, logging.SetupWriter(&buf, "DEV", "chatty"))
	log.Info().Msg("hello")
	require.Contains(t, buf.String(), "hello")
}
