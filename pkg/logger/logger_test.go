package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bultos-api/pkg/logger"
)

func TestNew_JSONFueraDeDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", Output: &buf})

	log.Info().Str("actor", "op-1").Msg("bulto dividido")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "la salida debe ser JSON")
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "op-1", line["actor"])
	assert.Equal(t, "bulto dividido", line["message"])
}

func TestNew_RespetaNivel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "warn", Output: &buf})

	log.Info().Msg("no debe salir")
	assert.Empty(t, buf.String())

	log.Event(zerolog.WarnLevel).Msg("sí sale")
	assert.Contains(t, buf.String(), "sí sale")
}

func TestNop_NoEscribe(t *testing.T) {
	log := logger.Nop()
	assert.NotPanics(t, func() {
		log.Event(zerolog.ErrorLevel).Str("k", "v").Msg("descartado")
	})
}
