package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONConComponente(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "info", Output: &buf}).Component("motor")

	l.Info().Str("uf", "AM").Msg("matrices cargadas")
	l.Debug().Msg("no debe salir")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "motor", entry["component"])
	assert.Equal(t, "AM", entry["uf"])
	assert.Equal(t, "matrices cargadas", entry["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "warn", parseLevel("warn").String())
	assert.Equal(t, "info", parseLevel("").String())
	assert.Equal(t, "info", parseLevel("ruido").String())
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error().Msg("descartado") })
}
