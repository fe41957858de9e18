package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"timecast/internal/shared/types"
)

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(types.LogConf{Level: "warn"}, &buf))

	Info().Str("k", "v").Msg("hidden")
	Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(types.LogConf{Level: "chatty"}, &buf))

	Debug().Msg("debug line")
	Info().Msg("info line")

	out := buf.String()
	require.Contains(t, out, "defaulting to 'info'")
	require.NotContains(t, out, "debug line")
	require.Contains(t, out, "info line")
}
