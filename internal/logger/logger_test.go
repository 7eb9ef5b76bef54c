package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	closer, err := Setup(Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info().Str("symbol", "AAPL").Msg("forecast done")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol":"AAPL"`)
	assert.Contains(t, string(data), `"message":"forecast done"`)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(Config{Level: "loud"})
	assert.Error(t, err)
}
