package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(models.LogConfig{Level: "debug", Encoding: "json", OutputPath: path})
	require.NoError(t, err)

	log.Named("ledger").Info("结算完成")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"INFO"`)
	assert.Contains(t, string(data), `"logger":"ledger"`)
	assert.Contains(t, string(data), "结算完成")
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(models.LogConfig{Level: "loud", Encoding: "weird", OutputPath: path})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"msg":"shown"`)
}
