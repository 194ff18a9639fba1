package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempIni(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "can.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTempIni(t, `
[can]
fifo_size = 32
pending_rtr_slots = 2
can_fd = true
extid = true
errors = false
tx_ready = true
`)

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Options{
		FIFOSize:        32,
		PendingRTRSlots: 2,
		CANFD:           true,
		ExtID:           true,
		Errors:          false,
		TxReady:         true,
	}, opts)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeTempIni(t, "[can]\nfifo_size = 16\n")

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, opts.FIFOSize)
	assert.Equal(t, Default().PendingRTRSlots, opts.PendingRTRSlots)
}

func TestLoadRejectsInvalidOptions(t *testing.T) {
	path := writeTempIni(t, "[can]\nfifo_size = 1\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
