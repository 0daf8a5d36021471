package main

import (
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SPEAKER_TRACK/go-backend/internal/config"
)

func TestServeReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := &config.Config{
		GRPCPort:         "0",
		HTTPPort:         strconv.Itoa(busy.Addr().(*net.TCPAddr).Port),
		MaxSessions:      4,
		MaxMessageSizeMB: 4,
		DBDriver:         config.DriverSQLite,
		SQLitePath:       filepath.Join(t.TempDir(), "serve.db"),
	}

	err = runServe(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestTrimPort(t *testing.T) {
	assert.Equal(t, "8081", trimPort(":8081"))
	assert.Equal(t, "8081", trimPort("8081"))
	assert.Equal(t, "", trimPort(""))
}
