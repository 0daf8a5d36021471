package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SPEAKER_TRACK/go-backend/internal/handlers"
	"SPEAKER_TRACK/go-backend/internal/services"
	"SPEAKER_TRACK/go-backend/internal/tracker"
)

func TestClientAgainstBackend(t *testing.T) {
	hash, err := handlers.HashToken("s3cret")
	require.NoError(t, err)

	sessions := services.NewSessionManager(tracker.DefaultOptions)
	api := handlers.NewAPI(sessions, nil, nil, nil, handlers.APIConfig{TokenHash: hash})
	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	cmd := rootCmd()
	cmd.SetArgs([]string{"--url", srv.URL, "--token", "s3cret", "--seconds", "1"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, 1, seconds)
	assert.Zero(t, sessions.Active())
}

func TestClientRejectedWithoutToken(t *testing.T) {
	hash, err := handlers.HashToken("s3cret")
	require.NoError(t, err)

	api := handlers.NewAPI(services.NewSessionManager(tracker.DefaultOptions), nil, nil, nil, handlers.APIConfig{TokenHash: hash})
	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	cmd := rootCmd()
	cmd.SetArgs([]string{"--url", srv.URL, "--token", "", "--seconds", "1"})
	assert.Error(t, cmd.Execute())
}

func TestMouthRatio(t *testing.T) {
	assert.Equal(t, 0.02, mouthRatio(false, 3))
	assert.InDelta(t, 0.15, mouthRatio(true, 0), 1e-9)
	assert.Greater(t, mouthRatio(true, 1), 0.15)
}
