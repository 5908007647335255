package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/flychess-backend/internal/config"
)

func TestServeRejectsInvalidFlags(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{
		"serve",
		"--env-file", filepath.Join(t.TempDir(), "absent.env"),
		"--players", "7",
	})
	err := cmd.Execute()
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestServeHasFlags(t *testing.T) {
	serve := serveCmd()
	for _, name := range []string{"env-file", "port", "players", "http-addr", "log-level", "database-url"} {
		require.NotNil(t, serve.Flags().Lookup(name), name)
	}
}
