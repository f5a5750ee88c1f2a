package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	assert.True(t, strings.HasPrefix(s.Name, "dshare_"))
	assert.Equal(t, "127.0.0.1:0", s.Address)
	assert.Equal(t, 15, s.Workers)
	assert.Equal(t, 20, s.RetryAttempts)
	assert.Equal(t, 2000, s.RetryUnitMillisecond)
	assert.False(t, s.Permissions.AllowMetadata)
	assert.False(t, s.Permissions.AllowInteractions)

	p := s.RetryPolicy()
	assert.Equal(t, 20, p.Attempts)
	assert.Equal(t, 2*time.Second, p.Unit)
	assert.Equal(t, 25*time.Millisecond, s.ReadGrace())
}

func TestDefaultSettingsHaveDistinctNames(t *testing.T) {
	assert.NotEqual(t, DefaultSettings().Name, DefaultSettings().Name)
}

func TestSaveAndLoadSettings(t *testing.T) {
	dir := t.TempDir()

	s := DefaultSettings()
	s.Peers = []string{"127.0.0.1:7001", "127.0.0.1:7002"}
	s.Permissions.AllowInteractions = true
	s.Storage.Engine = StorageEngineBadger
	s.Storage.Path = filepath.Join(dir, "data")

	path, err := s.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SettingsFileName), path)

	// load by directory and by file
	for _, p := range []string{dir, path} {
		loaded, err := LoadSettings(p)
		require.NoError(t, err)
		assert.Equal(t, s, loaded)
	}
}

func TestLoadSettingsKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	content := `{"name": "partial", "address": "127.0.0.1:9000", "peers": ["127.0.0.1:9001"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(content), 0o644))

	s, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "partial", s.Name)
	assert.Equal(t, []string{"127.0.0.1:9001"}, s.Peers)
	assert.Equal(t, 15, s.Workers)
	assert.Equal(t, Version, s.Version)
	require.NoError(t, s.Validate())
}

func TestLoadSettingsErrors(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadSettings(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
	}{
		{"empty name", func(s *Settings) { s.Name = "" }},
		{"bad address", func(s *Settings) { s.Address = "no-port" }},
		{"bad peer", func(s *Settings) { s.Peers = []string{"127.0.0.1"} }},
		{"bad engine", func(s *Settings) { s.Storage.Engine = "redis" }},
		{"badger without path", func(s *Settings) { s.Storage.Engine = StorageEngineBadger; s.Storage.Path = "" }},
		{"no workers", func(s *Settings) { s.Workers = 0 }},
		{"no attempts", func(s *Settings) { s.RetryAttempts = 0 }},
		{"negative unit", func(s *Settings) { s.RetryUnitMillisecond = -1 }},
		{"no grace", func(s *Settings) { s.ReadGraceMillisecond = 0 }},
		{"bad log level", func(s *Settings) { s.LogLevel = "verbose" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSettings()
			tc.modify(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestSettingsString(t *testing.T) {
	s := DefaultSettings()
	s.Peers = []string{"10.0.0.1:7000"}
	out := s.String()

	assert.Contains(t, out, "NODE")
	assert.Contains(t, out, s.Name)
	assert.Contains(t, out, "10.0.0.1:7000")
	assert.Contains(t, out, "disabled")
}
