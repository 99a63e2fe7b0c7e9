package logging_test

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/paths"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupLoggerVerbosityLevels(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{9, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Setenv("XDG_STATE_HOME", t.TempDir())
		logging.SetupLogger(tt.verbosity)
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), "verbosity %d", tt.verbosity)
	}
}

func TestSetupLoggerHonorsStateDirOverride(t *testing.T) {
	stateDir := t.TempDir()
	t.Setenv(paths.EnvStateDir, stateDir)

	logging.SetupLogger(0)

	assert.FileExists(t, filepath.Join(stateDir, paths.LogFileName))
}

func TestGetLoggerIsUsable(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	logging.SetupLogger(0)

	logger := logging.GetLogger("test.component")
	// Must not panic and must carry the component field.
	logger.Info().Msg("hello")
}
