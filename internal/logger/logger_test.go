package logger

import (
	"os"
	"path/filepath"
	"testing"

	logrus "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToRotatedFile(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	file := filepath.Join(t.TempDir(), "logs", "app.log")
	w := Setup(file, "warn")
	require.NotNil(t, w)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	logrus.Warn("rotator smoke test")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotator smoke test")
}

func TestSetupUnknownLevel(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	Setup(filepath.Join(t.TempDir(), "app.log"), "chatty")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestSetupFallsBackToStdoutWhenDirIsUnusable(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	// A regular file where the log directory should be.
	blocker := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	w := Setup(filepath.Join(blocker, "app.log"), "debug")
	assert.Equal(t, os.Stdout, w)
	assert.Equal(t, os.Stdout, logrus.StandardLogger().Out)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}
