package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "livetrade.log")
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	require.NoError(t, Init(Config{Level: "debug", OutputFile: path, MaxSize: 1}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	Component("test").Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "component=test")
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	require.NoError(t, Init(Config{Level: "loud"}))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
