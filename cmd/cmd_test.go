package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/josephlewis42/cowsh/core/config"
	"github.com/josephlewis42/cowsh/core/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgPath = ""
		command = ""
		exitStatus = 0
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuiltinsCommand(t *testing.T) {
	out, err := execute(t, "builtins")
	require.NoError(t, err)
	assert.Equal(t, "cd\nexit\nhelp\nhistory\njobs\n", out)
}

func TestInitCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cowsh")

	_, err := execute(t, "init", "--config", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.ConfigurationName))
}

func TestLoadConfig_MissingExplicitDir(t *testing.T) {
	cfgPath = filepath.Join(t.TempDir(), "missing")
	t.Cleanup(func() { cfgPath = "" })

	_, err := loadConfig()
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEventsReportCommand(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.log")
	fd, err := os.Create(logPath)
	require.NoError(t, err)
	session := logger.NewJsonLinesLogRecorder(fd).NewSession()
	session.Command("ls -l", 0)
	session.Command("ls", 2)
	require.NoError(t, fd.Close())

	out, err := execute(t, "events", "report", logPath)
	require.NoError(t, err)
	assert.Contains(t, out, "log_entries: 2")
	assert.Contains(t, out, "ls: 2")
}

func TestRootCommand_Command(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "init", "--config", dir)
	require.NoError(t, err)

	out, err := execute(t, "--config", dir, "-c", "echo hello | tr a-z A-Z")
	require.NoError(t, err)
	assert.Equal(t, 0, exitStatus)
	assert.Equal(t, "HELLO\n", out)

	out, err = execute(t, "events", "sessions", filepath.Join(dir, "events.log"))
	require.NoError(t, err)
	assert.Contains(t, out, "- echo hello | tr a-z A-Z")
}
