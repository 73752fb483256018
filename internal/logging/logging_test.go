package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/llm-prompter/internal/config"
	"github.com/temirov/llm-prompter/internal/failure"
	"github.com/temirov/llm-prompter/internal/fsops"
	"github.com/temirov/llm-prompter/internal/logging"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected zapcore.Level
		valid    bool
	}{
		{input: "", expected: zapcore.InfoLevel, valid: true},
		{input: "debug", expected: zapcore.DebugLevel, valid: true},
		{input: " WARN ", expected: zapcore.WarnLevel, valid: true},
		{input: "error", expected: zapcore.ErrorLevel, valid: true},
		{input: "fatal", valid: false},
		{input: "verbose", valid: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			level, err := logging.ParseLevel(testCase.input)
			if !testCase.valid {
				assert.True(t, failure.Is(err, failure.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, level)
		})
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "llm-prompter.log", logging.FileName(config.LogModeRewrite, now))
	assert.Equal(t, "llm-prompter.log", logging.FileName("", now))
	assert.Equal(t, "llm-prompter.20240309-140507.log", logging.FileName(config.LogModeAppend, now))
}

func TestJSONLinesCarryRunID(t *testing.T) {
	var stderr bytes.Buffer
	logger, closeLogger, err := logging.New(config.Log{Level: "info", Format: logging.FormatJSON}, logging.Options{Stderr: zapcore.AddSync(&stderr)})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("run finished", zap.Int("total", 3))
	require.NoError(t, closeLogger())

	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.EqualValues(t, 3, entry["total"])
	assert.NotEmpty(t, entry["run_id"])
}

func TestLogFileModes(t *testing.T) {
	store := fsops.NewMem()
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	newLogger := func(mode string) {
		logger, closeLogger, err := logging.New(
			config.Log{Level: "debug", Dir: "/logs", Mode: mode},
			logging.Options{Store: store, Stderr: zapcore.AddSync(&bytes.Buffer{}), Now: func() time.Time { return now }},
		)
		require.NoError(t, err)
		logger.Debug("line from " + mode)
		require.NoError(t, closeLogger())
	}

	newLogger(config.LogModeRewrite)
	newLogger(config.LogModeRewrite)
	rewritten, err := store.ReadText("/logs/llm-prompter.log")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(rewritten, "line from rewrite"))

	newLogger(config.LogModeAppend)
	appended, err := store.ReadText("/logs/llm-prompter.20240309-140507.log")
	require.NoError(t, err)
	assert.Contains(t, appended, "line from append")
	assert.Contains(t, appended, "DEBUG")
}
