package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestLoggerCapturesLevels(t *testing.T) {
	logger, buffer := NewTestLogger(LevelDebug)

	logger.Debug("debug message", StageKey, "Q1")
	logger.Info("info message", DrawsKey, 1000)
	logger.Warn("warning message", RHatKey, 1.2)
	logger.Error("error message", fmt.Errorf("sampling failed"), StageKey, "Q4_B")

	require.NotEmpty(t, buffer.String())
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, logger.ContainsMessage(msg), msg)
	}

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, "ERROR", entries[3]["level"])
	assert.Equal(t, "sampling failed", entries[3][ErrAttrKey])
	assert.Equal(t, "Q4_B", entries[3][StageKey])
}

func TestTestLoggerLevelFilter(t *testing.T) {
	logger, _ := NewTestLogger(LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])

	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}

func TestTestLoggerWith(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	stageLogger := logger.With(StageKey, "Q3_A", SpeciesKey, "bivalve")
	stageLogger.Info("fitting")

	assert.True(t, logger.ContainsField(StageKey, "Q3_A"))
	assert.True(t, logger.ContainsField(SpeciesKey, "bivalve"))

	logger.Clear()
	assert.Empty(t, logger.GetBuffer().String())
}

func TestTestLoggerConcurrentChains(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for chain := 0; chain < 4; chain++ {
		wg.Add(1)
		go func(chain int) {
			defer wg.Done()
			logger.With(ChainsKey, chain).Info("chain finished")
		}(chain)
	}
	wg.Wait()

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestNormalizeFields(t *testing.T) {
	err := errors.New("boom")

	tests := []struct {
		name string
		in   []any
		want []any
	}{
		{name: "empty", in: nil, want: nil},
		{name: "plain pairs", in: []any{StageKey, "Q1"}, want: []any{StageKey, "Q1"}},
		{name: "leading error", in: []any{err, StageKey, "Q2"}, want: []any{ErrAttrKey, err, StageKey, "Q2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeFields(tt.in))
		})
	}
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf), LevelInfo)

	logger.Debug("not written")
	logger.With(RunIDKey, "run-1").Info("stage done", StageKey, "Q2", DurationMs, 12)

	out := buf.String()
	assert.NotContains(t, out, "not written")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "stage done", entry["message"])
	assert.Equal(t, "run-1", entry[RunIDKey])
	assert.Equal(t, "Q2", entry[StageKey])

	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), LevelWarn))
}

func TestZerologLoggerError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf), LevelDebug)

	logger.Error("compile failed", errors.New("exit status 2"))

	assert.Contains(t, buf.String(), `"error":"exit status 2"`)
}

func TestSetupLoggerCloudLoggingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(LevelInfo, &buf)

	logger.Info("payload built", StageKey, "Q3_B")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["severity"])
	assert.Equal(t, "payload built", entry["message"])
	assert.Equal(t, "Q3_B", entry[StageKey])
}

func TestSetupLoggerStacktrace(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(LevelDebug, &buf)

	logger.Error("read failed", errors.New("no such file"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["severity"])
	assert.Contains(t, entry, StacktraceAttrKey)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "warn", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	logger, _ := NewTestLogger(LevelInfo)
	SetLogger(logger)
	GetLogger().Info("through default")

	assert.True(t, logger.ContainsMessage("through default"))
}
