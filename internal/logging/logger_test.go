package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, opts Options) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)

	optionsMu.Lock()
	options = opts
	optionsMu.Unlock()
	SetBase(zap.New(core))

	t.Cleanup(func() {
		optionsMu.Lock()
		options = Options{}
		optionsMu.Unlock()
		SetBase(nil)
	})
	return logs
}

func TestGetWritesThroughCategory(t *testing.T) {
	logs := observe(t, Options{})

	Get(CategorySMT).Info("verified %d properties", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "verified 3 properties", entries[0].Message)
	assert.Equal(t, "smt", entries[0].LoggerName)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestDisabledCategoryIsNoop(t *testing.T) {
	logs := observe(t, Options{Categories: map[string]bool{"store": false}})

	l := Get(CategoryStore)
	assert.False(t, l.Enabled())
	l.Error("should not appear")
	StoreDebug("nor this")

	Get(CategoryBatch).Warn("this one shows")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "batch", entries[0].LoggerName)
}

func TestWithCarriesFields(t *testing.T) {
	logs := observe(t, Options{})

	Get(CategorySolver).With("property", "safety_isolation").Debug("query sent")

	entries := logs.FilterField(zap.String("property", "safety_isolation")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "query sent", entries[0].Message)
}

func TestTimerStopWithThreshold(t *testing.T) {
	logs := observe(t, Options{})

	timer := StartTimer(CategorySMT, "verify")
	timer.start = time.Now().Add(-2 * time.Second)
	elapsed := timer.StopWithThreshold(time.Second)

	assert.GreaterOrEqual(t, elapsed, 2*time.Second)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "verify took")
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	err := Initialize(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestInitializeDebugMode(t *testing.T) {
	t.Cleanup(func() { SetBase(nil) })
	require.NoError(t, Initialize(Options{Level: "warn", DebugMode: true, Format: "json"}))
	assert.True(t, Base().Core().Enabled(zapcore.DebugLevel))
}
