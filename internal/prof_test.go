package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestProfiles(t *testing.T) {
	dir := t.TempDir()

	stop, err := StartCPUProf(filepath.Join(dir, "cpu.prof"))
	require.NoError(t, err)
	require.NoError(t, stop())

	require.NoError(t, WriteProf(filepath.Join(dir, "mem.prof"), "heap"))
	fi, err := os.Stat(filepath.Join(dir, "mem.prof"))
	require.NoError(t, err)
	assert.NotZero(t, fi.Size())

	assert.Error(t, WriteProf(filepath.Join(dir, "none.prof"), "no-such-profile"))
}

func TestMemPoll(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	MemPoll(ctx, MemPollParams{Poll: time.Millisecond, Logger: zap.New(core)})
	require.Eventually(t, func() bool {
		return logs.FilterMessage("grew heap").Len() > 0
	}, time.Second, 5*time.Millisecond)
}
