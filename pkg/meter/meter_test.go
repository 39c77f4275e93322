package meter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounter advances by a fixed step on every read
type fakeCounter struct{ step uint64 }

func (fakeCounter) Name() string { return "fake" }

func (c fakeCounter) Start() (Stopwatch, error) { return &fakeStopwatch{step: c.step}, nil }

type fakeStopwatch struct {
	step, now uint64
	stopped   bool
}

func (s *fakeStopwatch) Elapsed() uint64 {
	s.now += s.step
	return s.now
}

func (s *fakeStopwatch) Stop() (uint64, error) {
	if s.stopped {
		return s.now, ErrStopped
	}
	s.stopped = true
	return s.Elapsed(), nil
}

var sink int

func TestNew(t *testing.T) {
	c, err := New(KindClock)
	require.NoError(t, err)
	assert.Equal(t, KindClock, c.Name())

	c, err = New(KindAuto)
	require.NoError(t, err)
	assert.Contains(t, []string{KindPerf, KindClock}, c.Name())

	_, err = New("cycles")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCounter))
}

func TestClock(t *testing.T) {
	sw, err := ClockCounter{}.Start()
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	assert.True(t, sw.Elapsed() >= uint64(time.Millisecond))

	total, err := sw.Stop()
	require.NoError(t, err)
	assert.Equal(t, total, sw.Elapsed())

	_, err = sw.Stop()
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestMeasureScopes(t *testing.T) {
	m, err := Measure(context.Background(), fakeCounter{step: 10}, func(ctx context.Context) error {
		// Elapsed: 10
		assert.Equal(t, uint64(10), Performance(ctx))

		end := Scope(ctx, "insert") // 20
		end()                       // 30
		end = Scope(ctx, "insert")  // 40
		end()                       // 50
		end = Scope(ctx, "commit")  // 60
		end()                       // 70
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(80), m.Instructions)
	require.Len(t, m.Scopes, 2)
	assert.Equal(t, uint64(20), m.Scopes["insert"].Instructions)
	assert.Equal(t, uint64(10), m.Scopes["commit"].Instructions)
}

func TestMeasureError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Measure(context.Background(), fakeCounter{step: 1}, func(context.Context) error {
		return boom
	})
	assert.Equal(t, boom, err)
}

func TestOutsideMeasure(t *testing.T) {
	ctx := context.Background()
	assert.Zero(t, Performance(ctx))
	Scope(ctx, "noop")()

	ctx = WithStopwatch(ctx, &fakeStopwatch{step: 5})
	assert.Equal(t, uint64(5), Performance(ctx))
}

func TestEnsure(t *testing.T) {
	ctx := WithStopwatch(context.Background(), &fakeStopwatch{step: 5})
	assert.Equal(t, ctx, Ensure(ctx))

	ctx = Ensure(context.Background())
	first := Performance(ctx)
	time.Sleep(time.Millisecond)
	assert.Greater(t, Performance(ctx), first)
}

func TestPerfCounterIfAvailable(t *testing.T) {
	c, err := New(KindPerf)
	if err != nil {
		t.Skipf("perf counter unavailable: %v", err)
	}

	m, err := Measure(context.Background(), c, func(context.Context) error {
		s := 0
		for i := 0; i < 100000; i++ {
			s += i
		}
		sink = s
		return nil
	})
	require.NoError(t, err)
	assert.True(t, m.Instructions > 100000)
}
