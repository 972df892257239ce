package processing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseLabel(t *testing.T) {
	assert.Equal(t, "Contacting payment processor", PhaseLabel(0))
	assert.Equal(t, "Contacting payment processor", PhaseLabel(0.29))
	assert.Equal(t, "Verifying payment details", PhaseLabel(0.30))
	assert.Equal(t, "Verifying payment details", PhaseLabel(0.59))
	assert.Equal(t, "Confirming with your bank", PhaseLabel(0.60))
	assert.Equal(t, "Confirming with your bank", PhaseLabel(0.84))
	assert.Equal(t, "Finalizing your order", PhaseLabel(0.85))
	assert.Equal(t, "Finalizing your order", PhaseLabel(1))
}

func countingDecide(calls *atomic.Int64, status string, err error) DecideFunc {
	return func(_ context.Context, _, _ int64) (string, string, error) {
		calls.Add(1)
		return status, "msg", err
	}
}

func waitDone(t *testing.T, m *Monitor, orderID int64) Progress {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		p, ok := m.Progress(orderID)
		require.True(t, ok)
		if p.Done {
			return p
		}
		select {
		case <-deadline:
			t.Fatal("countdown never completed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMonitor_CountdownDecidesOnce(t *testing.T) {
	var calls atomic.Int64
	m := NewMonitor(20*time.Millisecond, countingDecide(&calls, "paid", nil))
	ctx := context.Background()

	m.Start(ctx, 1, 42)

	p, ok := m.Progress(42)
	require.True(t, ok)
	assert.False(t, p.Done)

	p = waitDone(t, m, 42)
	assert.Equal(t, "paid", p.Status)
	assert.Equal(t, 1.0, p.Fraction)
	assert.Equal(t, int64(1), calls.Load())
}

func TestMonitor_StartIsIdempotentPerOrder(t *testing.T) {
	var calls atomic.Int64
	m := NewMonitor(20*time.Millisecond, countingDecide(&calls, "paid", nil))
	ctx := context.Background()

	m.Start(ctx, 1, 42)
	m.Start(ctx, 1, 42)
	m.Start(ctx, 1, 42)

	waitDone(t, m, 42)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
}

func TestMonitor_TriggerFiresEarlyAndOnlyOnce(t *testing.T) {
	var calls atomic.Int64
	m := NewMonitor(10*time.Second, countingDecide(&calls, "paid", nil))
	ctx := context.Background()

	m.Start(ctx, 1, 42)
	require.True(t, m.Trigger(ctx, 42))
	require.True(t, m.Trigger(ctx, 42))

	p, ok := m.Progress(42)
	require.True(t, ok)
	assert.True(t, p.Done)
	assert.Equal(t, "paid", p.Status)
	assert.Equal(t, int64(1), calls.Load())
}

func TestMonitor_TriggerUnknownOrder(t *testing.T) {
	m := NewMonitor(time.Second, countingDecide(new(atomic.Int64), "paid", nil))
	assert.False(t, m.Trigger(context.Background(), 7))
}

func TestMonitor_DecisionErrorReportsDeclined(t *testing.T) {
	var calls atomic.Int64
	m := NewMonitor(10*time.Millisecond, countingDecide(&calls, "", errors.New("db down")))
	ctx := context.Background()

	m.Start(ctx, 1, 42)
	p := waitDone(t, m, 42)

	assert.Equal(t, "declined", p.Status)
	assert.Equal(t, "Payment could not be processed.", p.Message)
}

func TestMonitor_SeparateOrdersSeparateState(t *testing.T) {
	var calls atomic.Int64
	m := NewMonitor(10*time.Millisecond, countingDecide(&calls, "paid", nil))
	ctx := context.Background()

	m.Start(ctx, 1, 1)
	waitDone(t, m, 1)

	m.Start(ctx, 1, 2)
	p, ok := m.Progress(2)
	require.True(t, ok)
	assert.False(t, p.Done, "new order starts with fresh countdown state")

	waitDone(t, m, 2)
	assert.Equal(t, int64(2), calls.Load())
}

func TestMonitor_EvictsDecidedEntries(t *testing.T) {
	var calls atomic.Int64
	m := NewMonitor(10*time.Second, countingDecide(&calls, "paid", nil))
	m.retention = 50 * time.Millisecond
	ctx := context.Background()

	m.Start(ctx, 1, 42)
	require.True(t, m.Trigger(ctx, 42))

	_, ok := m.Progress(42)
	require.True(t, ok, "decided order stays queryable within the retention window")

	assert.Eventually(t, func() bool {
		_, ok := m.Progress(42)
		return !ok
	}, time.Second, 5*time.Millisecond, "decided entry should be evicted after retention")

	// Re-triggering an evicted order reports untracked; it never re-decides.
	assert.False(t, m.Trigger(ctx, 42))
	assert.Equal(t, int64(1), calls.Load())
}

func TestMonitor_ProgressUnknownOrder(t *testing.T) {
	m := NewMonitor(time.Second, countingDecide(new(atomic.Int64), "paid", nil))
	_, ok := m.Progress(99)
	assert.False(t, ok)
}
