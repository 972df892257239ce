// Package processing simulates the payment gateway delay: a fixed,
// non-cancellable countdown per order that fires the payment decision exactly
// once on completion. Progress is queryable so clients can render the
// cosmetic processing phases.
package processing

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// DefaultDuration is the reference gateway-simulation delay.
const DefaultDuration = 30 * time.Second

// defaultRetention is how long a decided order stays queryable before its
// entry is evicted. Clients poll for seconds; after eviction the handler
// serves the persisted order status instead.
const defaultRetention = 15 * time.Minute

// Phase labels shown while the countdown runs. Thresholds are fractions of
// the elapsed duration and purely cosmetic.
var phases = []struct {
	until float64
	label string
}{
	{0.30, "Contacting payment processor"},
	{0.60, "Verifying payment details"},
	{0.85, "Confirming with your bank"},
	{1.00, "Finalizing your order"},
}

// PhaseLabel returns the cosmetic label for a progress fraction in [0, 1].
func PhaseLabel(fraction float64) string {
	for _, p := range phases {
		if fraction < p.until {
			return p.label
		}
	}
	return phases[len(phases)-1].label
}

// DecideFunc applies the payment decision for an order and returns the
// resulting status and user-facing message.
type DecideFunc func(ctx context.Context, accountID, orderID int64) (status, message string, err error)

// Progress is a point-in-time view of one order's countdown.
type Progress struct {
	OrderID  int64
	Fraction float64
	Phase    string
	Done     bool
	Status   string
	Message  string
}

// entry tracks one order's countdown. The decision fires through once, so a
// late manual trigger and the timer can never both apply it.
type entry struct {
	accountID int64
	startedAt time.Time
	once      sync.Once

	mu      sync.Mutex
	done    bool
	status  string
	message string
}

// Monitor runs countdowns for pending orders. There is deliberately no way
// to cancel a started countdown: abandoning the process leaves the order
// pending, mirroring an uninterruptible gateway call.
type Monitor struct {
	duration  time.Duration
	retention time.Duration
	decide    DecideFunc
	now       func() time.Time

	mu      sync.Mutex
	entries map[int64]*entry
}

// NewMonitor creates a Monitor that waits duration before invoking decide.
// Decided entries are evicted after a retention interval so the map does not
// grow with the lifetime of the process.
func NewMonitor(duration time.Duration, decide DecideFunc) *Monitor {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Monitor{
		duration:  duration,
		retention: defaultRetention,
		decide:    decide,
		now:       time.Now,
		entries:   make(map[int64]*entry),
	}
}

// Start begins the countdown for an order. Starting an order that is already
// being tracked is a no-op; each order gets exactly one countdown. The
// supplied context only scopes the eventual decision call's logging; the
// countdown itself does not observe cancellation.
func (m *Monitor) Start(ctx context.Context, accountID, orderID int64) {
	m.mu.Lock()
	if _, ok := m.entries[orderID]; ok {
		m.mu.Unlock()
		return
	}
	e := &entry{accountID: accountID, startedAt: m.now()}
	m.entries[orderID] = e
	m.mu.Unlock()

	lg := zctx.From(ctx)
	timer := time.NewTimer(m.duration)
	go func() {
		defer timer.Stop()
		<-timer.C
		m.complete(lg, e, orderID)
	}()
}

// Trigger applies the decision for a tracked order immediately, without
// waiting for the countdown. Calling it after the countdown fired (or twice)
// is harmless. It reports whether the order is tracked.
func (m *Monitor) Trigger(ctx context.Context, orderID int64) bool {
	m.mu.Lock()
	e, ok := m.entries[orderID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.complete(zctx.From(ctx), e, orderID)
	return true
}

func (m *Monitor) complete(lg *zap.Logger, e *entry, orderID int64) {
	e.once.Do(func() {
		// Decisions outlive any request context; use a bounded background one.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		status, message, err := m.decide(ctx, e.accountID, orderID)
		if err != nil {
			lg.Error("payment decision failed",
				zap.Int64("order_id", orderID),
				zap.Error(err),
			)
			status, message = "declined", "Payment could not be processed."
		}

		e.mu.Lock()
		e.done = true
		e.status = status
		e.message = message
		e.mu.Unlock()

		time.AfterFunc(m.retention, func() {
			m.mu.Lock()
			delete(m.entries, orderID)
			m.mu.Unlock()
		})
	})
}

// Progress reports the current countdown state for an order. The second
// return value is false when the order is not tracked by this process.
func (m *Monitor) Progress(orderID int64) (Progress, bool) {
	m.mu.Lock()
	e, ok := m.entries[orderID]
	m.mu.Unlock()
	if !ok {
		return Progress{}, false
	}

	e.mu.Lock()
	done, status, message := e.done, e.status, e.message
	e.mu.Unlock()

	fraction := float64(m.now().Sub(e.startedAt)) / float64(m.duration)
	if fraction > 1 {
		fraction = 1
	}
	if done {
		fraction = 1
	}

	return Progress{
		OrderID:  orderID,
		Fraction: fraction,
		Phase:    PhaseLabel(fraction),
		Done:     done,
		Status:   status,
		Message:  message,
	}, true
}
