// Package buzz resolves which player wins the right to answer when buzz-in signals race.
package buzz

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
)

type Outcome string

const (
	OutcomeWinner     Outcome = "Winner"
	OutcomeNoResponse Outcome = "NoResponse"
)

// Result is delivered exactly once per window.
type Result struct {
	Window    uint64        `json:"window"`
	Outcome   Outcome       `json:"outcome"`
	WinnerID  int           `json:"winnerId,omitempty"`
	PressedAt time.Duration `json:"pressedAt,omitempty"`
}

func (that Result) HasWinner() bool {
	return that.Outcome == OutcomeWinner
}

// Clock returns a monotonic reading.
type Clock func() time.Duration

type phase int

const (
	phaseIdle phase = iota
	phaseOpen
	phaseSettling
)

type press struct {
	playerID   int
	receivedAt time.Duration
}

type Arbitrator struct {
	logger   *slog.Logger
	clock    Clock
	timeout  time.Duration
	settle   time.Duration
	onResult func(Result)

	mu           sync.Mutex
	window       uint64
	phase        phase
	eligible     map[int]struct{}
	pending      []press
	closeAt      time.Duration
	timeoutTimer *time.Timer
	settleTimer  *time.Timer
}

type Option func(*Arbitrator)

func WithClock(clock Clock) Option {
	return func(that *Arbitrator) {
		that.clock = clock
	}
}

// WithSettle keeps collecting presses stamped up to d after the first accepted one,
// so that a press received earlier but enqueued later still competes.
func WithSettle(d time.Duration) Option {
	return func(that *Arbitrator) {
		that.settle = d
	}
}

// New creates an arbitrator. onResult is called outside the arbitrator lock,
// from the goroutine that closed the window.
func New(logger *slog.Logger, timeout time.Duration, onResult func(Result), opts ...Option) *Arbitrator {
	start := time.Now()

	arbitrator := &Arbitrator{
		logger:   logger.With("component", "buzz"),
		clock:    func() time.Duration { return time.Since(start) },
		timeout:  timeout,
		onResult: onResult,
		eligible: make(map[int]struct{}),
	}

	for _, opt := range opts {
		opt(arbitrator)
	}

	return arbitrator
}

// Open starts a new window for the eligible players and returns its id.
// With at most one eligible player the outcome is decided at once: decided is
// true, no window is opened and onResult is not called.
func (that *Arbitrator) Open(eligible []int) (result Result, decided bool) {
	log := that.logger.With("method", "Open")

	that.mu.Lock()
	defer that.mu.Unlock()

	that.stopTimers()
	that.window++
	that.pending = nil
	that.eligible = make(map[int]struct{}, len(eligible))
	for _, id := range eligible {
		that.eligible[id] = struct{}{}
	}

	switch len(that.eligible) {
	case 0:
		that.phase = phaseIdle
		log.Debug("no eligible players", "window", that.window)
		return Result{Window: that.window, Outcome: OutcomeNoResponse}, true
	case 1:
		that.phase = phaseIdle
		log.Debug("sole eligible player wins by default", "window", that.window, "playerID", eligible[0])
		return Result{Window: that.window, Outcome: OutcomeWinner, WinnerID: eligible[0], PressedAt: that.clock()}, true
	}

	that.phase = phaseOpen
	window := that.window
	that.timeoutTimer = time.AfterFunc(that.timeout, func() {
		that.expire(window)
	})

	log.Debug("window opened", "window", window, "eligible", len(that.eligible))

	return Result{Window: window}, false
}

// Submit offers a hub signal to the open window. Releases are ignored.
func (that *Arbitrator) Submit(signal entity.PlayerSignal) error {
	receivedAt := that.clock()

	if !signal.Pressed {
		return nil
	}

	log := that.logger.With("method", "Submit", "playerID", signal.PlayerID)

	that.mu.Lock()

	if that.phase == phaseIdle || (that.phase == phaseSettling && receivedAt > that.closeAt) {
		window := that.window
		that.mu.Unlock()
		log.Debug("signal dropped", "window", window, "receivedAt", receivedAt, "hubTimestamp", signal.Timestamp)
		return apperror.ErrWindowClosed
	}

	if _, ok := that.eligible[signal.PlayerID]; !ok {
		that.mu.Unlock()
		log.Debug("signal from ineligible player dropped")
		return fmt.Errorf("%w: player %d may not buzz", apperror.ErrWrongTurn, signal.PlayerID)
	}

	for _, p := range that.pending {
		if p.playerID == signal.PlayerID {
			that.mu.Unlock()
			return nil
		}
	}

	that.pending = append(that.pending, press{playerID: signal.PlayerID, receivedAt: receivedAt})

	if that.phase == phaseSettling {
		that.mu.Unlock()
		return nil
	}

	// first accepted press closes the window
	that.stopTimers()
	that.closeAt = receivedAt + that.settle

	if that.settle <= 0 {
		result := that.resolve()
		that.mu.Unlock()
		that.deliver(result)
		return nil
	}

	that.phase = phaseSettling
	window := that.window
	that.settleTimer = time.AfterFunc(that.settle, func() {
		that.settled(window)
	})
	that.mu.Unlock()

	return nil
}

// Cancel closes the current window without a result.
func (that *Arbitrator) Cancel() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.stopTimers()
	that.phase = phaseIdle
	that.pending = nil
}

// IsOpen reports whether presses are currently being collected.
func (that *Arbitrator) IsOpen() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.phase != phaseIdle
}

func (that *Arbitrator) expire(window uint64) {
	that.mu.Lock()
	if window != that.window || that.phase != phaseOpen {
		that.mu.Unlock()
		return
	}

	that.phase = phaseIdle
	that.mu.Unlock()

	that.logger.Debug("window timed out", "window", window)
	that.deliver(Result{Window: window, Outcome: OutcomeNoResponse})
}

func (that *Arbitrator) settled(window uint64) {
	that.mu.Lock()
	if window != that.window || that.phase != phaseSettling {
		that.mu.Unlock()
		return
	}

	result := that.resolve()
	that.mu.Unlock()

	that.deliver(result)
}

// resolve picks the earliest press, lowest player id on equal stamps. Caller holds the lock.
func (that *Arbitrator) resolve() Result {
	that.phase = phaseIdle

	best := that.pending[0]
	for _, p := range that.pending[1:] {
		if p.receivedAt < best.receivedAt || (p.receivedAt == best.receivedAt && p.playerID < best.playerID) {
			best = p
		}
	}

	that.pending = nil

	return Result{Window: that.window, Outcome: OutcomeWinner, WinnerID: best.playerID, PressedAt: best.receivedAt}
}

func (that *Arbitrator) deliver(result Result) {
	that.logger.Debug("window closed", "window", result.Window, "outcome", result.Outcome, "winnerID", result.WinnerID)

	if that.onResult != nil {
		that.onResult(result)
	}
}

func (that *Arbitrator) stopTimers() {
	if that.timeoutTimer != nil {
		that.timeoutTimer.Stop()
		that.timeoutTimer = nil
	}

	if that.settleTimer != nil {
		that.settleTimer.Stop()
		that.settleTimer = nil
	}
}
