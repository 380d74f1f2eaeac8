// Package timer implements the session countdown that survives process
// restarts and stays in sync across instances serving the same category.
package timer

import (
	"sync"
	"time"
)

// DefaultDuration is the standard session length.
const DefaultDuration = 840 * time.Second

// defaultTickInterval controls how often a running countdown rechecks the
// wall clock.
const defaultTickInterval = time.Second

// finalStretch marks the closing window where the client surfaces a wrap-up
// prompt.
const finalStretch = 2 * time.Minute

// State describes where a countdown is in its lifecycle.
type State int

const (
	// StateNew means Start has not been called yet.
	StateNew State = iota
	// StateRunning means the countdown started fresh in this process.
	StateRunning
	// StateResumed means the countdown restored a persisted snapshot and
	// continued from the original start instant.
	StateResumed
	// StateCompleted means the countdown reached zero or was cleared.
	StateCompleted
)

// String returns the lifecycle label for logging.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRunning:
		return "running"
	case StateResumed:
		return "resumed"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Options configure a countdown.
type Options struct {
	// Emotion names the category whose session this countdown paces. It is
	// also the broadcast channel shared with sibling countdowns.
	Emotion string
	// RoomID scopes the persisted snapshot to one room. Rooms of the same
	// category run independent countdowns: when a room fills and a new one
	// opens, the new room starts its own full session rather than inheriting
	// the elapsed time of its predecessor.
	RoomID string
	// Duration overrides DefaultDuration when positive.
	Duration time.Duration
	// Store persists the snapshot. Defaults to an in-memory store.
	Store StateStore
	// Broadcaster links sibling countdowns. Optional.
	Broadcaster *Broadcaster
	// Now supplies the wall clock. Defaults to time.Now.
	Now func() time.Time
	// OnComplete fires exactly once when the countdown finishes, whether by
	// expiry or by a clear signal.
	OnComplete func()
	// TickInterval overrides the recheck cadence. Tests shorten it.
	TickInterval time.Duration
}

// Countdown tracks the remaining time of one session.
//
// Remaining time is never carried as a decrementing counter. Every tick
// rederives it from the persisted start instant and the wall clock, so a
// paused process, a suspended laptop, or a missed tick cannot stretch the
// session beyond its planned end.
type Countdown struct {
	emotion      string
	roomID       string
	duration     time.Duration
	store        StateStore
	broadcaster  *Broadcaster
	now          func() time.Time
	onComplete   func()
	tickInterval time.Duration

	mu        sync.Mutex
	state     State
	startedAt time.Time

	stop        chan struct{}
	stopOnce    sync.Once
	unsubscribe func()
}

// NewCountdown constructs a countdown. Call Start to begin ticking.
func NewCountdown(opts Options) *Countdown {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	return &Countdown{
		emotion:      opts.Emotion,
		roomID:       opts.RoomID,
		duration:     opts.Duration,
		store:        opts.Store,
		broadcaster:  opts.Broadcaster,
		now:          opts.Now,
		onComplete:   opts.OnComplete,
		tickInterval: opts.TickInterval,
		state:        StateNew,
		stop:         make(chan struct{}),
	}
}

// Key returns the snapshot key shared by countdowns pacing the same room.
// The broadcast channel stays emotion-scoped; only the persisted state is
// keyed per room.
func Key(emotion, roomID string) string {
	return "unmute-timer-" + emotion + "-" + roomID
}

func (c *Countdown) storageKey() string {
	return Key(c.emotion, c.roomID)
}

// Start restores a persisted snapshot when one exists, otherwise persists a
// fresh one, then begins ticking on a background goroutine.
func (c *Countdown) Start() error {
	c.mu.Lock()

	if c.state != StateNew {
		c.mu.Unlock()
		return nil
	}

	snapshot, found, err := c.store.Load(c.storageKey())
	if err != nil {
		c.mu.Unlock()
		return err
	}

	now := c.now()
	switch {
	case found && snapshot.StartedAt.Add(snapshot.Duration).After(now):
		c.startedAt = snapshot.StartedAt
		c.duration = snapshot.Duration
		c.state = StateResumed
	case found:
		// Snapshot already expired while nothing was running.
		c.mu.Unlock()
		c.complete(true)
		return nil
	default:
		c.startedAt = now
		if err := c.store.Save(c.storageKey(), Snapshot{StartedAt: now, Duration: c.duration}); err != nil {
			c.mu.Unlock()
			return err
		}
		c.state = StateRunning
	}
	c.mu.Unlock()

	var signals <-chan Signal
	if c.broadcaster != nil {
		signals, c.unsubscribe = c.broadcaster.Subscribe(c.emotion)
	}

	go c.run(signals)
	return nil
}

func (c *Countdown) run(signals <-chan Signal) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if c.Refresh() {
				return
			}
		case signal, ok := <-signals:
			if !ok {
				return
			}
			if signal == SignalClear {
				c.complete(false)
				return
			}
		}
	}
}

// Refresh rechecks the wall clock and completes the countdown when the
// planned end has passed. It reports whether the countdown is finished.
func (c *Countdown) Refresh() bool {
	c.mu.Lock()
	switch c.state {
	case StateCompleted:
		c.mu.Unlock()
		return true
	case StateNew:
		c.mu.Unlock()
		return false
	}
	expired := !c.startedAt.Add(c.duration).After(c.now())
	c.mu.Unlock()

	if expired {
		c.complete(true)
	}
	return expired
}

// complete finishes the countdown exactly once. removeSnapshot is false when
// the completion was triggered by a clear signal whose publisher already
// removed the shared snapshot.
func (c *Countdown) complete(removeSnapshot bool) {
	c.mu.Lock()
	if c.state == StateCompleted {
		c.mu.Unlock()
		return
	}
	c.state = StateCompleted
	callback := c.onComplete
	c.mu.Unlock()

	if removeSnapshot {
		_ = c.store.Remove(c.storageKey())
	}
	if callback != nil {
		callback()
	}
	c.Stop()
}

// Clear ends the session early: the snapshot is removed, sibling countdowns
// are signalled, and this countdown completes. Clearing an already finished
// countdown is a no-op.
func (c *Countdown) Clear() {
	c.mu.Lock()
	finished := c.state == StateCompleted
	c.mu.Unlock()
	if finished {
		return
	}

	_ = c.store.Remove(c.storageKey())
	if c.broadcaster != nil {
		c.broadcaster.Publish(c.emotion, SignalClear)
	}
	c.complete(false)
}

// Stop halts the ticking goroutine without completing the countdown. The
// persisted snapshot stays behind so a later instance resumes the session.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
	})
}

// State returns the current lifecycle state.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the time left, rederived from the wall clock. A new
// countdown reports the full duration; a completed one reports zero.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateNew:
		return c.duration
	case StateCompleted:
		return 0
	}

	remaining := c.startedAt.Add(c.duration).Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress returns how far the session has advanced, from 0 to 100.
func (c *Countdown) Progress() float64 {
	c.mu.Lock()
	duration := c.duration
	c.mu.Unlock()
	if duration <= 0 {
		return 100
	}

	elapsed := duration - c.Remaining()
	progress := float64(elapsed) / float64(duration) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// InFinalStretch reports whether the countdown entered its closing window.
// A countdown that has run out is past the stretch, not in it, even before
// the next refresh flips it to completed.
func (c *Countdown) InFinalStretch() bool {
	c.mu.Lock()
	active := c.state == StateRunning || c.state == StateResumed
	c.mu.Unlock()
	if !active {
		return false
	}
	remaining := c.Remaining()
	return remaining > 0 && remaining <= finalStretch
}
