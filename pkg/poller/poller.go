package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/helmcode/arqv30-client/pkg/api"
	"github.com/helmcode/arqv30-client/pkg/model"
)

// State is the lifecycle state of a Poller.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
	StateAbandoned State = "abandoned"
	StateStopped   State = "stopped"
)

// Terminal reports whether no further polling can happen in this state.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateFailed, StateAbandoned, StateStopped:
		return true
	default:
		return false
	}
}

const (
	DefaultInterval               = 2 * time.Second
	DefaultMaxConsecutiveFailures = 3
)

// ErrAlreadyStarted is returned by Start on a poller that left the idle state.
var ErrAlreadyStarted = errors.New("poller already started")

// Fetcher retrieves the progress of a session.
type Fetcher interface {
	GetProgress(ctx context.Context, sessionID string) (*model.Progress, error)
}

// Options tune a Poller. Zero values select the defaults.
type Options struct {
	Interval time.Duration
	// MaxConsecutiveFailures moves the poller to StateFailed after that many
	// failed ticks in a row. Negative disables the cap.
	MaxConsecutiveFailures int
	// OnProgress receives every successful progress record with the
	// percentage clamped into [0, 100].
	OnProgress func(model.Progress)
	Logger     *slog.Logger
}

// Poller polls the progress endpoint for one session on a fixed interval.
type Poller struct {
	fetcher   Fetcher
	sessionID string
	interval  time.Duration
	maxFails  int
	onUpdate  func(model.Progress)
	logger    *slog.Logger
	ticks     metric.Int64Counter
	failCount metric.Int64Counter

	mu       sync.Mutex
	state    State
	last     *model.Progress
	lastErr  error
	failures int
	cancel   context.CancelFunc
	done     chan struct{}
	// notifying is set while OnProgress runs on the polling goroutine.
	notifying bool
}

// New creates an idle poller for sessionID.
func New(f Fetcher, sessionID string, opts Options) *Poller {
	p := &Poller{
		fetcher:   f,
		sessionID: sessionID,
		interval:  opts.Interval,
		maxFails:  opts.MaxConsecutiveFailures,
		onUpdate:  opts.OnProgress,
		logger:    opts.Logger,
		state:     StateIdle,
		done:      make(chan struct{}),
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.maxFails == 0 {
		p.maxFails = DefaultMaxConsecutiveFailures
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("session_id", sessionID)

	meter := otel.Meter("github.com/helmcode/arqv30-client/pkg/poller")
	p.ticks, _ = meter.Int64Counter("arqv30.poll.ticks", metric.WithDescription("Progress polls issued"))
	p.failCount, _ = meter.Int64Counter("arqv30.poll.failures", metric.WithDescription("Progress polls that failed"))
	return p
}

// SessionID returns the polled session.
func (p *Poller) SessionID() string {
	return p.sessionID
}

// Start moves the poller from idle to polling. The first request is issued
// one interval later. Polling ends when ctx is done, Stop is called, or a
// terminal state is reached.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, p.state)
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = StatePolling
	p.mu.Unlock()

	p.logger.Info("polling started", "interval", p.interval.String())
	go p.run(ctx)
	return nil
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.cancel()

	err := wait.PollUntilContextCancel(ctx, p.interval, false, p.tick)

	p.mu.Lock()
	if p.state == StatePolling {
		p.state = StateStopped
	}
	final := p.state
	p.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		p.logger.Warn("polling ended with error", "error", err)
	}
	p.logger.Info("polling finished", "state", string(final))
}

// tick performs one poll. It returns done=true once a terminal state is
// reached; it never returns an error so transient failures keep the loop alive.
func (p *Poller) tick(ctx context.Context) (bool, error) {
	if p.ticks != nil {
		p.ticks.Add(ctx, 1)
	}
	progress, err := p.fetcher.GetProgress(ctx, p.sessionID)

	p.mu.Lock()
	if p.state != StatePolling {
		p.mu.Unlock()
		return true, nil
	}

	if err != nil {
		if ctx.Err() != nil {
			p.mu.Unlock()
			return true, nil
		}
		p.lastErr = err
		if errors.Is(err, api.ErrSessionNotFound) {
			p.state = StateAbandoned
			p.mu.Unlock()
			p.logger.Info("session not found, polling abandoned")
			return true, nil
		}
		p.failures++
		failures := p.failures
		if p.maxFails > 0 && failures >= p.maxFails {
			p.state = StateFailed
		}
		state := p.state
		p.mu.Unlock()

		if p.failCount != nil {
			p.failCount.Add(ctx, 1, metric.WithAttributes(attribute.String("session_id", p.sessionID)))
		}
		p.logger.Warn("progress poll failed", "error", err, "consecutive_failures", failures)
		return state == StateFailed, nil
	}

	clamped := *progress
	clamped.Percentage = progress.Percent()
	p.failures = 0
	p.lastErr = nil
	p.last = &clamped
	if clamped.IsComplete {
		p.state = StateComplete
	}
	complete := clamped.IsComplete
	onUpdate := p.onUpdate
	p.notifying = onUpdate != nil
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(clamped)
		p.mu.Lock()
		p.notifying = false
		p.mu.Unlock()
	}
	return complete, nil
}

// Stop ends polling and waits for the polling goroutine to exit. It is safe
// to call at any time and more than once. While an OnProgress callback is
// running Stop only cancels polling: the callback runs on the polling
// goroutine, so waiting there would never return. No further callback is
// delivered after Stop; use Wait or Done to observe the goroutine exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	switch p.state {
	case StateIdle:
		p.state = StateStopped
		close(p.done)
		p.mu.Unlock()
		return
	case StatePolling:
		p.state = StateStopped
	}
	cancel := p.cancel
	notifying := p.notifying
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		if !notifying {
			<-p.done
		}
	}
}

// Wait blocks until polling finishes or ctx is done and returns the state.
func (p *Poller) Wait(ctx context.Context) (State, error) {
	select {
	case <-p.done:
		return p.State(), nil
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}
}

// Done is closed once the poller reached a terminal state.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Last returns the most recent progress record, if any.
func (p *Poller) Last() (model.Progress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return model.Progress{}, false
	}
	return *p.last, true
}

// Err returns the error of the most recent failed poll, if the latest poll failed.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
