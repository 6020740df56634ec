// Package workflow ties the initiator, the progress poller and the renderer
// together around one explicit client session.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/helmcode/arqv30-client/pkg/form"
	"github.com/helmcode/arqv30-client/pkg/model"
	"github.com/helmcode/arqv30-client/pkg/poller"
	"github.com/helmcode/arqv30-client/pkg/render"
	"github.com/helmcode/arqv30-client/pkg/session"
)

const (
	DefaultRequestTimeout  = 5 * time.Minute
	DefaultRecoveryTimeout = 60 * time.Second
)

var (
	// ErrNoOngoingSession is returned by Resume when nothing was left behind.
	ErrNoOngoingSession = errors.New("no ongoing session to resume")
	// ErrBusy is returned when a session is already being polled.
	ErrBusy = errors.New("an analysis is already in progress")
)

// Backend is the subset of the API client used by a Session.
type Backend interface {
	poller.Fetcher
	ExecuteAnalysis(ctx context.Context, sessionID string, f model.Form) (*model.AnalysisResponse, error)
	SessionResults(ctx context.Context, sessionID string) (*model.SessionResults, error)
}

// StateStore persists the form snapshot and the ongoing session id.
type StateStore interface {
	SaveForm(ctx context.Context, f model.Form) error
	SetOngoingSession(ctx context.Context, sessionID string) error
	OngoingSession(ctx context.Context) (string, bool, error)
	ClearOngoingSession(ctx context.Context, sessionID string) error
}

// Options tune a Session. Zero values select the defaults.
type Options struct {
	PollInterval    time.Duration
	MaxPollFailures int
	RequestTimeout  time.Duration
	RecoveryTimeout time.Duration

	// OnProgress receives every progress record while polling.
	OnProgress func(model.Progress)
	// OnResume is called once Resume found a session to recover.
	OnResume func(sessionID string)

	NewID  func() string
	Logger *slog.Logger
}

// ResumeOutcome describes how a recovered session ended.
type ResumeOutcome struct {
	SessionID string
	State     poller.State
	Progress  model.Progress
	// LastErr is the error of the final poll when the session was abandoned or failed.
	LastErr error
	// Report is the rendered result of a session that completed on the backend.
	Report *render.Report
	// ResultErr is set when a completed session's result could not be fetched.
	ResultErr error
}

// Session is the client-side state of one analysis: current id, result and
// polling timer. Reset returns it to an empty state.
type Session struct {
	backend Backend
	store   StateStore
	opts    Options
	logger  *slog.Logger

	mu     sync.Mutex
	id     string
	result *model.AnalysisResponse
	report *render.Report
	poller *poller.Poller
	safety *time.Timer
}

// New creates an empty session.
func New(backend Backend, store StateStore, opts Options) *Session {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if opts.NewID == nil {
		opts.NewID = session.NewID
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{backend: backend, store: store, opts: opts, logger: logger}
}

// Start validates f, starts the analysis and polls its progress until the
// backend answers. On success the result is kept on the session and
// rendered. Validation failures return a *form.ValidationError before any
// state is touched.
func (s *Session) Start(ctx context.Context, f model.Form) (*render.Report, error) {
	if err := form.Validate(f); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.poller != nil && !s.poller.State().Terminal() {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.resetLocked()
	id := s.opts.NewID()
	s.id = id
	s.mu.Unlock()

	logger := s.logger.With("session_id", id)

	if err := s.store.SaveForm(ctx, f); err != nil {
		logger.Warn("failed to save form snapshot", "error", err)
	}
	if err := s.store.SetOngoingSession(ctx, id); err != nil {
		s.Reset()
		return nil, fmt.Errorf("persist session: %w", err)
	}

	p := s.newPoller(id)
	s.mu.Lock()
	s.poller = p
	s.mu.Unlock()
	if err := p.Start(ctx); err != nil {
		s.finish(ctx, id)
		s.Reset()
		return nil, fmt.Errorf("start polling: %w", err)
	}

	logger.Info("analysis started", "fields", len(f))
	reqCtx := ctx
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}
	resp, err := s.backend.ExecuteAnalysis(reqCtx, id, f)

	// The poller may still be mid-request; stop it before handling the result.
	p.Stop()
	if ctx.Err() != nil {
		// The caller went away (interrupt); leave the id stored so the
		// analysis can be resumed.
		logger.Info("analysis interrupted, session kept for resume")
		s.Reset()
		return nil, ctx.Err()
	}
	s.finish(ctx, id)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("analysis did not finish within %s: %w", s.opts.RequestTimeout, err)
		}
		logger.Error("analysis failed", "error", err)
		s.Reset()
		return nil, err
	}

	report, err := render.Build(id, resp)
	if err != nil {
		s.Reset()
		return nil, fmt.Errorf("render result: %w", err)
	}

	s.mu.Lock()
	s.result = resp
	s.report = report
	s.mu.Unlock()
	logger.Info("analysis completed", "sections", len(report.Sections))
	return report, nil
}

// Resume recovers a session left behind by an earlier run and polls it
// until it reaches a terminal state or ctx is done. A safety timer clears
// the stored id after RecoveryTimeout regardless of the outcome. When the
// session completed its saved components are fetched and rendered like a
// Start result.
//
// If polling is stopped before a terminal state (ctx done or Cancel) the
// id stays on the session and in the store and the safety timer stays
// armed, so a later run can still pick the session up within the window.
// Reset disarms the timer.
func (s *Session) Resume(ctx context.Context) (*ResumeOutcome, error) {
	id, ok, err := s.store.OngoingSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ongoing session: %w", err)
	}
	if !ok {
		return nil, ErrNoOngoingSession
	}

	s.mu.Lock()
	if s.poller != nil && !s.poller.State().Terminal() {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.resetLocked()
	s.id = id
	s.safety = time.AfterFunc(s.opts.RecoveryTimeout, func() {
		if err := s.store.ClearOngoingSession(context.Background(), id); err != nil {
			s.logger.Warn("failed to clear recovered session", "session_id", id, "error", err)
			return
		}
		s.logger.Info("recovery window elapsed, stored session cleared", "session_id", id)
	})
	p := s.newPoller(id)
	s.poller = p
	s.mu.Unlock()

	s.logger.Info("resuming session", "session_id", id)
	if s.opts.OnResume != nil {
		s.opts.OnResume(id)
	}

	if err := p.Start(ctx); err != nil {
		return nil, fmt.Errorf("start polling: %w", err)
	}

	state, waitErr := p.Wait(ctx)
	if waitErr != nil {
		p.Stop()
		state = p.State()
	}

	outcome := &ResumeOutcome{SessionID: id, State: state}
	if last, ok := p.Last(); ok {
		outcome.Progress = last
	}
	if state == poller.StateAbandoned || state == poller.StateFailed {
		outcome.LastErr = p.Err()
	}

	if state == poller.StateComplete {
		outcome.Report, outcome.ResultErr = s.fetchResult(ctx, id)
	}

	if state != poller.StateStopped {
		s.finish(ctx, id)
		s.mu.Lock()
		s.id = ""
		if s.safety != nil {
			s.safety.Stop()
			s.safety = nil
		}
		s.mu.Unlock()
	}
	return outcome, waitErr
}

// fetchResult loads the components saved for a completed session and keeps
// them as the session result.
func (s *Session) fetchResult(ctx context.Context, id string) (*render.Report, error) {
	saved, err := s.backend.SessionResults(ctx, id)
	if err != nil {
		s.logger.Warn("failed to fetch session results", "session_id", id, "error", err)
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	resp := &model.AnalysisResponse{Success: true, AnalysisResult: saved.Results}
	report, err := render.Build(id, resp)
	if err != nil {
		return nil, fmt.Errorf("render result: %w", err)
	}

	s.mu.Lock()
	s.result = resp
	s.report = report
	s.mu.Unlock()
	s.logger.Info("recovered session result", "session_id", id, "components", saved.ComponentsCount)
	return report, nil
}

// Cancel stops polling. It does not cancel work on the backend.
func (s *Session) Cancel() {
	s.mu.Lock()
	p := s.poller
	s.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Reset stops polling, disarms the recovery timer and forgets the id and
// result.
func (s *Session) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

func (s *Session) resetLocked() {
	if s.poller != nil {
		// Stop only waits on the polling goroutine, which never takes s.mu.
		s.poller.Stop()
		s.poller = nil
	}
	if s.safety != nil {
		s.safety.Stop()
		s.safety = nil
	}
	s.id = ""
	s.result = nil
	s.report = nil
}

// ID returns the session currently being analyzed or recovered.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Result returns the last successful analysis response.
func (s *Session) Result() *model.AnalysisResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Report returns the rendered view of the last successful analysis.
func (s *Session) Report() *render.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// PollerState reports the state of the current poller, or idle when none.
func (s *Session) PollerState() poller.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poller == nil {
		return poller.StateIdle
	}
	return s.poller.State()
}

func (s *Session) newPoller(id string) *poller.Poller {
	return poller.New(s.backend, id, poller.Options{
		Interval:               s.opts.PollInterval,
		MaxConsecutiveFailures: s.opts.MaxPollFailures,
		OnProgress:             s.opts.OnProgress,
		Logger:                 s.logger,
	})
}

// finish clears the stored id once the session it names is over.
func (s *Session) finish(ctx context.Context, id string) {
	if err := s.store.ClearOngoingSession(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("failed to clear ongoing session", "session_id", id, "error", err)
	}
}
