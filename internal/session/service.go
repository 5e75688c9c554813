// Package session runs the focus timer, daily stats and coach chat on a
// single event loop. Every state mutation happens on the loop goroutine.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/focusbooster/internal/coach"
	"github.com/ashureev/focusbooster/internal/domain"
	"github.com/ashureev/focusbooster/internal/stats"
	"github.com/ashureev/focusbooster/internal/telemetry"
	"github.com/ashureev/focusbooster/internal/timer"
)

// ErrStopped is returned by commands issued after the loop has exited.
var ErrStopped = errors.New("session loop stopped")

// maxNotices bounds the notices kept on the view.
const maxNotices = 5

// Notice is a transient user-facing message produced by a failure.
type Notice struct {
	Kind string    `json:"kind"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

const noticeStatsNotSaved = "stats_not_saved"

// View is a read-only projection of all session state.
type View struct {
	Session        domain.SessionState  `json:"session"`
	Clock          string               `json:"clock"`
	Stats          domain.DailyStats    `json:"stats"`
	Mood           domain.Mood          `json:"mood"`
	ShowMotivation bool                 `json:"show_motivation"`
	Messages       []domain.ChatMessage `json:"messages"`
	Busy           bool                 `json:"busy"`
	Notices        []Notice             `json:"notices,omitempty"`
}

// Config wires the service's collaborators.
type Config struct {
	Ticks    timer.TickSource
	Stats    *stats.Store
	Sender   coach.Sender
	Recorder telemetry.Recorder
	Logger   *slog.Logger
}

type command struct {
	fn    func() error
	reply chan commandResult
}

type commandResult struct {
	view View
	err  error
}

type relayResult struct {
	kind  domain.RequestKind
	gen   uint64
	reply string
	err   error
}

type loopEvent int

const (
	eventMotivationRequested loopEvent = iota
)

// Service owns the session. Use the exported methods from any goroutine;
// they are executed in order on the loop started by Run.
type Service struct {
	machine    *timer.Machine
	stats      *stats.Store
	transcript coach.Transcript
	sender     coach.Sender
	recorder   telemetry.Recorder
	logger     *slog.Logger
	ticks      timer.TickSource

	mood              domain.Mood
	showMotivation    bool
	motivationPending bool
	motivationGen     uint64
	notices           []Notice
	queue             []loopEvent

	baseCtx context.Context
	cmds    chan command
	results chan relayResult
	done    chan struct{}

	subsMu sync.Mutex
	subs   map[chan View]struct{}
}

// New creates a Service. Call Run to start processing.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = telemetry.NewNoOpRecorder()
	}
	return &Service{
		machine:  timer.New(),
		stats:    cfg.Stats,
		sender:   cfg.Sender,
		recorder: recorder,
		logger:   logger,
		ticks:    cfg.Ticks,
		baseCtx:  context.Background(),
		cmds:     make(chan command),
		results:  make(chan relayResult, 8),
		done:     make(chan struct{}),
		subs:     make(map[chan View]struct{}),
	}
}

// Run loads the daily stats and processes ticks, commands and coach replies
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.ticks.Stop()

	s.baseCtx = ctx
	loaded := s.stats.Load(ctx)
	s.logger.Info("Session loop started",
		"sessions_today", loaded.SessionsToday,
		"minutes_today", loaded.TotalMinutesToday,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session loop shutting down")
			return ctx.Err()
		case <-s.ticks.C():
			s.handleTick()
		case cmd := <-s.cmds:
			err := cmd.fn()
			s.drain()
			cmd.reply <- commandResult{view: s.view(), err: err}
		case res := <-s.results:
			s.handleRelayResult(res)
		}
		s.drain()
		s.publish()
	}
}

// Start begins or resumes the timer.
func (s *Service) Start(ctx context.Context) (View, error) {
	return s.do(ctx, func() error {
		s.machine.Start()
		return nil
	})
}

// Pause stops the countdown.
func (s *Service) Pause(ctx context.Context) (View, error) {
	return s.do(ctx, func() error {
		s.machine.Pause()
		return nil
	})
}

// Reset returns the timer to idle and drops any pending motivation.
func (s *Service) Reset(ctx context.Context) (View, error) {
	return s.do(ctx, func() error {
		s.machine.Reset()
		s.showMotivation = false
		s.motivationPending = false
		s.motivationGen++
		return nil
	})
}

// SetMood records the user's mood. It has no effect on the timer.
func (s *Service) SetMood(ctx context.Context, mood domain.Mood) (View, error) {
	return s.do(ctx, func() error {
		s.mood = mood
		return nil
	})
}

// SendChat appends the user's message and asks the coach for a reply.
// The reply arrives asynchronously; it returns coach.ErrBusy while another
// request is in flight.
func (s *Service) SendChat(ctx context.Context, text string) (View, error) {
	return s.do(ctx, func() error {
		history, err := s.transcript.BeginChat(text)
		if err != nil {
			return err
		}
		s.dispatch(domain.KindChat, history, 0)
		return nil
	})
}

// Snapshot returns the current view.
func (s *Service) Snapshot(ctx context.Context) (View, error) {
	return s.do(ctx, func() error { return nil })
}

// Subscribe registers an observer that receives a view after every handled
// event. Slow observers miss updates. Call the returned func to unsubscribe.
func (s *Service) Subscribe(buffer int) (<-chan View, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan View, buffer)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, ch)
			s.subsMu.Unlock()
		})
	}
}

func (s *Service) do(ctx context.Context, fn func() error) (View, error) {
	cmd := command{fn: fn, reply: make(chan commandResult, 1)}
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.done:
		return View{}, ErrStopped
	}
	select {
	case res := <-cmd.reply:
		return res.view, res.err
	case <-s.done:
		return View{}, ErrStopped
	}
}

func (s *Service) handleTick() {
	switch s.machine.Tick() {
	case timer.EventFocusCompleted:
		updated, err := s.stats.RecordCompletedFocusSession(s.baseCtx, domain.FocusMinutes)
		if err != nil {
			s.addNotice(noticeStatsNotSaved, "Couldn't save today's stats")
		}
		s.recorder.FocusCompleted(s.baseCtx, domain.FocusMinutes)
		s.logger.Info("Focus session completed",
			"sessions_today", updated.SessionsToday,
			"minutes_today", updated.TotalMinutesToday,
		)
		s.showMotivation = true
		s.queue = append(s.queue, eventMotivationRequested)
	case timer.EventBreakCompleted:
		s.logger.Info("Break completed")
	}
}

// drain processes events queued by handlers once the handler has returned.
func (s *Service) drain() {
	for len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]
		switch ev {
		case eventMotivationRequested:
			s.requestMotivation()
		}
	}
}

func (s *Service) requestMotivation() {
	if !s.showMotivation && !s.motivationPending {
		return
	}
	if err := s.transcript.BeginMotivation(); err != nil {
		// Wait for the in-flight request to finish.
		s.motivationPending = true
		return
	}
	s.showMotivation = false
	s.motivationPending = false
	s.dispatch(domain.KindMotivation, nil, s.motivationGen)
}

func (s *Service) dispatch(kind domain.RequestKind, history []domain.ChatMessage, gen uint64) {
	ctx := s.baseCtx
	mood := s.mood
	sender := s.sender
	results := s.results
	done := s.done

	go func() {
		reply, err := sender.Send(ctx, history, mood, kind)
		select {
		case results <- relayResult{kind: kind, gen: gen, reply: reply, err: err}:
		case <-done:
		}
	}()
}

func (s *Service) handleRelayResult(res relayResult) {
	switch {
	case res.kind == domain.KindMotivation && res.gen != s.motivationGen:
		s.transcript.Fail()
		s.recorder.CoachRequest(s.baseCtx, res.kind, telemetry.OutcomeDiscarded)
		s.logger.Info("Discarding motivation issued before reset")
	case res.err != nil:
		s.transcript.Fail()
		kind, text := coach.NoticeFor(res.kind, res.err)
		s.addNotice(string(kind), text)
		s.recorder.CoachRequest(s.baseCtx, res.kind, string(kind))
		s.logger.Warn("Coach request failed", "type", res.kind, "error", res.err)
	default:
		s.transcript.Complete(res.kind, res.reply)
		s.recorder.CoachRequest(s.baseCtx, res.kind, telemetry.OutcomeOK)
	}

	if s.motivationPending {
		s.queue = append(s.queue, eventMotivationRequested)
	}
}

func (s *Service) addNotice(kind, text string) {
	s.notices = append(s.notices, Notice{Kind: kind, Text: text, At: time.Now()})
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

func (s *Service) view() View {
	state := s.machine.Snapshot()
	notices := make([]Notice, len(s.notices))
	copy(notices, s.notices)
	return View{
		Session:        state,
		Clock:          timer.FormatClock(state.TimeLeftSeconds),
		Stats:          s.stats.Current(),
		Mood:           s.mood,
		ShowMotivation: s.showMotivation,
		Messages:       s.transcript.Messages(),
		Busy:           s.transcript.Busy(),
		Notices:        notices,
	}
}

func (s *Service) publish() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	v := s.view()
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
		}
	}
}
