// Package service implements the client run engine: it turns the event
// stream of each sent message into conversation state.
package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tianyehedashu/ai-agent-sub002/internal/adapter/cache"
	"github.com/tianyehedashu/ai-agent-sub002/internal/adapter/stream"
	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
	"github.com/tianyehedashu/ai-agent-sub002/internal/repository"
	"github.com/tianyehedashu/ai-agent-sub002/internal/telemetry"
)

var (
	ErrEmptyMessage        = errors.New("message content is required")
	ErrNoPendingInterrupt  = errors.New("no pending interrupt")
	ErrNoSession           = errors.New("no session")
	ErrResumeInFlight      = errors.New("a request is already in flight")
	ErrInvalidResumeAction = errors.New("invalid resume action")
)

// Decider settles an interrupt without a human. ok is false when the human
// must decide.
type Decider interface {
	Decide(ctx context.Context, intr domain.InterruptState) (action domain.ResumeAction, ok bool)
}

// Hooks are collaborator callbacks. They run after the engine state has been
// updated and never while the engine is locked, so they may call back into
// the Service.
type Hooks struct {
	// OnError receives transport and application errors. Cancellation is
	// never reported.
	OnError func(err error)
	// OnSessionRecreated receives the notice of a recreated session.
	OnSessionRecreated func(info domain.SessionRecreationInfo)
	// OnEvent observes every applied event, including session events that
	// trail a finished run.
	OnEvent func(runID string, ev domain.Event)
}

// Options configure a Service. Zero values are valid.
type Options struct {
	SessionID string
	Cache     cache.Invalidator
	Decider   Decider
	Telemetry *telemetry.Recorder
	Hooks     Hooks
}

// Service owns the conversation state of one chat context.
type Service struct {
	transport stream.Transport
	store     store.Store
	cache     cache.Invalidator
	decider   Decider
	telemetry *telemetry.Recorder
	hooks     Hooks

	mu         sync.Mutex
	sessionID  string
	messages   []domain.Message
	loading    bool
	interrupt  *domain.InterruptState
	recreation *domain.SessionRecreationInfo
	current    *runContext
	finished   *runContext // last completed run, until its stream ends or a new run starts
	runs       map[string]*domain.RunInfo
}

func New(transport stream.Transport, db store.Store, opts Options) *Service {
	invalidator := opts.Cache
	if invalidator == nil {
		invalidator = cache.NewMemory()
	}
	return &Service{
		transport: transport,
		store:     db,
		cache:     invalidator,
		decider:   opts.Decider,
		telemetry: opts.Telemetry,
		hooks:     opts.Hooks,
		sessionID: opts.SessionID,
		runs:      make(map[string]*domain.RunInfo),
	}
}

// runContext is the per-run bookkeeping of the active run. It is owned by
// the Service and only touched with s.mu held.
type runContext struct {
	info    *domain.RunInfo
	cancel  context.CancelFunc
	stream  uint64 // sequence of the stream currently feeding the run
	text    strings.Builder
	pending []domain.ToolCallRecord
	span    *telemetry.RunSpan
}

func (rc *runContext) id() string {
	return rc.info.RunID
}

func (rc *runContext) status() domain.RunStatus {
	return rc.info.Status
}

func (rc *runContext) addPending(call domain.ToolCallRecord) {
	rc.pending = append(rc.pending, call)
}

// removePending drops the first pending call with the given id. Unknown ids
// are ignored.
func (rc *runContext) removePending(id string) {
	for i, call := range rc.pending {
		if call.ID == id {
			rc.pending = append(rc.pending[:i:i], rc.pending[i+1:]...)
			return
		}
	}
}

// effects are collaborator calls collected under the lock and run after it
// is released.
type effects []func()

func (fx *effects) add(fn func()) {
	*fx = append(*fx, fn)
}

func (fx effects) run() {
	for _, fn := range fx {
		fn()
	}
}

func (s *Service) reportError(fx *effects, err error) {
	fx.add(func() {
		if s.hooks.OnError != nil {
			s.hooks.OnError(err)
			return
		}
		log.Printf("ERROR: %v", err)
	})
}

func (s *Service) invalidate(fx *effects, tags ...string) {
	fx.add(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.cache.Invalidate(ctx, tags...); err != nil {
			log.Printf("WARN: cache invalidation failed: %v", err)
		}
	})
}

func newID(prefix string) string {
	return prefix + uuid.New().String()
}

// State is a snapshot of the conversation for rendering.
type State struct {
	SessionID         string                        `json:"session_id,omitempty"`
	Messages          []domain.Message              `json:"messages"`
	StreamingText     string                        `json:"streaming_text"`
	PendingToolCalls  []domain.ToolCallRecord       `json:"pending_tool_calls"`
	Loading           bool                          `json:"loading"`
	Interrupt         *domain.InterruptState        `json:"interrupt,omitempty"`
	SessionRecreation *domain.SessionRecreationInfo `json:"session_recreation,omitempty"`
	CurrentRun        *domain.RunInfo               `json:"current_run,omitempty"`
}

// State returns a snapshot of the conversation.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		SessionID:        s.sessionID,
		Messages:         append([]domain.Message{}, s.messages...),
		PendingToolCalls: []domain.ToolCallRecord{},
		Loading:          s.loading,
	}
	if s.interrupt != nil {
		intr := *s.interrupt
		st.Interrupt = &intr
	}
	if s.recreation != nil {
		rec := *s.recreation
		st.SessionRecreation = &rec
	}
	if rc := s.current; rc != nil {
		st.StreamingText = rc.text.String()
		st.PendingToolCalls = append(st.PendingToolCalls, rc.pending...)
		info := *rc.info
		st.CurrentRun = &info
	}
	return st
}

// Loading reports whether a request is in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// PendingToolCalls returns the unanswered tool calls of the active run in
// arrival order.
func (s *Service) PendingToolCalls() []domain.ToolCallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return []domain.ToolCallRecord{}
	}
	return append([]domain.ToolCallRecord{}, s.current.pending...)
}

// Interrupt returns the pending interrupt, if any.
func (s *Service) Interrupt() (domain.InterruptState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interrupt == nil {
		return domain.InterruptState{}, false
	}
	return *s.interrupt, true
}

// Run returns the status of a run started by this Service.
func (s *Service) Run(runID string) (domain.RunInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.runs[runID]
	if !ok {
		return domain.RunInfo{}, false
	}
	return *info, true
}

// Timeline returns the recorded events of a run, optionally restricted to types.
func (s *Service) Timeline(ctx context.Context, runID string, types ...domain.EventType) ([]domain.ProcessEvent, error) {
	return s.store.GetEvents(ctx, runID, types, 0)
}

// SessionID returns the session subsequent requests are sent for.
func (s *Service) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// SetSessionID selects the session subsequent requests are sent for.
func (s *Service) SetSessionID(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
}
