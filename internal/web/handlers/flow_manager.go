package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/suraksha/internal/constants"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/faceauth"
	"github.com/kozaktomas/suraksha/internal/web/middleware"
	"go.uber.org/zap"
)

// ErrFlowNotFound is returned for unknown or expired flow ids.
var ErrFlowNotFound = errors.New("flow not found")

// FlowEvent represents an event pushed to flow listeners.
type FlowEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting.
// Embed this in flow structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	listeners []chan FlowEvent
	closed    bool
	mu        sync.RWMutex
}

// AddListener adds an event listener. A broadcaster that was already closed
// returns a closed channel.
func (b *EventBroadcaster) AddListener() chan FlowEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan FlowEvent, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan FlowEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event FlowEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// closeListeners sends a final event and closes every listener.
func (b *EventBroadcaster) closeListeners(final FlowEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, listener := range b.listeners {
		select {
		case listener <- final:
		default:
		}
		close(listener)
	}
	b.listeners = nil
}

// Flow is one browser authentication attempt: an orchestrator fed by
// uploaded camera frames.
type Flow struct {
	EventBroadcaster

	ID        string
	CreatedAt time.Time

	camera       *faceauth.BufferCamera
	orchestrator *faceauth.Orchestrator

	mu       sync.Mutex
	session  *database.Session
	lastSeen time.Time
	closed   bool
}

// FlowStatus is the JSON view of a flow.
type FlowStatus struct {
	ID string `json:"id"`
	faceauth.Status
	SessionID string    `json:"sessionId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Status returns the current flow status.
func (f *Flow) Status() FlowStatus {
	return f.statusWith(f.orchestrator.Status())
}

func (f *Flow) statusWith(st faceauth.Status) FlowStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := FlowStatus{ID: f.ID, Status: st, CreatedAt: f.CreatedAt}
	if f.session != nil {
		out.SessionID = f.session.ID
	}
	return out
}

// Session returns the session created when the flow authenticated.
func (f *Flow) Session() *database.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *Flow) setSession(s *database.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// Done reports whether no further status changes will happen.
func (f *Flow) Done() bool {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	return closed || f.orchestrator.Status().Completed
}

func (f *Flow) touch(now time.Time) {
	f.mu.Lock()
	f.lastSeen = now
	f.mu.Unlock()
}

func (f *Flow) idleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeen
}

func (f *Flow) close(reason string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.orchestrator.Close()
	f.closeListeners(FlowEvent{Type: "closed", Message: reason})
}

// FlowDeps are the collaborators shared by every flow.
type FlowDeps struct {
	Oracle     faceauth.Oracle
	Profiles   faceauth.ProfileStore
	Identities database.IdentityProvider
	Sessions   *middleware.SessionManager
	Settings   faceauth.Settings
	Scheduler  faceauth.Scheduler // nil uses real timers
	Logger     *zap.Logger
}

// FlowManager owns the live flows and drops idle ones.
type FlowManager struct {
	deps FlowDeps
	ttl  time.Duration
	now  func() time.Time
	log  *zap.Logger

	flows map[string]*Flow
	mu    sync.RWMutex

	stopOnce sync.Once
	stop     chan struct{}
}

// NewFlowManager creates a new flow manager.
func NewFlowManager(deps FlowDeps, ttl time.Duration) *FlowManager {
	if ttl <= 0 {
		ttl = constants.DefaultFlowTTL
	}
	log := deps.Logger
	if log == nil {
		log = zap.L()
	}
	return &FlowManager{
		deps:  deps,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
		flows: make(map[string]*Flow),
		stop:  make(chan struct{}),
	}
}

// CreateFlow starts a new flow in the given view.
func (m *FlowManager) CreateFlow(view faceauth.View) (*Flow, error) {
	now := m.now()
	flow := &Flow{
		ID:        uuid.NewString(),
		CreatedAt: now,
		camera:    faceauth.NewBufferCamera(),
		lastSeen:  now,
	}
	log := m.log.With(zap.String("flow", flow.ID))

	orchestrator, err := faceauth.New(faceauth.Config{
		Camera:     flow.camera,
		Oracle:     m.deps.Oracle,
		Profiles:   m.deps.Profiles,
		Identities: m.deps.Identities,
		Sessions: faceauth.SessionFunc(func(ctx context.Context, _, profileID string) error {
			session, err := m.deps.Sessions.CreateSession(ctx, profileID)
			if err != nil {
				return err
			}
			flow.setSession(session)
			return nil
		}),
		Settings:  m.deps.Settings,
		Scheduler: m.deps.Scheduler,
		Logger:    log,
		OnSuccess: func(p *database.UserProfile) {
			log.Info("flow completed", zap.String("profile_id", p.ID))
		},
		OnStatus: func(st faceauth.Status) {
			flow.SendEvent(FlowEvent{Type: "status", Data: flow.statusWith(st)})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}
	flow.orchestrator = orchestrator

	m.mu.Lock()
	m.flows[flow.ID] = flow
	m.mu.Unlock()

	if err := orchestrator.SetView(view); err != nil {
		m.DeleteFlow(flow.ID)
		return nil, fmt.Errorf("enter view %s: %w", view, err)
	}
	log.Debug("flow created", zap.String("view", string(view)))
	return flow, nil
}

// GetFlow retrieves a flow by ID and marks it as active.
func (m *FlowManager) GetFlow(id string) *Flow {
	m.mu.RLock()
	flow := m.flows[id]
	m.mu.RUnlock()
	if flow != nil {
		flow.touch(m.now())
	}
	return flow
}

// DeleteFlow closes and removes a flow.
func (m *FlowManager) DeleteFlow(id string) bool {
	m.mu.Lock()
	flow, ok := m.flows[id]
	delete(m.flows, id)
	m.mu.Unlock()
	if ok {
		flow.close("flow deleted")
	}
	return ok
}

// ListFlows returns all flows.
func (m *FlowManager) ListFlows() []*Flow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	flows := make([]*Flow, 0, len(m.flows))
	for _, flow := range m.flows {
		flows = append(flows, flow)
	}
	return flows
}

// Sweep removes flows idle for longer than the TTL and returns how many were removed.
func (m *FlowManager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Flow
	for id, flow := range m.flows {
		if flow.idleSince().Before(cutoff) {
			expired = append(expired, flow)
			delete(m.flows, id)
		}
	}
	m.mu.Unlock()

	for _, flow := range expired {
		flow.close("flow expired")
	}
	if len(expired) > 0 {
		m.log.Debug("expired idle flows", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval until Stop is called.
func (m *FlowManager) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Stop ends the sweeper and closes every flow.
func (m *FlowManager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	flows := m.flows
	m.flows = make(map[string]*Flow)
	m.mu.Unlock()

	for _, flow := range flows {
		flow.close("server shutting down")
	}
}
