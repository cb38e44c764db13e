package faceauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/suraksha/internal/ai"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/database/mock"
	"go.uber.org/zap"
)

var testFrame = []byte{0xff, 0xd8, 0xff, 0xe0, 'f', 'a', 'c', 'e'}

// fakeScheduler only runs callbacks when a test fires them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs the single pending timer and fails the test when there is not
// exactly one.
func (s *fakeScheduler) fire(t *testing.T) time.Duration {
	t.Helper()
	p := s.pending()
	if len(p) != 1 {
		t.Fatalf("expected exactly 1 pending timer, got %d", len(p))
	}
	p[0].fired = true
	p[0].f()
	return p[0].d
}

// fakeCamera hands out the same frame on every snapshot.
type fakeCamera struct {
	mu      sync.Mutex
	frame   []byte
	openErr error
	opens   int
	closes  int
}

func (c *fakeCamera) Open(context.Context) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return nil, c.openErr
	}
	c.opens++
	return &fakeStream{cam: c}, nil
}

func (c *fakeCamera) counts() (opens, closes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.closes
}

type fakeStream struct {
	cam    *fakeCamera
	closed bool
}

func (s *fakeStream) Snapshot() []byte {
	s.cam.mu.Lock()
	defer s.cam.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.cam.frame
}

func (s *fakeStream) Close() {
	s.cam.mu.Lock()
	defer s.cam.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.cam.closes++
	}
}

// fakeOracle answers through optional hooks and records every call.
type fakeOracle struct {
	mu sync.Mutex

	verify   func() (*ai.FaceVerification, error)
	compare  func(descriptor string) (*ai.FaceComparison, error)
	describe func() (string, error)

	verifyCalls   int
	compared      []string
	describeCalls int
}

func (f *fakeOracle) VerifyFace(context.Context, []byte) (*ai.FaceVerification, error) {
	f.mu.Lock()
	f.verifyCalls++
	hook := f.verify
	f.mu.Unlock()
	if hook != nil {
		return hook()
	}
	return &ai.FaceVerification{FaceDetected: true, Eligible: true, Confidence: 95}, nil
}

func (f *fakeOracle) CompareFace(_ context.Context, _ []byte, descriptor string) (*ai.FaceComparison, error) {
	f.mu.Lock()
	f.compared = append(f.compared, descriptor)
	hook := f.compare
	f.mu.Unlock()
	if hook != nil {
		return hook(descriptor)
	}
	return &ai.FaceComparison{Confidence: 20}, nil
}

func (f *fakeOracle) DescribeFace(context.Context, []byte) (string, error) {
	f.mu.Lock()
	f.describeCalls++
	hook := f.describe
	f.mu.Unlock()
	if hook != nil {
		return hook()
	}
	return "descriptor-new", nil
}

type sessionCall struct {
	key, profileID string
}

type fakeSessions struct {
	mu    sync.Mutex
	calls []sessionCall
	err   error
}

func (s *fakeSessions) SetSession(_ context.Context, key, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sessionCall{key, profileID})
	return s.err
}

type harness struct {
	o          *Orchestrator
	sched      *fakeScheduler
	cam        *fakeCamera
	oracle     *fakeOracle
	profiles   *mock.MockProfileStore
	identities *mock.MockIdentityProvider
	sessions   *fakeSessions

	mu        sync.Mutex
	successes []*database.UserProfile
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sched:      &fakeScheduler{},
		cam:        &fakeCamera{frame: testFrame},
		oracle:     &fakeOracle{},
		profiles:   mock.NewMockProfileStore(),
		identities: mock.NewMockIdentityProvider(),
		sessions:   &fakeSessions{},
	}
	return h
}

// build creates the orchestrator. Tests adjust the fakes first.
func (h *harness) build(t *testing.T, settings Settings) *Orchestrator {
	t.Helper()
	o, err := New(Config{
		Camera:     h.cam,
		Oracle:     h.oracle,
		Profiles:   h.profiles,
		Identities: h.identities,
		Sessions:   h.sessions,
		Settings:   settings,
		Scheduler:  h.sched,
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC) },
		OnSuccess: func(p *database.UserProfile) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.successes = append(h.successes, p)
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.o = o
	t.Cleanup(o.Close)
	return o
}

func (h *harness) successCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.successes)
}

func withDescriptor(id, name, descriptor string) database.UserProfile {
	p := database.UserProfile{ID: id, Name: name, Email: id + "@example.com", Eligible: true, Status: database.StatusVerified}
	if descriptor != "" {
		p.Face = &database.FaceRecord{Descriptor: descriptor, Confidence: 100}
	}
	return p
}
