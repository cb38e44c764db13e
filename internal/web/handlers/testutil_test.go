package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/suraksha/internal/ai"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/database/mock"
	"github.com/kozaktomas/suraksha/internal/faceauth"
	"github.com/kozaktomas/suraksha/internal/web/middleware"
	"go.uber.org/zap"
)

// testJPEG starts with a JPEG signature so content sniffing accepts it.
var testJPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

// manualScheduler only runs callbacks when a test fires them.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	f    func()
	done bool
}

func (t *manualTimer) Stop() bool {
	active := !t.done
	t.done = true
	return active
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) faceauth.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs every pending timer once, in creation order.
func (s *manualScheduler) fire() {
	s.mu.Lock()
	var pending []*manualTimer
	for _, t := range s.timers {
		if !t.done {
			t.done = true
			pending = append(pending, t)
		}
	}
	s.mu.Unlock()
	for _, t := range pending {
		t.f()
	}
}

// stubOracle answers with fixed verdicts and records the frames it saw.
type stubOracle struct {
	mu         sync.Mutex
	verdict    ai.FaceVerification
	verifyErr  error
	confidence float64
	descriptor string
	frames     [][]byte
}

func newStubOracle() *stubOracle {
	return &stubOracle{
		verdict:    ai.FaceVerification{FaceDetected: true, Eligible: true, Confidence: 97},
		confidence: 10,
		descriptor: "descriptor-new",
	}
}

func (o *stubOracle) VerifyFace(_ context.Context, frame []byte) (*ai.FaceVerification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames = append(o.frames, frame)
	if o.verifyErr != nil {
		return nil, o.verifyErr
	}
	v := o.verdict
	return &v, nil
}

func (o *stubOracle) CompareFace(context.Context, []byte, string) (*ai.FaceComparison, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return &ai.FaceComparison{Confidence: o.confidence}, nil
}

func (o *stubOracle) DescribeFace(context.Context, []byte) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.descriptor, nil
}

func (o *stubOracle) seenFrames() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([][]byte(nil), o.frames...)
}

// testEnv wires a FlowsHandler to in-memory backends behind a chi router.
type testEnv struct {
	oracle     *stubOracle
	profiles   *mock.MockProfileStore
	identities *mock.MockIdentityProvider
	store      *mock.MockSessionStore
	sessions   *middleware.SessionManager
	sched      *manualScheduler
	manager    *FlowManager
	router     chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		oracle:     newStubOracle(),
		profiles:   mock.NewMockProfileStore(),
		identities: mock.NewMockIdentityProvider(),
		store:      mock.NewMockSessionStore(),
		sched:      &manualScheduler{},
	}
	env.sessions = middleware.NewSessionManager("test-secret", env.store, false)
	env.manager = NewFlowManager(FlowDeps{
		Oracle:     env.oracle,
		Profiles:   env.profiles,
		Identities: env.identities,
		Sessions:   env.sessions,
		Scheduler:  env.sched,
		Logger:     zap.NewNop(),
	}, time.Minute)
	t.Cleanup(env.manager.Stop)

	h := NewFlowsHandler(env.manager, env.sessions)
	auth := NewAuthHandler(env.sessions, env.profiles)
	r := chi.NewRouter()
	r.Post("/flows", h.Create)
	r.Get("/flows/{flowId}", h.Get)
	r.Delete("/flows/{flowId}", h.Delete)
	r.Get("/flows/{flowId}/events", h.Events)
	r.Post("/flows/{flowId}/frames", h.Frame)
	r.Post("/flows/{flowId}/camera", h.Camera)
	r.Put("/flows/{flowId}/view", h.SetView)
	r.Post("/flows/{flowId}/login", h.Login)
	r.Post("/flows/{flowId}/signup", h.Signup)
	r.Post("/flows/{flowId}/face-signup", h.FaceSignup)
	r.Post("/flows/{flowId}/session", h.Session)
	r.With(middleware.RequireAuth(env.sessions)).Get("/me", auth.Me)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

// createFlow starts a flow and returns its id.
func (e *testEnv) createFlow(t *testing.T) string {
	t.Helper()
	recorder := e.do(t, http.MethodPost, "/flows", nil)
	assertStatusCode(t, recorder, http.StatusCreated)
	var st FlowStatus
	parseJSONResponse(t, recorder, &st)
	if st.ID == "" {
		t.Fatal("expected a flow id")
	}
	return st.ID
}

func (e *testEnv) pushFrame(t *testing.T, id string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/flows/"+id+"/frames", bytes.NewReader(testJPEG))
	req.Header.Set("Content-Type", "image/jpeg")
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	assertStatusCode(t, recorder, http.StatusAccepted)
}

func (e *testEnv) status(t *testing.T, id string) FlowStatus {
	t.Helper()
	recorder := e.do(t, http.MethodGet, "/flows/"+id, nil)
	assertStatusCode(t, recorder, http.StatusOK)
	var st FlowStatus
	parseJSONResponse(t, recorder, &st)
	return st
}

func storedProfile(id, name, descriptor string) database.UserProfile {
	return database.UserProfile{
		ID:       id,
		Name:     name,
		Email:    id + "@example.com",
		Eligible: true,
		Status:   database.StatusVerified,
		Face:     &database.FaceRecord{Descriptor: descriptor, Confidence: 100},
	}
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// sessionCookie returns the session cookie set on the response, if any.
func sessionCookie(recorder *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range recorder.Result().Cookies() {
		if c.MaxAge > 0 {
			return c
		}
	}
	return nil
}
