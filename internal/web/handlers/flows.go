package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/suraksha/internal/constants"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/faceauth"
	"github.com/kozaktomas/suraksha/internal/web/middleware"
	"go.uber.org/zap"
)

// FlowsHandler exposes authentication flows over HTTP.
type FlowsHandler struct {
	manager        *FlowManager
	sessionManager *middleware.SessionManager
}

// NewFlowsHandler creates a new flows handler
func NewFlowsHandler(manager *FlowManager, sm *middleware.SessionManager) *FlowsHandler {
	return &FlowsHandler{
		manager:        manager,
		sessionManager: sm,
	}
}

type createFlowRequest struct {
	View string `json:"view"`
}

type viewRequest struct {
	View string `json:"view"`
}

type cameraRequest struct {
	Available *bool `json:"available"`
}

type frameRequest struct {
	Frame string `json:"frame"` // base64, optionally as a data URL
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned when a flow authenticates.
type AuthResponse struct {
	Success bool             `json:"success"`
	Profile *ProfileResponse `json:"profile,omitempty"`
	middleware.SessionData
}

// lookup fetches the flow named in the URL or writes a 404.
func (h *FlowsHandler) lookup(w http.ResponseWriter, r *http.Request) *Flow {
	flow := h.manager.GetFlow(chi.URLParam(r, "flowId"))
	if flow == nil {
		respondError(w, http.StatusNotFound, "flow not found")
	}
	return flow
}

// Create starts a new flow. The body is optional and may name the first view.
func (h *FlowsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFlowRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	view := faceauth.ViewScanEntry
	if req.View != "" {
		v, ok := faceauth.ParseView(req.View)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown view")
			return
		}
		view = v
	}

	flow, err := h.manager.CreateFlow(view)
	if err != nil {
		zap.L().Error("failed to create flow", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create flow")
		return
	}
	respondJSON(w, http.StatusCreated, flow.Status())
}

// Get returns the flow status.
func (h *FlowsHandler) Get(w http.ResponseWriter, r *http.Request) {
	flow := h.lookup(w, r)
	if flow == nil {
		return
	}
	respondJSON(w, http.StatusOK, flow.Status())
}

// Events streams status changes via SSE.
func (h *FlowsHandler) Events(w http.ResponseWriter, r *http.Request) {
	var flow *Flow
	streamSSEEvents(w, r,
		func(id string) SSESource {
			flow = h.manager.GetFlow(id)
			if flow == nil {
				return nil
			}
			return flow
		},
		func(SSESource) any { return flow.Status() },
		func() { flow.touch(h.manager.now()) },
	)
}

// Frame accepts the latest camera frame, either as a raw image body or as
// base64 JSON.
func (h *FlowsHandler) Frame(w http.ResponseWriter, r *http.Request) {
	flow := h.lookup(w, r)
	if flow == nil {
		return
	}

	body := http.MaxBytesReader(w, r.Body, constants.MaxFrameBytes)
	var frame []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req frameRequest
		if err := decodeBody(body, &req); err != nil {
			respondFrameError(w, err)
			return
		}
		decoded, err := decodeFrame(req.Frame)
		if err != nil {
			respondError(w, http.StatusBadRequest, "frame is not valid base64")
			return
		}
		frame = decoded
	} else {
		data, err := io.ReadAll(body)
		if err != nil {
			respondFrameError(w, err)
			return
		}
		frame = data
	}

	if len(frame) == 0 {
		respondError(w, http.StatusBadRequest, "empty frame")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(frame), "image/") {
		respondError(w, http.StatusUnsupportedMediaType, "frame is not an image")
		return
	}

	flow.camera.Push(frame)
	respondJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// Camera records whether the browser has camera access. Losing access, or
// regaining it after a camera failure, re-enters the current view.
func (h *FlowsHandler) Camera(w http.ResponseWriter, r *http.Request) {
	flow := h.lookup(w, r)
	if flow == nil {
		return
	}

	var req cameraRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Available == nil {
		respondError(w, http.StatusBadRequest, "available is required")
		return
	}

	flow.camera.SetAvailable(*req.Available)
	st := flow.orchestrator.Status()
	cameraFailed := st.State == faceauth.StateFailed && errors.Is(st.Err, faceauth.ErrCameraUnavailable)
	if !*req.Available || cameraFailed {
		if err := flow.orchestrator.SetView(st.View); err != nil {
			h.respondFlowError(w, flow, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, flow.Status())
}

// SetView switches the flow to another view.
func (h *FlowsHandler) SetView(w http.ResponseWriter, r *http.Request) {
	flow := h.lookup(w, r)
	if flow == nil {
		return
	}

	var req viewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, ok := faceauth.ParseView(req.View)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown view")
		return
	}

	if err := flow.orchestrator.SetView(view); err != nil {
		h.respondFlowError(w, flow, err)
		return
	}
	respondJSON(w, http.StatusOK, flow.Status())
}

// Login authenticates with email and password.
func (h *FlowsHandler) Login(w http.ResponseWriter, r *http.Request) {
	flow := h.lookup(w, r)
	if flow == nil {
		return
	}

	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	profile, err := flow.orchestrator.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondFlowError(w, flow, err)
		return
	}
	h.respondAuthenticated(w, flow, profile)
}

// Signup registers a new account, reusing face data from the flow when present.
func (h *FlowsHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, (*faceauth.Orchestrator).Signup)
}

// FaceSignup registers a new account with the face data retained by the last scan.
func (h *FlowsHandler) FaceSignup(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, (*faceauth.Orchestrator).FaceSignup)
}

type signupFunc func(*faceauth.Orchestrator, context.Context, faceauth.SignupRequest) (*database.UserProfile, error)

func (h *FlowsHandler) signup(w http.ResponseWriter, r *http.Request, register signupFunc) {
	flow := h.lookup(w, r)
	if flow == nil {
		return
	}

	var req faceauth.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	profile, err := register(flow.orchestrator, r.Context(), req)
	if err != nil {
		h.respondFlowError(w, flow, err)
		return
	}
	h.respondAuthenticated(w, flow, profile)
}

// Session sets the session cookie for a flow that completed on its own,
// such as a face match.
func (h *FlowsHandler) Session(w http.ResponseWriter, r *http.Request) {
	flow := h.lookup(w, r)
	if flow == nil {
		return
	}

	st := flow.orchestrator.Status()
	if !st.Completed || flow.Session() == nil {
		respondError(w, http.StatusConflict, "flow has not authenticated")
		return
	}
	h.respondAuthenticated(w, flow, &database.UserProfile{ID: st.ProfileID, Name: st.ProfileName})
}

// Delete tears a flow down.
func (h *FlowsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.manager.DeleteFlow(chi.URLParam(r, "flowId")) {
		respondError(w, http.StatusNotFound, "flow not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *FlowsHandler) respondAuthenticated(w http.ResponseWriter, flow *Flow, profile *database.UserProfile) {
	session := flow.Session()
	if session == nil {
		respondError(w, http.StatusInternalServerError, "session missing")
		return
	}
	h.sessionManager.SetSessionCookie(w, session)
	respondJSON(w, http.StatusOK, AuthResponse{
		Success:     true,
		Profile:     newProfileResponse(profile),
		SessionData: middleware.ToSessionData(session),
	})
}

// respondFlowError maps a flow error to a status code. The body carries the
// user-facing message the flow published.
func (h *FlowsHandler) respondFlowError(w http.ResponseWriter, flow *Flow, err error) {
	status := flowErrorStatus(err)
	message := flow.orchestrator.Status().Error
	switch {
	case errors.Is(err, faceauth.ErrClosed):
		message = "flow closed"
	case errors.Is(err, faceauth.ErrCompleted):
		message = "flow already completed"
	case message == "":
		message = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		zap.L().Warn("flow request failed", zap.String("flow", flow.ID), zap.Error(err))
	}
	respondError(w, status, message)
}

func flowErrorStatus(err error) int {
	switch {
	case errors.Is(err, faceauth.ErrClosed):
		return http.StatusGone
	case errors.Is(err, faceauth.ErrCompleted), errors.Is(err, faceauth.ErrMissingFaceData),
		errors.Is(err, database.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, faceauth.ErrEligibilityDenied):
		return http.StatusForbidden
	case errors.Is(err, faceauth.ErrNoFaceDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, faceauth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, faceauth.ErrOracleFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeFrame accepts plain base64 or a data URL.
func decodeFrame(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		if _, payload, found := strings.Cut(rest, ","); found {
			s = payload
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func decodeBody(body io.Reader, dst any) error {
	return json.NewDecoder(body).Decode(dst)
}

func respondFrameError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "frame too large")
		return
	}
	respondError(w, http.StatusBadRequest, errInvalidRequestBody)
}
