package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/kozaktomas/suraksha/internal/psi"
	"go.uber.org/zap"
)

// PSIClient is the route-safety engine. *psi.Client satisfies it.
type PSIClient interface {
	PredictPSI(ctx context.Context, features psi.SafetyFeatures) (*psi.Prediction, error)
	LocationPSI(ctx context.Context, lat, lng float64) (*psi.LocationScore, error)
	SafestRoute(ctx context.Context, routes []psi.Route) (*psi.RouteChoice, error)
	Health(ctx context.Context) (*psi.EngineStatus, error)
}

// PSIHandler proxies route-safety requests to the engine
type PSIHandler struct {
	client PSIClient
}

// NewPSIHandler creates a new PSI handler
func NewPSIHandler(client PSIClient) *PSIHandler {
	return &PSIHandler{client: client}
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type routeRequest struct {
	Routes []psi.Route `json:"routes"`
}

// Predict scores an explicit feature vector
func (h *PSIHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req psi.SafetyFeatures
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validCoordinate(req.Lat, req.Lng) {
		respondError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	result, err := h.client.PredictPSI(r.Context(), req)
	if err != nil {
		respondPSIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Location scores a single coordinate
func (h *PSIHandler) Location(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lng == nil || !validCoordinate(*req.Lat, *req.Lng) {
		respondError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	result, err := h.client.LocationPSI(r.Context(), *req.Lat, *req.Lng)
	if err != nil {
		respondPSIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Route picks the safest of the candidate routes
func (h *PSIHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for _, route := range req.Routes {
		for _, c := range route {
			if !validCoordinate(c.Lat(), c.Lng()) {
				respondError(w, http.StatusBadRequest, "invalid coordinates")
				return
			}
		}
	}

	result, err := h.client.SafestRoute(r.Context(), req.Routes)
	if err != nil {
		respondPSIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Health reports the engine status
func (h *PSIHandler) Health(w http.ResponseWriter, r *http.Request) {
	result, err := h.client.Health(r.Context())
	if err != nil {
		respondPSIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func validCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func respondPSIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, psi.ErrNoRoutes), errors.Is(err, psi.ErrEmptyRoute):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, psi.ErrRequestFailed):
		zap.L().Warn("route safety engine rejected request", zap.Error(err))
		respondError(w, http.StatusBadGateway, "route safety engine request failed")
	default:
		zap.L().Warn("route safety engine unreachable", zap.Error(err))
		respondError(w, http.StatusBadGateway, "route safety engine unavailable")
	}
}
