package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/suraksha/internal/psi"
)

type fakePSI struct {
	err error

	features psi.SafetyFeatures
	lat, lng float64
	routes   []psi.Route
	calls    int
}

func (f *fakePSI) PredictPSI(_ context.Context, features psi.SafetyFeatures) (*psi.Prediction, error) {
	f.calls++
	f.features = features
	if f.err != nil {
		return nil, f.err
	}
	return &psi.Prediction{PSIScore: 42}, nil
}

func (f *fakePSI) LocationPSI(_ context.Context, lat, lng float64) (*psi.LocationScore, error) {
	f.calls++
	f.lat, f.lng = lat, lng
	if f.err != nil {
		return nil, f.err
	}
	return &psi.LocationScore{Area: "Indiranagar", PSIScore: 1.85, NearestDistance: 0.4}, nil
}

func (f *fakePSI) SafestRoute(_ context.Context, routes []psi.Route) (*psi.RouteChoice, error) {
	f.calls++
	f.routes = routes
	if f.err != nil {
		return nil, f.err
	}
	if len(routes) == 0 {
		return nil, psi.ErrNoRoutes
	}
	return &psi.RouteChoice{BestRouteIndex: len(routes) - 1, SafestPSI: 3.5}, nil
}

func (f *fakePSI) Health(context.Context) (*psi.EngineStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &psi.EngineStatus{Status: "ok", Demo: "mock model"}, nil
}

func servePSI(handler http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/psi", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func TestPSIHandler_Predict(t *testing.T) {
	client := &fakePSI{}
	h := NewPSIHandler(client)

	recorder := servePSI(h.Predict, http.MethodPost, `{"crime_rate":3,"light_level":2,"lat":12.97,"lng":77.59}`)

	assertStatusCode(t, recorder, http.StatusOK)
	var result psi.Prediction
	parseJSONResponse(t, recorder, &result)
	if result.PSIScore != 42 {
		t.Errorf("PSIScore = %v, want 42", result.PSIScore)
	}
	if client.features.CrimeRate != 3 || client.features.Lat != 12.97 {
		t.Errorf("features not forwarded: %+v", client.features)
	}
}

func TestPSIHandler_Location(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"lat":12.97,"lng":77.59}`, http.StatusOK},
		{"zero coordinates", `{"lat":0,"lng":0}`, http.StatusOK},
		{"missing lng", `{"lat":12.97}`, http.StatusBadRequest},
		{"out of range", `{"lat":91,"lng":0}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakePSI{}
			recorder := servePSI(NewPSIHandler(client).Location, http.MethodPost, tc.body)
			assertStatusCode(t, recorder, tc.wantStatus)
			if tc.wantStatus != http.StatusOK && client.calls != 0 {
				t.Error("engine should not be called for rejected input")
			}
		})
	}
}

func TestPSIHandler_Route(t *testing.T) {
	client := &fakePSI{}
	h := NewPSIHandler(client)

	recorder := servePSI(h.Route, http.MethodPost, `{"routes":[[[12.97,77.59],[12.98,77.60]],[[12.97,77.59]]]}`)

	assertStatusCode(t, recorder, http.StatusOK)
	var result psi.RouteChoice
	parseJSONResponse(t, recorder, &result)
	if result.BestRouteIndex != 1 {
		t.Errorf("BestRouteIndex = %d, want 1", result.BestRouteIndex)
	}
	if len(client.routes) != 2 || client.routes[0][1].Lng() != 77.60 {
		t.Errorf("routes not forwarded: %+v", client.routes)
	}
}

func TestPSIHandler_RouteValidation(t *testing.T) {
	t.Run("invalid coordinate", func(t *testing.T) {
		client := &fakePSI{}
		recorder := servePSI(NewPSIHandler(client).Route, http.MethodPost, `{"routes":[[[12.97,200]]]}`)
		assertStatusCode(t, recorder, http.StatusBadRequest)
		assertJSONError(t, recorder, "invalid coordinates")
		if client.calls != 0 {
			t.Error("engine should not be called")
		}
	})

	t.Run("no routes", func(t *testing.T) {
		recorder := servePSI(NewPSIHandler(&fakePSI{}).Route, http.MethodPost, `{"routes":[]}`)
		assertStatusCode(t, recorder, http.StatusBadRequest)
		assertJSONError(t, recorder, psi.ErrNoRoutes.Error())
	})
}

func TestPSIHandler_Health(t *testing.T) {
	recorder := servePSI(NewPSIHandler(&fakePSI{}).Health, http.MethodGet, "")
	assertStatusCode(t, recorder, http.StatusOK)

	var result psi.EngineStatus
	parseJSONResponse(t, recorder, &result)
	if result.Status != "ok" || result.Demo == "" {
		t.Errorf("unexpected status %+v", result)
	}
}

func TestRespondPSIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"empty route", fmt.Errorf("route 1: %w", psi.ErrEmptyRoute), http.StatusBadRequest, "route 1: " + psi.ErrEmptyRoute.Error()},
		{"engine rejected", fmt.Errorf("%w: status 500", psi.ErrRequestFailed), http.StatusBadGateway, "route safety engine request failed"},
		{"unreachable", errors.New("dial tcp: connection refused"), http.StatusBadGateway, "route safety engine unavailable"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := servePSI(NewPSIHandler(&fakePSI{err: tc.err}).Health, http.MethodGet, "")
			assertStatusCode(t, recorder, tc.wantStatus)
			assertJSONError(t, recorder, tc.wantError)
		})
	}
}
