// Package psi is a client for the route-safety (PSI) engine.
package psi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where the engine listens when started locally.
const DefaultBaseURL = "http://localhost:8000"

var (
	// ErrRequestFailed is returned for any non-2xx engine response.
	ErrRequestFailed = errors.New("psi request failed")
	ErrNoRoutes      = errors.New("no routes provided")
	ErrEmptyRoute    = errors.New("route has no coordinates")
)

// Client talks to the engine over JSON.
type Client struct {
	parsedURL *url.URL
	http      *http.Client
}

// New creates a client. An empty baseURL selects DefaultBaseURL and a
// non-positive timeout leaves requests bounded only by their context.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid PSI URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid PSI URL %q: scheme must be http or https", baseURL)
	}
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &Client{parsedURL: parsed, http: hc}, nil
}

// URL returns the engine base URL.
func (c *Client) URL() string {
	return c.parsedURL.String()
}

// PredictPSI scores an explicit feature vector.
func (c *Client) PredictPSI(ctx context.Context, features SafetyFeatures) (*Prediction, error) {
	return doPostJSON[Prediction](ctx, c, "predict", features)
}

// LocationPSI scores a coordinate using the features of the nearest known area.
func (c *Client) LocationPSI(ctx context.Context, lat, lng float64) (*LocationScore, error) {
	return doPostJSON[LocationScore](ctx, c, "location-psi", locationRequest{Lat: lat, Lng: lng})
}

// SafestRoute picks the candidate route with the highest average score.
func (c *Client) SafestRoute(ctx context.Context, routes []Route) (*RouteChoice, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	for i, route := range routes {
		if len(route) == 0 {
			return nil, fmt.Errorf("%w: route %d", ErrEmptyRoute, i)
		}
	}
	choice, err := doPostJSON[RouteChoice](ctx, c, "safest-route", routeRequest{Routes: routes})
	if err != nil {
		return nil, err
	}
	if choice.BestRouteIndex < 0 || choice.BestRouteIndex >= len(routes) {
		return nil, fmt.Errorf("%w: best route index %d out of range for %d routes",
			ErrRequestFailed, choice.BestRouteIndex, len(routes))
	}
	return choice, nil
}

// Health reports whether the engine is up.
func (c *Client) Health(ctx context.Context) (*EngineStatus, error) {
	return doRequestJSON[EngineStatus](ctx, c, http.MethodGet, "", nil)
}
