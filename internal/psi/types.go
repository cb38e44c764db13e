package psi

// SafetyFeatures is the full feature vector the engine's model is trained on.
type SafetyFeatures struct {
	CrimeRate      float64 `json:"crime_rate"`
	LightLevel     float64 `json:"light_level"`
	CrowdDensity   float64 `json:"crowd_density"`
	SOSCount       int     `json:"sos_count"`
	TimeRisk       float64 `json:"time_risk"`
	UserRating     float64 `json:"user_rating"`
	SentimentScore float64 `json:"sentiment_score"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
}

type Prediction struct {
	PSIScore float64 `json:"psi_score"`
}

// LocationScore is the score of a coordinate, computed from the nearest
// known area.
type LocationScore struct {
	Area            string  `json:"area"`
	PSIScore        float64 `json:"psi_score"`
	NearestDistance float64 `json:"nearest_distance"`
}

// Coordinate is a [lat, lng] pair, encoded as a two element JSON array.
type Coordinate [2]float64

func (c Coordinate) Lat() float64 { return c[0] }
func (c Coordinate) Lng() float64 { return c[1] }

// Route is an ordered polyline.
type Route []Coordinate

type HeatPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	PSI float64 `json:"psi"`
}

// RouteChoice names the candidate with the highest average score.
// HeatmapData holds the per point scores of that route.
type RouteChoice struct {
	BestRouteIndex int         `json:"best_route_index"`
	SafestPSI      float64     `json:"safest_psi"`
	HeatmapData    []HeatPoint `json:"heatmap_data"`
}

type EngineStatus struct {
	Status string `json:"status"`
	Demo   string `json:"demo,omitempty"`
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type routeRequest struct {
	Routes []Route `json:"routes"`
}
