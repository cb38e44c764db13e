package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/kozaktomas/suraksha/internal/psi"
	"github.com/spf13/cobra"
)

var psiCmd = &cobra.Command{
	Use:   "psi",
	Short: "Query the route-safety engine",
	Long: `Commands for the personal safety index (PSI) engine. Lower scores are
safer. The engine URL comes from PSI_URL.`,
}

var psiHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the engine is up",
	Args:  cobra.NoArgs,
	RunE:  runPSIHealth,
}

var psiPredictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score an explicit feature vector",
	Long: `Score an explicit feature vector.

Examples:
  suraksha psi predict --crime-rate 7 --light-level 2 --crowd-density 3 --time-risk 8 --lat 12.97 --lng 77.59`,
	Args: cobra.NoArgs,
	RunE: runPSIPredict,
}

var psiLocationCmd = &cobra.Command{
	Use:   "location <lat> <lng>",
	Short: "Score the area nearest to a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE:  runPSILocation,
}

var psiRouteCmd = &cobra.Command{
	Use:   "route <routes.json>",
	Short: "Pick the safest of several candidate routes",
	Long: `Pick the safest of several candidate routes.

The file holds a JSON array of routes, each an array of [lat, lng] pairs.
Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runPSIRoute,
}

func init() {
	rootCmd.AddCommand(psiCmd)
	psiCmd.AddCommand(psiHealthCmd, psiPredictCmd, psiLocationCmd, psiRouteCmd)

	psiCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	psiPredictCmd.Flags().Float64("crime-rate", 0, "Crime rate (0-10)")
	psiPredictCmd.Flags().Float64("light-level", 0, "Street light level (0-10)")
	psiPredictCmd.Flags().Float64("crowd-density", 0, "Crowd density (0-10)")
	psiPredictCmd.Flags().Int("sos-count", 0, "Recent SOS alerts nearby")
	psiPredictCmd.Flags().Float64("time-risk", 0, "Time of day risk (0-10)")
	psiPredictCmd.Flags().Float64("user-rating", 0, "Community safety rating (0-5)")
	psiPredictCmd.Flags().Float64("sentiment", 0, "Sentiment score (-1 to 1)")
	psiPredictCmd.Flags().Float64("lat", 0, "Latitude")
	psiPredictCmd.Flags().Float64("lng", 0, "Longitude")
}

func newPSIClient() (*psi.Client, error) {
	cfg := config.Load()
	return psi.New(cfg.PSI.URL, cfg.PSI.Timeout)
}

func runPSIHealth(cmd *cobra.Command, args []string) error {
	client, err := newPSIClient()
	if err != nil {
		return err
	}
	status, err := client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("engine at %s: %w", client.URL(), err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(status)
	}
	fmt.Printf("Engine: %s (%s)\n", status.Status, client.URL())
	if status.Demo != "" {
		fmt.Printf("Demo:   %s\n", status.Demo)
	}
	return nil
}

func runPSIPredict(cmd *cobra.Command, args []string) error {
	features := psi.SafetyFeatures{
		CrimeRate:      mustGetFloat64(cmd, "crime-rate"),
		LightLevel:     mustGetFloat64(cmd, "light-level"),
		CrowdDensity:   mustGetFloat64(cmd, "crowd-density"),
		SOSCount:       mustGetInt(cmd, "sos-count"),
		TimeRisk:       mustGetFloat64(cmd, "time-risk"),
		UserRating:     mustGetFloat64(cmd, "user-rating"),
		SentimentScore: mustGetFloat64(cmd, "sentiment"),
		Lat:            mustGetFloat64(cmd, "lat"),
		Lng:            mustGetFloat64(cmd, "lng"),
	}

	client, err := newPSIClient()
	if err != nil {
		return err
	}
	result, err := client.PredictPSI(cmd.Context(), features)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}
	fmt.Printf("PSI score: %.2f\n", result.PSIScore)
	return nil
}

func runPSILocation(cmd *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q: %w", args[0], err)
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q: %w", args[1], err)
	}

	client, err := newPSIClient()
	if err != nil {
		return err
	}
	result, err := client.LocationPSI(cmd.Context(), lat, lng)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}
	fmt.Printf("Area:      %s\n", result.Area)
	fmt.Printf("PSI score: %.2f\n", result.PSIScore)
	fmt.Printf("Distance:  %.3f\n", result.NearestDistance)
	return nil
}

func runPSIRoute(cmd *cobra.Command, args []string) error {
	routes, err := readRoutes(args[0])
	if err != nil {
		return err
	}

	client, err := newPSIClient()
	if err != nil {
		return err
	}
	result, err := client.SafestRoute(cmd.Context(), routes)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}
	fmt.Printf("Safest route: #%d of %d\n", result.BestRouteIndex+1, len(routes))
	fmt.Printf("PSI score:    %.2f\n", result.SafestPSI)
	fmt.Printf("Heatmap:      %d points\n", len(result.HeatmapData))
	return nil
}

func readRoutes(path string) ([]psi.Route, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading routes: %w", err)
	}

	var routes []psi.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("parsing routes: %w", err)
	}
	if len(routes) == 0 {
		return nil, errors.New("no routes in input")
	}
	return routes, nil
}
