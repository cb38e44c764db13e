package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kozaktomas/suraksha/internal/ai"
	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image>...",
	Short: "Run the eligibility gate on image files",
	Long: `Send each image to the vision oracle's eligibility gate and print the
verdicts. Nothing is stored.

Examples:
  # Check a directory of test photos
  suraksha verify testdata/*.jpg

  # Machine-readable output
  suraksha verify --json selfie.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Bool("json", false, "Output as JSON")
	verifyCmd.Flags().Int("concurrency", 3, "Number of parallel oracle calls")
}

// VerifyResult is the gate verdict for one file.
type VerifyResult struct {
	File string `json:"file"`
	ai.FaceVerification
	Error string `json:"error,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)

	cfg := config.Load()
	ctx := context.Background()

	oracle, err := newOracle(ctx, cfg)
	if err != nil {
		return err
	}

	bar := newVerifyProgressBar(len(args), jsonOutput)
	results := verifyConcurrently(ctx, oracle, args, concurrency, bar)
	if bar != nil {
		fmt.Println()
	}

	if jsonOutput {
		return outputJSON(results)
	}
	printVerifyResults(results)
	printUsage(oracle)
	return nil
}

// verifyConcurrently checks every file with a bounded number of workers.
// Results keep the order of files.
func verifyConcurrently(ctx context.Context, oracle ai.Provider, files []string, concurrency int, bar *progressbar.ProgressBar) []VerifyResult {
	results := make([]VerifyResult, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)
		go func(idx int, file string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = verifyFile(ctx, oracle, file)
			if bar != nil {
				bar.Add(1)
			}
		}(i, file)
	}
	wg.Wait()
	return results
}

func verifyFile(ctx context.Context, oracle ai.Provider, file string) VerifyResult {
	result := VerifyResult{File: file}
	data, err := os.ReadFile(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	verdict, err := oracle.VerifyFace(ctx, data)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.FaceVerification = *verdict
	return result
}

// newVerifyProgressBar creates a progress bar for gate checks, or nil if JSON output.
func newVerifyProgressBar(count int, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Verifying faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func printVerifyResults(results []VerifyResult) {
	var passed, failed int
	for _, r := range results {
		name := filepath.Base(r.File)
		switch {
		case r.Error != "":
			failed++
			fmt.Printf("  %-30s error: %s\n", name, r.Error)
		case !r.FaceDetected:
			fmt.Printf("  %-30s no face\n", name)
		case r.Eligible:
			passed++
			fmt.Printf("  %-30s eligible (%.0f%%)\n", name, r.Confidence)
		default:
			fmt.Printf("  %-30s denied (%.0f%%)\n", name, r.Confidence)
		}
	}
	fmt.Printf("\n%d of %d eligible, %d errors\n", passed, len(results), failed)
}
