package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/suraksha/internal/ai"
	"github.com/kozaktomas/suraksha/internal/config"
	"go.uber.org/zap"
)

// newOracle builds the configured vision provider behind the shared throttle.
func newOracle(ctx context.Context, cfg *config.Config) (ai.Provider, error) {
	name, err := cfg.OracleProvider()
	if err != nil {
		return nil, err
	}

	var provider ai.Provider
	switch name {
	case "gemini":
		pricing := cfg.GetModelPricing(cfg.Gemini.Model)
		provider, err = ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Oracle.MaxImageSize,
			ai.RequestPricing{Input: pricing.Standard.Input, Output: pricing.Standard.Output},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini provider: %w", err)
		}
	case "openai":
		pricing := cfg.GetModelPricing(cfg.OpenAI.Model)
		provider = ai.NewOpenAIProvider(cfg.OpenAI.Token, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.Oracle.MaxImageSize,
			ai.RequestPricing{Input: pricing.Standard.Input, Output: pricing.Standard.Output},
		)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: gemini, openai)", name)
	}

	zap.L().Info("vision oracle ready",
		zap.String("provider", provider.Name()),
		zap.Int("requests_per_minute", cfg.Oracle.RequestsPerMinute))
	return ai.NewThrottled(provider, cfg.Oracle.RequestsPerMinute), nil
}

// printUsage reports the oracle spend of a command run.
func printUsage(p ai.Provider) {
	usage := p.GetUsage()
	if usage.Calls == 0 {
		return
	}
	fmt.Printf("\nOracle usage: %d calls, %d input / %d output tokens, $%.4f\n",
		usage.Calls, usage.InputTokens, usage.OutputTokens, usage.TotalCost)
}
