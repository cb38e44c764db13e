package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	usageTracker
	client       *genai.Client
	model        string
	maxImageSize int
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, maxImageSize int, pricing RequestPricing) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiProvider{
		usageTracker: usageTracker{pricing: pricing},
		client:       client,
		model:        model,
		maxImageSize: maxImageSize,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return p.model
}

var verificationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"faceDetected": {Type: genai.TypeBoolean},
		"isFemale":     {Type: genai.TypeBoolean},
		"confidence":   {Type: genai.TypeNumber},
	},
	Required: []string{"faceDetected", "isFemale", "confidence"},
}

var comparisonSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"match":      {Type: genai.TypeBoolean},
		"confidence": {Type: genai.TypeNumber},
		"reasoning":  {Type: genai.TypeString},
	},
	Required: []string{"match", "confidence"},
}

func (p *GeminiProvider) VerifyFace(ctx context.Context, imageData []byte) (*FaceVerification, error) {
	var result *FaceVerification
	err := p.generateJSON(ctx, faceVerificationPrompt, imageData, verificationSchema, func(content string) error {
		v, err := parseVerification(content)
		result = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *GeminiProvider) CompareFace(ctx context.Context, imageData []byte, descriptor string) (*FaceComparison, error) {
	var result *FaceComparison
	err := p.generateJSON(ctx, buildComparisonPrompt(descriptor), imageData, comparisonSchema, func(content string) error {
		c, err := parseComparison(content)
		result = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *GeminiProvider) DescribeFace(ctx context.Context, imageData []byte) (string, error) {
	resizedData, err := PrepareFrame(imageData, p.maxImageSize)
	if err != nil {
		return "", fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{userContent(faceDescriptorPrompt, resizedData)}
	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", classifyError("gemini", err)
	}
	if result.UsageMetadata != nil {
		p.trackUsage(int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount))
	}

	return cleanDescriptor(result.Text())
}

func userContent(prompt string, imageData []byte) *genai.Content {
	return &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{Data: imageData, MIMEType: "image/jpeg"}},
		},
	}
}

// generateJSON asks the model for a JSON answer and feeds parse errors back
// to it until parse succeeds or maxJSONAttempts is reached.
func (p *GeminiProvider) generateJSON(ctx context.Context, prompt string, imageData []byte, schema *genai.Schema, parse func(string) error) error {
	resizedData, err := PrepareFrame(imageData, p.maxImageSize)
	if err != nil {
		return fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{userContent(prompt, resizedData)}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	var lastError error
	var lastResponse string

	for range maxJSONAttempts {
		result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if err != nil {
			return classifyError("gemini", err)
		}

		if result.UsageMetadata != nil {
			p.trackUsage(int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount))
		}

		content := result.Text()
		if content == "" {
			return ErrEmptyResponse
		}
		lastResponse = content

		if err := parse(content); err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: jsonRepairMessage(err)}},
				},
			)
			continue
		}

		return nil
	}

	return fmt.Errorf("failed to parse JSON after %d attempts: %w (last response: %s)", maxJSONAttempts, lastError, lastResponse)
}
