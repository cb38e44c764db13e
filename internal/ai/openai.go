package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultOpenAIModel = openai.ChatModelGPT4_1Mini

// OpenAIProvider talks to the OpenAI chat completions API or any server
// exposing the same API (llama.cpp, vLLM) through baseURL.
type OpenAIProvider struct {
	usageTracker
	client       *openai.Client
	model        string
	maxImageSize int
}

func NewOpenAIProvider(apiKey, baseURL, model string, maxImageSize int, pricing RequestPricing) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		usageTracker: usageTracker{pricing: pricing},
		client:       &client,
		model:        model,
		maxImageSize: maxImageSize,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.model
}

func (p *OpenAIProvider) VerifyFace(ctx context.Context, imageData []byte) (*FaceVerification, error) {
	var result *FaceVerification
	err := p.completeJSON(ctx, faceVerificationPrompt, imageData, func(content string) error {
		v, err := parseVerification(content)
		result = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *OpenAIProvider) CompareFace(ctx context.Context, imageData []byte, descriptor string) (*FaceComparison, error) {
	var result *FaceComparison
	err := p.completeJSON(ctx, buildComparisonPrompt(descriptor), imageData, func(content string) error {
		c, err := parseComparison(content)
		result = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *OpenAIProvider) DescribeFace(ctx context.Context, imageData []byte) (string, error) {
	messages, err := p.imageMessages(faceDescriptorPrompt, imageData)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: openai.Int(800),
	})
	if err != nil {
		return "", classifyError("OpenAI", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	p.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return cleanDescriptor(resp.Choices[0].Message.Content)
}

func (p *OpenAIProvider) imageMessages(prompt string, imageData []byte) ([]openai.ChatCompletionMessageParamUnion, error) {
	resizedData, err := PrepareFrame(imageData, p.maxImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resizedData)

	return []openai.ChatCompletionMessageParamUnion{
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(prompt),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "high",
						}),
					},
				},
			},
		},
	}, nil
}

func (p *OpenAIProvider) completeJSON(ctx context.Context, prompt string, imageData []byte, parse func(string) error) error {
	messages, err := p.imageMessages(prompt, imageData)
	if err != nil {
		return err
	}

	var lastError error
	var lastResponse string

	for range maxJSONAttempts {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    p.model,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(300),
		})
		if err != nil {
			return classifyError("OpenAI", err)
		}
		if len(resp.Choices) == 0 {
			return ErrEmptyResponse
		}

		p.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

		content := resp.Choices[0].Message.Content
		lastResponse = content

		if err := parse(content); err != nil {
			lastError = err
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(jsonRepairMessage(err)),
						},
					},
				},
			)
			continue
		}

		return nil
	}

	return fmt.Errorf("failed to parse JSON after %d attempts: %w (last response: %s)", maxJSONAttempts, lastError, lastResponse)
}
