package codegen

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the subset of the go-openai client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient generates code with any OpenAI compatible vision endpoint.
type OpenAIClient struct {
	api       ChatCompleter
	model     string
	maxTokens int
	log       zerolog.Logger
}

// NewOpenAIClient builds a client for baseURL. An empty baseURL targets api.openai.com.
func NewOpenAIClient(baseURL, apiKey, model string, maxTokens int, log zerolog.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIClientWithAPI(openai.NewClientWithConfig(cfg), model, maxTokens, log)
}

// NewOpenAIClientWithAPI builds a client around an existing completer.
func NewOpenAIClientWithAPI(api ChatCompleter, model string, maxTokens int, log zerolog.Logger) *OpenAIClient {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAIClient{
		api:       api,
		model:     model,
		maxTokens: maxTokens,
		log:       log.With().Str("component", "codegen").Str("provider", "openai").Logger(),
	}
}

// Generate implements Client.
func (c *OpenAIClient) Generate(ctx context.Context, in Input) (*Result, error) {
	img, mediaType, err := PrepareImage(in.Image)
	if err != nil {
		return nil, err
	}
	dataURL := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(img)

	req := openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					},
				},
				{Type: openai.ChatMessagePartTypeText, Text: BuildPrompt(in.Framework, in.Options)},
			},
		}},
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("chat completion failed")
		return nil, upstreamError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, generationErrorf("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	c.log.Debug().
		Str("finish_reason", string(choice.FinishReason)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("model responded")

	return ParseResponse(choice.Message.Content)
}
