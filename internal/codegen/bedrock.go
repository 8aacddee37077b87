package codegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rs/zerolog"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	// DefaultMaxTokens caps the model reply when no limit is configured.
	DefaultMaxTokens = 4000
)

// BedrockInvoker is the subset of the Bedrock runtime client used here.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient generates code with an Anthropic model hosted on AWS Bedrock.
type BedrockClient struct {
	api       BedrockInvoker
	modelID   string
	maxTokens int
	log       zerolog.Logger
}

// NewBedrockClient loads AWS credentials from the default chain for region.
func NewBedrockClient(ctx context.Context, region, modelID string, maxTokens int, log zerolog.Logger) (*BedrockClient, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws config load: %w", err)
	}
	return NewBedrockClientWithAPI(bedrockruntime.NewFromConfig(cfg), modelID, maxTokens, log), nil
}

// NewBedrockClientWithAPI builds a client around an existing invoker.
func NewBedrockClientWithAPI(api BedrockInvoker, modelID string, maxTokens int, log zerolog.Logger) *BedrockClient {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &BedrockClient{
		api:       api,
		modelID:   modelID,
		maxTokens: maxTokens,
		log:       log.With().Str("component", "codegen").Str("provider", "bedrock").Logger(),
	}
}

type bedrockImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type bedrockContent struct {
	Type   string              `json:"type"`
	Text   string              `json:"text,omitempty"`
	Source *bedrockImageSource `json:"source,omitempty"`
}

type bedrockMessage struct {
	Role    string           `json:"role"`
	Content []bedrockContent `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate implements Client.
func (c *BedrockClient) Generate(ctx context.Context, in Input) (*Result, error) {
	img, mediaType, err := PrepareImage(in.Image)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Messages: []bedrockMessage{{
			Role: "user",
			Content: []bedrockContent{
				{
					Type: "image",
					Source: &bedrockImageSource{
						Type:      "base64",
						MediaType: mediaType,
						Data:      base64.StdEncoding.EncodeToString(img),
					},
				},
				{Type: "text", Text: BuildPrompt(in.Framework, in.Options)},
			},
		}},
	})
	if err != nil {
		return nil, generationErrorf("encode request: %v", err)
	}

	start := time.Now()
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		c.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("invoke model failed")
		return nil, upstreamError("bedrock invoke", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, generationErrorf("decode bedrock response: %v", err)
	}

	var text strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			text.WriteString(part.Text)
		}
	}

	c.log.Debug().
		Str("stop_reason", resp.StopReason).
		Int("chars", text.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("model responded")

	return ParseResponse(text.String())
}
