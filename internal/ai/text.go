package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// TextRequest is one text completion call.
type TextRequest struct {
	// System is the system prompt, optional.
	System string
	// Prompt is the user message.
	Prompt string
	// MaxTokens caps the response length. Zero means the client default.
	MaxTokens int64
}

// TextResponse is the model's answer to a TextRequest.
type TextResponse struct {
	// Text is the concatenated text content of the response.
	Text string
	// InputTokens and OutputTokens report usage for this call.
	InputTokens  int64
	OutputTokens int64
}

// TextClient is the text-generation boundary used by the outline and
// content generators and the review gate. Implementations are stateless
// per call; retries belong to the orchestrator, not the client.
type TextClient interface {
	Complete(ctx context.Context, req TextRequest) (*TextResponse, error)
}

// AnthropicClient implements TextClient on the Anthropic API, with an
// optional AWS Bedrock backend.
type AnthropicClient struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
	tracker   *TokenTracker
}

// AnthropicConfig contains configuration for creating an AnthropicClient.
type AnthropicConfig struct {
	// Model is the Claude model to use. Empty selects a default.
	Model string
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// MaxTokens is the default response cap. Zero means 4096.
	MaxTokens int64
	// UseAWSBedrock routes calls through AWS Bedrock instead of the API.
	UseAWSBedrock bool
	// AWSRegion is the Bedrock region, e.g. "us-west-2".
	AWSRegion string
	// AWSProfile is the optional AWS profile name.
	AWSProfile string
}

// NewAnthropicClient creates a text client backed by the Anthropic SDK.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &AnthropicClient{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		tracker:   NewTokenTracker(),
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() anthropic.Model {
	return c.model
}

// Tracker returns the token tracker for this client.
func (c *AnthropicClient) Tracker() *TokenTracker {
	return c.tracker
}

// Complete sends one message to the model and returns its text response.
func (c *AnthropicClient) Complete(ctx context.Context, req TextRequest) (*TextResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, &ProviderError{Op: "text.complete", Err: err}
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var sb strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, &GenerationError{Op: "text.complete", Reason: "empty model output"}
	}

	return &TextResponse{
		Text:         text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
