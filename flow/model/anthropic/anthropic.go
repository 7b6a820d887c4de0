// Package anthropic adapts the official Anthropic Go SDK to the
// model.ChatModel interface.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/scanflow-go/flow/model"
)

// DefaultModel is used when a request does not name a model.
const DefaultModel = "claude-3-5-sonnet-20241022"

// DefaultMaxTokens applies when a request leaves MaxTokens at zero; the
// Messages API requires an explicit limit.
const DefaultMaxTokens = 1024

// Client implements model.ChatModel using Anthropic's Messages API.
// Safe for concurrent use after creation.
type Client struct {
	client       *anthropic.Client
	defaultModel string
}

// New creates an Anthropic chat client. defaultModel may be empty to use
// DefaultModel.
func New(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: API key cannot be empty")
	}
	if defaultModel == "" {
		defaultModel = DefaultModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &client, defaultModel: defaultModel}, nil
}

// Chat implements model.ChatModel. System messages are lifted into the
// Messages API's dedicated system field.
func (c *Client) Chat(ctx context.Context, req model.Request) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var system []string
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case model.RoleSystem:
			system = append(system, m.Content)
		case model.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n")}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, err
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return model.ChatOut{
		Text:      sb.String(),
		TokensIn:  int(message.Usage.InputTokens),
		TokensOut: int(message.Usage.OutputTokens),
	}, nil
}
