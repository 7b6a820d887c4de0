// Package openai adapts the official OpenAI Go SDK to the model.ChatModel
// interface.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/scanflow-go/flow/model"
)

// DefaultModel is used when a request does not name a model.
const DefaultModel = "gpt-4o-mini"

// Client implements model.ChatModel using OpenAI's chat completions API.
// Safe for concurrent use; the underlying SDK client handles thread safety.
type Client struct {
	client       *openai.Client
	defaultModel string
}

// New creates an OpenAI chat client. defaultModel may be empty to use
// DefaultModel.
func New(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key cannot be empty")
	}
	if defaultModel == "" {
		defaultModel = DefaultModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &client, defaultModel: defaultModel}, nil
}

// Chat implements model.ChatModel.
func (c *Client) Chat(ctx context.Context, req model.Request) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelID),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, err
	}
	if len(completion.Choices) == 0 {
		return model.ChatOut{}, errors.New("openai: empty response")
	}

	return model.ChatOut{
		Text:      completion.Choices[0].Message.Content,
		TokensIn:  int(completion.Usage.PromptTokens),
		TokensOut: int(completion.Usage.CompletionTokens),
	}, nil
}
