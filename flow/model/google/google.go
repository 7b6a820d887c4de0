// Package google adapts the Gemini SDK to the model.ChatModel interface.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/scanflow-go/flow/model"
)

// DefaultModel is used when a request does not name a model.
const DefaultModel = "gemini-1.5-flash"

// Client implements model.ChatModel using Google's Gemini API.
type Client struct {
	client       *genai.Client
	defaultModel string
}

// New creates a Gemini chat client. defaultModel may be empty to use
// DefaultModel. Close must be called when the client is no longer needed.
func New(ctx context.Context, apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("google: API key cannot be empty")
	}
	if defaultModel == "" {
		defaultModel = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}
	return &Client{client: client, defaultModel: defaultModel}, nil
}

// Close releases the underlying client's resources.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Chat implements model.ChatModel. System messages become the model's system
// instruction; the remaining conversation is flattened into a single prompt.
func (c *Client) Chat(ctx context.Context, req model.Request) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	gm := c.client.GenerativeModel(modelID)
	if req.Temperature > 0 {
		gm.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	var system, prompt []string
	for _, m := range req.Messages {
		if m.Role == model.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		prompt = append(prompt, m.Content)
	}
	if len(system) > 0 {
		gm.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n"))},
		}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(strings.Join(prompt, "\n\n")))
	if err != nil {
		return model.ChatOut{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.ChatOut{}, errors.New("google: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	out := model.ChatOut{Text: sb.String()}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
