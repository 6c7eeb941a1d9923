// Package gemini implements the provider interface on the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/anthropics/relay/internal/provider"
	"github.com/anthropics/relay/internal/session"
)

// Provider implements provider.Provider using the Google Gemini SDK.
type Provider struct {
	client *genai.Client
	model  string
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Gemini provider for the given model.
func New(ctx context.Context, apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{client: client, model: model}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// List returns the available Gemini model names.
func (p *Provider) List(ctx context.Context) ([]string, error) {
	iter := p.client.ListModels(ctx)
	var names []string
	for {
		info, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &provider.Error{Provider: p.Name(), Err: err}
		}
		names = append(names, info.Name)
	}
	return names, nil
}

// Complete sends the request as a chat turn with the context window as chat
// history and returns the concatenated text of the first candidate.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	gm := p.client.GenerativeModel(p.model)
	if req.SystemPrompt != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}
	if req.Params.Temperature != nil {
		gm.SetTemperature(*req.Params.Temperature)
	}
	if req.Params.MaxOutputTokens != nil {
		gm.SetMaxOutputTokens(*req.Params.MaxOutputTokens)
	}

	chat := gm.StartChat()
	chat.History = historyContents(req.Context)

	resp, err := chat.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", &provider.Error{Provider: p.Name(), Err: err}
	}

	text := candidateText(resp)
	if text == "" {
		return "", &provider.Error{Provider: p.Name(), Err: provider.ErrEmptyReply}
	}
	return text, nil
}

// historyContents converts the context window to Gemini chat history.
// System messages ride in the system instruction, not the history, so they
// are skipped here.
func historyContents(msgs []session.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		switch m.Role {
		case session.RoleAssistant:
			role = "model"
		case session.RoleSystem:
			continue
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return out
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
