package oracle

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic generates plans with Anthropic Claude
type Anthropic struct {
	client anthropic.Client
	cfg    Config
}

// NewAnthropic creates an Anthropic oracle
func NewAnthropic(cfg Config) *Anthropic {
	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
	}
}

// Name returns the oracle name
func (a *Anthropic) Name() string {
	return "anthropic"
}

// GeneratePlan asks Claude for the next plan
func (a *Anthropic) GeneratePlan(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	system, user := BuildPrompt(req)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.cfg.Model),
		MaxTokens: int64(a.cfg.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if a.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(a.cfg.Temperature)
	}

	response, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(b.Text)
		}
	}
	if strings.TrimSpace(content.String()) == "" {
		return "", ErrNoResponse
	}
	return content.String(), nil
}
