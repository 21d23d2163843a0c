// Package anthropic provides a patient-information extractor backed by the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/extract"
)

// Options configure the Anthropic extractor.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Extractor implements core.PatientExtractor on top of the Anthropic API.
type Extractor struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Extractor using the official client.
func New(optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.0,
		MaxTokens:   1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Extractor{client: &client, opts: opts}
}

// NewFromClient creates an Extractor from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.0,
		MaxTokens:   1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Extractor{client: client, opts: opts}
}

// ExtractPatientInfo implements core.PatientExtractor.
func (e *Extractor) ExtractPatientInfo(ctx context.Context, rawText string) (*core.PatientInfo, error) {
	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       e.opts.Model,
		MaxTokens:   e.opts.MaxTokens,
		Temperature: anthropic.Float(e.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(extract.Prompt + rawText)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, nil
	}

	return extract.DecodePatientInfo(sb.String())
}
