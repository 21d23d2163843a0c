// Package openai provides a patient-information extractor backed by the
// OpenAI Chat Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/extract"
)

// Options configure the OpenAI extractor.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Extractor implements core.PatientExtractor on top of the OpenAI API.
type Extractor struct {
	client *openai.Client
	opts   Options
}

// New creates an Extractor using the official client with environment
// credentials.
func New(optFns ...func(o *Options)) *Extractor {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an Extractor from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.0,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Extractor{client: client, opts: opts}
}

// ExtractPatientInfo implements core.PatientExtractor.
func (e *Extractor) ExtractPatientInfo(ctx context.Context, rawText string) (*core.PatientInfo, error) {
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(extract.Prompt + rawText),
		},
		Temperature:         openai.Float(e.opts.Temperature),
		MaxCompletionTokens: openai.Int(e.opts.MaxCompletionTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	return extract.DecodePatientInfo(resp.Choices[0].Message.Content)
}
