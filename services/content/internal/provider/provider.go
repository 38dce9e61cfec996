// Package provider turns content requests into LLM prompts and LLM replies into
// normalized results.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"postcraft/internal/metrics"
	"postcraft/pkg/ai"
	"postcraft/pkg/domain"
)

// Operation names, used in error messages and metric labels.
const (
	OpGenerate = "generate content"
	OpAnalyze  = "analyze image"
	OpOptimize = "optimize content"
)

// Error is returned for every upstream failure: transport, timeout, upstream
// status, or a reply that does not parse into the expected shape.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Request describes one generation.
type Request struct {
	Platform    string
	ContentType string
	Brief       string
	Images      []ai.Image
	// Template is an optional structural guide with {placeholder} fields.
	Template string
}

// Adapter calls the configured generator. It never retries.
type Adapter struct {
	gen    ai.Generator
	schema *payloadSchema
}

// New wraps gen.
func New(gen ai.Generator) (*Adapter, error) {
	if gen == nil {
		return nil, errors.New("generator required")
	}
	schema, err := compilePayloadSchema()
	if err != nil {
		return nil, err
	}
	return &Adapter{gen: gen, schema: schema}, nil
}

// Generate produces title, body, hashtags and metadata for req.
// Word and character counts are always derived from the returned body.
func (a *Adapter) Generate(ctx context.Context, req Request) (domain.GeneratedContent, error) {
	raw, err := a.call(ctx, OpGenerate, ai.Prompt{
		System: generateSystemPrompt,
		User:   buildGeneratePrompt(req),
		Images: req.Images,
		JSON:   true,
	})
	if err != nil {
		return domain.GeneratedContent{}, err
	}
	out, err := a.schema.parse(raw)
	if err != nil {
		return domain.GeneratedContent{}, &Error{Op: OpGenerate, Err: err}
	}
	return out, nil
}

// AnalyzeImage returns a free-text description of img.
func (a *Adapter) AnalyzeImage(ctx context.Context, img ai.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", &Error{Op: OpAnalyze, Err: errors.New("image is empty")}
	}
	return a.call(ctx, OpAnalyze, ai.Prompt{
		System: analyzeSystemPrompt,
		User:   analyzeUserPrompt,
		Images: []ai.Image{img},
	})
}

// Optimize rewrites content written for fromPlatform so it suits toPlatform.
func (a *Adapter) Optimize(ctx context.Context, content, fromPlatform, toPlatform string) (string, error) {
	text, err := a.call(ctx, OpOptimize, ai.Prompt{
		System: optimizeSystemPrompt,
		User:   buildOptimizePrompt(content, fromPlatform, toPlatform),
	})
	if err != nil {
		return "", err
	}
	return stripCodeFence(text), nil
}

func (a *Adapter) call(ctx context.Context, op string, prompt ai.Prompt) (string, error) {
	start := time.Now()
	text, err := a.gen.Generate(ctx, prompt)
	metrics.ProviderDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", &Error{Op: op, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Error{Op: op, Err: errors.New("empty response")}
	}
	return text, nil
}
