package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Image is an encoded image attached to a prompt as visual context.
type Image struct {
	MIMEType string
	Data     []byte
}

func (img Image) base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

func (img Image) mimeType() string {
	if strings.TrimSpace(img.MIMEType) == "" {
		return "image/png"
	}
	return img.MIMEType
}

// Prompt is a single generation request.
// JSON asks the provider to constrain its output to a JSON object when supported.
type Prompt struct {
	System string
	User   string
	Images []Image
	JSON   bool
}

// Generator produces text from a prompt.
// All LLM providers (Gemini, Ollama, OpenAI-compatible) implement this interface.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// GeneratorConfig selects and configures a provider.
type GeneratorConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewGenerator builds the Generator named by cfg.Provider.
func NewGenerator(cfg GeneratorConfig) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "gemini"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("generation model required")
	}
	switch provider {
	case "gemini":
		client, err := NewGeminiClient(cfg.APIKey, WithGeminiBaseURL(cfg.BaseURL), WithGeminiTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client, cfg.Model), nil
	case "ollama":
		client := NewOllamaClient(cfg.BaseURL)
		if cfg.Timeout > 0 {
			client.httpClient.Timeout = cfg.Timeout
		}
		return NewOllamaGenerator(client, cfg.Model), nil
	case "openai", "openai-compat":
		gen := NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model)
		if cfg.Timeout > 0 {
			gen.httpClient.Timeout = cfg.Timeout
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}
