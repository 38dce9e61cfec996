package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGeminiGenerateSendsInlineImagesAndJSONMode(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-goog-api-key") != "k" || r.URL.Query().Get("key") != "" {
			t.Errorf("api key must travel in the x-goog-api-key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": `{"title":"t"`}, {"text": `}`}}}},
			},
		})
	}))
	defer srv.Close()

	gen, err := NewGenerator(GeneratorConfig{Provider: "gemini", BaseURL: srv.URL, APIKey: "k", Model: "models/gemini-test"})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	text, err := gen.Generate(context.Background(), Prompt{
		System: "sys",
		User:   "write",
		Images: []Image{{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != `{"title":"t"}` {
		t.Fatalf("text = %q", text)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "sys" {
		t.Fatalf("system instruction not sent: %+v", got.SystemInstruction)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("json mode not requested")
	}
	parts := got.Contents[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/jpeg" || parts[1].InlineData.Data != "/9g=" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
}

func TestGeminiGenerateSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "quota exceeded"}})
	}))
	defer srv.Close()

	client, err := NewGeminiClient("k", WithGeminiBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = NewGeminiGenerator(client, "m").Generate(context.Background(), Prompt{User: "x"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(" "); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}

func TestOllamaGenerateAttachesImages(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"role": "assistant", "content": "a cat"}})
	}))
	defer srv.Close()

	gen, err := NewGenerator(GeneratorConfig{Provider: "ollama", BaseURL: srv.URL, Model: "llava", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	text, err := gen.Generate(context.Background(), Prompt{User: "describe", Images: []Image{{Data: []byte("img")}}, JSON: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "a cat" {
		t.Fatalf("text = %q", text)
	}
	if got.Format != "json" || got.Stream {
		t.Fatalf("unexpected request flags: %+v", got)
	}
	if len(got.Messages) != 1 || len(got.Messages[0].Images) != 1 || got.Messages[0].Images[0] != "aW1n" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestOpenAICompatGenerateUsesContentParts(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": " done "}}},
		})
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL+"/v1/", "sk", "gpt-test")
	text, err := gen.Generate(context.Background(), Prompt{
		System: "sys",
		User:   "hi",
		Images: []Image{{MIMEType: "image/webp", Data: []byte("x")}},
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "done" {
		t.Fatalf("text = %q", text)
	}
	messages := raw["messages"].([]any)
	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if img != "data:image/webp;base64,eA==" {
		t.Fatalf("image url = %q", img)
	}
	if raw["response_format"].(map[string]any)["type"] != "json_object" {
		t.Fatalf("json mode not requested: %v", raw["response_format"])
	}
}

func TestNewGeneratorRejectsUnknownProvider(t *testing.T) {
	if _, err := NewGenerator(GeneratorConfig{Provider: "carrier-pigeon", Model: "m"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if _, err := NewGenerator(GeneratorConfig{Provider: "ollama"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
