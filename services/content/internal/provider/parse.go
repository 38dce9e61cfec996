package provider

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
	"postcraft/pkg/domain"
)

var payloadSchemaDoc = map[string]any{
	"type":     "object",
	"required": []any{"title", "content"},
	"properties": map[string]any{
		"title":   map[string]any{"type": "string"},
		"content": map[string]any{"type": "string", "minLength": 1},
		"hashtags": map[string]any{
			"type":  []any{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
		"metadata": map[string]any{
			"type": []any{"object", "null"},
			"properties": map[string]any{
				"tone":              map[string]any{"type": "string"},
				"targetAudience":    map[string]any{"type": "string"},
				"estimatedDuration": map[string]any{"type": "string"},
			},
		},
	},
}

type payloadSchema struct {
	schema *gojsonschema.Schema
}

func compilePayloadSchema() (*payloadSchema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(payloadSchemaDoc))
	if err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}
	return &payloadSchema{schema: schema}, nil
}

type payload struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
	Metadata *struct {
		Tone              string `json:"tone"`
		TargetAudience    string `json:"targetAudience"`
		EstimatedDuration string `json:"estimatedDuration"`
	} `json:"metadata"`
}

// parse validates raw model output and normalizes it.
func (s *payloadSchema) parse(raw string) (domain.GeneratedContent, error) {
	body := extractJSONObject(stripCodeFence(raw))
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("response is not valid JSON: %w", err)
	}
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("validate response: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return domain.GeneratedContent{}, fmt.Errorf("unexpected response shape: %s", strings.Join(errs, "; "))
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("decode response: %w", err)
	}
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return domain.GeneratedContent{}, fmt.Errorf("response content is blank")
	}
	var md domain.Metadata
	if p.Metadata != nil {
		md.Tone = p.Metadata.Tone
		md.TargetAudience = p.Metadata.TargetAudience
		md.EstimatedDuration = p.Metadata.EstimatedDuration
	}
	return domain.GeneratedContent{
		Title:    titleOrFallback(p.Title, content),
		Content:  content,
		Hashtags: normalizeHashtags(p.Hashtags),
		Metadata: domain.NormalizeMetadata(content, md),
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONObject trims chatter around the outermost object, if any.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

const maxFallbackTitleRunes = 60

func titleOrFallback(title, content string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) > maxFallbackTitleRunes {
		line = string([]rune(line)[:maxFallbackTitleRunes])
	}
	return line
}

// normalizeHashtags trims, prefixes with '#' and drops case-insensitive duplicates.
func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimLeft(strings.TrimSpace(tag), "#")
		tag = strings.Join(strings.Fields(tag), "")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, "#"+tag)
	}
	return out
}
