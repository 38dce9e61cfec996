package provider

import (
	"fmt"
	"regexp"
	"strings"
)

const generateSystemPrompt = `You are an expert social media copywriter.
Reply with a single JSON object and nothing else, shaped exactly like:
{"title": string, "content": string, "hashtags": [string], "metadata": {"tone": string, "targetAudience": string, "estimatedDuration": string}}
"content" is the complete post text ready to publish. Put hashtags only in "hashtags", without repeating them in "content".
Include "estimatedDuration" only for video or audio formats.`

const analyzeSystemPrompt = "You are a visual content strategist who helps marketers understand images."

const analyzeUserPrompt = `Describe this image for a social media marketer: main subjects, setting, mood, colors and any visible text.
Then suggest two or three content angles the image would support.`

const optimizeSystemPrompt = "You adapt social media content between platforms. Reply with the rewritten content only."

var platformGuidance = map[string]string{
	"instagram": "Lead with a strong first line, keep paragraphs short and use emojis where they help.",
	"twitter":   "Keep each post under 280 characters and make the first sentence count.",
	"x":         "Keep each post under 280 characters and make the first sentence count.",
	"linkedin":  "Use a professional voice, open with a hook and end with a question that invites discussion.",
	"facebook":  "Write conversationally and encourage comments and shares.",
	"tiktok":    "Write punchy, spoken-style copy with a hook in the first three seconds.",
	"youtube":   "Front-load keywords and summarize what viewers will get from the video.",
}

func guidanceFor(platform string) string {
	return platformGuidance[strings.ToLower(strings.TrimSpace(platform))]
}

func buildGeneratePrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %s content for %s.\n", req.ContentType, req.Platform)
	fmt.Fprintf(&b, "Brief: %s\n", req.Brief)
	if g := guidanceFor(req.Platform); g != "" {
		fmt.Fprintf(&b, "Platform conventions: %s\n", g)
	}
	if n := len(req.Images); n > 0 {
		fmt.Fprintf(&b, "Use the %d attached image(s) as visual context and refer to what they show.\n", n)
	}
	if tpl := strings.TrimSpace(req.Template); tpl != "" {
		b.WriteString("\nUse this template as a structural guide. Fill the remaining {placeholders} from the brief, or drop them when the brief says nothing relevant:\n")
		b.WriteString(renderTemplate(tpl, req))
		b.WriteString("\n")
	}
	return b.String()
}

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// renderTemplate substitutes the placeholders a request can answer.
// Unknown placeholders stay verbatim for the model to resolve.
func renderTemplate(tpl string, req Request) string {
	values := map[string]string{
		"platform":     req.Platform,
		"contentType":  req.ContentType,
		"content_type": req.ContentType,
		"brief":        req.Brief,
		"topic":        req.Brief,
	}
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := values[name]; ok && strings.TrimSpace(v) != "" {
			return v
		}
		return m
	})
}

func buildOptimizePrompt(content, fromPlatform, toPlatform string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the following %s content for %s.\n", fromPlatform, toPlatform)
	if g := guidanceFor(toPlatform); g != "" {
		fmt.Fprintf(&b, "Target conventions: %s\n", g)
	}
	b.WriteString("Keep the core message, adjust length, tone and formatting.\n\nContent:\n")
	b.WriteString(content)
	return b.String()
}
