// Package templates holds the seed prompt templates offered as generation guidance.
package templates

import (
	"fmt"

	"postcraft/pkg/domain"
)

// Defaults returns the seed templates. Placeholders use {name} syntax and are
// filled only where the generation request supplies a value.
func Defaults() []domain.Template {
	return []domain.Template{
		{
			Name:        "Instagram Product Launch",
			Platform:    "instagram",
			ContentType: "post",
			Template:    "🚀 Introducing {product}!\n\n{description}\n\n✨ Key features:\n{features}\n\n{call_to_action}\n\n{hashtags}",
			Description: "Announce a new product with an eye-catching caption",
		},
		{
			Name:        "Instagram Story Teaser",
			Platform:    "instagram",
			ContentType: "story",
			Template:    "Something big is coming... 👀\n\n{teaser}\n\nSwipe up to learn more about {topic}",
			Description: "Short teaser copy for a story frame",
		},
		{
			Name:        "LinkedIn Thought Leadership",
			Platform:    "linkedin",
			ContentType: "article",
			Template:    "{hook}\n\nHere's what I've learned about {topic}:\n\n1. {insight_1}\n2. {insight_2}\n3. {insight_3}\n\nWhat's your experience with {topic}? Share in the comments.",
			Description: "Professional post sharing lessons and inviting discussion",
		},
		{
			Name:        "Twitter Thread",
			Platform:    "twitter",
			ContentType: "thread",
			Template:    "🧵 {hook}\n\n1/ {point_1}\n\n2/ {point_2}\n\n3/ {point_3}\n\n{conclusion}",
			Description: "Multi-part thread that unpacks one idea",
		},
		{
			Name:        "YouTube Video Description",
			Platform:    "youtube",
			ContentType: "video",
			Template:    "In this video: {summary}\n\n⏱ Chapters:\n{chapters}\n\n🔗 Links:\n{links}\n\nSubscribe for more on {topic}!",
			Description: "Description block with chapters and links",
		},
		{
			Name:        "TikTok Hook Script",
			Platform:    "tiktok",
			ContentType: "video",
			Template:    "HOOK (0-3s): {hook}\nBODY: {body}\nCTA: {call_to_action}",
			Description: "Short-form video script built around a strong opener",
		},
		{
			Name:        "Facebook Community Update",
			Platform:    "facebook",
			ContentType: "post",
			Template:    "Hey everyone! 👋\n\n{update}\n\n{details}\n\nLet us know what you think below!",
			Description: "Friendly update for a page or group",
		},
	}
}

// Inserter is the store capability Seed needs.
type Inserter interface {
	CreateTemplate(domain.Template) (domain.Template, error)
}

// Seed inserts the default templates and returns them with assigned ids.
func Seed(store Inserter) ([]domain.Template, error) {
	defaults := Defaults()
	out := make([]domain.Template, 0, len(defaults))
	for _, tpl := range defaults {
		created, err := store.CreateTemplate(tpl)
		if err != nil {
			return nil, fmt.Errorf("seed template %q: %w", tpl.Name, err)
		}
		out = append(out, created)
	}
	return out, nil
}
