package domain

import (
	"strings"
	"unicode/utf8"
)

// WordCount returns the number of whitespace-delimited tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// CharacterCount returns the number of characters (runes) in s.
func CharacterCount(s string) int {
	return utf8.RuneCountInString(s)
}

// NormalizeMetadata fills defaults and recomputes the counts from content.
// Counts are never taken from the caller.
func NormalizeMetadata(content string, md Metadata) Metadata {
	md.Tone = strings.TrimSpace(md.Tone)
	if md.Tone == "" {
		md.Tone = DefaultTone
	}
	md.TargetAudience = strings.TrimSpace(md.TargetAudience)
	if md.TargetAudience == "" {
		md.TargetAudience = DefaultTargetAudience
	}
	md.EstimatedDuration = strings.TrimSpace(md.EstimatedDuration)
	md.WordCount = WordCount(content)
	md.CharacterCount = CharacterCount(content)
	return md
}
