package domain

import "time"

const (
	DefaultTone           = "Professional"
	DefaultTargetAudience = "General"
)

type Metadata struct {
	WordCount         int    `json:"wordCount"`
	CharacterCount    int    `json:"characterCount"`
	Tone              string `json:"tone"`
	TargetAudience    string `json:"targetAudience"`
	EstimatedDuration string `json:"estimatedDuration,omitempty"`
}

// ContentRecord is a persisted unit of generated content.
type ContentRecord struct {
	ID               int64     `json:"id"`
	OwnerID          int64     `json:"ownerId"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Platform         string    `json:"platform"`
	ContentType      string    `json:"contentType"`
	Brief            string    `json:"brief"`
	GeneratedContent string    `json:"generatedContent"`
	Images           []string  `json:"images"`
	Metadata         Metadata  `json:"metadata"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ContentPatch carries the fields of a partial update. Nil fields are left untouched.
type ContentPatch struct {
	Title            *string   `json:"title,omitempty"`
	Description      *string   `json:"description,omitempty"`
	Platform         *string   `json:"platform,omitempty"`
	ContentType      *string   `json:"contentType,omitempty"`
	Brief            *string   `json:"brief,omitempty"`
	GeneratedContent *string   `json:"generatedContent,omitempty"`
	Images           *[]string `json:"images,omitempty"`
	Metadata         *Metadata `json:"metadata,omitempty"`
}

// Apply merges the patch into rec and returns the result.
func (p ContentPatch) Apply(rec ContentRecord) ContentRecord {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.Platform != nil {
		rec.Platform = *p.Platform
	}
	if p.ContentType != nil {
		rec.ContentType = *p.ContentType
	}
	if p.Brief != nil {
		rec.Brief = *p.Brief
	}
	if p.GeneratedContent != nil {
		rec.GeneratedContent = *p.GeneratedContent
	}
	if p.Images != nil {
		rec.Images = append([]string{}, (*p.Images)...)
	}
	if p.Metadata != nil {
		rec.Metadata = *p.Metadata
	}
	return rec
}

type Template struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Platform    string `json:"platform"`
	ContentType string `json:"contentType"`
	Template    string `json:"template"`
	Description string `json:"description,omitempty"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContentStats aggregates an owner's records.
type ContentStats struct {
	TotalContent int            `json:"totalContent"`
	AIGenerated  int            `json:"aiGenerated"`
	Platforms    int            `json:"platforms"`
	ByPlatform   map[string]int `json:"byPlatform"`
}

// GeneratedContent is the normalized output of a generation provider.
type GeneratedContent struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
	Metadata Metadata `json:"metadata"`
}
