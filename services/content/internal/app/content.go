package app

import (
	"context"
	"strings"

	"postcraft/internal/util"
	"postcraft/pkg/ai"
	"postcraft/pkg/domain"
)

const invalidContentMessage = "Invalid content data"

// ContentInput is the insert schema for manually created records.
// Word and character counts are derived from GeneratedContent.
type ContentInput struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Platform         string          `json:"platform"`
	ContentType      string          `json:"contentType"`
	Brief            string          `json:"brief"`
	GeneratedContent string          `json:"generatedContent"`
	Images           []string        `json:"images"`
	Metadata         domain.Metadata `json:"metadata"`
}

// ListContent returns the owner's records, most recent first.
func (a *App) ListContent(ctx context.Context, ownerID int64) ([]domain.ContentRecord, error) {
	items, err := a.store.ListContentByOwner(ownerID)
	if err != nil {
		return nil, persistErr("list content", err)
	}
	return items, nil
}

// GetContent returns one of the owner's records.
func (a *App) GetContent(ctx context.Context, ownerID, id int64) (domain.ContentRecord, error) {
	rec, ok, err := a.store.GetContent(id)
	if err != nil {
		return domain.ContentRecord{}, persistErr("get content", err)
	}
	if !ok || rec.OwnerID != ownerID {
		return domain.ContentRecord{}, ErrNotFound
	}
	return rec, nil
}

// CreateContent stores a record supplied by the client.
func (a *App) CreateContent(ctx context.Context, ownerID int64, in ContentInput) (domain.ContentRecord, error) {
	rec := domain.ContentRecord{
		OwnerID:          ownerID,
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		Platform:         strings.TrimSpace(in.Platform),
		ContentType:      strings.TrimSpace(in.ContentType),
		Brief:            strings.TrimSpace(in.Brief),
		GeneratedContent: strings.TrimSpace(in.GeneratedContent),
		Images:           in.Images,
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", rec.Title},
		{"platform", rec.Platform},
		{"contentType", rec.ContentType},
		{"generatedContent", rec.GeneratedContent},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 || ownerID <= 0 {
		return domain.ContentRecord{}, &ValidationError{Message: invalidContentMessage, Fields: missing}
	}
	rec.Metadata = domain.NormalizeMetadata(rec.GeneratedContent, in.Metadata)

	created, err := a.store.CreateContent(rec)
	if err != nil {
		return domain.ContentRecord{}, persistErr("save content", err)
	}
	util.LoggerFromContext(ctx).Info("content created", "content_id", created.ID, "platform", created.Platform)
	return created, nil
}

// UpdateContent merges patch into the owner's record. When the body or the
// metadata changes, the counts are derived again from the resulting body.
func (a *App) UpdateContent(ctx context.Context, ownerID, id int64, patch domain.ContentPatch) (domain.ContentRecord, error) {
	current, err := a.GetContent(ctx, ownerID, id)
	if err != nil {
		return domain.ContentRecord{}, err
	}
	var invalid []string
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"title", patch.Title},
		{"platform", patch.Platform},
		{"contentType", patch.ContentType},
		{"generatedContent", patch.GeneratedContent},
	} {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			invalid = append(invalid, f.name)
		}
	}
	if len(invalid) > 0 {
		return domain.ContentRecord{}, &ValidationError{Message: invalidContentMessage, Fields: invalid}
	}
	if patch.GeneratedContent != nil || patch.Metadata != nil {
		merged := patch.Apply(current)
		md := domain.NormalizeMetadata(merged.GeneratedContent, merged.Metadata)
		patch.Metadata = &md
	}

	updated, ok, err := a.store.UpdateContent(id, patch)
	if err != nil {
		return domain.ContentRecord{}, persistErr("update content", err)
	}
	if !ok {
		return domain.ContentRecord{}, ErrNotFound
	}
	return updated, nil
}

// DeleteContent removes one of the owner's records.
func (a *App) DeleteContent(ctx context.Context, ownerID, id int64) error {
	if _, err := a.GetContent(ctx, ownerID, id); err != nil {
		return err
	}
	removed, err := a.store.DeleteContent(id)
	if err != nil {
		return persistErr("delete content", err)
	}
	if !removed {
		return ErrNotFound
	}
	util.LoggerFromContext(ctx).Info("content deleted", "content_id", id)
	return nil
}

// Stats aggregates the owner's records.
func (a *App) Stats(ctx context.Context, ownerID int64) (domain.ContentStats, error) {
	stats, err := a.store.ContentStats(ownerID)
	if err != nil {
		return domain.ContentStats{}, persistErr("content stats", err)
	}
	return stats, nil
}

// ListTemplates returns every template, or those whose platform matches exactly.
func (a *App) ListTemplates(ctx context.Context, platform string) ([]domain.Template, error) {
	var (
		items []domain.Template
		err   error
	)
	if platform = strings.TrimSpace(platform); platform != "" {
		items, err = a.store.ListTemplatesByPlatform(platform)
	} else {
		items, err = a.store.ListTemplates()
	}
	if err != nil {
		return nil, persistErr("list templates", err)
	}
	return items, nil
}

// AnalyzeImage describes an uploaded image.
func (a *App) AnalyzeImage(ctx context.Context, img ai.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", &ValidationError{Message: "Image file required"}
	}
	analysis, err := a.provider.AnalyzeImage(ctx, img)
	if err != nil {
		util.LoggerFromContext(ctx).Error("image analysis failed", "err", err)
		return "", err
	}
	return analysis, nil
}

// OptimizeRequest asks for content to be rewritten for another platform.
type OptimizeRequest struct {
	Content      string `json:"content"`
	FromPlatform string `json:"fromPlatform"`
	ToPlatform   string `json:"toPlatform"`
}

// OptimizeContent rewrites content for the destination platform.
func (a *App) OptimizeContent(ctx context.Context, req OptimizeRequest) (string, error) {
	content := strings.TrimSpace(req.Content)
	from := strings.TrimSpace(req.FromPlatform)
	to := strings.TrimSpace(req.ToPlatform)
	var missing []string
	if content == "" {
		missing = append(missing, "content")
	}
	if from == "" {
		missing = append(missing, "fromPlatform")
	}
	if to == "" {
		missing = append(missing, "toPlatform")
	}
	if len(missing) > 0 {
		return "", &ValidationError{Message: "Missing required fields", Fields: missing}
	}
	out, err := a.provider.Optimize(ctx, content, from, to)
	if err != nil {
		util.LoggerFromContext(ctx).Error("optimization failed", "from", from, "to", to, "err", err)
		return "", err
	}
	return out, nil
}
