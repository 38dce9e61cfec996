package app

import (
	"context"
	"errors"
	"strings"

	"postcraft/internal/metrics"
	"postcraft/internal/util"
	"postcraft/pkg/ai"
	"postcraft/pkg/domain"
	"postcraft/services/content/internal/provider"
)

// GenerateRequest is the input of one pipeline run.
type GenerateRequest struct {
	Platform    string
	ContentType string
	Brief       string
	// Template is raw template text; TemplateID selects a stored one instead.
	Template   string
	TemplateID int64
	// Images are assumed already checked for media type and size.
	Images []ai.Image
}

// GenerateResult is the persisted id plus the generated fields.
type GenerateResult struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Hashtags []string        `json:"hashtags"`
	Metadata domain.Metadata `json:"metadata"`
}

// Generate validates req, calls the provider once and persists the result.
// Nothing is stored when any step fails. Identical requests produce distinct records.
func (a *App) Generate(ctx context.Context, ownerID int64, req GenerateRequest) (GenerateResult, error) {
	logger := util.LoggerFromContext(ctx).With("owner_id", ownerID)

	logger.Debug("generation", "stage", "validating")
	preq, err := a.validateGenerate(ownerID, req)
	if err != nil {
		metrics.GenerationRequests.WithLabelValues(outcomeFor(err)).Inc()
		logger.Info("generation rejected", "stage", "validating", "err", err)
		return GenerateResult{}, err
	}

	logger.Debug("generation", "stage", "invoking", "platform", preq.Platform, "images", len(preq.Images))
	generated, err := a.provider.Generate(ctx, preq)
	if err != nil {
		metrics.GenerationRequests.WithLabelValues(metrics.OutcomeProviderError).Inc()
		logger.Error("generation failed", "stage", "invoking", "err", err)
		return GenerateResult{}, err
	}

	logger.Debug("generation", "stage", "persisting")
	rec, err := a.store.CreateContent(domain.ContentRecord{
		OwnerID:          ownerID,
		Title:            generated.Title,
		Description:      preq.Brief,
		Platform:         preq.Platform,
		ContentType:      preq.ContentType,
		Brief:            preq.Brief,
		GeneratedContent: generated.Content,
		Images:           []string{},
		Metadata:         generated.Metadata,
	})
	if err != nil {
		metrics.GenerationRequests.WithLabelValues(metrics.OutcomePersistenceFail).Inc()
		logger.Error("generation failed", "stage", "persisting", "err", err)
		return GenerateResult{}, persistErr("save content", err)
	}

	metrics.GenerationRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	logger.Info("generation complete", "stage", "complete", "content_id", rec.ID, "words", generated.Metadata.WordCount)
	return GenerateResult{
		ID:       rec.ID,
		Title:    generated.Title,
		Content:  generated.Content,
		Hashtags: generated.Hashtags,
		Metadata: generated.Metadata,
	}, nil
}

func (a *App) validateGenerate(ownerID int64, req GenerateRequest) (provider.Request, error) {
	preq := provider.Request{
		Platform:    strings.TrimSpace(req.Platform),
		ContentType: strings.TrimSpace(req.ContentType),
		Brief:       strings.TrimSpace(req.Brief),
		Images:      req.Images,
		Template:    strings.TrimSpace(req.Template),
	}
	var missing []string
	if preq.Platform == "" {
		missing = append(missing, "platform")
	}
	if preq.ContentType == "" {
		missing = append(missing, "contentType")
	}
	if preq.Brief == "" {
		missing = append(missing, "brief")
	}
	if len(missing) > 0 {
		return provider.Request{}, &ValidationError{Message: "Missing required fields", Fields: missing}
	}
	if ownerID <= 0 {
		return provider.Request{}, &ValidationError{Message: "owner required"}
	}
	if preq.Template == "" && req.TemplateID > 0 {
		tpl, ok, err := a.store.GetTemplate(req.TemplateID)
		if err != nil {
			return provider.Request{}, persistErr("get template", err)
		}
		if !ok {
			return provider.Request{}, &ValidationError{Message: "Unknown template"}
		}
		preq.Template = tpl.Template
	}
	return preq, nil
}

func outcomeFor(err error) string {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return metrics.OutcomePersistenceFail
	}
	return metrics.OutcomeInvalid
}
