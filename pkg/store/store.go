package store

import (
	"errors"

	"postcraft/pkg/domain"
)

// ErrUsernameTaken is returned by CreateUser when the username already exists.
var ErrUsernameTaken = errors.New("username already exists")

// Store defines persistence operations for users, content records, and templates.
// Lookups report a missing key through the boolean result, never through the error.
type Store interface {
	// users
	CreateUser(domain.User) (domain.User, error)
	GetUser(id int64) (domain.User, bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)

	// content; CreateContent assigns ID and CreatedAt.
	CreateContent(domain.ContentRecord) (domain.ContentRecord, error)
	GetContent(id int64) (domain.ContentRecord, bool, error)
	ListContentByOwner(ownerID int64) ([]domain.ContentRecord, error)
	UpdateContent(id int64, patch domain.ContentPatch) (domain.ContentRecord, bool, error)
	DeleteContent(id int64) (bool, error)
	CountContent() (int, error)
	ContentStats(ownerID int64) (domain.ContentStats, error)

	// templates
	CreateTemplate(domain.Template) (domain.Template, error)
	GetTemplate(id int64) (domain.Template, bool, error)
	ListTemplates() ([]domain.Template, error)
	ListTemplatesByPlatform(platform string) ([]domain.Template, error)
}

func statsFromCounts(byPlatform map[string]int) domain.ContentStats {
	total := 0
	for _, n := range byPlatform {
		total += n
	}
	return domain.ContentStats{
		TotalContent: total,
		AIGenerated:  total,
		Platforms:    len(byPlatform),
		ByPlatform:   byPlatform,
	}
}
