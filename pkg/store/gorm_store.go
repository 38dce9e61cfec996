package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"postcraft/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newGormStore(db)
}

func newGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&UserModel{}, &ContentModel{}, &TemplateModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a user; the database assigns the id.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	exists, err := s.hasUsername(u.Username)
	if err != nil {
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, ErrUsernameTaken
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	model := UserModel{Username: u.Username, Password: u.Password, CreatedAt: u.CreatedAt}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

func (s *GormStore) hasUsername(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUser returns a user by ID.
func (s *GormStore) GetUser(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateContent inserts a record; the database assigns the id and CreatedAt is set here.
func (s *GormStore) CreateContent(rec domain.ContentRecord) (domain.ContentRecord, error) {
	rec.ID = 0
	rec.CreatedAt = time.Now().UTC()
	model, err := contentToModel(rec)
	if err != nil {
		return domain.ContentRecord{}, err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.ContentRecord{}, err
	}
	return contentFromModel(model)
}

// GetContent retrieves a record by ID.
func (s *GormStore) GetContent(id int64) (domain.ContentRecord, bool, error) {
	var model ContentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ContentRecord{}, false, nil
		}
		return domain.ContentRecord{}, false, err
	}
	rec, err := contentFromModel(model)
	if err != nil {
		return domain.ContentRecord{}, false, err
	}
	return rec, true, nil
}

// ListContentByOwner returns the owner's records, most recent first; ties keep id order.
func (s *GormStore) ListContentByOwner(ownerID int64) ([]domain.ContentRecord, error) {
	var models []ContentModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ContentRecord, 0, len(models))
	for _, m := range models {
		rec, err := contentFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, nil
}

// UpdateContent merges patch into an existing record inside a transaction.
func (s *GormStore) UpdateContent(id int64, patch domain.ContentPatch) (domain.ContentRecord, bool, error) {
	var (
		updated domain.ContentRecord
		found   bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model ContentModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		current, err := contentFromModel(model)
		if err != nil {
			return err
		}
		merged := patch.Apply(current)
		next, err := contentToModel(merged)
		if err != nil {
			return err
		}
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated, found = merged, true
		return nil
	})
	if err != nil {
		return domain.ContentRecord{}, false, err
	}
	return updated, found, nil
}

// DeleteContent removes a record and reports whether a row was deleted.
func (s *GormStore) DeleteContent(id int64) (bool, error) {
	res := s.db.Delete(&ContentModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountContent returns the number of stored records.
func (s *GormStore) CountContent() (int, error) {
	var count int64
	if err := s.db.Model(&ContentModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// ContentStats aggregates the owner's records by platform.
func (s *GormStore) ContentStats(ownerID int64) (domain.ContentStats, error) {
	var rows []struct {
		Platform string
		Count    int
	}
	if err := s.db.Model(&ContentModel{}).
		Select("platform, count(*) AS count").
		Where("owner_id = ?", ownerID).
		Group("platform").
		Scan(&rows).Error; err != nil {
		return domain.ContentStats{}, err
	}
	byPlatform := make(map[string]int, len(rows))
	for _, row := range rows {
		byPlatform[row.Platform] = row.Count
	}
	return statsFromCounts(byPlatform), nil
}

// CreateTemplate inserts a template.
func (s *GormStore) CreateTemplate(t domain.Template) (domain.Template, error) {
	model := templateToModel(t)
	model.ID = 0
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Template{}, err
	}
	return templateFromModel(model), nil
}

// GetTemplate returns a template by ID.
func (s *GormStore) GetTemplate(id int64) (domain.Template, bool, error) {
	var model TemplateModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Template{}, false, nil
		}
		return domain.Template{}, false, err
	}
	return templateFromModel(model), true, nil
}

// ListTemplates returns all templates ordered by id.
func (s *GormStore) ListTemplates() ([]domain.Template, error) {
	return s.listTemplates()
}

// ListTemplatesByPlatform returns templates whose platform matches exactly.
func (s *GormStore) ListTemplatesByPlatform(platform string) ([]domain.Template, error) {
	return s.listTemplates("platform = ?", platform)
}

func (s *GormStore) listTemplates(conds ...any) ([]domain.Template, error) {
	var models []TemplateModel
	tx := s.db.Order("id ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Template, 0, len(models))
	for _, m := range models {
		res = append(res, templateFromModel(m))
	}
	return res, nil
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:        m.ID,
		Username:  m.Username,
		Password:  m.Password,
		CreatedAt: m.CreatedAt,
	}
}

func contentToModel(rec domain.ContentRecord) (ContentModel, error) {
	images, err := json.Marshal(cloneImages(rec.Images))
	if err != nil {
		return ContentModel{}, fmt.Errorf("encode images: %w", err)
	}
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return ContentModel{}, fmt.Errorf("encode metadata: %w", err)
	}
	return ContentModel{
		ID:               rec.ID,
		OwnerID:          rec.OwnerID,
		Title:            rec.Title,
		Description:      rec.Description,
		Platform:         rec.Platform,
		ContentType:      rec.ContentType,
		Brief:            rec.Brief,
		GeneratedContent: rec.GeneratedContent,
		Images:           datatypes.JSON(images),
		Metadata:         datatypes.JSON(metadata),
		CreatedAt:        rec.CreatedAt,
	}, nil
}

func contentFromModel(m ContentModel) (domain.ContentRecord, error) {
	rec := domain.ContentRecord{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		Title:            m.Title,
		Description:      m.Description,
		Platform:         m.Platform,
		ContentType:      m.ContentType,
		Brief:            m.Brief,
		GeneratedContent: m.GeneratedContent,
		Images:           []string{},
		CreatedAt:        m.CreatedAt,
	}
	if len(m.Images) > 0 {
		if err := json.Unmarshal(m.Images, &rec.Images); err != nil {
			return domain.ContentRecord{}, fmt.Errorf("decode images: %w", err)
		}
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &rec.Metadata); err != nil {
			return domain.ContentRecord{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return rec, nil
}

func templateToModel(t domain.Template) TemplateModel {
	return TemplateModel{
		ID:          t.ID,
		Name:        t.Name,
		Platform:    t.Platform,
		ContentType: t.ContentType,
		Template:    t.Template,
		Description: t.Description,
	}
}

func templateFromModel(m TemplateModel) domain.Template {
	return domain.Template{
		ID:          m.ID,
		Name:        m.Name,
		Platform:    m.Platform,
		ContentType: m.ContentType,
		Template:    m.Template,
		Description: m.Description,
	}
}
