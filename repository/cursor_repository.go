package repository

import (
	"errors"
	"fmt"

	"FreeFM/db"
	"FreeFM/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorRepository persists per-source harvest cursors. One row per source;
// the payload is opaque JSON owned by the source adapter.
type CursorRepository interface {
	// Load returns the stored payload for a source. The second return value
	// is false when no cursor has been saved yet.
	Load(source string) (string, bool, error)
	Save(source string, payload string) error
	Delete(source string) error
}

type gormCursorRepository struct {
	DB *gorm.DB
}

// NewCursorRepository creates a cursor repository backed by the GORM connection.
func NewCursorRepository() CursorRepository {
	return &gormCursorRepository{DB: db.GormDB}
}

func (r *gormCursorRepository) Load(source string) (string, bool, error) {
	var doc model.CursorDoc
	err := r.DB.First(&doc, "source = ?", source).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load cursor for source %s: %w", source, err)
	}
	return doc.Payload, true, nil
}

func (r *gormCursorRepository) Save(source string, payload string) error {
	doc := model.CursorDoc{Source: source, Payload: payload}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to save cursor for source %s: %w", source, err)
	}
	return nil
}

func (r *gormCursorRepository) Delete(source string) error {
	err := r.DB.Delete(&model.CursorDoc{}, "source = ?", source).Error
	if err != nil {
		return fmt.Errorf("failed to delete cursor for source %s: %w", source, err)
	}
	return nil
}
