package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/vesaa/invmon/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentStore keeps documents and their per-employee access lists.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore wraps db.
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Create inserts a document. A duplicate folder name yields ErrConflict.
func (s *DocumentStore) Create(ctx context.Context, doc *models.Document) error {
	return translate(s.db.WithContext(ctx).Create(doc).Error)
}

// List returns documents whose folder name contains search. When employees
// is non-nil only documents granting access to one of them are returned.
func (s *DocumentStore) List(ctx context.Context, search string, employees []string) ([]models.Document, error) {
	q := s.db.WithContext(ctx).Preload("Access").Order("id ASC")
	if search != "" {
		q = q.Where("LOWER(folder_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if employees != nil {
		q = q.Where("id IN (?)", s.db.Model(&models.DocumentAccess{}).
			Select("document_id").
			Where("employee_id IN ?", employees))
	}
	var docs []models.Document
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes a document and its access list, or returns ErrNotFound.
func (s *DocumentStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentAccess{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&models.Document{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GrantAccess adds employeeID to the access list; granting twice is a no-op.
func (s *DocumentStore) GrantAccess(ctx context.Context, documentID uint, employeeID string) (*models.Document, error) {
	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}
	grant := models.DocumentAccess{DocumentID: documentID, EmployeeID: employeeID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error
	if err != nil {
		return nil, fmt.Errorf("granting access: %w", err)
	}
	return s.Get(ctx, documentID)
}

// RevokeAccess removes employeeID from the access list.
func (s *DocumentStore) RevokeAccess(ctx context.Context, documentID uint, employeeID string) (*models.Document, error) {
	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND employee_id = ?", documentID, employeeID).
		Delete(&models.DocumentAccess{}).Error
	if err != nil {
		return nil, fmt.Errorf("revoking access: %w", err)
	}
	return s.Get(ctx, documentID)
}

// Get returns a document with its access list, or ErrNotFound.
func (s *DocumentStore) Get(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).Preload("Access").First(&doc, id).Error; err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}
