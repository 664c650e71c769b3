package store

import (
	"context"

	"github.com/vesaa/invmon/internal/models"
	"gorm.io/gorm"
)

// RatingStore reads the delivery and feedback tables for rating aggregation.
// It never writes.
type RatingStore struct {
	db *gorm.DB
}

// NewRatingStore wraps db.
func NewRatingStore(db *gorm.DB) *RatingStore {
	return &RatingStore{db: db}
}

// IndividualRatings returns individual_item_rating of every feedback row for the supplier.
func (s *RatingStore) IndividualRatings(ctx context.Context, supplierID uint) ([]int, error) {
	var ratings []int
	err := s.db.WithContext(ctx).Model(&models.DeliveryItem{}).
		Where("supplier_id = ?", supplierID).
		Pluck("individual_item_rating", &ratings).Error
	return ratings, err
}

// OverallRatings returns overall_rating of every delivery from the supplier.
func (s *RatingStore) OverallRatings(ctx context.Context, supplierID uint) ([]int, error) {
	var ratings []int
	err := s.db.WithContext(ctx).Model(&models.Delivery{}).
		Where("supplier_id = ?", supplierID).
		Pluck("overall_rating", &ratings).Error
	return ratings, err
}

// FeedbackWithRelations returns every feedback row with its delivery, item,
// supplier and evaluator loaded.
func (s *RatingStore) FeedbackWithRelations(ctx context.Context) ([]models.DeliveryItem, error) {
	var rows []models.DeliveryItem
	err := s.db.WithContext(ctx).
		Preload("Delivery").Preload("Item").Preload("Supplier").Preload("Evaluator").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
