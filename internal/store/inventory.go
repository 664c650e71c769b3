package store

import (
	"context"
	"sort"
	"strings"

	"github.com/vesaa/invmon/internal/models"
	"gorm.io/gorm"
)

// CategoryCount is the number of items tagged with one category.
type CategoryCount struct {
	// ID is one item carrying the category.
	ID    uint   `json:"_id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// InventoryStore answers the inventory queries that plain CRUD cannot.
type InventoryStore struct {
	db *gorm.DB
}

// NewInventoryStore wraps db.
func NewInventoryStore(db *gorm.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

// CategoryCounts groups items by category name. Categories live in a JSON
// column, so the grouping runs here rather than in SQL. An empty search
// matches every category.
func (s *InventoryStore) CategoryCounts(ctx context.Context, search string) ([]CategoryCount, error) {
	var items []models.Item
	if err := s.db.WithContext(ctx).Select("id", "categories").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	search = strings.ToLower(search)
	byName := map[string]*CategoryCount{}
	for _, it := range items {
		for _, cat := range it.Categories {
			if !strings.Contains(strings.ToLower(cat.Name), search) {
				continue
			}
			cc, ok := byName[cat.Name]
			if !ok {
				cc = &CategoryCount{ID: it.ID, Name: cat.Name}
				byName[cat.Name] = cc
			}
			cc.Count++
		}
	}

	out := make([]CategoryCount, 0, len(byName))
	for _, cc := range byName {
		out = append(out, *cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// InspectionsForItem lists the inspections of one damaged item.
func (s *InventoryStore) InspectionsForItem(ctx context.Context, itemID uint) ([]models.Inspection, error) {
	var rows []models.Inspection
	err := s.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id ASC").Find(&rows).Error
	return rows, err
}
