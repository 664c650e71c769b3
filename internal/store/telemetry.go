package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/vesaa/invmon/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TelemetryStore persists per-device daily rollups in the cpudatas table.
type TelemetryStore struct {
	db *gorm.DB
}

// NewTelemetryStore wraps db.
func NewTelemetryStore(db *gorm.DB) *TelemetryStore {
	return &TelemetryStore{db: db}
}

func orderedDays(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// FindDevice returns the device with its daily entries in insertion order,
// or ErrNotFound.
func (s *TelemetryStore) FindDevice(ctx context.Context, productID string) (*models.CPUData, error) {
	var dev models.CPUData
	err := s.db.WithContext(ctx).
		Preload("DailyPerformance", orderedDays).
		Where("product_id = ?", productID).
		First(&dev).Error
	if err != nil {
		return nil, translate(err)
	}
	return &dev, nil
}

// GetDevice returns a device by primary key, or ErrNotFound.
func (s *TelemetryStore) GetDevice(ctx context.Context, id uint) (*models.CPUData, error) {
	var dev models.CPUData
	if err := s.db.WithContext(ctx).Preload("DailyPerformance", orderedDays).First(&dev, id).Error; err != nil {
		return nil, translate(err)
	}
	return &dev, nil
}

// ListDevices returns every device whose productID contains search, ignoring case.
func (s *TelemetryStore) ListDevices(ctx context.Context, search string) ([]models.CPUData, error) {
	q := s.db.WithContext(ctx).Preload("DailyPerformance", orderedDays).Order("id ASC")
	if search != "" {
		q = q.Where("LOWER(product_id) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var devs []models.CPUData
	if err := q.Find(&devs).Error; err != nil {
		return nil, err
	}
	return devs, nil
}

// CreateDevice inserts a new device together with its daily entries.
func (s *TelemetryStore) CreateDevice(ctx context.Context, dev *models.CPUData) error {
	if err := s.db.WithContext(ctx).Create(dev).Error; err != nil {
		return translate(err)
	}
	return nil
}

// UpdateDay rewrites usage and rank of an existing daily entry and replaces
// the motherboard snapshot.
func (s *TelemetryStore) UpdateDay(ctx context.Context, deviceID, entryID uint, usage float64, rank models.Rank, board models.Motherboard) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DailyPerformance{}).
			Where("id = ? AND cpu_data_id = ?", entryID, deviceID).
			Updates(map[string]any{
				"ram_usage_in_percentage": usage,
				"cpu_performance_rank":    rank,
			})
		if res.Error != nil {
			return fmt.Errorf("updating daily entry %d: %w", entryID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("daily entry %d of device %d: %w", entryID, deviceID, ErrNotFound)
		}
		return setBoard(tx, deviceID, board)
	})
}

// AppendDay adds a new daily entry and replaces the motherboard snapshot.
func (s *TelemetryStore) AppendDay(ctx context.Context, deviceID uint, entry models.DailyPerformance, board models.Motherboard) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry.CPUDataID = deviceID
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("appending daily entry: %w", translate(err))
		}
		return setBoard(tx, deviceID, board)
	})
}

func setBoard(tx *gorm.DB, deviceID uint, board models.Motherboard) error {
	err := tx.Model(&models.CPUData{}).
		Where("id = ?", deviceID).
		Update("motherboard", datatypes.NewJSONType(board)).Error
	if err != nil {
		return fmt.Errorf("updating motherboard of device %d: %w", deviceID, err)
	}
	return nil
}
