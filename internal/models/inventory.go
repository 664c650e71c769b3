package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ValidationError reports a model rule violated outside of request binding,
// e.g. rows coming from a spreadsheet import.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NameRef is an embedded {name} reference used by inventory items.
type NameRef struct {
	Name string `json:"name"`
}

// Units accepted for inventory items.
var Units = []string{"kg", "litre", "pcs", "bag"}

// Item is a stocked inventory item.
type Item struct {
	gorm.Model

	// ItemCode is generated as pro001, pro002, … when not supplied.
	ItemCode     string                      `gorm:"uniqueIndex;size:32" json:"itemId"`
	Name         string                      `gorm:"not null" json:"name" binding:"required,min=3"`
	ProductID    string                      `json:"ProductID"`
	Description  string                      `gorm:"not null" json:"description" binding:"required"`
	InvoiceNo    string                      `json:"InvoiceNo"`
	Unit         string                      `gorm:"size:8;not null" json:"unit" binding:"required,oneof=kg litre pcs bag"`
	Quantity     int                         `json:"quantity"`
	Price        float64                     `json:"price"`
	DeliveryDate time.Time                   `json:"delivery_date" binding:"required"`
	DamagedItems int                         `json:"damagedItems"`
	UnusedItems  int                         `json:"unusedItems"`
	UnusedMonth  int                         `json:"unusedMonth"`
	Suppliers    datatypes.JSONSlice[NameRef] `json:"supplier"`
	Categories   datatypes.JSONSlice[NameRef] `json:"category"`
	Brand        string                      `gorm:"not null" json:"brand" binding:"required"`
	Warranty     string                      `json:"warrantydetails"`
}

// Validate normalizes the item and checks the rules the schema enforces.
func (it *Item) Validate() error {
	it.Name = strings.ToLower(strings.TrimSpace(it.Name))
	if len(it.Name) < 3 {
		return &ValidationError{Field: "name", Reason: "must be at least 3 characters"}
	}
	if strings.TrimSpace(it.Description) == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if strings.TrimSpace(it.Brand) == "" {
		return &ValidationError{Field: "brand", Reason: "is required"}
	}
	for _, u := range Units {
		if it.Unit == u {
			return nil
		}
	}
	return &ValidationError{Field: "unit", Reason: fmt.Sprintf("can't be %q, must be kg/litre/pcs/bag", it.Unit)}
}

// BeforeCreate validates the item and assigns the next item code.
func (it *Item) BeforeCreate(tx *gorm.DB) error {
	if err := it.Validate(); err != nil {
		return err
	}
	if it.ItemCode != "" {
		return nil
	}
	var last Item
	err := tx.Session(&gorm.Session{NewDB: true}).Unscoped().
		Where("item_code LIKE ?", "pro%").
		Order("id DESC").Limit(1).Find(&last).Error
	if err != nil {
		return fmt.Errorf("finding last item code: %w", err)
	}
	next := 1
	if n, err := strconv.Atoi(strings.TrimPrefix(last.ItemCode, "pro")); err == nil {
		next = n + 1
	}
	it.ItemCode = fmt.Sprintf("pro%03d", next)
	return nil
}

// PurchaseRequest is an employee's request to buy items.
type PurchaseRequest struct {
	gorm.Model

	ItemName    string `gorm:"not null" json:"itemName" binding:"required"`
	Quantity    int    `gorm:"not null" json:"quantity" binding:"required,min=1"`
	Description string `gorm:"not null" json:"description" binding:"required"`
	Status      string `gorm:"size:16;default:pending" json:"status" binding:"omitempty,oneof=pending approved rejected"`
	RequesterID string `json:"requesterId"`
}

// SupplierContact is the supplier snapshot stored with a damaged item.
type SupplierContact struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// DamagedItem records an item reported as damaged.
type DamagedItem struct {
	gorm.Model

	ItemName          string          `gorm:"not null" json:"itemName" binding:"required"`
	DamageDescription string          `json:"damageDescription"`
	Condition         string          `gorm:"size:16;default:Normal" json:"condition" binding:"omitempty,oneof=Normal Critical"`
	Supplier          SupplierContact `gorm:"embedded;embeddedPrefix:supplier_" json:"supplier"`
}

// Inspection tracks the inspection of a damaged item.
type Inspection struct {
	gorm.Model

	ItemID                uint   `gorm:"index;not null" json:"itemId" binding:"required"`
	ItemName              string `gorm:"not null" json:"itemName" binding:"required"`
	InspectionDescription string `gorm:"not null" json:"inspectionDescription" binding:"required"`
	Status                string `gorm:"size:32;default:pending" json:"status" binding:"omitempty,oneof=pending 'under Inspection' completed"`
	OtherDetails          string `json:"otherDetails"`
}
