package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups purchasing-department items.
type Category struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;size:191;not null" json:"name" binding:"required"`
	Description string `json:"description"`
}

// Supplier delivers items and is rated through deliveries and feedback.
type Supplier struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;size:191;not null" json:"name" binding:"required"`
	PhoneNumber string `gorm:"uniqueIndex;size:32;not null" json:"phonenumber" binding:"required"`
	Email       string `gorm:"uniqueIndex;size:191;not null" json:"email" binding:"required,email"`
}

// PurchasingItem is an item known to the purchasing department.
type PurchasingItem struct {
	gorm.Model

	Name        string    `gorm:"uniqueIndex;size:191;not null" json:"name" binding:"required"`
	CategoryID  uint      `gorm:"index;not null" json:"category_id" binding:"required"`
	Category    *Category `json:"category,omitempty" binding:"-"`
	Description string    `json:"description"`
}

func (PurchasingItem) TableName() string { return "purchasing_items" }

// Evaluator is a person who submits delivery feedback.
type Evaluator struct {
	gorm.Model

	Name string `gorm:"uniqueIndex;size:191;not null" json:"name" binding:"required"`
}

// Delivery is one supplier's delivery of an item on a date, with an overall rating.
// Unique on (supplier_id, item_id) and on (supplier_id, item_id, delivery_date).
type Delivery struct {
	gorm.Model

	SupplierID          uint            `gorm:"not null;uniqueIndex:idx_delivery_supplier_item;uniqueIndex:idx_delivery_supplier_item_date" json:"supplier_id" binding:"required"`
	ItemID              uint            `gorm:"not null;uniqueIndex:idx_delivery_supplier_item;uniqueIndex:idx_delivery_supplier_item_date" json:"item_id" binding:"required"`
	DeliveryDate        time.Time       `gorm:"not null;uniqueIndex:idx_delivery_supplier_item_date" json:"delivery_date" binding:"required"`
	OverallRating       int             `gorm:"not null" json:"overall_rating" binding:"required,min=1,max=5"`
	OverallRatingReason string          `json:"overall_rating_reason"`
	Supplier            *Supplier       `json:"supplier,omitempty" binding:"-"`
	Item                *PurchasingItem `json:"item,omitempty" binding:"-"`
}

// DeliveryItem is one evaluator's feedback on one delivered item.
// At most one per (delivery_id, evaluator_id).
type DeliveryItem struct {
	gorm.Model

	DeliveryID                 uint      `gorm:"not null;uniqueIndex:idx_feedback_delivery_evaluator" json:"delivery_id" binding:"required"`
	ItemID                     uint      `gorm:"not null;index" json:"item_id" binding:"required"`
	SupplierID                 uint      `gorm:"not null;index" json:"supplier_id" binding:"required"`
	Price                      float64   `json:"price"`
	Quantity                   int       `json:"quantity"`
	IndividualItemRating       int       `gorm:"not null" json:"individual_item_rating" binding:"required,min=1,max=5"`
	IndividualItemRatingReason string    `gorm:"not null" json:"individual_item_rating_reason" binding:"required"`
	EvaluatorID                uint      `gorm:"not null;uniqueIndex:idx_feedback_delivery_evaluator" json:"evaluator_id" binding:"required"`
	EvaluationDate             time.Time `json:"evaluation_date"`

	Delivery  *Delivery       `json:"delivery,omitempty" binding:"-"`
	Item      *PurchasingItem `json:"item,omitempty" binding:"-"`
	Supplier  *Supplier       `json:"supplier,omitempty" binding:"-"`
	Evaluator *Evaluator      `json:"evaluator,omitempty" binding:"-"`
}
