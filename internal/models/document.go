package models

import "gorm.io/gorm"

// Document is a stored file kept on a physical rack, visible to the
// employees (roles) in its access list.
type Document struct {
	gorm.Model

	FolderName   string           `gorm:"uniqueIndex;size:191;not null" json:"folderName"`
	UploadedFile []byte           `gorm:"not null" json:"uploadedFile"`
	RackNumber   string           `gorm:"not null" json:"rackNumber"`
	User         string           `gorm:"not null" json:"user"`
	Access       []DocumentAccess `gorm:"constraint:OnDelete:CASCADE" json:"access"`
}

// DocumentAccess grants one employee id access to a document.
type DocumentAccess struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	DocumentID uint   `gorm:"not null;uniqueIndex:idx_document_employee" json:"-"`
	EmployeeID string `gorm:"not null;size:191;uniqueIndex:idx_document_employee" json:"employeeId"`
}

// All lists every model for migration.
func All() []any {
	return []any{
		&CPUData{}, &DailyPerformance{},
		&Category{}, &Supplier{}, &PurchasingItem{}, &Evaluator{},
		&Delivery{}, &DeliveryItem{},
		&Item{}, &PurchaseRequest{}, &DamagedItem{}, &Inspection{},
		&Document{}, &DocumentAccess{},
	}
}
