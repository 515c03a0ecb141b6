package model

import "time"

// EquipmentStatus is the operational state of a piece of equipment.
type EquipmentStatus string

const (
	StatusOperationalFull    EquipmentStatus = "operational_full"
	StatusOperationalPartial EquipmentStatus = "operational_partial"
	StatusOutOfService       EquipmentStatus = "out_of_service"
)

// ValidEquipmentStatus reports whether s is a recognized equipment status.
func ValidEquipmentStatus(s EquipmentStatus) bool {
	switch s {
	case StatusOperationalFull, StatusOperationalPartial, StatusOutOfService:
		return true
	}
	return false
}

// Equipment is a catalog entry for a medical device tracked during rounds.
type Equipment struct {
	ID          int64           `gorm:"primaryKey"`
	Name        string          `gorm:"uniqueIndex;size:200;not null"`
	PlateNumber string          `gorm:"index;size:100"` // empty for legacy surgery items catalogued by name only
	Status      EquipmentStatus `gorm:"size:32;not null;default:operational_full"`
	Tags        []byte          `gorm:"type:jsonb"` // validated tags_v1 document
	Active      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}
