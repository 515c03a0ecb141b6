package model

import "time"

// RoundEntry is a single inspection observation recorded during a biomedical
// round. Entries are append-only: after creation the only change they ever
// see is signature attachment through the ledger.
type RoundEntry struct {
	ID             int64           `gorm:"primaryKey"`
	Actor          string          `gorm:"size:100;not null"`
	Category       ServiceCategory `gorm:"size:32;not null;index"`
	SubService     string          `gorm:"size:100;not null"`
	Finding        string          `gorm:"type:text"`
	EquipmentPlate string          `gorm:"size:100"`
	WorkOrder      string          `gorm:"size:100"`
	HasSafetyEvent bool            `gorm:"not null;default:false"`
	SafetyEvent    string          `gorm:"type:text"`
	OutOfService   bool            `gorm:"not null;default:false"`
	CreatedAt      time.Time       `gorm:"not null;index"`
}
