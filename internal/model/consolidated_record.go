package model

import (
	"errors"
	"fmt"
	"time"
)

// RecordKind discriminates daily from weekly consolidated records.
type RecordKind string

const (
	KindDaily  RecordKind = "daily"
	KindWeekly RecordKind = "weekly"
)

// WeekAnchor is the weekday every weekly record's start date must fall on.
const WeekAnchor = time.Monday

// ErrInvalidRecord is wrapped by every record invariant violation.
var ErrInvalidRecord = errors.New("invalid consolidated record")

// ConsolidatedRecord is the unified equipment-status record, covering either
// a single day or a Monday-to-Friday week span. It replaces the two legacy
// record shapes the consolidation engine reads.
type ConsolidatedRecord struct {
	ID            int64           `gorm:"primaryKey"`
	Actor         string          `gorm:"size:100;not null"`
	Kind          RecordKind      `gorm:"size:10;not null"`
	StartDate     time.Time       `gorm:"not null;index"`
	EndDate       *time.Time      // nil for daily records
	RoomNumber    string          `gorm:"size:50;not null;index"`
	EquipmentName string          `gorm:"size:100;not null"`
	Status        EquipmentStatus `gorm:"size:32;not null"`
	Observation   string          `gorm:"type:text"`
	SourceKey     *string         `gorm:"uniqueIndex;size:200"` // idempotence key, nil for directly created records
	CreatedAt     time.Time       `gorm:"not null"`
}

// Validate enforces the kind/date invariants. The store calls it before any
// record is written.
func (r ConsolidatedRecord) Validate() error {
	switch r.Kind {
	case KindDaily:
		if r.EndDate != nil {
			return fmt.Errorf("daily record must not carry an end date: %w", ErrInvalidRecord)
		}
	case KindWeekly:
		if r.EndDate == nil {
			return fmt.Errorf("weekly record requires an end date: %w", ErrInvalidRecord)
		}
		if r.EndDate.Before(r.StartDate) {
			return fmt.Errorf("weekly record end %s precedes start %s: %w",
				r.EndDate.Format("2006-01-02"), r.StartDate.Format("2006-01-02"), ErrInvalidRecord)
		}
		if r.StartDate.Weekday() != WeekAnchor {
			return fmt.Errorf("weekly record start %s is not a %s: %w",
				r.StartDate.Format("2006-01-02"), WeekAnchor, ErrInvalidRecord)
		}
	default:
		return fmt.Errorf("unknown record kind %q: %w", r.Kind, ErrInvalidRecord)
	}
	if !ValidEquipmentStatus(r.Status) {
		return fmt.Errorf("unknown equipment status %q: %w", r.Status, ErrInvalidRecord)
	}
	return nil
}
