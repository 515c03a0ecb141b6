package model

import (
	"strings"
	"time"
)

// ServiceCategory classifies a hospital service for rounding purposes.
type ServiceCategory string

const (
	CategoryGeneral    ServiceCategory = "general"
	CategoryOncology   ServiceCategory = "oncology"
	CategoryPriority   ServiceCategory = "priority"
	CategoryLaboratory ServiceCategory = "laboratory"
	CategoryExternal   ServiceCategory = "external"
)

// ValidCategory reports whether c is one of the known service categories.
func ValidCategory(c ServiceCategory) bool {
	switch c {
	case CategoryGeneral, CategoryOncology, CategoryPriority, CategoryLaboratory, CategoryExternal:
		return true
	}
	return false
}

// Service is a catalog entry for a hospital service that receives rounds.
type Service struct {
	ID        int64           `gorm:"primaryKey"`
	Code      string          `gorm:"uniqueIndex;size:64;not null"`
	Name      string          `gorm:"size:200;not null"`
	Category  ServiceCategory `gorm:"size:32;not null"`
	DayRules  []byte          `gorm:"type:jsonb"` // validated day_rules_v1 document
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

var accentFold = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u")

// IsOncologyName reports whether a legacy service name refers to the oncology
// service. The legacy catalog spells these with and without accents.
func IsOncologyName(name string) bool {
	n := accentFold.Replace(strings.ToLower(strings.TrimSpace(name)))
	return n == "oncologia" || n == "hemato-oncologia"
}

// CategoryForServiceName derives the category for a legacy-named service.
func CategoryForServiceName(name string) ServiceCategory {
	if IsOncologyName(name) {
		return CategoryOncology
	}
	return CategoryGeneral
}
