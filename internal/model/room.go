package model

import "time"

// RoomType classifies a hospital room.
type RoomType string

const (
	RoomSurgery    RoomType = "surgery"
	RoomWard       RoomType = "ward"
	RoomConsult    RoomType = "consult"
	RoomLaboratory RoomType = "laboratory"
	RoomOther      RoomType = "other"
)

// Room is a catalog entry for a hospital room. Round and consolidated
// records reference rooms by number, not by foreign key, so a room can be
// retired without cascading into the audit trail.
type Room struct {
	ID        int64     `gorm:"primaryKey"`
	Number    string    `gorm:"uniqueIndex;size:50;not null"`
	Name      string    `gorm:"size:200"`
	Type      RoomType  `gorm:"size:20;not null;default:other"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
