// Package store is the persistence layer for the rounds entities. Every
// create that touches a structured field routes the candidate value through
// the schema validator first; a rejection fails the whole operation with
// nothing written.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rounds-backend/internal/model"
	"rounds-backend/internal/schema"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store defines the create/read operations the core exposes. RoundEntry and
// ConsolidatedRecord are append-only; no update or delete is offered on them.
type Store interface {
	CreateService(ctx context.Context, svc model.Service, dayRules map[string]any) (model.Service, error)
	GetServiceByCode(ctx context.Context, code string) (model.Service, error)
	ListServices(ctx context.Context) ([]model.Service, error)

	CreateRoom(ctx context.Context, room model.Room) (model.Room, error)
	GetRoomByNumber(ctx context.Context, number string) (model.Room, error)
	UpsertRooms(ctx context.Context, rooms []model.Room) error

	CreateEquipment(ctx context.Context, eq model.Equipment, tags map[string]any) (model.Equipment, error)
	GetEquipmentByPlate(ctx context.Context, plate string) (model.Equipment, error)
	UpsertEquipment(ctx context.Context, items []model.Equipment) error

	CreateRoundEntry(ctx context.Context, entry model.RoundEntry) (model.RoundEntry, error)
	GetRoundEntry(ctx context.Context, id int64) (model.RoundEntry, error)
	ListRoundEntries(ctx context.Context, category model.ServiceCategory) ([]model.RoundEntry, error)

	CreateConsolidatedRecord(ctx context.Context, rec model.ConsolidatedRecord) (model.ConsolidatedRecord, error)
	FindConsolidatedBySourceKey(ctx context.Context, key string) (model.ConsolidatedRecord, error)
	ListConsolidatedRecords(ctx context.Context, from, to time.Time) ([]model.ConsolidatedRecord, error)

	// EntityCategory implements ledger.CategoryResolver.
	EntityCategory(ctx context.Context, kind model.EntityKind, id int64) (model.ServiceCategory, error)
}

// gormStore implements Store using GORM. Catalog lookups by room number and
// equipment plate are TTL-cached: the consolidation batch resolves the same
// handful of codes for every leaf it processes.
type gormStore struct {
	db      *gorm.DB
	catalog *cache.Cache
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{
		db:      db,
		catalog: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// --- Service ---

func (s *gormStore) CreateService(ctx context.Context, svc model.Service, dayRules map[string]any) (model.Service, error) {
	if !model.ValidCategory(svc.Category) {
		return model.Service{}, fmt.Errorf("unknown service category %q", svc.Category)
	}
	if dayRules != nil {
		if err := schema.Validate(schema.FieldKindDayRules, dayRules); err != nil {
			return model.Service{}, err
		}
		raw, err := json.Marshal(dayRules)
		if err != nil {
			return model.Service{}, fmt.Errorf("encode day rules: %w", err)
		}
		svc.DayRules = raw
	}
	if err := s.db.WithContext(ctx).Create(&svc).Error; err != nil {
		return model.Service{}, fmt.Errorf("create service %q: %w", svc.Code, err)
	}
	return svc, nil
}

func (s *gormStore) GetServiceByCode(ctx context.Context, code string) (model.Service, error) {
	var svc model.Service
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&svc).Error; err != nil {
		return model.Service{}, translateNotFound(err, "service %q", code)
	}
	return svc, nil
}

func (s *gormStore) ListServices(ctx context.Context) ([]model.Service, error) {
	var svcs []model.Service
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&svcs).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return svcs, nil
}

// --- Room ---

func (s *gormStore) CreateRoom(ctx context.Context, room model.Room) (model.Room, error) {
	if room.Type == "" {
		room.Type = model.RoomOther
	}
	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		return model.Room{}, fmt.Errorf("create room %q: %w", room.Number, err)
	}
	s.catalog.Delete(roomKey(room.Number))
	return room, nil
}

func (s *gormStore) GetRoomByNumber(ctx context.Context, number string) (model.Room, error) {
	if cached, found := s.catalog.Get(roomKey(number)); found {
		return cached.(model.Room), nil
	}
	var room model.Room
	if err := s.db.WithContext(ctx).Where("number = ?", number).First(&room).Error; err != nil {
		return model.Room{}, translateNotFound(err, "room %q", number)
	}
	s.catalog.SetDefault(roomKey(number), room)
	return room, nil
}

// UpsertRooms materializes catalog entries discovered in legacy data.
// Existing rows are left untouched; only the conflict target matters.
func (s *gormStore) UpsertRooms(ctx context.Context, rooms []model.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}},
		DoNothing: true,
	}).Create(&rooms).Error
	if err != nil {
		return fmt.Errorf("batch upsert %d rooms: %w", len(rooms), err)
	}
	for _, r := range rooms {
		s.catalog.Delete(roomKey(r.Number))
	}
	return nil
}

// --- Equipment ---

func (s *gormStore) CreateEquipment(ctx context.Context, eq model.Equipment, tags map[string]any) (model.Equipment, error) {
	if eq.Status == "" {
		eq.Status = model.StatusOperationalFull
	}
	if !model.ValidEquipmentStatus(eq.Status) {
		return model.Equipment{}, fmt.Errorf("unknown equipment status %q", eq.Status)
	}
	if tags != nil {
		if err := schema.Validate(schema.FieldKindTags, tags); err != nil {
			return model.Equipment{}, err
		}
		raw, err := json.Marshal(tags)
		if err != nil {
			return model.Equipment{}, fmt.Errorf("encode tags: %w", err)
		}
		eq.Tags = raw
	}
	if err := s.db.WithContext(ctx).Create(&eq).Error; err != nil {
		return model.Equipment{}, fmt.Errorf("create equipment %q: %w", eq.PlateNumber, err)
	}
	s.catalog.Delete(equipmentKey(eq.PlateNumber))
	return eq, nil
}

func (s *gormStore) GetEquipmentByPlate(ctx context.Context, plate string) (model.Equipment, error) {
	if cached, found := s.catalog.Get(equipmentKey(plate)); found {
		return cached.(model.Equipment), nil
	}
	var eq model.Equipment
	if err := s.db.WithContext(ctx).Where("plate_number = ?", plate).First(&eq).Error; err != nil {
		return model.Equipment{}, translateNotFound(err, "equipment %q", plate)
	}
	s.catalog.SetDefault(equipmentKey(plate), eq)
	return eq, nil
}

func (s *gormStore) UpsertEquipment(ctx context.Context, items []model.Equipment) error {
	if len(items) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&items).Error
	if err != nil {
		return fmt.Errorf("batch upsert %d equipment: %w", len(items), err)
	}
	for _, eq := range items {
		if eq.PlateNumber != "" {
			s.catalog.Delete(equipmentKey(eq.PlateNumber))
		}
	}
	return nil
}

// --- RoundEntry ---

func (s *gormStore) CreateRoundEntry(ctx context.Context, entry model.RoundEntry) (model.RoundEntry, error) {
	if !model.ValidCategory(entry.Category) {
		return model.RoundEntry{}, fmt.Errorf("unknown round entry category %q", entry.Category)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return model.RoundEntry{}, fmt.Errorf("create round entry: %w", err)
	}
	return entry, nil
}

func (s *gormStore) GetRoundEntry(ctx context.Context, id int64) (model.RoundEntry, error) {
	var entry model.RoundEntry
	if err := s.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return model.RoundEntry{}, translateNotFound(err, "round entry %d", id)
	}
	return entry, nil
}

func (s *gormStore) ListRoundEntries(ctx context.Context, category model.ServiceCategory) ([]model.RoundEntry, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var entries []model.RoundEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list round entries: %w", err)
	}
	return entries, nil
}

// --- ConsolidatedRecord ---

func (s *gormStore) CreateConsolidatedRecord(ctx context.Context, rec model.ConsolidatedRecord) (model.ConsolidatedRecord, error) {
	if err := rec.Validate(); err != nil {
		return model.ConsolidatedRecord{}, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// A duplicate source key surfaces as gorm.ErrDuplicatedKey so the
		// consolidation engine can treat the record as already materialized.
		return model.ConsolidatedRecord{}, fmt.Errorf("create consolidated record: %w", err)
	}
	return rec, nil
}

func (s *gormStore) FindConsolidatedBySourceKey(ctx context.Context, key string) (model.ConsolidatedRecord, error) {
	var rec model.ConsolidatedRecord
	if err := s.db.WithContext(ctx).Where("source_key = ?", key).First(&rec).Error; err != nil {
		return model.ConsolidatedRecord{}, translateNotFound(err, "consolidated record with key %q", key)
	}
	return rec, nil
}

func (s *gormStore) ListConsolidatedRecords(ctx context.Context, from, to time.Time) ([]model.ConsolidatedRecord, error) {
	q := s.db.WithContext(ctx).Order("start_date ASC, room_number ASC, equipment_name ASC")
	if !from.IsZero() {
		q = q.Where("start_date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("start_date <= ?", to)
	}
	var recs []model.ConsolidatedRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list consolidated records: %w", err)
	}
	return recs, nil
}

// EntityCategory resolves the category the signature multiplicity rules
// depend on. Consolidated records have fixed multiplicity, so their category
// is reported as general regardless of content.
func (s *gormStore) EntityCategory(ctx context.Context, kind model.EntityKind, id int64) (model.ServiceCategory, error) {
	switch kind {
	case model.EntityRoundEntry:
		entry, err := s.GetRoundEntry(ctx, id)
		if err != nil {
			return "", err
		}
		return entry.Category, nil
	case model.EntityConsolidatedRecord:
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.ConsolidatedRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("look up consolidated record %d: %w", id, err)
		}
		if count == 0 {
			return "", fmt.Errorf("consolidated record %d: %w", id, ErrNotFound)
		}
		return model.CategoryGeneral, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

func roomKey(number string) string     { return "room:" + number }
func equipmentKey(plate string) string { return "equipment:" + plate }

func translateNotFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
