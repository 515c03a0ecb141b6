package internal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rounds-backend/internal/consolidate"
	"rounds-backend/internal/db"
	"rounds-backend/internal/ledger"
	"rounds-backend/internal/model"
	"rounds-backend/internal/store"
)

// TestRoundsLifecycle walks the whole core: catalog setup with validated
// structured fields, a signed round entry, and a legacy weekly file pushed
// through the consolidation engine twice to prove idempotence.
func TestRoundsLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:rounds_lifecycle?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	appStore := store.NewGormStore(testDB)
	sigLedger := ledger.New(testDB, appStore)
	engine := consolidate.New(appStore, sigLedger, zap.NewNop(), consolidate.Options{Workers: 2, WriteRate: 1000})
	ctx := context.Background()

	// --- Catalog setup ---
	_, err = appStore.CreateService(ctx, model.Service{
		Code:     "ONC",
		Name:     "Oncología",
		Category: model.CategoryForServiceName("Oncología"),
		Active:   true,
	}, map[string]any{
		"miercoles": map[string]any{"enabled": true, "services": []any{"Oncología", "Hemato-Oncología"}},
	})
	require.NoError(t, err)

	svc, err := appStore.GetServiceByCode(ctx, "ONC")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryOncology, svc.Category)

	_, err = appStore.CreateEquipment(ctx, model.Equipment{
		Name:        "Bomba de infusión",
		PlateNumber: "BIO-2231",
		Active:      true,
	}, map[string]any{"critical": true, "risk_class": "high"})
	require.NoError(t, err)

	// --- A signed oncology round entry ---
	entry, err := appStore.CreateRoundEntry(ctx, model.RoundEntry{
		Actor:          "tech.lopez",
		Category:       svc.Category,
		SubService:     svc.Name,
		Finding:        "Bomba con alarma intermitente",
		EquipmentPlate: "BIO-2231",
		HasSafetyEvent: false,
	})
	require.NoError(t, err)

	for _, name := range []string{"Jefe piso 4", "Jefe piso 5", "Jefe piso 6"} {
		_, err := sigLedger.Attach(ctx, model.EntityRoundEntry, entry.ID, model.RoleService, name, "data:image/png;base64,...")
		require.NoError(t, err)
	}
	_, err = sigLedger.Attach(ctx, model.EntityRoundEntry, entry.ID, model.RoleRound, "tech.lopez", "data:image/png;base64,...")
	require.NoError(t, err)

	sigs, err := sigLedger.ListFor(ctx, model.EntityRoundEntry, entry.ID)
	require.NoError(t, err)
	assert.Len(t, sigs, 4)

	// --- Legacy weekly file through the engine ---
	legacy := []consolidate.WeeklyRecord{{
		ID:     "2024-06-03#cirugia",
		Actor:  "tech.lopez",
		Anchor: "2024-06-03",
		Days: map[string]map[string]map[string]consolidate.Leaf{
			"Lunes":     {"1": {"Monitor": {Status: "operational_full"}}},
			"Martes":    {"1": {"Monitor": {Status: "operational_full"}}},
			"Miércoles": {"1": {"Monitor": {Status: "operational_full"}}},
			"Jueves":    {"1": {"Monitor": {Status: "operational_full"}}},
			"Viernes":   {"1": {"Monitor": {Status: "operational_full"}}},
		},
		ServiceSignerName: "Jefe de sala",
		ServiceSignature:  "firma-servicio",
		RoundSignerName:   "tech.lopez",
		RoundSignature:    "firma-ronda",
	}}
	path := filepath.Join(t.TempDir(), "legacy.json")
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	report, err := engine.RunSource(ctx, consolidate.FileSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Failed)

	recs, err := appStore.ListConsolidatedRecords(ctx,
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.KindWeekly, recs[0].Kind)

	carried, err := sigLedger.ListFor(ctx, model.EntityConsolidatedRecord, recs[0].ID)
	require.NoError(t, err)
	assert.Len(t, carried, 2)

	// The carried-over slots are full; a late signer is rejected.
	_, err = sigLedger.Attach(ctx, model.EntityConsolidatedRecord, recs[0].ID, model.RoleService, "Otro jefe", "p")
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	// Second pass over the same file changes nothing.
	report, err = engine.RunSource(ctx, consolidate.FileSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Skipped)

	var sigCount int64
	testDB.Model(&model.Signature{}).Count(&sigCount)
	assert.Equal(t, int64(6), sigCount, "4 on the entry, 2 carried over, none duplicated")
}
