// Package consolidate transforms legacy weekly surgery records into unified
// consolidated records plus ledger-managed signatures. Runs are idempotent:
// every output carries a deterministic source key and re-running a batch
// skips everything already materialized.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"rounds-backend/internal/ledger"
	"rounds-backend/internal/model"
	"rounds-backend/internal/schema"
	"rounds-backend/internal/store"
)

// ErrInvalidDate marks leaf errors caused by a malformed weekday name or
// anchor date rather than bad leaf content.
var ErrInvalidDate = errors.New("invalid date derivation")

// LeafError records one leaf of a source record that could not be converted.
// The batch continues past it.
type LeafError struct {
	Weekday   string
	Room      string
	Equipment string
	Reason    string
	Err       error // ErrInvalidDate for date problems, nil otherwise
}

func (e LeafError) Error() string {
	if e.Weekday == "" && e.Room == "" {
		return e.Reason
	}
	return fmt.Sprintf("leaf %s/%s/%s: %s", e.Weekday, e.Room, e.Equipment, e.Reason)
}

func (e LeafError) Unwrap() error { return e.Err }

// SourceReport aggregates the outcome of one legacy source record.
type SourceReport struct {
	SourceID string
	Created  int
	Skipped  int
	Errors   []LeafError
}

// Report is the outcome of a whole consolidation run.
type Report struct {
	RunID   string
	Created int
	Skipped int
	Failed  int
	Sources []SourceReport
}

// Options tunes a consolidation run.
type Options struct {
	Workers   int        // concurrent source records, default 4
	WriteRate rate.Limit // record writes per second, default 50
}

// Engine is the consolidation batch job.
type Engine struct {
	store   store.Store
	ledger  *ledger.Ledger
	log     *zap.Logger
	limiter *rate.Limiter
	workers int
}

// New creates an engine writing through the given store and ledger.
func New(st store.Store, lg *ledger.Ledger, logger *zap.Logger, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.WriteRate <= 0 {
		opts.WriteRate = 50
	}
	return &Engine{
		store:   st,
		ledger:  lg,
		log:     logger,
		limiter: rate.NewLimiter(opts.WriteRate, 1),
		workers: opts.Workers,
	}
}

// RunSource loads a legacy source and consolidates it.
func (e *Engine) RunSource(ctx context.Context, src Source) (Report, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return Report{}, err
	}
	return e.Run(ctx, records)
}

// Run consolidates the given legacy records. Source records fan out over a
// worker pool; distinct records touch distinct idempotence keys, so write
// serialization falls to the source-key unique index. Cancelling the context
// stops dispatching after the in-flight records; a later run resumes where
// this one stopped because materialized keys are skipped.
func (e *Engine) Run(ctx context.Context, records []WeeklyRecord) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	e.log.Info("consolidation run starting",
		zap.String("run_id", report.RunID),
		zap.Int("sources", len(records)),
		zap.Int("workers", e.workers))

	jobs := make(chan WeeklyRecord)
	results := make(chan SourceReport, len(records))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- e.consolidateSource(ctx, rec)
			}
		}()
	}

dispatch:
	for _, rec := range records {
		select {
		case jobs <- rec:
		case <-ctx.Done():
			e.log.Warn("consolidation run interrupted, stopping after in-flight records",
				zap.String("run_id", report.RunID))
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	for sr := range results {
		report.Created += sr.Created
		report.Skipped += sr.Skipped
		report.Failed += len(sr.Errors)
		report.Sources = append(report.Sources, sr)
	}
	sort.Slice(report.Sources, func(i, j int) bool {
		return report.Sources[i].SourceID < report.Sources[j].SourceID
	})

	e.log.Info("consolidation run finished",
		zap.String("run_id", report.RunID),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed_leaves", report.Failed))
	return report, nil
}

type groupKey struct {
	room      string
	equipment string
}

type dayLeaf struct {
	offset int
	leaf   Leaf
}

// consolidateSource converts one legacy weekly record. A (room, equipment)
// group collapses to a single weekly record when every present weekday
// carries the same status and observation; any variation emits one daily
// record per present weekday so no distinct status is lost.
func (e *Engine) consolidateSource(ctx context.Context, rec WeeklyRecord) SourceReport {
	rep := SourceReport{SourceID: rec.ID}

	anchor, err := rec.AnchorDate()
	if err != nil {
		rep.Errors = append(rep.Errors, LeafError{Reason: err.Error(), Err: ErrInvalidDate})
		return rep
	}
	if anchor.Weekday() != model.WeekAnchor {
		rep.Errors = append(rep.Errors, LeafError{
			Reason: fmt.Sprintf("anchor %s is not a %s", rec.Anchor, model.WeekAnchor),
			Err:    ErrInvalidDate,
		})
		return rep
	}

	groups := make(map[groupKey][]dayLeaf)
	for weekday, roomLeaves := range rec.Days {
		_, offset, ok := schema.CanonicalWeekday(weekday)
		if !ok {
			for room, equipLeaves := range roomLeaves {
				for equip := range equipLeaves {
					rep.Errors = append(rep.Errors, LeafError{
						Weekday: weekday, Room: room, Equipment: equip,
						Reason: "unknown weekday identifier",
						Err:    ErrInvalidDate,
					})
				}
			}
			continue
		}
		for room, equipLeaves := range roomLeaves {
			for equip, leaf := range equipLeaves {
				if !model.ValidEquipmentStatus(model.EquipmentStatus(leaf.Status)) {
					rep.Errors = append(rep.Errors, LeafError{
						Weekday: weekday, Room: room, Equipment: equip,
						Reason: fmt.Sprintf("unknown equipment status %q", leaf.Status),
					})
					continue
				}
				key := groupKey{room: room, equipment: equip}
				groups[key] = append(groups[key], dayLeaf{offset: offset, leaf: leaf})
			}
		}
	}

	if err := e.upsertCatalog(ctx, groups); err != nil {
		rep.Errors = append(rep.Errors, LeafError{Reason: fmt.Sprintf("catalog upsert: %v", err)})
		return rep
	}

	for key, leaves := range groups {
		sort.Slice(leaves, func(i, j int) bool { return leaves[i].offset < leaves[j].offset })

		for _, out := range e.planGroup(rec, anchor, key, leaves) {
			created, err := e.materialize(ctx, rec, out)
			if err != nil {
				if ctx.Err() != nil {
					return rep
				}
				rep.Errors = append(rep.Errors, LeafError{
					Room: key.room, Equipment: key.equipment,
					Reason: err.Error(),
				})
				continue
			}
			if created {
				rep.Created++
			} else {
				rep.Skipped++
			}
		}
	}
	return rep
}

// planGroup decides the unified representation for one (room, equipment)
// group and returns the records to write, source keys included. Only
// Monday..Friday leaves can collapse into a weekly span; Saturday and Sunday
// leaves fall outside it and always materialize as daily records at their
// own date.
func (e *Engine) planGroup(rec WeeklyRecord, anchor time.Time, key groupKey, leaves []dayLeaf) []model.ConsolidatedRecord {
	var week, weekend []dayLeaf
	for _, dl := range leaves {
		if dl.offset <= 4 {
			week = append(week, dl)
		} else {
			weekend = append(weekend, dl)
		}
	}

	var out []model.ConsolidatedRecord
	if len(week) > 0 && uniformLeaves(week) {
		end := anchor.AddDate(0, 0, 4) // Monday..Friday span
		out = append(out, model.ConsolidatedRecord{
			Actor:         rec.Actor,
			Kind:          model.KindWeekly,
			StartDate:     anchor,
			EndDate:       &end,
			RoomNumber:    key.room,
			EquipmentName: key.equipment,
			Status:        model.EquipmentStatus(week[0].leaf.Status),
			Observation:   week[0].leaf.Observation,
			SourceKey:     sourceKey(rec.ID, key, "week"),
		})
	} else {
		for _, dl := range week {
			out = append(out, dailyRecord(rec, anchor, key, dl))
		}
	}
	for _, dl := range weekend {
		out = append(out, dailyRecord(rec, anchor, key, dl))
	}
	return out
}

func uniformLeaves(leaves []dayLeaf) bool {
	for _, dl := range leaves[1:] {
		if dl.leaf != leaves[0].leaf {
			return false
		}
	}
	return true
}

func dailyRecord(rec WeeklyRecord, anchor time.Time, key groupKey, dl dayLeaf) model.ConsolidatedRecord {
	return model.ConsolidatedRecord{
		Actor:         rec.Actor,
		Kind:          model.KindDaily,
		StartDate:     anchor.AddDate(0, 0, dl.offset),
		RoomNumber:    key.room,
		EquipmentName: key.equipment,
		Status:        model.EquipmentStatus(dl.leaf.Status),
		Observation:   dl.leaf.Observation,
		SourceKey:     sourceKey(rec.ID, key, schema.Weekdays[dl.offset]),
	}
}

// materialize writes one consolidated record unless its source key already
// exists, then carries the legacy signer pair over through the ledger.
// Signature carryover runs on the skip path too, so a run interrupted
// between record and signatures heals on the next pass.
func (e *Engine) materialize(ctx context.Context, src WeeklyRecord, rec model.ConsolidatedRecord) (bool, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return false, err
	}

	key := *rec.SourceKey
	created := true
	existing, err := e.store.FindConsolidatedBySourceKey(ctx, key)
	switch {
	case err == nil:
		created = false
		rec = existing
	case errors.Is(err, store.ErrNotFound):
		rec, err = e.store.CreateConsolidatedRecord(ctx, rec)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a parallel run; the key is materialized.
			raced, ferr := e.store.FindConsolidatedBySourceKey(ctx, key)
			if ferr != nil {
				return false, ferr
			}
			created, rec = false, raced
		} else if err != nil {
			return false, err
		}
	default:
		return false, err
	}

	if err := e.carryOverSigners(ctx, src, rec.ID); err != nil {
		return created, err
	}
	return created, nil
}

func (e *Engine) carryOverSigners(ctx context.Context, src WeeklyRecord, recordID int64) error {
	signers := []struct {
		role    model.SignatureRole
		name    string
		payload string
	}{
		{model.RoleService, src.ServiceSignerName, src.ServiceSignature},
		{model.RoleRound, src.RoundSignerName, src.RoundSignature},
	}
	for _, s := range signers {
		if s.name == "" {
			continue
		}
		_, err := e.ledger.Attach(ctx, model.EntityConsolidatedRecord, recordID, s.role, s.name, s.payload)
		if err != nil && !errors.Is(err, ledger.ErrCapacityExceeded) && !errors.Is(err, ledger.ErrUniquenessConflict) {
			return fmt.Errorf("carry over %s signature: %w", s.role, err)
		}
	}
	return nil
}

// upsertCatalog materializes room and equipment catalog entries referenced
// by the record's valid leaves. Legacy data knows surgery rooms by number
// and equipment by name only.
func (e *Engine) upsertCatalog(ctx context.Context, groups map[groupKey][]dayLeaf) error {
	roomSeen := make(map[string]bool)
	equipSeen := make(map[string]bool)
	var rooms []model.Room
	var equipment []model.Equipment
	for key := range groups {
		if !roomSeen[key.room] {
			roomSeen[key.room] = true
			rooms = append(rooms, model.Room{Number: key.room, Type: model.RoomSurgery, Active: true})
		}
		if !equipSeen[key.equipment] {
			equipSeen[key.equipment] = true
			equipment = append(equipment, model.Equipment{
				Name:   key.equipment,
				Status: model.StatusOperationalFull,
				Active: true,
			})
		}
	}
	if err := e.store.UpsertRooms(ctx, rooms); err != nil {
		return err
	}
	return e.store.UpsertEquipment(ctx, equipment)
}

func sourceKey(sourceID string, key groupKey, marker string) *string {
	k := strings.Join([]string{sourceID, key.room, key.equipment, marker}, "|")
	return &k
}
