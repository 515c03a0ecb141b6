// Package ledger attaches signature attestations to signable entities
// through a generic (entity kind, entity id) association, enforcing role-
// and category-dependent multiplicity. The ledger is append-only: no update
// or delete exists, corrections are new attestations.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rounds-backend/internal/model"
)

var (
	// ErrCapacityExceeded means every slot for the role is already filled.
	ErrCapacityExceeded = errors.New("signature capacity exceeded")
	// ErrUniquenessConflict means a concurrent attach won the same slot.
	// The caller's intent is retryable and will then observe the slot filled.
	ErrUniquenessConflict = errors.New("signature slot already taken")
)

// CategoryResolver looks up the service category of a signable entity by
// identity. The store implements it; the ledger never reads entity internals.
type CategoryResolver interface {
	EntityCategory(ctx context.Context, kind model.EntityKind, id int64) (model.ServiceCategory, error)
}

// MaxSigners is the multiplicity rule: how many signatures of role may
// attach to an entity of the given kind and category. Adding a category is a
// change here, not a new entity type.
func MaxSigners(kind model.EntityKind, category model.ServiceCategory, role model.SignatureRole) int {
	if role == model.RoleRound {
		return 1
	}
	if kind == model.EntityRoundEntry && category == model.CategoryOncology {
		return 3
	}
	return 1
}

// Ledger owns the signature table.
type Ledger struct {
	db         *gorm.DB
	categories CategoryResolver
}

// New creates a ledger over the given database.
func New(db *gorm.DB, categories CategoryResolver) *Ledger {
	return &Ledger{db: db, categories: categories}
}

// Attach records a signature in the next free sequence slot for
// (kind, id, role). The capacity check and the insert run in one
// transaction, and the slot unique index backs the check: of two concurrent
// attempts at the same slot exactly one succeeds, the other sees
// ErrUniquenessConflict.
func (l *Ledger) Attach(ctx context.Context, kind model.EntityKind, id int64, role model.SignatureRole, signerName, payload string) (model.Signature, error) {
	if !model.ValidEntityKind(kind) {
		return model.Signature{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	if !model.ValidSignatureRole(role) {
		return model.Signature{}, fmt.Errorf("unknown signature role %q", role)
	}

	category, err := l.categories.EntityCategory(ctx, kind, id)
	if err != nil {
		return model.Signature{}, fmt.Errorf("resolve category for %s/%d: %w", kind, id, err)
	}
	max := MaxSigners(kind, category, role)

	sig := model.Signature{
		ID:         uuid.NewString(),
		EntityKind: kind,
		EntityID:   id,
		Role:       role,
		SignerName: signerName,
		Payload:    payload,
		CreatedAt:  time.Now(),
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&model.Signature{}).
			Where("entity_kind = ? AND entity_id = ? AND role = ?", kind, id, role).
			Count(&taken).Error; err != nil {
			return fmt.Errorf("count signature slots: %w", err)
		}
		if taken >= int64(max) {
			return fmt.Errorf("role %s on %s/%d already has %d of %d signatures: %w",
				role, kind, id, taken, max, ErrCapacityExceeded)
		}
		sig.Seq = int(taken)
		if err := tx.Create(&sig).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("slot %s/%d %s#%d: %w", kind, id, role, sig.Seq, ErrUniquenessConflict)
			}
			return fmt.Errorf("create signature: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Signature{}, err
	}
	return sig, nil
}

// ListFor returns every signature attached to an entity, grouped by role and
// ordered by sequence, so consumers can render "service signer #2" without
// the entity carrying dedicated columns.
func (l *Ledger) ListFor(ctx context.Context, kind model.EntityKind, id int64) ([]model.Signature, error) {
	var sigs []model.Signature
	err := l.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", kind, id).
		Order("role ASC, seq ASC").
		Find(&sigs).Error
	if err != nil {
		return nil, fmt.Errorf("list signatures for %s/%d: %w", kind, id, err)
	}
	return sigs, nil
}
