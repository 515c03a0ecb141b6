package model

import "time"

// EntityKind names the record types signatures may attach to. The set is
// closed so the polymorphic association stays statically checkable.
type EntityKind string

const (
	EntityRoundEntry         EntityKind = "round_entry"
	EntityConsolidatedRecord EntityKind = "consolidated_record"
)

// ValidEntityKind reports whether k is a signable entity kind.
func ValidEntityKind(k EntityKind) bool {
	return k == EntityRoundEntry || k == EntityConsolidatedRecord
}

// SignatureRole is the attestation capacity of a signer.
type SignatureRole string

const (
	RoleService SignatureRole = "service" // personnel performing the work
	RoleRound   SignatureRole = "round"   // personnel conducting the round
)

// ValidSignatureRole reports whether r is a recognized role.
func ValidSignatureRole(r SignatureRole) bool {
	return r == RoleService || r == RoleRound
}

// Signature is a signed attestation attached to a signable entity. The
// (entity kind, entity id, role, seq) tuple is unique: no two signatures may
// occupy the same slot. Rows are never updated or deleted.
type Signature struct {
	ID         string        `gorm:"primaryKey;size:36"`
	EntityKind EntityKind    `gorm:"size:32;not null;uniqueIndex:idx_signature_slot;index:idx_signature_entity"`
	EntityID   int64         `gorm:"not null;uniqueIndex:idx_signature_slot;index:idx_signature_entity"`
	Role       SignatureRole `gorm:"size:16;not null;uniqueIndex:idx_signature_slot"`
	Seq        int           `gorm:"not null;uniqueIndex:idx_signature_slot"`
	SignerName string        `gorm:"size:100;not null"`
	Payload    string        `gorm:"type:text"` // opaque encoded signature artifact
	CreatedAt  time.Time     `gorm:"not null"`
}
