package consolidate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Leaf is the innermost value of the legacy nested structure: one
// equipment's status in one room on one weekday.
type Leaf struct {
	Status      string `json:"status"`
	Observation string `json:"observation"`
}

// WeeklyRecord is one legacy weekly source record: a week-anchor date, a
// weekday → room → equipment → leaf nesting, and the two denormalized
// signer fields the old schema kept flat on the record.
type WeeklyRecord struct {
	ID     string `json:"id"`
	Actor  string `json:"actor"`
	Anchor string `json:"anchor"` // YYYY-MM-DD, must be a Monday

	Days map[string]map[string]map[string]Leaf `json:"days"`

	ServiceSignerName string `json:"service_signer_name"`
	ServiceSignature  string `json:"service_signature"`
	RoundSignerName   string `json:"round_signer_name"`
	RoundSignature    string `json:"round_signature"`
}

// AnchorDate parses the record's week-anchor date.
func (r WeeklyRecord) AnchorDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", r.Anchor)
	if err != nil {
		return time.Time{}, fmt.Errorf("anchor %q: %w", r.Anchor, err)
	}
	return t, nil
}

// Source yields legacy weekly records for a consolidation run. A second
// legacy shape, if one is confirmed to exist, becomes another implementation
// of this interface feeding the same engine.
type Source interface {
	Load(ctx context.Context) ([]WeeklyRecord, error)
}

// FileSource reads weekly records from a JSON array on disk.
type FileSource struct {
	Path string
}

func (f FileSource) Load(_ context.Context) ([]WeeklyRecord, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read legacy source %s: %w", f.Path, err)
	}
	var records []WeeklyRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode legacy source %s: %w", f.Path, err)
	}
	return records, nil
}
