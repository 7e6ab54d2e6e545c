package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCard reads a JSON rate card from disk. The card carries the full
// snapshot: services, countries, profiles, brackets and surcharge rules.
func LoadCard(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open rate card: %w", err)
	}
	defer f.Close()

	var s Snapshot
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode rate card %s: %w", path, err)
	}
	return s, nil
}

// NewMemoryFromFile is the usual bootstrap path when the service runs
// without a Postgres-backed catalog.
func NewMemoryFromFile(path string) (*Memory, error) {
	snap, err := LoadCard(path)
	if err != nil {
		return nil, err
	}
	return NewMemory(snap)
}
