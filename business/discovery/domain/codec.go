package domain

import (
	"encoding/json"
	"fmt"

	"github.com/flashcycle/flashcycle/internal/token"
)

// cycleRecord is the persisted shape of one cycle. Token fields are
// stored raw so decoding reconstructs them field-for-field.
type cycleRecord struct {
	Tokens []token.Token `json:"tokens"`
}

// EncodeCycleSet serializes a cycle set for the cache store.
func EncodeCycleSet(set CycleSet) (string, error) {
	records := make(map[string][]cycleRecord, len(set))
	for start, cycles := range set {
		rs := make([]cycleRecord, len(cycles))
		for i, c := range cycles {
			rs[i] = cycleRecord{Tokens: c.Tokens}
		}
		records[start] = rs
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode cycle set: %w", err)
	}
	return string(raw), nil
}

// DecodeCycleSet deserializes a cached cycle set.
func DecodeCycleSet(raw string) (CycleSet, error) {
	var records map[string][]cycleRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode cycle set: %w", err)
	}

	set := make(CycleSet, len(records))
	for start, rs := range records {
		cycles := make([]TokenCycle, len(rs))
		for i, r := range rs {
			cycles[i] = TokenCycle{Tokens: r.Tokens}
		}
		set[start] = cycles
	}
	return set, nil
}
