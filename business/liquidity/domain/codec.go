package domain

import (
	"encoding/json"
	"fmt"
)

// EncodePools serializes a deduplicated pool list for the cache store.
func EncodePools(pools []Pool) (string, error) {
	raw, err := json.Marshal(pools)
	if err != nil {
		return "", fmt.Errorf("encode pools: %w", err)
	}
	return string(raw), nil
}

// DecodePools deserializes a cached pool list.
func DecodePools(raw string) ([]Pool, error) {
	var pools []Pool
	if err := json.Unmarshal([]byte(raw), &pools); err != nil {
		return nil, fmt.Errorf("decode pools: %w", err)
	}
	return pools, nil
}
