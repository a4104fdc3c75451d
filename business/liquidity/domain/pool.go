// Package domain contains the core domain types for the liquidity context.
package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Venue identifies a DEX and its contract surface.
type Venue struct {
	Name     string         `json:"name"`
	Protocol string         `json:"protocol"` // e.g. "v3"
	Factory  common.Address `json:"factory"`
	Router   common.Address `json:"router"`
	Permit   common.Address `json:"permit"`
}

// PairToken is one side of a pool pair as reported by analytics.
type PairToken struct {
	Symbol  string         `json:"symbol"`
	Address common.Address `json:"address"`
}

// Key returns the token identifier used in pair keys.
func (t PairToken) Key() string {
	return fmt.Sprintf("%s-%s", t.Symbol, strings.ToLower(t.Address.Hex()))
}

// Pool is a liquidity pool as reported by a venue's analytics endpoint.
type Pool struct {
	Venue     string          `json:"venue"`
	Address   common.Address  `json:"address"`
	Token0    PairToken       `json:"token0"`
	Token1    PairToken       `json:"token1"`
	FeeTier   int64           `json:"feeTier"` // venue fee units (v3: hundredths of a bip)
	VolumeUSD decimal.Decimal `json:"volumeUSD"`
	TxCount   int64           `json:"txCount"`
}

// PairKey identifies one directed trading pair. Both directions of a
// pool get their own key so lookups never have to invert.
type PairKey struct {
	In  string
	Out string
}

// NewPairKey builds the key for a directed hop.
func NewPairKey(in, out PairToken) PairKey {
	return PairKey{In: in.Key(), Out: out.Key()}
}

// String renders the key as "{in}/{out}".
func (k PairKey) String() string {
	return k.In + "/" + k.Out
}

// PoolFeeTierEntry is one admissible pool for a directed pair.
type PoolFeeTierEntry struct {
	Venue    string         `json:"venue"`
	Protocol string         `json:"protocol"`
	Factory  common.Address `json:"factory"`
	Router   common.Address `json:"router"`
	Permit   common.Address `json:"permit"`
	Pool     common.Address `json:"pool"`
	FeeTier  int64          `json:"feeTier"`
}

// FeeTierMap maps directed pairs to their admissible pools, sorted
// ascending by fee tier.
type FeeTierMap map[PairKey][]PoolFeeTierEntry

// NewFeeTierMap builds the map from deduplicated pools, inserting both
// traversal directions of each pool.
func NewFeeTierMap(venue Venue, pools []Pool) FeeTierMap {
	m := make(FeeTierMap)
	for _, p := range pools {
		entry := PoolFeeTierEntry{
			Venue:    venue.Name,
			Protocol: venue.Protocol,
			Factory:  venue.Factory,
			Router:   venue.Router,
			Permit:   venue.Permit,
			Pool:     p.Address,
			FeeTier:  p.FeeTier,
		}
		m.insert(NewPairKey(p.Token0, p.Token1), entry)
		m.insert(NewPairKey(p.Token1, p.Token0), entry)
	}
	m.sortEntries()
	return m
}

func (m FeeTierMap) insert(key PairKey, entry PoolFeeTierEntry) {
	m[key] = append(m[key], entry)
}

func (m FeeTierMap) sortEntries() {
	for key := range m {
		entries := m[key]
		sort.Slice(entries, func(i, j int) bool { return entries[i].FeeTier < entries[j].FeeTier })
	}
}

// Candidates returns the entries for a directed pair, cheapest tier first.
func (m FeeTierMap) Candidates(key PairKey) []PoolFeeTierEntry {
	return m[key]
}

// Merge combines maps from several venues. Entry order within a pair
// stays fee-ascending across venues.
func Merge(maps ...FeeTierMap) FeeTierMap {
	out := make(FeeTierMap)
	for _, m := range maps {
		for key, entries := range m {
			out[key] = append(out[key], entries...)
		}
	}
	out.sortEntries()
	return out
}

// DedupePools unions pool listings and drops repeated pool addresses,
// keeping the first occurrence.
func DedupePools(lists ...[]Pool) []Pool {
	seen := make(map[common.Address]struct{})
	var out []Pool
	for _, list := range lists {
		for _, p := range list {
			if _, dup := seen[p.Address]; dup {
				continue
			}
			seen[p.Address] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
