// Package crosswalk maps state-native district identifiers to canonical
// federal NCES identifiers. Every state import runs through this lookup
// before its rows can land in the source registry.
package crosswalk

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/edmetrics/lct/internal/store"
	"github.com/edmetrics/lct/internal/util"
)

// Resolver answers state-id to NCES-id lookups, with a normalized
// district-name fallback for rows whose state id is missing or stale.
type Resolver struct {
	store *store.Store

	// nameIndex is lazily built per state: normalized name -> NCES id.
	nameIndex map[string]map[string]string
}

// New creates a Resolver over the given store.
func New(st *store.Store) *Resolver {
	return &Resolver{
		store:     st,
		nameIndex: make(map[string]map[string]string),
	}
}

// Lookup resolves a state-native district id to its NCES id. When the id
// is unmapped it falls back to a normalized-name match within the state;
// a miss on both paths returns ErrUnmappedDistrict, never a guess.
func (r *Resolver) Lookup(state, stateDistrictID, districtName string) (string, error) {
	entry, err := r.store.GetCrosswalkEntry(state, stateDistrictID)
	if err != nil {
		return "", fmt.Errorf("crosswalk lookup failed: %w", err)
	}
	if entry != nil {
		return entry.NCESID, nil
	}

	if districtName != "" {
		if ncesID, ok := r.lookupByName(state, districtName); ok {
			util.DebugLog("crosswalk: %s/%s resolved by name match (%s)", state, stateDistrictID, districtName)
			return ncesID, nil
		}
	}

	return "", fmt.Errorf("%w: %s/%s", util.ErrUnmappedDistrict, state, stateDistrictID)
}

func (r *Resolver) lookupByName(state, name string) (string, bool) {
	index, ok := r.nameIndex[state]
	if !ok {
		entries, err := r.store.GetCrosswalkEntriesByState(state)
		if err != nil {
			util.WarnLog("crosswalk: failed to build name index for %s: %v", state, err)
			return "", false
		}

		index = make(map[string]string, len(entries))
		for _, e := range entries {
			if e.DistrictName == "" {
				continue
			}
			key := NormalizeName(e.DistrictName)
			// First mapping wins; ambiguous names are dropped from the
			// index so a collision can never resolve to the wrong district.
			if existing, dup := index[key]; dup && existing != e.NCESID {
				index[key] = ""
				continue
			}
			index[key] = e.NCESID
		}
		r.nameIndex[state] = index
	}

	ncesID, ok := index[NormalizeName(name)]
	return ncesID, ok && ncesID != ""
}

// NormalizeName folds a district name for matching: Unicode NFC, lowercase,
// punctuation stripped, common suffixes ("school district", "sd") removed,
// whitespace collapsed.
func NormalizeName(name string) string {
	s := norm.NFC.String(name)
	s = strings.ToLower(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '/':
			b.WriteRune(' ')
		}
	}
	s = b.String()

	for _, suffix := range []string{
		" independent school district",
		" unified school district",
		" public schools",
		" school district",
		" schools",
		" isd",
		" usd",
		" sd",
	} {
		s = strings.TrimSuffix(s, suffix)
	}

	return strings.Join(strings.Fields(s), " ")
}
