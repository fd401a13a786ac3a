package matcher

import (
	"strings"

	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/rows"
)

// DefaultSLAHours applies when a postal code has no reference or no target
const DefaultSLAHours = 48

// minCarrierKeyLength is the shortest canonical id registered for a carrier row
const minCarrierKeyLength = 3

// SLAIndex maps postal codes to their SLA reference rows
type SLAIndex struct {
	// ByPostalCode holds the last reference row seen for each postal code
	ByPostalCode map[string]rows.Row

	// AllRows holds all normalized reference rows
	AllRows []rows.Row
}

// NewSLAIndex creates a new SLA index from normalized reference rows
func NewSLAIndex(reference []rows.Row) *SLAIndex {
	index := &SLAIndex{
		ByPostalCode: make(map[string]rows.Row, len(reference)),
		AllRows:      reference,
	}

	index.buildIndexes()
	return index
}

// buildIndexes registers every row under its postal code, last one wins
func (si *SLAIndex) buildIndexes() {
	for _, row := range si.AllRows {
		cp := row.String(rows.PostalCodeKeys...)
		if cp == "" {
			continue
		}
		si.ByPostalCode[cp] = row
	}
}

// Lookup returns the SLA reference for a postal code. A reference without
// a usable target keeps DefaultSLAHours.
func (si *SLAIndex) Lookup(postalCode string) (models.SLAReference, bool) {
	if si == nil {
		return models.SLAReference{}, false
	}
	row, ok := si.ByPostalCode[strings.TrimSpace(postalCode)]
	if !ok {
		return models.SLAReference{}, false
	}

	hours := float64(DefaultSLAHours)
	if d, ok := row.Number(rows.SLAHoursKeys...); ok && d.IsPositive() {
		hours = d.InexactFloat64()
	}

	return models.SLAReference{
		PostalCode:  strings.TrimSpace(postalCode),
		TargetHours: hours,
		Locality:    row.String(rows.SLALocalityKeys...),
		Province:    row.String(rows.SLAProvinceKeys...),
	}, true
}

// Len returns the number of indexed postal codes
func (si *SLAIndex) Len() int {
	if si == nil {
		return 0
	}
	return len(si.ByPostalCode)
}

// carrierEntry is shared by every key registered for the same carrier row
type carrierEntry struct {
	row     rows.Row
	matched bool
}

// CarrierIndex maps canonical ids to carrier rows and tracks which rows were
// claimed by an internal row during one reconciliation run. It is not safe
// for concurrent use.
type CarrierIndex struct {
	byKey map[string]*carrierEntry
	keys  []string
}

// Orphan is a carrier row that no internal row claimed
type Orphan struct {
	Key string
	Row rows.Row
}

// NewCarrierIndex creates a new carrier index from normalized carrier rows
func NewCarrierIndex(carrier []rows.Row) *CarrierIndex {
	index := &CarrierIndex{
		byKey: make(map[string]*carrierEntry, len(carrier)),
	}

	index.buildIndexes(carrier)
	return index
}

// buildIndexes registers each id column of each row. A key seen again is
// repointed to the newer row but keeps its original position.
func (ci *CarrierIndex) buildIndexes(carrier []rows.Row) {
	for _, row := range carrier {
		entry := &carrierEntry{row: row}
		for _, column := range rows.CarrierIDKeys {
			value, ok := row.Lookup(column)
			if !ok {
				continue
			}
			key := rows.SanitizeID(value)
			if len(key) < minCarrierKeyLength {
				continue
			}
			if _, exists := ci.byKey[key]; !exists {
				ci.keys = append(ci.keys, key)
			}
			ci.byKey[key] = entry
		}
	}
}

// Claim returns the carrier row registered under the first key that hits
// and marks it matched
func (ci *CarrierIndex) Claim(keys ...string) (rows.Row, bool) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if entry, ok := ci.byKey[key]; ok {
			entry.matched = true
			return entry.row, true
		}
	}
	return nil, false
}

// Unclaimed returns carrier rows never claimed, in key registration order.
// Keys for which consumed reports true are skipped. Each row is returned
// once and is marked matched afterwards.
func (ci *CarrierIndex) Unclaimed(consumed func(key string) bool) []Orphan {
	var orphans []Orphan
	for _, key := range ci.keys {
		entry := ci.byKey[key]
		if entry.matched {
			continue
		}
		if consumed != nil && consumed(key) {
			continue
		}
		entry.matched = true
		orphans = append(orphans, Orphan{Key: key, Row: entry.row})
	}
	return orphans
}

// Len returns the number of registered keys
func (ci *CarrierIndex) Len() int {
	return len(ci.keys)
}
