package reconciler

import (
	"strings"
	"time"

	"logistics-sla-reconciler/internal/matcher"
	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/internal/scoring"
)

// DefaultMarketplaceSource is the "fuente" value whose ids are shared across brands
const DefaultMarketplaceSource = "TN"

// BrandRule prefixes ids of marketplace orders whose client name contains Match
type BrandRule struct {
	Match  string `json:"match" yaml:"match" mapstructure:"match"`
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// DefaultBrandRules returns the brand prefixes applied to marketplace orders
func DefaultBrandRules() []BrandRule {
	return []BrandRule{
		{Match: "ANKER", Prefix: "ANKER"},
		{Match: "TONI", Prefix: "TONIP"},
		{Match: "AJAX", Prefix: "AJAX"},
	}
}

// Options tune one reconciliation run
type Options struct {
	// Now is the reference time; the zero value means the wall clock
	Now time.Time
	// Location resolves date-only cells; nil means time.Local
	Location          *time.Location
	MarketplaceSource string
	BrandRules        []BrandRule
}

// DefaultOptions returns options with the default marketplace rules
func DefaultOptions() Options {
	return Options{
		Location:          time.Local,
		MarketplaceSource: DefaultMarketplaceSource,
		BrandRules:        DefaultBrandRules(),
	}
}

// Outcome is the product of one reconciliation run
type Outcome struct {
	Records []models.MasterRecord

	// Skipped counts internal rows without a usable identifier
	Skipped int
	// Duplicates counts internal rows whose canonical id was already seen
	Duplicates int
	// Matched counts internal rows that found a carrier row
	Matched int
	// Orphans counts carrier rows no internal row claimed
	Orphans int
}

// Reconcile matches internal rows against carrier rows and scores every
// shipment. Records come out in internal row order followed by orphans in
// carrier registration order. Inputs are never modified.
func Reconcile(internal, carrier, reference []rows.Row, opts Options) Outcome {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	slaIndex := matcher.NewSLAIndex(rows.NormalizeAll(reference))
	carrierIndex := matcher.NewCarrierIndex(rows.NormalizeAll(carrier))

	out := Outcome{Records: make([]models.MasterRecord, 0, len(internal))}
	processed := make(map[string]struct{}, len(internal))

	for _, raw := range internal {
		row := rows.Normalize(raw)

		originalID := rows.InternalID(row)
		if originalID == "" || originalID == rows.UndefinedID {
			out.Skipped++
			continue
		}

		client := rows.Client(row, rows.ClientKeys, rows.UnknownClient)
		source := strings.ToUpper(row.String(rows.SourceKeys...))
		id := applyBrandPrefix(originalID, client, source, opts)

		canonical := rows.SanitizeID(id)
		if canonical == "" {
			out.Skipped++
			continue
		}
		if _, seen := processed[canonical]; seen {
			out.Duplicates++
			continue
		}
		processed[canonical] = struct{}{}

		merged := row
		carrierRow, matched := carrierIndex.Claim(canonical, rows.SanitizeID(originalID))
		if matched {
			merged = rows.Merge(row, carrierRow)
			out.Matched++
		}

		out.Records = append(out.Records, scoring.Score(scoring.Input{
			Row:             merged,
			HasCarrierMatch: matched,
			SLA:             slaIndex,
			ID:              id,
			OriginalID:      originalID,
			Client:          client,
			Now:             now,
			Location:        loc,
		}))
	}

	consumed := func(key string) bool {
		_, ok := processed[key]
		return ok
	}
	for _, orphan := range carrierIndex.Unclaimed(consumed) {
		processed[orphan.Key] = struct{}{}

		id := rows.InternalID(orphan.Row)
		if id == "" {
			id = orphan.Key
		}

		out.Records = append(out.Records, scoring.Score(scoring.Input{
			Row:             orphan.Row,
			HasCarrierMatch: true,
			IsOrphan:        true,
			SLA:             slaIndex,
			ID:              id,
			OriginalID:      id,
			Client:          rows.Client(orphan.Row, rows.OrphanClientKeys, rows.CarrierOnlyClient),
			Now:             now,
			Location:        loc,
		}))
		out.Orphans++
	}

	return out
}

// applyBrandPrefix rewrites marketplace ids that several brands share.
// The first rule whose name matches and whose prefix is not already
// present wins.
func applyBrandPrefix(id, client, source string, opts Options) string {
	if opts.MarketplaceSource == "" || source != strings.ToUpper(opts.MarketplaceSource) {
		return id
	}
	upperID := strings.ToUpper(id)
	for _, rule := range opts.BrandRules {
		match := strings.ToUpper(rule.Match)
		prefix := strings.ToUpper(rule.Prefix)
		if match == "" || prefix == "" {
			continue
		}
		if strings.Contains(client, match) && !strings.HasPrefix(upperID, prefix) {
			return rule.Prefix + id
		}
	}
	return id
}
