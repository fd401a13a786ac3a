package stats

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/rows"
)

// editOptions counts a substitution as one edit
var editOptions = func() levenshtein.Options {
	o := levenshtein.DefaultOptions
	o.SubCost = 1
	return o
}()

// NearMissOptions bound the ghost to orphan comparison
type NearMissOptions struct {
	// MaxDistance is the largest edit distance reported
	MaxDistance int
	// MinLength skips canonical ids shorter than this
	MinLength int
	// Limit caps the number of pairs returned; 0 means no cap
	Limit int
}

// DefaultNearMissOptions returns single-edit matching on ids of 5+ characters
func DefaultNearMissOptions() NearMissOptions {
	return NearMissOptions{MaxDistance: 1, MinLength: 5, Limit: 50}
}

// NearMiss pairs a ghost with an orphan whose ids differ by a few edits,
// usually a typo in one of the source sheets
type NearMiss struct {
	GhostID  string `json:"ghostId"`
	OrphanID string `json:"orphanId"`
	Distance int    `json:"distance"`
}

// NearMisses lists ghost and orphan pairs whose canonical ids are within
// MaxDistance edits. Records are not modified.
func NearMisses(records []models.MasterRecord, opts NearMissOptions) []NearMiss {
	if opts.MaxDistance <= 0 {
		return nil
	}

	type candidate struct {
		id        string
		canonical []rune
	}
	var ghosts, orphans []candidate
	for i := range records {
		r := &records[i]
		canonical := rows.SanitizeID(r.ID)
		if len(canonical) < opts.MinLength {
			continue
		}
		switch {
		case r.IsGhost:
			ghosts = append(ghosts, candidate{r.ID, []rune(canonical)})
		case r.IsHuerfano:
			orphans = append(orphans, candidate{r.ID, []rune(canonical)})
		}
	}

	var out []NearMiss
	for _, g := range ghosts {
		for _, o := range orphans {
			if abs(len(g.canonical)-len(o.canonical)) > opts.MaxDistance {
				continue
			}
			d := levenshtein.DistanceForStrings(g.canonical, o.canonical, editOptions)
			if d > opts.MaxDistance {
				continue
			}
			out = append(out, NearMiss{GhostID: g.id, OrphanID: o.id, Distance: d})
			if opts.Limit > 0 && len(out) >= opts.Limit {
				return out
			}
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
