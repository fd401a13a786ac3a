// Package stats rolls reconciled records up into dashboard figures.
package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"logistics-sla-reconciler/internal/dates"
	"logistics-sla-reconciler/internal/models"
)

// Calculate summarises records as of the given time. An empty slice yields
// all zeros.
func Calculate(records []models.MasterRecord, at time.Time) models.DashboardStats {
	s := models.DashboardStats{
		Date:  at,
		Total: len(records),
	}

	var cycleDays, cycleCount int64
	for i := range records {
		r := &records[i]

		if r.IsEntregado {
			s.Delivered++
		}
		if r.IsGhost {
			s.Ghosts++
		}
		if r.IsHuerfano {
			s.Huerfanos++
		}
		if r.IsDevuelto {
			s.Returned++
		}
		switch r.Status {
		case models.StatusEstancado:
			s.Stagnant++
		case models.StatusNoEntregadoDemorado:
			s.Delayed++
		}

		if r.IsOpen() {
			switch r.RiskLevel {
			case models.RiskCritical:
				s.OpenRisk.Critical++
			case models.RiskMedium:
				s.OpenRisk.Medium++
			default:
				s.OpenRisk.Low++
			}
		}

		if r.IsEntregado {
			start := firstOf(r.FechaPI, r.FechaGE)
			end := firstOf(r.Fecha1raVisita, r.FechaAR)
			if !start.IsZero() && !end.IsZero() {
				cycleDays += int64(dates.BusinessDays(start, end))
				cycleCount++
			}
		}
	}

	s.PerformanceRate = ratio(int64(s.Delivered)*100, int64(s.Total))
	s.AvgCycleTime = ratio(cycleDays, cycleCount)
	return s
}

// ratio divides and rounds to one decimal; a zero denominator yields 0
func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(num).
		DivRound(decimal.NewFromInt(den), 4).
		Round(1).
		InexactFloat64()
}

func firstOf(ts ...*time.Time) time.Time {
	for _, t := range ts {
		if t != nil && !t.IsZero() {
			return *t
		}
	}
	return time.Time{}
}

// NewSnapshot wraps stats for history retention by the caller
func NewSnapshot(s models.DashboardStats, fileName string, savedAt time.Time) models.Snapshot {
	return models.Snapshot{
		ID:       uuid.NewString(),
		SavedAt:  savedAt,
		FileName: fileName,
		Stats:    s,
	}
}
