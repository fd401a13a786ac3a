package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-sla-reconciler/internal/models"
)

var at = time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC)

func ptr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCalculateEmpty(t *testing.T) {
	s := Calculate(nil, at)

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.Delivered)
	assert.Equal(t, 0.0, s.PerformanceRate)
	assert.Equal(t, 0.0, s.AvgCycleTime)
	assert.Equal(t, models.RiskBreakdown{}, s.OpenRisk)
	assert.True(t, s.Date.Equal(at))
}

func TestCalculate(t *testing.T) {
	records := []models.MasterRecord{
		{
			IsEntregado:    true,
			Status:         models.StatusEnSLA,
			RiskLevel:      models.RiskLow,
			FechaPI:        ptr(2024, 1, 2),
			Fecha1raVisita: ptr(2024, 1, 4),
		},
		{
			IsEntregado: true,
			Status:      models.StatusEntregadoFueraDeSLA,
			RiskLevel:   models.RiskMedium,
			FechaGE:     ptr(2024, 1, 2),
			FechaAR:     ptr(2024, 1, 5),
		},
		{
			IsEntregado: true,
			Status:      models.StatusEnSLA,
			FechaPI:     ptr(2024, 1, 2),
		},
		{IsGhost: true, Status: models.StatusFantasma, RiskLevel: models.RiskCritical},
		{IsHuerfano: true, Status: models.StatusHuerfano, RiskLevel: models.RiskMedium},
		{Status: models.StatusEstancado, RiskLevel: models.RiskCritical},
		{Status: models.StatusNoEntregadoDemorado, RiskLevel: models.RiskCritical},
		{IsDevuelto: true, Status: models.StatusDevuelto, RiskLevel: models.RiskLow},
		{Status: models.StatusPendiente, RiskLevel: models.RiskLow},
	}

	s := Calculate(records, at)

	assert.Equal(t, 9, s.Total)
	assert.Equal(t, 3, s.Delivered)
	assert.Equal(t, 33.3, s.PerformanceRate)
	assert.Equal(t, 1, s.Ghosts)
	assert.Equal(t, 1, s.Huerfanos)
	assert.Equal(t, 1, s.Stagnant)
	assert.Equal(t, 1, s.Delayed)
	assert.Equal(t, 1, s.Returned)
	// cycles: Jan 2 -> Jan 4 = 2, Jan 2 -> Jan 5 = 3; third has no end
	assert.Equal(t, 2.5, s.AvgCycleTime)
	assert.Equal(t, models.RiskBreakdown{Critical: 3, Medium: 1, Low: 1}, s.OpenRisk)
}

func TestRatioRounding(t *testing.T) {
	assert.Equal(t, 66.7, ratio(200, 3))
	assert.Equal(t, 100.0, ratio(100, 1))
	assert.Equal(t, 0.0, ratio(5, 0))
}

func TestNewSnapshot(t *testing.T) {
	s := Calculate(nil, at)
	snap := NewSnapshot(s, "pedidos.xlsx", at)

	_, err := uuid.Parse(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "pedidos.xlsx", snap.FileName)

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded models.Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snap.ID, decoded.ID)
	assert.True(t, decoded.SavedAt.Equal(at))

	other := NewSnapshot(s, "pedidos.xlsx", at)
	assert.NotEqual(t, snap.ID, other.ID)
}

func TestNearMisses(t *testing.T) {
	records := []models.MasterRecord{
		{ID: "PED10234", IsGhost: true},
		{ID: "PED1023", IsGhost: true},
		{ID: "AB12", IsGhost: true},
		{ID: "PED-10243", IsHuerfano: true},
		{ID: "PED10284", IsHuerfano: true},
		{ID: "AB13", IsHuerfano: true},
		{ID: "PED10234"},
	}

	got := NearMisses(records, DefaultNearMissOptions())

	// PED10234/PED-10243 is a transposition, two edits apart
	want := []NearMiss{
		{GhostID: "PED10234", OrphanID: "PED10284", Distance: 1},
		{GhostID: "PED1023", OrphanID: "PED-10243", Distance: 1},
	}
	assert.Equal(t, want, got)
}

func TestNearMissesOptions(t *testing.T) {
	records := []models.MasterRecord{
		{ID: "ABCDE1", IsGhost: true},
		{ID: "ABCDE2", IsHuerfano: true},
		{ID: "ABCDE3", IsHuerfano: true},
	}

	assert.Len(t, NearMisses(records, NearMissOptions{MaxDistance: 1, MinLength: 5}), 2)
	assert.Len(t, NearMisses(records, NearMissOptions{MaxDistance: 1, MinLength: 5, Limit: 1}), 1)
	assert.Empty(t, NearMisses(records, NearMissOptions{MaxDistance: 0}))
	assert.Empty(t, NearMisses(records, NearMissOptions{MaxDistance: 1, MinLength: 7}))
}
