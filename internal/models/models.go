package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the logistics state assigned to a reconciled shipment
type Status string

const (
	StatusEnSLA               Status = "EN_SLA"
	StatusFueraDeSLA          Status = "FUERA_DE_SLA"
	StatusEntregadoFueraDeSLA Status = "ENTREGADO_FUERA_DE_SLA"
	StatusNoEntregadoDemorado Status = "NO_ENTREGADO_DEMORADO"
	StatusEstancado           Status = "ESTANCADO"
	StatusDevuelto            Status = "DEVUELTO"
	StatusPendiente           Status = "PENDIENTE"
	StatusFantasma            Status = "FANTASMA_SIN_URBANO"
	StatusHuerfano            Status = "HUERFANO_URBANO"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is one of the known values
func (s Status) IsValid() bool {
	switch s {
	case StatusEnSLA, StatusFueraDeSLA, StatusEntregadoFueraDeSLA, StatusNoEntregadoDemorado,
		StatusEstancado, StatusDevuelto, StatusPendiente, StatusFantasma, StatusHuerfano:
		return true
	}
	return false
}

// RiskLevel classifies how urgently a shipment needs attention
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskCritical RiskLevel = "CRITICAL"
)

// String returns the string representation of RiskLevel
func (r RiskLevel) String() string {
	return string(r)
}

// Severity orders risk levels, higher is worse. Unknown levels return -1.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskCritical:
		return 2
	}
	return -1
}

// Integrity tells which sources a shipment was seen in
type Integrity string

const (
	IntegrityBoth   Integrity = "both"
	IntegrityGhost  Integrity = "ghost"
	IntegrityOrphan Integrity = "orphan"
)

// SLAReference is the turnaround target for one postal code
type SLAReference struct {
	PostalCode  string  `json:"postalCode"`
	TargetHours float64 `json:"targetHours"`
	Locality    string  `json:"locality,omitempty"`
	Province    string  `json:"province,omitempty"`
}

// MasterRecord is the unified, fully scored view of one shipment
type MasterRecord struct {
	ID          string          `json:"id"`
	OriginalID  string          `json:"originalId"`
	Client      string          `json:"client"`
	CP          string          `json:"cp"`
	Localidad   string          `json:"localidad"`
	Provincia   string          `json:"provincia"`
	Peso        decimal.Decimal `json:"peso"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`

	FechaPI        *time.Time `json:"fechaPI"`
	FechaGE        *time.Time `json:"fechaGE"`
	FechaAS        *time.Time `json:"fechaAS"`
	FechaAR        *time.Time `json:"fechaAR"`
	Fecha1raVisita *time.Time `json:"fecha1raVisita"`
	Fecha2daVisita *time.Time `json:"fecha2daVisita"`
	FechaLimite    *time.Time `json:"fechaLimite"`

	LastEventDate        *time.Time `json:"lastEventDate"`
	LastEventDescription string     `json:"lastEventDescription"`

	Motivo1      string `json:"motivo1"`
	Motivo2      string `json:"motivo2"`
	Estado       string `json:"estado"`
	TipoServicio string `json:"tipoServicio"`
	Observacion  string `json:"observacion"`

	SLAObjetivoHoras       float64 `json:"slaObjetivoHoras"`
	SLAObjetivoDias        int     `json:"slaObjetivoDias"`
	SLARealDias            int     `json:"slaRealDias"`
	DiasSinMovimiento      int     `json:"diasSinMovimiento"`
	DiasAtraso             int     `json:"diasAtraso"`
	SLAPorcentajeConsumido float64 `json:"slaPorcentajeConsumido"`
	DiasGestionInterna     int     `json:"diasGestionInterna"`
	DiasGestionCorreo      int     `json:"diasGestionCorreo"`

	IsEntregado    bool      `json:"isEntregado"`
	IsDevuelto     bool      `json:"isDevuelto"`
	IsGhost        bool      `json:"isGhost"`
	IsHuerfano     bool      `json:"isHuerfano"`
	IsEstancado    bool      `json:"isEstancado"`
	HasTwoVisits   bool      `json:"hasTwoVisits"`
	Status         Status    `json:"status"`
	RiskLevel      RiskLevel `json:"riskLevel"`
	AccionSugerida string    `json:"accionSugerida"`
}

// Integrity reports which of the mutually exclusive source states holds
func (r *MasterRecord) Integrity() Integrity {
	switch {
	case r.IsGhost:
		return IntegrityGhost
	case r.IsHuerfano:
		return IntegrityOrphan
	}
	return IntegrityBoth
}

// IsOpen reports whether the shipment is still in transit
func (r *MasterRecord) IsOpen() bool {
	return !r.IsEntregado && !r.IsDevuelto
}

// String returns a short representation of the record
func (r *MasterRecord) String() string {
	return fmt.Sprintf("MasterRecord{ID: %s, Client: %s, Status: %s, Risk: %s}",
		r.ID, r.Client, r.Status, r.RiskLevel)
}

// RiskBreakdown counts open shipments per risk level
type RiskBreakdown struct {
	Critical int `json:"critical"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// DashboardStats is a rollup over one reconciliation run
type DashboardStats struct {
	Date            time.Time     `json:"date"`
	Total           int           `json:"total"`
	Delivered       int           `json:"delivered"`
	PerformanceRate float64       `json:"performanceRate"`
	Ghosts          int           `json:"ghosts"`
	Stagnant        int           `json:"stagnant"`
	Delayed         int           `json:"delayed"`
	Returned        int           `json:"returned"`
	Huerfanos       int           `json:"huerfanos"`
	AvgCycleTime    float64       `json:"avgCycleTime"`
	OpenRisk        RiskBreakdown `json:"openRisk"`
}

// Snapshot is a DashboardStats entry kept by callers for history
type Snapshot struct {
	ID       string         `json:"id"`
	SavedAt  time.Time      `json:"savedAt"`
	FileName string         `json:"fileName"`
	Stats    DashboardStats `json:"stats"`
}
