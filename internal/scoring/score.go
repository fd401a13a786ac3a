// Package scoring turns one merged shipment row into a fully derived
// MasterRecord. Everything here is pure: the result depends only on the
// input and the supplied reference time.
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"logistics-sla-reconciler/internal/dates"
	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/rows"
)

// DefaultSLAHours is the target used when a postal code has no reference
const DefaultSLAHours = 48

// Unknown fills locality and province when no source provides them
const Unknown = "Desconocido"

// Input-side vocabulary, compared case and accent insensitively
const (
	estadoEntregado = "ENTREGADO"
	estadoDevuelto  = "DEVUELTO"
	motivoEntregado = "entregado"
	motivoDevuelto  = "devolucion"
	servicioRetiro  = "RETIRO"
)

// Last event labels
const (
	EventSecondVisit = "2da Visita"
	EventFirstVisit  = "1ra Visita"
	EventArrived     = "Arribo Sucursal (AR)"
	EventDispatched  = "Salida a Sucursal (AS)"
	EventIngested    = "Ingreso Urbano (GE)"
	EventPrepared    = "Preparado (PI)"
	EventNone        = "Sin Datos"
)

// SLALookup resolves the SLA reference for a postal code
type SLALookup interface {
	Lookup(postalCode string) (models.SLAReference, bool)
}

// Input is one merged row plus its reconciliation context
type Input struct {
	Row             rows.Row
	HasCarrierMatch bool
	IsOrphan        bool
	SLA             SLALookup
	ID              string
	OriginalID      string
	Client          string
	Now             time.Time
	// Location is used for date-only cells; nil means time.Local
	Location *time.Location
}

type milestones struct {
	prepared    time.Time
	ingested    time.Time
	dispatched  time.Time
	arrived     time.Time
	firstVisit  time.Time
	secondVisit time.Time
}

func readMilestones(r rows.Row, loc *time.Location) milestones {
	parse := func(keys []string) time.Time {
		for _, key := range keys {
			if t := dates.Parse(r[key], loc); !t.IsZero() {
				return t
			}
		}
		return time.Time{}
	}
	return milestones{
		prepared:    parse(rows.PreparedKeys),
		ingested:    parse(rows.IngestedKeys),
		dispatched:  parse(rows.DispatchedKeys),
		arrived:     parse(rows.ArrivedKeys),
		firstVisit:  parse(rows.FirstVisitKeys),
		secondVisit: parse(rows.SecondVisitKeys),
	}
}

// lastEvent picks the latest milestone; equal instants go to the one listed first
func (m milestones) lastEvent() (time.Time, string) {
	events := []struct {
		at    time.Time
		label string
	}{
		{m.secondVisit, EventSecondVisit},
		{m.firstVisit, EventFirstVisit},
		{m.arrived, EventArrived},
		{m.dispatched, EventDispatched},
		{m.ingested, EventIngested},
		{m.prepared, EventPrepared},
	}

	var at time.Time
	label := EventNone
	for _, e := range events {
		if e.at.IsZero() {
			continue
		}
		if at.IsZero() || e.at.After(at) {
			at, label = e.at, e.label
		}
	}
	return at, label
}

// Score builds the MasterRecord for one merged row
func Score(in Input) models.MasterRecord {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	now := in.Now.In(loc)
	row := in.Row

	cp := row.String(rows.PostalCodeKeys...)
	var sla models.SLAReference
	hasSLA := false
	if in.SLA != nil && cp != "" {
		sla, hasSLA = in.SLA.Lookup(cp)
	}

	m := readMilestones(row, loc)

	estado := rows.Upper(row.String(rows.StatusKeys...))
	motivo := row.String(rows.ReasonKeys...)
	tipoServicio := row.String(rows.ServiceTypeKeys...)
	foldedMotivo := rows.Fold(motivo)

	isEntregado := estado == estadoEntregado || strings.Contains(foldedMotivo, motivoEntregado)
	isDevuelto := estado == estadoDevuelto ||
		strings.Contains(foldedMotivo, motivoDevuelto) ||
		rows.Upper(tipoServicio) == servicioRetiro
	isGhost := !in.HasCarrierMatch && !isEntregado && !in.IsOrphan
	hasTwoVisits := !m.secondVisit.IsZero()

	lastEventAt, lastEventLabel := m.lastEvent()

	targetHours := float64(DefaultSLAHours)
	if hasSLA {
		targetHours = sla.TargetHours
	}
	targetDays := int(math.Ceil(targetHours / 24))

	windowStart := m.ingested
	if windowStart.IsZero() && isGhost {
		windowStart = m.prepared
	}
	windowEnd := now
	if isEntregado {
		windowEnd = dates.FirstSet(m.firstVisit, m.arrived, now)
	}

	realDays := 0
	if !windowStart.IsZero() {
		realDays = dates.BusinessDays(windowStart, windowEnd)
	}

	lastMovement := dates.Latest(m.ingested, m.dispatched, m.arrived, m.firstVisit, m.secondVisit)

	idleDays := 0
	if !isEntregado && !isDevuelto {
		switch {
		case !lastMovement.IsZero():
			idleDays = dates.BusinessDays(lastMovement, now)
		case isGhost && !m.prepared.IsZero():
			idleDays = dates.BusinessDays(m.prepared, now)
		case in.IsOrphan && !m.ingested.IsZero():
			idleDays = dates.BusinessDays(m.ingested, now)
		}
	}
	isEstancado := !isEntregado && !isDevuelto && !isGhost && idleDays >= StagnantDays

	status := DetermineStatus(realDays, targetDays, Flags{
		Delivered: isEntregado,
		Returned:  isDevuelto,
		Stagnant:  isEstancado,
		Ghost:     isGhost,
		Orphan:    in.IsOrphan,
	})

	consumed := 0.0
	if targetDays > 0 {
		consumed = float64(realDays) / float64(targetDays) * 100
	}
	risk := CalculateRisk(status, idleDays, consumed, hasTwoVisits)

	var deadline time.Time
	if !windowStart.IsZero() {
		deadline = dates.AddBusinessDays(windowStart, targetDays)
	}

	internalDays := 0
	if !m.prepared.IsZero() && !m.ingested.IsZero() {
		internalDays = dates.BusinessDays(m.prepared, m.ingested)
	}
	carrierDays := 0
	if !m.ingested.IsZero() {
		carrierDays = dates.BusinessDays(m.ingested, windowEnd)
	}

	peso, _ := row.Number(rows.WeightKeys...)
	quantity := 0
	if q, ok := row.Number(rows.QuantityKeys...); ok {
		quantity = int(q.IntPart())
	}

	record := models.MasterRecord{
		ID:          in.ID,
		OriginalID:  in.OriginalID,
		Client:      in.Client,
		CP:          cp,
		Localidad:   firstNonEmpty(sla.Locality, row.String(rows.LocalityKeys...), Unknown),
		Provincia:   firstNonEmpty(sla.Province, row.String(rows.ProvinceKeys...), Unknown),
		Peso:        roundWeight(peso),
		SKU:         row.String(rows.SKUKeys...),
		ProductName: row.String(rows.ProductNameKeys...),
		Quantity:    quantity,

		FechaPI:        dates.Ptr(m.prepared),
		FechaGE:        dates.Ptr(m.ingested),
		FechaAS:        dates.Ptr(m.dispatched),
		FechaAR:        dates.Ptr(m.arrived),
		Fecha1raVisita: dates.Ptr(m.firstVisit),
		Fecha2daVisita: dates.Ptr(m.secondVisit),
		FechaLimite:    dates.Ptr(deadline),

		LastEventDate:        dates.Ptr(lastEventAt),
		LastEventDescription: lastEventLabel,

		Motivo1:      motivo,
		Motivo2:      row.String(rows.SecondReasonKeys...),
		Estado:       estado,
		TipoServicio: tipoServicio,
		Observacion:  row.String(rows.ObservationKeys...),

		SLAObjetivoHoras:       targetHours,
		SLAObjetivoDias:        targetDays,
		SLARealDias:            realDays,
		DiasSinMovimiento:      idleDays,
		DiasAtraso:             max(0, realDays-targetDays),
		SLAPorcentajeConsumido: consumed,
		DiasGestionInterna:     internalDays,
		DiasGestionCorreo:      carrierDays,

		IsEntregado:  isEntregado,
		IsDevuelto:   isDevuelto,
		IsGhost:      isGhost,
		IsHuerfano:   in.IsOrphan,
		IsEstancado:  isEstancado,
		HasTwoVisits: hasTwoVisits,
		Status:       status,
		RiskLevel:    risk,
	}
	record.AccionSugerida = SuggestAction(&record)
	return record
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// roundWeight keeps three decimals, the precision carriers report in
func roundWeight(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(3)
}
