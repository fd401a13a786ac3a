package scoring

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/rows"
)

var loc = time.FixedZone("ART", -3*60*60)

// now is Tuesday 2024-01-09 at noon
var now = time.Date(2024, 1, 9, 12, 0, 0, 0, loc)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, loc)
}

type fakeSLA map[string]models.SLAReference

func (f fakeSLA) Lookup(cp string) (models.SLAReference, bool) {
	ref, ok := f[cp]
	return ref, ok
}

var sla = fakeSLA{
	"1000": {PostalCode: "1000", TargetHours: 48, Locality: "CABA", Province: "CIUDAD AUTONOMA"},
	"5000": {PostalCode: "5000", TargetHours: 60, Locality: "CORDOBA", Province: "CORDOBA"},
}

func score(row rows.Row, hasCarrier, orphan bool) models.MasterRecord {
	return Score(Input{
		Row:             row,
		HasCarrierMatch: hasCarrier,
		IsOrphan:        orphan,
		SLA:             sla,
		ID:              "ID",
		OriginalID:      "id",
		Client:          "CLIENT",
		Now:             now,
		Location:        loc,
	})
}

func TestScoreDeliveredWithoutCarrier(t *testing.T) {
	r := score(rows.Row{
		"estado":           "entregado",
		"fecha pi":         "2024-01-02",
		"fecha 1ra visita": "04/01/2024",
		"codigo postal":    "1000",
	}, false, false)

	if r.IsGhost {
		t.Error("delivered row must not be a ghost")
	}
	if r.SLARealDias != 0 {
		t.Errorf("expected 0 real days without an ingest date, got %d", r.SLARealDias)
	}
	if r.SLAObjetivoDias != 2 {
		t.Errorf("expected 2 target days, got %d", r.SLAObjetivoDias)
	}
	if r.Status != models.StatusEnSLA {
		t.Errorf("expected EN_SLA, got %s", r.Status)
	}
	if r.RiskLevel != models.RiskLow {
		t.Errorf("expected LOW, got %s", r.RiskLevel)
	}
	if r.FechaLimite != nil {
		t.Errorf("expected no deadline without a window start, got %v", r.FechaLimite)
	}
	if r.LastEventDescription != EventFirstVisit {
		t.Errorf("expected last event %q, got %q", EventFirstVisit, r.LastEventDescription)
	}
	if r.Localidad != "CABA" || r.Provincia != "CIUDAD AUTONOMA" {
		t.Errorf("expected SLA locality and province, got %q / %q", r.Localidad, r.Provincia)
	}
}

func TestScoreGhost(t *testing.T) {
	r := score(rows.Row{"fecha_preparacion": "2024-01-02", "cp": "1000"}, false, false)

	if !r.IsGhost {
		t.Fatal("expected ghost")
	}
	if r.DiasSinMovimiento != 5 {
		t.Errorf("expected 5 idle days, got %d", r.DiasSinMovimiento)
	}
	if r.SLARealDias != 5 {
		t.Errorf("expected prepared date to open the window, got %d real days", r.SLARealDias)
	}
	if r.Status != models.StatusFantasma {
		t.Errorf("expected FANTASMA_SIN_URBANO, got %s", r.Status)
	}
	if r.RiskLevel != models.RiskCritical {
		t.Errorf("expected CRITICAL, got %s", r.RiskLevel)
	}
	if r.AccionSugerida != ActionLostInWarehouse {
		t.Errorf("expected lost parcel action, got %q", r.AccionSugerida)
	}
	if r.IsEstancado {
		t.Error("ghosts are never stagnant")
	}
	if r.FechaLimite == nil || !r.FechaLimite.Equal(day(1, 4)) {
		t.Errorf("expected deadline 2024-01-04, got %v", r.FechaLimite)
	}
}

func TestScoreOrphan(t *testing.T) {
	r := score(rows.Row{"codigo pedido": "XYZ999", "fecha ge": "2024-01-08"}, true, true)

	if !r.IsHuerfano || r.IsGhost {
		t.Fatalf("expected orphan and not ghost, got huerfano=%v ghost=%v", r.IsHuerfano, r.IsGhost)
	}
	if r.Status != models.StatusHuerfano {
		t.Errorf("expected HUERFANO_URBANO, got %s", r.Status)
	}
	if r.RiskLevel.Severity() < models.RiskMedium.Severity() {
		t.Errorf("expected at least MEDIUM, got %s", r.RiskLevel)
	}
	if r.AccionSugerida != ActionLoadReference {
		t.Errorf("expected load reference action, got %q", r.AccionSugerida)
	}
	if r.DiasSinMovimiento != 1 {
		t.Errorf("expected 1 idle day since ingest, got %d", r.DiasSinMovimiento)
	}
	if r.Localidad != Unknown || r.Provincia != Unknown {
		t.Errorf("expected unknown locality, got %q / %q", r.Localidad, r.Provincia)
	}
}

func TestScoreStagnantInTransit(t *testing.T) {
	r := score(rows.Row{
		"fecha pi":      "2024-01-01",
		"fecha ge":      "2024-01-02",
		"fecha as":      "2024-01-03",
		"codigo postal": "5000",
	}, true, false)

	if r.SLAObjetivoDias != 3 {
		t.Errorf("expected ceil(60/24)=3 target days, got %d", r.SLAObjetivoDias)
	}
	if r.DiasSinMovimiento != 4 {
		t.Errorf("expected 4 idle days since AS, got %d", r.DiasSinMovimiento)
	}
	if !r.IsEstancado || r.Status != models.StatusEstancado {
		t.Errorf("expected stagnant, got %s", r.Status)
	}
	if r.RiskLevel != models.RiskCritical {
		t.Errorf("expected CRITICAL, got %s", r.RiskLevel)
	}
	if r.AccionSugerida != ActionStagnationClaim {
		t.Errorf("expected stagnation claim, got %q", r.AccionSugerida)
	}
	if r.DiasGestionInterna != 1 {
		t.Errorf("expected 1 internal day, got %d", r.DiasGestionInterna)
	}
	if r.DiasGestionCorreo != 5 {
		t.Errorf("expected 5 carrier days, got %d", r.DiasGestionCorreo)
	}
	if r.DiasAtraso != 2 {
		t.Errorf("expected 2 days late, got %d", r.DiasAtraso)
	}
}

func TestScoreOverdueAndReturned(t *testing.T) {
	overdue := score(rows.Row{"fecha ge": "2024-01-03", "fecha ar": "2024-01-08"}, true, false)
	if overdue.Status != models.StatusNoEntregadoDemorado {
		t.Errorf("expected NO_ENTREGADO_DEMORADO, got %s", overdue.Status)
	}
	if overdue.AccionSugerida != ActionPrioritize {
		t.Errorf("expected prioritize action, got %q", overdue.AccionSugerida)
	}
	if overdue.SLAPorcentajeConsumido != 200 {
		t.Errorf("expected 200%% consumed, got %v", overdue.SLAPorcentajeConsumido)
	}

	returned := score(rows.Row{"fecha ge": "2024-01-02", "motivo": "Devolución al remitente"}, true, false)
	if !returned.IsDevuelto || returned.Status != models.StatusDevuelto {
		t.Errorf("expected DEVUELTO, got %s", returned.Status)
	}
	if returned.DiasSinMovimiento != 0 {
		t.Errorf("returned shipments have no idle days, got %d", returned.DiasSinMovimiento)
	}

	pickup := score(rows.Row{"fecha ge": "2024-01-08", "tipo de servicio": "retiro"}, true, false)
	if !pickup.IsDevuelto {
		t.Error("expected RETIRO service to count as returned")
	}
}

func TestScoreTwoVisits(t *testing.T) {
	r := score(rows.Row{
		"fecha ge":         "2024-01-08",
		"fecha 1ra visita": "2024-01-08",
		"fecha 2da visita": "2024-01-09",
	}, true, false)

	if !r.HasTwoVisits {
		t.Fatal("expected two visits")
	}
	if r.Status != models.StatusPendiente {
		t.Errorf("expected PENDIENTE, got %s", r.Status)
	}
	if r.RiskLevel != models.RiskCritical {
		t.Errorf("expected CRITICAL, got %s", r.RiskLevel)
	}
	if r.AccionSugerida != ActionThirdVisit {
		t.Errorf("expected third visit action, got %q", r.AccionSugerida)
	}
	if r.LastEventDescription != EventSecondVisit {
		t.Errorf("expected last event %q, got %q", EventSecondVisit, r.LastEventDescription)
	}
}

func TestScoreLastEventTieUsesPriority(t *testing.T) {
	r := score(rows.Row{"fecha ge": "2024-01-08", "fecha as": "2024-01-08", "fecha pi": "2024-01-05"}, true, false)
	if r.LastEventDescription != EventDispatched {
		t.Errorf("expected %q on a tie, got %q", EventDispatched, r.LastEventDescription)
	}

	none := score(rows.Row{}, true, false)
	if none.LastEventDescription != EventNone || none.LastEventDate != nil {
		t.Errorf("expected no last event, got %q %v", none.LastEventDescription, none.LastEventDate)
	}
}

func TestScoreDescriptiveFields(t *testing.T) {
	r := score(rows.Row{
		"localidad":        "Rosario",
		"provincia":        "Santa Fe",
		"peso (kg)":        "1,25",
		"sku":              "SKU-1",
		"nombre":           "Auriculares",
		"cantidad":         float64(2),
		"motivo":           "Ausente",
		"motivo (2)":       "Domicilio cerrado",
		"observacion":      "tocar timbre",
		"tipo de servicio": "Estandar",
		"estado":           "en distribución",
	}, true, false)

	want := struct {
		Localidad, Provincia, Peso, SKU, ProductName string
		Quantity                                     int
		Motivo1, Motivo2, Observacion, Tipo, Estado  string
		Hours                                        float64
	}{"Rosario", "Santa Fe", "1.25", "SKU-1", "Auriculares", 2,
		"Ausente", "Domicilio cerrado", "tocar timbre", "Estandar", "EN DISTRIBUCIÓN", DefaultSLAHours}

	got := struct {
		Localidad, Provincia, Peso, SKU, ProductName string
		Quantity                                     int
		Motivo1, Motivo2, Observacion, Tipo, Estado  string
		Hours                                        float64
	}{r.Localidad, r.Provincia, r.Peso.String(), r.SKU, r.ProductName, r.Quantity,
		r.Motivo1, r.Motivo2, r.Observacion, r.TipoServicio, r.Estado, r.SLAObjetivoHoras}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("descriptive fields mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreDeliveredStableAcrossNow(t *testing.T) {
	row := rows.Row{
		"estado":           "ENTREGADO",
		"fecha pi":         "2024-01-02",
		"fecha ge":         "2024-01-02",
		"fecha as":         "2024-01-03",
		"fecha ar":         "2024-01-04",
		"fecha 1ra visita": "2024-01-05",
		"fecha 2da visita": "2024-01-08",
		"codigo postal":    "1000",
	}

	base := score(row, true, false)
	for _, later := range []time.Time{now.AddDate(0, 0, 3), now.AddDate(0, 2, 0)} {
		r := Score(Input{Row: row, HasCarrierMatch: true, SLA: sla, Now: later, Location: loc})
		if r.Status != base.Status || r.RiskLevel != base.RiskLevel {
			t.Errorf("expected status/risk %s/%s to hold at %v, got %s/%s",
				base.Status, base.RiskLevel, later, r.Status, r.RiskLevel)
		}
	}
	if base.Status != models.StatusEntregadoFueraDeSLA {
		t.Errorf("expected ENTREGADO_FUERA_DE_SLA, got %s", base.Status)
	}
}

func TestScoreIsPure(t *testing.T) {
	row := rows.Row{"fecha pi": "2024-01-02", "fecha ge": "2024-01-03"}
	a := score(row, true, false)
	b := score(row, true, false)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("expected identical records (-a +b):\n%s", diff)
	}
	if len(row) != 2 {
		t.Error("Score must not modify its input row")
	}
}
