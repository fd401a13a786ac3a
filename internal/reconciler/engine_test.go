package reconciler

import (
	"testing"
	"time"

	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/internal/scoring"
)

var art = time.FixedZone("ART", -3*60*60)

// testNow is Tuesday 2024-01-09 at noon
var testNow = time.Date(2024, 1, 9, 12, 0, 0, 0, art)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Now = testNow
	opts.Location = art
	return opts
}

func byID(records []models.MasterRecord) map[string]models.MasterRecord {
	out := make(map[string]models.MasterRecord, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out
}

func TestReconcile_Scenarios(t *testing.T) {
	internal := []rows.Row{
		{"Referencia": "PED001", "Estado": "ENTREGADO", "Fecha PI": "2024-01-02", "Fecha 1ra Visita": "2024-01-04", "CP": "1000"},
		{"Referencia": "PED002", "Fecha PI": "2024-01-02", "Cliente": "acme"},
		{"Referencia": "00-PED003", "Cliente": "acme"},
	}
	carrier := []rows.Row{
		{"Codigo Pedido": "PED003", "Estado": "EN CAMINO", "Fecha GE": "2024-01-08"},
		{"Tracking": "XYZ999", "Estado": "EN CAMINO", "Fecha GE": "2024-01-08"},
	}
	reference := []rows.Row{
		{"Codigo Postal": "1000", "SLA_DESPACHO_HORAS": "48"},
	}

	out := Reconcile(internal, carrier, reference, testOptions())

	if len(out.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(out.Records))
	}
	wantOrder := []string{"PED001", "PED002", "00-PED003", "XYZ999"}
	for i, id := range wantOrder {
		if out.Records[i].ID != id {
			t.Errorf("record %d id = %q, want %q", i, out.Records[i].ID, id)
		}
	}
	if out.Matched != 1 || out.Orphans != 1 || out.Skipped != 0 || out.Duplicates != 0 {
		t.Errorf("unexpected counts: %+v", out)
	}

	records := byID(out.Records)

	delivered := records["PED001"]
	if delivered.IsGhost || delivered.Status != models.StatusEnSLA || delivered.RiskLevel != models.RiskLow {
		t.Errorf("PED001: ghost=%v status=%s risk=%s", delivered.IsGhost, delivered.Status, delivered.RiskLevel)
	}
	if delivered.SLARealDias != 0 {
		t.Errorf("PED001: slaRealDias = %d, want 0", delivered.SLARealDias)
	}
	if delivered.Client != rows.Upper(rows.UnknownClient) {
		t.Errorf("PED001: client = %q", delivered.Client)
	}

	ghost := records["PED002"]
	if !ghost.IsGhost || ghost.Status != models.StatusFantasma {
		t.Errorf("PED002: ghost=%v status=%s", ghost.IsGhost, ghost.Status)
	}
	if ghost.DiasSinMovimiento != 5 || ghost.RiskLevel != models.RiskCritical {
		t.Errorf("PED002: idle=%d risk=%s", ghost.DiasSinMovimiento, ghost.RiskLevel)
	}
	if ghost.AccionSugerida != scoring.ActionLostInWarehouse {
		t.Errorf("PED002: action = %q", ghost.AccionSugerida)
	}
	if ghost.Client != "ACME" {
		t.Errorf("PED002: client = %q, want ACME", ghost.Client)
	}

	matched := records["00-PED003"]
	if matched.IsGhost || matched.IsHuerfano {
		t.Errorf("00-PED003 should be present in both sources")
	}
	if matched.Integrity() != models.IntegrityBoth {
		t.Errorf("00-PED003: integrity = %s", matched.Integrity())
	}
	if matched.Estado != "EN CAMINO" {
		t.Errorf("00-PED003: carrier fields should be merged, estado = %q", matched.Estado)
	}

	orphan := records["XYZ999"]
	if !orphan.IsHuerfano || orphan.Status != models.StatusHuerfano {
		t.Errorf("XYZ999: orphan=%v status=%s", orphan.IsHuerfano, orphan.Status)
	}
	if orphan.RiskLevel.Severity() < models.RiskMedium.Severity() {
		t.Errorf("XYZ999: risk = %s, want at least MEDIUM", orphan.RiskLevel)
	}
	if orphan.AccionSugerida != scoring.ActionLoadReference {
		t.Errorf("XYZ999: action = %q", orphan.AccionSugerida)
	}
	if orphan.Client != rows.CarrierOnlyClient {
		t.Errorf("XYZ999: client = %q", orphan.Client)
	}
}

func TestReconcile_SkipsAndDuplicates(t *testing.T) {
	internal := []rows.Row{
		{"Referencia": "PED1", "Cliente": "first"},
		{"referencia": "ped-1", "Cliente": "second"},
		{"Referencia": "undefined"},
		{"Cliente": "no id"},
		{"Referencia": "---"},
		nil,
	}

	out := Reconcile(internal, nil, nil, testOptions())

	if len(out.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out.Records))
	}
	if out.Records[0].Client != "FIRST" {
		t.Errorf("first occurrence should win, got client %q", out.Records[0].Client)
	}
	if out.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", out.Duplicates)
	}
	if out.Skipped != 4 {
		t.Errorf("skipped = %d, want 4", out.Skipped)
	}
}

func TestReconcile_OneRecordPerCanonicalID(t *testing.T) {
	internal := []rows.Row{
		{"Referencia": "TRK5"},
		{"Referencia": "PED7"},
	}
	carrier := []rows.Row{
		// matched through its second key, the first must not be swept
		{"Codigo Pedido": "ORD5", "Tracking": "TRK5"},
		// unmatched with two keys, swept once
		{"Codigo Pedido": "PED9", "Tracking": "TRK9"},
		// key shorter than three characters is never registered
		{"Tracking": "12"},
	}

	out := Reconcile(internal, carrier, nil, testOptions())

	if len(out.Records) != 3 {
		t.Fatalf("expected 3 records, got %d: %v", len(out.Records), out.Records)
	}
	if out.Orphans != 1 || out.Matched != 1 {
		t.Errorf("orphans=%d matched=%d, want 1 and 1", out.Orphans, out.Matched)
	}

	seen := make(map[string]bool)
	for _, r := range out.Records {
		canonical := rows.SanitizeID(r.ID)
		if seen[canonical] {
			t.Errorf("canonical id %s emitted twice", canonical)
		}
		seen[canonical] = true

		states := 0
		if r.IsGhost {
			states++
		}
		if r.IsHuerfano {
			states++
		}
		if r.Integrity() == models.IntegrityBoth {
			states++
		}
		if states != 1 {
			t.Errorf("%s: expected exactly one integrity state, got %d", r.ID, states)
		}
	}

	records := byID(out.Records)
	if _, ok := records["PED9"]; !ok {
		t.Error("expected orphan PED9 keyed by its first id column")
	}
	if !records["PED7"].IsGhost {
		t.Error("PED7 should be a ghost")
	}
}

func TestReconcile_BrandPrefixMatchesCarrier(t *testing.T) {
	internal := []rows.Row{
		{"Referencia": "1234", "Razon Social": "Anker Argentina", "Fuente": "tn"},
	}
	carrier := []rows.Row{
		{"Referencia": "1234", "Fecha GE": "2024-01-08"},
	}

	out := Reconcile(internal, carrier, nil, testOptions())

	if len(out.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out.Records))
	}
	r := out.Records[0]
	if r.ID != "ANKER1234" || r.OriginalID != "1234" {
		t.Errorf("id=%q original=%q", r.ID, r.OriginalID)
	}
	if out.Matched != 1 || out.Orphans != 0 {
		t.Errorf("expected match through the original id, got %+v", out)
	}
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	internal := []rows.Row{{"Referencia": "PED1", "Estado": "x"}}
	carrier := []rows.Row{{"Codigo Pedido": "PED1", "Estado": "y"}}

	Reconcile(internal, carrier, nil, testOptions())

	if len(internal[0]) != 2 || internal[0]["Estado"] != "x" {
		t.Errorf("internal row modified: %v", internal[0])
	}
	if len(carrier[0]) != 2 || carrier[0]["Estado"] != "y" {
		t.Errorf("carrier row modified: %v", carrier[0])
	}
}

func TestReconcile_Empty(t *testing.T) {
	out := Reconcile(nil, nil, nil, testOptions())
	if len(out.Records) != 0 || out.Skipped != 0 || out.Orphans != 0 {
		t.Errorf("expected empty outcome, got %+v", out)
	}
}

func TestApplyBrandPrefix(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		name   string
		id     string
		client string
		source string
		want   string
	}{
		{"anker marketplace", "1234", "ANKER ARGENTINA", "TN", "ANKER1234"},
		{"toni marketplace", "77", "TONI PET", "TN", "TONIP77"},
		{"ajax marketplace", "55", "AJAX SA", "TN", "AJAX55"},
		{"already prefixed", "anker55", "ANKER", "TN", "anker55"},
		{"other source", "1234", "ANKER", "ML", "1234"},
		{"unknown brand", "1234", "ACME", "TN", "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyBrandPrefix(tt.id, tt.client, tt.source, opts); got != tt.want {
				t.Errorf("applyBrandPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyBrandPrefix_NoMarketplace(t *testing.T) {
	opts := DefaultOptions()
	opts.MarketplaceSource = ""
	if got := applyBrandPrefix("1234", "ANKER", "", opts); got != "1234" {
		t.Errorf("expected id unchanged without a marketplace source, got %q", got)
	}
}
