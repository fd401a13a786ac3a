// Package samples generates synthetic internal, carrier and SLA sheets for
// demos and end-to-end tests. Every shipment is built for a known outcome
// so the generated files double as a fixture.
package samples

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"logistics-sla-reconciler/internal/dates"
	"logistics-sla-reconciler/internal/rows"
)

// Kind is the outcome a generated shipment is built for
type Kind string

const (
	KindGhost     Kind = "ghost"
	KindOrphan    Kind = "orphan"
	KindDelivered Kind = "delivered"
	KindReturned  Kind = "returned"
	KindStagnant  Kind = "stagnant"
	KindInTransit Kind = "in-transit"
)

// Kinds lists every kind in generation order
var Kinds = []Kind{KindGhost, KindOrphan, KindDelivered, KindReturned, KindStagnant, KindInTransit}

// File names written by WriteCSV
const (
	InternalFile = "internal.csv"
	CarrierFile  = "carrier.csv"
	SLAFile      = "sla.csv"
)

var (
	internalColumns = []string{"Referencia", "Cliente", "Fuente", "CP", "Fecha PI", "SKU", "Nombre", "Cantidad", "Peso (kg)"}
	carrierColumns  = []string{
		"Codigo Pedido", "Estado", "Motivo", "Fecha GE", "Fecha AS", "Fecha AR",
		"Fecha 1ra Visita", "Fecha 2da Visita", "Tipo de Servicio", "Cuenta",
	}
	slaColumns = []string{"Codigo Postal", "Descripcion Urbano", "DENOM_PROV", "SLA_DESPACHO_HORAS"}

	slaHours = []int{24, 48, 72, 96}
	sources  = []string{"TN", "WEB", "ML"}
	brands   = []string{"Anker Argentina", "Toni Pets", "Ajax Hogar"}
)

const (
	internalDateLayout = "02/01/2006"
	carrierDateLayout  = "2006-01-02 15:04"
)

// Config controls the size and mix of a generated dataset
type Config struct {
	// Shipments is the number of distinct shipments to generate
	Shipments int `json:"shipments" mapstructure:"shipments"`
	// Seed makes generation reproducible; 0 picks a random seed
	Seed int64 `json:"seed" mapstructure:"seed"`
	// Now anchors every generated date; the zero value means the wall clock
	Now time.Time `json:"now" mapstructure:"now"`
	// PostalCodes is the number of SLA reference rows
	PostalCodes int `json:"postalCodes" mapstructure:"postal-codes"`
	// DuplicateRate is the share of internal rows written twice
	DuplicateRate float64 `json:"duplicateRate" mapstructure:"duplicate-rate"`
	// Weights sets the relative frequency of each kind
	Weights map[Kind]float32 `json:"weights" mapstructure:"weights"`
}

// DefaultConfig returns a small mixed dataset configuration
func DefaultConfig() Config {
	return Config{
		Shipments:     50,
		PostalCodes:   8,
		DuplicateRate: 0.05,
		Weights: map[Kind]float32{
			KindGhost:     1,
			KindOrphan:    1,
			KindDelivered: 4,
			KindReturned:  1,
			KindStagnant:  1,
			KindInTransit: 2,
		},
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Shipments, validation.Required, validation.Min(1)),
		validation.Field(&c.PostalCodes, validation.Required, validation.Min(1)),
		validation.Field(&c.DuplicateRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.Weights, validation.Required, validation.By(validateWeights)),
	)
}

func validateWeights(value interface{}) error {
	weights, _ := value.(map[Kind]float32)
	var total float32
	for kind, weight := range weights {
		if !isKnownKind(kind) {
			return fmt.Errorf("unknown kind %q", kind)
		}
		if weight < 0 {
			return fmt.Errorf("weight for %q must not be negative", kind)
		}
		total += weight
	}
	if total <= 0 {
		return fmt.Errorf("at least one weight must be positive")
	}
	return nil
}

func isKnownKind(kind Kind) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Dataset is one generated set of sheets
type Dataset struct {
	Internal  []rows.Row
	Carrier   []rows.Row
	Reference []rows.Row

	// Kinds maps each raw shipment id to the outcome it was built for
	Kinds map[string]Kind
	// Duplicates counts internal rows repeated on purpose
	Duplicates int
	// Now is the reference instant the dates were generated against
	Now time.Time
}

// Count returns how many shipments of kind the dataset holds
func (d *Dataset) Count(kind Kind) int {
	n := 0
	for _, k := range d.Kinds {
		if k == kind {
			n++
		}
	}
	return n
}

type generator struct {
	faker   *gofakeit.Faker
	base    time.Time
	postals []string
}

// Generate builds a dataset for cfg
func Generate(cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	g := &generator{
		faker: gofakeit.New(cfg.Seed),
		base:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
	}

	ds := &Dataset{
		Kinds: make(map[string]Kind, cfg.Shipments),
		Now:   now,
	}
	ds.Reference = g.reference(cfg.PostalCodes)

	options := make([]any, 0, len(Kinds))
	weights := make([]float32, 0, len(Kinds))
	for _, kind := range Kinds {
		if w := cfg.Weights[kind]; w > 0 {
			options = append(options, kind)
			weights = append(weights, w)
		}
	}

	for i := 1; i <= cfg.Shipments; i++ {
		picked, err := g.faker.Weighted(options, weights)
		if err != nil {
			return nil, err
		}
		kind := picked.(Kind)

		id := fmt.Sprintf("PED%06d", i)
		if kind == KindOrphan {
			id = fmt.Sprintf("URB%06d", i)
		}
		ds.Kinds[id] = kind

		internal, carrier := g.shipment(id, kind)
		if internal != nil {
			ds.Internal = append(ds.Internal, internal)
			if cfg.DuplicateRate > 0 && g.faker.Float64Range(0, 1) < cfg.DuplicateRate {
				ds.Internal = append(ds.Internal, internal)
				ds.Duplicates++
			}
		}
		if carrier != nil {
			ds.Carrier = append(ds.Carrier, carrier)
		}
	}

	g.faker.ShuffleAnySlice(ds.Carrier)
	return ds, nil
}

func (g *generator) reference(n int) []rows.Row {
	out := make([]rows.Row, 0, n)
	seen := make(map[string]struct{}, n)
	for len(out) < n {
		cp := strconv.Itoa(g.faker.Number(1000, 9499))
		if _, dup := seen[cp]; dup {
			continue
		}
		seen[cp] = struct{}{}
		g.postals = append(g.postals, cp)
		out = append(out, rows.Row{
			"Codigo Postal":      cp,
			"Descripcion Urbano": g.faker.City(),
			"DENOM_PROV":         g.faker.State(),
			"SLA_DESPACHO_HORAS": strconv.Itoa(slaHours[g.faker.Number(0, len(slaHours)-1)]),
		})
	}
	return out
}

// day returns the generation base moved by n business days, at hour
func (g *generator) day(n, hour int) time.Time {
	return dates.AddBusinessDays(g.base, n).Add(time.Duration(hour) * time.Hour)
}

func (g *generator) shipment(id string, kind Kind) (rows.Row, rows.Row) {
	client := g.faker.Company()
	source := sources[g.faker.Number(0, len(sources)-1)]
	if source == "TN" && g.faker.Bool() {
		client = brands[g.faker.Number(0, len(brands)-1)]
	}

	var prepared time.Time
	carrier := rows.Row{
		"Codigo Pedido":    carrierID(id, g.faker.Bool()),
		"Tipo de Servicio": "ESTANDAR",
		"Cuenta":           client,
	}

	switch kind {
	case KindGhost:
		prepared = g.day(-g.faker.Number(3, 8), 0)
		carrier = nil

	case KindOrphan:
		ingested := g.day(-g.faker.Number(1, 4), 9)
		carrier["Estado"] = "EN CAMINO"
		carrier["Fecha GE"] = ingested.Format(carrierDateLayout)
		return nil, carrier

	case KindDelivered:
		prepared = g.day(-g.faker.Number(6, 10), 0)
		ingested := dates.AddBusinessDays(prepared, 1).Add(10 * time.Hour)
		arrived := dates.AddBusinessDays(ingested, 1)
		carrier["Estado"] = "ENTREGADO"
		carrier["Motivo"] = "Entregado"
		carrier["Fecha GE"] = ingested.Format(carrierDateLayout)
		carrier["Fecha AS"] = ingested.Add(2 * time.Hour).Format(carrierDateLayout)
		carrier["Fecha AR"] = arrived.Format(carrierDateLayout)
		carrier["Fecha 1ra Visita"] = dates.AddBusinessDays(arrived, 1).Format(carrierDateLayout)

	case KindReturned:
		prepared = g.day(-g.faker.Number(9, 12), 0)
		carrier["Estado"] = "DEVUELTO"
		carrier["Motivo"] = "Devolución al remitente"
		carrier["Fecha GE"] = g.day(-8, 9).Format(carrierDateLayout)
		carrier["Fecha AR"] = g.day(-6, 14).Format(carrierDateLayout)
		carrier["Fecha 1ra Visita"] = g.day(-5, 11).Format(carrierDateLayout)
		carrier["Fecha 2da Visita"] = g.day(-4, 11).Format(carrierDateLayout)

	case KindStagnant:
		prepared = g.day(-7, 0)
		carrier["Estado"] = "EN SUCURSAL"
		carrier["Fecha GE"] = g.day(-6, 9).Format(carrierDateLayout)
		carrier["Fecha AS"] = g.day(-6, 15).Format(carrierDateLayout)
		carrier["Fecha AR"] = g.day(-4, 10).Format(carrierDateLayout)

	case KindInTransit:
		prepared = g.day(-2, 0)
		carrier["Estado"] = "EN CAMINO"
		carrier["Fecha GE"] = g.day(-1, 9).Format(carrierDateLayout)
	}

	weight := decimal.NewFromFloat(g.faker.Float64Range(0.1, 30)).Round(2)
	internal := rows.Row{
		"Referencia": id,
		"Cliente":    client,
		"Fuente":     source,
		"CP":         g.postals[g.faker.Number(0, len(g.postals)-1)],
		"Fecha PI":   prepared.Format(internalDateLayout),
		"SKU":        strings.ToUpper(g.faker.LetterN(3)) + strconv.Itoa(g.faker.Number(100, 999)),
		"Nombre":     g.faker.ProductName(),
		"Cantidad":   strconv.Itoa(g.faker.Number(1, 5)),
		"Peso (kg)":  weight.String(),
	}
	return internal, carrier
}

// carrierID renders id the way carrier exports sometimes mangle it
func carrierID(id string, mangle bool) string {
	if !mangle {
		return id
	}
	return strings.ToLower(id[:3]) + "-" + id[3:]
}

// WriteCSV writes the dataset as three CSV files under dir. The internal
// sheet uses ';' like spreadsheet exports in comma-decimal locales.
func WriteCSV(dir string, ds *Dataset) error {
	if ds == nil {
		return fmt.Errorf("dataset is nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	files := []struct {
		name      string
		delimiter rune
		columns   []string
		data      []rows.Row
	}{
		{InternalFile, ';', internalColumns, ds.Internal},
		{CarrierFile, ',', carrierColumns, ds.Carrier},
		{SLAFile, ',', slaColumns, ds.Reference},
	}
	for _, f := range files {
		if err := writeSheet(filepath.Join(dir, f.name), f.delimiter, f.columns, f.data); err != nil {
			return err
		}
	}
	return nil
}

func writeSheet(path string, delimiter rune, columns []string, data []rows.Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Comma = delimiter
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	record := make([]string, len(columns))
	for _, row := range data {
		for i, column := range columns {
			record[i] = rows.ToString(row[column])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
