// Package reporter renders reconciliation results for people and tools.
//
// Supported output formats:
//   - Table: human-readable tables for terminal display
//   - JSON: structured data for programmatic consumption
//   - YAML: structured data for configuration-minded readers
//   - CSV: one column per record field, for spreadsheet re-export
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{
//		Format:       reporter.FormatTable,
//		FilterClient: "anker",
//	})
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/reconciler"
	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/internal/stats"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatCSV   OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV:
		return true
	default:
		return false
	}
}

// ParseFormat converts a flag value into a format. An empty value picks
// table for terminals and JSON for pipes and files.
func ParseFormat(s string, w io.Writer) (OutputFormat, error) {
	if s == "" {
		return DetectFormat(w), nil
	}
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !format.IsValid() {
		return "", fmt.Errorf("invalid format %q: must be one of table, json, yaml, csv", s)
	}
	return format, nil
}

// DetectFormat returns table when w is a terminal, JSON otherwise
func DetectFormat(w io.Writer) OutputFormat {
	if f, ok := w.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return FormatTable
		}
	}
	return FormatJSON
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	// Output format
	Format OutputFormat `json:"format"`

	// Record filters, case and accent insensitive substrings
	FilterTracking string `json:"filter_tracking,omitempty"`
	FilterClient   string `json:"filter_client,omitempty"`

	// Table formatting options; 0 prints every record
	MaxTableRows int `json:"max_table_rows"`

	// CSV options; a zero delimiter means ','
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:       FormatTable,
		MaxTableRows: 200,
		CSVDelimiter: ',',
		CSVHeaders:   true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In(FormatTable, FormatJSON, FormatYAML, FormatCSV)),
		validation.Field(&c.MaxTableRows, validation.Min(0)),
		validation.Field(&c.CSVDelimiter, validation.In(rune(0), ',', ';', '\t', '|')),
	)
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// report is the serialised shape of a run
type report struct {
	Summary    *reconciler.ResultSummary `json:"summary,omitempty"`
	Stats      models.DashboardStats     `json:"stats"`
	NearMisses []stats.NearMiss          `json:"nearMisses,omitempty"`
	Records    []models.MasterRecord     `json:"records"`
}

// GenerateReport writes the filtered records of result to writer
func (rg *ReportGenerator) GenerateReport(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	out := report{
		Summary:    result.Summary,
		Stats:      result.Stats,
		NearMisses: result.NearMisses,
		Records:    Filter(result.Records, rg.config.FilterTracking, rg.config.FilterClient),
	}

	switch rg.config.Format {
	case FormatTable:
		return rg.generateTableReport(out, writer)
	case FormatJSON:
		return writeJSON(out, writer)
	case FormatYAML:
		return writeYAML(out, writer)
	case FormatCSV:
		return rg.generateCSVReport(out.Records, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GenerateStats writes only the dashboard figures to writer
func (rg *ReportGenerator) GenerateStats(s models.DashboardStats, writer io.Writer) error {
	switch rg.config.Format {
	case FormatTable:
		return renderStatsTable(s, writer)
	case FormatJSON:
		return writeJSON(s, writer)
	case FormatYAML:
		return writeYAML(s, writer)
	case FormatCSV:
		w := rg.csvWriter(writer)
		if rg.config.CSVHeaders {
			if err := w.Write([]string{"metric", "value"}); err != nil {
				return fmt.Errorf("failed to write CSV headers: %w", err)
			}
		}
		for _, line := range statsLines(s) {
			if err := w.Write(line); err != nil {
				return fmt.Errorf("failed to write stats row: %w", err)
			}
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// Filter keeps records whose tracking ids contain tracking and whose client
// contains client. Empty filters match everything.
func Filter(records []models.MasterRecord, tracking, client string) []models.MasterRecord {
	tracking = rows.Fold(strings.TrimSpace(tracking))
	client = rows.Fold(strings.TrimSpace(client))
	if tracking == "" && client == "" {
		return records
	}

	out := make([]models.MasterRecord, 0, len(records))
	for _, r := range records {
		if tracking != "" &&
			!strings.Contains(rows.Fold(r.ID), tracking) &&
			!strings.Contains(rows.Fold(r.OriginalID), tracking) {
			continue
		}
		if client != "" && !strings.Contains(rows.Fold(r.Client), client) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// generateTableReport generates a human-readable console report
func (rg *ReportGenerator) generateTableReport(out report, writer io.Writer) error {
	// Report header
	fmt.Fprintf(writer, "SLA RECONCILIATION REPORT\n")
	if out.Summary != nil {
		fmt.Fprintf(writer, "Reference Time: %s\n", out.Summary.Now.Format(time.RFC3339))
		fmt.Fprintf(writer, "Processing Duration: %v\n", out.Summary.ProcessingDuration)
		fmt.Fprintf(writer, "Input Rows: internal=%d carrier=%d sla=%d (skipped %d, duplicates %d)\n",
			out.Summary.InternalRows, out.Summary.CarrierRows, out.Summary.ReferenceRows,
			out.Summary.Skipped, out.Summary.Duplicates)
	}
	fmt.Fprintf(writer, "\n")

	// Summary section
	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	if err := renderStatsTable(out.Stats, writer); err != nil {
		return err
	}
	fmt.Fprintf(writer, "\n")

	if len(out.NearMisses) > 0 {
		fmt.Fprintf(writer, "=== POSSIBLE ID TYPOS ===\n")
		table := tablewriter.NewTable(writer)
		table.Header("Ghost", "Orphan", "Distance")
		for _, m := range out.NearMisses {
			if err := table.Append(m.GhostID, m.OrphanID, strconv.Itoa(m.Distance)); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	fmt.Fprintf(writer, "=== SHIPMENTS (%d) ===\n", len(out.Records))
	if len(out.Records) == 0 {
		fmt.Fprintf(writer, "No shipments match the current filters.\n")
		return nil
	}

	records := out.Records
	if limit := rg.config.MaxTableRows; limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	table := tablewriter.NewTable(writer)
	table.Header("ID", "Client", "Status", "Risk", "Last Event", "SLA Days", "Idle", "Action")
	for _, r := range records {
		if err := table.Append(
			r.ID,
			r.Client,
			string(r.Status),
			string(r.RiskLevel),
			lastEvent(r),
			fmt.Sprintf("%d/%d", r.SLARealDias, r.SLAObjetivoDias),
			strconv.Itoa(r.DiasSinMovimiento),
			r.AccionSugerida,
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if hidden := len(out.Records) - len(records); hidden > 0 {
		fmt.Fprintf(writer, "... and %d more (use --output-format csv for the full list)\n", hidden)
	}
	return nil
}

func renderStatsTable(s models.DashboardStats, writer io.Writer) error {
	table := tablewriter.NewTable(writer)
	table.Header("Metric", "Value")
	for _, line := range statsLines(s) {
		if err := table.Append(line[0], line[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

func statsLines(s models.DashboardStats) [][]string {
	return [][]string{
		{"date", formatTime(&s.Date)},
		{"total", strconv.Itoa(s.Total)},
		{"delivered", strconv.Itoa(s.Delivered)},
		{"performance_rate", formatFloat(s.PerformanceRate)},
		{"ghosts", strconv.Itoa(s.Ghosts)},
		{"orphans", strconv.Itoa(s.Huerfanos)},
		{"stagnant", strconv.Itoa(s.Stagnant)},
		{"delayed", strconv.Itoa(s.Delayed)},
		{"returned", strconv.Itoa(s.Returned)},
		{"avg_cycle_time", formatFloat(s.AvgCycleTime)},
		{"open_risk_critical", strconv.Itoa(s.OpenRisk.Critical)},
		{"open_risk_medium", strconv.Itoa(s.OpenRisk.Medium)},
		{"open_risk_low", strconv.Itoa(s.OpenRisk.Low)},
	}
}

func lastEvent(r models.MasterRecord) string {
	if r.LastEventDate == nil {
		return r.LastEventDescription
	}
	return fmt.Sprintf("%s %s", r.LastEventDescription, r.LastEventDate.Format("2006-01-02"))
}

// recordHeaders lists the CSV columns, one per record field
var recordHeaders = []string{
	"id", "originalId", "client", "cp", "localidad", "provincia", "peso",
	"sku", "productName", "quantity",
	"fechaPI", "fechaGE", "fechaAS", "fechaAR", "fecha1raVisita", "fecha2daVisita", "fechaLimite",
	"lastEventDate", "lastEventDescription",
	"motivo1", "motivo2", "estado", "tipoServicio", "observacion",
	"slaObjetivoHoras", "slaObjetivoDias", "slaRealDias", "diasSinMovimiento", "diasAtraso",
	"slaPorcentajeConsumido", "diasGestionInterna", "diasGestionCorreo",
	"isEntregado", "isDevuelto", "isGhost", "isHuerfano", "isEstancado", "hasTwoVisits",
	"status", "riskLevel", "accionSugerida",
}

func recordFields(r models.MasterRecord) []string {
	return []string{
		r.ID, r.OriginalID, r.Client, r.CP, r.Localidad, r.Provincia, r.Peso.String(),
		r.SKU, r.ProductName, strconv.Itoa(r.Quantity),
		formatTime(r.FechaPI), formatTime(r.FechaGE), formatTime(r.FechaAS), formatTime(r.FechaAR),
		formatTime(r.Fecha1raVisita), formatTime(r.Fecha2daVisita), formatTime(r.FechaLimite),
		formatTime(r.LastEventDate), r.LastEventDescription,
		r.Motivo1, r.Motivo2, r.Estado, r.TipoServicio, r.Observacion,
		formatFloat(r.SLAObjetivoHoras), strconv.Itoa(r.SLAObjetivoDias), strconv.Itoa(r.SLARealDias),
		strconv.Itoa(r.DiasSinMovimiento), strconv.Itoa(r.DiasAtraso),
		formatFloat(r.SLAPorcentajeConsumido), strconv.Itoa(r.DiasGestionInterna), strconv.Itoa(r.DiasGestionCorreo),
		strconv.FormatBool(r.IsEntregado), strconv.FormatBool(r.IsDevuelto), strconv.FormatBool(r.IsGhost),
		strconv.FormatBool(r.IsHuerfano), strconv.FormatBool(r.IsEstancado), strconv.FormatBool(r.HasTwoVisits),
		string(r.Status), string(r.RiskLevel), r.AccionSugerida,
	}
}

// generateCSVReport writes one row per record
func (rg *ReportGenerator) generateCSVReport(records []models.MasterRecord, writer io.Writer) error {
	csvWriter := rg.csvWriter(writer)

	// Write headers if enabled
	if rg.config.CSVHeaders {
		if err := csvWriter.Write(recordHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, r := range records {
		if err := csvWriter.Write(recordFields(r)); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) csvWriter(writer io.Writer) *csv.Writer {
	w := csv.NewWriter(writer)
	if rg.config.CSVDelimiter != 0 {
		w.Comma = rg.config.CSVDelimiter
	}
	return w
}

func writeJSON(v any, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeYAML renders v through its JSON form so field names and order
// follow the json tags
func writeYAML(v any, writer io.Writer) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return err
	}
	return encoder.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// render is used by the safe generator to buffer output before writing
func (rg *ReportGenerator) render(result *reconciler.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := rg.GenerateReport(result, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
