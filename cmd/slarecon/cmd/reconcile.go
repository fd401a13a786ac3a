package cmd

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"logistics-sla-reconciler/cmd/slarecon/config"
	"logistics-sla-reconciler/internal/parsers"
	"logistics-sla-reconciler/internal/reconciler"
	"logistics-sla-reconciler/internal/reporter"
	"logistics-sla-reconciler/internal/stats"
	"logistics-sla-reconciler/pkg/errors"
	"logistics-sla-reconciler/pkg/logger"
)

func newReconcileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile internal orders with the carrier export",
		Long: `Reconcile matches every internal order with its carrier row, scores it
against the SLA of its postal code and reports one record per shipment:
ghosts (internal only), orphans (carrier only) and matched shipments.

--carrier and --sla are optional; a missing file is an empty sheet.

Examples:
  slarecon reconcile --internal pedidos.xlsx --carrier urbano.csv --sla sla.xlsx
  slarecon reconcile -i pedidos.csv -c urbano.csv --filter-client acme
  slarecon reconcile -i pedidos.csv -c urbano.csv -o out/report.csv --stats-file history.json`,
		Args: cobra.NoArgs,
		RunE: a.runReconcile,
	}

	addInputFlags(cmd)
	f := cmd.Flags()
	f.StringP(config.KeyOutputFormat, "f", "", "output format: table, json, yaml, csv (default: table on a terminal, json otherwise)")
	f.StringP(config.KeyOutputFile, "o", "", "write the report to this file instead of stdout")
	f.String(config.KeyStatsFile, "", "append a stats snapshot to this JSON history file")
	f.String(config.KeyFilterTracking, "", "only report shipments whose id contains this text")
	f.String(config.KeyFilterClient, "", "only report shipments whose client contains this text")
	return cmd
}

func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP(config.KeyInternal, "i", "", "internal order sheet (.xlsx, .csv or .json)")
	f.StringP(config.KeyCarrier, "c", "", "carrier tracking export")
	f.StringP(config.KeySLA, "s", "", "SLA reference sheet by postal code")
	f.String(config.KeyNow, "", "reference time, RFC3339 or YYYY-MM-DD (default: now)")
}

func (a *app) runReconcile(cmd *cobra.Command, _ []string) error {
	result, err := a.reconcile(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format, err := a.outputFormat(out)
	if err != nil {
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(a.cfg.ReportConfig(format), a.logger)
	if err != nil {
		return err
	}

	if a.cfg.OutputFile != "" {
		if err := generator.WriteReportFile(result, a.cfg.OutputFile); err != nil {
			return err
		}
	} else if err := generator.GenerateReportSafely(result, out); err != nil {
		return err
	}

	return a.saveSnapshot(generator, result)
}

// reconcile builds the service from the loaded configuration and runs it
func (a *app) reconcile(ctx context.Context) (*reconciler.Result, error) {
	service, err := a.newService()
	if err != nil {
		return nil, err
	}

	now, err := a.cfg.ReferenceTime(service.Location())
	if err != nil {
		return nil, errors.ValidationError(errors.CodeInvalidDate, config.KeyNow, a.cfg.Now, err)
	}

	a.logger.WithFields(logger.Fields{
		"internal": a.cfg.Internal,
		"carrier":  a.cfg.Carrier,
		"sla":      a.cfg.SLA,
	}).Debug("Starting reconciliation")

	return service.Run(ctx, &reconciler.Request{
		InternalFile: a.cfg.Internal,
		CarrierFile:  a.cfg.Carrier,
		SLAFile:      a.cfg.SLA,
		Now:          now,
	})
}

func (a *app) newService() (*reconciler.Service, error) {
	rc := a.cfg.ReconcilerConfig()
	loc, err := rc.Location()
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyTimezone, rc.Timezone, err)
	}

	loader, err := parsers.NewLoader(a.cfg.LoaderConfig(loc))
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryConfiguration, errors.CodeInvalidConfig, "invalid loader configuration")
	}
	return reconciler.NewService(loader, rc)
}

// outputFormat resolves the configured format. Without one, files are
// typed by extension and stdout by whether it is a terminal.
func (a *app) outputFormat(out io.Writer) (reporter.OutputFormat, error) {
	name := a.cfg.OutputFormat
	if name == "" && a.cfg.OutputFile != "" {
		name = formatForFile(a.cfg.OutputFile)
	}
	format, err := reporter.ParseFormat(name, out)
	if err != nil {
		return "", errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyOutputFormat, name, err).
			WithSuggestion("use one of table, json, yaml, csv")
	}
	return format, nil
}

func formatForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return string(reporter.FormatCSV)
	case ".yaml", ".yml":
		return string(reporter.FormatYAML)
	case ".txt":
		return string(reporter.FormatTable)
	default:
		return string(reporter.FormatJSON)
	}
}

func (a *app) saveSnapshot(generator *reporter.SafeReportGenerator, result *reconciler.Result) error {
	if a.cfg.StatsFile == "" {
		return nil
	}
	snapshot := stats.NewSnapshot(result.Stats, filepath.Base(a.cfg.Internal), time.Now())
	return generator.AppendSnapshot(a.cfg.StatsFile, snapshot)
}
