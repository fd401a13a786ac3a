package cmd

import (
	"github.com/spf13/cobra"

	"logistics-sla-reconciler/cmd/slarecon/config"
	"logistics-sla-reconciler/internal/reporter"
)

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print only the dashboard statistics of a reconciliation",
		Long: `Stats runs the same reconciliation as 'reconcile' and prints the
aggregate figures: totals, SLA performance, ghosts, orphans, stagnant
shipments and the risk breakdown of open shipments.

Examples:
  slarecon stats -i pedidos.csv -c urbano.csv -s sla.csv
  slarecon stats -i pedidos.csv -c urbano.csv --output-format csv --stats-file history.json`,
		Args: cobra.NoArgs,
		RunE: a.runStats,
	}

	addInputFlags(cmd)
	f := cmd.Flags()
	f.StringP(config.KeyOutputFormat, "f", "", "output format: table, json, yaml, csv")
	f.String(config.KeyStatsFile, "", "append a stats snapshot to this JSON history file")
	return cmd
}

func (a *app) runStats(cmd *cobra.Command, _ []string) error {
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
	if err := generator.GenerateStats(result.Stats, out); err != nil {
		return err
	}
	return a.saveSnapshot(generator, result)
}
