package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"logistics-sla-reconciler/cmd/slarecon/config"
	"logistics-sla-reconciler/internal/reconciler"
	"logistics-sla-reconciler/pkg/errors"
	"logistics-sla-reconciler/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// flagKeys maps subcommand flag names onto nested config keys
var flagKeys = map[string]string{
	"addr":        config.KeyServeAddr,
	"max-body-mb": config.KeyServeMaxBodyMB,
	"max-rows":    config.KeyServeMaxRows,
}

// app carries the state shared by every subcommand of one invocation
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  logger.Logger
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:   "slarecon",
		Short: "Logistics SLA reconciliation tool",
		Long: `slarecon reconciles an internal order sheet against a carrier tracking
export, matches shipments by normalized id and scores every shipment
against the SLA reference of its postal code.

Examples:
  slarecon reconcile --internal pedidos.xlsx --carrier urbano.csv --sla sla.xlsx
  slarecon reconcile -i pedidos.csv -c urbano.csv --output-format json -o report.json
  slarecon stats -i pedidos.csv -c urbano.csv --now 2024-01-09
  slarecon generate --out-dir samples --count 200 --seed 42
  slarecon serve --addr :8080`,
		Version:           getVersionString(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.String(config.KeyLogLevel, string(logger.InfoLevel), "log level: debug, info, warn, error")
	pf.String(config.KeyLogFormat, string(logger.TextFormat), "log format: text, json")
	pf.String(config.KeyTimezone, "Local", "IANA zone for date-only cells, or Local")
	pf.String(config.KeyMarketplaceSource, reconciler.DefaultMarketplaceSource, "source value whose ids get brand prefixes")
	pf.StringSlice(config.KeyBrandPrefixes, nil, "brand prefix rules as MATCH=PREFIX (default ANKER=ANKER,TONI=TONIP,AJAX=AJAX)")

	root.AddCommand(
		newReconcileCmd(a),
		newStatsCmd(a),
		newGenerateCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root, a
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root, a := newRootCmd()
	err := root.ExecuteContext(ctx)
	return NewErrorHandler(root.ErrOrStderr(), a.verbose()).HandleError(err)
}

// setup binds flags, reads .env files, the config file and the environment,
// then installs the logger
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "bind flags", err)
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = a.v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "bind flags", bindErr)
	}

	loaded, err := config.LoadEnvFiles(config.EnvFiles...)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "env file", loaded, err)
	}
	config.ConfigureEnv(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", a.cfgFile, err).
				WithSuggestion("check that the config file exists and is valid yaml, toml or json")
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "config", a.v.ConfigFileUsed(), err)
	}

	log, err := logger.NewWithWriter(cfg.LoggerConfig(), cmd.ErrOrStderr())
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyLogLevel, cfg.LogLevel, err)
	}
	logger.SetGlobalLogger(log)

	a.cfg = cfg
	a.logger = log.WithComponent("cli")
	if file := a.v.ConfigFileUsed(); file != "" {
		a.logger.WithField("config_file", file).Debug("Using config file")
	}
	if len(loaded) > 0 {
		a.logger.WithField("env_files", loaded).Debug("Loaded env files")
	}
	return nil
}

func (a *app) verbose() bool {
	return a.cfg != nil && a.cfg.LogLevel == string(logger.DebugLevel)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "slarecon %s\n", getVersionString())
			return err
		},
	}
}
