// Package config turns viper settings into the configuration structs of
// the internal packages.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"logistics-sla-reconciler/internal/api"
	"logistics-sla-reconciler/internal/dates"
	"logistics-sla-reconciler/internal/parsers"
	"logistics-sla-reconciler/internal/reconciler"
	"logistics-sla-reconciler/internal/reporter"
	"logistics-sla-reconciler/pkg/logger"
)

// EnvPrefix is prepended to every environment variable viper reads
const EnvPrefix = "SLARECON"

// Keys understood in config files, flags and the environment
const (
	KeyInternal          = "internal"
	KeyCarrier           = "carrier"
	KeySLA               = "sla"
	KeyNow               = "now"
	KeyTimezone          = "timezone"
	KeyOutputFormat      = "output-format"
	KeyOutputFile        = "output-file"
	KeyStatsFile         = "stats-file"
	KeyFilterTracking    = "filter-tracking"
	KeyFilterClient      = "filter-client"
	KeyLogLevel          = "log-level"
	KeyLogFormat         = "log-format"
	KeyMarketplaceSource = "marketplace-source"
	KeyBrandPrefixes     = "brand-prefixes"
	KeyServeAddr         = "serve.addr"
	KeyServeMaxBodyMB    = "serve.max-body-mb"
	KeyServeMaxRows      = "serve.max-rows"
	KeyServeReadTimeout  = "serve.read-timeout"
	KeyServeWriteTimeout = "serve.write-timeout"
)

// EnvFiles are loaded in order; a variable set by an earlier file or by
// the process environment is not overridden
var EnvFiles = []string{".env.local", ".env"}

// Config is the resolved configuration of one CLI invocation
type Config struct {
	Internal string `json:"internal"`
	Carrier  string `json:"carrier"`
	SLA      string `json:"sla"`
	Now      string `json:"now"`
	Timezone string `json:"timezone"`

	OutputFormat   string `json:"output_format"`
	OutputFile     string `json:"output_file"`
	StatsFile      string `json:"stats_file"`
	FilterTracking string `json:"filter_tracking"`
	FilterClient   string `json:"filter_client"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	MarketplaceSource string                 `json:"marketplace_source"`
	BrandRules        []reconciler.BrandRule `json:"brand_rules"`

	Serve api.Config `json:"serve"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	serve := api.DefaultConfig()
	v.SetDefault(KeyTimezone, "Local")
	v.SetDefault(KeyLogLevel, string(logger.InfoLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
	v.SetDefault(KeyMarketplaceSource, reconciler.DefaultMarketplaceSource)
	v.SetDefault(KeyServeAddr, serve.Addr)
	v.SetDefault(KeyServeMaxBodyMB, serve.MaxBodyMB)
	v.SetDefault(KeyServeMaxRows, serve.MaxRows)
	v.SetDefault(KeyServeReadTimeout, serve.ReadTimeout)
	v.SetDefault(KeyServeWriteTimeout, serve.WriteTimeout)
}

// ConfigureEnv makes v read SLARECON_* variables, with '-' and '.' in
// keys mapped to '_'
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// LoadEnvFiles loads the dotenv files that exist and returns their names
func LoadEnvFiles(files ...string) ([]string, error) {
	var loaded []string
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return loaded, fmt.Errorf("load %s: %w", file, err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}

// Load reads every key from v and validates the result
func Load(v *viper.Viper) (*Config, error) {
	rules, err := ParseBrandRules(v.Get(KeyBrandPrefixes))
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		rules = reconciler.DefaultBrandRules()
	}

	cfg := &Config{
		Internal:          v.GetString(KeyInternal),
		Carrier:           v.GetString(KeyCarrier),
		SLA:               v.GetString(KeySLA),
		Now:               v.GetString(KeyNow),
		Timezone:          v.GetString(KeyTimezone),
		OutputFormat:      strings.ToLower(v.GetString(KeyOutputFormat)),
		OutputFile:        v.GetString(KeyOutputFile),
		StatsFile:         v.GetString(KeyStatsFile),
		FilterTracking:    v.GetString(KeyFilterTracking),
		FilterClient:      v.GetString(KeyFilterClient),
		LogLevel:          strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:         strings.ToLower(v.GetString(KeyLogFormat)),
		MarketplaceSource: v.GetString(KeyMarketplaceSource),
		BrandRules:        rules,
		Serve: api.Config{
			Addr:         v.GetString(KeyServeAddr),
			MaxBodyMB:    v.GetInt(KeyServeMaxBodyMB),
			MaxRows:      v.GetInt(KeyServeMaxRows),
			ReadTimeout:  v.GetDuration(KeyServeReadTimeout),
			WriteTimeout: v.GetDuration(KeyServeWriteTimeout),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that do not depend on the command being run
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OutputFormat, validation.In("table", "json", "yaml", "csv")),
		validation.Field(&c.LogLevel, validation.Required, validation.In(
			string(logger.DebugLevel), string(logger.InfoLevel), string(logger.WarnLevel),
			string(logger.ErrorLevel), string(logger.FatalLevel))),
		validation.Field(&c.LogFormat, validation.Required, validation.In(
			string(logger.TextFormat), string(logger.JSONFormat))),
		validation.Field(&c.Timezone, validation.By(func(interface{}) error {
			_, err := c.ReconcilerConfig().Location()
			return err
		})),
		validation.Field(&c.BrandRules),
		validation.Field(&c.Serve, validation.By(func(interface{}) error {
			return c.Serve.Validate()
		})),
	)
}

// ParseBrandRules accepts a list of {match, prefix} maps, a list of
// "MATCH=PREFIX" strings or one comma separated string of them
func ParseBrandRules(raw any) ([]reconciler.BrandRule, error) {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		for _, part := range strings.Split(v, ",") {
			items = append(items, part)
		}
	case []string:
		for _, part := range v {
			items = append(items, part)
		}
	default:
		var err error
		items, err = cast.ToSliceE(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyBrandPrefixes, err)
		}
	}

	rules := make([]reconciler.BrandRule, 0, len(items))
	for _, item := range items {
		var rule reconciler.BrandRule
		if s, ok := item.(string); ok {
			match, prefix, found := strings.Cut(s, "=")
			if !found {
				return nil, fmt.Errorf("%s: %q is not MATCH=PREFIX", KeyBrandPrefixes, s)
			}
			rule = reconciler.BrandRule{Match: match, Prefix: prefix}
		} else {
			m, err := cast.ToStringMapStringE(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", KeyBrandPrefixes, err)
			}
			rule = reconciler.BrandRule{Match: m["match"], Prefix: m["prefix"]}
		}
		rule.Match = strings.ToUpper(strings.TrimSpace(rule.Match))
		rule.Prefix = strings.ToUpper(strings.TrimSpace(rule.Prefix))
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", KeyBrandPrefixes, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ReconcilerConfig builds the reconciliation service configuration
func (c *Config) ReconcilerConfig() *reconciler.Config {
	cfg := reconciler.DefaultConfig()
	cfg.Timezone = c.Timezone
	cfg.MarketplaceSource = c.MarketplaceSource
	cfg.BrandRules = c.BrandRules
	return cfg
}

// LoaderConfig builds the sheet loader configuration for loc
func (c *Config) LoaderConfig(loc *time.Location) *parsers.LoaderConfig {
	cfg := parsers.DefaultLoaderConfig()
	cfg.Location = loc
	return cfg
}

// ReportConfig builds the report configuration for an already resolved format
func (c *Config) ReportConfig(format reporter.OutputFormat) *reporter.ReportConfig {
	cfg := reporter.DefaultReportConfig()
	cfg.Format = format
	cfg.FilterTracking = c.FilterTracking
	cfg.FilterClient = c.FilterClient
	return cfg
}

// LoggerConfig builds the logger configuration; logs always go to stderr
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.Level(c.LogLevel)
	cfg.Format = logger.Format(c.LogFormat)
	cfg.Output = logger.StderrOutput
	return cfg
}

// ReferenceTime parses Now in loc; an empty value yields the zero Time
func (c *Config) ReferenceTime(loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(c.Now) == "" {
		return time.Time{}, nil
	}
	return dates.ParseInstant(c.Now, loc)
}
