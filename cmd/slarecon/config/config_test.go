package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"logistics-sla-reconciler/internal/reconciler"
	"logistics-sla-reconciler/internal/reporter"
	"logistics-sla-reconciler/pkg/logger"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Timezone != "Local" {
		t.Errorf("Timezone = %q, want Local", cfg.Timezone)
	}
	if cfg.MarketplaceSource != reconciler.DefaultMarketplaceSource {
		t.Errorf("MarketplaceSource = %q", cfg.MarketplaceSource)
	}
	if len(cfg.BrandRules) != len(reconciler.DefaultBrandRules()) {
		t.Errorf("BrandRules = %v, want the default rules", cfg.BrandRules)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Serve.Addr = %q, want :8080", cfg.Serve.Addr)
	}
	if cfg.Serve.WriteTimeout != 2*time.Minute {
		t.Errorf("Serve.WriteTimeout = %v, want 2m", cfg.Serve.WriteTimeout)
	}
	if cfg.LogLevel != string(logger.InfoLevel) || cfg.LogFormat != string(logger.TextFormat) {
		t.Errorf("log settings = %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slarecon.yaml")
	content := `internal: pedidos.xlsx
carrier: urbano.csv
output-format: YAML
timezone: UTC
log-level: debug
brand-prefixes:
  - match: anker
    prefix: ank
  - match: Toni
    prefix: TONIP
serve:
  addr: ":9090"
  max-body-mb: 8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Internal != "pedidos.xlsx" || cfg.Carrier != "urbano.csv" || cfg.SLA != "" {
		t.Errorf("inputs = %q %q %q", cfg.Internal, cfg.Carrier, cfg.SLA)
	}
	if cfg.OutputFormat != "yaml" {
		t.Errorf("OutputFormat = %q, want yaml", cfg.OutputFormat)
	}
	want := []reconciler.BrandRule{{Match: "ANKER", Prefix: "ANK"}, {Match: "TONI", Prefix: "TONIP"}}
	if len(cfg.BrandRules) != len(want) {
		t.Fatalf("BrandRules = %v, want %v", cfg.BrandRules, want)
	}
	for i := range want {
		if cfg.BrandRules[i] != want[i] {
			t.Errorf("BrandRules[%d] = %v, want %v", i, cfg.BrandRules[i], want[i])
		}
	}
	if cfg.Serve.Addr != ":9090" || cfg.Serve.MaxBodyMB != 8 {
		t.Errorf("Serve = %+v", cfg.Serve)
	}
	if cfg.Serve.MaxRows != 200000 {
		t.Errorf("Serve.MaxRows = %d, want default", cfg.Serve.MaxRows)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SLARECON_OUTPUT_FORMAT", "csv")
	t.Setenv("SLARECON_SERVE_ADDR", "127.0.0.1:7000")
	t.Setenv("SLARECON_BRAND_PREFIXES", "ACME=ACM,FOO=FOOX")

	v := newViper()
	ConfigureEnv(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OutputFormat != "csv" {
		t.Errorf("OutputFormat = %q, want csv", cfg.OutputFormat)
	}
	if cfg.Serve.Addr != "127.0.0.1:7000" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
	if len(cfg.BrandRules) != 2 || cfg.BrandRules[1].Prefix != "FOOX" {
		t.Errorf("BrandRules = %v", cfg.BrandRules)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{name: "unknown output format", key: KeyOutputFormat, value: "xml"},
		{name: "unknown log level", key: KeyLogLevel, value: "verbose"},
		{name: "unknown log format", key: KeyLogFormat, value: "logfmt"},
		{name: "unknown timezone", key: KeyTimezone, value: "Mars/Olympus"},
		{name: "malformed brand prefix", key: KeyBrandPrefixes, value: "ANKER"},
		{name: "zero body limit", key: KeyServeMaxBodyMB, value: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)
			if _, err := Load(v); err == nil {
				t.Errorf("Load() with %s=%v should fail", tt.key, tt.value)
			}
		})
	}
}

func TestParseBrandRules(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []reconciler.BrandRule
		wantErr bool
	}{
		{name: "nil", raw: nil},
		{name: "blank string", raw: "  "},
		{name: "comma separated", raw: "anker=anker, ajax=AJAX", want: []reconciler.BrandRule{
			{Match: "ANKER", Prefix: "ANKER"}, {Match: "AJAX", Prefix: "AJAX"},
		}},
		{name: "string slice", raw: []string{"TONI=TONIP"}, want: []reconciler.BrandRule{
			{Match: "TONI", Prefix: "TONIP"},
		}},
		{name: "list of maps", raw: []interface{}{
			map[string]interface{}{"match": "anker", "prefix": "ANKER"},
		}, want: []reconciler.BrandRule{{Match: "ANKER", Prefix: "ANKER"}}},
		{name: "missing prefix", raw: "ANKER=", wantErr: true},
		{name: "missing separator", raw: []string{"ANKER"}, wantErr: true},
		{name: "not a list", raw: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBrandRules(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBrandRules() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseBrandRules() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("rule %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	cfg, err := Load(newViper())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Timezone = "UTC"
	cfg.FilterClient = "acme"
	cfg.LogLevel = "debug"

	rc := cfg.ReconcilerConfig()
	if err := rc.Validate(); err != nil {
		t.Errorf("ReconcilerConfig() is invalid: %v", err)
	}
	if rc.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", rc.Timezone)
	}

	lc := cfg.LoaderConfig(time.UTC)
	if lc.Location != time.UTC {
		t.Errorf("LoaderConfig().Location = %v, want UTC", lc.Location)
	}
	if err := lc.Validate(); err != nil {
		t.Errorf("LoaderConfig() is invalid: %v", err)
	}

	rep := cfg.ReportConfig(reporter.FormatJSON)
	if rep.Format != reporter.FormatJSON || rep.FilterClient != "acme" {
		t.Errorf("ReportConfig() = %+v", rep)
	}

	lg := cfg.LoggerConfig()
	if lg.Level != logger.DebugLevel || lg.Output != logger.StderrOutput {
		t.Errorf("LoggerConfig() = %+v", lg)
	}
}

func TestReferenceTime(t *testing.T) {
	cfg := &Config{}
	got, err := cfg.ReferenceTime(time.UTC)
	if err != nil || !got.IsZero() {
		t.Errorf("empty now = %v, %v; want zero time", got, err)
	}

	cfg.Now = "2024-01-09"
	got, err = cfg.ReferenceTime(time.UTC)
	if err != nil {
		t.Fatalf("ReferenceTime() error = %v", err)
	}
	if want := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ReferenceTime() = %v, want %v", got, want)
	}

	cfg.Now = "next tuesday"
	if _, err := cfg.ReferenceTime(time.UTC); err == nil {
		t.Error("ReferenceTime() should reject an unparseable value")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	if err := os.WriteFile(local, []byte("SLARECON_TEST_VALUE=local\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shared, []byte("SLARECON_TEST_VALUE=shared\nSLARECON_TEST_OTHER=shared\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLARECON_TEST_VALUE", "")
	os.Unsetenv("SLARECON_TEST_VALUE")
	t.Setenv("SLARECON_TEST_OTHER", "")
	os.Unsetenv("SLARECON_TEST_OTHER")

	loaded, err := LoadEnvFiles(local, filepath.Join(dir, "missing.env"), shared)
	if err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("loaded = %v, want the two existing files", loaded)
	}
	if got := os.Getenv("SLARECON_TEST_VALUE"); got != "local" {
		t.Errorf("SLARECON_TEST_VALUE = %q, want local", got)
	}
	if got := os.Getenv("SLARECON_TEST_OTHER"); got != "shared" {
		t.Errorf("SLARECON_TEST_OTHER = %q, want shared", got)
	}
}
