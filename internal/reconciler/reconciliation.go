package reconciler

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sourcegraph/conc/pool"

	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/internal/stats"
	"logistics-sla-reconciler/pkg/errors"
	"logistics-sla-reconciler/pkg/logger"
)

// RowLoader reads an input file into rows
type RowLoader interface {
	LoadRows(ctx context.Context, path string) ([]rows.Row, error)
}

// Service loads input files, reconciles them and rolls up statistics
type Service struct {
	loader   RowLoader
	config   *Config
	location *time.Location
	logger   logger.Logger
}

// Config holds configuration options for the reconciliation service
type Config struct {
	// Timezone resolves date-only cells; "" and "Local" mean the host zone
	Timezone          string      `json:"timezone"`
	MarketplaceSource string      `json:"marketplace_source"`
	BrandRules        []BrandRule `json:"brand_rules"`

	// Processing options
	MaxConcurrentFiles int                   `json:"max_concurrent_files"`
	NearMiss           stats.NearMissOptions `json:"-"`
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Timezone:           "Local",
		MarketplaceSource:  DefaultMarketplaceSource,
		BrandRules:         DefaultBrandRules(),
		MaxConcurrentFiles: 3,
		NearMiss:           stats.DefaultNearMissOptions(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.By(func(value interface{}) error {
			_, err := resolveLocation(value.(string))
			return err
		})),
		validation.Field(&c.BrandRules),
		validation.Field(&c.MaxConcurrentFiles, validation.Required, validation.Min(1)),
	)
}

// Validate checks that both sides of a brand rule are set
func (r BrandRule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Match, validation.Required),
		validation.Field(&r.Prefix, validation.Required),
	)
}

// Location returns the zone named by Timezone
func (c *Config) Location() (*time.Location, error) {
	return resolveLocation(c.Timezone)
}

func resolveLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// Request names the files of one reconciliation run. Carrier and SLA
// files are optional and read as empty when blank.
type Request struct {
	InternalFile string    `json:"internal_file"`
	CarrierFile  string    `json:"carrier_file,omitempty"`
	SLAFile      string    `json:"sla_file,omitempty"`
	Now          time.Time `json:"now,omitempty"`
}

// Validate validates the reconciliation request
func (r *Request) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.InternalFile, validation.Required),
	)
}

// Result contains the complete results of reconciliation
type Result struct {
	Records    []models.MasterRecord `json:"records"`
	Stats      models.DashboardStats `json:"stats"`
	NearMisses []stats.NearMiss      `json:"near_misses,omitempty"`
	Summary    *ResultSummary        `json:"summary"`
}

// ResultSummary provides a high-level overview of one run
type ResultSummary struct {
	// Input counts
	InternalRows  int `json:"internal_rows"`
	CarrierRows   int `json:"carrier_rows"`
	ReferenceRows int `json:"reference_rows"`

	// Reconciliation counts
	Records    int `json:"records"`
	Matched    int `json:"matched"`
	Orphans    int `json:"orphans"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`

	// Processing metadata
	Now                time.Time              `json:"now"`
	ProcessedAt        time.Time              `json:"processed_at"`
	ProcessingDuration time.Duration          `json:"processing_duration"`
	Stages             []logger.StageDuration `json:"stages,omitempty"`
}

type inputs struct {
	internal  []rows.Row
	carrier   []rows.Row
	reference []rows.Row
}

// NewService creates a new reconciliation service
func NewService(loader RowLoader, config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", config.Timezone, err)
	}

	loc, err := config.Location()
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "timezone", config.Timezone, err)
	}

	return &Service{
		loader:   loader,
		config:   config,
		location: loc,
		logger:   logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// Location returns the zone used for date-only cells
func (s *Service) Location() *time.Location {
	return s.location
}

// Run loads the request files concurrently and reconciles them
func (s *Service) Run(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "internal", req.InternalFile, err)
	}
	if s.loader == nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "load inputs", nil).
			WithSuggestion("create the service with a row loader")
	}

	timer := logger.NewStageTimer("reconcile", s.logger)

	in, err := s.loadInputs(ctx, req)
	if err != nil {
		timer.Done(err)
		return nil, err
	}
	timer.Step("load", logger.Fields{
		"internal_rows":  len(in.internal),
		"carrier_rows":   len(in.carrier),
		"reference_rows": len(in.reference),
	})

	result := s.process(in, req.Now, timer)
	result.Summary.ProcessingDuration = timer.Done(nil)
	result.Summary.Stages = timer.Stages()
	return result, nil
}

// ReconcileRows reconciles rows already in memory. A zero now means the
// wall clock.
func (s *Service) ReconcileRows(internal, carrier, reference []rows.Row, now time.Time) *Result {
	timer := logger.NewStageTimer("reconcile-rows", s.logger)
	result := s.process(inputs{internal: internal, carrier: carrier, reference: reference}, now, timer)
	result.Summary.ProcessingDuration = timer.Done(nil)
	result.Summary.Stages = timer.Stages()
	return result
}

func (s *Service) loadInputs(ctx context.Context, req *Request) (inputs, error) {
	var in inputs

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(s.config.MaxConcurrentFiles)

	load := func(path string, dst *[]rows.Row) {
		if path == "" {
			return
		}
		p.Go(func(ctx context.Context) error {
			loaded, err := s.loader.LoadRows(ctx, path)
			if err != nil {
				return err
			}
			*dst = loaded
			return nil
		})
	}
	load(req.InternalFile, &in.internal)
	load(req.CarrierFile, &in.carrier)
	load(req.SLAFile, &in.reference)

	if err := p.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return inputs{}, ctxErr
		}
		return inputs{}, errors.WrapIfNeeded(err, errors.CategoryFile, errors.CodeFileCorrupted, "failed to load input files")
	}
	return in, nil
}

func (s *Service) process(in inputs, now time.Time, timer *logger.StageTimer) *Result {
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(s.location)

	outcome := Reconcile(in.internal, in.carrier, in.reference, Options{
		Now:               now,
		Location:          s.location,
		MarketplaceSource: s.config.MarketplaceSource,
		BrandRules:        s.config.BrandRules,
	})
	timer.Step("reconcile", logger.Fields{
		"records": len(outcome.Records),
		"matched": outcome.Matched,
		"orphans": outcome.Orphans,
	})

	result := &Result{
		Records:    outcome.Records,
		Stats:      stats.Calculate(outcome.Records, now),
		NearMisses: stats.NearMisses(outcome.Records, s.config.NearMiss),
		Summary: &ResultSummary{
			InternalRows:  len(in.internal),
			CarrierRows:   len(in.carrier),
			ReferenceRows: len(in.reference),
			Records:       len(outcome.Records),
			Matched:       outcome.Matched,
			Orphans:       outcome.Orphans,
			Skipped:       outcome.Skipped,
			Duplicates:    outcome.Duplicates,
			Now:           now,
			ProcessedAt:   time.Now(),
		},
	}
	timer.Step("stats", logger.Fields{
		"performance_rate": result.Stats.PerformanceRate,
		"ghosts":           result.Stats.Ghosts,
	})

	log := s.logger.WithFields(logger.Fields{
		"records":    result.Summary.Records,
		"skipped":    result.Summary.Skipped,
		"duplicates": result.Summary.Duplicates,
	})
	if result.Summary.Skipped > 0 {
		log.Warn("Internal rows without a usable identifier were skipped")
	}
	if len(result.NearMisses) > 0 {
		s.logger.WithField("pairs", len(result.NearMisses)).
			Warn("Ghost and orphan ids differ by a single character, check for typos")
	}
	log.Info("Reconciliation completed")

	return result
}
