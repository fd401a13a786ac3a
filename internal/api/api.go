// Package api exposes the reconciliation engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"logistics-sla-reconciler/internal/reconciler"
	"logistics-sla-reconciler/pkg/errors"
	"logistics-sla-reconciler/pkg/logger"
)

// RequestIDHeader carries the id assigned to each request
const RequestIDHeader = "X-Request-ID"

// Config holds the HTTP server settings
type Config struct {
	Addr         string        `json:"addr" mapstructure:"addr"`
	MaxBodyMB    int           `json:"max_body_mb" mapstructure:"max-body-mb"`
	MaxRows      int           `json:"max_rows" mapstructure:"max-rows"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write-timeout"`
}

// DefaultConfig returns the default server settings
func DefaultConfig() *Config {
	return &Config{
		Addr:         ":8080",
		MaxBodyMB:    32,
		MaxRows:      200000,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
}

// Validate checks the server settings
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.MaxBodyMB, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxRows, validation.Required, validation.Min(1)),
		validation.Field(&c.ReadTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.WriteTimeout, validation.Min(time.Duration(0))),
	)
}

// Api serves reconciliation requests
type Api struct {
	service *reconciler.Service
	router  *gin.Engine
	config  *Config
	logger  logger.Logger
}

// NewAPI creates the HTTP surface around service
func NewAPI(service *reconciler.Service, config *Config) (*Api, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "serve", config.Addr, err)
	}

	gin.SetMode(gin.ReleaseMode)
	// keep long numeric ids intact when decoding rows
	binding.EnableDecoderUseNumber = true

	a := &Api{
		service: service,
		router:  gin.New(),
		config:  config,
		logger:  logger.GetGlobalLogger().WithComponent("api"),
	}
	a.router.Use(gin.Recovery(), a.requestID(), a.requestLogger())
	return a, nil
}

// Router registers the routes and returns the engine
func (a *Api) Router() *gin.Engine {
	router := a.router
	router.GET("/healthz", a.Healthz)

	v1 := router.Group("/v1")
	v1.POST("/reconcile", a.limitBody(), a.Reconcile)
	return router
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests
func (a *Api) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.config.Addr,
		Handler:      a.Router(),
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", a.config.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return errors.NetworkError(errors.CodeListenFailed, a.config.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.NetworkError(errors.CodeListenFailed, a.config.Addr, err)
	}
	return nil
}
