package api

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"logistics-sla-reconciler/internal/dates"
	"logistics-sla-reconciler/internal/models"
	"logistics-sla-reconciler/internal/reconciler"
	"logistics-sla-reconciler/internal/rows"
	"logistics-sla-reconciler/internal/stats"
	"logistics-sla-reconciler/pkg/logger"
)

// ReconcileRequest carries the three row collections of one run
type ReconcileRequest struct {
	Internal []map[string]any `json:"internal"`
	Carrier  []map[string]any `json:"carrier"`
	SLA      []map[string]any `json:"sla"`
	// Now is RFC3339 or YYYY-MM-DD; empty means the server clock
	Now string `json:"now,omitempty"`
}

// ReconcileResponse is the body returned by POST /v1/reconcile
type ReconcileResponse struct {
	RequestID  string                    `json:"requestId"`
	Records    []models.MasterRecord     `json:"records"`
	Stats      models.DashboardStats     `json:"stats"`
	NearMisses []stats.NearMiss          `json:"nearMisses,omitempty"`
	Summary    *reconciler.ResultSummary `json:"summary"`
}

func (r *ReconcileRequest) validate(maxRows int, loc *time.Location) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Internal, validation.Length(0, maxRows)),
		validation.Field(&r.Carrier, validation.Length(0, maxRows)),
		validation.Field(&r.SLA, validation.Length(0, maxRows)),
		validation.Field(&r.Now, validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if s == "" {
				return nil
			}
			_, err := dates.ParseInstant(s, loc)
			return err
		})),
	)
}

// Healthz reports that the server is up
func (a *Api) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Reconcile runs the engine over the posted rows
func (a *Api) Reconcile(c *gin.Context) {
	requestID := c.GetString(requestIDKey)

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "request body too large",
				"requestId": requestID,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "requestId": requestID})
		return
	}

	loc := a.service.Location()
	if err := req.validate(a.config.MaxRows, loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "invalid request",
			"details":   err,
			"requestId": requestID,
		})
		return
	}

	var now time.Time
	if req.Now != "" {
		now, _ = dates.ParseInstant(req.Now, loc)
	}

	result := a.service.ReconcileRows(toRows(req.Internal), toRows(req.Carrier), toRows(req.SLA), now)
	a.logger.WithFields(logger.Fields{
		"request_id": requestID,
		"records":    len(result.Records),
	}).Info("Reconciled posted rows")

	c.JSON(http.StatusOK, ReconcileResponse{
		RequestID:  requestID,
		Records:    result.Records,
		Stats:      result.Stats,
		NearMisses: result.NearMisses,
		Summary:    result.Summary,
	})
}

func toRows(in []map[string]any) []rows.Row {
	out := make([]rows.Row, 0, len(in))
	for _, m := range in {
		if m == nil {
			continue
		}
		out = append(out, rows.Row(m))
	}
	return out
}
