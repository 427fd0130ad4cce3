package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cost-reports/core/engine"
	"cost-reports/core/tree"
	"cost-reports/core/types"
	"cost-reports/internal/errors"
	"cost-reports/internal/logging"
)

// Handler serves report queries
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a handler over a query engine
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

// HandleReport handles GET /api/v1/reports/{report}
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.New().String()
	report := types.ReportType(r.PathValue("report"))
	log := logging.ForRequest(requestID, string(report))

	resp, err := h.engine.Execute(r.Context(), report, r.URL.Query())
	if err != nil {
		status := writeError(w, requestID, err)
		log.Warn("request failed",
			zap.Int("status", status),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if resp.Spec.KeyOnly {
		keys := resp.Keys
		if keys == nil {
			keys = []string{}
		}
		writeJSON(w, map[string]interface{}{
			"data": keys,
			"meta": map[string]interface{}{"count": len(keys)},
		}, http.StatusOK)
	} else {
		rep := resp.Report
		rep.Links = tree.BuildLinks(r.URL.Path, r.URL.Query(), resp.Spec.Limit, resp.Spec.Offset, rep.Meta.Count)
		writeJSON(w, rep, http.StatusOK)
	}

	log.Info("request served",
		zap.Int("status", http.StatusOK),
		zap.Duration("duration", time.Since(start)))
}

// HandleTagKeys handles GET /api/v1/tag-keys
func (h *Handler) HandleTagKeys(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	keys, err := h.engine.TagKeys(r.Context())
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, map[string]interface{}{
		"data": keys,
		"meta": map[string]interface{}{"count": len(keys)},
	}, http.StatusOK)
}

// statusFor maps error categories to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.IsType(err, errors.TypeValidation):
		return http.StatusBadRequest
	case errors.IsType(err, errors.TypeNotFound):
		return http.StatusNotFound
	case errors.IsType(err, errors.TypeBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, requestID string, err error) int {
	status := statusFor(err)

	body := map[string]interface{}{
		"code":       string(errors.TypeInternal),
		"message":    err.Error(),
		"request_id": requestID,
	}
	var domainErr *errors.Error
	if stderrors.As(err, &domainErr) {
		body["code"] = string(domainErr.Type)
		if field := domainErr.Field(); field != "" {
			body["field"] = field
		}
	}

	writeJSON(w, map[string]interface{}{"error": body}, status)
	return status
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
