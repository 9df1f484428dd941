package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/repository"
	"github.com/straye-as/labelling-app/internal/service"
	"go.uber.org/zap"
)

type AuditHandler struct {
	service *service.SaveAuditService
	logger  *zap.Logger
}

func NewAuditHandler(auditService *service.SaveAuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		service: auditService,
		logger:  logger,
	}
}

// ListSaves godoc
// @Summary List results saves
// @Description The newest results saves recorded in the audit database
// @Tags Audit
// @Produce json
// @Param runId query string false "Filter by run id"
// @Param userName query string false "Filter by user name"
// @Param since query string false "Only saves at or after this RFC 3339 time"
// @Param limit query int false "Maximum number of events (default 100, max 500)"
// @Success 200 {object} domain.SaveEventListResponse
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /audit/saves [get]
func (h *AuditHandler) ListSaves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &repository.SaveEventFilter{
		RunID:    q.Get("runId"),
		UserName: q.Get("userName"),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "since must be an RFC 3339 time")
			return
		}
		filter.Since = &t
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.service.ListRecent(r.Context(), filter, limit)
	if err != nil {
		h.logger.Error("Failed to list save events", zap.Error(err))
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.SaveEventListResponse{
		Enabled: h.service.Enabled(),
		Events:  nonNil(events),
	})
}
