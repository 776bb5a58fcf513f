// internal/api/handlers/suggestion_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/service"
)

type SuggestionHandler struct {
	service *service.SuggestionService
}

func NewSuggestionHandler(service *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{service: service}
}

func (h *SuggestionHandler) parseFilter(c *gin.Context) (domain.SuggestionFilter, error) {
	filter := domain.SuggestionFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	filter.ProductIDs = parseIDList(c, "product_ids")
	filter.LocationIDs = parseIDList(c, "location_ids")

	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		t := domain.SuggestionType(raw)
		if t != domain.TypeTransfer && t != domain.TypePurchaseOrder {
			return filter, errors.New("invalid type: " + raw)
		}
		filter.Type = t
	}

	if raw := strings.TrimSpace(c.Query("urgency")); raw != "" {
		u, ok := domain.ParseUrgency(raw)
		if !ok {
			return filter, errors.New("invalid urgency: " + raw)
		}
		filter.Urgency = u
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		s, ok := domain.ParseSuggestionStatus(raw)
		if !ok {
			return filter, errors.New("invalid status: " + raw)
		}
		filter.Status = s
	}

	return filter, nil
}

// parseIDList supports both repeated params and a comma-separated value:
//
//	?product_ids=a&product_ids=b
//	?product_ids=a,b
func parseIDList(c *gin.Context, param string) []string {
	raw := c.QueryArray(param)
	if len(raw) == 0 {
		if single := strings.TrimSpace(c.Query(param)); single != "" {
			raw = []string{single}
		}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// List handles GET /suggestions
func (h *SuggestionHandler) List(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	suggestions, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to list suggestions")
		errorResponse(c, http.StatusInternalServerError, "failed to list suggestions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": suggestions,
		"pagination": gin.H{
			"page":      filter.Page,
			"page_size": filter.PageSize,
			"total":     total,
		},
	})
}

// Get handles GET /suggestions/:id
func (h *SuggestionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid suggestion id")
		return
	}

	sg, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeActionError(c, err, "failed to fetch suggestion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sg})
}

// Summary handles GET /suggestions/summary
func (h *SuggestionHandler) Summary(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := h.service.UrgencySummary(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to compute urgency summary")
		errorResponse(c, http.StatusInternalServerError, "failed to compute urgency summary")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summaries})
}

type acceptRequest struct {
	LinkedEntityID   *string `json:"linked_entity_id"`
	LinkedEntityType *string `json:"linked_entity_type"`
}

// Accept handles POST /suggestions/:id/accept
func (h *SuggestionHandler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid suggestion id")
		return
	}

	var req acceptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := h.service.Accept(c.Request.Context(), id, req.LinkedEntityID, req.LinkedEntityType, time.Now()); err != nil {
		h.writeActionError(c, err, "failed to accept suggestion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": domain.StatusAccepted})
}

type dismissRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Dismiss handles POST /suggestions/:id/dismiss
func (h *SuggestionHandler) Dismiss(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid suggestion id")
		return
	}

	var req dismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "reason is required")
		return
	}

	if err := h.service.Dismiss(c.Request.Context(), id, req.Reason, time.Now()); err != nil {
		h.writeActionError(c, err, "failed to dismiss suggestion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": domain.StatusDismissed})
}

type snoozeRequest struct {
	SnoozeUntil time.Time `json:"snooze_until"`
}

// Snooze handles POST /suggestions/:id/snooze
func (h *SuggestionHandler) Snooze(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid suggestion id")
		return
	}

	var req snoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now()
	if req.SnoozeUntil.IsZero() {
		req.SnoozeUntil = h.service.DefaultSnoozeUntil(now)
	} else if !req.SnoozeUntil.After(now) {
		errorResponse(c, http.StatusBadRequest, "snooze_until must be in the future")
		return
	}

	if err := h.service.Snooze(c.Request.Context(), id, req.SnoozeUntil, now); err != nil {
		h.writeActionError(c, err, "failed to snooze suggestion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": domain.StatusSnoozed, "snoozed_until": req.SnoozeUntil})
}

func (h *SuggestionHandler) writeActionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrSuggestionNotFound):
		errorResponse(c, http.StatusNotFound, "suggestion not found")
	case errors.Is(err, service.ErrInvalidTransition):
		errorResponse(c, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		errorResponse(c, http.StatusInternalServerError, fallback)
	}
}
