// internal/api/handlers/forecast_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/service"
)

type ForecastHandler struct {
	forecasts   *service.ForecastService
	suggestions *service.SuggestionService
}

func NewForecastHandler(forecasts *service.ForecastService, suggestions *service.SuggestionService) *ForecastHandler {
	return &ForecastHandler{forecasts: forecasts, suggestions: suggestions}
}

// List handles GET /forecasts
func (h *ForecastHandler) List(c *gin.Context) {
	forecasts, err := h.forecasts.ListEnabled(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list forecasts")
		errorResponse(c, http.StatusInternalServerError, "failed to list forecasts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": forecasts})
}

// Get handles GET /forecasts/:productId/:locationId
func (h *ForecastHandler) Get(c *gin.Context) {
	productID := c.Param("productId")
	locationID := c.Param("locationId")

	f, err := h.forecasts.Get(c.Request.Context(), productID, locationID)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch forecast")
		errorResponse(c, http.StatusInternalServerError, "failed to fetch forecast")
		return
	}
	if f == nil {
		errorResponse(c, http.StatusNotFound, "forecast not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": f})
}

// RunForecasts handles POST /jobs/forecast
func (h *ForecastHandler) RunForecasts(c *gin.Context) {
	summary, err := h.forecasts.Run(c.Request.Context(), time.Now())
	if err != nil {
		log.Error().Err(err).Msg("forecast run failed")
		errorResponse(c, http.StatusInternalServerError, "forecast run failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// RunSuggestions handles POST /jobs/suggestions
func (h *ForecastHandler) RunSuggestions(c *gin.Context) {
	summary, err := h.suggestions.Run(c.Request.Context(), time.Now())
	if err != nil {
		log.Error().Err(err).Msg("suggestion run failed")
		errorResponse(c, http.StatusInternalServerError, "suggestion run failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
