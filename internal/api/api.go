// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/api/handlers"
	"github.com/andresuchdata/replenish/internal/api/middleware"
	"github.com/andresuchdata/replenish/internal/service"
)

type Services struct {
	ForecastService   *service.ForecastService
	SuggestionService *service.SuggestionService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.SuggestionService != nil {
			suggestionHandler := handlers.NewSuggestionHandler(services.SuggestionService)
			suggestionGroup := apiGroup.Group("/suggestions")
			{
				suggestionGroup.GET("", suggestionHandler.List)
				suggestionGroup.GET("/summary", suggestionHandler.Summary)
				suggestionGroup.GET("/:id", suggestionHandler.Get)
				suggestionGroup.POST("/:id/accept", suggestionHandler.Accept)
				suggestionGroup.POST("/:id/dismiss", suggestionHandler.Dismiss)
				suggestionGroup.POST("/:id/snooze", suggestionHandler.Snooze)
			}
		}

		if services.ForecastService != nil {
			forecastHandler := handlers.NewForecastHandler(services.ForecastService, services.SuggestionService)
			forecastGroup := apiGroup.Group("/forecasts")
			{
				forecastGroup.GET("", forecastHandler.List)
				forecastGroup.GET("/:productId/:locationId", forecastHandler.Get)
			}

			jobsGroup := apiGroup.Group("/jobs")
			{
				jobsGroup.POST("/forecast", forecastHandler.RunForecasts)
				if services.SuggestionService != nil {
					jobsGroup.POST("/suggestions", forecastHandler.RunSuggestions)
				}
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
