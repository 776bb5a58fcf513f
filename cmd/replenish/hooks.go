// cmd/replenish/hooks.go
package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/pkg/logger"
)

// runServeHooks exposes the batch jobs over plain HTTP so cron-like schedulers
// (Cloud Scheduler, Kubernetes CronJob with curl, CI pipelines) can trigger
// them without shell access to the binary.
func runServeHooks(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Load()
	forecastSvc := service.NewForecastService(
		repository.NewSalesHistoryRepository(db),
		repository.NewForecastRepository(db),
		cfg.Jobs.WorkerCount,
	)
	suggestionSvc := newSuggestionService(db)

	token := c.String("token")

	r := mux.NewRouter()
	r.Use(hookAuth(token))

	r.HandleFunc("/hooks/run/forecast", func(w http.ResponseWriter, req *http.Request) {
		summary, err := forecastSvc.Run(req.Context(), time.Now())
		writeHookResult(w, summary, err)
	}).Methods("POST")

	r.HandleFunc("/hooks/run/suggestions", func(w http.ResponseWriter, req *http.Request) {
		summary, err := suggestionSvc.Run(req.Context(), time.Now())
		writeHookResult(w, summary, err)
	}).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := ":" + c.String("port")
	logger.Log.Info().Str("addr", addr).Msg("serving job trigger hooks")
	return http.ListenAndServe(addr, r)
}

func hookAuth(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if token != "" && req.URL.Path != "/health" {
				if req.Header.Get("Authorization") != "Bearer "+token {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, req)
		})
	}
}

func writeHookResult(w http.ResponseWriter, summary interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		logger.Log.Error().Err(err).Msg("hook-triggered job failed")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(summary)
}
