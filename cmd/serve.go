package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/planwise/plan-advisor/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP recommendation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(env *advisorEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
			stats, err := env.Index.Stats(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "stats unavailable")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"documents": stats.Documents,
				"providers": stats.Providers,
				"ephemeral": env.Index.Ephemeral(),
			})
		})

		r.Post("/ask", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Query string `json:"query"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}

			queryID := uuid.NewString()
			resp, err := env.Advisor.Ask(req.Context(), body.Query)
			if err != nil {
				switch {
				case errors.Is(err, model.ErrParse):
					writeError(w, http.StatusBadRequest, "query is required")
				case errors.Is(err, model.ErrEmptyIndex):
					writeError(w, http.StatusConflict, "index is empty; run ingestion first")
				default:
					zap.L().Error("ask failed", zap.String("query_id", queryID), zap.Error(err))
					writeError(w, http.StatusInternalServerError, "recommendation failed")
				}
				return
			}

			writeJSON(w, http.StatusOK, map[string]any{
				"query_id":       queryID,
				"recommendation": resp,
			})
		})

		r.Post("/ingest", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Force bool `json:"force"`
			}
			if req.ContentLength > 0 {
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					writeError(w, http.StatusBadRequest, "invalid request body")
					return
				}
			}

			jobID := uuid.NewString()
			go func() {
				results, err := env.Ingestor.IngestAll(context.Background(), cfg.Providers, ingestOptions(body.Force))
				if err != nil {
					zap.L().Error("ingestion job failed", zap.String("job_id", jobID), zap.Error(err))
					return
				}
				indexed := 0
				for _, r := range results {
					indexed += r.Indexed
				}
				zap.L().Info("ingestion job complete", zap.String("job_id", jobID), zap.Int("indexed", indexed))
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "job_id": jobID})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
