package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/trievops/fleet-cli/internal/fetcher"
	"github.com/trievops/fleet-cli/internal/importer"
	"github.com/trievops/fleet-cli/internal/model"
	"github.com/trievops/fleet-cli/internal/resilience"
	"github.com/trievops/fleet-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the import API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// newRouter wires the HTTP surface: health, async import kickoff, and
// run history.
func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/imports", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			File  string `json:"file"`
			Sheet string `json:"sheet"`
			Kind  string `json:"kind"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.File == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
			return
		}
		kind := model.ImportKind(body.Kind)
		if kind == "" {
			kind = model.ImportKindRiders
		}
		if kind != model.ImportKindRiders && kind != model.ImportKindWallets {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be riders or wallets"})
			return
		}

		// Imports outlive the request; the response only acknowledges
		// that the run was kicked off.
		go func() {
			runCtx := context.Background()
			tbl, err := fetcher.Open(body.File, body.Sheet)
			if err != nil {
				zap.L().Error("api import open failed", zap.String("file", body.File), zap.Error(err))
				return
			}
			opts := importer.Options{
				Kind:        kind,
				Source:      body.File,
				BadgePrefix: cfg.Import.BadgePrefix,
				OwnerRole:   cfg.Import.OwnerRole,
				RowTimeout:  time.Duration(cfg.Import.RowTimeoutSecs) * time.Second,
				RunTimeout:  time.Duration(cfg.Import.RunTimeoutSecs) * time.Second,
				NotifyRate:  rate.Limit(cfg.Notify.RatePerSec),
				NotifyBurst: cfg.Notify.Burst,
				Retry:       resilience.RetryConfig{MaxAttempts: cfg.Import.RetryAttempts},
			}
			if _, err := importer.New(st, opts).Run(runCtx, tbl); err != nil {
				zap.L().Error("api import failed", zap.String("file", body.File), zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"file":   body.File,
			"kind":   string(kind),
		})
	})

	r.Get("/api/imports", func(w http.ResponseWriter, req *http.Request) {
		runs, err := st.ListImports(req.Context(), 50)
		if err != nil {
			zap.L().Error("list imports failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list imports"})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
