package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/hemacount/internal/config"
	"github.com/Brownie44l1/hemacount/internal/handlers"
	"github.com/Brownie44l1/hemacount/internal/model"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var port, staticDir string

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Serve the blood smear cell counter",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				log.WithError(err).Error("invalid configuration")
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			if staticDir != "" {
				cfg.StaticDir = staticDir
			}
			if err := serve(cmd.Context(), cfg); err != nil {
				log.WithError(err).Error("server stopped")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides HEMA_PORT)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "directory with the page and its assets (overrides HEMA_STATIC_DIR)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	log.WithField("model", cfg.ModelPath).Info("loading model")

	detector, err := model.NewDetector(cfg.ModelPath, cfg.MetadataPath, cfg.OnnxLibPath, model.Thresholds{
		Confidence: cfg.ConfThreshold,
		IoU:        cfg.IOUThreshold,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := detector.Close(); err != nil {
			log.WithError(err).Warn("failed to release model")
		}
	}()

	handler := handlers.NewHandler(detector, handlers.Options{
		OutputDir:     cfg.OutputDir(),
		OutputURL:     "/static/output",
		MaxUploadSize: cfg.MaxUploadSize,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(handler, cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(log.Fields{
		"port":    cfg.Port,
		"classes": detector.Classes(),
	}).Info("server starting")
	log.Info("endpoints: GET / | POST /predict | GET /download-report | GET /health | GET /metrics")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newRouter(h *handlers.Handler, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	r.Post("/predict", h.Predict)
	r.Get("/download-report", h.DownloadReport)
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"took":       time.Since(started).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
