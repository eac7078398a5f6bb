// Пакет server — HTTP-сервер Metastore с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gometastore/internal/api/handlers"
	"github.com/bigkaa/gometastore/internal/api/middleware"
	"github.com/bigkaa/gometastore/internal/config"
)

// Server — HTTP-сервер Metastore.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
// validator — валидатор запросов по контракту API (может быть nil).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	validator *middleware.OpenAPIValidator,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// JWT middleware с исключениями для публичных endpoints.
	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth, "/health/", "/metrics"))
	}

	// Валидация запросов по контракту до обработчиков
	if validator != nil {
		router.Use(validator.Middleware())
	}

	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/users/me", handler.GetCurrentUser)
		r.Get("/users/{id}", handler.GetUser)
		r.Patch("/users/{id}", handler.UpdateUser)

		r.Get("/groups/{id}", handler.GetGroup)
		r.Patch("/groups/{id}", handler.RenameGroup)
		r.Get("/groups/{id}/submissions", handler.ListGroupSubmissions)

		r.Get("/metadata", handler.ListMetadata)
		r.Post("/metadata", handler.CreateMetadatum)
		r.Get("/metadata/{name}", handler.GetMetadatum)
		r.Put("/metadata/{name}", handler.UpdateMetadatum)

		r.Post("/metadatasets", handler.CreateMetadataset)
		r.Get("/metadatasets/pending", handler.ListPendingMetadatasets)
		r.Get("/metadatasets/{id}", handler.GetMetadataset)
		r.Delete("/metadatasets/{id}", handler.DeleteMetadataset)

		r.Get("/files", handler.ListStagedFiles)
		r.Post("/files", handler.AnnounceFile)
		r.Get("/files/{id}", handler.GetFile)
		r.Patch("/files/{id}", handler.UpdateFile)
		r.Delete("/files/{id}", handler.DeleteFile)
		r.Put("/files/{id}/content", handler.UploadFileContent)
		r.Get("/files/{id}/content", handler.DownloadFileContent)

		r.Post("/submissions", handler.CreateSubmission)
		r.Post("/submissions/prevalidate", handler.PrevalidateSubmission)
		r.Get("/submissions/{id}", handler.GetSubmission)
		r.Delete("/submissions/{id}", handler.DeleteSubmission)

		r.Post("/services/{id}/executions", handler.ExecuteService)

		r.Get("/appsettings", handler.ListAppSettings)
		r.Put("/appsettings/{key}", handler.SetAppSetting)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			jwtMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
