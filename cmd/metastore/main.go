// Точка входа Metastore — портал приёма метаданных и файлов.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт blob-хранилище, сервисный слой и API handlers, запускает
// мониторинг зависимостей (topologymetrics), HTTP-сервер с JWT middleware
// и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigkaa/gometastore/internal/api"
	"github.com/bigkaa/gometastore/internal/api/handlers"
	"github.com/bigkaa/gometastore/internal/api/middleware"
	"github.com/bigkaa/gometastore/internal/config"
	"github.com/bigkaa/gometastore/internal/database"
	"github.com/bigkaa/gometastore/internal/repository"
	"github.com/bigkaa/gometastore/internal/server"
	"github.com/bigkaa/gometastore/internal/service"
	"github.com/bigkaa/gometastore/internal/storage/blobstore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Metastore запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("MS_DEPHEALTH_GROUP") == "" {
		logger.Warn("MS_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Blob-хранилище содержимого файлов
	blobs, err := blobstore.New(cfg.StorageDir)
	if err != nil {
		logger.Error("Ошибка инициализации blob-хранилища",
			slog.String("dir", cfg.StorageDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	logger.Info("Blob-хранилище готово", slog.String("dir", cfg.StorageDir))

	// 6. Repository и сервисный слой
	store := repository.NewStore(pool)
	siteIDs := service.NewSiteIDGenerator(store, cfg.SiteIDDigits)

	metadataSvc := service.NewMetadataService(store, cfg.SchemaCacheTTL, logger)
	msetSvc := service.NewMetadatasetService(store, metadataSvc, siteIDs,
		cfg.SiteIDPrefixes.Metadataset, logger)
	fileSvc := service.NewFileService(store, blobs, siteIDs,
		cfg.SiteIDPrefixes.File, logger)
	subSvc := service.NewSubmissionService(store, metadataSvc, blobs, siteIDs,
		cfg.SiteIDPrefixes.Submission, logger)
	execSvc := service.NewServiceExecService(store, metadataSvc, logger)
	settingsSvc := service.NewAppSettingsService(store, logger)
	userSvc := service.NewUserService(store, logger)
	groupSvc := service.NewGroupService(store, logger)

	// 6.1 Метрики учёта сущностей сайта
	prometheus.MustRegister(service.NewSiteStatsCollector(store, logger))

	// 7. JWT middleware (JWKS от IdP, резолвер пользователей из БД)
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		cfg.JWTEmailClaim,
		store.Users(),
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка инициализации JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 8. Валидатор запросов по контракту API
	validator, err := middleware.NewOpenAPIValidator(api.Spec, logger)
	if err != nil {
		logger.Error("Ошибка загрузки контракта API", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. topologymetrics — мониторинг зависимостей (PostgreSQL + IdP)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"metastore",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 10. Health handlers и API handler
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		middleware.NewIdPReadinessChecker(cfg.JWTJWKSURL, 2*time.Second),
	)
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		userSvc,
		groupSvc,
		metadataSvc,
		msetSvc,
		fileSvc,
		subSvc,
		execSvc,
		settingsSvc,
		logger,
	)

	// 11. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, apiHandler, jwtAuth, validator)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("Metastore остановлен")
}
