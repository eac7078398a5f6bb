// Пакет config — загрузка и валидация конфигурации Metastore
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Metastore.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- JWT ---

	// Issuer JWT
	JWTIssuer string
	// URL JWKS endpoint
	JWTJWKSURL string
	// Claim с email пользователя
	JWTEmailClaim string
	// Интервал обновления JWKS
	JWKSRefreshInterval time.Duration
	// Допустимый перекос часов при проверке токена
	JWTLeeway time.Duration

	// --- Хранилище файлов ---

	// Каталог blob-хранилища
	StorageDir string

	// --- Генерация site_id ---

	// Число цифр в случайной части site_id
	SiteIDDigits int
	// Префиксы site_id по сущностям
	SiteIDPrefixes SiteIDPrefixes

	// --- Кэш схемы ---

	// Время жизни кэша определений метаданных
	SchemaCacheTTL time.Duration

	// --- Служебное ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// SiteIDPrefixes — префиксы человекочитаемых идентификаторов
// по типам сущностей.
type SiteIDPrefixes struct {
	User        string
	Group       string
	File        string
	Metadataset string
	Submission  string
	Service     string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// MS_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("MS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("MS_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MS_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// MS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MS_LOG_LEVEL: %w", err)
	}

	// MS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// MS_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("MS_DB_HOST")
	if err != nil {
		return nil, err
	}

	// MS_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("MS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("MS_DB_PORT: %w", err)
	}

	// MS_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("MS_DB_NAME")
	if err != nil {
		return nil, err
	}

	// MS_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("MS_DB_USER")
	if err != nil {
		return nil, err
	}

	// MS_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("MS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// MS_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("MS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("MS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT ---

	// MS_JWT_ISSUER — обязательный
	cfg.JWTIssuer, err = getEnvRequired("MS_JWT_ISSUER")
	if err != nil {
		return nil, err
	}
	cfg.JWTIssuer = strings.TrimRight(cfg.JWTIssuer, "/")

	// MS_JWT_JWKS_URL — авто-вычисляется из issuer, если не задан
	cfg.JWTJWKSURL = getEnvDefault("MS_JWT_JWKS_URL",
		fmt.Sprintf("%s/protocol/openid-connect/certs", cfg.JWTIssuer))

	// MS_JWT_EMAIL_CLAIM — claim с email (по умолчанию email)
	cfg.JWTEmailClaim = getEnvDefault("MS_JWT_EMAIL_CLAIM", "email")

	// MS_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("MS_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MS_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// MS_JWT_LEEWAY — допустимый перекос часов (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("MS_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_JWT_LEEWAY: %w", err)
	}

	// --- Хранилище файлов ---

	// MS_STORAGE_DIR — каталог blob-хранилища (по умолчанию /var/lib/metastore)
	cfg.StorageDir = getEnvDefault("MS_STORAGE_DIR", "/var/lib/metastore")

	// --- Генерация site_id ---

	// MS_SITE_ID_DIGITS — число цифр в site_id (по умолчанию 8)
	cfg.SiteIDDigits, err = getEnvInt("MS_SITE_ID_DIGITS", 8)
	if err != nil {
		return nil, fmt.Errorf("MS_SITE_ID_DIGITS: %w", err)
	}
	if cfg.SiteIDDigits < 4 || cfg.SiteIDDigits > 18 {
		return nil, fmt.Errorf("MS_SITE_ID_DIGITS: значение %d вне допустимого диапазона 4-18", cfg.SiteIDDigits)
	}

	// MS_SITE_ID_PREFIX_* — префиксы по сущностям
	cfg.SiteIDPrefixes = SiteIDPrefixes{
		User:        getEnvDefault("MS_SITE_ID_PREFIX_USER", "MST-USR-"),
		Group:       getEnvDefault("MS_SITE_ID_PREFIX_GROUP", "MST-GRP-"),
		File:        getEnvDefault("MS_SITE_ID_PREFIX_FILE", "MST-FIL-"),
		Metadataset: getEnvDefault("MS_SITE_ID_PREFIX_METADATASET", "MST-SET-"),
		Submission:  getEnvDefault("MS_SITE_ID_PREFIX_SUBMISSION", "MST-SUB-"),
		Service:     getEnvDefault("MS_SITE_ID_PREFIX_SERVICE", "MST-SVC-"),
	}

	// --- Кэш схемы ---

	// MS_SCHEMA_CACHE_TTL — TTL кэша определений (по умолчанию 30s)
	cfg.SchemaCacheTTL, err = getEnvDuration("MS_SCHEMA_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_SCHEMA_CACHE_TTL: %w", err)
	}

	// --- Служебное ---

	// MS_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("MS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// MS_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию metastore)
	cfg.DephealthGroup = getEnvDefault("MS_DEPHEALTH_GROUP", "metastore")

	// MS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (формат postgres://, используется topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
