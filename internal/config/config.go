// Пакет config — загрузка и валидация конфигурации Moderation Dashboard
// из переменных окружения (и необязательного .env файла).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ServiceName — имя сервиса в логах, health-ответах и графе зависимостей.
const ServiceName = "moderation-dashboard"

// Config содержит все параметры конфигурации Moderation Dashboard.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Внешний API модерации ---

	// Базовый URL API без /api/v1 (обязательный)
	APIURL string
	// Таймаут одного запроса к API (по умолчанию 10s)
	APITimeout time.Duration
	// Проверять ответы API по OpenAPI контракту
	APIValidateResponses bool

	// --- Список ---

	// Размер единственной выборки списка (по умолчанию 150)
	ListFetchLimit int
	// Размер страницы отфильтрованного списка (по умолчанию 10)
	ListPageSize int
	// Изображение-заглушка для объявлений без фото
	ImagePlaceholder string

	// --- Кэш запросов ---

	CacheSize int
	CacheTTL  time.Duration
	// URL Redis для рассылки инвалидаций между экземплярами (пусто — выключено)
	RedisURL     string
	RedisChannel string

	// --- CORS ---

	CORSAllowedOrigins []string

	// --- Мониторинг зависимостей ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
	// Путь проверки внешнего API (пусто — /api/v1/stats/summary)
	DephealthHealthPath string
	// Лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool
}

// LoadDotEnv загружает переменные из .env файлов (по умолчанию ./.env).
// Уже заданные переменные окружения не перезаписываются.
// Отсутствие файла ошибкой не считается.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("загрузка %s: %w", name, err)
		}
	}
	return nil
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// MD_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("MD_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("MD_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MD_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// MD_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MD_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MD_LOG_LEVEL: %w", err)
	}

	// MD_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MD_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MD_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("MD_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MD_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("MD_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MD_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("MD_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MD_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// MD_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MD_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Внешний API ---

	// MD_API_URL — базовый URL API модерации (обязательный)
	cfg.APIURL, err = getEnvRequired("MD_API_URL")
	if err != nil {
		return nil, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if u, perr := url.Parse(cfg.APIURL); perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("MD_API_URL: некорректный URL %q, ожидается http(s)://host[:port]", cfg.APIURL)
	}

	// MD_API_TIMEOUT — таймаут запроса к API (по умолчанию 10s)
	cfg.APITimeout, err = getEnvPositiveDuration("MD_API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MD_API_TIMEOUT: %w", err)
	}

	cfg.APIValidateResponses, err = getEnvBool("MD_API_VALIDATE_RESPONSES", false)
	if err != nil {
		return nil, fmt.Errorf("MD_API_VALIDATE_RESPONSES: %w", err)
	}

	// --- Список ---

	// MD_LIST_FETCH_LIMIT — размер выборки списка (по умолчанию 150)
	cfg.ListFetchLimit, err = getEnvInt("MD_LIST_FETCH_LIMIT", 150)
	if err != nil {
		return nil, fmt.Errorf("MD_LIST_FETCH_LIMIT: %w", err)
	}
	if cfg.ListFetchLimit < 1 || cfg.ListFetchLimit > 1000 {
		return nil, fmt.Errorf("MD_LIST_FETCH_LIMIT: значение %d вне допустимого диапазона 1-1000", cfg.ListFetchLimit)
	}

	// MD_LIST_PAGE_SIZE — размер страницы (по умолчанию 10)
	cfg.ListPageSize, err = getEnvInt("MD_LIST_PAGE_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("MD_LIST_PAGE_SIZE: %w", err)
	}
	if cfg.ListPageSize < 1 || cfg.ListPageSize > 100 {
		return nil, fmt.Errorf("MD_LIST_PAGE_SIZE: значение %d вне допустимого диапазона 1-100", cfg.ListPageSize)
	}

	cfg.ImagePlaceholder = getEnvDefault("MD_IMAGE_PLACEHOLDER", "https://via.placeholder.com/600x400?text=No+Image")

	// --- Кэш ---

	// MD_CACHE_SIZE — максимальное количество записей (по умолчанию 512)
	cfg.CacheSize, err = getEnvInt("MD_CACHE_SIZE", 512)
	if err != nil {
		return nil, fmt.Errorf("MD_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("MD_CACHE_SIZE: значение должно быть > 0")
	}

	// MD_CACHE_TTL — время жизни записи (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvPositiveDuration("MD_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MD_CACHE_TTL: %w", err)
	}

	// MD_REDIS_URL — redis://[:password@]host:port/db (опционально)
	cfg.RedisURL = getEnvDefault("MD_REDIS_URL", "")
	cfg.RedisChannel = getEnvDefault("MD_REDIS_CHANNEL", "moderation-dashboard:invalidate")

	// --- CORS ---

	cfg.CORSAllowedOrigins = parseCSV(getEnvDefault("MD_CORS_ALLOWED_ORIGINS", "http://localhost:5173"))

	// --- Мониторинг зависимостей ---

	cfg.DephealthGroup = getEnvDefault("MD_DEPHEALTH_GROUP", "moderation")

	// MD_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvPositiveDuration("MD_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MD_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthHealthPath = getEnvDefault("MD_DEPHEALTH_HEALTH_PATH", "")

	// DEPHEALTH_ISENTRY — общий для всех модулей флаг входной точки
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
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

// getEnvPositiveDuration — как getEnvDuration, но значение должно быть > 0.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
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

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
