// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Moderation Dashboard мониторит одну зависимость:
//   - Moderation API — HTTP checker к лёгкому GET endpoint (critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamDependencyName — имя зависимости в метриках и ответе /health/ready.
const UpstreamDependencyName = "moderation-api"

// DefaultUpstreamHealthPath — endpoint, которым проверяется внешний API.
// Отдельного health endpoint у API нет; сводная статистика — самый лёгкий GET.
const DefaultUpstreamHealthPath = "/api/v1/stats/summary"

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// DephealthConfig — параметры мониторинга.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (MD_DEPHEALTH_GROUP)
	Group string
	// APIURL — базовый URL внешнего API (MD_API_URL)
	APIURL string
	// HealthPath — путь проверки; пустой — DefaultUpstreamHealthPath
	HealthPath    string
	CheckInterval time.Duration
	// IsEntry — лейбл isentry=yes (DEPHEALTH_ISENTRY)
	IsEntry bool
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(cfg DephealthConfig, logger *slog.Logger, registerer prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	parsed, err := url.Parse(cfg.APIURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("некорректный URL внешнего API: %q", cfg.APIURL)
	}

	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = DefaultUpstreamHealthPath
	}
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}

	depOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.APIURL),
		dephealth.WithHTTPHealthPath(healthPath),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}
	if cfg.IsEntry {
		depOpts = append(depOpts, dephealth.WithLabel("isentry", "yes"))
	}
	if parsed.Scheme == "https" {
		depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(false))
	}

	opts := make([]dephealth.Option, 0, 2+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.HTTP(UpstreamDependencyName, depOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (Moderation API)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady реализует handlers.ReadinessChecker.
// Пустая карта (первая проверка ещё не выполнена) — "degraded".
func (ds *DephealthService) CheckReady() (status, message string) {
	return readinessFromHealth(ds.Health())
}

func readinessFromHealth(health map[string]bool) (status, message string) {
	if len(health) == 0 {
		return "degraded", "проверка зависимостей ещё не выполнялась"
	}
	var failed []string
	for name, ok := range health {
		if !ok {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		slices.Sort(failed)
		return "fail", "зависимость недоступна: " + strings.Join(failed, ", ")
	}
	return "ok", ""
}
