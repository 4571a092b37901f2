// main.go — точка входа Moderation Dashboard.
// BFF перед API модерации объявлений: список с локальными фильтрами,
// детальная страница с формой решения, статистика.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/adsapi"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/adsapi/contract"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/api/handlers"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/api/middleware"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/config"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/querycache"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/server"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/service"
)

func main() {
	// 1. .env (необязательный) и конфигурация из переменных окружения
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Ошибка загрузки .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Moderation Dashboard запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Клиент внешнего API (+ проверка ответов по OpenAPI контракту)
	var clientOpts []adsapi.Option
	if cfg.APIValidateResponses {
		validator, err := contract.Load(ctx)
		if err != nil {
			logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
			os.Exit(1)
		}
		clientOpts = append(clientOpts, adsapi.WithValidator(validator))
		logger.Info("Проверка ответов API по контракту включена",
			slog.Int("schemas", len(validator.Schemas())),
		)
	}
	apiClient := adsapi.New(cfg.APIURL, cfg.APITimeout, logger, clientOpts...)
	logger.Info("Клиент API модерации создан", slog.String("base_url", apiClient.BaseURL()))

	// 4. Кэш запросов
	cache := querycache.New(cfg.CacheSize, cfg.CacheTTL, logger)

	// 4.1 Рассылка инвалидаций между экземплярами (опционально)
	var wg sync.WaitGroup
	if cfg.RedisURL != "" {
		broadcaster, err := querycache.NewRedisBroadcaster(cfg.RedisURL, cfg.RedisChannel, logger)
		if err != nil {
			logger.Error("Ошибка настройки Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer broadcaster.Close()

		if err := broadcaster.Ping(ctx); err != nil {
			logger.Warn("Redis недоступен, инвалидации будут рассылаться после восстановления",
				slog.String("error", err.Error()),
			)
		}
		cache.SetBroadcaster(broadcaster)

		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.RunPublisher(ctx)
		}()
		go func() {
			defer wg.Done()
			if err := broadcaster.Run(ctx, cache); err != nil {
				logger.Error("Подписка на инвалидации остановлена", slog.String("error", err.Error()))
			}
		}()
	} else {
		logger.Info("MD_REDIS_URL не задан, кэш работает локально")
	}

	// 5. Сервисы
	adsSvc := service.NewAdsService(apiClient, cache, cfg.ListFetchLimit, cfg.ListPageSize, logger)
	decisionSvc := service.NewDecisionService(apiClient, cache, logger)
	statsSvc := service.NewStatsService(apiClient, cache, logger)

	// 6. topologymetrics — мониторинг внешнего API
	var readiness handlers.ReadinessChecker
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     config.ServiceName,
		Group:         cfg.DephealthGroup,
		APIURL:        cfg.APIURL,
		HealthPath:    cfg.DephealthHealthPath,
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		readiness = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 7. Handlers
	healthHandler := handlers.NewHealthHandler(readiness)
	apiHandler := handlers.NewAPIHandler(healthHandler, adsSvc, decisionSvc, statsSvc, cfg.ImagePlaceholder, logger)

	// 8. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler,
		middleware.RequestID(),
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
		middleware.Recoverer(logger),
	)

	// 9. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	// 10. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	cancel()
	wg.Wait()

	logger.Info("Moderation Dashboard остановлен")
}
