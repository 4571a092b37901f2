// ads.go — чтение объявлений через кэш запросов.
// Список загружается одной выборкой (page=1, limit=fetchLimit) и
// фильтруется/пагинируется локально через DeriveList.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/querycache"
)

// DefaultFetchLimit — размер единственной выборки для страницы списка.
const DefaultFetchLimit = 150

// Prometheus-метрики вычисления списка.
var listDeriveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "md_list_derive_duration_seconds",
	Help:    "Длительность фильтрации, сортировки и пагинации списка.",
	Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
})

// AdsAPI — операции внешнего API над объявлениями (реализует adsapi.Client).
type AdsAPI interface {
	ListAds(ctx context.Context, page, limit int) (*model.AdsListResponse, error)
	GetAd(ctx context.Context, id int64) (*model.Advertisement, error)
	Approve(ctx context.Context, id int64) (*model.Advertisement, error)
	Reject(ctx context.Context, id int64, payload model.ModerationPayload) (*model.Advertisement, error)
	RequestChanges(ctx context.Context, id int64, payload model.ModerationPayload) (*model.Advertisement, error)
}

// AdsService — чтение объявлений.
type AdsService struct {
	api        AdsAPI
	cache      *querycache.Cache
	fetchLimit int
	pageSize   int
	logger     *slog.Logger
}

// NewAdsService создаёт сервис чтения объявлений.
// fetchLimit — размер выборки списка, pageSize — размер страницы отфильтрованного списка.
func NewAdsService(api AdsAPI, cache *querycache.Cache, fetchLimit, pageSize int, logger *slog.Logger) *AdsService {
	if fetchLimit <= 0 {
		fetchLimit = DefaultFetchLimit
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &AdsService{
		api:        api,
		cache:      cache,
		fetchLimit: fetchLimit,
		pageSize:   pageSize,
		logger:     logger.With(slog.String("component", "ads_service")),
	}
}

// FetchAll возвращает загруженную коллекцию (из кэша или одной выборкой).
func (s *AdsService) FetchAll(ctx context.Context) (*model.AdsListResponse, error) {
	key := querycache.AdListKey(1, s.fetchLimit)
	resp, err := querycache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*model.AdsListResponse, error) {
		return s.api.ListAds(ctx, 1, s.fetchLimit)
	})
	if err != nil {
		return nil, translateUpstreamError(err)
	}
	return resp, nil
}

// List возвращает видимую страницу списка для фильтров f.
func (s *AdsService) List(ctx context.Context, f ListFilter) (*ListView, error) {
	resp, err := s.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	view := DeriveList(resp.Ads, f, s.pageSize)
	listDeriveDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug("Список вычислен",
		slog.Int("fetched", len(resp.Ads)),
		slog.Int("total", view.TotalItems),
		slog.Int("page", view.Page),
	)
	return &view, nil
}

// Get возвращает детальное объявление.
func (s *AdsService) Get(ctx context.Context, id int64) (*model.Advertisement, error) {
	ad, err := querycache.Fetch(ctx, s.cache, querycache.AdKey(id), func(ctx context.Context) (*model.Advertisement, error) {
		return s.api.GetAd(ctx, id)
	})
	if err != nil {
		return nil, translateUpstreamError(err)
	}
	return ad, nil
}
