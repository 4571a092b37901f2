package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/adsapi"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/querycache"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCache() *querycache.Cache {
	return querycache.New(64, time.Minute, testLogger())
}

// fakeAPI — mock внешнего API (AdsAPI + StatsAPI) со счётчиками вызовов.
type fakeAPI struct {
	mu sync.Mutex

	ads   []model.Advertisement
	byID  map[int64]*model.Advertisement
	calls map[string]int

	lastPage, lastLimit int
	lastPayload         model.ModerationPayload

	listErr     error
	getErr      error
	decisionErr error
	statsErr    map[string]error

	// decisionStarted/decisionRelease — блокировка решения для тестов «в полёте»
	decisionStarted chan struct{}
	decisionRelease chan struct{}

	summary    model.SummaryStats
	activity   []model.ActivityPoint
	decisions  model.DecisionsChart
	categories model.CategoriesChart
}

func newFakeAPI(ads ...model.Advertisement) *fakeAPI {
	f := &fakeAPI{
		ads:      ads,
		byID:     make(map[int64]*model.Advertisement),
		calls:    make(map[string]int),
		statsErr: make(map[string]error),
	}
	for i := range ads {
		ad := ads[i]
		f.byID[ad.ID] = &ad
	}
	return f
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeAPI) ListAds(_ context.Context, page, limit int) (*model.AdsListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	f.lastPage, f.lastLimit = page, limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Advertisement, 0, len(f.ads))
	for _, ad := range f.ads {
		if cur, ok := f.byID[ad.ID]; ok {
			out = append(out, *cur)
		}
	}
	return &model.AdsListResponse{
		Ads:        out,
		Pagination: model.Pagination{CurrentPage: page, TotalPages: 1, TotalItems: len(out), ItemsPerPage: limit},
	}, nil
}

func (f *fakeAPI) GetAd(_ context.Context, id int64) (*model.Advertisement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++
	if f.getErr != nil {
		return nil, f.getErr
	}
	ad, ok := f.byID[id]
	if !ok {
		return nil, &adsapi.StatusError{StatusCode: 404, Body: `{"error":"not found"}`}
	}
	cp := *ad
	return &cp, nil
}

func (f *fakeAPI) decide(ctx context.Context, op string, id int64, status model.AdStatus, payload model.ModerationPayload) (*model.Advertisement, error) {
	f.record(op)
	if f.decisionStarted != nil {
		f.decisionStarted <- struct{}{}
		select {
		case <-f.decisionRelease:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPayload = payload
	if f.decisionErr != nil {
		return nil, f.decisionErr
	}
	ad, ok := f.byID[id]
	if !ok {
		return nil, &adsapi.StatusError{StatusCode: 404}
	}
	ad.Status = status
	cp := *ad
	return &cp, nil
}

func (f *fakeAPI) Approve(ctx context.Context, id int64) (*model.Advertisement, error) {
	return f.decide(ctx, "approve", id, model.StatusApproved, model.ModerationPayload{})
}

func (f *fakeAPI) Reject(ctx context.Context, id int64, payload model.ModerationPayload) (*model.Advertisement, error) {
	return f.decide(ctx, "reject", id, model.StatusRejected, payload)
}

func (f *fakeAPI) RequestChanges(ctx context.Context, id int64, payload model.ModerationPayload) (*model.Advertisement, error) {
	return f.decide(ctx, "requestChanges", id, model.StatusPending, payload)
}

func (f *fakeAPI) SummaryStats(_ context.Context) (*model.SummaryStats, error) {
	f.record("summary")
	if err := f.statsError("summary"); err != nil {
		return nil, err
	}
	s := f.summary
	return &s, nil
}

func (f *fakeAPI) ActivityChart(_ context.Context, _ model.Period) ([]model.ActivityPoint, error) {
	f.record("activity")
	if err := f.statsError("activity"); err != nil {
		return nil, err
	}
	return f.activity, nil
}

func (f *fakeAPI) DecisionsChart(_ context.Context, _ model.Period) (*model.DecisionsChart, error) {
	f.record("decisions")
	if err := f.statsError("decisions"); err != nil {
		return nil, err
	}
	d := f.decisions
	return &d, nil
}

func (f *fakeAPI) CategoriesChart(_ context.Context, _ model.Period) (model.CategoriesChart, error) {
	f.record("categories")
	if err := f.statsError("categories"); err != nil {
		return nil, err
	}
	return f.categories, nil
}

func (f *fakeAPI) statsError(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statsErr[op]
}

// testAd создаёт объявление с заданными полями.
func testAd(id int64, status model.AdStatus, price float64) model.Advertisement {
	return model.Advertisement{
		ID:        id,
		Title:     "Объявление",
		Price:     price,
		Category:  "Электроника",
		Status:    status,
		Priority:  model.PriorityNormal,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
	}
}

func TestAdsService_FetchAllSingleRequest(t *testing.T) {
	api := newFakeAPI(testAd(1, model.StatusPending, 100), testAd(2, model.StatusApproved, 200))
	svc := NewAdsService(api, newTestCache(), 0, 0, testLogger())

	for range 3 {
		resp, err := svc.FetchAll(context.Background())
		if err != nil {
			t.Fatalf("FetchAll() вернул ошибку: %v", err)
		}
		if len(resp.Ads) != 2 {
			t.Fatalf("len(Ads) = %d, ожидается 2", len(resp.Ads))
		}
	}

	if got := api.count("list"); got != 1 {
		t.Errorf("вызовов ListAds = %d, ожидается 1 (кэш)", got)
	}
	if api.lastPage != 1 || api.lastLimit != DefaultFetchLimit {
		t.Errorf("page=%d limit=%d, ожидается page=1 limit=%d", api.lastPage, api.lastLimit, DefaultFetchLimit)
	}
}

func TestAdsService_ListUsesCachedCollection(t *testing.T) {
	var ads []model.Advertisement
	for i := int64(1); i <= 25; i++ {
		ads = append(ads, testAd(i, model.StatusPending, float64(i*10)))
	}
	api := newFakeAPI(ads...)
	svc := NewAdsService(api, newTestCache(), 150, 10, testLogger())

	view, err := svc.List(context.Background(), DefaultListFilter().WithPage(3))
	if err != nil {
		t.Fatalf("List() вернул ошибку: %v", err)
	}
	if view.TotalItems != 25 || view.TotalPages != 3 || view.Page != 3 {
		t.Errorf("total=%d pages=%d page=%d, ожидается 25/3/3", view.TotalItems, view.TotalPages, view.Page)
	}
	if len(view.Items) != 5 {
		t.Errorf("len(Items) = %d, ожидается 5", len(view.Items))
	}

	// Смена фильтров не вызывает новый запрос
	if _, err := svc.List(context.Background(), DefaultListFilter().WithSort(model.SortPriceDesc)); err != nil {
		t.Fatalf("List() вернул ошибку: %v", err)
	}
	if got := api.count("list"); got != 1 {
		t.Errorf("вызовов ListAds = %d, ожидается 1", got)
	}
}

func TestAdsService_Get(t *testing.T) {
	api := newFakeAPI(testAd(7, model.StatusPending, 100))
	svc := NewAdsService(api, newTestCache(), 0, 0, testLogger())

	ad, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get() вернул ошибку: %v", err)
	}
	if ad.ID != 7 {
		t.Errorf("ID = %d, ожидается 7", ad.ID)
	}
	if _, err := svc.Get(context.Background(), 7); err != nil {
		t.Fatalf("Get() вернул ошибку: %v", err)
	}
	if got := api.count("get"); got != 1 {
		t.Errorf("вызовов GetAd = %d, ожидается 1", got)
	}
}

func TestAdsService_ErrorsTranslated(t *testing.T) {
	tests := []struct {
		name     string
		apiErr   error
		expected error
	}{
		{"not found", &adsapi.StatusError{StatusCode: 404}, ErrNotFound},
		{"server error", &adsapi.StatusError{StatusCode: 500}, ErrUpstreamUnavailable},
		{"timeout", adsapi.ErrTimeout, ErrUpstreamUnavailable},
		{"html", adsapi.ErrUnexpectedContent, ErrUnexpectedContent},
		{"canceled", adsapi.ErrCanceled, ErrCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.getErr = tt.apiErr
			svc := NewAdsService(api, newTestCache(), 0, 0, testLogger())

			_, err := svc.Get(context.Background(), 1)
			if !errors.Is(err, tt.expected) {
				t.Errorf("ошибка = %v, ожидается %v", err, tt.expected)
			}
			if !errors.Is(err, tt.apiErr) {
				t.Errorf("исходная ошибка потеряна: %v", err)
			}
		})
	}
}

func TestAdsService_ListErrorNotCached(t *testing.T) {
	api := newFakeAPI(testAd(1, model.StatusPending, 100))
	api.listErr = &adsapi.StatusError{StatusCode: 503}
	svc := NewAdsService(api, newTestCache(), 0, 0, testLogger())

	if _, err := svc.List(context.Background(), DefaultListFilter()); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("ошибка = %v, ожидается ErrUpstreamUnavailable", err)
	}

	api.mu.Lock()
	api.listErr = nil
	api.mu.Unlock()

	view, err := svc.List(context.Background(), DefaultListFilter())
	if err != nil {
		t.Fatalf("повторный List() вернул ошибку: %v", err)
	}
	if view.TotalItems != 1 {
		t.Errorf("TotalItems = %d, ожидается 1", view.TotalItems)
	}
	if got := api.count("list"); got != 2 {
		t.Errorf("вызовов ListAds = %d, ожидается 2", got)
	}
}
