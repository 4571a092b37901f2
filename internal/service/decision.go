// decision.go — отправка решений модератора и согласование кэша.
// Pipeline: валидация (до сети) → один запрос в полёте на объявление →
// API → замена детальной записи в кэше + инвалидация списков и статистики.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/decision"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/querycache"
)

// Prometheus-метрики решений.
var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "md_decisions_total",
	Help: "Решения модераторов по результату (ok, validation, in_flight, failed).",
}, []string{"kind", "result"})

// Ёмкость и время жизни реестра форм.
const (
	formRegistrySize = 4096
	formRegistryTTL  = time.Hour
)

// DecisionService — отправка решений модератора.
type DecisionService struct {
	api    AdsAPI
	cache  *querycache.Cache
	logger *slog.Logger

	formsMu sync.Mutex
	forms   *expirable.LRU[int64, *decision.Form]
}

// NewDecisionService создаёт сервис решений.
func NewDecisionService(api AdsAPI, cache *querycache.Cache, logger *slog.Logger) *DecisionService {
	return &DecisionService{
		api:    api,
		cache:  cache,
		forms:  expirable.NewLRU[int64, *decision.Form](formRegistrySize, nil, formRegistryTTL),
		logger: logger.With(slog.String("component", "decision_service")),
	}
}

// Form возвращает форму решения объявления id (создаёт при первом обращении).
func (s *DecisionService) Form(id int64) decision.Snapshot {
	return s.form(id).Snapshot()
}

// Navigate вызывается при переходе к объявлению id: устаревшая ошибка формы очищается.
func (s *DecisionService) Navigate(id int64) decision.Snapshot {
	f := s.form(id)
	f.Reset()
	return f.Snapshot()
}

// Submit отправляет решение по объявлению id.
//
// Ошибки:
//   - decision.ErrReasonRequired — нет причины для reject/requestChanges (запрос не отправлялся)
//   - decision.ErrSubmissionInFlight — по объявлению уже идёт отправка
//   - ErrDecisionFailed — API не принял решение (форма снова редактируема)
func (s *DecisionService) Submit(ctx context.Context, id int64, sub decision.Submission) (*model.Advertisement, decision.Snapshot, error) {
	f := s.form(id)

	if err := f.Begin(sub); err != nil {
		result := "validation"
		if errors.Is(err, decision.ErrSubmissionInFlight) {
			result = "in_flight"
		}
		decisionsTotal.WithLabelValues(string(sub.Kind), result).Inc()
		return nil, f.Snapshot(), err
	}

	ad, err := s.send(ctx, id, sub)
	if err != nil {
		_ = f.Fail(decision.MessageSubmitFailed)
		decisionsTotal.WithLabelValues(string(sub.Kind), "failed").Inc()
		s.logger.Warn("Решение не отправлено",
			slog.Int64("ad_id", id),
			slog.String("kind", string(sub.Kind)),
			slog.String("error", err.Error()),
		)
		return nil, f.Snapshot(), fmt.Errorf("%w: %w", ErrDecisionFailed, translateUpstreamError(err))
	}

	s.reconcile(id, ad)
	_ = f.Succeed()
	decisionsTotal.WithLabelValues(string(sub.Kind), "ok").Inc()

	s.logger.Info("Решение модератора принято",
		slog.Int64("ad_id", id),
		slog.String("kind", string(sub.Kind)),
		slog.String("status", string(ad.Status)),
	)
	return ad, f.Snapshot(), nil
}

// send вызывает соответствующий endpoint внешнего API.
func (s *DecisionService) send(ctx context.Context, id int64, sub decision.Submission) (*model.Advertisement, error) {
	switch sub.Kind {
	case decision.KindApprove:
		return s.api.Approve(ctx, id)
	case decision.KindReject:
		return s.api.Reject(ctx, id, sub.Payload())
	case decision.KindRequestChanges:
		return s.api.RequestChanges(ctx, id, sub.Payload())
	default:
		return nil, fmt.Errorf("неизвестный вид решения %q", sub.Kind)
	}
}

// reconcile заменяет детальную запись и помечает устаревшими списки и
// статистику, чтобы следующее чтение ушло в API. Рассылка другим
// экземплярам выполняется в фоне и не зависит от контекста запроса.
func (s *DecisionService) reconcile(id int64, ad *model.Advertisement) {
	s.cache.Replace(querycache.AdKey(id), ad)
	s.cache.InvalidateKind(querycache.KindAdList)
	for _, kind := range []querycache.Kind{
		querycache.KindStatsSummary,
		querycache.KindStatsActivity,
		querycache.KindStatsDecisions,
		querycache.KindStatsCategories,
	} {
		s.cache.InvalidateKind(kind)
	}
}

func (s *DecisionService) form(id int64) *decision.Form {
	s.formsMu.Lock()
	defer s.formsMu.Unlock()

	if f, ok := s.forms.Get(id); ok {
		return f
	}
	f := decision.NewForm(id)
	s.forms.Add(id, f)
	return f
}
