// stats.go — страница статистики модерации.
// Четыре запроса выполняются параллельно, каждый через кэш и со своей ошибкой:
// сбой одного раздела не скрывает остальные.
package service

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/querycache"
)

// StatsAPI — операции внешнего API над статистикой (реализует adsapi.Client).
type StatsAPI interface {
	SummaryStats(ctx context.Context) (*model.SummaryStats, error)
	ActivityChart(ctx context.Context, period model.Period) ([]model.ActivityPoint, error)
	DecisionsChart(ctx context.Context, period model.Period) (*model.DecisionsChart, error)
	CategoriesChart(ctx context.Context, period model.Period) (model.CategoriesChart, error)
}

// Section — результат одного раздела: данные либо ошибка.
type Section[T any] struct {
	Data  T      `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	// err — исходная ошибка (для логов и классификации в handler'ах)
	err error
}

// Err возвращает исходную ошибку раздела.
func (s Section[T]) Err() error { return s.err }

// OK — раздел загружен без ошибки.
func (s Section[T]) OK() bool { return s.err == nil }

// DecisionBar — столбец диаграммы решений.
type DecisionBar struct {
	Action  model.DecisionAction `json:"action"`
	Name    string               `json:"name"`
	Value   int                  `json:"value"`
	Percent float64              `json:"percent"`
}

// CategoryTuple — пара «категория — количество».
type CategoryTuple struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// SummaryView — сводка с отформатированным средним временем проверки.
type SummaryView struct {
	model.SummaryStats
	AverageReviewTimeText string `json:"averageReviewTimeText"`
}

// StatsView — собранная страница статистики.
type StatsView struct {
	Period     model.Period                   `json:"period"`
	Summary    Section[*SummaryView]          `json:"summary"`
	Activity   Section[[]model.ActivityPoint] `json:"activity"`
	Decisions  Section[[]DecisionBar]         `json:"decisions"`
	Categories Section[[]CategoryTuple]       `json:"categories"`
	// Ready — все четыре запроса завершились (успешно или с ошибкой)
	Ready bool `json:"ready"`
}

// Сообщения об ошибках разделов.
const (
	MessageSummaryFailed    = "Не удалось загрузить сводную статистику"
	MessageActivityFailed   = "Не удалось загрузить график активности"
	MessageDecisionsFailed  = "Не удалось загрузить распределение решений"
	MessageCategoriesFailed = "Не удалось загрузить статистику по категориям"
)

// StatsService — загрузка статистики.
type StatsService struct {
	api    StatsAPI
	cache  *querycache.Cache
	logger *slog.Logger
}

// NewStatsService создаёт сервис статистики.
func NewStatsService(api StatsAPI, cache *querycache.Cache, logger *slog.Logger) *StatsService {
	return &StatsService{
		api:    api,
		cache:  cache,
		logger: logger.With(slog.String("component", "stats_service")),
	}
}

// Load загружает все разделы для period. Сводка не зависит от периода и
// при смене периода берётся из кэша.
func (s *StatsService) Load(ctx context.Context, period model.Period) *StatsView {
	view := &StatsView{Period: period}

	// Ошибки собираются по разделам, поэтому Group без WithContext:
	// сбой одного запроса не отменяет остальные.
	var g errgroup.Group

	g.Go(func() error {
		summary, err := querycache.Fetch(ctx, s.cache, querycache.SummaryKey(),
			func(ctx context.Context) (*model.SummaryStats, error) {
				return s.api.SummaryStats(ctx)
			})
		if err != nil {
			view.Summary = failed[*SummaryView](s, err, MessageSummaryFailed, querycache.KindStatsSummary)
			return nil
		}
		view.Summary.Data = &SummaryView{
			SummaryStats:          *summary,
			AverageReviewTimeText: FormatAverageReviewTime(summary.AverageReviewTime),
		}
		return nil
	})

	g.Go(func() error {
		points, err := querycache.Fetch(ctx, s.cache, querycache.StatsKey(querycache.KindStatsActivity, period),
			func(ctx context.Context) ([]model.ActivityPoint, error) {
				return s.api.ActivityChart(ctx, period)
			})
		if err != nil {
			view.Activity = failed[[]model.ActivityPoint](s, err, MessageActivityFailed, querycache.KindStatsActivity)
			return nil
		}
		view.Activity.Data = points
		return nil
	})

	g.Go(func() error {
		chart, err := querycache.Fetch(ctx, s.cache, querycache.StatsKey(querycache.KindStatsDecisions, period),
			func(ctx context.Context) (*model.DecisionsChart, error) {
				return s.api.DecisionsChart(ctx, period)
			})
		if err != nil {
			view.Decisions = failed[[]DecisionBar](s, err, MessageDecisionsFailed, querycache.KindStatsDecisions)
			return nil
		}
		view.Decisions.Data = DecisionPercentages(*chart)
		return nil
	})

	g.Go(func() error {
		chart, err := querycache.Fetch(ctx, s.cache, querycache.StatsKey(querycache.KindStatsCategories, period),
			func(ctx context.Context) (model.CategoriesChart, error) {
				return s.api.CategoriesChart(ctx, period)
			})
		if err != nil {
			view.Categories = failed[[]CategoryTuple](s, err, MessageCategoriesFailed, querycache.KindStatsCategories)
			return nil
		}
		view.Categories.Data = CategoryTuples(chart)
		return nil
	})

	_ = g.Wait()
	view.Ready = true
	return view
}

// failed заполняет раздел ошибкой и логирует её.
func failed[T any](s *StatsService, err error, message string, kind querycache.Kind) Section[T] {
	err = translateUpstreamError(err)
	s.logger.Warn("Раздел статистики не загружен",
		slog.String("section", string(kind)),
		slog.String("error", err.Error()),
	)
	return Section[T]{Error: message, err: err}
}

// DecisionPercentages — доли решений в процентах от max(total, 1).
// При нулевых счётчиках все доли равны 0.
func DecisionPercentages(d model.DecisionsChart) []DecisionBar {
	total := max(d.Approved+d.Rejected+d.RequestChanges, 1)
	bar := func(action model.DecisionAction, value int) DecisionBar {
		return DecisionBar{
			Action:  action,
			Name:    action.DisplayName(),
			Value:   value,
			Percent: float64(value) / float64(total) * 100,
		}
	}
	return []DecisionBar{
		bar(model.ActionApproved, d.Approved),
		bar(model.ActionRejected, d.Rejected),
		bar(model.ActionRequestChanges, d.RequestChanges),
	}
}

// FormatAverageReviewTime форматирует среднее время проверки (секунды):
// 0 — «—», меньше минуты — «N с», иначе округлённые минуты «N мин».
func FormatAverageReviewTime(seconds float64) string {
	switch {
	case seconds == 0:
		return "—"
	case seconds < 60:
		return strconv.FormatFloat(seconds, 'f', -1, 64) + " с"
	default:
		return strconv.FormatFloat(math.Round(seconds/60), 'f', -1, 64) + " мин"
	}
}

// CategoryTuples преобразует распределение по категориям в список,
// отсортированный по имени категории.
func CategoryTuples(c model.CategoriesChart) []CategoryTuple {
	out := make([]CategoryTuple, 0, len(c))
	for name, value := range c {
		out = append(out, CategoryTuple{Name: name, Value: value})
	}
	slices.SortFunc(out, func(a, b CategoryTuple) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
