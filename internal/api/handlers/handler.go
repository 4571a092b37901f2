// handler.go — основной обработчик API Moderation Dashboard.
// Объединяет health и бизнес-обработчики, регистрирует маршруты в chi.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/moderation-dashboard/internal/api/errors"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/decision"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/service"
)

// Сообщения об ошибках, которые видит модератор.
const (
	MessageInvalidID         = "Некорректный идентификатор объявления"
	MessageListLoadFailed    = "Не удалось загрузить объявления"
	MessageItemLoadFailed    = "Не удалось загрузить объявление"
	MessageItemNotFound      = "Объявление не найдено"
	MessageUnexpectedContent = "Сервер вернул HTML вместо JSON (запрос ушёл не в API)."
	MessagePageNotFound      = "Страница не найдена"
)

// AdsReader — чтение объявлений (реализует service.AdsService).
type AdsReader interface {
	List(ctx context.Context, f service.ListFilter) (*service.ListView, error)
	Get(ctx context.Context, id int64) (*model.Advertisement, error)
}

// DecisionSubmitter — формы и отправка решений (реализует service.DecisionService).
type DecisionSubmitter interface {
	Form(id int64) decision.Snapshot
	Navigate(id int64) decision.Snapshot
	Submit(ctx context.Context, id int64, sub decision.Submission) (*model.Advertisement, decision.Snapshot, error)
}

// StatsLoader — загрузка статистики (реализует service.StatsService).
type StatsLoader interface {
	Load(ctx context.Context, period model.Period) *service.StatsView
}

// APIHandler — основной обработчик API Moderation Dashboard.
type APIHandler struct {
	health      *HealthHandler
	ads         AdsReader
	decisions   DecisionSubmitter
	stats       StatsLoader
	placeholder string
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// placeholder — изображение для объявлений без фото.
func NewAPIHandler(
	health *HealthHandler,
	ads AdsReader,
	decisions DecisionSubmitter,
	stats StatsLoader,
	placeholder string,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:      health,
		ads:         ads,
		decisions:   decisions,
		stats:       stats,
		placeholder: placeholder,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// RegisterRoutes регистрирует все маршруты в router.
func (h *APIHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Get("/", h.ListAds)
	r.Get("/list", h.ListAds)

	r.Route("/item/{id}", func(r chi.Router) {
		r.Get("/", h.GetAd)
		r.Post("/{action}", h.SubmitDecision)
	})

	r.Get("/stats", h.GetStats)

	r.NotFound(h.NotFound)
}

// NotFound — любой неизвестный маршрут.
func (h *APIHandler) NotFound(w http.ResponseWriter, _ *http.Request) {
	apierrors.NotFound(w, MessagePageNotFound)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeReadError сопоставляет ошибку чтения с HTTP-ответом.
// Отменённый клиентом запрос ответа не получает: клиент уже ушёл.
func (h *APIHandler) writeReadError(w http.ResponseWriter, r *http.Request, err error, loadMessage string) {
	switch {
	case errors.Is(err, service.ErrCanceled):
		h.logger.Debug("Запрос отменён клиентом", slog.String("path", r.URL.Path))
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, MessageItemNotFound)
	case errors.Is(err, service.ErrUnexpectedContent):
		apierrors.UnexpectedContent(w, MessageUnexpectedContent)
	default:
		h.logger.Error("Ошибка чтения из внешнего API",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.UpstreamUnavailable(w, loadMessage)
	}
}
