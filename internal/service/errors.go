// Пакет service — бизнес-логика Moderation Dashboard: выборка и кэширование
// объявлений, вычисление списка, отправка решений, статистика.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/adsapi"
)

// Ошибки сервисного слоя. Handler'ы сопоставляют их с HTTP-ответами.
var (
	// ErrNotFound — объявление не найдено во внешнем API.
	ErrNotFound = errors.New("объявление не найдено")
	// ErrUpstreamUnavailable — сеть, таймаут или не-2xx от внешнего API.
	ErrUpstreamUnavailable = errors.New("внешний API недоступен")
	// ErrUnexpectedContent — ответ API не JSON или не соответствует контракту.
	ErrUnexpectedContent = errors.New("неожиданный формат ответа API")
	// ErrCanceled — запрос отменён клиентом (ответ отброшен).
	ErrCanceled = errors.New("запрос отменён")
	// ErrDecisionFailed — внешний API не принял решение модератора.
	ErrDecisionFailed = errors.New("решение не отправлено")
)

// translateUpstreamError сводит ошибки adsapi к ошибкам сервисного слоя,
// сохраняя исходную цепочку для логов.
func translateUpstreamError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, adsapi.ErrCanceled), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	case errors.Is(err, adsapi.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, adsapi.ErrUnexpectedContent):
		return fmt.Errorf("%w: %w", ErrUnexpectedContent, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
}
