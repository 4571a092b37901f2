// recovery.go — перехват паники в обработчике: лог со стеком и ответ 500
// в едином формате ошибок.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/bigkaa/goartstore/moderation-dashboard/internal/api/errors"
)

// MessageInternalError — текст ответа при панике обработчика.
const MessageInternalError = "Внутренняя ошибка сервера"

// Recoverer возвращает middleware, который восстанавливается после паники
// обработчика. http.ErrAbortHandler пробрасывается дальше.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // сравнение значения паники
					panic(rec)
				}

				logger.Error("Паника в обработчике запроса",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.InternalError(w, MessageInternalError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
