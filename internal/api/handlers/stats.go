// stats.go — страница статистики.
package handlers

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/moderation-dashboard/internal/api/errors"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

// GetStats — GET /stats?period=today|week|month (по умолчанию week).
// Разделы загружаются независимо: ошибка одного раздела не меняет статус ответа.
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var raw *string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	period, err := model.ParsePeriod(deref(raw))
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	view := h.stats.Load(r.Context(), period)
	if r.Context().Err() != nil {
		return
	}
	writeJSON(w, http.StatusOK, view)
}
