// item.go — детальная страница объявления: галерея, навигация, форма решения.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/moderation-dashboard/internal/api/errors"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/decision"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

// itemResponse — ответ детальной страницы.
type itemResponse struct {
	Ad               *model.Advertisement `json:"ad"`
	Gallery          galleryView          `json:"gallery"`
	Navigation       navigationView       `json:"navigation"`
	Form             decision.Snapshot    `json:"form"`
	RejectionReasons []string             `json:"rejectionReasons"`
}

type galleryView struct {
	Active      string   `json:"active"`
	ActiveIndex int      `json:"activeIndex"`
	Thumbnails  []string `json:"thumbnails"`
}

type navigationView struct {
	Prev *int64 `json:"prev"`
	Next int64  `json:"next"`
}

// GetAd — GET /item/{id}?image=N.
// Нечисловой id отклоняется без обращения к API.
func (h *APIHandler) GetAd(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAdID(w, r)
	if !ok {
		return
	}

	var image *int
	if err := runtime.BindQueryParameter("form", true, false, "image", r.URL.Query(), &image); err != nil {
		apierrors.ValidationError(w, "Некорректный номер изображения")
		return
	}

	ad, err := h.ads.Get(r.Context(), id)
	if err != nil {
		h.writeReadError(w, r, err, MessageItemLoadFailed)
		return
	}

	gallery := decision.NewGallery(ad.Images, h.placeholder)
	if image != nil {
		gallery.Select(*image)
	}
	prev, next := decision.Neighbours(id)

	// Переход на объявление сбрасывает форму, выбор миниатюры её не трогает
	form := h.decisions.Form(id)
	if image == nil {
		form = h.decisions.Navigate(id)
	}

	writeJSON(w, http.StatusOK, itemResponse{
		Ad: ad,
		Gallery: galleryView{
			Active:      gallery.Active(),
			ActiveIndex: gallery.ActiveIndex(),
			Thumbnails:  gallery.Thumbnails(),
		},
		Navigation:       navigationView{Prev: prev, Next: next},
		Form:             form,
		RejectionReasons: model.RejectionReasons,
	})
}

// parseAdID извлекает {id} из пути. При ошибке пишет 400 и возвращает false.
func parseAdID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id < 1 {
		apierrors.ValidationError(w, MessageInvalidID)
		return 0, false
	}
	return id, true
}
