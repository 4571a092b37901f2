// list.go — страница списка объявлений.
package handlers

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/moderation-dashboard/internal/api/errors"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/service"
)

// listParams — query-параметры страницы списка.
type listParams struct {
	Status   *[]string
	Category *string
	Search   *string
	MinPrice *string
	MaxPrice *string
	Sort     *string
	Page     *int
}

// listResponse — ответ страницы списка: видимая страница, применённые фильтры
// и варианты статусов для панели фильтров.
type listResponse struct {
	*service.ListView
	Filters       listFilters      `json:"filters"`
	StatusOptions []model.AdStatus `json:"statusOptions"`
}

type listFilters struct {
	Statuses []model.AdStatus `json:"statuses"`
	Category string           `json:"category"`
	Search   string           `json:"search"`
	MinPrice string           `json:"minPrice"`
	MaxPrice string           `json:"maxPrice"`
	Sort     model.SortOption `json:"sort"`
}

// ListAds — GET / и GET /list.
// Query: status (повторяемый), category, search, minPrice, maxPrice, sort, page.
func (h *APIHandler) ListAds(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	view, err := h.ads.List(r.Context(), f)
	if err != nil {
		h.writeReadError(w, r, err, MessageListLoadFailed)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		ListView: view,
		Filters: listFilters{
			Statuses: f.Statuses,
			Category: f.Category,
			Search:   f.Search,
			MinPrice: f.MinPrice,
			MaxPrice: f.MaxPrice,
			Sort:     f.Sort,
		},
		StatusOptions: model.AllStatuses,
	})
}

// parseListFilter собирает ListFilter из query-параметров.
func parseListFilter(r *http.Request) (service.ListFilter, error) {
	q := r.URL.Query()
	var p listParams

	if err := runtime.BindQueryParameter("form", true, false, "status", q, &p.Status); err != nil {
		return service.ListFilter{}, err
	}
	for name, dest := range map[string]**string{
		"category": &p.Category,
		"search":   &p.Search,
		"minPrice": &p.MinPrice,
		"maxPrice": &p.MaxPrice,
		"sort":     &p.Sort,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			return service.ListFilter{}, err
		}
	}
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &p.Page); err != nil {
		return service.ListFilter{}, err
	}

	f := service.DefaultListFilter()

	var raw []string
	if p.Status != nil {
		raw = *p.Status
	}
	statuses := make([]model.AdStatus, 0, len(raw))
	for _, s := range raw {
		status, err := model.ParseStatus(s)
		if err != nil {
			return service.ListFilter{}, err
		}
		statuses = append(statuses, status)
	}
	f = f.WithStatuses(statuses...)

	if p.Category != nil && *p.Category != "" {
		f = f.WithCategory(*p.Category)
	}
	if p.Search != nil {
		f = f.WithSearch(*p.Search)
	}
	f = f.WithPriceRange(deref(p.MinPrice), deref(p.MaxPrice))
	if p.Sort != nil {
		sort, err := model.ParseSortOption(*p.Sort)
		if err != nil {
			return service.ListFilter{}, err
		}
		f = f.WithSort(sort)
	}
	if p.Page != nil {
		f = f.WithPage(*p.Page)
	}
	return f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
