// listing.go — вычисление видимой части списка объявлений.
// Чистая функция от загруженной коллекции и состояния фильтров:
// фильтрация → стабильная сортировка → клиентская пагинация.
package service

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

// CategoryAll — значение фильтра категории «все категории».
const CategoryAll = "all"

// DefaultPageSize — размер страницы отфильтрованного списка.
const DefaultPageSize = 10

// ListFilter — состояние фильтров страницы списка.
// Цены хранятся строками, как введены: пустое или нечисловое значение — граница не задана.
// Любое изменение фильтра через With* (кроме WithPage) сбрасывает страницу на 1.
type ListFilter struct {
	Statuses []model.AdStatus
	Category string
	Search   string
	MinPrice string
	MaxPrice string
	Sort     model.SortOption
	Page     int
}

// DefaultListFilter — фильтры по умолчанию (всё, без сортировки, страница 1).
func DefaultListFilter() ListFilter {
	return ListFilter{Category: CategoryAll, Sort: model.SortNone, Page: 1}
}

// WithStatuses возвращает копию фильтра с новым набором статусов.
func (f ListFilter) WithStatuses(statuses ...model.AdStatus) ListFilter {
	f.Statuses = slices.Clone(statuses)
	f.Page = 1
	return f
}

// WithCategory возвращает копию фильтра с новой категорией.
func (f ListFilter) WithCategory(category string) ListFilter {
	f.Category = category
	f.Page = 1
	return f
}

// WithSearch возвращает копию фильтра с новой строкой поиска.
func (f ListFilter) WithSearch(search string) ListFilter {
	f.Search = search
	f.Page = 1
	return f
}

// WithPriceRange возвращает копию фильтра с новыми границами цены.
func (f ListFilter) WithPriceRange(minPrice, maxPrice string) ListFilter {
	f.MinPrice = minPrice
	f.MaxPrice = maxPrice
	f.Page = 1
	return f
}

// WithSort возвращает копию фильтра с новой сортировкой.
func (f ListFilter) WithSort(sort model.SortOption) ListFilter {
	f.Sort = sort
	f.Page = 1
	return f
}

// WithPage возвращает копию фильтра с выбранной страницей (фильтры не меняются).
func (f ListFilter) WithPage(page int) ListFilter {
	f.Page = page
	return f
}

// ListView — результат вычисления: одна страница и счётчики.
type ListView struct {
	Items      []model.Advertisement `json:"items"`
	TotalItems int                   `json:"totalItems"`
	TotalPages int                   `json:"totalPages"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	// Empty — после фильтрации ничего не осталось (пустое состояние, не ошибка)
	Empty bool `json:"empty"`
	// Categories — отсортированные категории загруженной коллекции (для селектора)
	Categories []string `json:"categories"`
}

// DeriveList применяет фильтры, сортировку и пагинацию к коллекции ads.
// Детерминирована и не изменяет ads.
func DeriveList(ads []model.Advertisement, f ListFilter, pageSize int) ListView {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	result := FilterAds(ads, f)
	SortAds(result, f.Sort)

	totalItems := len(result)
	totalPages := TotalPages(totalItems, pageSize)
	page := ClampPage(f.Page, totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalItems)

	items := []model.Advertisement{}
	if start < end {
		items = result[start:end]
	}

	return ListView{
		Items:      items,
		TotalItems: totalItems,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
		Empty:      totalItems == 0,
		Categories: Categories(ads),
	}
}

// FilterAds возвращает новый срез объявлений, прошедших фильтры, в исходном порядке.
func FilterAds(ads []model.Advertisement, f ListFilter) []model.Advertisement {
	minPrice, hasMin := parsePrice(f.MinPrice)
	maxPrice, hasMax := parsePrice(f.MaxPrice)
	query := strings.ToLower(strings.TrimSpace(f.Search))
	category := f.Category
	if category == "" {
		category = CategoryAll
	}

	result := make([]model.Advertisement, 0, len(ads))
	for _, ad := range ads {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, ad.Status) {
			continue
		}
		if category != CategoryAll && ad.Category != category {
			continue
		}
		if hasMin && ad.Price < minPrice {
			continue
		}
		if hasMax && ad.Price > maxPrice {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(ad.Title), query) {
			continue
		}
		result = append(result, ad)
	}
	return result
}

// SortAds стабильно сортирует ads на месте. SortNone сохраняет порядок выборки.
func SortAds(ads []model.Advertisement, sort model.SortOption) {
	var less func(a, b model.Advertisement) int

	switch sort {
	case model.SortCreatedAtDesc:
		less = func(a, b model.Advertisement) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case model.SortCreatedAtAsc:
		less = func(a, b model.Advertisement) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case model.SortPriceAsc:
		less = func(a, b model.Advertisement) int { return cmp.Compare(a.Price, b.Price) }
	case model.SortPriceDesc:
		less = func(a, b model.Advertisement) int { return cmp.Compare(b.Price, a.Price) }
	case model.SortPriority:
		less = func(a, b model.Advertisement) int { return cmp.Compare(urgency(b), urgency(a)) }
	default:
		return
	}

	slices.SortStableFunc(ads, less)
}

// TotalPages — ceil(totalItems/pageSize), но не меньше 1.
func TotalPages(totalItems, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return max(1, int(math.Ceil(float64(totalItems)/float64(pageSize))))
}

// ClampPage приводит page к диапазону [1, totalPages].
func ClampPage(page, totalPages int) int {
	return max(1, min(page, totalPages))
}

// Categories возвращает отсортированные уникальные непустые категории.
func Categories(ads []model.Advertisement) []string {
	seen := make(map[string]struct{}, len(ads))
	out := []string{}
	for _, ad := range ads {
		if ad.Category == "" {
			continue
		}
		if _, ok := seen[ad.Category]; ok {
			continue
		}
		seen[ad.Category] = struct{}{}
		out = append(out, ad.Category)
	}
	slices.Sort(out)
	return out
}

func urgency(ad model.Advertisement) int {
	if ad.IsUrgent() {
		return 1
	}
	return 0
}

// parsePrice разбирает границу цены; пустая строка и не-число — граница не задана.
func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
