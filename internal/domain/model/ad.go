// Пакет model — доменные модели Moderation Dashboard.
// Объявления, история модерации и агрегаты статистики в том виде,
// в котором их отдаёт внешний API /api/v1 (владелец данных — API).
package model

import (
	"fmt"
	"time"
)

// AdStatus — статус объявления в workflow модерации.
type AdStatus string

const (
	// StatusPending — объявление ожидает модерации
	StatusPending AdStatus = "pending"
	// StatusApproved — объявление одобрено
	StatusApproved AdStatus = "approved"
	// StatusRejected — объявление отклонено
	StatusRejected AdStatus = "rejected"
	// StatusDraft — черновик
	StatusDraft AdStatus = "draft"
)

// AllStatuses — все допустимые статусы в порядке отображения фильтра.
var AllStatuses = []AdStatus{StatusPending, StatusApproved, StatusRejected, StatusDraft}

// IsValid проверяет, что статус входит в допустимый набор.
func (s AdStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusDraft:
		return true
	default:
		return false
	}
}

// ParseStatus преобразует строку в AdStatus.
func ParseStatus(s string) (AdStatus, error) {
	st := AdStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("недопустимый статус: %q, допустимые: pending, approved, rejected, draft", s)
	}
	return st, nil
}

// AdPriority — приоритет объявления.
type AdPriority string

const (
	PriorityNormal AdPriority = "normal"
	PriorityUrgent AdPriority = "urgent"
)

// Seller — продавец (только в детальном представлении).
type Seller struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Rating — рейтинг продавца; API отдаёт строкой ("4.8")
	Rating       string    `json:"rating"`
	TotalAds     int       `json:"totalAds"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Advertisement — объявление маркетплейса.
// Поля Seller, Characteristics и ModerationHistory заполняются только
// в ответе GET /ads/{id}; в списке они пустые.
type Advertisement struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	CategoryID  int64      `json:"categoryId"`
	Status      AdStatus   `json:"status"`
	Priority    AdPriority `json:"priority"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Images      []string   `json:"images"`

	Seller            *Seller                 `json:"seller,omitempty"`
	Characteristics   map[string]string       `json:"characteristics,omitempty"`
	ModerationHistory []ModerationHistoryItem `json:"moderationHistory,omitempty"`
}

// IsUrgent возвращает true для срочных объявлений.
func (a *Advertisement) IsUrgent() bool {
	return a.Priority == PriorityUrgent
}

// Pagination — пагинация выборки на стороне сервера (не путать с
// клиентской пагинацией отфильтрованного списка).
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// AdsListResponse — ответ GET /ads.
type AdsListResponse struct {
	Ads        []Advertisement `json:"ads"`
	Pagination Pagination      `json:"pagination"`
}
