package model

import (
	"fmt"
	"time"
)

// DecisionAction — действие модератора, как оно записано в истории.
type DecisionAction string

const (
	ActionApproved       DecisionAction = "approved"
	ActionRejected       DecisionAction = "rejected"
	ActionRequestChanges DecisionAction = "requestChanges"
)

// DisplayName — подпись действия на диаграмме решений.
func (a DecisionAction) DisplayName() string {
	switch a {
	case ActionApproved:
		return "Одобрено"
	case ActionRejected:
		return "Отклонено"
	case ActionRequestChanges:
		return "На доработку"
	default:
		return string(a)
	}
}

// ModerationHistoryItem — неизменяемая запись о принятом решении.
type ModerationHistoryItem struct {
	ID            int64          `json:"id"`
	ModeratorID   int64          `json:"moderatorId"`
	ModeratorName string         `json:"moderatorName"`
	Action        DecisionAction `json:"action"`
	Reason        *string        `json:"reason,omitempty"`
	Comment       *string        `json:"comment,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// ModerationPayload — тело POST /ads/{id}/reject и /request-changes.
type ModerationPayload struct {
	Reason  string `json:"reason"`
	Comment string `json:"comment,omitempty"`
}

// RejectionReasons — предустановленные причины отклонения,
// которые предлагаются модератору в форме.
var RejectionReasons = []string{
	"Запрещённый товар",
	"Неверная категория",
	"Некорректное описание",
	"Проблемы с фото",
	"Подозрение на мошенничество",
	"Другое",
}

// SortOption — вариант сортировки списка объявлений.
type SortOption string

const (
	SortNone          SortOption = "none"
	SortCreatedAtDesc SortOption = "createdAt_desc"
	SortCreatedAtAsc  SortOption = "createdAt_asc"
	SortPriceAsc      SortOption = "price_asc"
	SortPriceDesc     SortOption = "price_desc"
	SortPriority      SortOption = "priority"
)

// ParseSortOption преобразует строку в SortOption. Пустая строка — SortNone.
func ParseSortOption(s string) (SortOption, error) {
	switch o := SortOption(s); o {
	case "":
		return SortNone, nil
	case SortNone, SortCreatedAtDesc, SortCreatedAtAsc, SortPriceAsc, SortPriceDesc, SortPriority:
		return o, nil
	default:
		return "", fmt.Errorf("недопустимая сортировка: %q", s)
	}
}
