package model

import "fmt"

// Period — окно агрегации статистики.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// DefaultPeriod — период, выбранный на странице статистики по умолчанию.
const DefaultPeriod = PeriodWeek

// ParsePeriod преобразует строку в Period. Пустая строка — DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return DefaultPeriod, nil
	case PeriodToday, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("недопустимый период: %q, допустимые: today, week, month", s)
	}
}

// SummaryStats — сводные счётчики (не зависят от периода).
type SummaryStats struct {
	TotalReviewed            int     `json:"totalReviewed"`
	TotalReviewedToday       int     `json:"totalReviewedToday"`
	TotalReviewedThisWeek    int     `json:"totalReviewedThisWeek"`
	TotalReviewedThisMonth   int     `json:"totalReviewedThisMonth"`
	ApprovedPercentage       float64 `json:"approvedPercentage"`
	RejectedPercentage       float64 `json:"rejectedPercentage"`
	RequestChangesPercentage float64 `json:"requestChangesPercentage"`
	// AverageReviewTime — среднее время проверки в секундах
	AverageReviewTime float64 `json:"averageReviewTime"`
}

// ActivityPoint — точка временного ряда активности.
type ActivityPoint struct {
	Date           string `json:"date"`
	Approved       int    `json:"approved"`
	Rejected       int    `json:"rejected"`
	RequestChanges int    `json:"requestChanges"`
}

// DecisionsChart — распределение решений за период.
type DecisionsChart struct {
	Approved       int `json:"approved"`
	Rejected       int `json:"rejected"`
	RequestChanges int `json:"requestChanges"`
}

// CategoriesChart — количество проверенных объявлений по категориям.
type CategoriesChart map[string]int
