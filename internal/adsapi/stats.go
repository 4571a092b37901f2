// stats.go — агрегаты статистики модерации.
package adsapi

import (
	"context"
	"net/url"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

// SummaryStats запрашивает сводные счётчики. GET /stats/summary
func (c *Client) SummaryStats(ctx context.Context) (*model.SummaryStats, error) {
	var s model.SummaryStats
	if err := c.get(ctx, "stats_summary", "/stats/summary", nil, "SummaryStats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ActivityChart запрашивает временной ряд активности.
// GET /stats/chart/activity?period={period}
func (c *Client) ActivityChart(ctx context.Context, period model.Period) ([]model.ActivityPoint, error) {
	points := []model.ActivityPoint{}
	if err := c.get(ctx, "stats_activity", "/stats/chart/activity", periodQuery(period), "ActivityChart", &points); err != nil {
		return nil, err
	}
	return points, nil
}

// DecisionsChart запрашивает распределение решений.
// GET /stats/chart/decisions?period={period}
func (c *Client) DecisionsChart(ctx context.Context, period model.Period) (*model.DecisionsChart, error) {
	var d model.DecisionsChart
	if err := c.get(ctx, "stats_decisions", "/stats/chart/decisions", periodQuery(period), "DecisionsChart", &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CategoriesChart запрашивает распределение по категориям.
// GET /stats/chart/categories?period={period}
func (c *Client) CategoriesChart(ctx context.Context, period model.Period) (model.CategoriesChart, error) {
	chart := model.CategoriesChart{}
	if err := c.get(ctx, "stats_categories", "/stats/chart/categories", periodQuery(period), "CategoriesChart", &chart); err != nil {
		return nil, err
	}
	return chart, nil
}

func periodQuery(p model.Period) url.Values {
	return url.Values{"period": {string(p)}}
}
