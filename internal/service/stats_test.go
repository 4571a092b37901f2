package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/adsapi"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

func newStatsFixture() (*fakeAPI, *StatsService) {
	api := newFakeAPI()
	api.summary = model.SummaryStats{TotalReviewed: 42, AverageReviewTime: 90}
	api.activity = []model.ActivityPoint{{Date: "2026-01-01", Approved: 3, Rejected: 1, RequestChanges: 0}}
	api.decisions = model.DecisionsChart{Approved: 1, Rejected: 1, RequestChanges: 2}
	api.categories = model.CategoriesChart{"Электроника": 5, "Авто": 2}
	return api, NewStatsService(api, newTestCache(), testLogger())
}

func TestStatsService_Load(t *testing.T) {
	_, svc := newStatsFixture()

	view := svc.Load(context.Background(), model.PeriodWeek)

	if !view.Ready {
		t.Error("Ready = false, ожидается true")
	}
	if view.Period != model.PeriodWeek {
		t.Errorf("Period = %q, ожидается week", view.Period)
	}
	if !view.Summary.OK() || view.Summary.Data.TotalReviewed != 42 {
		t.Errorf("Summary = %+v", view.Summary)
	}
	if view.Summary.Data.AverageReviewTimeText != "2 мин" {
		t.Errorf("AverageReviewTimeText = %q, ожидается «2 мин»", view.Summary.Data.AverageReviewTimeText)
	}
	if len(view.Activity.Data) != 1 {
		t.Errorf("Activity = %+v", view.Activity)
	}
	if len(view.Decisions.Data) != 3 || view.Decisions.Data[2].Percent != 50 {
		t.Errorf("Decisions = %+v", view.Decisions)
	}
	if len(view.Categories.Data) != 2 || view.Categories.Data[0].Name != "Авто" {
		t.Errorf("Categories = %+v", view.Categories)
	}
}

func TestStatsService_SummaryNotRefetchedOnPeriodChange(t *testing.T) {
	api, svc := newStatsFixture()
	ctx := context.Background()

	svc.Load(ctx, model.PeriodWeek)
	svc.Load(ctx, model.PeriodMonth)
	svc.Load(ctx, model.PeriodWeek)

	if got := api.count("summary"); got != 1 {
		t.Errorf("вызовов summary = %d, ожидается 1", got)
	}
	for _, op := range []string{"activity", "decisions", "categories"} {
		if got := api.count(op); got != 2 {
			t.Errorf("вызовов %s = %d, ожидается 2 (week, month)", op, got)
		}
	}
}

func TestStatsService_SectionErrorsIndependent(t *testing.T) {
	api, svc := newStatsFixture()
	api.statsErr["activity"] = &adsapi.StatusError{StatusCode: 500}
	api.statsErr["categories"] = adsapi.ErrUnexpectedContent

	view := svc.Load(context.Background(), model.PeriodToday)

	if !view.Ready {
		t.Error("Ready = false, ожидается true")
	}
	if view.Activity.OK() || view.Activity.Error != MessageActivityFailed {
		t.Errorf("Activity = %+v, ожидается ошибка", view.Activity)
	}
	if !errors.Is(view.Activity.Err(), ErrUpstreamUnavailable) {
		t.Errorf("Activity.Err() = %v, ожидается ErrUpstreamUnavailable", view.Activity.Err())
	}
	if view.Categories.Error != MessageCategoriesFailed || !errors.Is(view.Categories.Err(), ErrUnexpectedContent) {
		t.Errorf("Categories = %+v", view.Categories)
	}
	if !view.Summary.OK() || !view.Decisions.OK() {
		t.Error("сбой одного раздела не должен затрагивать остальные")
	}
}

func TestDecisionPercentages(t *testing.T) {
	tests := []struct {
		name     string
		chart    model.DecisionsChart
		expected [3]float64
	}{
		{"нули", model.DecisionsChart{}, [3]float64{0, 0, 0}},
		{"пропорции", model.DecisionsChart{Approved: 1, Rejected: 1, RequestChanges: 2}, [3]float64{25, 25, 50}},
		{"только одобрено", model.DecisionsChart{Approved: 5}, [3]float64{100, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := DecisionPercentages(tt.chart)
			if len(bars) != 3 {
				t.Fatalf("len = %d, ожидается 3", len(bars))
			}
			for i, bar := range bars {
				if bar.Percent != tt.expected[i] {
					t.Errorf("%s: Percent = %v, ожидается %v", bar.Action, bar.Percent, tt.expected[i])
				}
			}
			if bars[0].Name != "Одобрено" || bars[2].Action != model.ActionRequestChanges {
				t.Errorf("подписи = %+v", bars)
			}
		})
	}
}

func TestFormatAverageReviewTime(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "—"},
		{45, "45 с"},
		{12.5, "12.5 с"},
		{60, "1 мин"},
		{90, "2 мин"},
		{150, "3 мин"},
		{3600, "60 мин"},
	}
	for _, tt := range tests {
		if got := FormatAverageReviewTime(tt.seconds); got != tt.expected {
			t.Errorf("FormatAverageReviewTime(%v) = %q, ожидается %q", tt.seconds, got, tt.expected)
		}
	}
}

func TestCategoryTuples(t *testing.T) {
	got := CategoryTuples(model.CategoriesChart{"Спорт": 1, "Авто": 3, "Дом": 2})
	expected := []CategoryTuple{{"Авто", 3}, {"Дом", 2}, {"Спорт", 1}}

	if len(got) != len(expected) {
		t.Fatalf("CategoryTuples() = %v, ожидается %v", got, expected)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("[%d] = %+v, ожидается %+v", i, got[i], expected[i])
		}
	}

	if empty := CategoryTuples(nil); empty == nil || len(empty) != 0 {
		t.Errorf("CategoryTuples(nil) = %v, ожидается пустой срез", empty)
	}
}
