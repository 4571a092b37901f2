// ads.go — операции над объявлениями: список, детали, решения модерации.
package adsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

// ListAds запрашивает страницу объявлений.
// GET /ads?page={page}&limit={limit}
func (c *Client) ListAds(ctx context.Context, page, limit int) (*model.AdsListResponse, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp model.AdsListResponse
	if err := c.get(ctx, "list_ads", "/ads", query, "AdsListResponse", &resp); err != nil {
		return nil, err
	}
	if resp.Ads == nil {
		resp.Ads = []model.Advertisement{}
	}
	return &resp, nil
}

// GetAd запрашивает детальное объявление с продавцом, характеристиками и историей.
// GET /ads/{id}
func (c *Client) GetAd(ctx context.Context, id int64) (*model.Advertisement, error) {
	var ad model.Advertisement
	if err := c.get(ctx, "get_ad", adPath(id, ""), nil, "Advertisement", &ad); err != nil {
		return nil, err
	}
	return &ad, nil
}

// Approve одобряет объявление. POST /ads/{id}/approve → {ad}
func (c *Client) Approve(ctx context.Context, id int64) (*model.Advertisement, error) {
	body, err := c.post(ctx, "approve_ad", adPath(id, "/approve"), nil)
	if err != nil {
		return nil, err
	}
	return c.unwrapAd("approve_ad", body)
}

// Reject отклоняет объявление. POST /ads/{id}/reject {reason, comment?} → {ad}
func (c *Client) Reject(ctx context.Context, id int64, payload model.ModerationPayload) (*model.Advertisement, error) {
	body, err := c.post(ctx, "reject_ad", adPath(id, "/reject"), payload)
	if err != nil {
		return nil, err
	}
	return c.unwrapAd("reject_ad", body)
}

// RequestChanges возвращает объявление на доработку.
// POST /ads/{id}/request-changes {reason, comment?} → {ad}
func (c *Client) RequestChanges(ctx context.Context, id int64, payload model.ModerationPayload) (*model.Advertisement, error) {
	body, err := c.post(ctx, "request_changes_ad", adPath(id, "/request-changes"), payload)
	if err != nil {
		return nil, err
	}
	return c.unwrapAd("request_changes_ad", body)
}

// unwrapAd извлекает поле "ad" из ответа на решение модерации.
func (c *Client) unwrapAd(op string, body []byte) (*model.Advertisement, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: %w: тело не является JSON", op, ErrUnexpectedContent)
	}
	if c.validator != nil {
		if err := c.validator.Validate("DecisionResponse", body); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrUnexpectedContent, err)
		}
	}

	raw := gjson.GetBytes(body, "ad")
	if !raw.IsObject() {
		return nil, fmt.Errorf("%s: %w: в ответе нет объекта ad", op, ErrUnexpectedContent)
	}

	var ad model.Advertisement
	if err := json.Unmarshal([]byte(raw.Raw), &ad); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnexpectedContent, err)
	}
	return &ad, nil
}

// adPath строит путь /ads/{id}{suffix}.
func adPath(id int64, suffix string) string {
	return "/ads/" + strconv.FormatInt(id, 10) + suffix
}
