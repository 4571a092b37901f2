// Пакет adsapi — HTTP-клиент внешнего API модерации (/api/v1).
// Фиксированный базовый путь, ограниченный таймаут, отмена через context,
// одна попытка на вызов (без retry).
package adsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tidwall/gjson"
)

// BasePath — префикс всех endpoint'ов внешнего API.
const BasePath = "/api/v1"

// maxBodySize — ограничение на размер читаемого ответа (8 MiB).
const maxBodySize = 8 << 20

// Ошибки клиента. Проверяются через errors.Is.
var (
	// ErrNotFound — API вернул 404.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrTimeout — запрос не уложился в таймаут клиента.
	ErrTimeout = errors.New("таймаут запроса к API")
	// ErrCanceled — запрос отменён вызывающим (context canceled).
	ErrCanceled = errors.New("запрос к API отменён")
	// ErrUnexpectedContent — ответ не JSON или не соответствует контракту
	// (например, HTML от dev-сервера вместо ответа API).
	ErrUnexpectedContent = errors.New("неожиданный формат ответа API")
)

// StatusError — API ответил статусом вне 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API вернул статус %d: %s", e.StatusCode, e.Body)
}

// Is позволяет errors.Is(err, ErrNotFound) для 404.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// ResponseValidator — проверка тела ответа на соответствие схеме контракта.
// schema — имя схемы (например, "AdsListResponse").
type ResponseValidator interface {
	Validate(schema string, body []byte) error
}

// Prometheus-метрики обращений к внешнему API.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "md_upstream_requests_total",
		Help: "Общее количество запросов к внешнему API модерации.",
	}, []string{"operation", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "md_upstream_request_duration_seconds",
		Help:    "Длительность запросов к внешнему API модерации.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// Client — HTTP-клиент внешнего API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	validator  ResponseValidator
	logger     *slog.Logger
}

// Option — функциональная опция клиента.
type Option func(*Client)

// WithTransport подменяет транспорт http.Client (TLS, тестовые серверы).
// Таймаут из New сохраняется.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithValidator включает проверку ответов по контракту.
func WithValidator(v ResponseValidator) Option {
	return func(c *Client) {
		c.validator = v
	}
}

// New создаёт клиент внешнего API.
// apiURL — адрес сервиса без /api/v1 (например, http://localhost:3001).
// timeout — таймаут одного запроса (MD_API_TIMEOUT).
func New(apiURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(apiURL, "/") + BasePath,
		logger:     logger.With(slog.String("component", "ads_api_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL возвращает полный базовый URL (с /api/v1).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get выполняет GET {base}{path}?{query} и декодирует JSON в dest.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, schema string, dest any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса %s: %w", op, err)
	}

	body, err := c.do(req, op)
	if err != nil {
		return err
	}
	return c.decode(op, schema, body, dest)
}

// post выполняет POST {base}{path} с JSON-телом и возвращает сырое тело ответа.
// payload == nil — запрос без тела.
func (c *Client) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела %s: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, op)
}

// do отправляет запрос, классифицирует ошибки транспорта и статусы.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	upstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		err = classifyTransportError(req.Context(), err)
		upstreamRequestsTotal.WithLabelValues(op, "error").Inc()
		c.logger.Debug("Запрос к API не выполнен",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(op, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: чтение ответа: %w", op, classifyTransportError(req.Context(), err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w", op, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 512),
		})
	}

	return body, nil
}

// decode проверяет, что тело — JSON, валидирует по схеме и декодирует в dest.
func (c *Client) decode(op, schema string, body []byte, dest any) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%s: %w: тело не является JSON (%s)", op, ErrUnexpectedContent, truncate(string(body), 64))
	}

	if c.validator != nil && schema != "" {
		if err := c.validator.Validate(schema, body); err != nil {
			return fmt.Errorf("%s: %w: %v", op, ErrUnexpectedContent, err)
		}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrUnexpectedContent, err)
	}
	return nil
}

// classifyTransportError приводит ошибку http.Client к ErrCanceled / ErrTimeout.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// truncate обрезает строку не более чем до n байт для логов и сообщений
// об ошибках. Граница сдвигается назад до начала руны.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
