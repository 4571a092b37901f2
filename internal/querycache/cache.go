package querycache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "md_cache_hits_total",
		Help: "Общее количество попаданий в кэш запросов.",
	}, []string{"kind"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "md_cache_misses_total",
		Help: "Общее количество промахов кэша запросов.",
	}, []string{"kind"})
	cacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "md_cache_invalidations_total",
		Help: "Количество инвалидаций кэша (source: local, remote).",
	}, []string{"kind", "source"})
	cacheDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "md_cache_discarded_loads_total",
		Help: "Загрузки, завершившиеся после инвалидации и не сохранённые в кэш.",
	}, []string{"kind"})
	cachePublishDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "md_cache_publish_dropped_total",
		Help: "Инвалидации, не разосланные другим экземплярам (очередь переполнена).",
	}, []string{"kind"})
)

// Параметры фоновой рассылки инвалидаций.
const (
	// outboxSize — ёмкость очереди рассылки
	outboxSize = 256
	// publishTimeout — ограничение одной публикации
	publishTimeout = 2 * time.Second
)

// Invalidation — событие инвалидации, рассылаемое другим экземплярам.
// Key пустой — инвалидирован весь Kind.
type Invalidation struct {
	Kind Kind   `json:"kind"`
	Key  string `json:"key,omitempty"`
}

// Broadcaster — рассылка инвалидаций другим экземплярам сервиса.
type Broadcaster interface {
	Publish(ctx context.Context, inv Invalidation) error
}

// Cache — LRU-кэш ответов API с TTL, singleflight на ключ
// и поколениями (generation) для отбрасывания устаревших загрузок.
type Cache struct {
	lru   *expirable.LRU[string, any]
	group singleflight.Group

	mu   sync.Mutex
	gens map[Kind]uint64

	broadcaster Broadcaster
	outbox      chan Invalidation
	logger      *slog.Logger
}

// New создаёт кэш.
// maxSize — максимальное количество записей, ttl — время жизни записи.
func New(maxSize int, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		lru:    expirable.NewLRU[string, any](maxSize, nil, ttl),
		gens:   make(map[Kind]uint64),
		outbox: make(chan Invalidation, outboxSize),
		logger: logger.With(slog.String("component", "query_cache")),
	}
}

// SetBroadcaster подключает рассылку инвалидаций (nil — только локально).
// Рассылку выполняет RunPublisher.
func (c *Cache) SetBroadcaster(b Broadcaster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcaster = b
}

// RunPublisher рассылает инвалидации из очереди другим экземплярам.
// Блокирует до отмены ctx. Запросы модераторов рассылку не ждут.
func (c *Cache) RunPublisher(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case inv := <-c.outbox:
			c.mu.Lock()
			b := c.broadcaster
			c.mu.Unlock()
			if b == nil {
				continue
			}

			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := b.Publish(pubCtx, inv)
			cancel()
			if err != nil {
				// Локальная инвалидация уже выполнена, остальные экземпляры
				// догонят по TTL.
				c.logger.Warn("Не удалось разослать инвалидацию",
					slog.String("kind", string(inv.Kind)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Get возвращает значение по ключу.
func (c *Cache) Get(key Key) (any, bool) {
	val, ok := c.lru.Get(key.String())
	if ok {
		cacheHitsTotal.WithLabelValues(string(key.Kind)).Inc()
		return val, true
	}
	cacheMissesTotal.WithLabelValues(string(key.Kind)).Inc()
	return nil, false
}

// Set записывает значение и отбрасывает незавершённые загрузки того же вида:
// ответ, запрошенный до Set, не перезапишет более свежие данные.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	c.gens[key.Kind]++
	c.lru.Add(key.String(), value)
	c.mu.Unlock()
}

// Replace записывает свежее значение (ответ мутации) локально,
// а другим экземплярам рассылает инвалидацию этого ключа.
func (c *Cache) Replace(key Key, value any) {
	c.Set(key, value)
	c.publish(Invalidation{Kind: key.Kind, Key: key.String()})
}

// InvalidateKind помечает устаревшими все записи вида kind
// (например, все закэшированные страницы списка после решения модератора).
func (c *Cache) InvalidateKind(kind Kind) {
	c.invalidate(Invalidation{Kind: kind}, "local")
	c.publish(Invalidation{Kind: kind})
}

// ApplyRemote применяет инвалидацию, полученную от другого экземпляра.
// Повторно не рассылается.
func (c *Cache) ApplyRemote(inv Invalidation) {
	c.invalidate(inv, "remote")
}

func (c *Cache) invalidate(inv Invalidation, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[inv.Kind]++
	if inv.Key != "" {
		c.lru.Remove(inv.Key)
	} else {
		for _, k := range c.lru.Keys() {
			if kindOf(k) == inv.Kind {
				c.lru.Remove(k)
			}
		}
	}
	cacheInvalidationsTotal.WithLabelValues(string(inv.Kind), source).Inc()
}

// publish ставит инвалидацию в очередь рассылки, не блокируя вызывающего.
func (c *Cache) publish(inv Invalidation) {
	c.mu.Lock()
	b := c.broadcaster
	c.mu.Unlock()
	if b == nil {
		return
	}
	select {
	case c.outbox <- inv:
	default:
		cachePublishDroppedTotal.WithLabelValues(string(inv.Kind)).Inc()
		c.logger.Warn("Очередь рассылки инвалидаций переполнена",
			slog.String("kind", string(inv.Kind)),
		)
	}
}

func (c *Cache) generation(kind Kind) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[kind]
}

// storeIfCurrent сохраняет значение, только если с начала загрузки
// вид не инвалидировался.
func (c *Cache) storeIfCurrent(key Key, gen uint64, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key.Kind] != gen {
		cacheDiscardedTotal.WithLabelValues(string(key.Kind)).Inc()
		return false
	}
	c.lru.Add(key.String(), value)
	return true
}

// Fetch возвращает значение из кэша или загружает его через loader.
// Параллельные вызовы с одним ключом разделяют одну загрузку.
// Ожидание прерывается отменой ctx вызывающего; если общая загрузка
// была отменена чужим контекстом, а свой ещё жив — загрузка повторяется.
func Fetch[T any](ctx context.Context, c *Cache, key Key, loader func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	for {
		if val, ok := c.Get(key); ok {
			if typed, ok := val.(T); ok {
				return typed, nil
			}
		}

		// Поколение входит в ключ singleflight: чтение после инвалидации
		// не присоединяется к загрузке, начатой до неё.
		gen := c.generation(key.Kind)
		flightKey := key.String() + "#" + strconv.FormatUint(gen, 10)
		ch := c.group.DoChan(flightKey, func() (any, error) {
			val, err := loader(ctx)
			if err != nil {
				return nil, err
			}
			c.storeIfCurrent(key, gen, val)
			return val, nil
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
					continue
				}
				return zero, res.Err
			}
			typed, ok := res.Val.(T)
			if !ok {
				return zero, errors.New("querycache: тип значения не совпадает с ожидаемым")
			}
			return typed, nil
		}
	}
}
