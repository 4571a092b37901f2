package querycache

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCache() *Cache {
	return New(100, 5*time.Minute, testLogger())
}

// recordingBroadcaster запоминает опубликованные инвалидации.
type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []Invalidation
	err  error
}

func (b *recordingBroadcaster) Publish(_ context.Context, inv Invalidation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, inv)
	return b.err
}

func (b *recordingBroadcaster) snapshot() []Invalidation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Invalidation(nil), b.sent...)
}

// waitSent ждёт, пока фоновая рассылка опубликует n инвалидаций.
func waitSent(t *testing.T, b *recordingBroadcaster, n int) []Invalidation {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sent := b.snapshot(); len(sent) >= n {
			return sent
		}
		time.Sleep(5 * time.Millisecond)
	}
	sent := b.snapshot()
	t.Fatalf("опубликовано %d инвалидаций за 2s, ожидается %d: %v", len(sent), n, sent)
	return nil
}

// startPublisher запускает RunPublisher до конца теста.
func startPublisher(t *testing.T, c *Cache) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunPublisher(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestKey_String(t *testing.T) {
	tests := []struct {
		key      Key
		expected string
	}{
		{AdListKey(1, 150), "ads||page=1&limit=150"},
		{AdKey(7), "ad|7|"},
		{SummaryKey(), "stats.summary||"},
		{StatsKey(KindStatsActivity, model.PeriodWeek), "stats.activity||period=week"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.expected {
			t.Errorf("Key.String() = %q, ожидается %q", got, tt.expected)
		}
		if got := kindOf(tt.key.String()); got != tt.key.Kind {
			t.Errorf("kindOf(%q) = %q, ожидается %q", tt.key.String(), got, tt.key.Kind)
		}
	}
}

func TestCache_GetSet(t *testing.T) {
	c := newTestCache()

	if _, ok := c.Get(AdKey(1)); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	c.Set(AdKey(1), "value")
	got, ok := c.Get(AdKey(1))
	if !ok || got != "value" {
		t.Fatalf("Get = %v, %v; ожидается value, true", got, ok)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(100, 50*time.Millisecond, testLogger())
	c.Set(AdKey(1), "value")

	time.Sleep(150 * time.Millisecond)

	if _, ok := c.Get(AdKey(1)); ok {
		t.Error("запись должна истечь по TTL")
	}
}

func TestFetch_CachesResult(t *testing.T) {
	c := newTestCache()
	var calls atomic.Int32

	loader := func(context.Context) (string, error) {
		calls.Add(1)
		return "loaded", nil
	}

	for range 3 {
		v, err := Fetch(context.Background(), c, AdKey(1), loader)
		if err != nil || v != "loaded" {
			t.Fatalf("Fetch = %q, %v", v, err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("loader вызван %d раз, ожидается 1", n)
	}
}

func TestFetch_ErrorNotCached(t *testing.T) {
	c := newTestCache()
	var calls atomic.Int32
	boom := errors.New("boom")

	loader := func(context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	}

	for range 2 {
		if _, err := Fetch(context.Background(), c, AdKey(1), loader); !errors.Is(err, boom) {
			t.Fatalf("ожидалась boom, получено %v", err)
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("loader вызван %d раз, ожидается 2 (ошибки не кэшируются)", n)
	}
}

func TestFetch_SingleFlight(t *testing.T) {
	c := newTestCache()
	var calls atomic.Int32
	release := make(chan struct{})

	loader := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(context.Background(), c, AdListKey(1, 150), loader)
			if err != nil {
				t.Errorf("Fetch: %v", err)
			}
			results[i] = v
		}()
	}

	// Даём горутинам встать в ожидание общей загрузки
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loader вызван %d раз, ожидается 1", n)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("results[%d] = %d, ожидается 42", i, v)
		}
	}
}

func TestFetch_InvalidationDiscardsInFlightLoad(t *testing.T) {
	c := newTestCache()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string)
	go func() {
		v, _ := Fetch(context.Background(), c, AdListKey(1, 150), func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()

	<-started
	c.InvalidateKind(KindAdList)
	close(release)

	// Вызывающий получает свой ответ, но в кэш он не попадает
	if v := <-done; v != "stale" {
		t.Errorf("Fetch = %q, ожидается stale", v)
	}
	if _, ok := c.Get(AdListKey(1, 150)); ok {
		t.Error("ответ, начатый до инвалидации, не должен сохраняться в кэш")
	}

	v, err := Fetch(context.Background(), c, AdListKey(1, 150), func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil || v != "fresh" {
		t.Errorf("Fetch после инвалидации = %q, %v; ожидается fresh", v, err)
	}
}

func TestFetch_ReadAfterInvalidationDoesNotJoinStaleLoad(t *testing.T) {
	c := newTestCache()
	key := AdListKey(1, 150)
	started := make(chan struct{})
	release := make(chan struct{})

	staleDone := make(chan string, 1)
	go func() {
		v, _ := Fetch(context.Background(), c, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "pre-decision", nil
		})
		staleDone <- v
	}()

	<-started
	c.InvalidateKind(KindAdList)

	freshDone := make(chan string, 1)
	go func() {
		v, err := Fetch(context.Background(), c, key, func(context.Context) (string, error) {
			return "post-decision", nil
		})
		if err != nil {
			t.Errorf("Fetch: %v", err)
		}
		freshDone <- v
	}()

	var fresh string
	select {
	case fresh = <-freshDone:
	case <-time.After(time.Second):
		close(release)
		t.Fatal("чтение после инвалидации ждёт загрузку, начатую до неё")
	}
	close(release)

	if fresh != "post-decision" {
		t.Errorf("чтение после инвалидации вернуло %q, ожидается post-decision", fresh)
	}
	if v := <-staleDone; v != "pre-decision" {
		t.Errorf("исходный вызывающий получил %q, ожидается pre-decision", v)
	}
	if v, ok := c.Get(key); !ok || v != "post-decision" {
		t.Errorf("в кэше %v, ожидается post-decision", v)
	}
}

func TestFetch_CallerCancel(t *testing.T) {
	c := newTestCache()
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, AdKey(1), func(ctx context.Context) (string, error) {
			select {
			case <-release:
				return "late", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ожидалась context.Canceled, получено %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Fetch не вернулся после отмены контекста")
	}
}

func TestCache_InvalidateKind_OnlyThatKind(t *testing.T) {
	c := newTestCache()
	c.Set(AdListKey(1, 150), "list")
	c.Set(AdKey(7), "ad")
	c.Set(StatsKey(KindStatsActivity, model.PeriodWeek), "activity-week")
	c.Set(StatsKey(KindStatsActivity, model.PeriodMonth), "activity-month")

	c.InvalidateKind(KindStatsActivity)

	if _, ok := c.Get(StatsKey(KindStatsActivity, model.PeriodWeek)); ok {
		t.Error("activity week должна быть удалена")
	}
	if _, ok := c.Get(StatsKey(KindStatsActivity, model.PeriodMonth)); ok {
		t.Error("activity month должна быть удалена")
	}
	if _, ok := c.Get(AdListKey(1, 150)); !ok {
		t.Error("список не должен инвалидироваться")
	}
	if _, ok := c.Get(AdKey(7)); !ok {
		t.Error("объявление не должно инвалидироваться")
	}
}

func TestCache_InvalidationsPublished(t *testing.T) {
	c := newTestCache()
	b := &recordingBroadcaster{}
	c.SetBroadcaster(b)
	startPublisher(t, c)

	c.Set(AdListKey(1, 150), "list")
	c.InvalidateKind(KindAdList)
	c.Replace(AdKey(8), "ad8")

	if _, ok := c.Get(AdListKey(1, 150)); ok {
		t.Error("список должен быть удалён")
	}
	if v, ok := c.Get(AdKey(8)); !ok || v != "ad8" {
		t.Error("Replace должен сохранить значение локально")
	}

	want := []Invalidation{
		{Kind: KindAdList},
		{Kind: KindAd, Key: AdKey(8).String()},
	}
	sent := waitSent(t, b, len(want))
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("sent[%d] = %+v, ожидается %+v", i, sent[i], want[i])
		}
	}
}

// blockingBroadcaster не отвечает, пока не отменён контекст публикации.
type blockingBroadcaster struct {
	calls atomic.Int32
}

func (b *blockingBroadcaster) Publish(ctx context.Context, _ Invalidation) error {
	b.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestCache_SlowBroadcasterDoesNotBlockInvalidation(t *testing.T) {
	c := newTestCache()
	b := &blockingBroadcaster{}
	c.SetBroadcaster(b)
	startPublisher(t, c)

	c.Set(AdListKey(1, 150), "list")

	start := time.Now()
	for range 6 {
		c.InvalidateKind(KindAdList)
	}
	c.Replace(AdKey(7), "ad")
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("инвалидации заняли %v, рассылка не должна блокировать вызывающего", elapsed)
	}

	if _, ok := c.Get(AdListKey(1, 150)); ok {
		t.Error("локальная инвалидация должна выполниться сразу")
	}

	deadline := time.Now().Add(time.Second)
	for b.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.calls.Load() == 0 {
		t.Error("фоновая рассылка не вызвала Publish")
	}
}

func TestCache_PublishQueueOverflowDrops(t *testing.T) {
	c := newTestCache()
	c.SetBroadcaster(&recordingBroadcaster{})
	// RunPublisher не запущен: очередь заполняется, вызывающий не блокируется

	done := make(chan struct{})
	go func() {
		for range outboxSize + 10 {
			c.InvalidateKind(KindAdList)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("InvalidateKind заблокировался на переполненной очереди")
	}
	if n := len(c.outbox); n != outboxSize {
		t.Errorf("в очереди %d событий, ожидается %d", n, outboxSize)
	}
}

func TestCache_PublishErrorKeepsLocalInvalidation(t *testing.T) {
	c := newTestCache()
	b := &recordingBroadcaster{err: errors.New("redis down")}
	c.SetBroadcaster(b)
	startPublisher(t, c)

	c.Set(AdListKey(1, 150), "list")
	c.InvalidateKind(KindAdList)

	if _, ok := c.Get(AdListKey(1, 150)); ok {
		t.Error("локальная инвалидация должна выполниться при ошибке рассылки")
	}
	waitSent(t, b, 1)
}

func TestCache_ApplyRemote_DoesNotRepublish(t *testing.T) {
	c := newTestCache()
	b := &recordingBroadcaster{}
	c.SetBroadcaster(b)

	c.Set(AdKey(7), "ad")
	c.ApplyRemote(Invalidation{Kind: KindAd, Key: AdKey(7).String()})

	if _, ok := c.Get(AdKey(7)); ok {
		t.Error("удалённая инвалидация должна удалить запись")
	}
	if n := len(c.outbox); n != 0 {
		t.Errorf("удалённая инвалидация не должна рассылаться повторно: в очереди %d", n)
	}
}
