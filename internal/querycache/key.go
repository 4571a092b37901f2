// Пакет querycache — кэш ответов внешнего API для Moderation Dashboard.
//
// Ключ = (вид сущности, id, параметры выборки). Не более одного запроса
// в полёте на ключ (singleflight). Успешная мутация инвалидирует связанные
// ключи, загрузка, начатая до инвалидации, в кэш не попадает.
package querycache

import (
	"strconv"
	"strings"

	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
)

// Kind — вид кэшируемой сущности.
type Kind string

const (
	// KindAdList — страница списка объявлений (параметры: page, limit)
	KindAdList Kind = "ads"
	// KindAd — детальное объявление (id)
	KindAd Kind = "ad"
	// KindStatsSummary — сводная статистика (без периода)
	KindStatsSummary Kind = "stats.summary"
	// KindStatsActivity — график активности (period)
	KindStatsActivity Kind = "stats.activity"
	// KindStatsDecisions — график решений (period)
	KindStatsDecisions Kind = "stats.decisions"
	// KindStatsCategories — график категорий (period)
	KindStatsCategories Kind = "stats.categories"
)

// Key — ключ записи кэша.
type Key struct {
	Kind   Kind
	ID     string
	Params string
}

// String возвращает каноническое строковое представление ключа.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	b.WriteByte('|')
	b.WriteString(k.ID)
	b.WriteByte('|')
	b.WriteString(k.Params)
	return b.String()
}

// AdListKey — ключ выборки списка объявлений.
func AdListKey(page, limit int) Key {
	return Key{
		Kind:   KindAdList,
		Params: "page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit),
	}
}

// AdKey — ключ детального объявления.
func AdKey(id int64) Key {
	return Key{Kind: KindAd, ID: strconv.FormatInt(id, 10)}
}

// SummaryKey — ключ сводной статистики. Период в ключ не входит:
// смена периода не вызывает повторного запроса summary.
func SummaryKey() Key {
	return Key{Kind: KindStatsSummary}
}

// StatsKey — ключ графика статистики за период.
func StatsKey(kind Kind, period model.Period) Key {
	return Key{Kind: kind, Params: "period=" + string(period)}
}

// kindOf извлекает Kind из строкового ключа.
func kindOf(key string) Kind {
	if i := strings.IndexByte(key, '|'); i >= 0 {
		return Kind(key[:i])
	}
	return Kind(key)
}
