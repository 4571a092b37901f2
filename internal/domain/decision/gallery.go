// gallery.go — галерея изображений объявления и навигация prev/next.
package decision

// DefaultPlaceholder — изображение-заглушка для объявлений без фото.
const DefaultPlaceholder = "https://via.placeholder.com/600x400?text=No+Image"

// Gallery — активное изображение в последовательности images.
type Gallery struct {
	images      []string
	active      int
	placeholder string
}

// NewGallery создаёт галерею с активным индексом 0.
// Пустой placeholder заменяется на DefaultPlaceholder.
func NewGallery(images []string, placeholder string) *Gallery {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Gallery{images: images, placeholder: placeholder}
}

// Select делает активным изображение i (клик по миниатюре).
// Индекс вне диапазона игнорируется, возвращается false.
func (g *Gallery) Select(i int) bool {
	if i < 0 || i >= len(g.images) {
		return false
	}
	g.active = i
	return true
}

// ActiveIndex возвращает индекс активного изображения.
func (g *Gallery) ActiveIndex() int {
	return g.active
}

// Active возвращает URL активного изображения или заглушку.
func (g *Gallery) Active() string {
	if g.active < len(g.images) && g.images[g.active] != "" {
		return g.images[g.active]
	}
	return g.placeholder
}

// Thumbnails возвращает все изображения (пусто — без миниатюр).
func (g *Gallery) Thumbnails() []string {
	out := make([]string, len(g.images))
	copy(out, g.images)
	return out
}

// Neighbours возвращает id соседних объявлений для навигации.
// prev есть только для id > 1, next — всегда id+1.
func Neighbours(id int64) (prev *int64, next int64) {
	if id > 1 {
		p := id - 1
		prev = &p
	}
	return prev, id + 1
}
