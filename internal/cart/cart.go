// Package cart — агрегат корзины: упорядоченный набор позиций с ключом
// (товар, размер, цвет). Корзина принадлежит одному пользователю и
// передаётся явно, хранение — отдельный порт (repository.CartStore).
package cart

import (
	"boutique/internal/domain"
	"boutique/internal/pricing"
)

// LineKey идентичность позиции корзины.
type LineKey struct {
	ProductID int64  `json:"product"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// Line позиция корзины. Name, UnitPrice и Image — последние известные
// данные товара для отображения; авторитетная проверка цены и остатка
// происходит только при оформлении заказа.
type Line struct {
	Key              LineKey `json:"key"`
	Name             string  `json:"name"`
	UnitPrice        float64 `json:"price"`
	Image            string  `json:"image,omitempty"`
	Quantity         int64   `json:"quantity"`
	StockAtSelection int64   `json:"stockAtSelection"`
	// Unavailable выставляется при загрузке, если товар удалён или
	// снят с продажи; такая позиция блокирует оформление
	Unavailable bool `json:"unavailable,omitempty"`
}

// Cart агрегат корзины одного пользователя.
type Cart struct {
	UserID int64  `json:"user"`
	Lines  []Line `json:"lines"`
}

// DeclineReason почему AddItem отказал. Это не ошибка уровня error:
// отказ — ожидаемый исход, который клиент показывает пользователю.
type DeclineReason string

const (
	DeclineNone        DeclineReason = ""
	DeclineNeedSize    DeclineReason = "size selection required"
	DeclineNeedColor   DeclineReason = "color selection required"
	DeclineOutOfStock  DeclineReason = "out of stock"
	DeclineUnavailable DeclineReason = "product unavailable"
)

func New(userID int64) *Cart {
	return &Cart{UserID: userID, Lines: []Line{}}
}

// AddItem кладёт товар в корзину. Если у товара больше одного размера
// или цвета, а выбор не сделан — отказ. Позиция с тем же ключом не
// дублируется: количество существующей увеличивается на единицу.
func (c *Cart) AddItem(p *domain.Product, size, color string) DeclineReason {
	if p == nil || !p.IsActive {
		return DeclineUnavailable
	}
	if size == "" && len(p.Sizes) > 1 {
		return DeclineNeedSize
	}
	if color == "" && len(p.Colors) > 1 {
		return DeclineNeedColor
	}
	if p.Stock < 1 {
		return DeclineOutOfStock
	}
	key := LineKey{ProductID: p.ID, Size: size, Color: color}
	if i := c.index(key); i >= 0 {
		c.Lines[i].Quantity++
		c.Lines[i].StockAtSelection = p.Stock
		return DeclineNone
	}
	img := ""
	if len(p.Images) > 0 {
		img = p.Images[0]
	}
	c.Lines = append(c.Lines, Line{
		Key:              key,
		Name:             p.Name,
		UnitPrice:        p.Price,
		Image:            img,
		Quantity:         1,
		StockAtSelection: p.Stock,
	})
	return DeclineNone
}

// RemoveItem удаляет позицию по ключу. Отсутствие позиции не ошибка.
func (c *Cart) RemoveItem(key LineKey) {
	if i := c.index(key); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// SetQuantity выставляет количество. Меньше единицы — эквивалент
// удаления. Значение мягко ограничивается последним известным остатком;
// это подсказка клиенту, настоящая проверка будет при оформлении.
func (c *Cart) SetQuantity(key LineKey, qty int64) {
	if qty < 1 {
		c.RemoveItem(key)
		return
	}
	i := c.index(key)
	if i < 0 {
		return
	}
	if ceil := c.Lines[i].StockAtSelection; ceil > 0 && qty > ceil {
		qty = ceil
	}
	c.Lines[i].Quantity = qty
}

// Clear безусловно опустошает корзину.
func (c *Cart) Clear() {
	c.Lines = c.Lines[:0]
}

// Totals всегда считается от актуального списка позиций, никакого
// кэша, который мог бы разойтись с содержимым.
func (c *Cart) Totals(taxRate float64) pricing.Totals {
	return pricing.ComputeTotals(c.pricingLines(), taxRate)
}

// ItemCount суммарное количество единиц в корзине.
func (c *Cart) ItemCount() int64 {
	return pricing.ItemCount(c.pricingLines())
}

// HasUnavailable сообщает, есть ли в корзине помеченные позиции.
func (c *Cart) HasUnavailable() bool {
	for _, l := range c.Lines {
		if l.Unavailable {
			return true
		}
	}
	return false
}

func (c *Cart) pricingLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return out
}

func (c *Cart) index(key LineKey) int {
	for i, l := range c.Lines {
		if l.Key == key {
			return i
		}
	}
	return -1
}
