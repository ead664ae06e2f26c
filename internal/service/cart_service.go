package service

import (
	"context"
	"errors"

	"boutique/internal/cart"
	"boutique/internal/pricing"
	"boutique/internal/repository"
)

// CartService связывает агрегат корзины с портом хранения и живым
// каталогом. Сам агрегат чистый, вся персистентность здесь.
type CartService struct {
	products repository.ProductRepository
	carts    repository.CartStore
	taxRate  float64
}

func NewCartService(products repository.ProductRepository, carts repository.CartStore, taxRate float64) *CartService {
	return &CartService{products: products, carts: carts, taxRate: taxRate}
}

// CartView корзина вместе с производными суммами. Суммы считаются на
// каждое чтение, кэша нет.
type CartView struct {
	Cart      *cart.Cart     `json:"cart"`
	Totals    pricing.Totals `json:"totals"`
	ItemCount int64          `json:"itemCount"`
}

func (s *CartService) view(c *cart.Cart) *CartView {
	return &CartView{Cart: c, Totals: c.Totals(s.taxRate), ItemCount: c.ItemCount()}
}

// Get загружает корзину и сверяет позиции с каталогом: цены и остатки
// обновляются до живых, позиции удалённых или снятых с продажи товаров
// помечаются Unavailable — решение о них остаётся за покупателем.
func (s *CartService) Get(ctx context.Context, userID int64) (*CartView, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	changed := false
	for i := range c.Lines {
		line := &c.Lines[i]
		p, err := s.products.GetByID(ctx, line.Key.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				if !line.Unavailable {
					line.Unavailable = true
					changed = true
				}
				continue
			}
			return nil, err
		}
		if !p.IsActive {
			if !line.Unavailable {
				line.Unavailable = true
				changed = true
			}
			continue
		}
		if line.Unavailable || line.UnitPrice != p.Price || line.StockAtSelection != p.Stock {
			line.Unavailable = false
			line.UnitPrice = p.Price
			line.StockAtSelection = p.Stock
			changed = true
		}
	}
	if changed {
		if err := s.carts.Save(ctx, c); err != nil {
			return nil, err
		}
	}
	return s.view(c), nil
}

// AddItem кладёт товар в корзину. Отказ агрегата (не выбран размер или
// цвет, нет остатка) возвращается как DeclineReason, не как ошибка.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, size, color string) (*CartView, cart.DeclineReason, error) {
	if userID <= 0 || productID <= 0 {
		return nil, cart.DeclineNone, ErrInvalidInput
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, cart.DeclineNone, err
	}
	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, cart.DeclineNone, err
	}
	if reason := c.AddItem(p, size, color); reason != cart.DeclineNone {
		return nil, reason, nil
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, cart.DeclineNone, err
	}
	return s.view(c), cart.DeclineNone, nil
}

// SetQuantity выставляет количество позиции; ноль и меньше — удаление.
func (s *CartService) SetQuantity(ctx context.Context, userID int64, key cart.LineKey, qty int64) (*CartView, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.SetQuantity(key, qty)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// RemoveItem удаляет позицию; отсутствие позиции не ошибка.
func (s *CartService) RemoveItem(ctx context.Context, userID int64, key cart.LineKey) (*CartView, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.RemoveItem(key)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// Clear опустошает корзину.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidInput
	}
	return s.carts.Delete(ctx, userID)
}
