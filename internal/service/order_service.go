package service

import (
	"context"
	"errors"
	"fmt"

	"boutique/internal/domain"
	"boutique/internal/pricing"
	"boutique/internal/repository"
)

// OrderService оркестратор оформления заказа: валидация корзины по
// живому каталогу, пересчёт сумм, снимок позиций, списание остатков и
// очистка корзины — всё одной транзакцией.
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	carts    repository.CartStore
	tx       repository.TxManager
	taxRate  float64
}

func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, carts repository.CartStore, tx repository.TxManager, taxRate float64) *OrderService {
	return &OrderService{products: products, orders: orders, carts: carts, tx: tx, taxRate: taxRate}
}

var (
	ErrNotEnoughStock = errors.New("insufficient stock")
	ErrInvalidState   = errors.New("invalid state")
	ErrEmptyCart      = errors.New("no order items provided")
	ErrForbidden      = errors.New("not authorized")
)

// PlacementItem позиция из снимка корзины клиента. Цена не передаётся:
// авторитетны только живые цены каталога.
type PlacementItem struct {
	ProductID int64  `json:"product"`
	Quantity  int64  `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// PlacementRequest запрос оформления. Subtotal/Tax/Total клиента сюда
// сознательно не входят — сервер всегда считает сам.
type PlacementRequest struct {
	Items           []PlacementItem
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
}

// PlaceOrder создаёт заказ атомарно: либо все позиции проверены,
// остатки списаны и заказ записан, либо ничего не изменилось. Ошибка
// называет виновный товар по имени, чтобы покупатель знал, что править.
func (s *OrderService) PlaceOrder(ctx context.Context, userID int64, req PlacementRequest) (*domain.Order, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, it := range req.Items {
		if it.ProductID <= 0 {
			return nil, fmt.Errorf("%w: invalid product id %d", ErrInvalidInput, it.ProductID)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: invalid quantity for product %d", ErrInvalidInput, it.ProductID)
		}
	}
	payment := req.PaymentMethod
	if payment == "" {
		payment = "COD"
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// сначала все проверки, запись потом: при отказе на любой
		// позиции ни один остаток не должен быть уже списан
		need := make(map[int64]int64) // суммарное количество по товару
		for _, it := range req.Items {
			need[it.ProductID] += it.Quantity
		}
		productCopies := make(map[int64]*domain.Product, len(need))
		for _, it := range req.Items {
			if _, ok := productCopies[it.ProductID]; ok {
				continue
			}
			p, err := s.products.GetByID(ctx, it.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("product not found: %d: %w", it.ProductID, repository.ErrNotFound)
				}
				return err
			}
			if !p.IsActive {
				return fmt.Errorf("product no longer available: %s: %w", p.Name, repository.ErrNotFound)
			}
			if p.Stock < need[p.ID] {
				return fmt.Errorf("%w for %s", ErrNotEnoughStock, p.Name)
			}
			productCopies[p.ID] = p
		}

		// снимок позиций по живым данным каталога
		lines := make([]domain.OrderLine, 0, len(req.Items))
		priced := make([]pricing.Line, 0, len(req.Items))
		for _, it := range req.Items {
			p := productCopies[it.ProductID]
			img := ""
			if len(p.Images) > 0 {
				img = p.Images[0]
			}
			lines = append(lines, domain.OrderLine{
				ProductID: p.ID,
				Name:      p.Name,
				UnitPrice: p.Price,
				Quantity:  it.Quantity,
				Size:      it.Size,
				Color:     it.Color,
				Image:     img,
			})
			priced = append(priced, pricing.Line{UnitPrice: p.Price, Quantity: it.Quantity})
		}
		totals := pricing.ComputeTotals(priced, s.taxRate)

		o := domain.Order{
			UserID:          userID,
			Lines:           lines,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   payment,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			Total:           totals.Total,
			Status:          domain.OrderStatusPending,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}

		// списание остатков; проверка выше гарантирует достаточность,
		// транзакция — что конкурирующее оформление не вклинится
		for id, qty := range need {
			p := productCopies[id]
			p.Stock -= qty
			if err := s.products.Update(ctx, p); err != nil {
				return err
			}
		}

		if err := s.carts.Delete(ctx, userID); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetOrderFor возвращает заказ, если он принадлежит пользователю или
// запрашивает администратор.
func (s *OrderService) GetOrderFor(ctx context.Context, id, userID int64, isAdmin bool) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID && !isAdmin {
		return nil, fmt.Errorf("%w to access this order", ErrForbidden)
	}
	return o, nil
}

// ListByUser заказы пользователя, новые первыми.
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.orders.ListByUser(ctx, userID)
}

// ListAll все заказы плюс сумма продаж (для админки).
func (s *OrderService) ListAll(ctx context.Context) ([]domain.Order, float64, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	var totalSales float64
	for _, o := range orders {
		totalSales += o.Total
	}
	return orders, totalSales, nil
}

// UpdateStatus переводит заказ в новый статус строго по машине
// состояний; недопустимый переход — ErrInvalidState. Перевод в
// cancelled возвращает списанные остатки на склад.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidState, o.Status, status)
		}
		if status == domain.OrderStatusCancelled {
			// return stock
			for _, line := range o.Lines {
				p, err := s.products.GetByID(ctx, line.ProductID)
				if err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						// товар успели удалить, остаток возвращать некуда
						continue
					}
					return err
				}
				p.Stock += line.Quantity
				if err := s.products.Update(ctx, p); err != nil {
					return err
				}
			}
		}
		o.Status = status
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
