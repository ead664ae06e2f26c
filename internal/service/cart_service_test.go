package service

import (
	"context"
	"testing"

	"boutique/internal/cart"
	"boutique/internal/domain"
	"boutique/internal/repository"
)

type cartFixture struct {
	store *repository.MemoryStore
	carts *repository.MemoryCarts
	svc   *CartService
}

func setupCart(t *testing.T) *cartFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	carts := repository.NewMemoryCarts(store)
	return &cartFixture{
		store: store,
		carts: carts,
		svc:   NewCartService(store, carts, 0.08),
	}
}

func (f *cartFixture) seed(t *testing.T, name string, price float64, stock int64) *domain.Product {
	t.Helper()
	p := domain.Product{
		Name: name, Brand: "B", Category: "C", Price: price, Stock: stock,
		IsActive: true,
		Sizes:    []string{"S", "M"},
		Colors: []domain.ColorOption{
			{Value: "#000", Label: "Black"},
			{Value: "#fff", Label: "White"},
		},
	}
	if err := f.store.Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
	return &p
}

func TestCartService_AddAndGet(t *testing.T) {
	ctx := context.Background()
	f := setupCart(t)
	p := f.seed(t, "Tee", 25.50, 10)

	view, reason, err := f.svc.AddItem(ctx, 1, p.ID, "M", "Black")
	if err != nil || reason != cart.DeclineNone {
		t.Fatalf("add: %v / %q", err, reason)
	}
	if view.ItemCount != 1 {
		t.Fatalf("item count: %d", view.ItemCount)
	}

	// повтор того же ключа увеличивает количество, не дублирует позицию
	view, _, _ = f.svc.AddItem(ctx, 1, p.ID, "M", "Black")
	if len(view.Cart.Lines) != 1 || view.Cart.Lines[0].Quantity != 2 {
		t.Fatalf("merge: %+v", view.Cart.Lines)
	}
	if view.Totals.Subtotal != 51.00 || view.Totals.Tax != 4.08 || view.Totals.Total != 55.08 {
		t.Fatalf("totals: %+v", view.Totals)
	}

	// корзина переживает повторную загрузку
	view, err = f.svc.Get(ctx, 1)
	if err != nil || len(view.Cart.Lines) != 1 || view.ItemCount != 2 {
		t.Fatalf("get after save: %v %+v", err, view)
	}
}

func TestCartService_AddDeclines(t *testing.T) {
	ctx := context.Background()
	f := setupCart(t)
	p := f.seed(t, "Tee", 10, 5)

	_, reason, err := f.svc.AddItem(ctx, 1, p.ID, "", "Black")
	if err != nil || reason != cart.DeclineNeedSize {
		t.Fatalf("expected size decline, got %q / %v", reason, err)
	}
	_, reason, _ = f.svc.AddItem(ctx, 1, p.ID, "M", "")
	if reason != cart.DeclineNeedColor {
		t.Fatalf("expected color decline, got %q", reason)
	}

	empty := f.seed(t, "Gone", 10, 0)
	_, reason, _ = f.svc.AddItem(ctx, 1, empty.ID, "M", "Black")
	if reason != cart.DeclineOutOfStock {
		t.Fatalf("expected out-of-stock decline, got %q", reason)
	}
}

func TestCartService_GetRefreshesLines(t *testing.T) {
	ctx := context.Background()
	f := setupCart(t)
	p := f.seed(t, "Tee", 20, 10)

	if _, reason, err := f.svc.AddItem(ctx, 1, p.ID, "M", "Black"); err != nil || reason != cart.DeclineNone {
		t.Fatalf("add: %v / %q", err, reason)
	}

	// цена и остаток меняются в каталоге
	p.Price = 25
	p.Stock = 3
	if err := f.store.Update(ctx, p); err != nil {
		t.Fatal(err)
	}

	view, err := f.svc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	line := view.Cart.Lines[0]
	if line.UnitPrice != 25 || line.StockAtSelection != 3 {
		t.Fatalf("line not refreshed: %+v", line)
	}
	if view.Totals.Subtotal != 25 {
		t.Fatalf("totals use stale price: %+v", view.Totals)
	}

	// снятый с продажи товар помечается, но остаётся в корзине
	p.IsActive = false
	_ = f.store.Update(ctx, p)
	view, _ = f.svc.Get(ctx, 1)
	if !view.Cart.Lines[0].Unavailable || !view.Cart.HasUnavailable() {
		t.Fatalf("expected unavailable flag: %+v", view.Cart.Lines[0])
	}

	// возврат в каталог снимает пометку
	p.IsActive = true
	_ = f.store.Update(ctx, p)
	view, _ = f.svc.Get(ctx, 1)
	if view.Cart.Lines[0].Unavailable {
		t.Fatalf("flag not cleared: %+v", view.Cart.Lines[0])
	}
}

func TestCartService_SetQuantityAndRemove(t *testing.T) {
	ctx := context.Background()
	f := setupCart(t)
	p := f.seed(t, "Tee", 10, 5)
	key := cart.LineKey{ProductID: p.ID, Size: "M", Color: "Black"}

	_, _, _ = f.svc.AddItem(ctx, 1, p.ID, "M", "Black")

	view, err := f.svc.SetQuantity(ctx, 1, key, 3)
	if err != nil || view.Cart.Lines[0].Quantity != 3 {
		t.Fatalf("set qty: %v %+v", err, view.Cart.Lines)
	}

	// больше остатка — мягкое ограничение
	view, _ = f.svc.SetQuantity(ctx, 1, key, 50)
	if view.Cart.Lines[0].Quantity != 5 {
		t.Fatalf("clamp: %+v", view.Cart.Lines)
	}

	// ноль удаляет позицию
	view, _ = f.svc.SetQuantity(ctx, 1, key, 0)
	if len(view.Cart.Lines) != 0 {
		t.Fatalf("zero must remove: %+v", view.Cart.Lines)
	}

	// удаление отсутствующей позиции не ошибка
	view, err = f.svc.RemoveItem(ctx, 1, key)
	if err != nil || len(view.Cart.Lines) != 0 {
		t.Fatalf("remove missing: %v", err)
	}
}

func TestCartService_Clear(t *testing.T) {
	ctx := context.Background()
	f := setupCart(t)
	p := f.seed(t, "Tee", 10, 5)

	_, _, _ = f.svc.AddItem(ctx, 1, p.ID, "M", "Black")
	if err := f.svc.Clear(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}

	view, err := f.svc.Get(ctx, 1)
	if err != nil || len(view.Cart.Lines) != 0 || view.Totals.Total != 0 {
		t.Fatalf("cart not empty after clear: %v %+v", err, view)
	}
}

func TestCartService_CartsAreIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	f := setupCart(t)
	p := f.seed(t, "Tee", 10, 5)

	_, _, _ = f.svc.AddItem(ctx, 1, p.ID, "M", "Black")
	view, err := f.svc.Get(ctx, 2)
	if err != nil || len(view.Cart.Lines) != 0 {
		t.Fatalf("user 2 must have empty cart: %v %+v", err, view)
	}
}
