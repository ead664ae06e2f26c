package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"boutique/internal/cart"
	"boutique/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID.
// Используется в тестах и как запасной режим без файла БД.
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	nextOrderID  int64
	nextUserID   int64
	productsByID map[int64]domain.Product
	ordersByID   map[int64]domain.Order
	usersByID    map[int64]domain.User
	tokens       map[string]domain.AuthToken
	cartsByUser  map[int64]cart.Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:   1,
		nextOrderID:  1,
		nextUserID:   1,
		productsByID: make(map[int64]domain.Product),
		ordersByID:   make(map[int64]domain.Order),
		usersByID:    make(map[int64]domain.User),
		tokens:       make(map[string]domain.AuthToken),
		cartsByUser:  make(map[int64]cart.Cart),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)
var _ UserRepository = (*MemoryUsers)(nil)
var _ OrderRepository = (*MemoryOrders)(nil)
var _ TokenRepository = (*MemoryTokens)(nil)
var _ CartStore = (*MemoryCarts)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.nextProdID
	m.nextProdID++
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	old, ok := m.productsByID[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, int64, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	f.Normalize()
	matched := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if f.Matches(p) {
			matched = append(matched, p)
		}
	}
	sortProducts(matched, f.SortBy)
	total := int64(len(matched))
	// пагинация после сортировки
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return []domain.Product{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page := make([]domain.Product, end-start)
	copy(page, matched[start:end])
	return page, total, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	return int64(len(m.productsByID)), nil
}

// сортировка каталога; стабильная, чтобы порядок страниц был
// детерминирован при равных ключах
func sortProducts(list []domain.Product, key SortKey) {
	less := func(a, b domain.Product) bool { return a.CreatedAt.After(b.CreatedAt) } // newest по умолчанию
	switch key {
	case SortPriceLowHigh:
		less = func(a, b domain.Product) bool { return a.Price < b.Price }
	case SortPriceHighLow:
		less = func(a, b domain.Product) bool { return a.Price > b.Price }
	case SortPopular:
		less = func(a, b domain.Product) bool { return a.Reviews > b.Reviews }
	case SortRating:
		less = func(a, b domain.Product) bool { return a.Rating > b.Rating }
	case SortNewest, SortDefault:
	}
	sort.SliceStable(list, func(i, j int) bool {
		if less(list[i], list[j]) {
			return true
		}
		if less(list[j], list[i]) {
			return false
		}
		return list[i].ID > list[j].ID
	})
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	mo.store.ordersByID[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	mo.store.ordersByID[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func (mo *MemoryOrders) ListAll(ctx context.Context) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0, len(mo.store.ordersByID))
	for _, o := range mo.store.ordersByID {
		out = append(out, o)
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func sortOrdersNewestFirst(list []domain.Order) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

// UserRepository implementation on wrapper type
type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

func (mu *MemoryUsers) Create(ctx context.Context, u *domain.User) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	for _, existing := range mu.store.usersByID {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	u.ID = mu.store.nextUserID
	mu.store.nextUserID++
	u.CreatedAt = time.Now().UTC()
	mu.store.usersByID[u.ID] = *u
	return nil
}

func (mu *MemoryUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	u, ok := mu.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	cp.Wishlist = append([]int64(nil), u.Wishlist...)
	return &cp, nil
}

func (mu *MemoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	for _, u := range mu.store.usersByID {
		if strings.EqualFold(u.Email, email) {
			cp := u
			cp.Wishlist = append([]int64(nil), u.Wishlist...)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (mu *MemoryUsers) Update(ctx context.Context, u *domain.User) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	if _, ok := mu.store.usersByID[u.ID]; !ok {
		return ErrNotFound
	}
	mu.store.usersByID[u.ID] = *u
	return nil
}

func (mu *MemoryUsers) Delete(ctx context.Context, id int64) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	if _, ok := mu.store.usersByID[id]; !ok {
		return ErrNotFound
	}
	delete(mu.store.usersByID, id)
	return nil
}

func (mu *MemoryUsers) ListAll(ctx context.Context) ([]domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	out := make([]domain.User, 0, len(mu.store.usersByID))
	for _, u := range mu.store.usersByID {
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TokenRepository implementation on wrapper type
type MemoryTokens struct{ store *MemoryStore }

func NewMemoryTokens(store *MemoryStore) *MemoryTokens { return &MemoryTokens{store: store} }

func (mt *MemoryTokens) Put(ctx context.Context, t domain.AuthToken) error {
	mt.store.wlock(ctx)
	defer mt.store.wunlock(ctx)
	mt.store.tokens[t.Token] = t
	return nil
}

func (mt *MemoryTokens) Get(ctx context.Context, token string, now time.Time) (*domain.AuthToken, error) {
	mt.store.rlock(ctx)
	defer mt.store.runlock(ctx)
	t, ok := mt.store.tokens[token]
	if !ok || now.After(t.ExpiresAt) {
		return nil, ErrNotFound
	}
	cp := t
	return &cp, nil
}

func (mt *MemoryTokens) Delete(ctx context.Context, token string) error {
	mt.store.wlock(ctx)
	defer mt.store.wunlock(ctx)
	delete(mt.store.tokens, token)
	return nil
}

// CartStore implementation on wrapper type
type MemoryCarts struct{ store *MemoryStore }

func NewMemoryCarts(store *MemoryStore) *MemoryCarts { return &MemoryCarts{store: store} }

func (mc *MemoryCarts) Load(ctx context.Context, userID int64) (*cart.Cart, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	c, ok := mc.store.cartsByUser[userID]
	if !ok {
		return cart.New(userID), nil
	}
	cp := c
	cp.Lines = append([]cart.Line(nil), c.Lines...)
	return &cp, nil
}

func (mc *MemoryCarts) Save(ctx context.Context, c *cart.Cart) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	cp := *c
	cp.Lines = append([]cart.Line(nil), c.Lines...)
	mc.store.cartsByUser[c.UserID] = cp
	return nil
}

func (mc *MemoryCarts) Delete(ctx context.Context, userID int64) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	delete(mc.store.cartsByUser, userID)
	return nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
