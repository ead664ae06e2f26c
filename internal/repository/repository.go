package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"boutique/internal/cart"
	"boutique/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail возвращается при регистрации на занятый e-mail
var ErrDuplicateEmail = errors.New("email already registered")

// SortKey ключ сортировки каталога
type SortKey string

const (
	SortDefault      SortKey = ""
	SortPriceLowHigh SortKey = "price-low-high"
	SortPriceHighLow SortKey = "price-high-low"
	SortNewest       SortKey = "newest"
	SortPopular      SortKey = "popular"
	SortRating       SortKey = "rating"
)

// ProductFilter параметры выборки каталога. Все заданные условия
// соединяются по AND; бренды внутри себя — по OR.
type ProductFilter struct {
	Category        string // "" или "All" — без фильтра
	Brands          []string
	MinPrice        *float64
	MaxPrice        *float64
	Search          string
	SortBy          SortKey
	Page            int // с единицы
	Limit           int // по умолчанию 12
	IncludeInactive bool
}

// Normalize приводит пагинацию к рабочим значениям.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 12
	}
}

// Matches проверяет товар против фильтра (без сортировки и пагинации).
// Используется in-memory реализацией; SQL-реализация строит WHERE
// с той же семантикой.
func (f ProductFilter) Matches(p domain.Product) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.Category != "" && f.Category != "All" && p.Category != f.Category {
		return false
	}
	if len(f.Brands) > 0 {
		found := false
		for _, b := range f.Brands {
			if p.Brand == b {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Search != "" && !matchesSearch(p, f.Search) {
		return false
	}
	return true
}

// поиск по подстроке в имени, бренде, описании и тегах
func matchesSearch(p domain.Product, q string) bool {
	if containsIgnoreCase(p.Name, q) ||
		containsIgnoreCase(p.Brand, q) ||
		containsIgnoreCase(p.Description, q) {
		return true
	}
	for _, t := range p.Tags {
		if containsIgnoreCase(t, q) {
			return true
		}
	}
	return false
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	// List возвращает страницу и общее число совпадений для расчёта
	// количества страниц
	List(ctx context.Context, f ProductFilter) ([]domain.Product, int64, error)
	Count(ctx context.Context) (int64, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	// ListByUser отдаёт заказы пользователя, новые первыми
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	// ListAll отдаёт все заказы, новые первыми
	ListAll(ctx context.Context) ([]domain.Order, error)
}

// UserRepository интерфейс репозитория пользователей
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]domain.User, error)
}

// TokenRepository хранилище выданных bearer-токенов
type TokenRepository interface {
	Put(ctx context.Context, t domain.AuthToken) error
	// Get возвращает ErrNotFound и для незнакомого, и для истёкшего
	// токена
	Get(ctx context.Context, token string, now time.Time) (*domain.AuthToken, error)
	Delete(ctx context.Context, token string) error
}

// CartStore порт персистентности корзины: load/save вместо прямой
// зависимости от конкретного хранилища
type CartStore interface {
	// Load возвращает пустую корзину, если сохранённой нет
	Load(ctx context.Context, userID int64) (*cart.Cart, error)
	Save(ctx context.Context, c *cart.Cart) error
	Delete(ctx context.Context, userID int64) error
}

// TxManager абстракция транзакции. Для in-memory — глобальная
// блокировка записи, для SQLite — настоящая транзакция с откатом.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
