package domain

import (
	"encoding/json"
	"time"
)

// ColorOption вариант цвета товара: значение (hex) плюс читаемое имя.
// Хранится парой, чтобы не было рассинхронизации параллельных массивов.
type ColorOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Product представляет товар каталога
type Product struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Brand         string        `json:"brand"`
	Description   string        `json:"description"`
	Price         float64       `json:"price"`
	OriginalPrice float64       `json:"originalPrice,omitempty"`
	Discount      int           `json:"discount"`
	Category      string        `json:"category"`
	Tags          []string      `json:"tags"`
	Sizes         []string      `json:"sizes"`
	Colors        []ColorOption `json:"-"`
	Images        []string      `json:"images"`
	Stock         int64         `json:"stock"`
	Rating        float64       `json:"rating"`
	Reviews       int64         `json:"reviews"`
	IsActive      bool          `json:"isActive"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// productJSON внешнее представление: SPA ожидает colors и colorNames
// как два отдельных массива, внутри храним их одной парой.
type productJSON struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"originalPrice,omitempty"`
	Discount      int       `json:"discount"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	Sizes         []string  `json:"sizes"`
	Colors        []string  `json:"colors"`
	ColorNames    []string  `json:"colorNames"`
	Images        []string  `json:"images"`
	Stock         int64     `json:"stock"`
	Rating        float64   `json:"rating"`
	Reviews       int64     `json:"reviews"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		ID: p.ID, Name: p.Name, Brand: p.Brand, Description: p.Description,
		Price: p.Price, OriginalPrice: p.OriginalPrice, Discount: p.Discount,
		Category: p.Category, Tags: p.Tags, Sizes: p.Sizes, Images: p.Images,
		Stock: p.Stock, Rating: p.Rating, Reviews: p.Reviews, IsActive: p.IsActive,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
	out.Colors = make([]string, 0, len(p.Colors))
	out.ColorNames = make([]string, 0, len(p.Colors))
	for _, c := range p.Colors {
		out.Colors = append(out.Colors, c.Value)
		out.ColorNames = append(out.ColorNames, c.Label)
	}
	return json.Marshal(out)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var in productJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Product{
		ID: in.ID, Name: in.Name, Brand: in.Brand, Description: in.Description,
		Price: in.Price, OriginalPrice: in.OriginalPrice, Discount: in.Discount,
		Category: in.Category, Tags: in.Tags, Sizes: in.Sizes, Images: in.Images,
		Stock: in.Stock, Rating: in.Rating, Reviews: in.Reviews, IsActive: in.IsActive,
		CreatedAt: in.CreatedAt, UpdatedAt: in.UpdatedAt,
	}
	p.Colors = PairColors(in.Colors, in.ColorNames)
	return nil
}

// PairColors собирает hex-значения и имена в пары. Если имён меньше,
// чем значений, оставшиеся пары получают пустой Label.
func PairColors(values, labels []string) []ColorOption {
	out := make([]ColorOption, 0, len(values))
	for i, v := range values {
		c := ColorOption{Value: v}
		if i < len(labels) {
			c.Label = labels[i]
		}
		out = append(out, c)
	}
	return out
}

// Role роль пользователя
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User учётная запись покупателя или администратора
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Wishlist     []int64   `json:"wishlist"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// переходы статусов: pending → confirmed → shipped → delivered,
// cancelled достижим из любого нетерминального состояния
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// Valid сообщает, известен ли статус вообще.
func (s OrderStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	next, ok := statusTransitions[s]
	return ok && len(next) == 0
}

// CanTransition проверяет допустимость перехода s → to.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, n := range statusTransitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// ShippingAddress адрес доставки, вводится при оформлении заказа
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// OrderLine позиция заказа. Name, UnitPrice, Image, Size и Color —
// снимок товара на момент оформления: последующие правки каталога
// не меняют историю заказов.
type OrderLine struct {
	ProductID int64   `json:"product"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Image     string  `json:"image,omitempty"`
}

// Order сущность заказа
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user"`
	Lines           []OrderLine     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	Subtotal        float64         `json:"subtotal"`
	Tax             float64         `json:"tax"`
	Total           float64         `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// AuthToken непрозрачный bearer-токен, выданный после входа
type AuthToken struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}
