package service

import (
	"context"

	"boutique/internal/domain"
	"boutique/internal/repository"
)

// AdminService сводные данные для панели администратора.
type AdminService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
}

func NewAdminService(products repository.ProductRepository, orders repository.OrderRepository, users repository.UserRepository) *AdminService {
	return &AdminService{products: products, orders: orders, users: users}
}

// DashboardStats агрегаты главной страницы админки.
type DashboardStats struct {
	TotalSales    float64          `json:"totalSales"`
	TotalOrders   int64            `json:"totalOrders"`
	TotalProducts int64            `json:"totalProducts"`
	TotalUsers    int64            `json:"totalUsers"`
	RecentOrders  []domain.Order   `json:"recentOrders"`
	TopProducts   []domain.Product `json:"topProducts"`
}

const dashboardListLimit = 5

// Stats собирает агрегаты по каталогу, заказам и пользователям.
func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &DashboardStats{TotalOrders: int64(len(orders))}
	for _, o := range orders {
		stats.TotalSales += o.Total
	}
	recent := orders
	if len(recent) > dashboardListLimit {
		recent = recent[:dashboardListLimit]
	}
	stats.RecentOrders = recent

	stats.TotalProducts, err = s.products.Count(ctx)
	if err != nil {
		return nil, err
	}
	// топ по числу отзывов, включая снятые с продажи
	top, _, err := s.products.List(ctx, repository.ProductFilter{
		SortBy:          repository.SortPopular,
		Limit:           dashboardListLimit,
		IncludeInactive: true,
	})
	if err != nil {
		return nil, err
	}
	stats.TopProducts = top

	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalUsers = int64(len(users))
	return stats, nil
}
