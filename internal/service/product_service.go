package service

import (
	"context"
	"errors"
	"fmt"

	"boutique/internal/domain"
	"boutique/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг каталога товаров
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

var ErrInvalidInput = errors.New("invalid input")

func validateProduct(p domain.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case p.Brand == "":
		return fmt.Errorf("%w: brand is required", ErrInvalidInput)
	case p.Category == "":
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	case p.Discount < 0 || p.Discount > 100:
		return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	cp.IsActive = true
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// GetByID возвращает товар, включая неактивный: страница товара
// решает сама, что показывать
func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Deactivate мягкое удаление: товар пропадает из каталога, но остаётся
// в базе — на него ссылаются исторические заказы
func (s *ProductService) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.IsActive = false
	return s.repo.Update(ctx, p)
}

// AddImage дописывает путь изображения к товару.
func (s *ProductService) AddImage(ctx context.Context, id int64, path string) (*domain.Product, error) {
	if id <= 0 || path == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Images = append(p.Images, path)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List страница каталога плюс общее число совпадений.
func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int64, error) {
	return s.repo.List(ctx, f)
}

// ListByCategory товары одной категории без пагинации.
func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	if category == "" {
		return nil, ErrInvalidInput
	}
	items, _, err := s.repo.List(ctx, repository.ProductFilter{Category: category, Limit: 1000})
	return items, err
}

// Search полнотекстовый (подстрочный) поиск по активным товарам.
func (s *ProductService) Search(ctx context.Context, q string) ([]domain.Product, error) {
	if q == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	items, _, err := s.repo.List(ctx, repository.ProductFilter{Search: q, Limit: 1000})
	return items, err
}
