package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"boutique/internal/domain"
	"boutique/internal/repository"
)

// UserService регистрация, вход по паролю, bearer-токены и wishlist.
type UserService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	products repository.ProductRepository
	tokenTTL time.Duration
}

func NewUserService(users repository.UserRepository, tokens repository.TokenRepository, products repository.ProductRepository, tokenTTL time.Duration) *UserService {
	return &UserService{users: users, tokens: tokens, products: products, tokenTTL: tokenTTL}
}

var ErrBadCredentials = errors.New("invalid email or password")

// Register создаёт учётную запись покупателя и сразу выдаёт токен.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, *domain.AuthToken, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	switch {
	case name == "":
		return nil, nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case email == "" || !strings.Contains(email, "@"):
		return nil, nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	case len(password) < 6:
		return nil, nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	u := domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
		Wishlist:     []int64{},
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return nil, nil, err
	}
	t, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return &u, t, nil
}

// Login проверяет пароль и выдаёт свежий токен. Неизвестный e-mail и
// неверный пароль отвечают одинаково, чтобы не раскрывать учётки.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, *domain.AuthToken, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrBadCredentials
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrBadCredentials
	}
	t, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, t, nil
}

// Logout отзывает токен. Незнакомый токен не ошибка.
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.tokens.Delete(ctx, token)
}

// Authenticate резолвит bearer-токен в пользователя.
func (s *UserService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	t, err := s.tokens.Get(ctx, token, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, t.UserID)
}

func (s *UserService) issueToken(ctx context.Context, userID int64) (*domain.AuthToken, error) {
	t := domain.AuthToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.tokenTTL),
	}
	if err := s.tokens.Put(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ToggleWishlist добавляет товар в избранное или убирает, если он уже
// там. Возвращает актуальный список идентификаторов.
func (s *UserService) ToggleWishlist(ctx context.Context, userID, productID int64) ([]int64, error) {
	if userID <= 0 || productID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, id := range u.Wishlist {
		if id == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		u.Wishlist = append(u.Wishlist, productID)
	} else {
		u.Wishlist = append(u.Wishlist[:idx], u.Wishlist[idx+1:]...)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u.Wishlist, nil
}

// Wishlist возвращает товары из избранного. Удалённые товары молча
// пропускаются, список пользователя при этом не переписывается.
func (s *UserService) Wishlist(ctx context.Context, userID int64) ([]domain.Product, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(u.Wishlist))
	for _, id := range u.Wishlist {
		p, err := s.products.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// ListAll все пользователи (админка).
func (s *UserService) ListAll(ctx context.Context) ([]domain.User, error) {
	return s.users.ListAll(ctx)
}

// Delete удаляет пользователя (админка). Самого себя администратор
// удалить не может.
func (s *UserService) Delete(ctx context.Context, id, requestedBy int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	if id == requestedBy {
		return fmt.Errorf("%w: cannot delete own account", ErrInvalidInput)
	}
	return s.users.Delete(ctx, id)
}
