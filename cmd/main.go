package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"boutique/internal/config"
	"boutique/internal/domain"
	httpapi "boutique/internal/http"
	"boutique/internal/repository"
	"boutique/internal/service"

	_ "boutique/docs"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := repository.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	productsRepo := repository.NewSQLiteProducts(store)
	ordersRepo := repository.NewSQLiteOrders(store)
	usersRepo := repository.NewSQLiteUsers(store)
	tokensRepo := repository.NewSQLiteTokens(store)
	cartsRepo := repository.NewSQLiteCarts(store)
	tx := repository.NewSQLiteTx(store)

	productsSvc := service.NewProductService(productsRepo)
	ordersSvc := service.NewOrderService(productsRepo, ordersRepo, cartsRepo, tx, cfg.TaxRate)
	cartsSvc := service.NewCartService(productsRepo, cartsRepo, cfg.TaxRate)
	usersSvc := service.NewUserService(usersRepo, tokensRepo, productsRepo, cfg.TokenTTL)
	adminSvc := service.NewAdminService(productsRepo, ordersRepo, usersRepo)

	if err := seedAdmin(context.Background(), usersRepo, cfg); err != nil {
		slog.Error("failed to seed admin user", "error", err)
		os.Exit(1)
	}

	srv := httpapi.NewServer(productsSvc, ordersSvc, cartsSvc, usersSvc, adminSvc, cfg.UploadDir)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// seedAdmin создаёт администратора из окружения, если его ещё нет.
func seedAdmin(ctx context.Context, users repository.UserRepository, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	if _, err := users.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := domain.User{
		Name:         "Administrator",
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Wishlist:     []int64{},
	}
	if err := users.Create(ctx, &u); err != nil {
		return err
	}
	slog.Info("seeded admin user", "email", cfg.AdminEmail)
	return nil
}
