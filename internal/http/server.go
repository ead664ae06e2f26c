package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"boutique/internal/repository"
	"boutique/internal/service"
)

type Server struct {
	engine    *gin.Engine
	products  *service.ProductService
	orders    *service.OrderService
	carts     *service.CartService
	users     *service.UserService
	admin     *service.AdminService
	uploadDir string
}

func NewServer(products *service.ProductService, orders *service.OrderService, carts *service.CartService, users *service.UserService, admin *service.AdminService, uploadDir string) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{
		engine:    r,
		products:  products,
		orders:    orders,
		carts:     carts,
		users:     users,
		admin:     admin,
		uploadDir: uploadDir,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/health", s.health)
	s.engine.Static("/uploads", s.uploadDir)

	api := s.engine.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
		auth.POST("/logout", s.requireAuth, s.logout)
		auth.GET("/me", s.requireAuth, s.me)

		products := api.Group("/products")
		products.GET("", s.listProducts)
		products.GET("/search", s.searchProducts)
		products.GET("/category/:category", s.productsByCategory)
		products.GET("/:id", s.getProduct)
		products.POST("", s.requireAuth, s.requireAdmin, s.createProduct)
		products.PUT("/:id", s.requireAuth, s.requireAdmin, s.updateProduct)
		products.DELETE("/:id", s.requireAuth, s.requireAdmin, s.deleteProduct)
		products.POST("/:id/images", s.requireAuth, s.requireAdmin, s.uploadProductImage)

		carts := api.Group("/cart", s.requireAuth)
		carts.GET("", s.getCart)
		carts.POST("/items", s.addCartItem)
		carts.PUT("/items", s.setCartQuantity)
		carts.DELETE("/items", s.removeCartItem)
		carts.DELETE("", s.clearCart)

		orders := api.Group("/orders", s.requireAuth)
		orders.POST("/create", s.createOrder)
		orders.GET("/myorders", s.myOrders)
		orders.GET("/admin/all", s.requireAdmin, s.allOrders)
		orders.PUT("/:id/status", s.requireAdmin, s.updateOrderStatus)
		orders.GET("/:id", s.getOrder)

		users := api.Group("/users", s.requireAuth)
		users.GET("/wishlist", s.getWishlist)
		users.POST("/wishlist/:productId", s.toggleWishlist)

		admin := api.Group("/admin", s.requireAuth, s.requireAdmin)
		admin.GET("/stats", s.adminStats)
		admin.GET("/users", s.adminUsers)
		admin.DELETE("/users/:id", s.adminDeleteUser)
	}
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNotEnoughStock),
		errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, repository.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail единая точка перевода ошибки в ответ: доменные ошибки уходят
// клиенту как есть, внутренние прячутся за общим сообщением
func fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logInternal(c, err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
