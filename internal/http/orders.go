package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boutique/internal/domain"
	"boutique/internal/service"
)

// createOrderReq тело оформления заказа. Subtotal, tax и total клиента
// принимаются, но носят справочный характер: сервер пересчитывает
// суммы по живым ценам каталога.
type createOrderReq struct {
	Items           []service.PlacementItem `json:"items"`
	ShippingAddress domain.ShippingAddress  `json:"shippingAddress"`
	PaymentMethod   string                  `json:"paymentMethod"`
	Subtotal        float64                 `json:"subtotal"`
	Tax             float64                 `json:"tax"`
	Total           float64                 `json:"total"`
}

// @Summary Create order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body createOrderReq true "Order"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/orders/create [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)
	o, err := s.orders.PlaceOrder(c, u.ID, service.PlacementRequest{
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": o})
}

// @Summary List my orders, newest first
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/orders/myorders [get]
func (s *Server) myOrders(c *gin.Context) {
	u := currentUser(c)
	orders, err := s.orders.ListByUser(c, u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(orders), "orders": orders})
}

// @Summary Get order by id (owner or admin)
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	u := currentUser(c)
	o, err := s.orders.GetOrderFor(c, id, u.ID, u.Role == domain.RoleAdmin)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}

// @Summary List all orders with total sales (admin)
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/orders/admin/all [get]
func (s *Server) allOrders(c *gin.Context) {
	orders, totalSales, err := s.orders.ListAll(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"count":      len(orders),
		"totalSales": totalSales,
		"orders":     orders,
	})
}

type updateStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// @Summary Update order status (admin)
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param input body updateStatusReq true "New status"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/orders/{id}/status [put]
func (s *Server) updateOrderStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.UpdateStatus(c, id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}
