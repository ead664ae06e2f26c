package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"boutique/internal/cart"
)

// @Summary Get my cart with derived totals
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/cart [get]
func (s *Server) getCart(c *gin.Context) {
	u := currentUser(c)
	view, err := s.carts.Get(c, u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type addCartItemReq struct {
	ProductID int64  `json:"product"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// @Summary Add product to cart
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body addCartItemReq true "Product and variant selection"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/cart/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	var req addCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)
	view, declined, err := s.carts.AddItem(c, u.ID, req.ProductID, req.Size, req.Color)
	if err != nil {
		fail(c, err)
		return
	}
	if declined != cart.DeclineNone {
		// отказ агрегата, не ошибка сервера: клиент показывает причину
		c.JSON(http.StatusBadRequest, gin.H{"error": string(declined)})
		return
	}
	c.JSON(http.StatusOK, view)
}

type cartQuantityReq struct {
	Key      cart.LineKey `json:"key"`
	Quantity int64        `json:"quantity"`
}

// @Summary Set quantity of a cart line, zero removes it
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body cartQuantityReq true "Line key and quantity"
// @Success 200 {object} map[string]any
// @Router /api/cart/items [put]
func (s *Server) setCartQuantity(c *gin.Context) {
	var req cartQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)
	view, err := s.carts.SetQuantity(c, u.ID, req.Key, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type cartRemoveReq struct {
	Key cart.LineKey `json:"key"`
}

// @Summary Remove a cart line
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body cartRemoveReq true "Line key"
// @Success 200 {object} map[string]any
// @Router /api/cart/items [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	var req cartRemoveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)
	view, err := s.carts.RemoveItem(c, u.ID, req.Key)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Clear my cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 204
// @Router /api/cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	u := currentUser(c)
	if err := s.carts.Clear(c, u.ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
