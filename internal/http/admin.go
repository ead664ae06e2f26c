package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Dashboard statistics (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/admin/stats [get]
func (s *Server) adminStats(c *gin.Context) {
	stats, err := s.admin.Stats(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// @Summary List all users (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/admin/users [get]
func (s *Server) adminUsers(c *gin.Context) {
	users, err := s.users.ListAll(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(users), "users": users})
}

// @Summary Delete a user (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/admin/users/{id} [delete]
func (s *Server) adminDeleteUser(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.users.Delete(c, id, currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}

// wishlist handlers live with the rest of the authenticated user surface

// @Summary Get wishlist products
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/users/wishlist [get]
func (s *Server) getWishlist(c *gin.Context) {
	products, err := s.users.Wishlist(c, currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(products), "products": products})
}

// @Summary Toggle product in wishlist
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param productId path int true "Product ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/users/wishlist/{productId} [post]
func (s *Server) toggleWishlist(c *gin.Context) {
	id, err := parseID(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	wishlist, err := s.users.ToggleWishlist(c, currentUser(c).ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wishlist": wishlist})
}
