package httpapi

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"boutique/internal/domain"
	"boutique/internal/repository"
)

// productReq тело создания и обновления товара. Цвета принимаются и
// парой массивов (как шлёт SPA), внутри сразу склеиваются.
type productReq struct {
	Name          string   `json:"name"`
	Brand         string   `json:"brand"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice"`
	Discount      int      `json:"discount"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	Sizes         []string `json:"sizes"`
	Colors        []string `json:"colors"`
	ColorNames    []string `json:"colorNames"`
	Images        []string `json:"images"`
	Stock         int64    `json:"stock"`
	IsActive      *bool    `json:"isActive"`
}

func (r productReq) toDomain() domain.Product {
	p := domain.Product{
		Name: r.Name, Brand: r.Brand, Description: r.Description,
		Price: r.Price, OriginalPrice: r.OriginalPrice, Discount: r.Discount,
		Category: r.Category, Tags: r.Tags, Sizes: r.Sizes, Images: r.Images,
		Stock: r.Stock, IsActive: true,
	}
	p.Colors = domain.PairColors(r.Colors, r.ColorNames)
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p
}

// @Summary List products with filtering, sorting and pagination
// @Tags products
// @Produce json
// @Param category query string false "Category, 'All' disables the filter"
// @Param brand query []string false "Brand, repeatable"
// @Param minPrice query number false "Min price"
// @Param maxPrice query number false "Max price"
// @Param search query string false "Search term"
// @Param sortBy query string false "price-low-high | price-high-low | newest | popular | rating"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, default 12"
// @Success 200 {object} map[string]any
// @Router /api/products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		Category: c.Query("category"),
		Brands:   c.QueryArray("brand"),
		Search:   c.Query("search"),
		SortBy:   repository.SortKey(c.Query("sortBy")),
	}
	if v := c.Query("minPrice"); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinPrice = &x
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxPrice = &x
		}
	}
	if v := c.Query("page"); v != "" {
		f.Page, _ = strconv.Atoi(v)
	}
	if v := c.Query("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	f.Normalize()

	items, total, err := s.products.List(c, f)
	if err != nil {
		fail(c, err)
		return
	}
	pages := total / int64(f.Limit)
	if total%int64(f.Limit) != 0 {
		pages++
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"count":    len(items),
		"total":    total,
		"page":     f.Page,
		"pages":    pages,
		"products": items,
	})
}

// @Summary Search products
// @Tags products
// @Produce json
// @Param q query string true "Search query"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/products/search [get]
func (s *Server) searchProducts(c *gin.Context) {
	items, err := s.products.Search(c, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "products": items})
}

// @Summary List products of a category
// @Tags products
// @Produce json
// @Param category path string true "Category"
// @Success 200 {object} map[string]any
// @Router /api/products/category/{category} [get]
func (s *Server) productsByCategory(c *gin.Context) {
	items, err := s.products.ListByCategory(c, c.Param("category"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "products": items})
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.products.GetByID(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Create(c, req.toDomain())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": p})
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body productReq true "Product"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p := req.toDomain()
	p.ID = id
	updated, err := s.products.Update(c, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": updated})
}

// @Summary Deactivate product
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.products.Deactivate(c, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted successfully"})
}

const maxUploadWidth = 800

// @Summary Upload product image
// @Tags products
// @Accept mpfd
// @Produce json
// @Param id path int true "Product ID"
// @Param image formData file true "Image file (jpeg, png or gif)"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/products/{id}/images [post]
func (s *Server) uploadProductImage(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image format"})
		return
	}
	if img.Bounds().Dx() > maxUploadWidth {
		img = resize.Resize(maxUploadWidth, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		fail(c, err)
		return
	}
	filename := fmt.Sprintf("%s.jpg", uuid.New().String())
	out, err := os.Create(filepath.Join(s.uploadDir, filename))
	if err != nil {
		fail(c, err)
		return
	}
	defer out.Close()
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		fail(c, err)
		return
	}

	p, err := s.products.AddImage(c, id, "/uploads/"+filename)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
}
