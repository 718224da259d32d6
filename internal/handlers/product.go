// internal/handlers/product.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/services"
	"github.com/PabloB07/mcshop/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	params := &services.ProductSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		Category:         c.Query("category"),
		ActiveOnly:       true,
	}

	if pt := c.Query("type"); pt != "" {
		productType := models.ProductType(pt)
		params.ProductType = &productType
	}

	result, err := h.productService.SearchProducts(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load products")
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	product, err := h.productService.GetProduct(productID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "Product not found")
		} else {
			utils.InternalErrorResponse(c, "Failed to load product")
		}
		return
	}

	utils.SuccessResponse(c, product)
}
