package handlers

import (
	"net/http"

	"refripartes-backend/cache"
	"refripartes-backend/dtos"
	"refripartes-backend/models"
	"refripartes-backend/services"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GuestCartHandler serves the cart of visitors who are not logged in, identified by the
// X-Guest-ID header.
type GuestCartHandler struct {
	DB         *gorm.DB
	GuestCarts cache.GuestCartStore
}

type guestCartLine struct {
	ProductID uuid.UUID              `json:"product_id"`
	VariantID *uuid.UUID             `json:"variant_id"`
	Quantity  int                    `json:"quantity"`
	Product   *models.Product        `json:"product,omitempty"`
	Variant   *models.ProductVariant `json:"variant,omitempty"`
}

func (h *GuestCartHandler) GetCart(c *gin.Context) {
	lines, err := h.GuestCarts.Items(c.Request.Context(), c.GetString("guest_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	items, err := h.describe(lines)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// describe joins cached lines with current catalog data. Lines whose product has been
// removed are still returned, without product details.
func (h *GuestCartHandler) describe(lines []services.CartLine) ([]guestCartLine, error) {
	items := make([]guestCartLine, 0, len(lines))
	if len(lines) == 0 {
		return items, nil
	}

	productIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ProductID)
	}

	var products []models.Product
	if err := h.DB.Preload("Images").Preload("Variants").Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, line := range lines {
		item := guestCartLine{
			ProductID: line.ProductID,
			VariantID: line.Variant.Ptr(),
			Quantity:  line.Quantity,
			Product:   byID[line.ProductID],
		}
		if variantID, ok := line.Variant.ID(); ok && item.Product != nil {
			for i := range item.Product.Variants {
				if item.Product.Variants[i].ID == variantID {
					item.Variant = &item.Product.Variants[i]
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (h *GuestCartHandler) AddItem(c *gin.Context) {
	var req dtos.CartItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	variant := models.VariantFromPtr(req.VariantID)
	if err := h.checkProduct(req.ProductID, variant); err != nil {
		respondError(c, err)
		return
	}

	if err := h.GuestCarts.Add(c.Request.Context(), c.GetString("guest_id"), req.ProductID, variant, req.Quantity); err != nil {
		respondError(c, err)
		return
	}

	h.GetCart(c)
}

func (h *GuestCartHandler) UpdateItem(c *gin.Context) {
	var req dtos.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	err := h.GuestCarts.Set(c.Request.Context(), c.GetString("guest_id"), req.ProductID, models.VariantFromPtr(req.VariantID), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	h.GetCart(c)
}

func (h *GuestCartHandler) RemoveItem(c *gin.Context) {
	productID, ok := uuidParam(c, "product_id", "ID de producto inválido")
	if !ok {
		return
	}
	variant, ok := variantQuery(c)
	if !ok {
		return
	}

	if err := h.GuestCarts.Remove(c.Request.Context(), c.GetString("guest_id"), productID, variant); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Producto eliminado del carrito"})
}

func (h *GuestCartHandler) Clear(c *gin.Context) {
	if err := h.GuestCarts.Clear(c.Request.Context(), c.GetString("guest_id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Carrito vaciado"})
}

func (h *GuestCartHandler) checkProduct(productID uuid.UUID, variant models.VariantKey) error {
	var count int64
	if err := h.DB.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return services.ErrProductNotFound
	}

	variantID, ok := variant.ID()
	if !ok {
		return nil
	}
	if err := h.DB.Model(&models.ProductVariant{}).
		Where("id = ? AND product_id = ?", variantID, productID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return services.ErrVariantNotFound
	}
	return nil
}
