package handlers

import (
	"errors"
	"net/http"

	"refripartes-backend/dtos"
	"refripartes-backend/models"
	"refripartes-backend/services"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartHandler struct {
	Carts *services.CartStore
}

func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cart, err := h.Carts.GetOrCreateCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dtos.CartItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	item, err := h.Carts.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity, models.VariantFromPtr(req.VariantID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dtos.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	item, err := h.Carts.UpdateItem(c.Request.Context(), userID, req.ProductID, req.Quantity, models.VariantFromPtr(req.VariantID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// RemoveFromCart deletes the line for :product_id. The optional variant_id query parameter
// selects a variant line; without it the base product line is removed.
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	productID, ok := uuidParam(c, "product_id", "ID de producto inválido")
	if !ok {
		return
	}
	variant, ok := variantQuery(c)
	if !ok {
		return
	}

	if err := h.Carts.RemoveItem(c.Request.Context(), userID, productID, variant); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Producto eliminado del carrito"})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.Carts.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Carrito vaciado"})
}

// MergeCart folds a client-side cart into the user's cart, line by line.
func (h *CartHandler) MergeCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dtos.MergeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	cart, err := h.Carts.Merge(c.Request.Context(), userID, linesFromInputs(req.Items))
	var mergeErr *services.MergeError
	if errors.As(err, &mergeErr) {
		// The first Applied items are in the cart; the client drops them before retrying.
		status, message := cartErrorResponse(err)
		c.JSON(status, gin.H{"error": message, "applied": mergeErr.Applied})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

func linesFromInputs(items []dtos.CartItemInput) []services.CartLine {
	lines := make([]services.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, services.CartLine{
			ProductID: item.ProductID,
			Variant:   models.VariantFromPtr(item.VariantID),
			Quantity:  item.Quantity,
		})
	}
	return lines
}

func variantQuery(c *gin.Context) (models.VariantKey, bool) {
	raw := c.Query("variant_id")
	if raw == "" {
		return models.NoVariant(), true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de variante inválido"})
		return models.VariantKey{}, false
	}
	return models.VariantOf(id), true
}
