package handlers

import (
	"net/http"
	"strings"

	"refripartes-backend/dtos"
	"refripartes-backend/models"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *ProductHandler) GetVariants(c *gin.Context) {
	productID, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}

	var variants []models.ProductVariant
	if err := h.DB.Where("product_id = ?", productID).Order("name ASC").Find(&variants).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener las variantes"})
		return
	}
	c.JSON(http.StatusOK, variants)
}

func (h *ProductHandler) CreateVariant(c *gin.Context) {
	productID, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}

	var req dtos.VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if req.Price != nil && !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El precio debe ser un número positivo"})
		return
	}

	if err := h.DB.First(&models.Product{}, "id = ?", productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	var count int64
	h.DB.Model(&models.ProductVariant{}).Where("sku = ?", sku).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Ya existe una variante con ese SKU"})
		return
	}

	variant := models.ProductVariant{
		ProductID: productID,
		Name:      strings.TrimSpace(req.Name),
		SKU:       sku,
		Price:     req.Price,
	}
	if req.Stock != nil {
		variant.Stock = *req.Stock
	}

	if err := h.DB.Create(&variant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear la variante"})
		return
	}
	c.JSON(http.StatusCreated, variant)
}

func (h *ProductHandler) UpdateVariant(c *gin.Context) {
	variant, ok := h.findVariant(c)
	if !ok {
		return
	}

	var req dtos.VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if req.Price != nil && !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El precio debe ser un número positivo"})
		return
	}

	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	var count int64
	h.DB.Model(&models.ProductVariant{}).Where("sku = ? AND id <> ?", sku, variant.ID).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Ya existe una variante con ese SKU"})
		return
	}

	variant.Name = strings.TrimSpace(req.Name)
	variant.SKU = sku
	variant.Price = req.Price
	if req.Stock != nil {
		variant.Stock = *req.Stock
	}

	if err := h.DB.Save(&variant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar la variante"})
		return
	}
	c.JSON(http.StatusOK, variant)
}

// DeleteVariant removes the variant and any cart lines pointing at it.
func (h *ProductHandler) DeleteVariant(c *gin.Context) {
	variant, ok := h.findVariant(c)
	if !ok {
		return
	}

	if err := h.DB.Where("variant_id = ?", variant.ID).Delete(&models.CartItem{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar la variante"})
		return
	}
	if err := h.DB.Delete(&variant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar la variante"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Variante eliminada"})
}

func (h *ProductHandler) findVariant(c *gin.Context) (models.ProductVariant, bool) {
	var variant models.ProductVariant
	productID, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return variant, false
	}
	variantID, err := uuid.Parse(c.Param("variant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de variante inválido"})
		return variant, false
	}

	if err := h.DB.Where("id = ? AND product_id = ?", variantID, productID).First(&variant).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Variante no encontrada para este producto"})
		return variant, false
	}
	return variant, true
}
