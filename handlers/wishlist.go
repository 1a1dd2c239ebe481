package handlers

import (
	"net/http"

	"refripartes-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WishlistHandler struct {
	DB *gorm.DB
}

func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var items []models.WishlistItem
	if err := h.DB.Preload("Product").Preload("Product.Images").
		Joins("JOIN products ON products.id = wishlist_items.product_id AND products.deleted_at IS NULL").
		Where("wishlist_items.user_id = ?", userID).
		Order("wishlist_items.created_at DESC").
		Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo obtener la lista de deseos"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// AddToWishlist is idempotent: adding a product twice keeps one entry.
func (h *WishlistHandler) AddToWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "product_id", "ID de producto inválido")
	if !ok {
		return
	}

	if err := h.DB.First(&models.Product{}, "id = ?", productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}

	item := models.WishlistItem{UserID: userID, ProductID: productID}
	if err := h.DB.Omit("Product").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo añadir a la lista de deseos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Añadido a la lista de deseos"})
}

func (h *WishlistHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "product_id", "ID de producto inválido")
	if !ok {
		return
	}

	res := h.DB.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.WishlistItem{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar de la lista de deseos"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "El producto no está en la lista de deseos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Eliminado de la lista de deseos"})
}
