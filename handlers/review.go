package handlers

import (
	"errors"
	"log"
	"net/http"

	"refripartes-backend/models"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReviewHandler struct {
	DB *gorm.DB
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

type reviewResponse struct {
	models.Review
	UserName string `json:"user_name"`
}

func (h *ReviewHandler) GetProductReviews(c *gin.Context) {
	productID, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}
	p := parsePagination(c)

	var reviews []models.Review
	if err := h.DB.Preload("User").Where("product_id = ?", productID).
		Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).
		Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener las reseñas"})
		return
	}

	rating, err := ratingSummary(h.DB, productID)
	if err != nil {
		log.Printf("WARNING: failed to load rating summary for product %s: %v", productID, err)
	}

	result := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		name := r.User.Name
		r.User = models.User{}
		result = append(result, reviewResponse{Review: r, UserName: name})
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": result,
		"rating":  rating,
		"page":    p.Page,
		"limit":   p.Limit,
		"pages":   p.Pages(rating.Count),
	})
}

// UpsertReview creates the caller's review of the product or replaces it; a user holds at
// most one review per product.
func (h *ReviewHandler) UpsertReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if err := h.DB.First(&models.Product{}, "id = ?", productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}

	var review models.Review
	err := h.DB.Where("user_id = ? AND product_id = ?", userID, productID).First(&review).Error
	switch {
	case err == nil:
		review.Rating = req.Rating
		review.Comment = req.Comment
		if err := h.DB.Omit("User").Save(&review).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar la reseña"})
			return
		}
		c.JSON(http.StatusOK, review)
	case errors.Is(err, gorm.ErrRecordNotFound):
		review = models.Review{
			UserID:    userID,
			ProductID: productID,
			Rating:    req.Rating,
			Comment:   req.Comment,
		}
		if err := h.DB.Omit("User").Create(&review).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar la reseña"})
			return
		}
		c.JSON(http.StatusCreated, review)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar la reseña"})
	}
}

// DeleteReview removes a review; customers may only delete their own.
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	reviewID, ok := uuidParam(c, "review_id", "ID de reseña inválido")
	if !ok {
		return
	}

	var review models.Review
	if err := h.DB.Where("id = ?", reviewID).First(&review).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reseña no encontrada"})
		return
	}
	if review.UserID != userID && !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "No puedes eliminar esta reseña"})
		return
	}

	if err := h.DB.Delete(&review).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar la reseña"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reseña eliminada"})
}
