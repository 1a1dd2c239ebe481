package handlers

import (
	"net/http"
	"strings"

	"refripartes-backend/models"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryHandler struct {
	DB *gorm.DB
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// categoryWithCount is a category annotated with the number of products filed under it.
type categoryWithCount struct {
	models.Category
	ProductCount int64 `json:"product_count"`
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener las categorías"})
		return
	}

	var counts []struct {
		CategoryID uuid.UUID
		Count      int64
	}
	h.DB.Model(&models.Product{}).Select("category_id, COUNT(*) AS count").
		Group("category_id").Scan(&counts)
	byCategory := make(map[uuid.UUID]int64, len(counts))
	for _, row := range counts {
		byCategory[row.CategoryID] = row.Count
	}

	result := make([]categoryWithCount, 0, len(categories))
	for _, cat := range categories {
		result = append(result, categoryWithCount{Category: cat, ProductCount: byCategory[cat.ID]})
	}
	c.JSON(http.StatusOK, result)
}

// GetCategory resolves a category by id or slug.
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	key := c.Param("id")
	query := h.DB.Where("slug = ?", key)
	if id, err := uuid.Parse(key); err == nil {
		query = h.DB.Where("id = ?", id)
	}

	var category models.Category
	if err := query.First(&category).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Categoría no encontrada"})
		return
	}

	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	name := strings.TrimSpace(req.Name)
	var count int64
	h.DB.Model(&models.Category{}).Where("LOWER(name) = LOWER(?)", name).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Ya existe una categoría con ese nombre"})
		return
	}

	category := models.Category{Name: name, Description: req.Description}
	if err := h.DB.Create(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear la categoría"})
		return
	}

	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de categoría inválido")
	if !ok {
		return
	}

	var category models.Category
	if err := h.DB.Where("id = ?", id).First(&category).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Categoría no encontrada"})
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	name := strings.TrimSpace(req.Name)
	var count int64
	h.DB.Model(&models.Category{}).Where("LOWER(name) = LOWER(?) AND id <> ?", name, id).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Ya existe una categoría con ese nombre"})
		return
	}

	updates := map[string]interface{}{
		"name":        name,
		"slug":        models.Slugify(name),
		"description": req.Description,
	}
	if err := h.DB.Model(&category).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar la categoría"})
		return
	}

	h.DB.Where("id = ?", id).First(&category)
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de categoría inválido")
	if !ok {
		return
	}

	var productCount int64
	if err := h.DB.Model(&models.Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron comprobar los productos de la categoría"})
		return
	}

	if productCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":         "No se puede eliminar una categoría con productos asociados",
			"product_count": productCount,
		})
		return
	}

	res := h.DB.Delete(&models.Category{}, "id = ?", id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar la categoría"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Categoría no encontrada"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Categoría eliminada"})
}
