package handlers

import (
	"log"
	"net/http"

	"refripartes-backend/dtos"
	"refripartes-backend/models"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddProductImages uploads the "images" files of a multipart form. A product without images
// gets its first upload as primary.
func (h *ProductHandler) AddProductImages(c *gin.Context) {
	productID, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}
	if err := h.DB.First(&models.Product{}, "id = ?", productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo leer el formulario"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere al menos una imagen"})
		return
	}
	for _, fh := range files {
		if err := utils.ValidateFileUpload(fh); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var existing int64
	h.DB.Model(&models.ProductImage{}).Where("product_id = ?", productID).Count(&existing)

	images, err := h.storeUploads(c, productID, files, existing == 0)
	if err != nil {
		log.Printf("ERROR: image upload for product %s failed after %d files: %v", productID, len(images), err)
		status, msg := storageErrorStatus(err)
		c.JSON(status, gin.H{"error": msg, "uploaded": images})
		return
	}

	c.JSON(http.StatusCreated, images)
}

// ImportProductImage copies an external image URL into storage.
func (h *ProductHandler) ImportProductImage(c *gin.Context) {
	productID, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}

	var req dtos.ImportImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if err := h.DB.First(&models.Product{}, "id = ?", productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}
	if h.Storage == nil {
		status, msg := storageErrorStatus(nil)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	obj, err := h.Storage.ImportProductImage(c.Request.Context(), productID, req.URL)
	if err != nil {
		log.Printf("WARNING: failed to import image %s for product %s: %v", req.URL, productID, err)
		status, msg := storageErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	var existing int64
	h.DB.Model(&models.ProductImage{}).Where("product_id = ?", productID).Count(&existing)

	img := models.ProductImage{
		ProductID:  productID,
		ImageURL:   obj.URL,
		ObjectPath: obj.ObjectPath,
		IsPrimary:  existing == 0,
	}
	if err := h.DB.Create(&img).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo guardar la imagen"})
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *ProductHandler) SetPrimaryImage(c *gin.Context) {
	img, ok := h.findImage(c)
	if !ok {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProductImage{}).Where("product_id = ?", img.ProductID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.ProductImage{}).Where("id = ?", img.ID).Update("is_primary", true).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar la imagen principal"})
		return
	}

	img.IsPrimary = true
	c.JSON(http.StatusOK, img)
}

// DeleteProductImage removes the image; when it was primary the oldest remaining image
// takes over.
func (h *ProductHandler) DeleteProductImage(c *gin.Context) {
	img, ok := h.findImage(c)
	if !ok {
		return
	}

	h.deleteStoredImage(c, img)
	if err := h.DB.Delete(&img).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar la imagen"})
		return
	}

	if img.IsPrimary {
		var next models.ProductImage
		if err := h.DB.Where("product_id = ?", img.ProductID).Order("created_at ASC").First(&next).Error; err == nil {
			h.DB.Model(&next).Update("is_primary", true)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Imagen eliminada"})
}

func (h *ProductHandler) findImage(c *gin.Context) (models.ProductImage, bool) {
	var img models.ProductImage
	productID, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return img, false
	}
	imageID, err := uuid.Parse(c.Param("image_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de imagen inválido"})
		return img, false
	}

	if err := h.DB.Where("id = ? AND product_id = ?", imageID, productID).First(&img).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Imagen no encontrada"})
		return img, false
	}
	return img, true
}
