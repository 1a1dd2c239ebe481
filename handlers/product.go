package handlers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"refripartes-backend/dtos"
	"refripartes-backend/firebase"
	"refripartes-backend/models"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductHandler struct {
	DB      *gorm.DB
	Storage firebase.StorageClient
}

var productSorts = map[string]string{
	"newest":     "created_at DESC",
	"price_asc":  "price ASC",
	"price_desc": "price DESC",
	"name":       "name ASC",
	"stock":      "stock ASC",
}

// GetProducts lists the catalog with optional category, brand, price and search filters.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	p := parsePagination(c)
	query := h.DB.Model(&models.Product{})

	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if slug := c.Query("category"); slug != "" {
		query = query.Where("category_id IN (SELECT id FROM categories WHERE slug = ? AND deleted_at IS NULL)", slug)
	}
	if brand := c.Query("brand"); brand != "" {
		query = query.Where("LOWER(brand) = LOWER(?)", brand)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?) OR LOWER(brand) LIKE LOWER(?)", like, like, like)
	}
	if minPrice := c.Query("min_price"); minPrice != "" {
		price, err := decimal.NewFromString(minPrice)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_price inválido"})
			return
		}
		query = query.Where("price >= ?", price)
	}
	if maxPrice := c.Query("max_price"); maxPrice != "" {
		price, err := decimal.NewFromString(maxPrice)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_price inválido"})
			return
		}
		query = query.Where("price <= ?", price)
	}
	if c.Query("in_stock") == "true" {
		query = query.Where("stock > 0")
	}
	if c.Query("low_stock") == "true" {
		query = query.Where("stock <= ?", models.LowStockThreshold)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener los productos"})
		return
	}

	order, ok := productSorts[c.DefaultQuery("sort", "newest")]
	if !ok {
		order = productSorts["newest"]
	}

	var products []models.Product
	if err := query.Preload("Category").Preload("Images").
		Order(order).Offset(p.Offset()).Limit(p.Limit).
		Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener los productos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
		"pages":    p.Pages(total),
	})
}

// GetProduct resolves a product by id or slug.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	key := c.Param("id")
	query := h.DB.Preload("Category").Preload("Images").Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	})
	if id, err := uuid.Parse(key); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("slug = ?", key)
	}

	var product models.Product
	if err := query.First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}

	rating, err := ratingSummary(h.DB, product.ID)
	if err != nil {
		log.Printf("WARNING: failed to load rating summary for product %s: %v", product.ID, err)
	}

	c.JSON(http.StatusOK, dtos.ProductDetail{Product: product, Rating: rating})
}

func ratingSummary(db *gorm.DB, productID uuid.UUID) (dtos.RatingSummary, error) {
	var row struct {
		Average float64
		Count   int64
	}
	err := db.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&row).Error
	return dtos.RatingSummary{Average: row.Average, Count: row.Count}, err
}

// parseProductForm reads the product fields of a multipart form into product. With partial
// set, absent fields keep their current value.
func parseProductForm(c *gin.Context, db *gorm.DB, product *models.Product, partial bool) (string, bool) {
	if name, ok := c.GetPostForm("name"); ok || !partial {
		name = strings.TrimSpace(name)
		if name == "" {
			return "El nombre es obligatorio", false
		}
		product.Name = name
	}
	if description, ok := c.GetPostForm("description"); ok {
		product.Description = description
	}
	if brand, ok := c.GetPostForm("brand"); ok {
		product.Brand = strings.TrimSpace(brand)
	}

	if raw, ok := c.GetPostForm("price"); ok || !partial {
		price, err := decimal.NewFromString(raw)
		if err != nil || !price.IsPositive() {
			return "El precio debe ser un número positivo", false
		}
		product.Price = price.Round(2)
	}

	if raw, ok := c.GetPostForm("stock"); ok {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return "El stock debe ser un entero no negativo", false
		}
		product.Stock = stock
	}

	if raw, ok := c.GetPostForm("category_id"); ok || !partial {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			return "ID de categoría inválido", false
		}
		if err := db.First(&models.Category{}, "id = ?", categoryID).Error; err != nil {
			return "La categoría no existe", false
		}
		product.CategoryID = categoryID
	}

	return "", true
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var product models.Product
	if msg, ok := parseProductForm(c, h.DB, &product, false); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	product.ID = uuid.New()

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["images"]
	}
	for _, fh := range files {
		if err := utils.ValidateFileUpload(fh); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear el producto"})
		return
	}

	if len(files) > 0 {
		if _, err := h.storeUploads(c, product.ID, files, true); err != nil {
			log.Printf("WARNING: product %s created without all images: %v", product.ID, err)
		}
	}

	h.DB.Preload("Category").Preload("Images").Preload("Variants").First(&product, "id = ?", product.ID)
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}

	var product models.Product
	if err := h.DB.Where("id = ?", id).First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}

	nameBefore := product.Name
	if msg, ok := parseProductForm(c, h.DB, &product, true); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if product.Name != nameBefore {
		product.Slug = models.Slugify(product.Name) + "-" + product.ID.String()[:8]
	}

	if err := h.DB.Omit("Category", "Images", "Variants").Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar el producto"})
		return
	}

	h.DB.Preload("Category").Preload("Images").Preload("Variants").First(&product, "id = ?", product.ID)
	c.JSON(http.StatusOK, product)
}

// DeleteProduct soft-deletes the product, drops its images from storage and removes it from
// carts and wishlists. Order items keep their snapshot.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}

	var product models.Product
	if err := h.DB.Preload("Images").First(&product, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Producto no encontrado"})
		return
	}

	for _, img := range product.Images {
		h.deleteStoredImage(c, img)
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.WishlistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductVariant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
	if err != nil {
		log.Printf("ERROR: failed to delete product %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar el producto"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Producto eliminado"})
}

// storeUploads uploads files and records them as images of productID. The first upload
// becomes primary when makePrimary is set.
func (h *ProductHandler) storeUploads(c *gin.Context, productID uuid.UUID, files []*multipart.FileHeader, makePrimary bool) ([]models.ProductImage, error) {
	if h.Storage == nil {
		return nil, firebase.ErrNotConfigured
	}

	images := make([]models.ProductImage, 0, len(files))
	for i, fh := range files {
		file, err := fh.Open()
		if err != nil {
			return images, err
		}
		obj, err := h.Storage.UploadProductImage(c.Request.Context(), productID, file, fh.Filename, fh.Header.Get("Content-Type"))
		file.Close()
		if err != nil {
			return images, err
		}

		img := models.ProductImage{
			ProductID:  productID,
			ImageURL:   obj.URL,
			ObjectPath: obj.ObjectPath,
			IsPrimary:  makePrimary && i == 0,
		}
		if err := h.DB.Create(&img).Error; err != nil {
			return images, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (h *ProductHandler) deleteStoredImage(c *gin.Context, img models.ProductImage) {
	if h.Storage == nil {
		return
	}
	objectPath := img.ObjectPath
	if objectPath == "" {
		var err error
		if objectPath, err = firebase.ObjectPathFromURL(img.ImageURL); err != nil {
			log.Printf("WARNING: image %s has no object path: %v", img.ID, err)
			return
		}
	}
	if err := h.Storage.DeleteObject(c.Request.Context(), objectPath); err != nil {
		log.Printf("WARNING: failed to delete image %s from storage: %v", objectPath, err)
	}
}

func storageErrorStatus(err error) (int, string) {
	if errors.Is(err, firebase.ErrNotConfigured) {
		return http.StatusServiceUnavailable, "El almacenamiento de imágenes no está configurado"
	}
	return http.StatusInternalServerError, "No se pudo subir la imagen"
}
