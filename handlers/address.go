package handlers

import (
	"net/http"

	"refripartes-backend/models"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AddressHandler struct {
	DB *gorm.DB
}

type addressRequest struct {
	Recipient  string `json:"recipient" binding:"required,max=120"`
	Street     string `json:"street" binding:"required,max=255"`
	City       string `json:"city" binding:"required,max=120"`
	Province   string `json:"province" binding:"max=120"`
	PostalCode string `json:"postal_code" binding:"omitempty,numeric,len=5"`
	Phone      string `json:"phone" binding:"max=30"`
	IsDefault  bool   `json:"is_default"`
}

func (r addressRequest) apply(a *models.Address) {
	a.Recipient = r.Recipient
	a.Street = r.Street
	a.City = r.City
	a.Province = r.Province
	a.PostalCode = r.PostalCode
	a.Phone = r.Phone
	a.IsDefault = r.IsDefault
}

func (h *AddressHandler) GetAddresses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var addresses []models.Address
	if err := h.DB.Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").Find(&addresses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener las direcciones"})
		return
	}
	c.JSON(http.StatusOK, addresses)
}

// CreateAddress stores a new address. The first address of a user is always the default.
func (h *AddressHandler) CreateAddress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	address := models.Address{UserID: userID}
	req.apply(&address)

	var count int64
	h.DB.Model(&models.Address{}).Where("user_id = ?", userID).Count(&count)
	if count == 0 {
		address.IsDefault = true
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := clearDefaultAddress(tx, userID, uuid.Nil); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear la dirección"})
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *AddressHandler) UpdateAddress(c *gin.Context) {
	address, ok := h.findOwnAddress(c)
	if !ok {
		return
	}

	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	wasDefault := address.IsDefault
	req.apply(&address)
	if wasDefault {
		address.IsDefault = true
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if address.IsDefault && !wasDefault {
			if err := clearDefaultAddress(tx, address.UserID, address.ID); err != nil {
				return err
			}
		}
		return tx.Save(&address).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar la dirección"})
		return
	}
	c.JSON(http.StatusOK, address)
}

// DeleteAddress removes the address; when it was the default the newest remaining one
// takes over. Orders keep their own copy of the address.
func (h *AddressHandler) DeleteAddress(c *gin.Context) {
	address, ok := h.findOwnAddress(c)
	if !ok {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&address).Error; err != nil {
			return err
		}
		if !address.IsDefault {
			return nil
		}
		var next models.Address
		if err := tx.Where("user_id = ?", address.UserID).Order("created_at DESC").First(&next).Error; err != nil {
			return nil
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar la dirección"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dirección eliminada"})
}

func (h *AddressHandler) findOwnAddress(c *gin.Context) (models.Address, bool) {
	var address models.Address
	userID, ok := currentUserID(c)
	if !ok {
		return address, false
	}
	id, ok := uuidParam(c, "id", "ID de dirección inválido")
	if !ok {
		return address, false
	}

	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&address).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dirección no encontrada"})
		return address, false
	}
	return address, true
}

func clearDefaultAddress(tx *gorm.DB, userID, except uuid.UUID) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND id <> ? AND is_default = ?", userID, except, true).
		Update("is_default", false).Error
}
