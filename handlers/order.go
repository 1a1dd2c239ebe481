package handlers

import (
	"net/http"

	"refripartes-backend/dtos"
	"refripartes-backend/models"
	"refripartes-backend/services"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OrderHandler struct {
	DB       *gorm.DB
	Checkout *services.CheckoutService
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dtos.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	order, err := h.Checkout.PlaceOrder(c.Request.Context(), userID, req.AddressID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrders lists the caller's orders. Admins see every order and may filter by status
// and user.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	p := parsePagination(c)

	query := h.DB.Model(&models.Order{})
	if isAdmin(c) {
		if uid := c.Query("user_id"); uid != "" {
			query = query.Where("user_id = ?", uid)
		}
	} else {
		query = query.Where("user_id = ?", userID)
	}
	if status := c.Query("status"); status != "" {
		if !models.OrderStatus(status).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Estado de pedido desconocido"})
			return
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener los pedidos"})
		return
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("User").
		Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener los pedidos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   p.Page,
		"limit":  p.Limit,
		"pages":  p.Pages(total),
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de pedido inválido")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	query := h.DB.Preload("Items").Preload("User").Where("id = ?", id)
	if !isAdmin(c) {
		query = query.Where("user_id = ?", userID)
	}

	var order models.Order
	if err := query.First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pedido no encontrado"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder lets a customer cancel their own order while it is still PENDING.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de pedido inválido")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pedido no encontrado"})
		return
	}
	if order.Status != models.OrderStatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Solo se pueden cancelar pedidos pendientes"})
		return
	}

	updated, err := h.Checkout.UpdateStatus(c.Request.Context(), order.ID, models.OrderStatusCancelled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de pedido inválido")
	if !ok {
		return
	}

	var req dtos.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	order, err := h.Checkout.UpdateStatus(c.Request.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderTransitions returns the statuses the order may move to next.
func (h *OrderHandler) GetOrderTransitions(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de pedido inválido")
	if !ok {
		return
	}

	var order models.Order
	if err := h.DB.Select("id", "status").Where("id = ?", id).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pedido no encontrado"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"current_status":      order.Status,
		"allowed_transitions": models.AllowedTransitions[order.Status],
	})
}
