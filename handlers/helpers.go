package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"refripartes-backend/models"
	"refripartes-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// currentUserID reads the id set by AuthMiddleware, answering 401 when it is missing.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	userID, ok := value.(uuid.UUID)
	if !exists || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No autorizado"})
		return uuid.Nil, false
	}
	return userID, true
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get("user_role")
	return role == models.RoleAdmin
}

// uuidParam parses a path parameter, answering 400 with message when it is not a UUID.
func uuidParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return uuid.Nil, false
	}
	return id, true
}

type pagination struct {
	Page  int
	Limit int
}

func parsePagination(c *gin.Context) pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return pagination{Page: page, Limit: limit}
}

func (p pagination) Offset() int { return (p.Page - 1) * p.Limit }

func (p pagination) Pages(total int64) int {
	return int(math.Ceil(float64(total) / float64(p.Limit)))
}

// cartErrorResponse maps cart and checkout errors to a status and Spanish message.
func cartErrorResponse(err error) (int, string) {
	var stockErr *services.StockError
	switch {
	case errors.As(err, &stockErr):
		return http.StatusConflict, "Stock insuficiente para " + stockErr.ProductName +
			" (disponible: " + strconv.Itoa(stockErr.Available) + ")"
	case errors.Is(err, services.ErrInvalidQuantity):
		return http.StatusBadRequest, "La cantidad debe ser un entero positivo"
	case errors.Is(err, services.ErrItemNotFound):
		return http.StatusNotFound, "Producto no encontrado en el carrito"
	case errors.Is(err, services.ErrProductNotFound):
		return http.StatusNotFound, "Producto no encontrado"
	case errors.Is(err, services.ErrVariantNotFound):
		return http.StatusNotFound, "Variante no encontrada para este producto"
	case errors.Is(err, services.ErrEmptyCart):
		return http.StatusBadRequest, "El carrito está vacío"
	case errors.Is(err, services.ErrAddressNotFound):
		return http.StatusNotFound, "Dirección no encontrada"
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound, "Pedido no encontrado"
	case errors.Is(err, services.ErrInvalidStatus):
		return http.StatusBadRequest, "Estado de pedido desconocido"
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusBadRequest, "Transición de estado no permitida"
	default:
		return http.StatusInternalServerError, "Error interno del servidor"
	}
}

func respondError(c *gin.Context, err error) {
	status, message := cartErrorResponse(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": message})
}
