package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"refripartes-backend/cache"
	"refripartes-backend/models"
	"refripartes-backend/services"
	"refripartes-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB         *gorm.DB
	Carts      *services.CartStore
	GuestCarts cache.GuestCartStore
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsBlocked bool      `json:"is_blocked"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		IsBlocked: u.IsBlocked,
		CreatedAt: u.CreatedAt,
	}
}

// mergeGuestCart moves a guest cart into the user's cart. The guest cart is cleared when
// every line merged. On a partial merge only the applied lines are removed, together with a
// failing line whose product or variant no longer exists; the rest stay for a later retry.
func (h *AuthHandler) mergeGuestCart(ctx context.Context, userID uuid.UUID, guestID string) bool {
	if guestID == "" || h.GuestCarts == nil || h.Carts == nil {
		return false
	}
	if !cache.ValidGuestID(guestID) {
		log.Printf("WARNING: ignoring malformed guest_id on login for user %s", userID)
		return false
	}

	lines, err := h.GuestCarts.Items(ctx, guestID)
	if err != nil {
		log.Printf("WARNING: failed to read guest cart %s: %v", guestID, err)
		return false
	}
	if len(lines) == 0 {
		return false
	}

	if _, err := h.Carts.Merge(ctx, userID, lines); err != nil {
		log.Printf("WARNING: guest cart %s only partly merged into user %s: %v", guestID, userID, err)
		var mergeErr *services.MergeError
		if errors.As(err, &mergeErr) {
			settled := mergeErr.Applied
			if errors.Is(err, services.ErrProductNotFound) || errors.Is(err, services.ErrVariantNotFound) {
				settled++
			}
			h.removeGuestLines(ctx, guestID, lines[:settled])
		}
		return false
	}

	if err := h.GuestCarts.Clear(ctx, guestID); err != nil {
		log.Printf("WARNING: failed to clear guest cart %s after merge: %v", guestID, err)
	}
	log.Printf("Merged %d guest cart lines into cart of user %s", len(lines), userID)
	return true
}

func (h *AuthHandler) removeGuestLines(ctx context.Context, guestID string, lines []services.CartLine) {
	for _, line := range lines {
		err := h.GuestCarts.Remove(ctx, guestID, line.ProductID, line.Variant)
		if err != nil && !errors.Is(err, services.ErrItemNotFound) {
			log.Printf("WARNING: failed to remove merged line %s from guest cart %s: %v", line.ProductID, guestID, err)
		}
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Name     string `json:"name" binding:"required"`
		Phone    string `json:"phone"`
		GuestID  string `json:"guest_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "El correo electrónico ya está registrado"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo procesar la contraseña"})
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: string(hashedPassword),
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     models.RoleCustomer,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear el usuario"})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo generar el token"})
		return
	}

	merged := h.mergeGuestCart(c.Request.Context(), user.ID, req.GuestID)
	utils.SendWelcomeEmail(user.Email, user.Name)

	c.JSON(http.StatusCreated, gin.H{
		"token":       token,
		"user":        newUserResponse(user),
		"cart_merged": merged,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		GuestID  string `json:"guest_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales inválidas"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales inválidas"})
		return
	}

	if user.IsBlocked {
		c.JSON(http.StatusForbidden, gin.H{"error": "Tu cuenta ha sido bloqueada. Contacta con soporte."})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo generar el token"})
		return
	}

	merged := h.mergeGuestCart(c.Request.Context(), user.ID, req.GuestID)

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"user":        newUserResponse(user),
		"cart_merged": merged,
	})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name no puede estar vacío"})
			return
		}
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}

	var user models.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar el perfil"})
			return
		}
		h.DB.Where("id = ?", userID).First(&user)
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var user models.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La contraseña actual no es correcta"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo procesar la contraseña"})
		return
	}

	if err := h.DB.Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo cambiar la contraseña"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contraseña actualizada"})
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	p := parsePagination(c)
	query := h.DB.Model(&models.User{})

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if blocked := c.Query("blocked"); blocked != "" {
		query = query.Where("is_blocked = ?", blocked == "true")
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener los usuarios"})
		return
	}

	var users []models.User
	if err := query.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron obtener los usuarios"})
		return
	}

	result := make([]userResponse, 0, len(users))
	for _, u := range users {
		result = append(result, newUserResponse(u))
	}

	c.JSON(http.StatusOK, gin.H{
		"users": result,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
		"pages": p.Pages(total),
	})
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de usuario inválido")
	if !ok {
		return
	}

	var user models.User
	if err := h.DB.Where("id = ?", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	var orderCount int64
	h.DB.Model(&models.Order{}).Where("user_id = ?", id).Count(&orderCount)

	c.JSON(http.StatusOK, gin.H{
		"user":        newUserResponse(user),
		"order_count": orderCount,
	})
}

// UpdateUser lets an admin change a user's role or block state. Admins cannot change their
// own role or block themselves.
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	id, ok := uuidParam(c, "id", "ID de usuario inválido")
	if !ok {
		return
	}
	currentID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Role      *string `json:"role"`
		IsBlocked *bool   `json:"is_blocked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var user models.User
	if err := h.DB.Where("id = ?", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Usuario no encontrado"})
		return
	}

	updates := map[string]interface{}{}
	if req.Role != nil {
		if *req.Role != models.RoleCustomer && *req.Role != models.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Rol inválido"})
			return
		}
		if id == currentID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No puedes cambiar tu propio rol"})
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsBlocked != nil {
		if id == currentID && *req.IsBlocked {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No puedes bloquear tu propia cuenta"})
			return
		}
		updates["is_blocked"] = *req.IsBlocked
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar el usuario"})
			return
		}
		log.Printf("Admin %s updated user %s: %v", currentID, id, updates)
	}

	h.DB.Where("id = ?", id).First(&user)
	c.JSON(http.StatusOK, newUserResponse(user))
}
