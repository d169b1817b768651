// internal/api/handlers/user_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"mfg-backoffice-api-server/internal/auth"
	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	Store         ledger.Store
	JWTExpiration time.Duration
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login xác thực email/password và trả về JWT.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var users []models.User
	if err := h.Store.Query(c.Request.Context(), "users", map[string]interface{}{"email": req.Email}, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query users"})
		return
	}
	if len(users) == 0 || !auth.CheckPasswordHash(req.Password, users[0].Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	user := users[0]
	if user.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not active"})
		return
	}

	token, err := auth.GenerateJWT(user.UserID, user.Email, user.Name, user.Role, user.ShopID, h.JWTExpiration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"userID": user.UserID,
			"email":  user.Email,
			"name":   user.Name,
			"role":   user.Role,
			"shopID": user.ShopID,
		},
	})
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"` // md | ho | fg_store | shop_owner
	ShopID   string `json:"shopID"`
}

// CreateUser tạo một tài khoản mới, chỉ dành cho superadmin.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Role {
	case models.RoleMD, models.RoleHO, models.RoleFGStore, models.RoleShopOwner:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown role %q", req.Role)})
		return
	}

	var existing []models.User
	if err := h.Store.Query(c.Request.Context(), "users", map[string]interface{}{"email": req.Email}, &existing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query users"})
		return
	}
	if len(existing) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		UserID:   fmt.Sprintf("%s-%s", req.Role, strings.ToUpper(uuid.New().String()[:8])),
		Email:    req.Email,
		Name:     req.Name,
		Password: hashedPassword,
		Role:     req.Role,
		Status:   "active",
		ShopID:   req.ShopID,
	}
	if err := h.Store.Set(c.Request.Context(), "users/"+user.UserID, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"userID": user.UserID,
		"email":  user.Email,
		"role":   user.Role,
	})
}
