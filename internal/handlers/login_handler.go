package handlers

import (
	"errors"
	"net/http"

	"go-sales-crm/internal/auth"
	"go-sales-crm/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,min=8"`
}

type AuthHandler struct {
	db     *gorm.DB
	tokens *auth.Tokens
}

func NewAuthHandler(db *gorm.DB, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	// 1. Validate Input JSON
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// 2. Find User in DB
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("username = ?", input.Username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// 3. Verify Password (Bcrypt)
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// 4. Generate JWT Token
	token, err := h.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"role":     user.Role,
		"username": user.Username,
	})
}

// Register creates a sales user. Mounted only when ALLOW_REGISTRATION is on.
func (h *AuthHandler) Register(c *gin.Context) {
	var input RegisterRequest

	// 1. Parse JSON
	if !bindJSON(c, &input) {
		return
	}

	// 2. Hash the Password
	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. Save
	user := models.User{
		Username:     input.Username,
		PasswordHash: hashedPassword,
		Role:         models.RoleSales,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully!", "id": user.ID, "role": user.Role})
}
