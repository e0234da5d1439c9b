package handlers

import (
	"errors"
	"net/http"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LookupHandler maintains the reference data quotes and inventory point at.
type LookupHandler struct {
	db *gorm.DB
}

func NewLookupHandler(db *gorm.DB) *LookupHandler {
	return &LookupHandler{db: db}
}

// --- GET: /api/products ---
func (h *LookupHandler) Products(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Order("code")
	if c.Query("all") != "true" {
		q = q.Where("is_active = ?", true)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		respondError(c, apperr.Internal("Failed to fetch products", err))
		return
	}
	c.JSON(http.StatusOK, products)
}

type productRequest struct {
	Code        string   `json:"productCode" binding:"required,max=50"`
	Name        string   `json:"productName" binding:"required,max=200"`
	Description string   `json:"description"`
	UnitPrice   *float64 `json:"unitPrice" binding:"required,gte=0"`
	IsActive    *bool    `json:"isActive"`
}

// --- POST: /api/products ---
func (h *LookupHandler) AddProduct(c *gin.Context) {
	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	product := models.Product{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		UnitPrice:   *req.UnitPrice,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	h.create(c, &product)
}

// --- PUT: /api/products/:id ---
// Only the fields that were sent are changed.
func (h *LookupHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name        *string  `json:"productName" binding:"omitempty,max=200"`
		Description *string  `json:"description"`
		UnitPrice   *float64 `json:"unitPrice" binding:"omitempty,gte=0"`
		IsActive    *bool    `json:"isActive"`
	}
	if !bindJSON(c, &req) {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.UnitPrice != nil {
		updates["unit_price"] = *req.UnitPrice
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	db := h.db.WithContext(c.Request.Context())
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.NotFound("Product with ID %d not found", id))
			return
		}
		respondError(c, err)
		return
	}
	if len(updates) > 0 {
		if err := db.Model(&product).Updates(updates).Error; err != nil {
			respondError(c, apperr.Internal("Failed to update product", err))
			return
		}
		if err := db.First(&product, id).Error; err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, product)
}

// --- DELETE: /api/products/:id ---
// Products stay referenced by quote lines and stock rows, so they are only deactivated.
func (h *LookupHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		respondError(c, apperr.Internal("Failed to deactivate product", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		respondError(c, apperr.NotFound("Product with ID %d not found", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deactivated"})
}

// --- GET: /api/warehouses ---
func (h *LookupHandler) Warehouses(c *gin.Context) {
	var warehouses []models.Warehouse
	if err := h.db.WithContext(c.Request.Context()).Order("code").Find(&warehouses).Error; err != nil {
		respondError(c, apperr.Internal("Failed to fetch warehouses", err))
		return
	}
	c.JSON(http.StatusOK, warehouses)
}

// --- POST: /api/warehouses ---
func (h *LookupHandler) AddWarehouse(c *gin.Context) {
	var req struct {
		Code string `json:"warehouseCode" binding:"required,max=50"`
		Name string `json:"warehouseName" binding:"required,max=200"`
	}
	if !bindJSON(c, &req) {
		return
	}
	h.create(c, &models.Warehouse{Code: req.Code, Name: req.Name, IsActive: true})
}

// --- GET: /api/customers ---
func (h *LookupHandler) Customers(c *gin.Context) {
	var customers []models.Customer
	if err := h.db.WithContext(c.Request.Context()).Order("name").Find(&customers).Error; err != nil {
		respondError(c, apperr.Internal("Failed to fetch customers", err))
		return
	}
	c.JSON(http.StatusOK, customers)
}

// --- POST: /api/customers ---
func (h *LookupHandler) AddCustomer(c *gin.Context) {
	var req struct {
		Code  string `json:"customerCode" binding:"required,max=50"`
		Name  string `json:"customerName" binding:"required,max=200"`
		Email string `json:"customerEmail" binding:"omitempty,email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	h.create(c, &models.Customer{Code: req.Code, Name: req.Name, Email: req.Email})
}

func (h *LookupHandler) create(c *gin.Context, record interface{}) {
	if err := h.db.WithContext(c.Request.Context()).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Code already exists"})
			return
		}
		respondError(c, apperr.Internal("Failed to save record", err))
		return
	}
	c.JSON(http.StatusCreated, record)
}
