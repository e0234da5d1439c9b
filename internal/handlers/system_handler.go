package handlers

import (
	"net/http"
	"time"

	"go-sales-crm/internal/config"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SystemHandler reports what this instance is connected to.
type SystemHandler struct {
	db      *gorm.DB
	cfg     config.Config
	started time.Time
}

func NewSystemHandler(db *gorm.DB, cfg config.Config) *SystemHandler {
	return &SystemHandler{db: db, cfg: cfg, started: time.Now()}
}

// --- GET: /api/system/status ---
func (h *SystemHandler) Status(c *gin.Context) {
	dbStatus := "online"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "unavailable"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "unavailable"
	}

	code := http.StatusOK
	if dbStatus != "online" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"database":       dbStatus,
		"driver":         h.cfg.DBDriver,
		"quoteNumbering": h.cfg.QuoteNumberStrategy,
		"mailEnabled":    h.cfg.MailEnabled(),
		"assistant":      h.cfg.GeminiAPIKey != "",
		"registration":   h.cfg.AllowRegistration,
		"uptimeSeconds":  int(time.Since(h.started).Seconds()),
	})
}
