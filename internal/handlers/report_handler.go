package handlers

import (
	"net/http"
	"time"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/database"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const reportDateLayout = "2006-01-02"

type ReportHandler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{db: db, now: time.Now}
}

// --- GET: /api/reports/quotes?start=YYYY-MM-DD&end=YYYY-MM-DD ---
// Defaults to the last 30 days. end is inclusive.
func (h *ReportHandler) Quotes(c *gin.Context) {
	today := h.now().UTC().Truncate(24 * time.Hour)
	start, end := today.AddDate(0, 0, -30), today

	if s := c.Query("start"); s != "" {
		t, err := time.Parse(reportDateLayout, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
			return
		}
		start = t
	}
	if e := c.Query("end"); e != "" {
		t, err := time.Parse(reportDateLayout, e)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
			return
		}
		end = t
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not be before start"})
		return
	}

	report, err := database.GetQuoteReport(h.db.WithContext(c.Request.Context()), start, end.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		respondError(c, apperr.Internal("Failed to build quote report", err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- GET: /api/reports/inventory ---
// Stock valuation grouped by warehouse.
func (h *ReportHandler) Inventory(c *gin.Context) {
	report, err := database.GetInventoryValuation(h.db.WithContext(c.Request.Context()))
	if err != nil {
		respondError(c, apperr.Internal("Failed to build inventory valuation", err))
		return
	}
	c.JSON(http.StatusOK, report)
}
