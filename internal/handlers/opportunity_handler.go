package handlers

import (
	"errors"
	"net/http"
	"time"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/models"
	"go-sales-crm/internal/quotes"
	"go-sales-crm/internal/transform"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OpportunityHandler serves the sales tracker views built from stored e-mail threads.
type OpportunityHandler struct {
	db     *gorm.DB
	quotes *quotes.Service
	now    func() time.Time
}

func NewOpportunityHandler(db *gorm.DB, svc *quotes.Service) *OpportunityHandler {
	return &OpportunityHandler{db: db, quotes: svc, now: time.Now}
}

func orderedMessages(tx *gorm.DB) *gorm.DB {
	return tx.Order("sent_at").Order("id")
}

// --- GET: /api/opportunities ---
func (h *OpportunityHandler) List(c *gin.Context) {
	var threads []models.EmailThread
	err := h.db.WithContext(c.Request.Context()).
		Preload("Quote.LineItems", func(tx *gorm.DB) *gorm.DB { return tx.Order("line_number") }).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&threads).Error
	if err != nil {
		respondError(c, apperr.Internal("Failed to fetch opportunities", err))
		return
	}

	now := h.now()
	out := make([]transform.Opportunity, 0, len(threads))
	for _, t := range threads {
		out = append(out, transform.ThreadToOpportunity(t, t.Quote, now))
	}
	c.JSON(http.StatusOK, out)
}

// --- GET: /api/opportunities/:id?view=summary|conversation|quote ---
func (h *OpportunityHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := transform.ParseViewMode(c.Query("view"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var thread models.EmailThread
	if err := h.db.WithContext(ctx).Preload("Messages", orderedMessages).First(&thread, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.NotFound("Opportunity with ID %d not found", id))
			return
		}
		respondError(c, err)
		return
	}

	var quote *models.Quote
	if thread.QuoteID != nil {
		quote, err = h.quotes.Get(ctx, *thread.QuoteID)
		if err != nil && !apperr.IsNotFound(err) {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, transform.ThreadDetail(thread, quote, view, h.now()))
}

// --- GET: /api/clients ---
// Threads without a customer name or e-mail are skipped.
func (h *OpportunityHandler) Clients(c *gin.Context) {
	var threads []models.EmailThread
	err := h.db.WithContext(c.Request.Context()).
		Preload("Messages", orderedMessages).
		Order("id").
		Find(&threads).Error
	if err != nil {
		respondError(c, apperr.Internal("Failed to fetch clients", err))
		return
	}

	now := h.now()
	clients := make([]transform.Client, 0, len(threads))
	for _, t := range threads {
		if client, ok := transform.ThreadToClient(t, now); ok {
			clients = append(clients, *client)
		}
	}
	c.JSON(http.StatusOK, clients)
}
