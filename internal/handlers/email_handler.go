package handlers

import (
	"net/http"

	"go-sales-crm/internal/threads"

	"github.com/gin-gonic/gin"
)

// EmailHandler feeds customer e-mail into the stored conversations.
type EmailHandler struct {
	threads *threads.Service
}

func NewEmailHandler(svc *threads.Service) *EmailHandler {
	return &EmailHandler{threads: svc}
}

// --- GET: /api/emails?status=&page=&pageSize= ---
func (h *EmailHandler) List(c *gin.Context) {
	list, err := h.threads.List(c.Request.Context(), threads.ListFilter{
		Status:   c.Query("status"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "pageSize"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --- POST: /api/emails ---
// Opens a thread, or appends to the one named by threadId.
func (h *EmailHandler) Ingest(c *gin.Context) {
	var input threads.IngestInput
	if !bindJSON(c, &input) {
		return
	}
	thread, err := h.threads.Ingest(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// --- GET: /api/emails/:id ---
func (h *EmailHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	thread, err := h.threads.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// --- GET: /api/emails/:id/messages ---
func (h *EmailHandler) Messages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.threads.Messages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// --- PUT: /api/emails/:id ---
func (h *EmailHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input threads.UpdateInput
	if !bindJSON(c, &input) {
		return
	}
	thread, err := h.threads.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// --- PUT: /api/emails/:id/quote ---
// {"quoteId": null} detaches the quote.
func (h *EmailHandler) LinkQuote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		QuoteID *uint `json:"quoteId"`
	}
	if !bindJSON(c, &input) {
		return
	}
	thread, err := h.threads.LinkQuote(c.Request.Context(), id, input.QuoteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// --- DELETE: /api/emails/:id ---
func (h *EmailHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.threads.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
