package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/documents"
	"go-sales-crm/internal/mailer"
	"go-sales-crm/internal/middleware"
	"go-sales-crm/internal/models"
	"go-sales-crm/internal/quotes"

	"github.com/gin-gonic/gin"
)

type QuoteHandler struct {
	quotes      *quotes.Service
	mail        mailer.Mailer
	baseURL     string
	companyName string
}

func NewQuoteHandler(svc *quotes.Service, mail mailer.Mailer, baseURL, companyName string) *QuoteHandler {
	return &QuoteHandler{quotes: svc, mail: mail, baseURL: strings.TrimRight(baseURL, "/"), companyName: companyName}
}

// --- GET: /api/quotes ---
func (h *QuoteHandler) List(c *gin.Context) {
	customerID, ok := queryID(c, "customerId")
	if !ok {
		return
	}
	statusID, ok := queryID(c, "statusId")
	if !ok {
		return
	}

	list, err := h.quotes.List(c.Request.Context(), quotes.ListFilter{
		CustomerID: customerID,
		StatusID:   statusID,
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "pageSize"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --- GET: /api/quotes/:id ---
func (h *QuoteHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// --- POST: /api/quotes ---
func (h *QuoteHandler) Create(c *gin.Context) {
	var input quotes.CreateInput
	if !bindJSON(c, &input) {
		return
	}
	if input.OwnerID == 0 {
		input.OwnerID = middleware.UserID(c)
	}

	q, err := h.quotes.Create(c.Request.Context(), input)
	if err != nil {
		// unknown customer is a client input error
		if apperr.IsNotFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// --- PUT: /api/quotes/:id ---
func (h *QuoteHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input quotes.UpdateInput
	if !bindJSON(c, &input) {
		return
	}

	q, err := h.quotes.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// --- DELETE: /api/quotes/:id ---
func (h *QuoteHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.quotes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	StatusCode string `json:"statusCode" binding:"required"`
}

// --- PUT: /api/quotes/:id/status ---
func (h *QuoteHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	q, err := h.quotes.SetStatus(c.Request.Context(), id, strings.ToUpper(req.StatusCode))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// --- GET: /api/quotes/:id/pdf ---
func (h *QuoteHandler) PDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, err := h.render(q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, q.QuoteNumber))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

type sendRequest struct {
	To string `json:"to" binding:"omitempty,email"`
}

// --- POST: /api/quotes/:id/send ---
// E-mails the PDF to the customer and marks the quote as sent.
func (h *QuoteHandler) Send(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req sendRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if _, disabled := h.mail.(mailer.Disabled); disabled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Mail delivery is not configured"})
		return
	}

	ctx := c.Request.Context()

	// 1. Load the quote
	q, err := h.quotes.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	// 2. Pick the recipient
	to := req.To
	if to == "" {
		if to, err = h.quotes.CustomerEmail(ctx, q.CustomerID); err != nil {
			respondError(c, err)
			return
		}
	}
	if to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer has no e-mail address; provide one in \"to\""})
		return
	}

	// 3. Render and send
	pdf, err := h.render(q)
	if err != nil {
		respondError(c, err)
		return
	}
	err = h.mail.Send(mailer.Message{
		To:          []string{to},
		Subject:     fmt.Sprintf("Quotation %s from %s", q.QuoteNumber, h.companyName),
		HTMLBody:    quoteMailBody(q, h.companyName),
		Attachments: []mailer.Attachment{{Name: q.QuoteNumber + ".pdf", Content: pdf}},
	})
	if err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Mail delivery is not configured"})
			return
		}
		respondError(c, apperr.Internal("Failed to send the quote", err))
		return
	}

	// 4. Mark as sent
	sent, err := h.quotes.SetStatus(ctx, id, models.StatusSent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quote sent to " + to, "quote": sent})
}

func (h *QuoteHandler) render(q *models.Quote) ([]byte, error) {
	pdf, err := documents.QuotePDF(q, documents.QuoteOptions{
		CompanyName: h.companyName,
		VerifyURL:   fmt.Sprintf("%s/api/quotes/%d", h.baseURL, q.ID),
	})
	if err != nil {
		return nil, apperr.Internal("Failed to render the quote", err)
	}
	return pdf, nil
}

func quoteMailBody(q *models.Quote, company string) string {
	return fmt.Sprintf(`
		<html>
			<body>
				<p>Dear %s,</p>
				<p>Please find attached quotation <strong>%s</strong> for a total of <strong>%s</strong>,
				valid until %s.</p>
				<p>Kind regards,<br>%s</p>
			</body>
		</html>
	`, q.CustomerName, q.QuoteNumber, documents.Money(q.TotalAmount, q.CurrencyCode),
		q.ValidUntil.Format("02 Jan 2006"), company)
}
