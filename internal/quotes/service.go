// Package quotes creates, reads, updates and deletes quotes with their line items.
package quotes

import (
	"context"
	"errors"
	"time"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/models"
	"go-sales-crm/internal/pricing"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	createAttempts  = 3
	defaultCurrency = "USD"
)

// LineItemInput is one line as sent by the caller. ProductID may be nil for free-text lines.
type LineItemInput struct {
	ProductID       *uint   `json:"productId"`
	ProductCode     string  `json:"productCode"`
	ProductName     string  `json:"productName"`
	Description     *string `json:"description"`
	Quantity        int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice       float64 `json:"unitPrice" binding:"gte=0"`
	DiscountPercent float64 `json:"discountPercent" binding:"gte=0,lte=100"`
	Notes           *string `json:"notes"`
}

// Amounts are the optional quote-level adjustments.
type Amounts struct {
	TaxRate        float64 `json:"taxRate" binding:"gte=0,lte=100"`
	DiscountAmount float64 `json:"discountAmount" binding:"gte=0"`
	ShippingAmount float64 `json:"shippingAmount" binding:"gte=0"`
}

type CreateInput struct {
	CustomerID    uint            `json:"customerId" binding:"required"`
	ContactID     *uint           `json:"contactId"`
	OpportunityID *uint           `json:"opportunityId"`
	OwnerID       uint            `json:"ownerId"`
	QuoteName     string          `json:"quoteName"`
	ValidUntil    time.Time       `json:"validUntil" binding:"required"`
	LineItems     []LineItemInput `json:"lineItems" binding:"required,min=1,dive"`
	Notes         *string         `json:"notes"`
	Amounts
}

type UpdateInput struct {
	ValidUntil time.Time       `json:"validUntil" binding:"required"`
	LineItems  []LineItemInput `json:"lineItems" binding:"required,min=1,dive"`
	Notes      *string         `json:"notes"`
	Amounts
}

// ListFilter selects quote headers. Nil filters are ignored.
type ListFilter struct {
	CustomerID *uint
	StatusID   *uint
	Page       int
	PageSize   int
}

// Service is the quote lifecycle manager.
type Service struct {
	db      *gorm.DB
	numbers NumberGenerator
	now     func() time.Time
}

func NewService(db *gorm.DB, numbers NumberGenerator) *Service {
	if numbers == nil {
		numbers = SequenceNumbers{}
	}
	return &Service{db: db, numbers: numbers, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates and prices the lines, then writes header and lines in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Quote, error) {
	items, totals, err := priceLines(in.LineItems, in.Amounts)
	if err != nil {
		return nil, err
	}

	var id uint
	for attempt := 1; attempt <= createAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// 1. Customer must exist
			var customer models.Customer
			if err := tx.Select("id").First(&customer, in.CustomerID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Customer with ID %d not found", in.CustomerID)
				}
				return err
			}

			// 2. New quotes start as drafts
			var draft models.QuoteStatus
			if err := tx.Where("code = ?", models.StatusDraft).First(&draft).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.Internal("Default quote status not found", err)
				}
				return err
			}

			now := s.now().UTC()
			number, err := s.numbers.Next(tx, now)
			if err != nil {
				return err
			}

			// 3. Header + lines (GORM inserts the lines with the header)
			quote := models.Quote{
				QuoteNumber:    number,
				QuoteName:      in.QuoteName,
				RevisionNumber: 1,
				CustomerID:     in.CustomerID,
				ContactID:      in.ContactID,
				OpportunityID:  in.OpportunityID,
				StatusID:       draft.ID,
				OwnerID:        in.OwnerID,
				QuoteDate:      truncateDay(now),
				ValidUntil:     in.ValidUntil,
				CurrencyCode:   defaultCurrency,
				Notes:          in.Notes,
				CreatedAt:      now,
				UpdatedAt:      now,
				LineItems:      cloneLines(items),
			}
			applyTotals(&quote, totals, in.Amounts)

			if err := tx.Create(&quote).Error; err != nil {
				return err
			}
			id = quote.ID
			return nil
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return nil, wrap(err, "An error occurred while creating the quote")
	}
	return s.Get(ctx, id)
}

// Get loads one quote with its lines, customer name and status name.
func (s *Service) Get(ctx context.Context, id uint) (*models.Quote, error) {
	quote, err := load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, wrap(err, "An error occurred while retrieving the quote")
	}
	return quote, nil
}

// List returns quote headers (no lines), newest quote date first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Quote, error) {
	page, size := paging(f.Page, f.PageSize)

	q := s.db.WithContext(ctx).Model(&models.Quote{})
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.StatusID != nil {
		q = q.Where("status_id = ?", *f.StatusID)
	}

	quotes := []models.Quote{}
	if err := q.Order("quote_date DESC").Order("id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&quotes).Error; err != nil {
		return nil, apperr.Internal("An error occurred while retrieving quotes", err)
	}
	if err := resolveNames(s.db.WithContext(ctx), quotes); err != nil {
		return nil, apperr.Internal("An error occurred while retrieving quotes", err)
	}
	return quotes, nil
}

// Update replaces validity, notes, adjustments and the whole line set.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Quote, error) {
	items, totals, err := priceLines(in.LineItems, in.Amounts)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote models.Quote
		if err := tx.First(&quote, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(id)
			}
			return err
		}

		quote.ValidUntil = in.ValidUntil
		quote.Notes = in.Notes
		quote.UpdatedAt = s.now().UTC()
		applyTotals(&quote, totals, in.Amounts)
		if err := tx.Omit("LineItems").Save(&quote).Error; err != nil {
			return err
		}

		// Delete-all, insert-all: line ids do not survive an edit.
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteLineItem{}).Error; err != nil {
			return err
		}
		lines := cloneLines(items)
		for i := range lines {
			lines[i].QuoteID = id
		}
		return tx.Create(&lines).Error
	})
	if err != nil {
		return nil, wrap(err, "An error occurred while updating the quote")
	}
	return s.Get(ctx, id)
}

// Delete removes the lines and then the header.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote models.Quote
		if err := tx.Select("id").First(&quote, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(id)
			}
			return err
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteLineItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quote{}, id).Error
	})
	return wrap(err, "An error occurred while deleting the quote")
}

// SetStatus moves a quote to the status with the given code. No transition rules apply.
func (s *Service) SetStatus(ctx context.Context, id uint, code string) (*models.Quote, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var status models.QuoteStatus
		if err := tx.Where("code = ?", code).First(&status).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("Unknown quote status %q", code)
			}
			return err
		}
		res := tx.Model(&models.Quote{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status_id":  status.ID,
			"updated_at": s.now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(id)
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "An error occurred while updating the quote status")
	}
	return s.Get(ctx, id)
}

// CustomerEmail returns the e-mail on file for the quote's customer, "" if none.
func (s *Service) CustomerEmail(ctx context.Context, customerID uint) (string, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).Select("email").Where("id = ?", customerID).Limit(1).Find(&customer).Error
	if err != nil {
		return "", apperr.Internal("An error occurred while retrieving the customer", err)
	}
	return customer.Email, nil
}

func load(db *gorm.DB, id uint) (*models.Quote, error) {
	var quote models.Quote
	err := db.Preload("LineItems", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("line_number")
	}).First(&quote, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, err
	}
	quotes := []models.Quote{quote}
	if err := resolveNames(db, quotes); err != nil {
		return nil, err
	}
	return &quotes[0], nil
}

// resolveNames fills CustomerName and StatusName; missing lookups stay "".
func resolveNames(db *gorm.DB, quotes []models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	customerIDs := make([]uint, 0, len(quotes))
	statusIDs := make([]uint, 0, len(quotes))
	for _, q := range quotes {
		customerIDs = append(customerIDs, q.CustomerID)
		statusIDs = append(statusIDs, q.StatusID)
	}

	var customers []models.Customer
	if err := db.Where("id IN ?", customerIDs).Find(&customers).Error; err != nil {
		return err
	}
	var statuses []models.QuoteStatus
	if err := db.Where("id IN ?", statusIDs).Find(&statuses).Error; err != nil {
		return err
	}

	customerNames := make(map[uint]string, len(customers))
	for _, c := range customers {
		customerNames[c.ID] = c.Name
	}
	statusNames := make(map[uint]string, len(statuses))
	for _, st := range statuses {
		statusNames[st.ID] = st.Name
	}
	for i := range quotes {
		quotes[i].CustomerName = customerNames[quotes[i].CustomerID]
		quotes[i].StatusName = statusNames[quotes[i].StatusID]
	}
	return nil
}

// priceLines validates the input and builds numbered line models (1..N, input order).
func priceLines(in []LineItemInput, amounts Amounts) ([]models.QuoteLineItem, pricing.Totals, error) {
	if len(in) == 0 {
		return nil, pricing.Totals{}, apperr.Validation("A quote needs at least one line item")
	}
	lines := make([]pricing.Line, len(in))
	for i, li := range in {
		lines[i] = pricing.Line{Quantity: li.Quantity, UnitPrice: li.UnitPrice, DiscountPercent: li.DiscountPercent}
	}
	totals, err := pricing.Calculate(lines, pricing.Adjustments{
		TaxRate:        amounts.TaxRate,
		DiscountAmount: amounts.DiscountAmount,
		ShippingAmount: amounts.ShippingAmount,
	})
	if err != nil {
		return nil, pricing.Totals{}, err
	}

	items := make([]models.QuoteLineItem, len(in))
	for i, li := range in {
		items[i] = models.QuoteLineItem{
			LineNumber:      i + 1,
			ProductID:       li.ProductID,
			ProductCode:     li.ProductCode,
			ProductName:     li.ProductName,
			Description:     li.Description,
			Quantity:        li.Quantity,
			UnitPrice:       li.UnitPrice,
			DiscountPercent: li.DiscountPercent,
			LineTotal:       totals.LineTotals[i],
			Notes:           li.Notes,
		}
	}
	return items, totals, nil
}

func applyTotals(q *models.Quote, t pricing.Totals, amounts Amounts) {
	q.Subtotal = t.Subtotal
	q.DiscountAmount = t.DiscountAmount
	q.TaxRate = amounts.TaxRate
	q.TaxAmount = t.TaxAmount
	q.ShippingAmount = t.ShippingAmount
	q.TotalAmount = t.Total
}

// cloneLines gives each transaction attempt fresh rows without primary keys.
func cloneLines(items []models.QuoteLineItem) []models.QuoteLineItem {
	out := make([]models.QuoteLineItem, len(items))
	copy(out, items)
	return out
}

func paging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func notFound(id uint) error {
	return apperr.NotFound("Quote with ID %d not found", id)
}

// wrap passes classified errors through and marks everything else internal.
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(msg, err)
}
