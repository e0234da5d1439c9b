// Package threads stores customer e-mail conversations and their messages,
// the raw material of the opportunity and client views.
package threads

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// IngestInput is one e-mail. Without ThreadID a new thread is opened for it.
type IngestInput struct {
	ThreadID      *uint      `json:"threadId"`
	Subject       string     `json:"subject" binding:"max=300"`
	CustomerName  string     `json:"customerName" binding:"max=200"`
	CustomerEmail string     `json:"customerEmail" binding:"omitempty,email"`
	Direction     string     `json:"direction" binding:"omitempty,oneof=inbound outbound"`
	FromName      string     `json:"fromName" binding:"max=200"`
	FromEmail     string     `json:"fromEmail" binding:"required,email"`
	Body          string     `json:"body" binding:"required"`
	SentAt        *time.Time `json:"sentAt"`
}

type UpdateInput struct {
	Status  *string `json:"status" binding:"omitempty,oneof=open in_progress quote_generated closed"`
	Summary *string `json:"summary"`
}

type ListFilter struct {
	Status   string
	Page     int
	PageSize int
}

var statuses = map[string]bool{
	models.ThreadOpen:           true,
	models.ThreadInProgress:     true,
	models.ThreadQuoteGenerated: true,
	models.ThreadClosed:         true,
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Ingest appends a message to its thread, opening the thread when needed, and
// moves the thread's last-message time forward.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*models.EmailThread, error) {
	direction := in.Direction
	if direction == "" {
		direction = models.DirectionInbound
	}
	if direction != models.DirectionInbound && direction != models.DirectionOutbound {
		return nil, apperr.Validation("Unknown message direction %q", in.Direction)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, apperr.Validation("Message body is required")
	}
	sentAt := s.now().UTC()
	if in.SentAt != nil {
		sentAt = in.SentAt.UTC()
	}

	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread models.EmailThread
		if in.ThreadID != nil {
			// 1a. Continue an existing conversation
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&thread, *in.ThreadID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound(*in.ThreadID)
				}
				return err
			}
		} else {
			// 1b. Open a new one; an inbound sender is the customer unless told otherwise
			subject := strings.TrimSpace(in.Subject)
			if subject == "" {
				return apperr.Validation("Subject is required for a new thread")
			}
			thread = models.EmailThread{
				Subject:       subject,
				CustomerName:  in.CustomerName,
				CustomerEmail: in.CustomerEmail,
				Status:        models.ThreadOpen,
			}
			if direction == models.DirectionInbound {
				thread.CustomerName = orDefault(thread.CustomerName, in.FromName)
				thread.CustomerEmail = orDefault(thread.CustomerEmail, in.FromEmail)
			}
			if err := tx.Create(&thread).Error; err != nil {
				return err
			}
		}

		// 2. Append the message
		msg := models.EmailMessage{
			ThreadID:  thread.ID,
			Direction: direction,
			FromEmail: in.FromEmail,
			FromName:  in.FromName,
			BodyText:  in.Body,
			SentAt:    sentAt,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		// 3. Late-arriving mail does not move the thread backwards
		if thread.LastMessageAt == nil || sentAt.After(*thread.LastMessageAt) {
			if err := tx.Model(&thread).Update("last_message_at", sentAt).Error; err != nil {
				return err
			}
		}
		id = thread.ID
		return nil
	})
	if err != nil {
		return nil, wrap(err, "An error occurred while storing the e-mail")
	}
	return s.Get(ctx, id)
}

// Get loads a thread with its messages in the order they were sent.
func (s *Service) Get(ctx context.Context, id uint) (*models.EmailThread, error) {
	var thread models.EmailThread
	err := s.db.WithContext(ctx).Preload("Messages", orderedMessages).First(&thread, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, apperr.Internal("An error occurred while retrieving the e-mail thread", err)
	}
	return &thread, nil
}

// List returns thread headers, most recent conversation first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.EmailThread, error) {
	if f.Status != "" && !statuses[f.Status] {
		return nil, apperr.Validation("Unknown thread status %q", f.Status)
	}
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	q := s.db.WithContext(ctx)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	out := []models.EmailThread{}
	if err := q.Order("COALESCE(last_message_at, created_at) DESC").Order("id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&out).Error; err != nil {
		return nil, apperr.Internal("An error occurred while retrieving e-mail threads", err)
	}
	return out, nil
}

// Messages returns the messages of one thread, oldest first.
func (s *Service) Messages(ctx context.Context, id uint) ([]models.EmailMessage, error) {
	thread, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if thread.Messages == nil {
		return []models.EmailMessage{}, nil
	}
	return thread.Messages, nil
}

// Update changes the status or summary of a thread.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.EmailThread, error) {
	updates := map[string]interface{}{}
	if in.Status != nil {
		if !statuses[*in.Status] {
			return nil, apperr.Validation("Unknown thread status %q", *in.Status)
		}
		updates["status"] = *in.Status
	}
	if in.Summary != nil {
		updates["summary"] = *in.Summary
	}
	if err := s.apply(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// LinkQuote attaches a quote to the thread and marks it quote_generated.
// A nil quoteID detaches the current quote and leaves the status alone.
func (s *Service) LinkQuote(ctx context.Context, id uint, quoteID *uint) (*models.EmailThread, error) {
	updates := map[string]interface{}{"quote_id": nil}
	if quoteID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Quote{}).Where("id = ?", *quoteID).Count(&count).Error; err != nil {
			return nil, apperr.Internal("An error occurred while linking the quote", err)
		}
		if count == 0 {
			return nil, apperr.Validation("Quote with ID %d not found", *quoteID)
		}
		updates["quote_id"] = *quoteID
		updates["status"] = models.ThreadQuoteGenerated
	}
	if err := s.apply(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the thread and its messages.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&models.EmailMessage{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.EmailThread{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(id)
		}
		return nil
	})
	return wrap(err, "An error occurred while deleting the e-mail thread")
}

func (s *Service) apply(ctx context.Context, id uint, updates map[string]interface{}) error {
	updates["updated_at"] = s.now().UTC()
	res := s.db.WithContext(ctx).Model(&models.EmailThread{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return apperr.Internal("An error occurred while updating the e-mail thread", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

func orderedMessages(tx *gorm.DB) *gorm.DB {
	return tx.Order("sent_at").Order("id")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func notFound(id uint) error {
	return apperr.NotFound("Email thread with ID %d not found", id)
}

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
