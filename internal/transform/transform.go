// Package transform maps stored e-mail threads and quotes into the
// opportunity and client views shown by the sales tracker.
//
// Everything here is pure: the same thread, quote and now always give the
// same output.
package transform

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"go-sales-crm/internal/models"
)

type OpportunityItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

type Opportunity struct {
	ID            string            `json:"id"`
	OpportunityID string            `json:"opportunityId"`
	Name          string            `json:"name"`
	Status        string            `json:"status"`
	StatusColor   string            `json:"statusColor"`
	Description   string            `json:"description"`
	Timestamp     string            `json:"timestamp"`
	Items         []OpportunityItem `json:"items"`
	Subtotal      float64           `json:"subtotal"`
	TaxRate       float64           `json:"taxRate"`
	TaxAmount     float64           `json:"taxAmount"`
	GrandTotal    float64           `json:"grandTotal"`
}

type Message struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	SenderType string `json:"senderType"` // "client" or "user"
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

type Conversation struct {
	ID              string    `json:"id"`
	OpportunityID   string    `json:"opportunityId"`
	OpportunityName string    `json:"opportunityName"`
	Messages        []Message `json:"messages"`
}

type AssociatedOpportunity struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Stage       string  `json:"stage"`
	Value       float64 `json:"value"`
	Probability int     `json:"probability"`
}

type KeyContact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	AvatarColor string `json:"avatarColor"`
}

type Client struct {
	ID                      string                  `json:"id"`
	Name                    string                  `json:"name"`
	Abbreviation            string                  `json:"abbreviation"`
	AbbreviationColor       string                  `json:"abbreviationColor"`
	OpportunityCount        int                     `json:"opportunityCount"`
	OpportunityLabel        string                  `json:"opportunityLabel"`
	Industry                string                  `json:"industry"`
	Location                string                  `json:"location"`
	Website                 string                  `json:"website"`
	AssociatedOpportunities []AssociatedOpportunity `json:"associatedOpportunities"`
	KeyContacts             []KeyContact            `json:"keyContacts"`
	Conversations           []Conversation          `json:"conversations"`
}

type statusInfo struct {
	label string
	color string
}

var threadStatuses = map[string]statusInfo{
	models.ThreadOpen:           {"Needs Analysis", "#3498db"},
	models.ThreadInProgress:     {"Proposal Sent", "#e67e22"},
	models.ThreadQuoteGenerated: {"Proposal Sent", "#e67e22"},
	models.ThreadClosed:         {"Closed - Won", "#27ae60"},
}

var fallbackStatus = statusInfo{"Open", "#95a5a6"}

// ThreadStatusInfo returns the display label and colour for a thread status.
// Unknown statuses get the grey "Open" default.
func ThreadStatusInfo(status string) (label, color string) {
	info, ok := threadStatuses[status]
	if !ok {
		info = fallbackStatus
	}
	return info.label, info.color
}

// ThreadToOpportunity builds the opportunity card for a thread. quote may be nil.
func ThreadToOpportunity(thread models.EmailThread, quote *models.Quote, now time.Time) Opportunity {
	label, color := ThreadStatusInfo(thread.Status)

	opp := Opportunity{
		ID:            fmt.Sprint(thread.ID),
		OpportunityID: fmt.Sprintf("OP-%d", thread.ID),
		Name:          thread.Subject,
		Status:        label,
		StatusColor:   color,
		Description:   thread.Summary,
		Timestamp:     FormatTimestamp(threadTime(thread), now),
		Items:         []OpportunityItem{},
	}
	if opp.Description == "" {
		opp.Description = "Email conversation"
	}

	if quote != nil {
		if quote.QuoteNumber != "" {
			opp.OpportunityID = quote.QuoteNumber
		}
		for i, li := range quote.LineItems {
			opp.Items = append(opp.Items, OpportunityItem{
				ID:        fmt.Sprintf("item-%d", i+1),
				Name:      li.ProductName,
				Quantity:  li.Quantity,
				UnitPrice: li.UnitPrice,
				Total:     li.LineTotal,
			})
		}
		opp.Subtotal = quote.Subtotal
		opp.TaxRate = quote.TaxRate
		opp.TaxAmount = quote.TaxAmount
		opp.GrandTotal = quote.TotalAmount
	}
	return opp
}

// ThreadToClient builds the client card for a thread. It reports false when
// the thread has no customer name or e-mail.
func ThreadToClient(thread models.EmailThread, now time.Time) (*Client, bool) {
	if thread.CustomerName == "" || thread.CustomerEmail == "" {
		return nil, false
	}

	oppID := fmt.Sprintf("opp-%d", thread.ID)
	stage := "Proposal"
	if thread.Status == models.ThreadClosed {
		stage = "Closed - Won"
	}

	return &Client{
		ID:                fmt.Sprint(thread.ID),
		Name:              thread.CustomerName,
		Abbreviation:      Abbreviate(thread.CustomerName),
		AbbreviationColor: "#3b82f6",
		OpportunityCount:  1,
		OpportunityLabel:  "Active Opportunity",
		Industry:          "Unknown",
		Location:          "Unknown",
		Website:           emailDomain(thread.CustomerEmail),
		AssociatedOpportunities: []AssociatedOpportunity{{
			ID:          oppID,
			Name:        thread.Subject,
			Stage:       stage,
			Probability: 50,
		}},
		KeyContacts: []KeyContact{{
			ID:          fmt.Sprintf("contact-%d", thread.ID),
			Name:        thread.CustomerName,
			Title:       "Contact",
			AvatarColor: "#e5e7eb",
		}},
		Conversations: []Conversation{ThreadConversation(thread, now)},
	}, true
}

// ThreadConversation maps the thread's messages in stored order.
func ThreadConversation(thread models.EmailThread, now time.Time) Conversation {
	conv := Conversation{
		ID:              fmt.Sprintf("conv-%d", thread.ID),
		OpportunityID:   fmt.Sprintf("opp-%d", thread.ID),
		OpportunityName: thread.Subject,
		Messages:        make([]Message, 0, len(thread.Messages)),
	}
	for i, msg := range thread.Messages {
		id := fmt.Sprintf("msg-%d", msg.ID)
		if msg.ID == 0 {
			id = fmt.Sprintf("msg-%d", i)
		}

		m := Message{ID: id, Content: msg.BodyText, Timestamp: FormatTimestamp(msg.SentAt, now)}
		if msg.Direction == models.DirectionInbound {
			m.SenderType = "client"
			m.Sender = orDefault(msg.FromName, thread.CustomerName) + " (Client)"
		} else {
			m.SenderType = "user"
			m.Sender = orDefault(msg.FromName, "Sales Rep") + " (You)"
		}
		conv.Messages = append(conv.Messages, m)
	}
	return conv
}

// Abbreviate takes the first letters of the first and last words, or the
// first two letters of a one-word name, upper-cased.
func Abbreviate(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return ""
	case 1:
		r := []rune(words[0])
		if len(r) > 2 {
			r = r[:2]
		}
		return strings.ToUpper(string(r))
	default:
		first := []rune(words[0])[0]
		last := []rune(words[len(words)-1])[0]
		return string([]rune{unicode.ToUpper(first), unicode.ToUpper(last)})
	}
}

func threadTime(t models.EmailThread) time.Time {
	if t.LastMessageAt != nil {
		return *t.LastMessageAt
	}
	return t.CreatedAt
}

func emailDomain(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
