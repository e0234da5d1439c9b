package transform

import (
	"encoding/json"
	"testing"
	"time"

	"go-sales-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 18, 15, 45, 0, 0, time.UTC)

func TestThreadStatusInfo(t *testing.T) {
	cases := []struct {
		status, label, color string
	}{
		{"open", "Needs Analysis", "#3498db"},
		{"in_progress", "Proposal Sent", "#e67e22"},
		{"quote_generated", "Proposal Sent", "#e67e22"},
		{"closed", "Closed - Won", "#27ae60"},
		{"archived", "Open", "#95a5a6"},
		{"", "Open", "#95a5a6"},
	}
	for _, tc := range cases {
		label, color := ThreadStatusInfo(tc.status)
		assert.Equal(t, tc.label, label, tc.status)
		assert.Equal(t, tc.color, color, tc.status)
	}
}

func TestThreadToOpportunityWithoutQuote(t *testing.T) {
	thread := models.EmailThread{ID: 12, Subject: "Need 40 chairs", Status: "open", CreatedAt: now.Add(-time.Hour)}

	opp := ThreadToOpportunity(thread, nil, now)

	assert.Equal(t, "12", opp.ID)
	assert.Equal(t, "OP-12", opp.OpportunityID)
	assert.Equal(t, "Needs Analysis", opp.Status)
	assert.Equal(t, "Email conversation", opp.Description)
	assert.Equal(t, "2:45 PM", opp.Timestamp)
	assert.Empty(t, opp.Items)
	assert.Zero(t, opp.GrandTotal)
}

func TestThreadToOpportunityWithQuote(t *testing.T) {
	last := now.AddDate(0, 0, -1)
	thread := models.EmailThread{ID: 3, Subject: "Desks", Summary: "Wants desks", Status: "quote_generated", LastMessageAt: &last}
	quote := &models.Quote{
		QuoteNumber: "Q-20261017-000004",
		Subtotal:    245, TaxRate: 10, TaxAmount: 24.5, TotalAmount: 269.5,
		LineItems: []models.QuoteLineItem{
			{ProductName: "Desk", Quantity: 2, UnitPrice: 100, LineTotal: 200},
			{ProductName: "Lamp", Quantity: 1, UnitPrice: 50, LineTotal: 45},
		},
	}

	opp := ThreadToOpportunity(thread, quote, now)

	assert.Equal(t, "Q-20261017-000004", opp.OpportunityID)
	assert.Equal(t, "Wants desks", opp.Description)
	assert.Equal(t, "Yesterday", opp.Timestamp)
	require.Len(t, opp.Items, 2)
	assert.Equal(t, OpportunityItem{ID: "item-2", Name: "Lamp", Quantity: 1, UnitPrice: 50, Total: 45}, opp.Items[1])
	assert.Equal(t, 269.5, opp.GrandTotal)
	assert.Equal(t, 10.0, opp.TaxRate)
}

func TestThreadToClientRequiresNameAndEmail(t *testing.T) {
	_, ok := ThreadToClient(models.EmailThread{CustomerName: "Jane Doe"}, now)
	assert.False(t, ok)

	_, ok = ThreadToClient(models.EmailThread{CustomerEmail: "jane@doe.test"}, now)
	assert.False(t, ok)
}

func TestThreadToClient(t *testing.T) {
	thread := models.EmailThread{
		ID:            9,
		Subject:       "Chairs",
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@doe-industries.test",
		Status:        "closed",
		Messages: []models.EmailMessage{
			{ID: 101, Direction: "inbound", BodyText: "Hi", SentAt: now.AddDate(0, 0, -3)},
			{Direction: "outbound", FromName: "Sam", BodyText: "Hello", SentAt: now.AddDate(0, 0, -10)},
		},
	}

	client, ok := ThreadToClient(thread, now)
	require.True(t, ok)

	assert.Equal(t, "JD", client.Abbreviation)
	assert.Equal(t, "doe-industries.test", client.Website)
	require.Len(t, client.AssociatedOpportunities, 1)
	assert.Equal(t, "opp-9", client.AssociatedOpportunities[0].ID)
	assert.Equal(t, "Closed - Won", client.AssociatedOpportunities[0].Stage)
	assert.Equal(t, 50, client.AssociatedOpportunities[0].Probability)

	require.Len(t, client.Conversations, 1)
	msgs := client.Conversations[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{ID: "msg-101", Sender: "Jane Doe (Client)", SenderType: "client", Content: "Hi", Timestamp: "3 days ago"}, msgs[0])
	assert.Equal(t, Message{ID: "msg-1", Sender: "Sam (You)", SenderType: "user", Content: "Hello", Timestamp: "Oct 8"}, msgs[1])
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "JD", Abbreviate("Jane Doe"))
	assert.Equal(t, "JD", Abbreviate("jane q. doe"))
	assert.Equal(t, "AC", Abbreviate("Acme"))
	assert.Equal(t, "X", Abbreviate("x"))
	assert.Equal(t, "ÉZ", Abbreviate("élodie zola"))
	assert.Equal(t, "", Abbreviate("   "))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "9:05 AM", FormatTimestamp(time.Date(2026, 10, 18, 9, 5, 0, 0, time.UTC), now))
	// future timestamps show the clock time
	assert.Equal(t, "11:00 PM", FormatTimestamp(time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC), now))
	// calendar days, not 24h periods
	assert.Equal(t, "Yesterday", FormatTimestamp(time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC), now))
	assert.Equal(t, "6 days ago", FormatTimestamp(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, "Oct 11", FormatTimestamp(time.Date(2026, 10, 11, 12, 0, 0, 0, time.UTC), now))
}

func TestFormatTimestampUsesNowLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	localNow := time.Date(2026, 10, 19, 8, 0, 0, 0, tokyo)
	// 2026-10-18 22:00 UTC is 07:00 on the 19th in Tokyo
	ts := time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "7:00 AM", FormatTimestamp(ts, localNow))
}

func TestParseViewMode(t *testing.T) {
	for in, want := range map[string]ViewMode{"": ViewSummary, "Summary": ViewSummary, "conversation": ViewConversation, " QUOTE ": ViewQuote} {
		got, err := ParseViewMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseViewMode("both")
	assert.Error(t, err)
}

func TestThreadDetailShowsOnePanel(t *testing.T) {
	thread := models.EmailThread{ID: 5, Subject: "Bins", CreatedAt: now}
	quote := &models.Quote{QuoteNumber: "Q-1"}

	conv := ThreadDetail(thread, quote, ViewConversation, now)
	assert.NotNil(t, conv.Conversation)
	assert.Nil(t, conv.Quote)

	q := ThreadDetail(thread, quote, ViewQuote, now)
	assert.Nil(t, q.Conversation)
	assert.Same(t, quote, q.Quote)

	b, err := json.Marshal(ThreadDetail(thread, nil, ViewSummary, now))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"view":"summary"`)
	assert.NotContains(t, string(b), `"conversation"`)
}
