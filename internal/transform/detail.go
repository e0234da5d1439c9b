package transform

import (
	"time"

	"go-sales-crm/internal/models"
)

// OpportunityDetail is the opportunity card plus exactly one detail panel.
// Only the field matching View is set.
type OpportunityDetail struct {
	Opportunity
	View         ViewMode      `json:"view"`
	Conversation *Conversation `json:"conversation,omitempty"`
	Quote        *models.Quote `json:"quote,omitempty"`
}

func ThreadDetail(thread models.EmailThread, quote *models.Quote, view ViewMode, now time.Time) OpportunityDetail {
	d := OpportunityDetail{Opportunity: ThreadToOpportunity(thread, quote, now), View: view}
	switch view {
	case ViewConversation:
		conv := ThreadConversation(thread, now)
		d.Conversation = &conv
	case ViewQuote:
		d.Quote = quote
	}
	return d
}
