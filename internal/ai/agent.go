package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/database"
	"go-sales-crm/internal/inventory"
	"go-sales-crm/internal/quotes"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// maxToolRounds bounds how many tool calls one question may trigger.
const maxToolRounds = 5

// ErrDisabled is returned by Ask when no API key is configured.
var ErrDisabled = errors.New("assistant is not configured")

// Agent answers sales questions with Gemini, calling back into the quote
// service, the inventory ledger and the reports.
type Agent struct {
	apiKey string
	model  string
	db     *gorm.DB
	quotes *quotes.Service
	ledger *inventory.Ledger
	now    func() time.Time
}

func NewAgent(apiKey, model string, db *gorm.DB, quoteSvc *quotes.Service, ledger *inventory.Ledger) *Agent {
	return &Agent{apiKey: apiKey, model: model, db: db, quotes: quoteSvc, ledger: ledger, now: time.Now}
}

func (a *Agent) Enabled() bool { return a != nil && a.apiKey != "" }

// Ask runs one question through the model, executing the tool calls it asks for.
func (a *Agent) Ask(ctx context.Context, userMessage string) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt(a.now())))
	model.Tools = []*genai.Tool{{FunctionDeclarations: toolDeclarations}}

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", err
	}

	// --- HANDLE TOOL CALLS ---
	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return printResponse(resp), nil
		}

		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			result, err := a.callTool(ctx, call.Name, call.Args)
			if err != nil {
				log.Printf("assistant tool %s failed: %v", call.Name, err)
				result = map[string]any{"error": clientMessage(err)}
			}
			replies = append(replies, genai.FunctionResponse{Name: call.Name, Response: result})
		}

		resp, err = session.SendMessage(ctx, replies...)
		if err != nil {
			return "", err
		}
	}
	return printResponse(resp), nil
}

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`Today is %s. You are the sales assistant of a CRM.

RULES:
1. STOCK: For stock or availability questions call 'check_inventory' (all rows) or
   'check_availability' (one product, all warehouses). Never guess quantities.
2. QUOTES: To explain a quote call 'get_quote' with its numeric id. To move a quote to
   another status call 'set_quote_status' with one of DRAFT, SENT, ACCEPTED, REJECTED, EXPIRED.
3. PIPELINE: For totals over a period use 'get_quote_report' with dates as YYYY-MM-DD.
4. Amounts are in the quote's currency with two decimals.`, now.Format("2006-01-02"))
}

var toolDeclarations = []*genai.FunctionDeclaration{
	{
		Name:        "check_inventory",
		Description: "List inventory rows with product, warehouse, on hand, reserved and available quantities.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"warehouse_id": {Type: genai.TypeInteger, Description: "Only this warehouse (optional)"},
			},
		},
	},
	{
		Name:        "check_availability",
		Description: "Total and per-warehouse availability of one product.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"product_id": {Type: genai.TypeInteger, Description: "ID of the product"},
			},
			Required: []string{"product_id"},
		},
	},
	{
		Name:        "get_quote",
		Description: "Full quote with line items, customer, status and totals.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"quote_id": {Type: genai.TypeInteger, Description: "Numeric quote id"},
			},
			Required: []string{"quote_id"},
		},
	},
	{
		Name:        "set_quote_status",
		Description: "Change the status of a quote.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"quote_id":    {Type: genai.TypeInteger, Description: "Numeric quote id"},
				"status_code": {Type: genai.TypeString, Description: "DRAFT, SENT, ACCEPTED, REJECTED or EXPIRED"},
			},
			Required: []string{"quote_id", "status_code"},
		},
	},
	{
		Name:        "get_quote_report",
		Description: "Number and value of quotes per status for a date range.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
				"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
			},
			Required: []string{"start_date", "end_date"},
		},
	},
}

// callTool executes one declared tool. Errors are reported back to the model.
func (a *Agent) callTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case "check_inventory":
		filter := inventory.ListFilter{PageSize: 200}
		if id, ok, err := optionalID(args, "warehouse_id"); err != nil {
			return nil, err
		} else if ok {
			filter.WarehouseID = &id
		}
		items, err := a.ledger.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return map[string]any{"inventory": items}, nil

	case "check_availability":
		id, err := requiredID(args, "product_id")
		if err != nil {
			return nil, err
		}
		avail, err := a.ledger.Availability(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"availability": avail}, nil

	case "get_quote":
		id, err := requiredID(args, "quote_id")
		if err != nil {
			return nil, err
		}
		q, err := a.quotes.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"quote": q}, nil

	case "set_quote_status":
		id, err := requiredID(args, "quote_id")
		if err != nil {
			return nil, err
		}
		code, _ := args["status_code"].(string)
		q, err := a.quotes.SetStatus(ctx, id, code)
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "updated", "quoteNumber": q.QuoteNumber, "statusName": q.StatusName}, nil

	case "get_quote_report":
		startStr, _ := args["start_date"].(string)
		endStr, _ := args["end_date"].(string)
		start, err1 := time.Parse("2006-01-02", startStr)
		end, err2 := time.Parse("2006-01-02", endStr)
		if err1 != nil || err2 != nil {
			return nil, apperr.Validation("Dates must be in YYYY-MM-DD format")
		}
		end = end.Add(24*time.Hour - time.Nanosecond)

		report, err := database.GetQuoteReport(a.db.WithContext(ctx), start, end)
		if err != nil {
			return nil, err
		}
		return map[string]any{"report": report}, nil
	}
	return nil, apperr.Validation("Unknown tool %q", name)
}

// Gemini sends integers as float64.
func requiredID(args map[string]any, key string) (uint, error) {
	id, ok, err := optionalID(args, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperr.Validation("%s is required", key)
	}
	return id, nil
}

func optionalID(args map[string]any, key string) (uint, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	f, ok := raw.(float64)
	if !ok || f < 1 || f != float64(uint(f)) {
		return 0, false, apperr.Validation("%s must be a positive integer", key)
	}
	return uint(f), true, nil
}

func clientMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Code != apperr.CodeInternal {
		return ae.Message
	}
	return "The lookup failed."
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func printResponse(resp *genai.GenerateContentResponse) string {
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				return string(txt)
			}
		}
	}
	return "I completed the action."
}
