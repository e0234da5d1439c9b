package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"go-sales-crm/internal/auth"
	"go-sales-crm/internal/config"
	"go-sales-crm/internal/database"
	"go-sales-crm/internal/mailer"
	"go-sales-crm/internal/models"
	"go-sales-crm/internal/quotes"
	"go-sales-crm/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (f *fakeMailer) Send(msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	mail   *fakeMailer
	admin  string
	sales  string
}

func testConfig() config.Config {
	return config.Config{
		BaseURL:        "http://crm.test",
		CompanyName:    "Example Supplies",
		JWTSecret:      "test-secret",
		JWTExpiration:  time.Hour,
		AdminUsername:  "admin",
		AdminPassword:  "admin-pass",
		AllowedOrigins: []string{"http://localhost:5173"},
	}
}

func newAPI(t *testing.T, cfg config.Config, mail mailer.Mailer) *testAPI {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, database.Seed(db, cfg))
	require.NoError(t, db.Create(&models.User{Username: "sam", PasswordHash: mustHash(t, "sales-pass"), Role: models.RoleSales}).Error)

	r, err := NewRouter(cfg, Deps{DB: db, Numbers: quotes.SequenceNumbers{}, Mailer: mail})
	require.NoError(t, err)

	api := &testAPI{t: t, db: db, router: r}
	if fm, ok := mail.(*fakeMailer); ok {
		api.mail = fm
	}
	api.admin = api.login("admin", "admin-pass")
	api.sales = api.login("sam", "sales-pass")
	return api
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := auth.HashPassword(pw)
	require.NoError(t, err)
	return h
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login(user, pw string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/login", "", gin.H{"username": user, "password": pw})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var out struct{ Token string }
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func quoteBody(customerID uint) gin.H {
	return gin.H{
		"customerId": customerID,
		"validUntil": "2026-12-31T00:00:00Z",
		"lineItems": []gin.H{
			{"productName": "Widget", "quantity": 2, "unitPrice": 100, "discountPercent": 0},
			{"productName": "Gadget", "quantity": 1, "unitPrice": 50, "discountPercent": 10},
		},
	}
}

func TestHealthAndAuth(t *testing.T) {
	api := newAPI(t, testConfig(), &fakeMailer{})

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/quotes", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/login", "", gin.H{"username": "admin", "password": "wrong"}).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/register", "", gin.H{"username": "new", "password": "long-enough"}).Code)
}

func TestRouterRefusesDefaultSecretInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.JWTSecret = config.DefaultJWTSecret

	_, err := NewRouter(cfg, Deps{DB: testutil.NewDB(t), Mailer: &fakeMailer{}})
	assert.ErrorIs(t, err, config.ErrInsecureSecret)
}

func TestRegisterWhenAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.AllowRegistration = true
	api := newAPI(t, cfg, &fakeMailer{})

	w := api.do(http.MethodPost, "/register", "", gin.H{"username": "newbie", "password": "long-enough"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"sales"`)

	w = api.do(http.MethodPost, "/register", "", gin.H{"username": "newbie", "password": "long-enough"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.NotEmpty(t, api.login("newbie", "long-enough"))
}

func TestQuoteLifecycle(t *testing.T) {
	api := newAPI(t, testConfig(), &fakeMailer{})
	customer := testutil.Customer(t, api.db, "C1", "Acme Corp", "buyer@acme.test")

	// unknown customer
	w := api.do(http.MethodPost, "/api/quotes", api.sales, quoteBody(999))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Customer with ID 999 not found")

	// no lines
	body := quoteBody(customer.ID)
	body["lineItems"] = []gin.H{}
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/quotes", api.sales, body).Code)

	// create
	w = api.do(http.MethodPost, "/api/quotes", api.sales, quoteBody(customer.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Quote
	decode(t, w, &created)
	assert.Equal(t, 245.0, created.Subtotal)
	assert.Equal(t, 245.0, created.TotalAmount)
	assert.Equal(t, "Draft", created.StatusName)
	assert.NotZero(t, created.OwnerID)
	require.Len(t, created.LineItems, 2)
	assert.Equal(t, 45.0, created.LineItems[1].LineTotal)

	// list
	w = api.do(http.MethodGet, "/api/quotes?customerId="+itoa(customer.ID)+"&page=1&pageSize=10", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Quote
	decode(t, w, &list)
	assert.Len(t, list, 1)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/quotes?customerId=abc", api.sales, nil).Code)

	// update
	path := "/api/quotes/" + itoa(created.ID)
	w = api.do(http.MethodPut, path, api.sales, gin.H{
		"validUntil": "2027-01-31T00:00:00Z",
		"taxRate":    10,
		"lineItems":  []gin.H{{"productName": "Widget", "quantity": 1, "unitPrice": 100}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Quote
	decode(t, w, &updated)
	assert.Equal(t, 110.0, updated.TotalAmount)
	require.Len(t, updated.LineItems, 1)
	assert.Equal(t, 1, updated.LineItems[0].LineNumber)

	// status
	w = api.do(http.MethodPut, path+"/status", api.sales, gin.H{"statusCode": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"statusName":"Accepted"`)

	// pdf
	w = api.do(http.MethodGet, path+"/pdf", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	// delete
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, path, api.sales, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, api.sales, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, api.sales, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPut, path, api.sales, gin.H{
		"validUntil": "2027-01-31T00:00:00Z",
		"lineItems":  []gin.H{{"productName": "Widget", "quantity": 1, "unitPrice": 100}},
	}).Code)
}

func TestSendQuote(t *testing.T) {
	mail := &fakeMailer{}
	api := newAPI(t, testConfig(), mail)
	customer := testutil.Customer(t, api.db, "C1", "Acme Corp", "buyer@acme.test")

	w := api.do(http.MethodPost, "/api/quotes", api.sales, quoteBody(customer.ID))
	require.Equal(t, http.StatusCreated, w.Code)
	var q models.Quote
	decode(t, w, &q)

	w = api.do(http.MethodPost, "/api/quotes/"+itoa(q.ID)+"/send", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"statusName":"Sent"`)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"buyer@acme.test"}, mail.sent[0].To)
	require.Len(t, mail.sent[0].Attachments, 1)
	assert.Equal(t, q.QuoteNumber+".pdf", mail.sent[0].Attachments[0].Name)
}

func TestSendQuoteWithoutMail(t *testing.T) {
	api := newAPI(t, testConfig(), mailer.Disabled{})
	w := api.do(http.MethodPost, "/api/quotes/1/send", api.sales, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInventoryEndpoints(t *testing.T) {
	api := newAPI(t, testConfig(), &fakeMailer{})
	widget := testutil.Product(t, api.db, "W-1", "Widget", 10)
	east := testutil.Warehouse(t, api.db, "EAST", "East DC")
	testutil.Stock(t, api.db, widget.ID, east.ID, 100, 20)

	w := api.do(http.MethodGet, "/api/inventory/availability/"+itoa(widget.ID), api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalAvailable":80`)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/inventory/availability/999", api.sales, nil).Code)

	reserve := gin.H{"productId": widget.ID, "warehouseId": east.ID, "quantity": 80, "referenceType": "QUOTE", "referenceId": 1}
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/inventory/reserve", api.sales, reserve).Code)

	reserve["quantity"] = 1
	w = api.do(http.MethodPost, "/api/inventory/reserve", api.sales, reserve)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errBody struct {
		Error   string         `json:"error"`
		Details map[string]int `json:"details"`
	}
	decode(t, w, &errBody)
	assert.Equal(t, "Insufficient inventory. Available: 0, Requested: 1", errBody.Error)
	assert.Equal(t, map[string]int{"available": 0, "requested": 1}, errBody.Details)

	reserve["warehouseId"] = 999
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/inventory/reserve", api.sales, reserve).Code)

	update := gin.H{"productId": widget.ID, "warehouseId": east.ID, "quantity": 50, "transactionType": "ADJUSTMENT"}
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/inventory/update", api.sales, update).Code)
	w = api.do(http.MethodPost, "/api/inventory/update", api.admin, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"quantityOnHand":50`)

	update["transactionType"] = "not a type"
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/inventory/update", api.admin, update).Code)

	w = api.do(http.MethodGet, "/api/inventory?warehouseId="+itoa(east.ID), api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"warehouseCode":"EAST"`)

	w = api.do(http.MethodGet, "/api/inventory/transactions?productId="+itoa(widget.ID), api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var txs []models.InventoryTransaction
	decode(t, w, &txs)
	assert.Len(t, txs, 2)

	w = api.do(http.MethodGet, "/api/inventory/low-stock", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var low struct {
		LowStockItems []map[string]interface{} `json:"lowStockItems"`
	}
	decode(t, w, &low)
	require.Len(t, low.LowStockItems, 1)
	assert.Equal(t, "W-1", low.LowStockItems[0]["productCode"])
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/inventory/low-stock?warehouseId=x", api.sales, nil).Code)

	w = api.do(http.MethodGet, "/api/inventory/export", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
}

func TestOpportunitiesAndClients(t *testing.T) {
	api := newAPI(t, testConfig(), &fakeMailer{})
	sent := time.Now().Add(-time.Minute)
	thread := models.EmailThread{
		Subject: "Need chairs", CustomerName: "Jane Doe", CustomerEmail: "jane@doe.test", Status: models.ThreadOpen,
		LastMessageAt: &sent,
		Messages: []models.EmailMessage{
			{Direction: models.DirectionInbound, BodyText: "Hi", SentAt: sent},
		},
	}
	require.NoError(t, api.db.Create(&thread).Error)
	require.NoError(t, api.db.Create(&models.EmailThread{Subject: "Anonymous", Status: "archived"}).Error)

	w := api.do(http.MethodGet, "/api/opportunities", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var opps []map[string]interface{}
	decode(t, w, &opps)
	require.Len(t, opps, 2)

	w = api.do(http.MethodGet, "/api/opportunities/"+itoa(thread.ID)+"?view=conversation", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"view":"conversation"`)
	assert.Contains(t, w.Body.String(), `"sender":"Jane Doe (Client)"`)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/opportunities/"+itoa(thread.ID)+"?view=all", api.sales, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/opportunities/999", api.sales, nil).Code)

	w = api.do(http.MethodGet, "/api/clients", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var clients []map[string]interface{}
	decode(t, w, &clients)
	require.Len(t, clients, 1)
	assert.Equal(t, "JD", clients[0]["abbreviation"])
}

func TestAdminRoutes(t *testing.T) {
	api := newAPI(t, testConfig(), &fakeMailer{})

	w := api.do(http.MethodPost, "/api/products", api.admin, gin.H{"productCode": "W-1", "productName": "Widget", "unitPrice": 9.5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/products", api.admin, gin.H{"productCode": "W-1", "productName": "Again", "unitPrice": 1}).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/products", api.sales, gin.H{"productCode": "X", "productName": "X", "unitPrice": 1}).Code)

	w = api.do(http.MethodGet, "/api/products", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"productCode":"W-1"`)

	var product models.Product
	require.NoError(t, api.db.Where("code = ?", "W-1").First(&product).Error)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/products/"+itoa(product.ID), api.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/products/999", api.admin, nil).Code)
	assert.NotContains(t, api.do(http.MethodGet, "/api/products", api.sales, nil).Body.String(), `"W-1"`)
	assert.Contains(t, api.do(http.MethodGet, "/api/products?all=true", api.sales, nil).Body.String(), `"W-1"`)

	w = api.do(http.MethodGet, "/api/system/status", api.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"online"`)
	assert.Contains(t, w.Body.String(), `"assistant":false`)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/reports/quotes?start=2026-01-01&end=2026-12-31", api.admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/reports/quotes?start=yesterday", api.admin, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/reports/inventory", api.admin, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/reports/inventory", api.sales, nil).Code)

	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodPost, "/api/assistant/ask", api.admin, gin.H{"message": "hi"}).Code)
}

func TestEmailThreadsFeedOpportunities(t *testing.T) {
	api := newAPI(t, testConfig(), &fakeMailer{})
	customer := testutil.Customer(t, api.db, "C1", "Acme Corp", "buyer@acme.test")

	// missing sender address
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/emails", api.sales, gin.H{"subject": "x", "body": "hi"}).Code)

	w := api.do(http.MethodPost, "/api/emails", api.sales, gin.H{
		"subject": "Need chairs", "fromName": "Jane Doe", "fromEmail": "jane@doe.test",
		"body": "Can you quote 40 chairs?", "sentAt": "2026-10-17T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var thread models.EmailThread
	decode(t, w, &thread)
	assert.Equal(t, "jane@doe.test", thread.CustomerEmail)
	path := "/api/emails/" + itoa(thread.ID)

	w = api.do(http.MethodPost, "/api/emails", api.sales, gin.H{
		"threadId": thread.ID, "direction": "outbound", "fromName": "Sam", "fromEmail": "sam@crm.test",
		"body": "Quote on its way", "sentAt": "2026-10-17T11:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/emails", api.sales, gin.H{
		"threadId": 999, "fromEmail": "a@b.test", "body": "hi",
	}).Code)

	w = api.do(http.MethodGet, path+"/messages", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []models.EmailMessage
	decode(t, w, &msgs)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.DirectionOutbound, msgs[1].Direction)

	w = api.do(http.MethodGet, "/api/emails?status=open", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.EmailThread
	decode(t, w, &list)
	assert.Len(t, list, 1)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/emails?status=archived", api.sales, nil).Code)

	// attach a quote; the opportunity now carries its number
	w = api.do(http.MethodPost, "/api/quotes", api.sales, quoteBody(customer.ID))
	require.Equal(t, http.StatusCreated, w.Code)
	var q models.Quote
	decode(t, w, &q)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPut, path+"/quote", api.sales, gin.H{"quoteId": 999}).Code)
	w = api.do(http.MethodPut, path+"/quote", api.sales, gin.H{"quoteId": q.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"quote_generated"`)

	w = api.do(http.MethodGet, "/api/opportunities/"+itoa(thread.ID)+"?view=quote", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"opportunityId":"`+q.QuoteNumber+`"`)
	assert.Contains(t, w.Body.String(), `"status":"Proposal Sent"`)
	assert.Contains(t, w.Body.String(), `"grandTotal":245`)

	w = api.do(http.MethodGet, "/api/clients", api.sales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"website":"doe.test"`)

	w = api.do(http.MethodPut, path, api.sales, gin.H{"status": "closed", "summary": "Won"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"summary":"Won"`)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPut, path, api.sales, gin.H{"status": "archived"}).Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, path, api.sales, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, path, api.sales, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, api.sales, nil).Code)
}
