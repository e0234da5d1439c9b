package database_test

import (
	"testing"
	"time"

	"go-sales-crm/internal/config"
	"go-sales-crm/internal/database"
	"go-sales-crm/internal/models"
	"go-sales-crm/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := database.Open("oracle", "x", logger.Silent)
	require.Error(t, err)
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := database.Connect(config.Config{DBDriver: "mysql"})
	require.Error(t, err)
}

func TestSeedIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := config.Config{AdminUsername: "boss", AdminPassword: "s3cret"}

	require.NoError(t, database.Seed(db, cfg))
	require.NoError(t, database.Seed(db, cfg))

	var statuses, drafts, users int64
	db.Model(&models.QuoteStatus{}).Count(&statuses)
	db.Model(&models.QuoteStatus{}).Where("code = ?", models.StatusDraft).Count(&drafts)
	db.Model(&models.User{}).Count(&users)
	assert.EqualValues(t, len(database.DefaultStatuses), statuses)
	assert.EqualValues(t, 1, drafts)
	assert.EqualValues(t, 1, users)

	var admin models.User
	require.NoError(t, db.Where("username = ?", "boss").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret")))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, database.LogLevel("info"))
	assert.Equal(t, logger.Silent, database.LogLevel("silent"))
	assert.Equal(t, logger.Warn, database.LogLevel("whatever"))
}

func TestQuoteReportGroupsByStatus(t *testing.T) {
	db := testutil.NewDB(t)
	customer := testutil.Customer(t, db, "C1", "Acme", "buyer@acme.test")
	draft := testutil.StatusID(t, db, models.StatusDraft)
	sent := testutil.StatusID(t, db, models.StatusSent)
	day := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	for i, q := range []models.Quote{
		{QuoteNumber: "Q-1", StatusID: draft, TotalAmount: 100.10},
		{QuoteNumber: "Q-2", StatusID: draft, TotalAmount: 50},
		{QuoteNumber: "Q-3", StatusID: sent, TotalAmount: 20},
		{QuoteNumber: "Q-OLD", StatusID: sent, TotalAmount: 999},
	} {
		q.CustomerID = customer.ID
		q.QuoteDate = day.AddDate(0, 0, i)
		if q.QuoteNumber == "Q-OLD" {
			q.QuoteDate = day.AddDate(-1, 0, 0)
		}
		require.NoError(t, db.Create(&q).Error)
	}

	report, err := database.GetQuoteReport(db, day, day.AddDate(0, 1, 0))
	require.NoError(t, err)

	assert.EqualValues(t, 3, report.TotalQuotes)
	assert.Equal(t, 170.10, report.TotalValue)
	require.Len(t, report.ByStatus, 2)
	assert.Equal(t, models.StatusDraft, report.ByStatus[0].StatusCode)
	assert.EqualValues(t, 2, report.ByStatus[0].Count)
	assert.Equal(t, 150.10, report.ByStatus[0].TotalValue)
}

func TestInventoryValuation(t *testing.T) {
	db := testutil.NewDB(t)
	widget := testutil.Product(t, db, "W-1", "Widget", 2.5)
	gadget := testutil.Product(t, db, "G-1", "Gadget", 10)
	east := testutil.Warehouse(t, db, "EAST", "East DC")
	west := testutil.Warehouse(t, db, "WEST", "West DC")
	testutil.Stock(t, db, widget.ID, east.ID, 4, 1)
	testutil.Stock(t, db, gadget.ID, east.ID, 3, 0)
	testutil.Stock(t, db, gadget.ID, west.ID, 1, 1)

	report, err := database.GetInventoryValuation(db)
	require.NoError(t, err)

	require.Len(t, report.Warehouses, 2)
	assert.Equal(t, "EAST", report.Warehouses[0].WarehouseCode)
	assert.Equal(t, 40.0, report.Warehouses[0].Subtotal)
	assert.Equal(t, 3, report.Warehouses[0].Items[0].Available)
	assert.Equal(t, 50.0, report.GrandTotal)
}
