// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"go-sales-crm/internal/database"
	"go-sales-crm/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the schema migrated
// and the quote statuses seeded.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	return open(t, dsn)
}

// NewFileDB opens a sqlite database file under t.TempDir(). Write transactions
// take the lock up front, so concurrent writers queue instead of failing.
func NewFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crm.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=10000&_txlock=immediate", path)
	return open(t, dsn)
}

func open(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", dsn, logger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedStatuses(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Customer inserts a customer.
func Customer(t *testing.T, db *gorm.DB, code, name, email string) models.Customer {
	t.Helper()
	c := models.Customer{Code: code, Name: name, Email: email}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	return c
}

// Product inserts an active product.
func Product(t *testing.T, db *gorm.DB, code, name string, unitPrice float64) models.Product {
	t.Helper()
	p := models.Product{Code: code, Name: name, UnitPrice: unitPrice, IsActive: true}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return p
}

// Warehouse inserts an active warehouse.
func Warehouse(t *testing.T, db *gorm.DB, code, name string) models.Warehouse {
	t.Helper()
	w := models.Warehouse{Code: code, Name: name, IsActive: true}
	if err := db.Create(&w).Error; err != nil {
		t.Fatalf("warehouse: %v", err)
	}
	return w
}

// Stock inserts an inventory row directly, bypassing the ledger.
func Stock(t *testing.T, db *gorm.DB, productID, warehouseID uint, onHand, reserved int) models.Inventory {
	t.Helper()
	inv := models.Inventory{ProductID: productID, WarehouseID: warehouseID, QuantityOnHand: onHand, QuantityReserved: reserved}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("inventory: %v", err)
	}
	return inv
}

// StatusID returns the id of the seeded status with code.
func StatusID(t *testing.T, db *gorm.DB, code string) uint {
	t.Helper()
	var s models.QuoteStatus
	if err := db.Where("code = ?", code).First(&s).Error; err != nil {
		t.Fatalf("status %s: %v", code, err)
	}
	return s.ID
}

// ErrInjected is what FailCreates makes inserts return.
var ErrInjected = errors.New("injected insert failure")

// FailCreates makes every INSERT into table fail on db from now on.
func FailCreates(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("testutil:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(ErrInjected)
		}
	})
	if err != nil {
		t.Fatalf("register failing callback: %v", err)
	}
}
