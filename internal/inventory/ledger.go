// Package inventory keeps per-warehouse stock levels and the append-only
// transaction log that records every change to them.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-sales-crm/internal/apperr"
	"go-sales-crm/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize      = 50
	maxPageSize          = 200
	defaultTxLimit       = 100
	maxTxLimit           = 500
	defaultReferenceType = "QUOTE"
	defaultReorderLevel  = 5
)

// Item is an inventory row with its product and warehouse display fields.
type Item struct {
	InventoryID       uint       `json:"inventoryId"`
	ProductID         uint       `json:"productId"`
	ProductCode       string     `json:"productCode"`
	ProductName       string     `json:"productName"`
	WarehouseID       uint       `json:"warehouseId"`
	WarehouseCode     string     `json:"warehouseCode"`
	WarehouseName     string     `json:"warehouseName"`
	QuantityOnHand    int        `json:"quantityOnHand"`
	QuantityReserved  int        `json:"quantityReserved"`
	QuantityAvailable int        `json:"quantityAvailable"`
	QuantityOnOrder   int        `json:"quantityOnOrder"`
	ReorderLevel      int        `json:"reorderLevel"`
	BinLocation       *string    `json:"binLocation"`
	LastCountDate     *time.Time `json:"lastCountDate"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// WarehouseStock is one warehouse's share of a product's availability.
type WarehouseStock struct {
	WarehouseID   uint    `json:"warehouseId"`
	WarehouseCode string  `json:"warehouseCode"`
	WarehouseName string  `json:"warehouseName"`
	Available     int     `json:"available"`
	Reserved      int     `json:"reserved"`
	BinLocation   *string `json:"binLocation"`
}

// Availability sums a product's stock across every warehouse.
type Availability struct {
	ProductID      uint             `json:"productId"`
	ProductCode    string           `json:"productCode"`
	ProductName    string           `json:"productName"`
	TotalAvailable int              `json:"totalAvailable"`
	TotalReserved  int              `json:"totalReserved"`
	TotalOnOrder   int              `json:"totalOnOrder"`
	Warehouses     []WarehouseStock `json:"warehouses"`
}

type ReserveInput struct {
	ProductID     uint   `json:"productId" binding:"required"`
	WarehouseID   uint   `json:"warehouseId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	ReferenceType string `json:"referenceType" binding:"omitempty,upper_code"`
	ReferenceID   uint   `json:"referenceId"`
}

// Reservation confirms a successful Reserve.
type Reservation struct {
	ProductID     uint      `json:"productId"`
	ProductCode   string    `json:"productCode"`
	WarehouseID   uint      `json:"warehouseId"`
	Quantity      int       `json:"quantity"`
	ReferenceType string    `json:"referenceType"`
	ReferenceID   uint      `json:"referenceId"`
	ReservedAt    time.Time `json:"reservedAt"`
}

type AdjustInput struct {
	ProductID       uint    `json:"productId" binding:"required"`
	WarehouseID     uint    `json:"warehouseId" binding:"required"`
	Quantity        int     `json:"quantity" binding:"gte=0"`
	TransactionType string  `json:"transactionType" binding:"omitempty,upper_code"`
	ReorderLevel    *int    `json:"reorderLevel" binding:"omitempty,gte=0"`
	Notes           *string `json:"notes"`
}

type ListFilter struct {
	WarehouseID *uint
	ProductID   *uint
	Page        int
	PageSize    int
}

type TransactionFilter struct {
	ProductID   *uint
	WarehouseID *uint
	Limit       int
}

// Ledger owns every write to inventory and inventory_transactions.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Availability reports the product's stock in every warehouse holding a row for it.
func (l *Ledger) Availability(ctx context.Context, productID uint) (*Availability, error) {
	db := l.db.WithContext(ctx)

	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Product with ID %d not found", productID)
		}
		return nil, apperr.Internal("An error occurred while checking availability", err)
	}

	var rows []models.Inventory
	if err := db.Where("product_id = ?", productID).Order("warehouse_id").Find(&rows).Error; err != nil {
		return nil, apperr.Internal("An error occurred while checking availability", err)
	}
	warehouses, err := warehouseIndex(db, rows)
	if err != nil {
		return nil, apperr.Internal("An error occurred while checking availability", err)
	}

	out := &Availability{
		ProductID:   product.ID,
		ProductCode: product.Code,
		ProductName: product.Name,
		Warehouses:  make([]WarehouseStock, 0, len(rows)),
	}
	for _, row := range rows {
		w := warehouses[row.WarehouseID]
		out.TotalAvailable += row.QuantityAvailable()
		out.TotalReserved += row.QuantityReserved
		out.TotalOnOrder += row.QuantityOnOrder
		out.Warehouses = append(out.Warehouses, WarehouseStock{
			WarehouseID:   row.WarehouseID,
			WarehouseCode: w.Code,
			WarehouseName: w.Name,
			Available:     row.QuantityAvailable(),
			Reserved:      row.QuantityReserved,
			BinLocation:   row.BinLocation,
		})
	}
	return out, nil
}

// Reserve sets stock aside for a reference document. The row is locked and the
// increment itself re-checks availability, so concurrent reservations can never
// push reserved above on hand.
func (l *Ledger) Reserve(ctx context.Context, in ReserveInput) (*Reservation, error) {
	if in.Quantity <= 0 {
		return nil, apperr.Validation("Quantity must be greater than zero")
	}
	refType := in.ReferenceType
	if refType == "" {
		refType = defaultReferenceType
	}

	var res *Reservation
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the row
		var inv models.Inventory
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ? AND warehouse_id = ?", in.ProductID, in.WarehouseID).
			First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Inventory not found for product %d in warehouse %d", in.ProductID, in.WarehouseID)
			}
			return err
		}

		// 2. Check stock
		if in.Quantity > inv.QuantityAvailable() {
			return apperr.InsufficientInventory(inv.QuantityAvailable(), in.Quantity)
		}

		// 3. Compare-and-increment
		now := l.now().UTC()
		update := tx.Model(&models.Inventory{}).
			Where("id = ? AND quantity_on_hand - quantity_reserved >= ?", inv.ID, in.Quantity).
			Updates(map[string]interface{}{
				"quantity_reserved": gorm.Expr("quantity_reserved + ?", in.Quantity),
				"updated_at":        now,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			var current models.Inventory
			if err := tx.First(&current, inv.ID).Error; err != nil {
				return err
			}
			return apperr.InsufficientInventory(current.QuantityAvailable(), in.Quantity)
		}

		// 4. Log it
		refID := in.ReferenceID
		notes := fmt.Sprintf("Reserved %d units for %s %d", in.Quantity, refType, refID)
		entry := models.InventoryTransaction{
			ProductID:       in.ProductID,
			WarehouseID:     in.WarehouseID,
			TransactionType: models.TxReserve,
			Quantity:        in.Quantity,
			ReferenceType:   &refType,
			ReferenceID:     &refID,
			TransactionDate: now,
			Notes:           &notes,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		var product models.Product
		if err := tx.Select("code").Where("id = ?", in.ProductID).Limit(1).Find(&product).Error; err != nil {
			return err
		}
		res = &Reservation{
			ProductID:     in.ProductID,
			ProductCode:   product.Code,
			WarehouseID:   in.WarehouseID,
			Quantity:      in.Quantity,
			ReferenceType: refType,
			ReferenceID:   refID,
			ReservedAt:    now,
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err, "An error occurred while reserving inventory")
	}
	return res, nil
}

// Adjust sets the on-hand level of a row to an absolute quantity, creating the
// row when the product has never been stocked in that warehouse.
func (l *Ledger) Adjust(ctx context.Context, in AdjustInput) (*Item, error) {
	if in.Quantity < 0 {
		return nil, apperr.Validation("Quantity cannot be negative")
	}
	if in.ReorderLevel != nil && *in.ReorderLevel < 0 {
		return nil, apperr.Validation("Reorder level cannot be negative")
	}
	txType := in.TransactionType
	if txType == "" {
		txType = models.TxAdjustment
	}

	var id uint
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := l.now().UTC()

		var inv models.Inventory
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ? AND warehouse_id = ?", in.ProductID, in.WarehouseID).
			First(&inv).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			inv = models.Inventory{
				ProductID:      in.ProductID,
				WarehouseID:    in.WarehouseID,
				QuantityOnHand: in.Quantity,
				ReorderLevel:   defaultReorderLevel,
				UpdatedAt:      now,
			}
			if in.ReorderLevel != nil {
				inv.ReorderLevel = *in.ReorderLevel
			}
			if err := tx.Create(&inv).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			updates := map[string]interface{}{
				"quantity_on_hand": in.Quantity,
				"updated_at":       now,
			}
			if in.ReorderLevel != nil {
				updates["reorder_level"] = *in.ReorderLevel
			}
			if err := tx.Model(&inv).Updates(updates).Error; err != nil {
				return err
			}
		}
		id = inv.ID

		return tx.Create(&models.InventoryTransaction{
			ProductID:       in.ProductID,
			WarehouseID:     in.WarehouseID,
			TransactionType: txType,
			Quantity:        in.Quantity,
			TransactionDate: now,
			Notes:           in.Notes,
		}).Error
	})
	if err != nil {
		return nil, wrap(err, "An error occurred while updating inventory")
	}

	items, err := l.items(l.db.WithContext(ctx).Where("id = ?", id))
	if err != nil {
		return nil, apperr.Internal("An error occurred while updating inventory", err)
	}
	if len(items) == 0 {
		return nil, apperr.Internal("An error occurred while updating inventory", fmt.Errorf("inventory row %d vanished", id))
	}
	return &items[0], nil
}

// List pages through inventory rows ordered by id.
func (l *Ledger) List(ctx context.Context, f ListFilter) ([]Item, error) {
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

	q := l.db.WithContext(ctx)
	if f.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	items, err := l.items(q.Order("id").Offset((page - 1) * size).Limit(size))
	if err != nil {
		return nil, apperr.Internal("An error occurred while retrieving inventory", err)
	}
	return items, nil
}

// LowStock returns the rows whose available quantity is at or below their reorder level.
func (l *Ledger) LowStock(ctx context.Context, warehouseID *uint) ([]Item, error) {
	q := l.db.WithContext(ctx).Where("quantity_on_hand - quantity_reserved <= reorder_level")
	if warehouseID != nil {
		q = q.Where("warehouse_id = ?", *warehouseID)
	}
	items, err := l.items(q.Order("id"))
	if err != nil {
		return nil, apperr.Internal("An error occurred while retrieving low stock", err)
	}
	return items, nil
}

// Transactions returns the newest log entries first.
func (l *Ledger) Transactions(ctx context.Context, f TransactionFilter) ([]models.InventoryTransaction, error) {
	limit := f.Limit
	if limit < 1 {
		limit = defaultTxLimit
	}
	if limit > maxTxLimit {
		limit = maxTxLimit
	}

	q := l.db.WithContext(ctx)
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.WarehouseID != nil {
		q = q.Where("warehouse_id = ?", *f.WarehouseID)
	}
	out := []models.InventoryTransaction{}
	if err := q.Order("transaction_date DESC").Order("id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, apperr.Internal("An error occurred while retrieving inventory transactions", err)
	}
	return out, nil
}

// items runs q against inventory and joins display fields in memory.
func (l *Ledger) items(q *gorm.DB) ([]Item, error) {
	var rows []models.Inventory
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	db := l.db.Session(&gorm.Session{NewDB: true, Context: q.Statement.Context})
	warehouses, err := warehouseIndex(db, rows)
	if err != nil {
		return nil, err
	}
	products, err := productIndex(db, rows)
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(rows))
	for _, row := range rows {
		p := products[row.ProductID]
		w := warehouses[row.WarehouseID]
		out = append(out, Item{
			InventoryID:       row.ID,
			ProductID:         row.ProductID,
			ProductCode:       p.Code,
			ProductName:       p.Name,
			WarehouseID:       row.WarehouseID,
			WarehouseCode:     w.Code,
			WarehouseName:     w.Name,
			QuantityOnHand:    row.QuantityOnHand,
			QuantityReserved:  row.QuantityReserved,
			QuantityAvailable: row.QuantityAvailable(),
			QuantityOnOrder:   row.QuantityOnOrder,
			ReorderLevel:      row.ReorderLevel,
			BinLocation:       row.BinLocation,
			LastCountDate:     row.LastCountDate,
			UpdatedAt:         row.UpdatedAt,
		})
	}
	return out, nil
}

func warehouseIndex(db *gorm.DB, rows []models.Inventory) (map[uint]models.Warehouse, error) {
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.WarehouseID)
	}
	out := make(map[uint]models.Warehouse, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var warehouses []models.Warehouse
	if err := db.Where("id IN ?", ids).Find(&warehouses).Error; err != nil {
		return nil, err
	}
	for _, w := range warehouses {
		out[w.ID] = w
	}
	return out, nil
}

func productIndex(db *gorm.DB, rows []models.Inventory) (map[uint]models.Product, error) {
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	out := make(map[uint]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func wrap(err error, msg string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(msg, err)
}
