package database

import (
	"sort"
	"time"

	"go-sales-crm/internal/models"
	"go-sales-crm/internal/pricing"

	"gorm.io/gorm"
)

// StatusBucket is one row of the quote pipeline.
type StatusBucket struct {
	StatusCode string  `json:"statusCode"`
	StatusName string  `json:"statusName"`
	Count      int64   `json:"count"`
	TotalValue float64 `json:"totalValue"`
}

// QuoteReport summarises quotes issued in a date range.
type QuoteReport struct {
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	TotalQuotes int64          `json:"totalQuotes"`
	TotalValue  float64        `json:"totalValue"`
	ByStatus    []StatusBucket `json:"byStatus"`
}

// GetQuoteReport groups quotes dated between start and end (inclusive) by status.
func GetQuoteReport(db *gorm.DB, start, end time.Time) (*QuoteReport, error) {
	result := QuoteReport{Start: start, End: end, ByStatus: []StatusBucket{}}

	// COALESCE ensures we get 0 instead of NULL if no quotes exist
	err := db.Model(&models.Quote{}).
		Select("quote_statuses.code AS status_code, quote_statuses.name AS status_name, COUNT(*) AS count, COALESCE(SUM(quotes.total_amount), 0) AS total_value").
		Joins("JOIN quote_statuses ON quote_statuses.id = quotes.status_id").
		Where("quotes.quote_date BETWEEN ? AND ?", start, end).
		Group("quote_statuses.code, quote_statuses.name").
		Order("quote_statuses.code").
		Scan(&result.ByStatus).Error
	if err != nil {
		return nil, err
	}

	for i := range result.ByStatus {
		result.ByStatus[i].TotalValue = pricing.RoundFloat(result.ByStatus[i].TotalValue)
		result.TotalQuotes += result.ByStatus[i].Count
		result.TotalValue += result.ByStatus[i].TotalValue
	}
	result.TotalValue = pricing.RoundFloat(result.TotalValue)
	return &result, nil
}

// ValuationItem is a single product line of a warehouse valuation.
type ValuationItem struct {
	ProductCode string  `json:"productCode"`
	ProductName string  `json:"productName"`
	OnHand      int     `json:"onHand"`
	Reserved    int     `json:"reserved"`
	Available   int     `json:"available"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalValue  float64 `json:"totalValue"`
}

// WarehouseGroup is one warehouse table of the valuation.
type WarehouseGroup struct {
	WarehouseCode string          `json:"warehouseCode"`
	WarehouseName string          `json:"warehouseName"`
	Items         []ValuationItem `json:"items"`
	Subtotal      float64         `json:"subtotal"`
}

// ValuationReport values on-hand stock at list price.
type ValuationReport struct {
	Warehouses []WarehouseGroup `json:"warehouses"`
	GrandTotal float64          `json:"grandTotal"`
}

// GetInventoryValuation groups every inventory row by warehouse and values it
// at the product's list price.
func GetInventoryValuation(db *gorm.DB) (*ValuationReport, error) {
	var rows []models.Inventory
	if err := db.Order("warehouse_id, product_id").Find(&rows).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	if err := db.Find(&products).Error; err != nil {
		return nil, err
	}
	var warehouses []models.Warehouse
	if err := db.Find(&warehouses).Error; err != nil {
		return nil, err
	}
	productByID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	warehouseByID := make(map[uint]models.Warehouse, len(warehouses))
	for _, w := range warehouses {
		warehouseByID[w.ID] = w
	}

	// We use a pointer so we can update the subtotal in the map
	grouped := make(map[uint]*WarehouseGroup)
	var grandTotal float64
	for _, row := range rows {
		group, ok := grouped[row.WarehouseID]
		if !ok {
			w := warehouseByID[row.WarehouseID]
			group = &WarehouseGroup{WarehouseCode: w.Code, WarehouseName: w.Name, Items: []ValuationItem{}}
			grouped[row.WarehouseID] = group
		}

		p := productByID[row.ProductID]
		value := pricing.RoundFloat(float64(row.QuantityOnHand) * p.UnitPrice)
		group.Items = append(group.Items, ValuationItem{
			ProductCode: p.Code,
			ProductName: p.Name,
			OnHand:      row.QuantityOnHand,
			Reserved:    row.QuantityReserved,
			Available:   row.QuantityAvailable(),
			UnitPrice:   p.UnitPrice,
			TotalValue:  value,
		})
		group.Subtotal = pricing.RoundFloat(group.Subtotal + value)
		grandTotal += value
	}

	report := ValuationReport{Warehouses: []WarehouseGroup{}, GrandTotal: pricing.RoundFloat(grandTotal)}
	for _, g := range grouped {
		report.Warehouses = append(report.Warehouses, *g)
	}
	sort.Slice(report.Warehouses, func(i, j int) bool {
		return report.Warehouses[i].WarehouseCode < report.Warehouses[j].WarehouseCode
	})
	return &report, nil
}
