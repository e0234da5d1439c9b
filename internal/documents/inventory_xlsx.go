package documents

import (
	"bytes"
	"fmt"

	"go-sales-crm/internal/inventory"
	"go-sales-crm/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	inventorySheet    = "Inventory"
	transactionsSheet = "Transactions"
)

var inventoryHeader = []string{
	"Warehouse Code", "Warehouse", "Product Code", "Product",
	"On Hand", "Reserved", "Available", "On Order", "Bin",
}

var transactionsHeader = []string{"Date", "Product ID", "Warehouse ID", "Type", "Quantity", "Reference", "Notes"}

// InventoryWorkbook writes one row per inventory item under a header row, and
// the given ledger entries on a second sheet.
func InventoryWorkbook(items []inventory.Item, txs []models.InventoryTransaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := writeHeader(f, inventorySheet, inventoryHeader, bold); err != nil {
		return nil, err
	}

	for i, item := range items {
		row := i + 2
		bin := ""
		if item.BinLocation != nil {
			bin = *item.BinLocation
		}
		values := []interface{}{
			item.WarehouseCode, item.WarehouseName, item.ProductCode, item.ProductName,
			item.QuantityOnHand, item.QuantityReserved, item.QuantityAvailable, item.QuantityOnOrder, bin,
		}
		if err := f.SetSheetRow(inventorySheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(transactionsSheet); err != nil {
		return nil, err
	}
	if err := writeHeader(f, transactionsSheet, transactionsHeader, bold); err != nil {
		return nil, err
	}
	for i, tx := range txs {
		ref, notes := "", ""
		if tx.ReferenceType != nil && tx.ReferenceID != nil {
			ref = fmt.Sprintf("%s %d", *tx.ReferenceType, *tx.ReferenceID)
		}
		if tx.Notes != nil {
			notes = *tx.Notes
		}
		values := []interface{}{
			tx.TransactionDate.Format("2006-01-02 15:04"), tx.ProductID, tx.WarehouseID,
			Title(tx.TransactionType), tx.Quantity, ref, notes,
		}
		if err := f.SetSheetRow(transactionsSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write inventory workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return f.SetRowStyle(sheet, 1, 1, style)
}
