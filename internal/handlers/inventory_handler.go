package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go-sales-crm/internal/documents"
	"go-sales-crm/internal/inventory"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InventoryHandler struct {
	ledger *inventory.Ledger
}

func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// --- GET: /api/inventory ---
func (h *InventoryHandler) List(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}
	items, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// --- GET: /api/inventory/availability/:productId ---
func (h *InventoryHandler) Availability(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	avail, err := h.ledger.Availability(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

// --- POST: /api/inventory/reserve ---
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var input inventory.ReserveInput
	if !bindJSON(c, &input) {
		return
	}
	res, err := h.ledger.Reserve(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- POST: /api/inventory/update ---
func (h *InventoryHandler) Update(c *gin.Context) {
	var input inventory.AdjustInput
	if !bindJSON(c, &input) {
		return
	}
	item, err := h.ledger.Adjust(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// --- GET: /api/inventory/low-stock?warehouseId= ---
// Rows whose available quantity has dropped to the reorder level.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	warehouseID, ok := queryID(c, "warehouseId")
	if !ok {
		return
	}
	items, err := h.ledger.LowStock(c.Request.Context(), warehouseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lowStockItems": items})
}

// --- GET: /api/inventory/transactions ---
func (h *InventoryHandler) Transactions(c *gin.Context) {
	productID, ok := queryID(c, "productId")
	if !ok {
		return
	}
	warehouseID, ok := queryID(c, "warehouseId")
	if !ok {
		return
	}
	txs, err := h.ledger.Transactions(c.Request.Context(), inventory.TransactionFilter{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Limit:       queryInt(c, "limit"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// --- GET: /api/inventory/export ---
// Same filters as List, returned as an XLSX workbook with the matching ledger entries.
func (h *InventoryHandler) Export(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}
	items, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	txs, err := h.ledger.Transactions(c.Request.Context(), inventory.TransactionFilter{
		ProductID:   filter.ProductID,
		WarehouseID: filter.WarehouseID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := documents.InventoryWorkbook(items, txs)
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, file)
}

func listFilter(c *gin.Context) (inventory.ListFilter, bool) {
	warehouseID, ok := queryID(c, "warehouseId")
	if !ok {
		return inventory.ListFilter{}, false
	}
	productID, ok := queryID(c, "productId")
	if !ok {
		return inventory.ListFilter{}, false
	}
	return inventory.ListFilter{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Page:        queryInt(c, "page"),
		PageSize:    queryInt(c, "pageSize"),
	}, true
}
