package models

import (
	"time"
)

// Quote status codes seeded into quote_statuses.
const (
	StatusDraft    = "DRAFT"
	StatusSent     = "SENT"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
	StatusExpired  = "EXPIRED"
)

// Inventory transaction types written by the ledger.
const (
	TxReserve    = "RESERVE"
	TxAdjustment = "ADJUSTMENT"
)

// Roles carried in the JWT.
const (
	RoleAdmin = "admin"
	RoleSales = "sales"
)

// User - someone who can sign in to the CRM
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'admin', 'sales'
	CreatedAt    time.Time `json:"createdAt"`
}

// Customer - lookup, read-only for quotes
type Customer struct {
	ID    uint   `gorm:"primaryKey" json:"customerId"`
	Code  string `gorm:"uniqueIndex;size:50" json:"customerCode"`
	Name  string `gorm:"size:200" json:"customerName"`
	Email string `gorm:"size:200" json:"customerEmail"`
}

// Product - catalogue entry referenced by line items and inventory rows
type Product struct {
	ID          uint    `gorm:"primaryKey" json:"productId"`
	Code        string  `gorm:"uniqueIndex;size:50" json:"productCode"`
	Name        string  `gorm:"size:200" json:"productName"`
	Description string  `json:"description"`
	UnitPrice   float64 `gorm:"type:decimal(15,2)" json:"unitPrice"` // list price
	IsActive    bool    `json:"isActive"`
}

// Warehouse - stock location
type Warehouse struct {
	ID       uint   `gorm:"primaryKey" json:"warehouseId"`
	Code     string `gorm:"uniqueIndex;size:50" json:"warehouseCode"`
	Name     string `gorm:"size:200" json:"warehouseName"`
	IsActive bool   `json:"isActive"`
}

// QuoteStatus - lookup resolved by Code ("DRAFT", "SENT", ...)
type QuoteStatus struct {
	ID   uint   `gorm:"primaryKey" json:"statusId"`
	Code string `gorm:"uniqueIndex;size:30" json:"statusCode"`
	Name string `gorm:"size:100" json:"statusName"`
}

// QuoteSequence - per-day counter used to number quotes
type QuoteSequence struct {
	SeqDay  string `gorm:"primaryKey;size:8"` // YYYYMMDD
	Counter int64  `gorm:"not null"`
}

// Quote - the document header. Owns its line items.
type Quote struct {
	ID             uint      `gorm:"primaryKey" json:"quoteId"`
	QuoteNumber    string    `gorm:"uniqueIndex;size:40;not null" json:"quoteNumber"`
	QuoteName      string    `gorm:"size:200" json:"quoteName"`
	RevisionNumber int       `json:"revisionNumber"`
	CustomerID     uint      `gorm:"index;not null" json:"customerId"`
	CustomerName   string    `gorm:"-" json:"customerName"`
	ContactID      *uint     `json:"contactId"`
	OpportunityID  *uint     `json:"opportunityId"`
	StatusID       uint      `gorm:"index;not null" json:"statusId"`
	StatusName     string    `gorm:"-" json:"statusName"`
	OwnerID        uint      `json:"ownerId"`
	QuoteDate      time.Time `gorm:"index" json:"quoteDate"`
	ValidUntil     time.Time `json:"validUntil"`
	CurrencyCode   string    `gorm:"size:3" json:"currencyCode"`
	Subtotal       float64   `gorm:"type:decimal(15,2)" json:"subtotal"`
	DiscountAmount float64   `gorm:"type:decimal(15,2)" json:"discountAmount"`
	TaxRate        float64   `gorm:"type:decimal(5,2)" json:"taxRate"` // percent
	TaxAmount      float64   `gorm:"type:decimal(15,2)" json:"taxAmount"`
	ShippingAmount float64   `gorm:"type:decimal(15,2)" json:"shippingAmount"`
	TotalAmount    float64   `gorm:"type:decimal(15,2)" json:"totalAmount"`
	Notes          *string   `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	LineItems []QuoteLineItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"lineItems,omitempty"`
}

// QuoteLineItem - one priced entry, numbered from 1 inside its quote
type QuoteLineItem struct {
	ID              uint    `gorm:"primaryKey" json:"lineItemId"`
	QuoteID         uint    `gorm:"index;not null" json:"quoteId"`
	LineNumber      int     `gorm:"not null" json:"lineNumber"`
	ProductID       *uint   `json:"productId"` // nil for free-text lines
	ProductCode     string  `gorm:"size:50" json:"productCode"`
	ProductName     string  `gorm:"size:200" json:"productName"`
	Description     *string `json:"description"`
	Quantity        int     `gorm:"not null" json:"quantity"`
	UnitPrice       float64 `gorm:"type:decimal(15,2)" json:"unitPrice"`
	DiscountPercent float64 `gorm:"type:decimal(5,2)" json:"discountPercent"`
	LineTotal       float64 `gorm:"type:decimal(15,2)" json:"lineTotal"`
	Notes           *string `json:"notes"`
}

// Inventory - stock of one product in one warehouse.
// Available is derived (on hand - reserved) and never stored.
type Inventory struct {
	ID               uint       `gorm:"primaryKey"`
	ProductID        uint       `gorm:"uniqueIndex:idx_inventory_product_warehouse;not null"`
	WarehouseID      uint       `gorm:"uniqueIndex:idx_inventory_product_warehouse;not null"`
	QuantityOnHand   int        `gorm:"not null"`
	QuantityReserved int        `gorm:"not null"`
	QuantityOnOrder  int        `gorm:"not null"`
	ReorderLevel     int        `gorm:"not null"`
	BinLocation      *string    `gorm:"size:50"`
	LastCountDate    *time.Time
	UpdatedAt        time.Time
}

// QuantityAvailable is on hand minus reserved.
func (i Inventory) QuantityAvailable() int {
	return i.QuantityOnHand - i.QuantityReserved
}

// InventoryTransaction - append-only log entry, one per inventory mutation
type InventoryTransaction struct {
	ID              uint      `gorm:"primaryKey" json:"transactionId"`
	ProductID       uint      `gorm:"index:idx_inv_tx_product_warehouse;not null" json:"productId"`
	WarehouseID     uint      `gorm:"index:idx_inv_tx_product_warehouse;not null" json:"warehouseId"`
	TransactionType string    `gorm:"size:30;not null" json:"transactionType"`
	Quantity        int       `json:"quantity"`
	ReferenceType   *string   `gorm:"size:30" json:"referenceType"`
	ReferenceID     *uint     `json:"referenceId"`
	TransactionDate time.Time `gorm:"index" json:"transactionDate"`
	Notes           *string   `json:"notes"`
}

// Thread statuses and message directions stored with e-mail conversations.
const (
	ThreadOpen           = "open"
	ThreadInProgress     = "in_progress"
	ThreadQuoteGenerated = "quote_generated"
	ThreadClosed         = "closed"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// EmailThread - a customer conversation, optionally linked to a quote
type EmailThread struct {
	ID            uint           `gorm:"primaryKey" json:"threadId"`
	Subject       string         `gorm:"size:300" json:"subject"`
	CustomerName  string         `gorm:"size:200" json:"customerName"`
	CustomerEmail string         `gorm:"size:200" json:"customerEmail"`
	Status        string         `gorm:"size:30;index" json:"status"`
	Summary       string         `gorm:"type:text" json:"summary"`
	QuoteID       *uint          `json:"quoteId"`
	Quote         *Quote         `gorm:"foreignKey:QuoteID;constraint:OnDelete:SET NULL" json:"-"`
	LastMessageAt *time.Time     `json:"lastMessageAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Messages      []EmailMessage `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// EmailMessage - one message inside a thread
type EmailMessage struct {
	ID        uint      `gorm:"primaryKey" json:"messageId"`
	ThreadID  uint      `gorm:"index;not null" json:"threadId"`
	Direction string    `gorm:"size:10" json:"direction"` // 'inbound', 'outbound'
	FromEmail string    `gorm:"size:200" json:"fromEmail"`
	FromName  string    `gorm:"size:200" json:"fromName"`
	BodyText  string    `gorm:"type:text" json:"bodyText"`
	SentAt    time.Time `json:"sentAt"`
	IsRead    bool      `json:"isRead"`
}

// All lists every model for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Product{},
		&Warehouse{},
		&QuoteStatus{},
		&QuoteSequence{},
		&Quote{},
		&QuoteLineItem{},
		&Inventory{},
		&InventoryTransaction{},
		&EmailThread{},
		&EmailMessage{},
	}
}
