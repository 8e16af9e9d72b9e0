package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is a plain counter mutated only by the
// sale processor (decrement) and direct catalog edits; it may go negative
// because a sale is never refused over a stock-tracking discrepancy.
type Product struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Barcode       string              `json:"barcode"`
	Stock         int                 `json:"stock"`
	RetailPrice   decimal.Decimal     `json:"retail_price"`
	CostPrice     decimal.Decimal     `json:"cost_price"`
	ResellerPrice decimal.NullDecimal `json:"reseller_price"`
	Category      string              `json:"category,omitempty"`
	ModelNumber   string              `json:"model_number,omitempty"`
	Color         string              `json:"color,omitempty"`
	Battery       string              `json:"battery,omitempty"`
	Condition     string              `json:"condition,omitempty"`
	PhotoURL      string              `json:"photo_url,omitempty"`
}

// SaleLine is one product-quantity entry inside a sale request. A line with
// no ProductID is a manual line: it is recorded but moves no stock.
type SaleLine struct {
	ProductID   string `json:"product_id,omitempty"`
	Quantity    int    `json:"quantity"`
	DisplayName string `json:"display_name"`
	PriceTier   string `json:"price_tier"`
}

// SaleRequest is a multi-line sale. All lines commit atomically with their
// stock decrements, sharing a single business timestamp.
type SaleRequest struct {
	PaymentMethod string     `json:"payment_method"`
	CustomerID    string     `json:"customer_id,omitempty"`
	Lines         []SaleLine `json:"lines"`
}

// Sale is one persisted sale row: one row per (product, transaction) pair.
// No charged price is stored; reports re-derive it from the referenced
// product's current price fields by tier. ProductName is filled by the
// listing join and is empty on manual lines whose product was removed.
type Sale struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id,omitempty"`
	Quantity      int       `json:"quantity"`
	SoldAt        time.Time `json:"sold_at"`
	DisplayName   string    `json:"display_name"`
	PaymentMethod string    `json:"payment_method"`
	CustomerID    string    `json:"customer_id,omitempty"`
	PriceTier     string    `json:"price_tier"`
	ProductName   string    `json:"product_name,omitempty"`
}

// RepairOrder tracks a device through the shop. OrderNumber is the
// business-visible handle used for status updates; it is not enforced
// unique. Status is an open string, only checked for non-emptiness.
type RepairOrder struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	RepairType    string          `json:"repair_type"`
	Brand         string          `json:"brand"`
	Model         string          `json:"model"`
	Technician    string          `json:"technician"`
	QuotedAmount  decimal.Decimal `json:"quoted_amount"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Status        string          `json:"status"`
	ReceivedDate  time.Time       `json:"received_date"`
	ReceivedClock string          `json:"received_clock"`
}

// RepairStatusUpdate patches the status of all orders carrying OrderNumber.
// Updating a nonexistent order number succeeds as a no-op.
type RepairStatusUpdate struct {
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
}

// Expense is one outgoing cash movement in the append-only ledger.
type Expense struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method"`
}

// CashReport partitions period totals by payment method. Net cash per
// method is left to the caller so the report stays a pure projection.
type CashReport struct {
	Sold  map[string]decimal.Decimal `json:"sold"`
	Spent map[string]decimal.Decimal `json:"spent"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	PriceTierRetail   = "retail"
	PriceTierReseller = "reseller"
)

// RepairStatusInitial is the fixed status assigned at order creation.
const RepairStatusInitial = "awaiting repair"
