package domain

import "time"

type Product struct {
	ID            string `json:"id"`
	Barcode       string `json:"barcode"`
	Name          string `json:"name"`
	UnitCents     int64  `json:"unit_cents"`
	StockQuantity int    `json:"stock_quantity"`
	Category      string `json:"category,omitempty"`
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// CartLine is one product entry in a channel's cart. The product is a
// snapshot taken at resolve time; stock is re-validated on mutation and at
// commit, never trusted from the snapshot alone.
type CartLine struct {
	Product         Product `json:"product"`
	Quantity        int     `json:"quantity"`
	DiscountPercent int     `json:"discount_percent"`
	Note            string  `json:"note,omitempty"`
}

func (l CartLine) GrossCents() int64 {
	return l.Product.UnitCents * int64(l.Quantity)
}

func (l CartLine) DiscountCents() int64 {
	return l.GrossCents() * int64(l.DiscountPercent) / 100
}

func (l CartLine) NetCents() int64 {
	return l.GrossCents() - l.DiscountCents()
}

type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	NetCents      int64 `json:"net_cents"`
	ItemCount     int   `json:"item_count"`
}

type PaymentMethod string

const (
	PayCash      PaymentMethod = "cash"
	PayCard      PaymentMethod = "card"
	PayOnAccount PaymentMethod = "on_account"
)

type Payment struct {
	Method      PaymentMethod `json:"method"`
	AmountCents int64         `json:"amount_cents"`
}

type ChannelView struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Active      bool       `json:"active"`
	Lines       []CartLine `json:"lines"`
	Customer    *Customer  `json:"customer,omitempty"`
	Totals      Totals     `json:"totals"`
	CreatedAt   time.Time  `json:"created_at"`
}

type SaleLine struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
	NetCents  int64  `json:"net_cents"`
}

// Sale is the immutable committed transaction as returned by the remote
// sale store. The engine keeps at most the most recent one for receipts.
type Sale struct {
	ID          string     `json:"id"`
	Lines       []SaleLine `json:"lines"`
	Payments    []Payment  `json:"payments"`
	TotalCents  int64      `json:"total_cents"`
	ChangeCents int64      `json:"change_cents"`
	CustomerID  string     `json:"customer_id,omitempty"`
	CommittedAt time.Time  `json:"committed_at"`
}

// SaleRequest is the payload submitted to the remote sale store.
type SaleRequest struct {
	Lines      []SaleLine `json:"items"`
	Payments   []Payment  `json:"payments"`
	TotalCents int64      `json:"total_cents"`
	CustomerID string     `json:"customer_id,omitempty"`
}

type ScanOutcome string

const (
	ScanAdded      ScanOutcome = "added"
	ScanSuppressed ScanOutcome = "suppressed"
)

type ScanResult struct {
	Outcome ScanOutcome `json:"outcome"`
	Line    *CartLine   `json:"line,omitempty"`
}

type AuditEntry struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
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

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// SaleEvent is the message published to downstream consumers after a sale
// commits.
type SaleEvent struct {
	EventID     string    `json:"event_id"`
	SaleID      string    `json:"sale_id"`
	TotalCents  int64     `json:"total_cents"`
	ItemCount   int       `json:"item_count"`
	CustomerID  string    `json:"customer_id,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}

func IsSupportedPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PayCash, PayCard, PayOnAccount:
		return true
	}
	return false
}
