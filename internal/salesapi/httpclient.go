package salesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/money"
)

// wireSaleItem matches the backend's POST /sales item shape; unit prices go
// over the wire as decimal amounts.
type wireSaleItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type wirePayment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type wireSaleRequest struct {
	Items         []wireSaleItem  `json:"items"`
	Payments      []wirePayment   `json:"payments"`
	PaymentMethod string          `json:"paymentMethod"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CustomerID    string          `json:"customerId,omitempty"`
}

type wireSaleResponse struct {
	ID          string          `json:"id"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type wireCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateSale(ctx context.Context, req domain.SaleRequest, idempotencyToken string) (*domain.Sale, error) {
	wire := wireSaleRequest{
		Items:         make([]wireSaleItem, 0, len(req.Lines)),
		Payments:      make([]wirePayment, 0, len(req.Payments)),
		PaymentMethod: paymentMethodLabel(req.Payments),
		TotalAmount:   money.ToDecimal(req.TotalCents),
		CustomerID:    req.CustomerID,
	}
	for _, line := range req.Lines {
		wire.Items = append(wire.Items, wireSaleItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: money.ToDecimal(line.UnitCents),
		})
	}
	for _, p := range req.Payments {
		wire.Payments = append(wire.Payments, wirePayment{
			Method: string(p.Method),
			Amount: money.ToDecimal(p.AmountCents),
		})
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: encode sale: %v", ErrRejected, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sales", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", idempotencyToken)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fallthrough to decode
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: sale store returned %d", ErrTransport, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: %s", ErrRejected, rejectionMessage(body, resp.StatusCode))
	}

	var committed wireSaleResponse
	if err := json.Unmarshal(body, &committed); err != nil {
		return nil, fmt.Errorf("%w: decode sale response: %v", ErrTransport, err)
	}
	totalCents, err := money.FromDecimal(committed.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	sale := &domain.Sale{
		ID:          committed.ID,
		Lines:       req.Lines,
		Payments:    req.Payments,
		TotalCents:  totalCents,
		CustomerID:  req.CustomerID,
		CommittedAt: committed.CreatedAt,
	}
	if sale.CommittedAt.IsZero() {
		sale.CommittedAt = time.Now().UTC()
	}
	return sale, nil
}

func (c *HTTPClient) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/customers", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: customer list returned %d", ErrTransport, resp.StatusCode)
	}

	var wires []wireCustomer
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&wires); err != nil {
		return nil, fmt.Errorf("%w: decode customers: %v", ErrTransport, err)
	}
	customers := make([]domain.Customer, 0, len(wires))
	for _, w := range wires {
		customers = append(customers, domain.Customer{ID: w.ID, Name: w.Name, Phone: w.Phone})
	}
	return customers, nil
}

// paymentMethodLabel compresses the payment list into the single method
// field older backends expect: the method itself for a single tender,
// "mixed" otherwise.
func paymentMethodLabel(payments []domain.Payment) string {
	if len(payments) == 1 {
		return string(payments[0].Method)
	}
	return "mixed"
}

func rejectionMessage(body []byte, status int) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return fmt.Sprintf("status %d", status)
}
