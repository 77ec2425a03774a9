package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/money"
)

// wireProduct is the remote catalog's JSON shape. Prices arrive as decimal
// amounts and are converted to cents at this boundary.
type wireProduct struct {
	ID            string          `json:"id"`
	Barcode       string          `json:"barcode"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	StockQuantity int             `json:"stockQuantity"`
	Category      string          `json:"category"`
}

func (w wireProduct) toDomain() (*domain.Product, error) {
	cents, err := money.FromDecimal(w.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", w.ID, err)
	}
	return &domain.Product{
		ID:            w.ID,
		Barcode:       w.Barcode,
		Name:          w.Name,
		UnitCents:     cents,
		StockQuantity: w.StockQuantity,
		Category:      w.Category,
	}, nil
}

// HTTPClient talks to the remote catalog REST API. Requests go through a
// circuit breaker so a dead backend fails fast instead of stalling every
// scan, and concurrent lookups for the same barcode are coalesced.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	sfg     singleflight.Group
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "catalog",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A 404 is a definitive answer from a healthy backend.
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

func (c *HTTPClient) LookupByBarcode(ctx context.Context, code string) (*domain.Product, error) {
	v, err, _ := c.sfg.Do("barcode:"+code, func() (interface{}, error) {
		body, err := c.get(ctx, "/products/barcode/"+url.PathEscape(code))
		if err != nil {
			return nil, err
		}
		var wire wireProduct
		if err := json.Unmarshal(body, &wire); err != nil {
			return nil, fmt.Errorf("%w: decode product: %v", ErrUnavailable, err)
		}
		return wire.toDomain()
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (c *HTTPClient) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	path := "/products?search=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var wires []wireProduct
	if err := json.Unmarshal(body, &wires); err != nil {
		return nil, fmt.Errorf("%w: decode product list: %v", ErrUnavailable, err)
	}
	products := make([]domain.Product, 0, len(wires))
	for _, wire := range wires {
		p, err := wire.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%w: catalog returned %d", ErrUnavailable, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, err
	}
	return body, nil
}
