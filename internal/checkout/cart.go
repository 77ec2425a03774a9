package checkout

import (
	"fmt"

	"lanepos/backend/internal/domain"
)

// cart owns the ordered line items of one channel. Lines are unique per
// product id; order is insertion order. All methods assume the engine lock
// is held.
type cart struct {
	lines []domain.CartLine
}

func (c *cart) findLine(productID string) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// addOrIncrement appends a new line with quantity 1, or bumps an existing
// line by 1 if the product's stock allows it. The stock bound is checked
// against the freshest snapshot available; on rejection the line is left
// untouched.
func (c *cart) addOrIncrement(product domain.Product) (*domain.CartLine, error) {
	if product.StockQuantity <= 0 {
		return nil, ErrOutOfStock
	}

	idx := c.findLine(product.ID)
	if idx < 0 {
		c.lines = append(c.lines, domain.CartLine{Product: product, Quantity: 1})
		return &c.lines[len(c.lines)-1], nil
	}

	line := &c.lines[idx]
	// Refresh the snapshot so a remote restock is picked up on the next scan.
	line.Product = product
	if line.Quantity+1 > product.StockQuantity {
		return nil, fmt.Errorf("%w: %s has %d in stock", ErrInsufficientStock, product.Name, product.StockQuantity)
	}
	line.Quantity++
	return line, nil
}

// setQuantity removes the line when qty <= 0, otherwise updates it subject
// to the stock bound captured in the line's product snapshot.
func (c *cart) setQuantity(productID string, qty int) error {
	idx := c.findLine(productID)
	if idx < 0 {
		return ErrProductNotFound
	}
	if qty <= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return nil
	}
	line := &c.lines[idx]
	if qty > line.Product.StockQuantity {
		return fmt.Errorf("%w: %s has %d in stock", ErrInsufficientStock, line.Product.Name, line.Product.StockQuantity)
	}
	line.Quantity = qty
	return nil
}

func (c *cart) removeLine(productID string) error {
	idx := c.findLine(productID)
	if idx < 0 {
		return ErrProductNotFound
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

func (c *cart) applyDiscount(productID string, percent int, note string) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidDiscount, percent)
	}
	idx := c.findLine(productID)
	if idx < 0 {
		return ErrProductNotFound
	}
	c.lines[idx].DiscountPercent = percent
	c.lines[idx].Note = note
	return nil
}

func (c *cart) clear() {
	c.lines = nil
}

func (c *cart) empty() bool {
	return len(c.lines) == 0
}

// totals is recomputed from the lines on every call, never cached.
func (c *cart) totals() domain.Totals {
	var t domain.Totals
	for _, line := range c.lines {
		t.SubtotalCents += line.GrossCents()
		t.DiscountCents += line.DiscountCents()
		t.ItemCount += line.Quantity
	}
	t.NetCents = t.SubtotalCents - t.DiscountCents
	return t
}

func (c *cart) snapshot() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}
