package domain

import "time"

// CartLine is one product's entry in a cart. UnitPrice is snapshotted at
// first add and never re-read from the catalog for the life of the cart.
type CartLine struct {
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Selected  bool  `json:"selected"`
}

// Cart is a session-scoped collection of cart lines keyed by product ID.
// A session coupon code, if any, rides along with the cart until checkout.
type Cart struct {
	Lines      map[string]CartLine `json:"lines"`
	CouponCode string              `json:"coupon_code,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{Lines: make(map[string]CartLine)}
}

// Add creates or updates the line for productID. A new line snapshots
// unitPrice; an existing line keeps its original snapshot. With override the
// quantity is replaced, otherwise it is added to the existing value.
func (c *Cart) Add(productID string, unitPrice int64, quantity int, override bool) {
	if c.Lines == nil {
		c.Lines = make(map[string]CartLine)
	}
	line, ok := c.Lines[productID]
	if !ok {
		line = CartLine{UnitPrice: unitPrice, Selected: true}
	}
	if override {
		line.Quantity = quantity
	} else {
		line.Quantity += quantity
	}
	c.Lines[productID] = line
}

// Remove deletes the line for productID; no-op if absent.
func (c *Cart) Remove(productID string) {
	delete(c.Lines, productID)
}

// SetSelected marks exactly the given product IDs as selected and all other
// lines as unselected.
func (c *Cart) SetSelected(productIDs []string) {
	selected := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		selected[id] = struct{}{}
	}
	for id, line := range c.Lines {
		_, line.Selected = selected[id]
		c.Lines[id] = line
	}
}

// TotalPrice sums quantity times snapshot price over all lines.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// SelectedTotalPrice sums only the selected lines.
func (c *Cart) SelectedTotalPrice() int64 {
	var total int64
	for _, line := range c.Lines {
		if line.Selected {
			total += line.UnitPrice * int64(line.Quantity)
		}
	}
	return total
}

// LineCount returns the number of distinct products in the cart.
func (c *Cart) LineCount() int {
	return len(c.Lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clear drops all lines and any attached coupon.
func (c *Cart) Clear() {
	c.Lines = make(map[string]CartLine)
	c.CouponCode = ""
}
