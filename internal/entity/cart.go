package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutLine is one requested purchase: a font and a quantity.
type CheckoutLine struct {
	FontID   string `json:"fontId"`
	Quantity int    `json:"quantity"`
}

// Cart folds cart lines into one entry per font, summing quantities.
type Cart struct {
	UserID string
	Items  map[string]*CartItem
	order  []string
}

// NewCart creates an empty cart for userID.
func NewCart(userID string) *Cart {
	return &Cart{
		UserID: userID,
		Items:  make(map[string]*CartItem),
	}
}

// Add merges a line into the cart. Non-positive quantities are ignored.
func (c *Cart) Add(item CartItem) {
	if item.Quantity <= 0 {
		return
	}
	if existing, ok := c.Items[item.FontID]; ok {
		existing.Quantity += item.Quantity
		return
	}
	c.Items[item.FontID] = &item
	c.order = append(c.order, item.FontID)
}

// Lines returns the merged lines in first-seen order.
func (c *Cart) Lines() []CheckoutLine {
	lines := make([]CheckoutLine, 0, len(c.order))
	for _, id := range c.order {
		lines = append(lines, CheckoutLine{FontID: id, Quantity: c.Items[id].Quantity})
	}
	return lines
}

// Total sums the effective price of every line whose font is loaded.
func (c *Cart) Total(now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		if item.Font == nil {
			continue
		}
		total = total.Add(item.Font.EffectivePrice(now).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// SellerIDs returns the distinct sellers of the loaded fonts, sorted.
func (c *Cart) SellerIDs() []string {
	seen := make(map[string]struct{})
	for _, item := range c.Items {
		if item.Font != nil {
			seen[item.Font.SellerID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
