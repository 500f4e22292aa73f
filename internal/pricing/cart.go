package pricing

import (
	"sync"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	MRP           *decimal.Decimal `json:"mrp,omitempty"`
	Quantity      int              `json:"quantity"`
	Size          string           `json:"size"`
	ShippingPrice *decimal.Decimal `json:"shippingPrice,omitempty"`
}

func (i Item) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) Shipping() decimal.Decimal {
	if i.ShippingPrice == nil {
		return decimal.Zero
	}
	return i.ShippingPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a list of items keyed by product id. A line never holds a zero quantity.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

func NewCart(items ...Item) *Cart {
	c := &Cart{}
	for _, it := range items {
		c.upsert(it)
	}
	return c
}

// SetSize rewrites the product's line from a size string. It returns false when
// the size parses to zero and the line was removed.
func (c *Cart) SetSize(p Product, size string) bool {
	line := PriceLine(p, size)
	if line.Quantity == 0 {
		c.Remove(p.ID)
		return false
	}

	it := Item{
		ID:       p.ID,
		Name:     p.Name,
		Price:    line.UnitPrice,
		Quantity: line.Quantity,
		Size:     size,
	}
	if p.MRP != nil {
		mrp := *p.MRP
		it.MRP = &mrp
	}
	if p.ShippingPrice != nil {
		sp := *p.ShippingPrice
		it.ShippingPrice = &sp
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsert(it)
	return true
}

// SetQuantity sets a line's quantity, removing the line when q <= 0.
func (c *Cart) SetQuantity(id string, q int) {
	if q <= 0 {
		c.Remove(id)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = ClampQuantity(q)
			return
		}
	}
}

func (c *Cart) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	for _, it := range c.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) Quantity(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.ID == id {
			return it.Quantity
		}
	}
	return 0
}

func (c *Cart) Count() int {
	total := 0
	for _, it := range c.Items() {
		total += it.Quantity
	}
	return total
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items() {
		total = total.Add(it.Total())
	}
	return total
}

func (c *Cart) ShippingTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items() {
		total = total.Add(it.Shipping())
	}
	return total
}

// Total is what the buyer is charged: subtotal plus shipping.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Add(c.ShippingTotal())
}

// upsert must be called with mu held (or before the cart is shared).
func (c *Cart) upsert(it Item) {
	it.Quantity = ClampQuantity(it.Quantity)
	if it.Quantity == 0 {
		return
	}
	for i := range c.items {
		if c.items[i].ID == it.ID {
			c.items[i] = it
			return
		}
	}
	c.items = append(c.items, it)
}
