// Package pricing computes discounted unit prices, size-string quantities,
// line and cart totals for the storefront catalog.
package pricing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps the quantity of a single cart line.
const MaxQuantity = 999999

var (
	digitRuns     = regexp.MustCompile(`[0-9]+`)
	hundred       = decimal.NewFromInt(100)
	mrpMultiplier = decimal.RequireFromString("1.2")
)

type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	Discount      decimal.Decimal // percent
	MRP           *decimal.Decimal
	MOQ           int
	ShippingPrice *decimal.Decimal
}

// ParseQuantity sums every digit run in size ("S:10, M:5" -> 15), clamped to [0, MaxQuantity].
func ParseQuantity(size string) int {
	total := 0
	for _, run := range digitRuns.FindAllString(size, -1) {
		run = strings.TrimLeft(run, "0")
		if run == "" {
			continue
		}
		if len(run) > len(strconv.Itoa(MaxQuantity)) {
			return MaxQuantity
		}
		n, err := strconv.Atoi(run)
		if err != nil {
			return MaxQuantity
		}
		total += n
		if total >= MaxQuantity {
			return MaxQuantity
		}
	}
	return total
}

// ClampQuantity bounds q to [0, MaxQuantity].
func ClampQuantity(q int) int {
	switch {
	case q < 0:
		return 0
	case q > MaxQuantity:
		return MaxQuantity
	default:
		return q
	}
}

// DiscountedUnitPrice returns round(price * (1 - discount/100)). Discount is clamped to [0, 100].
func DiscountedUnitPrice(price, discount decimal.Decimal) decimal.Decimal {
	if price.IsNegative() {
		price = decimal.Zero
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(hundred) {
		discount = hundred
	}
	factor := decimal.NewFromInt(1).Sub(discount.Div(hundred))
	return price.Mul(factor).Round(0)
}

// DefaultMRP is the reference price shown when the catalog has none.
func DefaultMRP(discounted decimal.Decimal) decimal.Decimal {
	return discounted.Mul(mrpMultiplier).Round(0)
}

type Line struct {
	ProductID     string          `json:"productId"`
	Name          string          `json:"name"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	MRP           decimal.Decimal `json:"mrp"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
	LineMRPTotal  decimal.Decimal `json:"lineMrpTotal"`
	LineShipping  decimal.Decimal `json:"lineShipping"`
	MOQ           int             `json:"moq"`
	BelowMOQ      bool            `json:"belowMoq"`
}

func PriceLine(p Product, size string) Line {
	qty := ParseQuantity(size)
	unit := DiscountedUnitPrice(p.Price, p.Discount)

	mrp := DefaultMRP(unit)
	if p.MRP != nil && p.MRP.IsPositive() {
		mrp = *p.MRP
	}
	shipping := decimal.Zero
	if p.ShippingPrice != nil {
		shipping = *p.ShippingPrice
	}
	moq := p.MOQ
	if moq <= 0 {
		moq = 1
	}

	q := decimal.NewFromInt(int64(qty))
	return Line{
		ProductID:     p.ID,
		Name:          p.Name,
		Size:          size,
		Quantity:      qty,
		UnitPrice:     unit,
		MRP:           mrp,
		ShippingPrice: shipping,
		LineTotal:     unit.Mul(q),
		LineMRPTotal:  mrp.Mul(q),
		LineShipping:  shipping.Mul(q),
		MOQ:           moq,
		BelowMOQ:      qty < moq,
	}
}

// CheckMOQ blocks "buy now" for a line under its minimum order quantity.
// Adding the line to the cart is still allowed.
func CheckMOQ(l Line) error {
	if l.BelowMOQ {
		return fmt.Errorf("minimum order quantity for %s is %d, you selected %d", l.Name, l.MOQ, l.Quantity)
	}
	return nil
}

type MinimumPurchaseError struct {
	Current  decimal.Decimal
	Required decimal.Decimal
}

func (e *MinimumPurchaseError) Deficit() decimal.Decimal {
	return e.Required.Sub(e.Current)
}

func (e *MinimumPurchaseError) Error() string {
	return fmt.Sprintf(
		"Your current order total is Rs %s. A minimum order of Rs %s is required to checkout.",
		e.Current.String(), e.Required.String(),
	)
}

// CheckMinimumPurchase returns a *MinimumPurchaseError when total is under minimum.
func CheckMinimumPurchase(total, minimum decimal.Decimal) error {
	if total.LessThan(minimum) {
		return &MinimumPurchaseError{Current: total, Required: minimum}
	}
	return nil
}
