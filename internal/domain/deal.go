package domain

import "strings"

// DealItem is one line of a closing deal: an optional product reference plus
// quantity and unit price. Items with zero quantity or price contribute zero
// to the deal total rather than failing; the win flow validates the total.
type DealItem struct {
	ProductID         string
	Quantity          float64
	UnitPrice         float64
	PaymentConditions string
	Notes             string
}

// NewDealItem constructs a validated deal line.
func NewDealItem(productID string, quantity, unitPrice float64) (DealItem, error) {
	if quantity < 0 {
		return DealItem{}, ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return DealItem{}, ErrInvalidPrice
	}
	return DealItem{
		ProductID: strings.TrimSpace(productID),
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}, nil
}

// Total is the line subtotal.
func (d DealItem) Total() float64 {
	return d.Quantity * d.UnitPrice
}

// DealTotal sums the line subtotals of a closing deal.
func DealTotal(items []DealItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total()
	}
	return sum
}
