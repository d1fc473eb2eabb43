package domain

// Product is a sellable catalog entry consulted by the win dialog's line-item
// editor. Selecting one pre-fills the line's unit price and payment conditions.
type Product struct {
	ID                string
	Name              string
	DefaultPrice      float64
	PaymentConditions string
	IsActive          bool
}
