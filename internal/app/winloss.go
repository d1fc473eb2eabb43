package app

import "github.com/nexocrm/funil/internal/domain"

// WinForm collects the closing data for a move into the win stage: one or more
// deal lines plus optional closure notes. The derived total becomes the
// opportunity's final value.
type WinForm struct {
	Items []domain.DealItem
	Notes string
}

// NewWinForm seeds the dialog. The first line is pre-filled with the
// opportunity's current value when it has one.
func NewWinForm(opp domain.Opportunity) WinForm {
	item := domain.DealItem{Quantity: 1}
	if opp.Value > 0 {
		item.UnitPrice = opp.Value
	}
	return WinForm{Items: []domain.DealItem{item}}
}

// Total is the derived deal value across all lines.
func (f WinForm) Total() float64 {
	return domain.DealTotal(f.Items)
}

// Validate blocks submission locally when the deal total is not positive.
// No network call is issued for an invalid form.
func (f WinForm) Validate() error {
	if f.Total() <= 0 {
		return ErrZeroDealValue
	}
	return nil
}

// LossForm collects the loss reason and optional free-text notes for a move
// into the loss stage.
type LossForm struct {
	ReasonID string
	Notes    string
}

// Validate blocks submission locally when no reason is selected.
func (f LossForm) Validate() error {
	if f.ReasonID == "" {
		return ErrNoLossReason
	}
	return nil
}
