package tui

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/nexocrm/funil/internal/app"
	"github.com/nexocrm/funil/internal/domain"
)

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// parseDecimal reads a money amount typed in either Brazilian ("1.234,50") or
// plain ("1234.50") notation.
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// winItemRow is one editable deal line item in the win dialog.
type winItemRow struct {
	productID   string
	productName string
	qty         textinput.Model
	price       textinput.Model
}

// winDialog collects the deal composition before a win commit.
type winDialog struct {
	opportunity domain.Opportunity
	rows        []winItemRow
	notes       textinput.Model
	focus       int
}

// newWinDialog seeds the dialog from the dropped opportunity: one line item at
// quantity 1 with the card value, and the default closing note.
func newWinDialog(opp domain.Opportunity) *winDialog {
	form := app.NewWinForm(opp)
	d := &winDialog{
		opportunity: opp,
		notes:       newModalInput("notes: ", "closing notes", form.Notes, 280),
	}
	for _, item := range form.Items {
		d.rows = append(d.rows, newWinItemRow("Item avulso", item))
	}
	if len(d.rows) > 0 {
		d.rows[0].qty.Focus()
	}
	return d
}

func newWinItemRow(name string, item domain.DealItem) winItemRow {
	qty := strconv.FormatFloat(item.Quantity, 'f', -1, 64)
	price := strconv.FormatFloat(item.UnitPrice, 'f', -1, 64)
	return winItemRow{
		productID:   item.ProductID,
		productName: name,
		qty:         newModalInput("qty: ", "1", qty, 6),
		price:       newModalInput("price: ", "0,00", price, 16),
	}
}

// inputCount returns how many focusable inputs the dialog holds.
func (d *winDialog) inputCount() int {
	return len(d.rows)*2 + 1
}

// focusIndex applies focus to the input at d.focus and blurs the rest.
func (d *winDialog) focusIndex(idx int) tea.Cmd {
	d.focus = clamp(idx, 0, d.inputCount()-1)
	var cmd tea.Cmd
	for i := range d.rows {
		d.rows[i].qty.Blur()
		d.rows[i].price.Blur()
	}
	d.notes.Blur()
	switch {
	case d.focus == len(d.rows)*2:
		cmd = d.notes.Focus()
	case d.focus%2 == 0:
		cmd = d.rows[d.focus/2].qty.Focus()
	default:
		cmd = d.rows[d.focus/2].price.Focus()
	}
	return cmd
}

// addItem appends a line item for the given product.
func (d *winDialog) addItem(product domain.Product) tea.Cmd {
	item, err := domain.NewDealItem(product.ID, 1, product.DefaultPrice)
	if err != nil {
		item = domain.DealItem{ProductID: product.ID, Quantity: 1, UnitPrice: product.DefaultPrice}
	}
	name := product.Name
	if strings.TrimSpace(name) == "" {
		name = "Item avulso"
	}
	d.rows = append(d.rows, newWinItemRow(name, item))
	return d.focusIndex((len(d.rows) - 1) * 2)
}

// removeFocusedItem deletes the line item under the cursor, keeping at least
// one row.
func (d *winDialog) removeFocusedItem() {
	if len(d.rows) <= 1 || d.focus >= len(d.rows)*2 {
		return
	}
	idx := d.focus / 2
	d.rows = append(d.rows[:idx], d.rows[idx+1:]...)
	d.focusIndex(clamp(idx*2, 0, d.inputCount()-1))
}

// handleInput routes a key press into the focused text input.
func (d *winDialog) handleInput(msg tea.KeyPressMsg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case d.focus == len(d.rows)*2:
		d.notes, cmd = d.notes.Update(msg)
	case d.focus%2 == 0:
		d.rows[d.focus/2].qty, cmd = d.rows[d.focus/2].qty.Update(msg)
	default:
		d.rows[d.focus/2].price, cmd = d.rows[d.focus/2].price.Update(msg)
	}
	return cmd
}

// Form parses the inputs into a validated win form.
func (d *winDialog) Form() (app.WinForm, error) {
	form := app.WinForm{Notes: strings.TrimSpace(d.notes.Value())}
	for _, row := range d.rows {
		qty, err := parseDecimal(row.qty.Value())
		if err != nil || qty <= 0 {
			return app.WinForm{}, fmt.Errorf("invalid quantity %q", row.qty.Value())
		}
		price, err := parseDecimal(row.price.Value())
		if err != nil {
			return app.WinForm{}, err
		}
		form.Items = append(form.Items, domain.DealItem{
			ProductID: row.productID,
			Quantity:  qty,
			UnitPrice: price,
		})
	}
	if err := form.Validate(); err != nil {
		return app.WinForm{}, err
	}
	return form, nil
}

// Total is the best-effort running total shown while editing.
func (d *winDialog) Total() float64 {
	total := 0.0
	for _, row := range d.rows {
		qty, err := parseDecimal(row.qty.Value())
		if err != nil {
			continue
		}
		price, err := parseDecimal(row.price.Value())
		if err != nil {
			continue
		}
		total += qty * price
	}
	return total
}

// view renders the win dialog overlay.
func (d *winDialog) view(accent, muted color.Color, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, 40, 72))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)

	lines := []string{
		titleStyle.Render("Fechar negócio: " + truncate(d.opportunity.DisplayName(), 40)),
		"",
	}
	for i, row := range d.rows {
		marker := "  "
		if d.focus/2 == i && d.focus < len(d.rows)*2 {
			marker = "│ "
		}
		lines = append(lines, marker+truncate(row.productName, 36))
		lines = append(lines, marker+row.qty.View()+"  "+row.price.View())
	}
	lines = append(lines,
		"",
		d.notes.View(),
		"",
		titleStyle.Render("Total: "+formatBRL(d.Total())),
		hintStyle.Render("tab next • ctrl+n add product • ctrl+d remove item • enter confirm • esc cancel"),
	)
	return style.Render(strings.Join(lines, "\n"))
}

// lossDialog collects the discard reason before a loss commit.
type lossDialog struct {
	opportunity domain.Opportunity
	reasons     []domain.DiscardReason
	index       int
	notes       textinput.Model
	notesFocus  bool
	loading     bool
}

func newLossDialog(opp domain.Opportunity) *lossDialog {
	return &lossDialog{
		opportunity: opp,
		notes:       newModalInput("notes: ", "optional loss notes", "", 280),
		loading:     true,
	}
}

// setReasons installs the fetched reason list.
func (d *lossDialog) setReasons(reasons []domain.DiscardReason) {
	d.reasons = reasons
	d.index = clamp(d.index, 0, len(reasons)-1)
	d.loading = false
}

// move shifts the reason cursor.
func (d *lossDialog) move(delta int) {
	d.index = clamp(d.index+delta, 0, len(d.reasons)-1)
}

// Form returns the validated loss form for the highlighted reason.
func (d *lossDialog) Form() (app.LossForm, error) {
	form := app.LossForm{Notes: strings.TrimSpace(d.notes.Value())}
	if d.index >= 0 && d.index < len(d.reasons) {
		form.ReasonID = d.reasons[d.index].ID
	}
	if err := form.Validate(); err != nil {
		return app.LossForm{}, err
	}
	return form, nil
}

// view renders the loss dialog overlay.
func (d *lossDialog) view(accent, muted color.Color, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, 40, 64))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	selStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	lines := []string{
		titleStyle.Render("Descartar: " + truncate(d.opportunity.DisplayName(), 40)),
		"",
	}
	switch {
	case d.loading:
		lines = append(lines, hintStyle.Render("loading reasons..."))
	case len(d.reasons) == 0:
		lines = append(lines, hintStyle.Render("(no reasons available)"))
	default:
		for idx, reason := range d.reasons {
			row := "  " + reason.Name
			if idx == d.index && !d.notesFocus {
				row = selStyle.Render("│ " + reason.Name)
			}
			lines = append(lines, row)
		}
	}
	lines = append(lines,
		"",
		d.notes.View(),
		hintStyle.Render("j/k choose • tab notes • enter confirm • esc cancel"),
	)
	return style.Render(strings.Join(lines, "\n"))
}

// card-form field indexes used for focused form actions.
const (
	cardFieldTitle = iota
	cardFieldValue
	cardFieldNotes
)

// cardForm creates or edits one opportunity.
type cardForm struct {
	editingID string
	stageID   string
	inputs    []textinput.Model
	focus     int
}

func newCardForm(opp *domain.Opportunity, stageID string) *cardForm {
	f := &cardForm{stageID: stageID}
	title, value, notes := "", "", ""
	if opp != nil {
		f.editingID = opp.ID
		f.stageID = opp.StageID
		title = opp.Title
		value = strconv.FormatFloat(opp.Value, 'f', -1, 64)
		notes = opp.Notes
	}
	f.inputs = []textinput.Model{
		newModalInput("title: ", "opportunity title", title, 120),
		newModalInput("value: ", "0,00", value, 16),
		newModalInput("notes: ", "optional notes", notes, 280),
	}
	f.inputs[cardFieldTitle].Focus()
	return f
}

// focusIndex applies focus to one field.
func (f *cardForm) focusIndex(idx int) tea.Cmd {
	f.focus = clamp(idx, 0, len(f.inputs)-1)
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

// handleInput routes a key press into the focused field.
func (f *cardForm) handleInput(msg tea.KeyPressMsg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// Input parses the form into an opportunity input.
func (f *cardForm) Input() (app.OpportunityInput, error) {
	title := strings.TrimSpace(f.inputs[cardFieldTitle].Value())
	if title == "" {
		return app.OpportunityInput{}, fmt.Errorf("title is required")
	}
	value, err := parseDecimal(f.inputs[cardFieldValue].Value())
	if err != nil {
		return app.OpportunityInput{}, err
	}
	return app.OpportunityInput{
		Title:   title,
		Value:   value,
		StageID: f.stageID,
		Notes:   strings.TrimSpace(f.inputs[cardFieldNotes].Value()),
	}, nil
}

// view renders the card form overlay.
func (f *cardForm) view(accent, muted color.Color, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, 36, 64))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)

	heading := "New opportunity"
	if f.editingID != "" {
		heading = "Edit opportunity"
	}
	lines := []string{titleStyle.Render(heading), ""}
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	lines = append(lines, "", hintStyle.Render("tab next field • enter save • esc cancel"))
	return style.Render(strings.Join(lines, "\n"))
}

// productPicker selects an existing product or creates one inline.
type productPicker struct {
	products []domain.Product
	index    int
	creating bool
	name     textinput.Model
	loading  bool
}

func newProductPicker() *productPicker {
	return &productPicker{
		name:    newModalInput("name: ", "new product name", "", 120),
		loading: true,
	}
}

// setProducts installs the fetched catalog.
func (p *productPicker) setProducts(products []domain.Product) {
	p.products = products
	p.index = clamp(p.index, 0, len(products)-1)
	p.loading = false
}

// move shifts the product cursor.
func (p *productPicker) move(delta int) {
	p.index = clamp(p.index+delta, 0, len(p.products)-1)
}

// selected returns the highlighted product.
func (p *productPicker) selected() (domain.Product, bool) {
	if p.index < 0 || p.index >= len(p.products) {
		return domain.Product{}, false
	}
	return p.products[p.index], true
}

// startCreate switches the picker to the inline-create input.
func (p *productPicker) startCreate() tea.Cmd {
	p.creating = true
	p.name.SetValue("")
	return p.name.Focus()
}

// view renders the product picker overlay.
func (p *productPicker) view(accent, muted color.Color, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, 36, 60))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	selStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)

	lines := []string{titleStyle.Render("Products"), ""}
	switch {
	case p.creating:
		lines = append(lines, p.name.View(), "", hintStyle.Render("enter create • esc back"))
	case p.loading:
		lines = append(lines, hintStyle.Render("loading products..."))
	case len(p.products) == 0:
		lines = append(lines, hintStyle.Render("(no products, press n to create one)"))
		lines = append(lines, "", hintStyle.Render("n new product • esc cancel"))
	default:
		for idx, product := range p.products {
			row := "  " + truncate(product.Name, 40) + "  " + formatBRL(product.DefaultPrice)
			if idx == p.index {
				row = selStyle.Render("│ " + truncate(product.Name, 40) + "  " + formatBRL(product.DefaultPrice))
			}
			lines = append(lines, row)
		}
		lines = append(lines, "", hintStyle.Render("j/k choose • enter add • n new product • esc cancel"))
	}
	return style.Render(strings.Join(lines, "\n"))
}
