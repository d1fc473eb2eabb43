package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/nexocrm/funil/internal/domain"
)

// View renders the current view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready || m.board == nil {
		v := tea.NewView(m.spin.View() + " loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	pipeline := m.board.Pipeline()
	header := titleStyle.Render("funil") + "  " + pipeline.Name
	header += statusStyle.Render("  [" + m.modeLabel() + "]")
	if m.searchQuery != "" {
		header += statusStyle.Render("  search: " + truncate(m.searchQuery, 32))
	}
	if _, dragging := m.board.Dragging(); dragging {
		header += statusStyle.Render("  moving card")
	}

	var mainArea string
	if m.mode == modeList {
		mainArea = m.renderListTable(accent, muted, dim)
	} else {
		mainArea = m.renderColumns(accent, muted, dim)
	}

	sections := []string{header, "", mainArea}
	if m.celebration > 0 {
		sections = append(sections, renderSparkles(m.rng, max(20, m.width-4), "Negócio fechado!"))
	}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		helpHeight := lipgloss.Height(helpLine)
		content = fitLines(content, max(0, m.height-helpHeight))
	}

	fullContent := content + "\n" + helpLine
	overlay := m.renderModeOverlay(accent, muted, m.width-8)
	if m.help.ShowAll {
		overlay = m.renderHelpOverlay(accent, muted, dim)
	}
	if overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	view := tea.NewView(fullContent)
	view.AltScreen = true
	return view
}

// modeLabel returns the short mode tag for the header.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeSearch:
		return "search"
	case modeWinDialog:
		return "win"
	case modeLossDialog:
		return "loss"
	case modeCardInfo:
		return "info"
	case modeCardForm:
		return "edit"
	case modeProductPicker:
		return "products"
	case modePipelinePicker:
		return "pipelines"
	case modeList:
		return "list"
	default:
		return "board"
	}
}

// columnWidthFor splits the terminal width across the pipeline's stages.
func (m Model) columnWidthFor(boardWidth int) int {
	count := len(m.stages())
	if count == 0 {
		count = 1
	}
	width := boardWidth/count - 3
	return clamp(width, 18, 44)
}

// columnHeight returns the outer column height.
func (m Model) columnHeight() int {
	if m.height <= 0 {
		return 24
	}
	return max(8, m.height-7)
}

// renderColumns renders the kanban columns side by side.
func (m Model) renderColumns(accent, muted, dim color.Color) string {
	stages := m.stages()
	if len(stages) == 0 {
		return "(empty pipeline)"
	}

	draggedID, dragging := m.board.Dragging()

	colWidth := m.columnWidthFor(m.width)
	colHeight := m.columnHeight()
	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 2).
		MarginRight(1).
		Width(colWidth)
	selColStyle := baseColStyle.Copy().BorderForeground(accent)
	targetColStyle := baseColStyle.Copy().BorderForeground(lipgloss.Color("212"))
	normColStyle := baseColStyle.Copy()
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	totalStyle := lipgloss.NewStyle().Foreground(muted)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	selectedCardStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	draggedCardStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("237")).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(muted)
	moreStyle := lipgloss.NewStyle().Foreground(dim)

	columnViews := make([]string, 0, len(stages))
	for colIdx, stage := range stages {
		cards := m.board.Store().ByStage(stage.ID)
		pager := m.board.Pager()
		remoteTotal := pager.RemoteTotal(stage.ID)

		headerLines := []string{
			colTitle.Render(fmt.Sprintf("%s (%d/%d)", stage.Name, len(cards), max(remoteTotal, len(cards)))),
			totalStyle.Render(formatBRL(columnValue(cards))),
		}

		cardLines := make([]string, 0, max(1, len(cards)*3))
		selectedStart, selectedEnd := -1, -1
		if len(cards) == 0 {
			cardLines = append(cardLines, emptyStyle.Render("(empty)"))
		} else {
			for cardIdx, card := range cards {
				selected := colIdx == m.selectedColumn && cardIdx == m.selectedCard && m.mode != modeList
				isDragged := dragging && card.ID == draggedID

				prefix := "   "
				if selected {
					prefix = "│  "
				}
				title := prefix + truncate(card.DisplayName(), max(1, colWidth-10))
				sub := prefix + subStyle.Render(truncate(cardSecondary(card), max(1, colWidth-10)))
				switch {
				case isDragged:
					title = draggedCardStyle.Render(title)
				case selected:
					title = selectedCardStyle.Render(title)
				}

				rowStart := len(cardLines)
				cardLines = append(cardLines, title, sub)
				if cardIdx < len(cards)-1 {
					cardLines = append(cardLines, "")
				}
				if selected {
					selectedStart = rowStart
					selectedEnd = len(cardLines) - 1
				}
			}
		}
		if pager.HasMore(stage.ID) {
			label := "… more"
			if pager.InFlight(stage.ID) {
				label = "… loading"
			}
			cardLines = append(cardLines, "", moreStyle.Render(label))
		}

		innerHeight := max(1, colHeight-4)
		windowHeight := max(1, innerHeight-len(headerLines))
		scrollTop := m.scroll.Offset(stage.ID) * 3
		if colIdx == m.selectedColumn && selectedStart >= 0 {
			if selectedEnd >= scrollTop+windowHeight {
				scrollTop = selectedEnd - windowHeight + 1
			}
			if selectedStart < scrollTop {
				scrollTop = selectedStart
			}
		}
		scrollTop = clamp(scrollTop, 0, max(0, len(cardLines)-windowHeight))
		if len(cardLines) > windowHeight {
			cardLines = cardLines[scrollTop : scrollTop+windowHeight]
		}
		if len(cardLines) < windowHeight {
			cardLines = append(cardLines, make([]string, windowHeight-len(cardLines))...)
		}

		lines := append(append([]string{}, headerLines...), cardLines...)
		content := fitLines(strings.Join(lines, "\n"), innerHeight)
		switch {
		case dragging && colIdx == m.grabTarget:
			columnViews = append(columnViews, targetColStyle.Render(content))
		case colIdx == m.selectedColumn:
			columnViews = append(columnViews, selColStyle.Render(content))
		default:
			columnViews = append(columnViews, normColStyle.Render(content))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)
}

// columnValue sums the loaded card values of one column.
func columnValue(cards []domain.Opportunity) float64 {
	total := 0.0
	for _, card := range cards {
		total += card.Value
	}
	return total
}

// cardSecondary builds the one-line card subtitle.
func cardSecondary(card domain.Opportunity) string {
	parts := []string{formatBRL(card.Value)}
	if owner := strings.TrimSpace(card.OwnerName); owner != "" {
		parts = append(parts, owner)
	}
	if company := strings.TrimSpace(card.ContactCompany); company != "" {
		parts = append(parts, company)
	}
	return strings.Join(parts, " • ")
}

// renderListTable renders the table-view alternative to the columns.
func (m Model) renderListTable(accent, muted, dim color.Color) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	rowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selRowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(muted)

	stageNames := map[string]string{}
	for _, stage := range m.stages() {
		stageNames[stage.ID] = stage.Name
	}

	titleW := clamp(m.width/3, 16, 48)
	line := func(title, value, stage, created string) string {
		return fmt.Sprintf("%-*s  %14s  %-14s  %s",
			titleW, truncate(title, titleW), value, truncate(stage, 14), created)
	}

	sortTag := m.list.SortField + " " + m.list.SortDirection
	lines := []string{
		headerStyle.Render(line("opportunity", "value", "stage", "created")),
		mutedStyle.Render("sort: " + sortTag + " • 1 created 2 value 3 title 4 stage • [ ] pages • v back"),
		"",
	}
	if m.listLoading {
		lines = append(lines, mutedStyle.Render(m.spin.View()+" loading..."))
	} else if len(m.listPage.Opportunities) == 0 {
		lines = append(lines, mutedStyle.Render("(no opportunities)"))
	}
	for idx, opp := range m.listPage.Opportunities {
		stageName := stageNames[opp.StageID]
		if stageName == "" {
			stageName = opp.StageID
		}
		created := ""
		if !opp.CreatedAt.IsZero() {
			created = opp.CreatedAt.Format("2006-01-02")
		}
		row := line(opp.DisplayName(), formatBRL(opp.Value), stageName, created)
		if idx == m.listIndex {
			lines = append(lines, selRowStyle.Render("│ "+row))
		} else {
			lines = append(lines, rowStyle.Render("  "+row))
		}
	}
	lines = append(lines, "", mutedStyle.Render(fmt.Sprintf("page %d/%d • %d total",
		m.listPage.Page, max(1, m.listPage.TotalPages), m.listPage.Total)))
	return strings.Join(lines, "\n")
}

// renderModeOverlay renders the active modal, or "" when none is open.
func (m Model) renderModeOverlay(accent, muted color.Color, maxWidth int) string {
	switch m.mode {
	case modeSearch:
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
		hint := lipgloss.NewStyle().Foreground(muted).Render("enter apply • esc close")
		return style.Render(m.searchInput.View() + "\n" + hint)
	case modeWinDialog:
		if m.win == nil {
			return ""
		}
		return m.win.view(accent, muted, maxWidth)
	case modeLossDialog:
		if m.loss == nil {
			return ""
		}
		return m.loss.view(accent, muted, maxWidth)
	case modeProductPicker:
		if m.picker == nil {
			return ""
		}
		return m.picker.view(accent, muted, maxWidth)
	case modeCardForm:
		if m.form == nil {
			return ""
		}
		return m.form.view(accent, muted, maxWidth)
	case modeCardInfo:
		return m.renderCardInfo(accent, muted, maxWidth)
	case modePipelinePicker:
		return m.renderPipelinePicker(accent, muted, maxWidth)
	default:
		return ""
	}
}

// renderCardInfo renders the read-only card detail overlay.
func (m Model) renderCardInfo(accent, muted color.Color, maxWidth int) string {
	opp, ok := m.infoOpportunity()
	if !ok {
		return ""
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	width := clamp(maxWidth, 40, 72)
	if maxWidth > 0 {
		style = style.Width(width)
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle := lipgloss.NewStyle().Foreground(muted)

	lines := []string{
		titleStyle.Render(truncate(opp.DisplayName(), width-4)),
		labelStyle.Render("value: ") + formatBRL(opp.Value),
	}
	if opp.Title != "" && opp.Title != opp.DisplayName() {
		lines = append(lines, labelStyle.Render("title: ")+truncate(opp.Title, width-12))
	}
	if opp.ContactCompany != "" {
		lines = append(lines, labelStyle.Render("company: ")+truncate(opp.ContactCompany, width-14))
	}
	if opp.ContactEmail != "" {
		lines = append(lines, labelStyle.Render("email: ")+opp.ContactEmail)
	}
	if opp.ContactPhone != "" {
		lines = append(lines, labelStyle.Render("phone: ")+opp.ContactPhone)
	}
	if opp.OwnerName != "" {
		lines = append(lines, labelStyle.Render("owner: ")+opp.OwnerName)
	}
	if len(opp.Tags) > 0 {
		names := make([]string, 0, len(opp.Tags))
		for _, tag := range opp.Tags {
			names = append(names, tag.Name)
		}
		lines = append(lines, labelStyle.Render("tags: ")+truncate(strings.Join(names, ", "), width-10))
	}
	if !opp.CreatedAt.IsZero() {
		lines = append(lines, labelStyle.Render("created: ")+opp.CreatedAt.Format("2006-01-02 15:04"))
	}
	if notes := strings.TrimSpace(opp.Notes); notes != "" {
		lines = append(lines, "", m.md.render(notes, width-4))
	}
	lines = append(lines, "", labelStyle.Render("y copy email • esc close"))
	return style.Render(strings.Join(lines, "\n"))
}

// renderPipelinePicker renders the pipeline switch overlay.
func (m Model) renderPipelinePicker(accent, muted color.Color, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, 30, 48))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	hintStyle := lipgloss.NewStyle().Foreground(muted)

	lines := []string{titleStyle.Render("Pipelines")}
	for idx, pipeline := range m.pipelines {
		label := "  " + truncate(pipeline.Name, 36)
		if idx == m.pipelinePickerIndex {
			label = selStyle.Render("│ " + truncate(pipeline.Name, 36))
		}
		lines = append(lines, label)
	}
	lines = append(lines, "", hintStyle.Render("enter switch • esc close"))
	return style.Render(strings.Join(lines, "\n"))
}

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(accent, muted, dim color.Color) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)

	helpBubble := m.help
	helpBubble.ShowAll = true
	helpBubble.SetWidth(max(0, m.width-10))
	return style.Render(titleStyle.Render("Keys") + "\n" + helpBubble.View(m.keys))
}
