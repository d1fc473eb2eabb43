package tui

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"github.com/nexocrm/funil/internal/app"
	"github.com/nexocrm/funil/internal/domain"
)

// Service names the board operations the TUI consumes.
type Service interface {
	ListPipelines(ctx context.Context) ([]domain.Pipeline, error)
	LoadBoard(ctx context.Context, pipelineID, search string) (*app.Board, error)
	LoadMore(ctx context.Context, b *app.Board, stageID string) (int, error)
	Drop(b *app.Board, oppID, targetStageID string) (app.DropDecision, error)
	CommitMove(ctx context.Context, b *app.Board, oppID, targetStageID string) (bool, error)
	ConfirmWin(ctx context.Context, b *app.Board, form app.WinForm) (domain.Opportunity, error)
	ConfirmLoss(ctx context.Context, b *app.Board, form app.LossForm) (domain.Opportunity, error)
	CancelPending(b *app.Board)
	Reorder(ctx context.Context, orderedIDs []string) error
	LoadDiscardReasons(ctx context.Context) ([]domain.DiscardReason, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, name string) (domain.Product, error)
	ListPage(ctx context.Context, pipelineID string, state app.ListState) (app.OpportunityPage, error)
	CreateOpportunity(ctx context.Context, pipelineID string, in app.OpportunityInput) (domain.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, in app.OpportunityInput) (domain.Opportunity, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeSearch
	modeWinDialog
	modeLossDialog
	modeCardInfo
	modeCardForm
	modeProductPicker
	modePipelinePicker
	modeList
)

// searchDebounce is how long typing pauses before the board reloads.
const searchDebounce = 300 * time.Millisecond

// Option configures optional model settings.
type Option func(*Model)

// WithRevealRows sets how many rows past the loaded tail stay reachable, which
// is what keeps the load-more trigger in view.
func WithRevealRows(rows int) Option {
	return func(m *Model) {
		if rows >= 0 {
			m.revealRows = rows
		}
	}
}

// WithListPageSize sets the table-view page size.
func WithListPageSize(size int) Option {
	return func(m *Model) {
		if size > 0 {
			m.listPageSize = size
		}
	}
}

// WithInitialPipeline preselects a pipeline by id on first load.
func WithInitialPipeline(id string) Option {
	return func(m *Model) {
		m.initialPipelineID = strings.TrimSpace(id)
	}
}

// WithKeyConfig applies user-configured binding overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap
	spin spinner.Model

	pipelines         []domain.Pipeline
	selectedPipeline  int
	initialPipelineID string

	board          *app.Board
	scroll         *scrollKeeper
	selectedColumn int
	selectedCard   int
	grabTarget     int

	mode inputMode

	searchInput textinput.Model
	searchQuery string
	searchSeq   int

	win    *winDialog
	loss   *lossDialog
	form   *cardForm
	picker *productPicker

	pipelinePickerIndex int
	infoCardID          string
	md                  markdownRenderer

	list        app.ListState
	listPage    app.OpportunityPage
	listIndex   int
	listLoading bool

	celebration int
	rng         *rand.Rand

	revealRows   int
	listPageSize int
}

// pipelinesLoadedMsg carries message data through update handling.
type pipelinesLoadedMsg struct {
	pipelines []domain.Pipeline
	err       error
}

// boardLoadedMsg carries one freshly loaded board session.
type boardLoadedMsg struct {
	board *app.Board
	err   error
}

// moreLoadedMsg carries one appended column page.
type moreLoadedMsg struct {
	sessionID string
	stageID   string
	added     int
	err       error
}

// commitDoneMsg carries the outcome of an optimistic move commit.
type commitDoneMsg struct {
	sessionID string
	reload    bool
	err       error
}

// confirmDoneMsg carries the outcome of a win or loss confirmation.
type confirmDoneMsg struct {
	sessionID string
	win       bool
	opp       domain.Opportunity
	err       error
}

// reasonsLoadedMsg carries the discard reasons for the loss dialog.
type reasonsLoadedMsg struct {
	sessionID string
	reasons   []domain.DiscardReason
	err       error
}

// productsLoadedMsg carries the product catalog for the win dialog.
type productsLoadedMsg struct {
	products []domain.Product
	err      error
}

// productCreatedMsg carries one inline-created product.
type productCreatedMsg struct {
	product domain.Product
	err     error
}

// savedMsg carries the outcome of a create/edit form submit.
type savedMsg struct {
	opp     domain.Opportunity
	created bool
	err     error
}

// reorderDoneMsg carries the outcome of a within-column reorder.
type reorderDoneMsg struct {
	sessionID string
	err       error
}

// listPageMsg carries one table-view page.
type listPageMsg struct {
	page app.OpportunityPage
	err  error
}

// searchDebounceMsg fires when the typing pause elapses.
type searchDebounceMsg struct {
	seq int
}

// celebrateTickMsg advances the win celebration animation.
type celebrateTickMsg struct{}

// scrollRestoreMsg triggers one scroll reapply attempt after a reload.
type scrollRestoreMsg struct {
	sessionID string
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	searchInput := textinput.New()
	searchInput.Prompt = "/ "
	searchInput.Placeholder = "contact, company, title"
	searchInput.CharLimit = 120
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	m := Model{
		svc:          svc,
		status:       "loading...",
		help:         h,
		keys:         newKeyMap(),
		spin:         sp,
		searchInput:  searchInput,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		revealRows:   4,
		listPageSize: app.DefaultListPageSize,
	}
	m.scroll = newScrollKeeper(m.revealRows)
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.scroll.revealRows = m.revealRows
	m.list = app.NewListState(m.listPageSize)
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadPipelines
}

// sessionID returns the live board session id, or empty without a board.
func (m Model) sessionID() string {
	if m.board == nil {
		return ""
	}
	return m.board.Session().ID
}

// stale reports whether a message belongs to a superseded board session.
func (m Model) stale(sessionID string) bool {
	return sessionID != m.sessionID()
}

// infoOpportunity resolves the card shown in the info overlay. List-view
// records may not be loaded on the board, so the current list page serves as
// a fallback; the board store is never mutated for display.
func (m Model) infoOpportunity() (domain.Opportunity, bool) {
	if m.board != nil {
		if opp, ok := m.board.Store().Get(m.infoCardID); ok {
			return opp, true
		}
	}
	for _, opp := range m.listPage.Opportunities {
		if opp.ID == m.infoCardID {
			return opp, true
		}
	}
	return domain.Opportunity{}, false
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, m.spin.Tick

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		// Animate only while something is still loading.
		if m.board == nil || m.listLoading {
			return m, cmd
		}
		return m, nil

	case pipelinesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.pipelines = msg.pipelines
		if len(m.pipelines) == 0 {
			m.status = "no pipelines"
			return m, nil
		}
		m.selectedPipeline = 0
		if m.initialPipelineID != "" {
			for idx, p := range m.pipelines {
				if p.ID == m.initialPipelineID {
					m.selectedPipeline = idx
					break
				}
			}
			m.initialPipelineID = ""
		}
		return m, m.loadBoardCmd(m.pipelines[m.selectedPipeline].ID, m.searchQuery)

	case boardLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.board = msg.board
		m.grabTarget = m.selectedColumn
		m.clampCursors()
		if m.status == "" || m.status == "loading..." || m.status == "reloading..." {
			m.status = "ready"
		}
		return m, m.scrollRestoreCmd()

	case scrollRestoreMsg:
		if m.board == nil || m.stale(msg.sessionID) {
			return m, nil
		}
		rows := map[string]int{}
		for _, stage := range m.board.Pipeline().Stages {
			rows[stage.ID] = m.board.Store().CountByStage(stage.ID)
		}
		if m.scroll.Restore(rows) {
			return m, m.scrollRestoreCmd()
		}
		return m, nil

	case moreLoadedMsg:
		if m.stale(msg.sessionID) {
			return m, nil
		}
		if msg.err != nil {
			m.status = "load more failed: " + msg.err.Error()
			return m, nil
		}
		if msg.added > 0 {
			m.status = fmt.Sprintf("loaded %d more", msg.added)
		}
		return m, nil

	case commitDoneMsg:
		if m.stale(msg.sessionID) {
			return m, nil
		}
		if msg.err != nil {
			m.status = "move failed, reloading: " + msg.err.Error()
		} else {
			m.status = "moved"
		}
		if msg.reload {
			return m, m.reloadBoard()
		}
		return m, nil

	case confirmDoneMsg:
		if m.stale(msg.sessionID) {
			return m, nil
		}
		if msg.err != nil {
			m.status = "confirm failed: " + msg.err.Error()
			return m, nil
		}
		m.mode = modeNone
		m.win = nil
		m.loss = nil
		if msg.win {
			m.status = "negócio fechado: " + formatBRL(msg.opp.Value)
			m.celebration = celebrationFrames
			return m, m.celebrateTick()
		}
		m.status = "opportunity discarded"
		return m, nil

	case reasonsLoadedMsg:
		if m.stale(msg.sessionID) || m.loss == nil {
			return m, nil
		}
		if msg.err != nil {
			m.status = "reasons unavailable: " + msg.err.Error()
			m.loss.loading = false
			return m, nil
		}
		m.loss.setReasons(msg.reasons)
		return m, nil

	case productsLoadedMsg:
		if m.picker == nil {
			return m, nil
		}
		if msg.err != nil {
			m.status = "products unavailable: " + msg.err.Error()
			m.picker.loading = false
			return m, nil
		}
		m.picker.setProducts(msg.products)
		return m, nil

	case productCreatedMsg:
		if msg.err != nil {
			m.status = "create product failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "product created"
		if m.picker != nil && m.win != nil {
			m.picker = nil
			m.mode = modeWinDialog
			return m, m.win.addItem(msg.product)
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
			return m, nil
		}
		m.mode = modeNone
		m.form = nil
		if msg.created {
			m.status = "opportunity created"
		} else {
			m.status = "opportunity updated"
		}
		return m, m.reloadBoard()

	case reorderDoneMsg:
		if m.stale(msg.sessionID) {
			return m, nil
		}
		if msg.err != nil {
			m.status = "reorder not saved: " + msg.err.Error()
			return m, nil
		}
		return m, m.reloadBoard()

	case listPageMsg:
		m.listLoading = false
		if msg.err != nil {
			m.status = "list failed: " + msg.err.Error()
			return m, nil
		}
		m.listPage = msg.page
		m.listIndex = clamp(m.listIndex, 0, len(msg.page.Opportunities)-1)
		m.status = fmt.Sprintf("page %d/%d • %d total", msg.page.Page, max(1, msg.page.TotalPages), msg.page.Total)
		return m, nil

	case searchDebounceMsg:
		if msg.seq != m.searchSeq || m.mode != modeSearch {
			return m, nil
		}
		m.searchQuery = strings.TrimSpace(m.searchInput.Value())
		return m, m.reloadBoard()

	case celebrateTickMsg:
		if m.celebration <= 0 {
			return m, nil
		}
		m.celebration--
		if m.celebration > 0 {
			return m, m.celebrateTick()
		}
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// loadPipelines loads required data for the current operation.
func (m Model) loadPipelines() tea.Msg {
	pipelines, err := m.svc.ListPipelines(context.Background())
	return pipelinesLoadedMsg{pipelines: pipelines, err: err}
}

// loadBoardCmd starts a fresh board session for one pipeline.
func (m Model) loadBoardCmd(pipelineID, search string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		board, err := svc.LoadBoard(context.Background(), pipelineID, search)
		return boardLoadedMsg{board: board, err: err}
	}
}

// reloadBoard invalidates the live session and starts a replacement one,
// preserving scroll offsets.
func (m *Model) reloadBoard() tea.Cmd {
	if len(m.pipelines) == 0 {
		return nil
	}
	m.scroll.Snapshot()
	if m.board != nil {
		m.board.Invalidate()
	}
	return m.loadBoardCmd(m.pipelines[m.selectedPipeline].ID, m.searchQuery)
}

// loadMoreCmd fetches the next page for one column.
func (m Model) loadMoreCmd(stageID string) tea.Cmd {
	svc, board, sessionID := m.svc, m.board, m.sessionID()
	return func() tea.Msg {
		added, err := svc.LoadMore(context.Background(), board, stageID)
		return moreLoadedMsg{sessionID: sessionID, stageID: stageID, added: added, err: err}
	}
}

// commitMoveCmd round-trips one optimistic stage transition.
func (m Model) commitMoveCmd(oppID, stageID string) tea.Cmd {
	svc, board, sessionID := m.svc, m.board, m.sessionID()
	return func() tea.Msg {
		reload, err := svc.CommitMove(context.Background(), board, oppID, stageID)
		return commitDoneMsg{sessionID: sessionID, reload: reload, err: err}
	}
}

// confirmWinCmd commits the pending win transition.
func (m Model) confirmWinCmd(form app.WinForm) tea.Cmd {
	svc, board, sessionID := m.svc, m.board, m.sessionID()
	return func() tea.Msg {
		opp, err := svc.ConfirmWin(context.Background(), board, form)
		return confirmDoneMsg{sessionID: sessionID, win: true, opp: opp, err: err}
	}
}

// confirmLossCmd commits the pending loss transition.
func (m Model) confirmLossCmd(form app.LossForm) tea.Cmd {
	svc, board, sessionID := m.svc, m.board, m.sessionID()
	return func() tea.Msg {
		opp, err := svc.ConfirmLoss(context.Background(), board, form)
		return confirmDoneMsg{sessionID: sessionID, win: false, opp: opp, err: err}
	}
}

// loadReasonsCmd fetches (and seeds if empty) the discard reasons.
func (m Model) loadReasonsCmd() tea.Cmd {
	svc, sessionID := m.svc, m.sessionID()
	return func() tea.Msg {
		reasons, err := svc.LoadDiscardReasons(context.Background())
		return reasonsLoadedMsg{sessionID: sessionID, reasons: reasons, err: err}
	}
}

// loadProductsCmd fetches the product catalog.
func (m Model) loadProductsCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		products, err := svc.ListProducts(context.Background())
		return productsLoadedMsg{products: products, err: err}
	}
}

// createProductCmd registers a new product by name.
func (m Model) createProductCmd(name string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		product, err := svc.CreateProduct(context.Background(), name)
		return productCreatedMsg{product: product, err: err}
	}
}

// reorderCmd persists a new hand-made column order.
func (m Model) reorderCmd(orderedIDs []string) tea.Cmd {
	svc, sessionID := m.svc, m.sessionID()
	ids := append([]string(nil), orderedIDs...)
	return func() tea.Msg {
		err := svc.Reorder(context.Background(), ids)
		return reorderDoneMsg{sessionID: sessionID, err: err}
	}
}

// loadListPageCmd fetches one table-view page.
func (m Model) loadListPageCmd() tea.Cmd {
	if len(m.pipelines) == 0 {
		return nil
	}
	svc, pipelineID, state := m.svc, m.pipelines[m.selectedPipeline].ID, m.list
	return func() tea.Msg {
		page, err := svc.ListPage(context.Background(), pipelineID, state)
		return listPageMsg{page: page, err: err}
	}
}

// saveCardCmd submits the create/edit form.
func (m Model) saveCardCmd(form *cardForm) tea.Cmd {
	if len(m.pipelines) == 0 {
		return nil
	}
	input, err := form.Input()
	if err != nil {
		m.status = err.Error()
		return nil
	}
	svc, pipelineID, editingID := m.svc, m.pipelines[m.selectedPipeline].ID, form.editingID
	return func() tea.Msg {
		if editingID != "" {
			opp, err := svc.UpdateOpportunity(context.Background(), editingID, input)
			return savedMsg{opp: opp, err: err}
		}
		opp, err := svc.CreateOpportunity(context.Background(), pipelineID, input)
		return savedMsg{opp: opp, created: true, err: err}
	}
}

// scrollRestoreCmd schedules the next scroll reapply attempt.
func (m Model) scrollRestoreCmd() tea.Cmd {
	delay, ok := m.scroll.NextDelay()
	if !ok {
		return nil
	}
	sessionID := m.sessionID()
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return scrollRestoreMsg{sessionID: sessionID}
	})
}

// celebrateTick schedules the next celebration frame.
func (m Model) celebrateTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return celebrateTickMsg{}
	})
}

// stages returns the live pipeline's stages in position order.
func (m Model) stages() []domain.Stage {
	if m.board == nil {
		return nil
	}
	return m.board.Pipeline().Stages
}

// currentStage returns the stage under the column cursor.
func (m Model) currentStage() (domain.Stage, bool) {
	stages := m.stages()
	if len(stages) == 0 {
		return domain.Stage{}, false
	}
	return stages[clamp(m.selectedColumn, 0, len(stages)-1)], true
}

// currentColumnCards returns the loaded cards of the selected column.
func (m Model) currentColumnCards() []domain.Opportunity {
	stage, ok := m.currentStage()
	if !ok {
		return nil
	}
	return m.board.Store().ByStage(stage.ID)
}

// selectedOpportunity returns the card under the cursor.
func (m Model) selectedOpportunity() (domain.Opportunity, bool) {
	cards := m.currentColumnCards()
	if len(cards) == 0 {
		return domain.Opportunity{}, false
	}
	return cards[clamp(m.selectedCard, 0, len(cards)-1)], true
}

// clampCursors bounds all cursors against the loaded board.
func (m *Model) clampCursors() {
	stages := m.stages()
	m.selectedColumn = clamp(m.selectedColumn, 0, max(0, len(stages)-1))
	m.grabTarget = clamp(m.grabTarget, 0, max(0, len(stages)-1))
	m.selectedCard = clamp(m.selectedCard, 0, max(0, len(m.currentColumnCards())-1))
}

// columnWindowRows estimates how many card rows fit in one column.
func (m Model) columnWindowRows() int {
	if m.height <= 0 {
		return 10
	}
	return max(3, (m.height-10)/2)
}

// syncColumnScroll keeps the selected card visible and records the offset so
// it survives reloads.
func (m *Model) syncColumnScroll() {
	stage, ok := m.currentStage()
	if !ok {
		return
	}
	window := m.columnWindowRows()
	offset := m.scroll.Offset(stage.ID)
	if m.selectedCard < offset {
		offset = m.selectedCard
	}
	if m.selectedCard >= offset+window {
		offset = m.selectedCard - window + 1
	}
	m.scroll.SetOffset(stage.ID, offset)
}

// maybeLoadMore issues a column page fetch when the cursor nears the loaded
// tail and the remote holds more rows.
func (m Model) maybeLoadMore() tea.Cmd {
	stage, ok := m.currentStage()
	if !ok || m.board == nil {
		return nil
	}
	cards := m.board.Store().ByStage(stage.ID)
	pager := m.board.Pager()
	if !pager.HasMore(stage.ID) || pager.InFlight(stage.ID) {
		return nil
	}
	if m.selectedCard < len(cards)-1-m.revealRows {
		return nil
	}
	return m.loadMoreCmd(stage.ID)
}

// handleNormalModeKey handles normal mode key.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil

	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			m.status = "ready"
			return m, nil
		}
		if m.board != nil {
			if _, dragging := m.board.Dragging(); dragging {
				m.board.CancelDrag()
				m.grabTarget = m.selectedColumn
				m.status = "drag cancelled"
				return m, nil
			}
		}
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.searchInput.SetValue("")
			m.status = "search cleared"
			return m, m.reloadBoard()
		}
		return m, nil

	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.reloadBoard()

	case key.Matches(msg, m.keys.moveLeft):
		if m.board != nil {
			if _, dragging := m.board.Dragging(); dragging {
				if m.grabTarget > 0 {
					m.grabTarget--
				}
				return m, nil
			}
		}
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedCard = 0
			m.grabTarget = m.selectedColumn
		}
		return m, nil

	case key.Matches(msg, m.keys.moveRight):
		if m.board != nil {
			if _, dragging := m.board.Dragging(); dragging {
				if m.grabTarget < len(m.stages())-1 {
					m.grabTarget++
				}
				return m, nil
			}
		}
		if m.selectedColumn < len(m.stages())-1 {
			m.selectedColumn++
			m.selectedCard = 0
			m.grabTarget = m.selectedColumn
		}
		return m, nil

	case key.Matches(msg, m.keys.moveDown):
		cards := m.currentColumnCards()
		if len(cards) > 0 && m.selectedCard < len(cards)-1 {
			m.selectedCard++
		}
		m.syncColumnScroll()
		return m, m.maybeLoadMore()

	case key.Matches(msg, m.keys.moveUp):
		if m.selectedCard > 0 {
			m.selectedCard--
		}
		m.syncColumnScroll()
		return m, nil

	case key.Matches(msg, m.keys.grabCard):
		return m.handleGrabOrDrop()

	case key.Matches(msg, m.keys.cardInfo):
		if m.board != nil {
			if _, dragging := m.board.Dragging(); dragging {
				return m.handleGrabOrDrop()
			}
		}
		opp, ok := m.selectedOpportunity()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.help.ShowAll = false
		m.mode = modeCardInfo
		m.infoCardID = opp.ID
		m.status = "card info"
		return m, nil

	case key.Matches(msg, m.keys.newCard):
		stage, ok := m.currentStage()
		if !ok {
			return m, nil
		}
		m.help.ShowAll = false
		m.mode = modeCardForm
		m.form = newCardForm(nil, stage.ID)
		m.status = "new opportunity"
		return m, nil

	case key.Matches(msg, m.keys.editCard):
		opp, ok := m.selectedOpportunity()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.help.ShowAll = false
		m.mode = modeCardForm
		m.form = newCardForm(&opp, opp.StageID)
		m.status = "edit opportunity"
		return m, nil

	case key.Matches(msg, m.keys.reorderUp):
		return m.reorderSelected(-1)

	case key.Matches(msg, m.keys.reorderDown):
		return m.reorderSelected(1)

	case key.Matches(msg, m.keys.search):
		m.help.ShowAll = false
		m.mode = modeSearch
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.CursorEnd()
		m.status = "search"
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.listView):
		m.help.ShowAll = false
		m.mode = modeList
		m.listLoading = true
		m.list = m.list.WithSearch(m.searchQuery)
		m.status = "list view"
		return m, m.loadListPageCmd()

	case key.Matches(msg, m.keys.pipelines):
		if len(m.pipelines) == 0 {
			return m, nil
		}
		m.help.ShowAll = false
		m.mode = modePipelinePicker
		m.pipelinePickerIndex = m.selectedPipeline
		m.status = "pipeline picker"
		return m, nil

	case key.Matches(msg, m.keys.yankEmail):
		opp, ok := m.selectedOpportunity()
		if !ok || strings.TrimSpace(opp.ContactEmail) == "" {
			m.status = "no contact email"
			return m, nil
		}
		if err := clipboard.WriteAll(opp.ContactEmail); err != nil {
			m.status = "clipboard unavailable"
			return m, nil
		}
		m.status = "copied " + opp.ContactEmail
		return m, nil

	default:
		return m, nil
	}
}

// handleGrabOrDrop toggles the keyboard drag lifecycle on the grab key.
func (m Model) handleGrabOrDrop() (tea.Model, tea.Cmd) {
	if m.board == nil {
		return m, nil
	}
	if oppID, dragging := m.board.Dragging(); dragging {
		stages := m.stages()
		target := stages[clamp(m.grabTarget, 0, len(stages)-1)]
		decision, err := m.svc.Drop(m.board, oppID, target.ID)
		if err != nil {
			m.status = "drop failed: " + err.Error()
			return m, nil
		}
		m.grabTarget = m.selectedColumn
		switch decision {
		case app.DropIgnored:
			m.status = "ready"
			return m, nil
		case app.DropCommitted:
			m.selectedColumn = clamp(indexOfStage(stages, target.ID), 0, len(stages)-1)
			m.selectedCard = 0
			m.status = "moving..."
			return m, m.commitMoveCmd(oppID, target.ID)
		case app.DropAwaitWin:
			opp, _ := m.board.Store().Get(oppID)
			m.mode = modeWinDialog
			m.win = newWinDialog(opp)
			m.status = "confirm win"
			return m, nil
		case app.DropAwaitLoss:
			opp, _ := m.board.Store().Get(oppID)
			m.mode = modeLossDialog
			m.loss = newLossDialog(opp)
			m.status = "confirm loss"
			return m, m.loadReasonsCmd()
		}
		return m, nil
	}

	opp, ok := m.selectedOpportunity()
	if !ok {
		m.status = "no card selected"
		return m, nil
	}
	if err := m.board.BeginDrag(opp.ID); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.grabTarget = m.selectedColumn
	m.status = "grabbed " + truncate(opp.DisplayName(), 28) + " • h/l choose column • space drop • esc cancel"
	return m, nil
}

// reorderSelected swaps the selected card with its column neighbor and
// persists the new order.
func (m Model) reorderSelected(delta int) (tea.Model, tea.Cmd) {
	cards := m.currentColumnCards()
	if len(cards) < 2 {
		m.status = "nothing to reorder"
		return m, nil
	}
	idx := clamp(m.selectedCard, 0, len(cards)-1)
	swap := idx + delta
	if swap < 0 || swap >= len(cards) {
		return m, nil
	}
	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		ids = append(ids, card.ID)
	}
	ids[idx], ids[swap] = ids[swap], ids[idx]
	m.selectedCard = swap
	m.status = "saving order..."
	return m, m.reorderCmd(ids)
}

// indexOfStage finds one stage position by id.
func indexOfStage(stages []domain.Stage, stageID string) int {
	for idx, stage := range stages {
		if stage.ID == stageID {
			return idx
		}
	}
	return 0
}

// handleInputModeKey handles input mode key.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.searchInput.Blur()
			m.status = "ready"
			return m, nil
		case "enter":
			m.mode = modeNone
			m.searchInput.Blur()
			m.searchQuery = strings.TrimSpace(m.searchInput.Value())
			return m, m.reloadBoard()
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			m.searchSeq++
			seq := m.searchSeq
			debounce := tea.Tick(searchDebounce, func(time.Time) tea.Msg {
				return searchDebounceMsg{seq: seq}
			})
			return m, tea.Batch(cmd, debounce)
		}

	case modeWinDialog:
		if m.win == nil {
			m.mode = modeNone
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.svc.CancelPending(m.board)
			m.mode = modeNone
			m.win = nil
			m.status = "win cancelled"
			return m, nil
		case "enter":
			form, err := m.win.Form()
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.status = "closing deal..."
			return m, m.confirmWinCmd(form)
		case "tab", "down":
			return m, m.win.focusIndex(m.win.focus + 1)
		case "shift+tab", "up":
			return m, m.win.focusIndex(m.win.focus - 1)
		case "ctrl+n":
			m.mode = modeProductPicker
			m.picker = newProductPicker()
			return m, m.loadProductsCmd()
		case "ctrl+d":
			m.win.removeFocusedItem()
			return m, nil
		default:
			return m, m.win.handleInput(msg)
		}

	case modeLossDialog:
		if m.loss == nil {
			m.mode = modeNone
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.svc.CancelPending(m.board)
			m.mode = modeNone
			m.loss = nil
			m.status = "loss cancelled"
			return m, nil
		case "enter":
			form, err := m.loss.Form()
			if err != nil {
				m.status = "select a reason first"
				return m, nil
			}
			m.status = "discarding..."
			return m, m.confirmLossCmd(form)
		case "tab":
			m.loss.notesFocus = !m.loss.notesFocus
			if m.loss.notesFocus {
				return m, m.loss.notes.Focus()
			}
			m.loss.notes.Blur()
			return m, nil
		}
		if m.loss.notesFocus {
			var cmd tea.Cmd
			m.loss.notes, cmd = m.loss.notes.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "j", "down":
			m.loss.move(1)
		case "k", "up":
			m.loss.move(-1)
		}
		return m, nil

	case modeProductPicker:
		if m.picker == nil {
			m.mode = modeWinDialog
			return m, nil
		}
		if m.picker.creating {
			switch msg.String() {
			case "esc":
				m.picker.creating = false
				return m, nil
			case "enter":
				name := strings.TrimSpace(m.picker.name.Value())
				if name == "" {
					m.status = "product name is required"
					return m, nil
				}
				m.status = "creating product..."
				return m, m.createProductCmd(name)
			default:
				var cmd tea.Cmd
				m.picker.name, cmd = m.picker.name.Update(msg)
				return m, cmd
			}
		}
		switch msg.String() {
		case "esc":
			m.picker = nil
			m.mode = modeWinDialog
			return m, nil
		case "enter":
			product, ok := m.picker.selected()
			if !ok {
				return m, nil
			}
			m.picker = nil
			m.mode = modeWinDialog
			if m.win != nil {
				return m, m.win.addItem(product)
			}
			return m, nil
		case "n":
			return m, m.picker.startCreate()
		case "j", "down":
			m.picker.move(1)
		case "k", "up":
			m.picker.move(-1)
		}
		return m, nil

	case modeCardInfo:
		switch {
		case msg.String() == "esc" || key.Matches(msg, m.keys.cardInfo):
			m.mode = modeNone
			m.infoCardID = ""
			m.status = "ready"
			return m, nil
		case key.Matches(msg, m.keys.yankEmail):
			if opp, ok := m.infoOpportunity(); ok && opp.ContactEmail != "" {
				if err := clipboard.WriteAll(opp.ContactEmail); err == nil {
					m.status = "copied " + opp.ContactEmail
				}
			}
			return m, nil
		}
		return m, nil

	case modeCardForm:
		if m.form == nil {
			m.mode = modeNone
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.form = nil
			m.status = "ready"
			return m, nil
		case "enter":
			return m, m.saveCardCmd(m.form)
		case "tab", "down":
			return m, m.form.focusIndex(m.form.focus + 1)
		case "shift+tab", "up":
			return m, m.form.focusIndex(m.form.focus - 1)
		default:
			return m, m.form.handleInput(msg)
		}

	case modePipelinePicker:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.status = "ready"
			return m, nil
		case "enter":
			m.mode = modeNone
			if m.pipelinePickerIndex != m.selectedPipeline {
				m.selectedPipeline = m.pipelinePickerIndex
				m.selectedColumn = 0
				m.selectedCard = 0
				m.scroll.Reset()
				if m.board != nil {
					m.board.Invalidate()
				}
				m.status = "loading..."
				return m, m.loadBoardCmd(m.pipelines[m.selectedPipeline].ID, m.searchQuery)
			}
			return m, nil
		case "j", "down":
			m.pipelinePickerIndex = clamp(m.pipelinePickerIndex+1, 0, len(m.pipelines)-1)
		case "k", "up":
			m.pipelinePickerIndex = clamp(m.pipelinePickerIndex-1, 0, len(m.pipelines)-1)
		}
		return m, nil

	case modeList:
		return m.handleListKey(msg)

	default:
		m.mode = modeNone
		return m, nil
	}
}

// handleListKey handles the table-view keys.
func (m Model) handleListKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc" || key.Matches(msg, m.keys.listView):
		m.mode = modeNone
		m.status = "ready"
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.moveDown):
		m.listIndex = clamp(m.listIndex+1, 0, max(0, len(m.listPage.Opportunities)-1))
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.listIndex = clamp(m.listIndex-1, 0, max(0, len(m.listPage.Opportunities)-1))
		return m, nil
	case key.Matches(msg, m.keys.nextPage):
		if m.listPage.TotalPages > 0 && m.list.Page >= m.listPage.TotalPages {
			return m, nil
		}
		m.list = m.list.WithPage(m.list.Page+1, m.listPage.TotalPages)
		m.listLoading = true
		return m, m.loadListPageCmd()
	case key.Matches(msg, m.keys.prevPage):
		if m.list.Page <= 1 {
			return m, nil
		}
		m.list = m.list.WithPage(m.list.Page-1, m.listPage.TotalPages)
		m.listLoading = true
		return m, m.loadListPageCmd()
	case key.Matches(msg, m.keys.sortCreated):
		m.list = m.list.ToggleSort("created_at")
		m.listLoading = true
		return m, m.loadListPageCmd()
	case key.Matches(msg, m.keys.sortValue):
		m.list = m.list.ToggleSort("value")
		m.listLoading = true
		return m, m.loadListPageCmd()
	case key.Matches(msg, m.keys.sortTitle):
		m.list = m.list.ToggleSort("title")
		m.listLoading = true
		return m, m.loadListPageCmd()
	case key.Matches(msg, m.keys.sortStage):
		m.list = m.list.ToggleSort("stage_id")
		m.listLoading = true
		return m, m.loadListPageCmd()
	case key.Matches(msg, m.keys.cardInfo):
		if len(m.listPage.Opportunities) > 0 {
			opp := m.listPage.Opportunities[clamp(m.listIndex, 0, len(m.listPage.Opportunities)-1)]
			m.mode = modeCardInfo
			m.infoCardID = opp.ID
			m.status = "card info"
		}
		return m, nil
	default:
		return m, nil
	}
}
