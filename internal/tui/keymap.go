package tui

import (
	"strings"
	"unicode"

	"charm.land/bubbles/v2/key"
)

// KeyConfig carries user-configured binding overrides for a subset of the
// board keys. Empty fields keep the defaults.
type KeyConfig struct {
	GrabCard   string
	SearchMode string
	ListView   string
	NewCard    string
	YankEmail  string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit         key.Binding
	reload       key.Binding
	toggleHelp   key.Binding
	moveLeft     key.Binding
	moveRight    key.Binding
	moveUp       key.Binding
	moveDown     key.Binding
	grabCard     key.Binding
	cardInfo     key.Binding
	newCard      key.Binding
	editCard     key.Binding
	reorderUp    key.Binding
	reorderDown  key.Binding
	search       key.Binding
	listView     key.Binding
	pipelines    key.Binding
	yankEmail    key.Binding
	nextPage     key.Binding
	prevPage     key.Binding
	sortCreated  key.Binding
	sortValue    key.Binding
	sortTitle    key.Binding
	sortStage    key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		moveDown:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		grabCard:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "grab/drop card")),
		cardInfo:    key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "card info")),
		newCard:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new opportunity")),
		editCard:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit opportunity")),
		reorderUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "reorder up")),
		reorderDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "reorder down")),
		search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		listView:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "list view")),
		pipelines:   key.NewBinding(key.WithKeys("p", "P"), key.WithHelp("p/P", "pipeline picker")),
		yankEmail:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy contact email")),
		nextPage:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		prevPage:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous page")),
		sortCreated: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "sort by created")),
		sortValue:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "sort by value")),
		sortTitle:   key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "sort by title")),
		sortStage:   key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "sort by stage")),
	}
}

// parseBindingKeys turns one configured key string into bubbletea key matchers
// plus the help label shown for it. Space and uppercase runes match under both
// of their wire spellings.
func parseBindingKeys(configured, fallback string) ([]string, string) {
	trimmed := strings.TrimSpace(configured)
	if configured == " " {
		trimmed = " "
	}
	if trimmed == "" {
		return []string{fallback}, fallback
	}
	if trimmed == " " || strings.EqualFold(trimmed, "space") {
		return []string{" ", "space"}, "space"
	}
	runes := []rune(trimmed)
	if len(runes) == 1 {
		r := runes[0]
		if unicode.IsUpper(r) {
			return []string{string(r), "shift+" + string(unicode.ToLower(r))}, trimmed
		}
		return []string{string(r)}, trimmed
	}
	return []string{strings.ToLower(trimmed)}, trimmed
}

// applyConfig overrides the configurable bindings in place.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	apply := func(b *key.Binding, configured string) {
		if configured != " " && strings.TrimSpace(configured) == "" {
			return
		}
		keys, helpKey := parseBindingKeys(configured, "")
		desc := b.Help().Desc
		b.SetKeys(keys...)
		b.SetHelp(helpKey, desc)
	}
	apply(&k.grabCard, cfg.GrabCard)
	apply(&k.search, cfg.SearchMode)
	apply(&k.listView, cfg.ListView)
	apply(&k.newCard, cfg.NewCard)
	apply(&k.yankEmail, cfg.YankEmail)
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.grabCard, k.cardInfo, k.newCard, k.search, k.listView, k.pipelines, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.grabCard, k.cardInfo, k.newCard, k.editCard, k.search, k.listView, k.pipelines, k.yankEmail, k.toggleHelp, k.reload, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.reorderUp, k.reorderDown},
		{k.nextPage, k.prevPage, k.sortCreated, k.sortValue, k.sortTitle, k.sortStage},
	}
}
