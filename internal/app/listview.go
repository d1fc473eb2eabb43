package app

import "slices"

// Sortable table fields accepted by the server. Anything else falls back to
// created_at, mirroring the server's own whitelist.
var listSortFields = []string{
	"created_at", "updated_at", "title", "value",
	"contact_name", "owner_name", "stage_id", "display_order",
}

// DefaultListPageSize is the table page size when config does not override it.
const DefaultListPageSize = 25

// ListState is the table view's query state. The table is an alternate
// presentation of the same data: every sort, page or page-size change triggers
// a fresh authoritative fetch of exactly one page, never a client-side re-sort
// of partially loaded data. It shares nothing with the kanban pagination model;
// switching views discards and reloads.
type ListState struct {
	SortField     string
	SortDirection string
	Page          int
	PerPage       int
	Search        string
}

// NewListState returns the default table query.
func NewListState(perPage int) ListState {
	if perPage <= 0 {
		perPage = DefaultListPageSize
	}
	return ListState{
		SortField:     "created_at",
		SortDirection: "desc",
		Page:          1,
		PerPage:       perPage,
	}
}

// ToggleSort flips the direction when the field is already active, otherwise
// switches to the field ascending. Either way the page resets.
func (l ListState) ToggleSort(field string) ListState {
	if !slices.Contains(listSortFields, field) {
		return l
	}
	if l.SortField == field {
		if l.SortDirection == "asc" {
			l.SortDirection = "desc"
		} else {
			l.SortDirection = "asc"
		}
	} else {
		l.SortField = field
		l.SortDirection = "asc"
	}
	l.Page = 1
	return l
}

// WithPage clamps and sets the page.
func (l ListState) WithPage(page, totalPages int) ListState {
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	l.Page = page
	return l
}

// WithPerPage changes the page size and resets to the first page.
func (l ListState) WithPerPage(perPage int) ListState {
	if perPage > 0 {
		l.PerPage = perPage
		l.Page = 1
	}
	return l
}

// WithSearch changes the filter and resets to the first page.
func (l ListState) WithSearch(search string) ListState {
	l.Search = search
	l.Page = 1
	return l
}

// Query renders the state as one remote page request.
func (l ListState) Query() ListQuery {
	return ListQuery{
		Page:          l.Page,
		Limit:         l.PerPage,
		Search:        l.Search,
		SortField:     l.SortField,
		SortDirection: l.SortDirection,
	}
}
