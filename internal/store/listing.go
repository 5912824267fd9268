package store

// CompareMode tags how a column filter is compared against its value.
type CompareMode int

const (
	// CompareSubstring matches when the column contains the value,
	// case-insensitively.
	CompareSubstring CompareMode = iota
	// CompareExact matches on equality.
	CompareExact
)

// FilterMode tags which of the two mutually exclusive filter modes a listing
// query uses.
type FilterMode int

const (
	// FilterColumns applies per-column filters.
	FilterColumns FilterMode = iota
	// FilterSearch applies a single OR-combined substring match of the
	// search term over the searchable columns; column filters are discarded.
	FilterSearch
)

// ColumnFilter is one column filter of a listing query. Column is always a
// member of the supported filter set; request input never reaches it
// directly.
type ColumnFilter struct {
	Column string
	Mode   CompareMode
	Value  string
}

// ListingQuery is the ephemeral filter/sort/page specification derived from
// one listing request. Mode decides whether Search or Filters applies; the
// other is ignored.
type ListingQuery struct {
	Mode    FilterMode
	Search  string
	Filters []ColumnFilter

	SortBy   string
	SortDesc bool

	Page    int
	PerPage int
}

// Offset returns the row offset for the requested page.
func (q ListingQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}
