// Package listing sorts and paginates directory listings produced by storage
// adapters.
package listing

import (
	"sort"
	"strings"
	"time"
)

// Entry is a single file or directory in a listing.
type Entry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

// SortField selects the key entries are ordered by within the directory and
// file groups.
type SortField string

const (
	SortByName  SortField = "name"
	SortBySize  SortField = "size"
	SortByMTime SortField = "mtime"
)

// Order is the sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseSortField normalizes a query value. Unknown values sort by name.
func ParseSortField(s string) SortField {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case SortByName, SortBySize, SortByMTime:
		return f
	default:
		return SortByName
	}
}

// ParseOrder normalizes a query value. Anything but "desc" is ascending.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort returns a sorted copy of entries. Directories always come first; the
// order only applies to the field comparison. Equal keys keep input order.
func Sort(entries []Entry, by SortField, order Order) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	by = ParseSortField(string(by))
	desc := order == Desc

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		c := compare(a, b, by)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return sorted
}

func compare(a, b Entry, by SortField) int {
	switch by {
	case SortBySize:
		switch {
		case a.Size < b.Size:
			return -1
		case a.Size > b.Size:
			return 1
		}
		return 0
	case SortByMTime:
		return a.ModTime.Compare(b.ModTime)
	default:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}

// Paginate returns the 1-indexed page of entries. Pages past the end are
// empty, never an error. page < 1 is treated as the first page.
func Paginate(entries []Entry, page, pageSize int) []Entry {
	if pageSize <= 0 {
		return []Entry{}
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(entries) {
		return []Entry{}
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

// DefaultPageSize is used when no positive page size is given.
const DefaultPageSize = 50

// SortAndPaginate sorts entries and returns the requested page together with
// the total entry count before pagination. pageSize <= 0 uses
// DefaultPageSize.
func SortAndPaginate(entries []Entry, page, pageSize int, sortBy string, order string) ([]Entry, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	sorted := Sort(entries, ParseSortField(sortBy), ParseOrder(order))
	return Paginate(sorted, page, pageSize), len(sorted)
}

// PageCount returns how many pages of pageSize hold total entries.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Options bounds the page sizes clients may request.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// PageSize resolves a requested page size: non-positive values use the
// default, oversized values are capped.
func (o Options) PageSize(requested int) int {
	if requested <= 0 {
		requested = o.DefaultPageSize
	}
	if requested <= 0 {
		requested = DefaultPageSize
	}
	if o.MaxPageSize > 0 && requested > o.MaxPageSize {
		requested = o.MaxPageSize
	}
	return requested
}
