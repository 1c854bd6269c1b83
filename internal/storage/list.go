package storage

import (
	"context"
	"fmt"

	"github.com/fruitsalade/mediakit/internal/listing"
	"github.com/fruitsalade/mediakit/internal/metrics"
)

// ListQuery selects one page of a directory listing.
type ListQuery struct {
	Page     int
	PageSize int
	SortBy   string
	Order    string
}

// ListPage is one page of a directory listing.
type ListPage struct {
	Entries  []listing.Entry `json:"entries"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Pages    int             `json:"pages"`
}

// ListDirectory lists relPath through the adapter, then sorts and paginates.
func ListDirectory(ctx context.Context, l Lister, root, relPath string, q ListQuery, opts listing.Options) (*ListPage, error) {
	entries, err := l.List(ctx, root, relPath)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", relPath, err)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize(q.PageSize)

	items, total := listing.SortAndPaginate(entries, page, size, q.SortBy, q.Order)
	metrics.RecordListingPage(len(items), total)

	return &ListPage{
		Entries:  items,
		Total:    total,
		Page:     page,
		PageSize: size,
		Pages:    listing.PageCount(total, size),
	}, nil
}
