package pipeline

import (
	"context"
	"fmt"
)

// DefaultMaxPages bounds every pagination loop against a source that never
// returns a short page.
const DefaultMaxPages = 1000

// PageFunc fetches one page starting at offset.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// PageOptions controls a pagination loop.
type PageOptions struct {
	// PageSize is the limit requested per page.
	PageSize int
	// Stride is added to the offset after each full page. Defaults to PageSize.
	Stride int
	// MaxPages caps the number of fetches. Defaults to DefaultMaxPages.
	MaxPages int
	// FullPage is the page length below which the source is treated as
	// exhausted. Defaults to PageSize.
	FullPage int
}

func (o PageOptions) withDefaults() PageOptions {
	if o.Stride <= 0 {
		o.Stride = o.PageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.FullPage <= 0 {
		o.FullPage = o.PageSize
	}
	return o
}

// PageStats describes how a pagination loop ended.
type PageStats struct {
	Pages int
	Items int
	// Exhausted is false when the loop stopped on MaxPages rather than on a
	// short page.
	Exhausted bool
}

// Paginate fetches pages from offset zero until a page shorter than
// FullPage arrives or MaxPages fetches have been made, and returns every
// item in fetch order. The offset advances only after the short-page check.
func Paginate[T any](ctx context.Context, fetch PageFunc[T], opts PageOptions) ([]T, PageStats, error) {
	if opts.PageSize <= 0 {
		return nil, PageStats{}, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}
	opts = opts.withDefaults()

	var (
		items  []T
		stats  PageStats
		offset int
	)
	for stats.Pages < opts.MaxPages {
		page, err := fetch(ctx, offset, opts.PageSize)
		if err != nil {
			return items, stats, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		stats.Pages++
		stats.Items += len(page)
		items = append(items, page...)

		if len(page) < opts.FullPage {
			stats.Exhausted = true
			break
		}
		offset += opts.Stride
	}
	return items, stats, nil
}
