package clover

import (
	"context"
	"fmt"
)

// PageFetcher returns one page of the item listing. *Client satisfies it.
type PageFetcher interface {
	FetchCatalogPage(ctx context.Context, offset, limit int) (*ItemsPage, error)
}

// Paginator walks the whole item listing with offset paging.
type Paginator struct {
	PageSize int
	MaxPages int
}

func NewPaginator(maxPages int) *Paginator {
	return &Paginator{PageSize: DefaultPageSize, MaxPages: maxPages}
}

// Walk collects every item in remote order. A page shorter than PageSize ends
// the walk, so a catalog that is an exact multiple of PageSize costs one extra
// empty request.
func (p *Paginator) Walk(ctx context.Context, fetcher PageFetcher) ([]Item, error) {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var items []Item
	offset := 0
	for pages := 0; ; pages++ {
		if p.MaxPages > 0 && pages >= p.MaxPages {
			return nil, fmt.Errorf("%w: stopped after %d pages", ErrPageLimitExceeded, pages)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetcher.FetchCatalogPage(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		offset += len(page.Items)

		if len(page.Items) < pageSize {
			return items, nil
		}
	}
}
