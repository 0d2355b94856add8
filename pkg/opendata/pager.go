package opendata

import (
	"context"
)

// Pager walks a dataset page by page until the API returns an empty page.
type Pager struct {
	client  Client
	dataset string
	query   Query
	done    bool
}

// NewPager starts paging at q.Offset.
func NewPager(client Client, dataset string, q Query) *Pager {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	return &Pager{client: client, dataset: dataset, query: q}
}

// Next returns the next page. It returns (nil, nil) once the dataset is
// exhausted.
func (p *Pager) Next(ctx context.Context) ([]Record, error) {
	if p.done {
		return nil, nil
	}
	rows, err := p.client.Get(ctx, p.dataset, p.query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		p.done = true
		return nil, nil
	}
	p.query.Offset += len(rows)
	return rows, nil
}

// Offset is the offset of the next page.
func (p *Pager) Offset() int { return p.query.Offset }

// Each calls fn for every page until the dataset is exhausted or fn fails.
func (p *Pager) Each(ctx context.Context, fn func(page []Record) error) error {
	for {
		rows, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if rows == nil {
			return nil
		}
		if err := fn(rows); err != nil {
			return err
		}
	}
}
