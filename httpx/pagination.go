package httpx

import "context"

// PageFetcher returns one page of items, whether more pages remain,
// and any error. page counts from zero.
type PageFetcher[T any] func(ctx context.Context, page int) (items []T, hasMore bool, err error)

// PageIterator walks a paginated API one item at a time, fetching
// pages lazily. It is not safe for concurrent use.
type PageIterator[T any] struct {
	fetch  PageFetcher[T]
	page   int
	buffer []T
	done   bool
	err    error
	total  int
}

// NewPageIterator wraps a fetch function in an iterator.
func NewPageIterator[T any](fetch PageFetcher[T]) *PageIterator[T] {
	return &PageIterator[T]{fetch: fetch, total: -1}
}

// Next returns the next item. The second return is false when
// iteration is exhausted. A fetch error ends iteration and is sticky:
// every later call returns it.
func (p *PageIterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if p.err != nil {
		return zero, false, p.err
	}

	if len(p.buffer) == 0 && !p.done {
		items, hasMore, err := p.fetch(ctx, p.page)
		if err != nil {
			p.err = err
			return zero, false, err
		}
		p.buffer = items
		p.done = !hasMore
		p.page++
	}

	if len(p.buffer) == 0 {
		return zero, false, nil
	}

	item := p.buffer[0]
	p.buffer = p.buffer[1:]
	return item, true, nil
}

// All drains the iterator into a slice, fetching every remaining page.
func (p *PageIterator[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, item)
	}
}

// Take returns up to n items.
func (p *PageIterator[T]) Take(ctx context.Context, n int) ([]T, error) {
	var items []T
	for len(items) < n {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		items = append(items, item)
	}
	return items, nil
}

// ForEach applies fn to each remaining item, stopping at the first
// error from fn or the fetcher.
func (p *PageIterator[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

// Total reports the server-side item count when the fetcher has set
// one, and -1 before the first page arrives.
func (p *PageIterator[T]) Total() int {
	return p.total
}

// SetTotal records the server-reported total; fetchers call this when
// the API returns one alongside each page.
func (p *PageIterator[T]) SetTotal(total int) {
	p.total = total
}
