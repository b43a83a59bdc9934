// Package batch walks keyset-paginated row windows.
package batch

import "context"

const DefaultSize = 500

// Lister returns up to limit rows with id greater than afterID, ordered by id.
type Lister[T any] func(ctx context.Context, limit int, afterID int64) ([]T, error)

// Walk hands pages to handle until a short page is returned or limit rows
// have been seen. A non-positive limit means no overall limit.
func Walk[T any](
	ctx context.Context,
	size, limit int,
	list Lister[T],
	id func(T) int64,
	handle func(ctx context.Context, page []T) error,
) error {
	if size <= 0 {
		size = DefaultSize
	}

	remaining := limit
	var afterID int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageSize := size
		if limit > 0 {
			if remaining <= 0 {
				return nil
			}
			pageSize = min(pageSize, remaining)
		}

		page, err := list(ctx, pageSize, afterID)
		if err != nil {
			return err
		}

		if len(page) > 0 {
			if err := handle(ctx, page); err != nil {
				return err
			}
		}

		if len(page) < pageSize {
			return nil
		}

		afterID = id(page[len(page)-1])
		remaining -= len(page)
	}
}
