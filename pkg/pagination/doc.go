// Package pagination walks page-indexed collection endpoints of the Animals
// API and folds every page into one ordered result.
//
// The listing endpoint answers GET {path}?page={n} with a page envelope:
//
//	{"total_pages": 3, "items": [...]}
//
// Pages are zero-based and fetched strictly one after another. The paginator
// keeps requesting while no total has been observed yet or the next page
// index is <= the last reported total_pages, so a server reporting
// total_pages = k is asked for pages 0..k.
//
// Example usage:
//
//	p := pagination.NewPaginator(executor, pagination.DefaultConfig())
//	items, err := p.FetchAll(ctx, "/animals/v1/animals")
//
// Any error from the executor aborts the walk; no partial result is returned.
package pagination
