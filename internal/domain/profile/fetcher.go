package profile

import "context"

// Fetcher retrieves raw profile data from a platform.
// Failures wrap errors.ErrNotFound, ErrRateLimited, ErrAuth or ErrTransient.
type Fetcher interface {
	Fetch(ctx context.Context, identifier string, platform Platform) (*RawProfileRecord, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, identifier string, platform Platform) (*RawProfileRecord, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, identifier string, platform Platform) (*RawProfileRecord, error) {
	return f(ctx, identifier, platform)
}
