package league

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (League, bool, error)
	// ListActive returns leagues whose competition season should be polled.
	ListActive(ctx context.Context) ([]League, error)
}
