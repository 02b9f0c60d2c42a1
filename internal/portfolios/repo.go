package portfolios

import "context"

// Repo defines persistence operations for generated portfolios.
type Repo interface {
	Create(ctx context.Context, portfolio Portfolio) error
	GetByID(ctx context.Context, userID, portfolioID string) (Portfolio, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Portfolio, error)
}
