package portfolios

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores portfolios in memory and is safe for concurrent use.
// It backs dev environments without a database.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Portfolio
	byUser map[string][]Portfolio
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Portfolio),
		byUser: make(map[string][]Portfolio),
	}
}

// Create stores the portfolio.
func (r *MemoryRepo) Create(ctx context.Context, portfolio Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[portfolio.ID] = portfolio
	r.byUser[portfolio.UserID] = append(r.byUser[portfolio.UserID], portfolio)
	return nil
}

// GetByID returns a portfolio by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, portfolioID string) (Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return Portfolio{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	portfolio, ok := r.byID[portfolioID]
	if !ok {
		return Portfolio{}, ErrNotFound
	}
	if portfolio.UserID != userID {
		return Portfolio{}, ErrForbidden
	}
	return portfolio, nil
}

// ListByUser returns portfolios for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	owned := r.byUser[userID]
	r.mu.RUnlock()

	if len(owned) == 0 || offset >= len(owned) {
		return []Portfolio{}, nil
	}

	portfolios := make([]Portfolio, len(owned))
	copy(portfolios, owned)
	sort.Slice(portfolios, func(i, j int) bool {
		return portfolios[i].CreatedAt.After(portfolios[j].CreatedAt)
	})

	end := len(portfolios)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return portfolios[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
