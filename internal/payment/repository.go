package payment

import (
	"context"
	"time"

	"paydash/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the record store contract. Implementations return
// errors.ErrNotFound for a missing id and wrap connectivity failures with
// errors.ErrStoreUnavailable. Every call observes its own consistent view.
type Repository interface {
	// Insert persists p, assigning p.ID when it is uuid.Nil, and returns the id.
	Insert(ctx context.Context, p *domain.Payment) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	// Query returns one page ordered by created_at DESC, id DESC together
	// with the number of records matching q.Predicate.
	Query(ctx context.Context, q domain.PageQuery) ([]*domain.Payment, int, error)
	Count(ctx context.Context, p domain.Predicate) (int, error)
	SumAmount(ctx context.Context, p domain.Predicate) (decimal.Decimal, error)
	// SumAmountByDay groups by calendar day in loc, ascending.
	SumAmountByDay(ctx context.Context, p domain.Predicate, loc *time.Location) ([]domain.DailyRevenue, error)
}

// Broadcaster fans a newly created payment out to live subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, p *domain.Payment) error
}
