// Package memory is an in-process record store used by tests and by the
// memory store driver. Each call observes a consistent snapshot.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"paydash/internal/domain"
	"paydash/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, exists := r.payments[p.ID]; exists {
		return uuid.Nil, errors.Wrap(errors.ErrInternal, "duplicate payment id")
	}
	cp := *p
	r.payments[p.ID] = &cp
	return p.ID, nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PaymentRepository) Query(ctx context.Context, q domain.PageQuery) ([]*domain.Payment, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	matched := r.match(q.Predicate)
	sort.Slice(matched, func(i, j int) bool { return newerFirst(matched[i], matched[j]) })

	total := len(matched)
	if q.Offset >= total {
		return []*domain.Payment{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}

func (r *PaymentRepository) Count(ctx context.Context, p domain.Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(r.match(p)), nil
}

func (r *PaymentRepository) SumAmount(ctx context.Context, p domain.Predicate) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, rec := range r.match(p) {
		sum = sum.Add(rec.Amount)
	}
	return sum, nil
}

func (r *PaymentRepository) SumAmountByDay(ctx context.Context, p domain.Predicate, loc *time.Location) ([]domain.DailyRevenue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	byDay := make(map[string]decimal.Decimal)
	for _, rec := range r.match(p) {
		day := rec.CreatedAt.In(loc).Format("2006-01-02")
		byDay[day] = byDay[day].Add(rec.Amount)
	}

	out := make([]domain.DailyRevenue, 0, len(byDay))
	for day, revenue := range byDay {
		out = append(out, domain.DailyRevenue{Day: day, Revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (r *PaymentRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// match copies the matching records under the read lock.
func (r *PaymentRepository) match(p domain.Predicate) []*domain.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Payment, 0, len(r.payments))
	for _, rec := range r.payments {
		if p.Matches(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out
}

// newerFirst orders by created_at DESC, id DESC.
func newerFirst(a, b *domain.Payment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}
