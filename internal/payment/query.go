package payment

import (
	"context"
	"math"

	"paydash/internal/domain"
	"paydash/pkg/errors"
)

// QueryEngine turns a PaymentFilter into a stable page plus pagination metadata.
type QueryEngine struct {
	repo     Repository
	maxLimit int
}

func NewQueryEngine(repo Repository, maxLimit int) *QueryEngine {
	return &QueryEngine{repo: repo, maxLimit: maxLimit}
}

// Validate rejects filters that must never reach the store.
func (e *QueryEngine) Validate(f domain.PaymentFilter) error {
	if f.Page <= 0 {
		return errors.NewFilterError("page", "must be a positive integer")
	}
	if f.Limit <= 0 {
		return errors.NewFilterError("limit", "must be a positive integer")
	}
	if e.maxLimit > 0 && f.Limit > e.maxLimit {
		return errors.NewFilterError("limit", "exceeds the maximum page size")
	}
	if f.Status != nil && !f.Status.Valid() {
		return errors.NewFilterError("status", "is not a known payment status")
	}
	if f.Method != nil && !f.Method.Valid() {
		return errors.NewFilterError("method", "is not a known payment method")
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return errors.NewFilterError("startDate", "is after endDate")
	}
	return nil
}

// Run validates f and fetches the requested page.
func (e *QueryEngine) Run(ctx context.Context, f domain.PaymentFilter) (*domain.PaymentPage, error) {
	if err := e.Validate(f); err != nil {
		return nil, err
	}

	records, total, err := e.repo.Query(ctx, domain.PageQuery{
		Predicate: PredicateFor(f),
		Limit:     f.Limit,
		Offset:    Offset(f.Page, f.Limit),
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*domain.Payment{}
	}

	return &domain.PaymentPage{
		Data:       records,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: TotalPages(total, f.Limit),
	}, nil
}

// PredicateFor keeps only the filter fields that are present.
func PredicateFor(f domain.PaymentFilter) domain.Predicate {
	return domain.Predicate{
		Status:      f.Status,
		Method:      f.Method,
		CreatedFrom: f.StartDate,
		CreatedTo:   f.EndDate,
	}
}

// Offset is (page-1)*limit, saturating instead of overflowing.
func Offset(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
