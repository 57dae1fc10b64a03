// ==============================================================================
// PAYMENT SERVICE - internal/payment/service.go
// ==============================================================================
package payment

import (
	"context"
	"strings"
	"time"

	"paydash/internal/domain"
	"paydash/pkg/errors"
	"paydash/pkg/logger"
	"paydash/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options tunes the service. Zero values fall back to the defaults below.
type Options struct {
	MaxLimit          int
	QueryTimeout      time.Duration
	Location          *time.Location
	AllowPartialStats bool
	Clock             func() time.Time
}

// Service is the facade used by the transport layer: create, list, get and stats.
type Service struct {
	repo         Repository
	broadcaster  Broadcaster
	validator    *validator.Validator
	queries      *QueryEngine
	stats        *Aggregator
	logger       logger.Logger
	now          func() time.Time
	queryTimeout time.Duration
}

func NewService(repo Repository, broadcaster Broadcaster, val *validator.Validator, log logger.Logger, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if val == nil {
		val = validator.New()
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Service{
		repo:         repo,
		broadcaster:  broadcaster,
		validator:    val,
		queries:      NewQueryEngine(repo, opts.MaxLimit),
		stats:        NewAggregator(repo, opts.Location, opts.Clock, opts.AllowPartialStats, log),
		logger:       log,
		now:          opts.Clock,
		queryTimeout: opts.QueryTimeout,
	}
}

// CreatePayment validates, persists and then broadcasts a payment. A failed
// broadcast is logged and never fails the call.
func (s *Service) CreatePayment(ctx context.Context, in *domain.CreatePaymentInput) (*domain.Payment, error) {
	if in == nil {
		return nil, errors.NewValidationError(map[string]string{"_global": "Request body is required"})
	}
	if errs := s.validator.ValidateStructured(in); errs != nil {
		return nil, errors.NewValidationError(errs)
	}

	p := &domain.Payment{
		ID:       uuid.New(),
		Amount:   normalizeAmount(*in.Amount),
		Receiver: strings.TrimSpace(in.Receiver),
		Status:   in.Status,
		Method:   in.Method,
		// Microsecond precision matches what the store keeps.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	id, err := s.repo.Insert(storeCtx, p)
	if err != nil {
		s.logger.Error("Payment create failed", map[string]interface{}{"error": err.Error()})
		return nil, storeError(err)
	}
	p.ID = id

	s.logger.Info("Payment created", map[string]interface{}{
		"payment_id": p.ID,
		"status":     p.Status,
		"method":     p.Method,
	})

	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(ctx, p); err != nil {
			s.logger.Warn("Payment broadcast failed", map[string]interface{}{
				"payment_id": p.ID,
				"error":      errors.Wrap(errors.ErrBroadcastFailure, err.Error()).Error(),
			})
		}
	}

	return p, nil
}

// ListPayments returns one page of payments matching the filter.
func (s *Service) ListPayments(ctx context.Context, f domain.PaymentFilter) (*domain.PaymentPage, error) {
	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	page, err := s.queries.Run(storeCtx, f)
	if err != nil {
		return nil, storeError(err)
	}
	return page, nil
}

// GetPayment returns a single payment or errors.ErrNotFound.
func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.repo.FindByID(storeCtx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

// GetStats computes the dashboard statistics anchored at the current time.
func (s *Service) GetStats(ctx context.Context) (*domain.PaymentStats, error) {
	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	stats, err := s.stats.Compute(storeCtx)
	if err != nil {
		return nil, storeError(err)
	}
	return stats, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// storeError maps an exhausted timeout budget to ErrStoreUnavailable and
// leaves every other error unchanged.
// normalizeAmount rescales a validated amount to the stored scale. A zero
// amount may carry any exponent and is replaced outright.
func normalizeAmount(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return d.Round(validator.MoneyScale)
}

func storeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errors.ErrStoreUnavailable) {
		return errors.Unavailable(err)
	}
	return err
}
