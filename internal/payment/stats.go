package payment

import (
	"context"
	"sort"
	"time"

	"paydash/internal/domain"
	"paydash/pkg/logger"

	"github.com/shopspring/decimal"
)

const week = 7 * 24 * time.Hour

// Statistic names, also reported in PaymentStats.Unavailable.
const (
	StatPaymentsToday = "totalPaymentsToday"
	StatPaymentsWeek  = "totalPaymentsWeek"
	StatRevenue       = "totalRevenue"
	StatFailed        = "failedTransactions"
	StatRevenueByDay  = "revenueByDay"
)

// Windows are the time ranges of one stats request.
type Windows struct {
	Now        time.Time
	TodayStart time.Time
	WeekStart  time.Time
}

// WindowsAt anchors the today and week windows to now in loc.
func WindowsAt(now time.Time, loc *time.Location) Windows {
	local := now.In(loc)
	return Windows{
		Now:        now,
		TodayStart: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
		WeekStart:  now.Add(-week),
	}
}

// Aggregator computes the dashboard statistics. Each statistic is an
// independent store call so one failure does not hide the others.
type Aggregator struct {
	repo         Repository
	loc          *time.Location
	now          func() time.Time
	allowPartial bool
	logger       logger.Logger
}

func NewAggregator(repo Repository, loc *time.Location, now func() time.Time, allowPartial bool, log logger.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{repo: repo, loc: loc, now: now, allowPartial: allowPartial, logger: log}
}

type statResult struct {
	name string
	err  error
}

// Compute runs all statistics concurrently. If ctx is done first, Compute
// returns ctx.Err() and the in-flight calls finish on their own.
func (a *Aggregator) Compute(ctx context.Context) (*domain.PaymentStats, error) {
	w := WindowsAt(a.now(), a.loc)
	success := domain.StatusPtr(domain.PaymentStatusSuccess)
	weekWindow := domain.Predicate{Status: success, CreatedFrom: &w.WeekStart, CreatedBefore: &w.Now}

	var (
		today, thisWeek, failed int
		revenue                 decimal.Decimal
		byDay                   []domain.DailyRevenue
	)

	tasks := map[string]func(context.Context) error{
		StatPaymentsToday: func(ctx context.Context) (err error) {
			today, err = a.repo.Count(ctx, domain.Predicate{Status: success, CreatedFrom: &w.TodayStart, CreatedBefore: &w.Now})
			return err
		},
		StatPaymentsWeek: func(ctx context.Context) (err error) {
			thisWeek, err = a.repo.Count(ctx, weekWindow)
			return err
		},
		StatRevenue: func(ctx context.Context) (err error) {
			revenue, err = a.repo.SumAmount(ctx, domain.Predicate{Status: success})
			return err
		},
		StatFailed: func(ctx context.Context) (err error) {
			failed, err = a.repo.Count(ctx, domain.Predicate{Status: domain.StatusPtr(domain.PaymentStatusFailed)})
			return err
		},
		StatRevenueByDay: func(ctx context.Context) (err error) {
			byDay, err = a.repo.SumAmountByDay(ctx, weekWindow, a.loc)
			return err
		},
	}

	results := make(chan statResult, len(tasks))
	for name, task := range tasks {
		go func(name string, task func(context.Context) error) {
			results <- statResult{name: name, err: task(ctx)}
		}(name, task)
	}

	var failures []statResult
	for range tasks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-results:
			if r.err != nil {
				failures = append(failures, r)
			}
		}
	}

	stats := &domain.PaymentStats{
		TotalPaymentsToday: today,
		TotalPaymentsWeek:  thisWeek,
		TotalRevenue:       revenue,
		FailedTransactions: failed,
		RevenueByDay:       byDay,
	}
	if stats.RevenueByDay == nil {
		stats.RevenueByDay = []domain.DailyRevenue{}
	}
	if len(failures) == 0 {
		return stats, nil
	}

	if !a.allowPartial || len(failures) == len(tasks) {
		return nil, failures[0].err
	}
	for _, f := range failures {
		a.logger.Warn("Statistic unavailable", map[string]interface{}{
			"statistic": f.name,
			"error":     f.err.Error(),
		})
		stats.Unavailable = append(stats.Unavailable, f.name)
		a.zero(stats, f.name)
	}
	stats.Partial = true
	sort.Strings(stats.Unavailable)
	return stats, nil
}

// zero clears a statistic whose computation failed.
func (a *Aggregator) zero(s *domain.PaymentStats, name string) {
	switch name {
	case StatPaymentsToday:
		s.TotalPaymentsToday = 0
	case StatPaymentsWeek:
		s.TotalPaymentsWeek = 0
	case StatRevenue:
		s.TotalRevenue = decimal.Zero
	case StatFailed:
		s.FailedTransactions = 0
	case StatRevenueByDay:
		s.RevenueByDay = []domain.DailyRevenue{}
	}
}

