package payment

import (
	"math"
	"testing"
	"time"

	"paydash/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{23, 5, 5},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.limit), "total=%d limit=%d", tt.total, tt.limit)
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 10, Offset(2, 10))
	assert.Equal(t, 90, Offset(10, 10))
	assert.Equal(t, math.MaxInt, Offset(math.MaxInt, 100))
}

func TestPredicateFor(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := domain.PaymentFilter{
		Method:    domain.MethodPtr(domain.PaymentMethodDebitCard),
		StartDate: &start,
		Page:      1,
		Limit:     10,
	}
	p := PredicateFor(f)
	assert.Nil(t, p.Status)
	assert.Equal(t, domain.PaymentMethodDebitCard, *p.Method)
	assert.Equal(t, start, *p.CreatedFrom)
	assert.Nil(t, p.CreatedTo)
	assert.Nil(t, p.CreatedBefore)
}

func TestWindowsAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)
	w := WindowsAt(now, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), w.TodayStart)
	assert.Equal(t, now.Add(-7*24*time.Hour), w.WeekStart)
	assert.Equal(t, now, w.Now)
}
