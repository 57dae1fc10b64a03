// Package domain defines the payment records and query shapes shared by the
// store adapters, the payment service and the HTTP layer.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPaypal, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// Payment is a persisted payment record. ID and CreatedAt are assigned at
// creation and never change.
type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Receiver  string          `json:"receiver" db:"receiver"`
	Status    PaymentStatus   `json:"status" db:"status"`
	Method    PaymentMethod   `json:"method" db:"method"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// CreatePaymentInput is the unvalidated body of a create request.
type CreatePaymentInput struct {
	Amount   *decimal.Decimal `json:"amount" validate:"required,money,decimal_gte=0"`
	Receiver string           `json:"receiver" validate:"required,notblank,max=255"`
	Status   PaymentStatus    `json:"status" validate:"required,oneof=pending success failed"`
	Method   PaymentMethod    `json:"method" validate:"required,oneof=credit_card debit_card paypal bank_transfer"`
}

// PaymentFilter is a list request. Nil fields impose no constraint.
// StartDate and EndDate are both inclusive bounds on CreatedAt.
type PaymentFilter struct {
	Status    *PaymentStatus
	Method    *PaymentMethod
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// Predicate is the conjunction a store evaluates against records. Nil fields
// are ignored. CreatedFrom is inclusive, CreatedTo inclusive, CreatedBefore
// exclusive.
type Predicate struct {
	Status        *PaymentStatus
	Method        *PaymentMethod
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	CreatedBefore *time.Time
}

// Matches evaluates the predicate in memory.
func (p Predicate) Matches(rec *Payment) bool {
	if p.Status != nil && rec.Status != *p.Status {
		return false
	}
	if p.Method != nil && rec.Method != *p.Method {
		return false
	}
	if p.CreatedFrom != nil && rec.CreatedAt.Before(*p.CreatedFrom) {
		return false
	}
	if p.CreatedTo != nil && rec.CreatedAt.After(*p.CreatedTo) {
		return false
	}
	if p.CreatedBefore != nil && !rec.CreatedAt.Before(*p.CreatedBefore) {
		return false
	}
	return true
}

// PageQuery asks a store for one window of the records matching Predicate,
// ordered by created_at DESC, id DESC.
type PageQuery struct {
	Predicate Predicate
	Limit     int
	Offset    int
}

// PaymentPage is the paginated list response.
type PaymentPage struct {
	Data       []*Payment `json:"data"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

// DailyRevenue is the success revenue of one calendar day (YYYY-MM-DD).
type DailyRevenue struct {
	Day     string          `json:"day" db:"day"`
	Revenue decimal.Decimal `json:"revenue" db:"revenue"`
}

// PaymentStats is computed per request and never stored.
type PaymentStats struct {
	TotalPaymentsToday int             `json:"totalPaymentsToday"`
	TotalPaymentsWeek  int             `json:"totalPaymentsWeek"`
	TotalRevenue       decimal.Decimal `json:"totalRevenue"`
	FailedTransactions int             `json:"failedTransactions"`
	RevenueByDay       []DailyRevenue  `json:"revenueByDay"`
	Partial            bool            `json:"partial,omitempty"`
	Unavailable        []string        `json:"unavailable,omitempty"`
}

func StatusPtr(s PaymentStatus) *PaymentStatus { return &s }

func MethodPtr(m PaymentMethod) *PaymentMethod { return &m }

func TimePtr(t time.Time) *time.Time { return &t }
