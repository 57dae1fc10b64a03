package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Amount   *decimal.Decimal `json:"amount" validate:"required,money,decimal_gte=0"`
	Receiver string           `json:"receiver" validate:"required,notblank,max=10"`
	Status   string           `json:"status" validate:"required,oneof=pending success failed"`
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValidateStructured(t *testing.T) {
	v := New()

	assert.Nil(t, v.ValidateStructured(&sample{Amount: dec("0"), Receiver: "acme", Status: "success"}))
	assert.Nil(t, v.ValidateStructured(&sample{Amount: dec("12.50"), Receiver: "acme", Status: "pending"}))

	errs := v.ValidateStructured(&sample{Amount: dec("-0.01"), Receiver: "  ", Status: "refunded"})
	assert.Equal(t, "Must be greater than or equal to 0", errs["amount"])
	assert.Equal(t, "Must not be blank", errs["receiver"])
	assert.Equal(t, "Must be one of: pending, success, failed", errs["status"])

	errs = v.ValidateStructured(&sample{Receiver: "this name is too long", Status: "success"})
	assert.Equal(t, "This field is required", errs["amount"])
	assert.Equal(t, "Must be at most 10 characters", errs["receiver"])
}

func TestValidateStructured_MoneyPrecision(t *testing.T) {
	v := New()

	valid := []string{"9999999999999999.9999", "0.0001", "1.50000000", "1e15", "0e30000000", "100000000000000000000e-8"}
	for _, amount := range valid {
		assert.Nil(t, v.ValidateStructured(&sample{Amount: dec(amount), Receiver: "acme", Status: "success"}), amount)
	}

	invalid := []string{"1e30000000", "1e16", "10000000000000000", "0.00001", "1e-30000000", "-1e30000000"}
	for _, amount := range invalid {
		errs := v.ValidateStructured(&sample{Amount: dec(amount), Receiver: "acme", Status: "success"})
		assert.Equal(t, "Must have at most 16 integer digits and 4 decimal places", errs["amount"], amount)
	}
}

func TestDigits(t *testing.T) {
	tests := []struct {
		in        string
		intDigits int64
		frac      int64
	}{
		{"0", 0, 0},
		{"100", 3, 0},
		{"1000.0", 4, 0},
		{"12.5", 2, 1},
		{"0.05", 0, 2},
		{"-123.456", 3, 3},
		{"1e30000000", 30000001, 0},
		{"5e-7", 0, 7},
	}
	for _, tt := range tests {
		i, f := Digits(decimal.RequireFromString(tt.in))
		assert.Equal(t, tt.intDigits, i, tt.in)
		assert.Equal(t, tt.frac, f, tt.in)
	}
}
