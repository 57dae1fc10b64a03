// ==============================================================================
// VALIDATOR PACKAGE - pkg/validator/validator.go
// ==============================================================================
package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

// Money amounts fit NUMERIC(20,4): at most MoneyIntegerDigits digits before
// the point and MoneyScale after it.
const (
	MoneyIntegerDigits = 16
	MoneyScale         = 4
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}
	v.registerCustomValidations()
	return v
}

// ValidateStructured returns a map of field -> error message keyed by the
// field's JSON name, or nil when the struct is valid.
func (v *Validator) ValidateStructured(i interface{}) map[string]string {
	errs := make(map[string]string)
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				msg := fmt.Sprintf("failed validation on '%s'", e.Tag())
				switch e.Tag() {
				case "required":
					msg = "This field is required"
				case "notblank":
					msg = "Must not be blank"
				case "oneof":
					msg = fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))
				case "gte", "decimal_gte":
					msg = fmt.Sprintf("Must be greater than or equal to %s", e.Param())
				case "money":
					msg = fmt.Sprintf("Must have at most %d integer digits and %d decimal places", MoneyIntegerDigits, MoneyScale)
				case "max":
					msg = fmt.Sprintf("Must be at most %s characters", e.Param())
				}
				errs[e.Field()] = msg
			}
		} else {
			errs["_global"] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (v *Validator) registerCustomValidations() {
	// Report fields by their JSON names so callers can map errors to request keys.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.validate.RegisterValidation("notblank", validators.NotBlank)

	// decimal.Decimal is compared exactly; a float64 conversion loses large
	// exponents to +Inf.
	_ = v.validate.RegisterValidation("decimal_gte", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		if bound.IsZero() {
			return d.Sign() >= 0
		}
		return d.GreaterThanOrEqual(bound)
	})

	_ = v.validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		intDigits, fracDigits := Digits(d)
		return intDigits <= MoneyIntegerDigits && fracDigits <= MoneyScale
	})
}

// Digits counts the significant integer and fractional digits of d without
// expanding its exponent. Trailing fractional zeros are not counted.
func Digits(d decimal.Decimal) (intDigits, fracDigits int64) {
	if d.IsZero() {
		return 0, 0
	}
	coef := d.Coefficient()
	digits := strings.TrimPrefix(coef.String(), "-")
	exp := int64(d.Exponent())

	trimmed := strings.TrimRight(digits, "0")
	exp += int64(len(digits) - len(trimmed))
	n := int64(len(trimmed))

	if exp >= 0 {
		return n + exp, 0
	}
	fracDigits = -exp
	if n+exp > 0 {
		intDigits = n + exp
	}
	return intDigits, fracDigits
}
