package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// safeText is the allow-list for free text: letters, digits, whitespace and
// basic punctuation. Anything else is rejected rather than escaped.
var safeText = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,áàâãéêíóôõúçÁÀÂÃÉÊÍÓÔÕÚÇ]*$`)

const (
	// MaxID is the largest accepted identifier, page number or quantity.
	MaxID = 2147483647
	// MaxLimit is the largest accepted page size.
	MaxLimit = 100
)

// MaxAmount is the largest accepted monetary input.
var MaxAmount = decimal.RequireFromString("99999999.99")

// MaxGrossTotal is the largest sale gross total the sale columns can store.
var MaxGrossTotal = decimal.RequireFromString("999999999999999999.99")

// Checker runs the semantic rules on already type-checked values. It is safe
// for concurrent use.
type Checker struct {
	v *validator.Validate
}

// NewChecker returns a Checker with the custom "safetext" rule registered.
func NewChecker() *Checker {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("safetext", func(fl validator.FieldLevel) bool {
		return safeText.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &Checker{v: v}
}

// Text trims value and checks its length and character set. It returns the
// trimmed value and whether it passed.
func (c *Checker) Text(r *Report, field, value string, maxLen int) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if err := c.v.Var(trimmed, fmt.Sprintf("min=1,max=%d", maxLen)); err != nil {
		r.Add(Length(field, maxLen))
		return trimmed, false
	}
	if err := c.v.Var(trimmed, "safetext"); err != nil {
		r.Add(InvalidCharacters(field))
		return trimmed, false
	}
	return trimmed, true
}

// OneOf checks that value is one of allowed. Allowed values must not contain
// spaces.
func (c *Checker) OneOf(r *Report, field, value string, allowed []string) bool {
	if err := c.v.Var(value, "required,oneof="+strings.Join(allowed, " ")); err != nil {
		r.Add(OneOf(field, allowed))
		return false
	}
	return true
}

// InRange reports whether v lies in [minV, maxV].
func (c *Checker) InRange(v, minV, maxV int64) bool {
	return c.v.Var(v, fmt.Sprintf("min=%d,max=%d", minV, maxV)) == nil
}

// Amount checks a monetary input: the range first, then at most two fraction
// digits. With exclusiveMin the lower bound itself is rejected.
func (c *Checker) Amount(r *Report, field string, d decimal.Decimal, exclusiveMin bool) bool {
	low := d.IsNegative() || (exclusiveMin && d.IsZero())
	if low || d.GreaterThan(MaxAmount) {
		r.Add(AmountRange(field, "0", MaxAmount.StringFixed(2), exclusiveMin))
		return false
	}
	if !d.Equal(d.Round(2)) {
		r.Add(Precision(field))
		return false
	}
	return true
}
