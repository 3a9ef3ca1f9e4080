package validation

import (
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Exponents outside this range are rejected before any arithmetic so that a
// literal such as 1e999999999 cannot force a huge allocation.
const maxExponent = 30

// Object is a JSON object split into raw member values. It performs the
// structural (syntactic) tier of validation.
type Object struct {
	prefix string
	fields map[string]jx.Raw
}

// ParseObject parses data as a JSON object. A body that is not valid JSON or
// not an object is reported as a syntactic failure on field.
func ParseObject(r *Report, field string, data []byte) (Object, bool) {
	if !jx.Valid(data) {
		r.Add(Malformed(field))
		return Object{}, false
	}
	return objectFromRaw(r, "", field, data)
}

func objectFromRaw(r *Report, prefix, field string, data []byte) (Object, bool) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		if field == "body" {
			r.Add(Malformed(field))
		} else {
			r.Add(WrongType(field, "an object"))
		}
		return Object{}, false
	}

	fields := make(map[string]jx.Raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		fields[key] = append(jx.Raw(nil), raw...)
		return nil
	}); err != nil {
		r.Add(Malformed(field))
		return Object{}, false
	}
	return Object{prefix: prefix, fields: fields}, true
}

// Field returns the qualified field name, e.g. "items[0].quantity".
func (o Object) Field(name string) string {
	return o.prefix + name
}

// present reports whether name exists and is not null.
func (o Object) present(name string) (jx.Raw, bool) {
	raw, ok := o.fields[name]
	if !ok || typeOf(raw) == jx.Null {
		return nil, false
	}
	return raw, true
}

// Has reports whether name is present with a non-null value.
func (o Object) Has(name string) bool {
	_, ok := o.present(name)
	return ok
}

func typeOf(raw jx.Raw) jx.Type {
	return jx.DecodeBytes(raw).Next()
}

// String returns a string member. Absent or null members are reported only
// when required.
func (o Object) String(r *Report, name string, required bool) (string, bool) {
	raw, ok := o.present(name)
	if !ok {
		if required {
			r.Add(Required(o.Field(name)))
		}
		return "", false
	}
	if typeOf(raw) != jx.String {
		r.Add(WrongType(o.Field(name), "a string"))
		return "", false
	}
	s, err := jx.DecodeBytes(raw).Str()
	if err != nil {
		r.Add(WrongType(o.Field(name), "a string"))
		return "", false
	}
	return s, true
}

// Integer returns a whole JSON number. Fractional numbers and other types are
// syntactic failures; the second result reports whether the number fits the
// int64 range checked by the caller.
func (o Object) Integer(r *Report, name string, required bool) (v int64, inRange, ok bool) {
	raw, present := o.present(name)
	if !present {
		if required {
			r.Add(Required(o.Field(name)))
		}
		return 0, false, false
	}
	d, isNum := number(raw)
	if !isNum {
		r.Add(WrongType(o.Field(name), "an integer"))
		return 0, false, false
	}
	if fractional(d) {
		r.Add(WrongType(o.Field(name), "an integer"))
		return 0, false, false
	}
	if outsideExponent(d) {
		return 0, false, true
	}
	if d.GreaterThan(decimal.NewFromInt(MaxID)) || d.LessThan(decimal.NewFromInt(-MaxID)) {
		return 0, false, true
	}
	return d.IntPart(), true, true
}

// Amount returns a decimal from a JSON number or numeric string. The literal
// text is parsed directly, never through float64.
func (o Object) Amount(r *Report, name string, required bool) (d decimal.Decimal, inRange, ok bool) {
	raw, present := o.present(name)
	if !present {
		if required {
			r.Add(Required(o.Field(name)))
		}
		return decimal.Zero, false, false
	}

	var err error
	switch typeOf(raw) {
	case jx.Number:
		d, _ = number(raw)
	case jx.String:
		var s string
		if s, err = jx.DecodeBytes(raw).Str(); err == nil {
			d, err = decimal.NewFromString(s)
		}
	default:
		r.Add(WrongType(o.Field(name), "a number"))
		return decimal.Zero, false, false
	}
	if err != nil {
		r.Add(WrongType(o.Field(name), "a number"))
		return decimal.Zero, false, false
	}
	if outsideExponent(d) {
		return decimal.Zero, false, true
	}
	return d, true, true
}

// Elements returns the raw elements of an array member. The second result is
// false when the member is absent or null; the third when it is not an array.
func (o Object) Elements(name string) (elems []jx.Raw, present, isArray bool) {
	raw, ok := o.present(name)
	if !ok {
		return nil, false, false
	}
	if typeOf(raw) != jx.Array {
		return nil, true, false
	}
	if err := jx.DecodeBytes(raw).Arr(func(d *jx.Decoder) error {
		e, err := d.Raw()
		if err != nil {
			return err
		}
		elems = append(elems, append(jx.Raw(nil), e...))
		return nil
	}); err != nil {
		return nil, true, false
	}
	return elems, true, true
}

// Element parses one array element as an object with the given prefix.
func Element(r *Report, prefix string, raw jx.Raw) (Object, bool) {
	field := prefix
	if n := len(field); n > 0 && field[n-1] == '.' {
		field = field[:n-1]
	}
	return objectFromRaw(r, prefix, field, raw)
}

func number(raw jx.Raw) (decimal.Decimal, bool) {
	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Number {
		return decimal.Zero, false
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// fractional reports whether d has a non-zero fractional part. It inspects
// only the coefficient digits, so it stays cheap for any exponent.
func fractional(d decimal.Decimal) bool {
	e := int64(d.Exponent())
	if e >= 0 {
		return false
	}
	digits := strings.TrimPrefix(d.Coefficient().String(), "-")
	if digits == "0" {
		return false
	}
	trailingZeros := int64(len(digits) - len(strings.TrimRight(digits, "0")))
	return trailingZeros < -e
}

func outsideExponent(d decimal.Decimal) bool {
	e := d.Exponent()
	return e > maxExponent || e < -maxExponent
}
