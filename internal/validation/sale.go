package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/sales-api/internal/domain/money"
	"github.com/xenking/sales-api/internal/domain/sale"
)

const (
	maxCodeLen         = 50
	maxCustomerNameLen = 100
	maxSearchLen       = 255
)

var digitsOnly = regexp.MustCompile(`^[+-]?[0-9]+$`)

func statusNames() []string {
	out := make([]string, 0, 3)
	for _, s := range sale.Statuses() {
		out = append(out, string(s))
	}
	return out
}

// DecodeDraft validates a create-sale body and builds the draft.
func (c *Checker) DecodeDraft(body []byte) (sale.Draft, Result) {
	var (
		r Report
		d sale.Draft
	)
	obj, ok := ParseObject(&r, "body", body)
	if !ok {
		return d, r.Result()
	}

	if s, ok := obj.String(&r, "code", true); ok {
		d.Code, _ = c.Text(&r, "code", s, maxCodeLen)
	}
	if s, ok := obj.String(&r, "customerName", true); ok {
		d.CustomerName, _ = c.Text(&r, "customerName", s, maxCustomerNameLen)
	}
	if st, ok := c.status(&r, obj); ok {
		d.Status = st
	}
	if m, ok := c.saleDiscount(&r, obj); ok {
		d.SaleDiscount = &m
	}

	items, present, isArray := obj.Elements("items")
	switch {
	case !present:
		r.Add(Required("items"))
	case !isArray || len(items) == 0:
		r.Add(NonEmptyArray("items"))
	default:
		d.Items = c.items(&r, items)
	}

	return d, r.Result()
}

// DecodePatch validates an update-sale body. Every field is optional, but
// items, when present, must be a non-empty array.
func (c *Checker) DecodePatch(body []byte) (sale.Patch, Result) {
	var (
		r Report
		p sale.Patch
	)
	obj, ok := ParseObject(&r, "body", body)
	if !ok {
		return p, r.Result()
	}

	if s, ok := obj.String(&r, "code", false); ok {
		if v, ok := c.Text(&r, "code", s, maxCodeLen); ok {
			p.Code = &v
		}
	}
	if s, ok := obj.String(&r, "customerName", false); ok {
		if v, ok := c.Text(&r, "customerName", s, maxCustomerNameLen); ok {
			p.CustomerName = &v
		}
	}
	if st, ok := c.status(&r, obj); ok {
		p.Status = &st
	}
	if m, ok := c.saleDiscount(&r, obj); ok {
		p.SaleDiscount = &m
	}

	items, present, isArray := obj.Elements("items")
	switch {
	case !present:
	case !isArray || len(items) == 0:
		r.Add(NonEmptyArray("items"))
	default:
		p.Items = c.items(&r, items)
	}

	return p, r.Result()
}

func (c *Checker) status(r *Report, obj Object) (sale.Status, bool) {
	s, ok := obj.String(r, "status", false)
	if !ok || !c.OneOf(r, "status", s, statusNames()) {
		return "", false
	}
	return sale.Status(s), true
}

func (c *Checker) saleDiscount(r *Report, obj Object) (money.Money, bool) {
	d, inRange, ok := obj.Amount(r, "saleDiscount", false)
	if !ok {
		return money.Money{}, false
	}
	if !inRange {
		r.Add(AmountRange("saleDiscount", "0", MaxAmount.StringFixed(2), false))
		return money.Money{}, false
	}
	if !c.Amount(r, "saleDiscount", d, false) {
		return money.Money{}, false
	}
	return money.FromDecimal(d), true
}

func (c *Checker) items(r *Report, elems []jx.Raw) []sale.LineInput {
	out := make([]sale.LineInput, 0, len(elems))
	gross := decimal.Zero
	for i, raw := range elems {
		prefix := fmt.Sprintf("items[%d].", i)
		obj, ok := Element(r, prefix, raw)
		if !ok {
			continue
		}
		if in, ok := c.item(r, obj); ok {
			out = append(out, in)
			gross = gross.Add(in.UnitPrice.MulInt(in.Quantity).Decimal())
		}
	}
	if gross.GreaterThan(MaxGrossTotal) {
		r.Add(ExceedsMaxTotal("items"))
	}
	return out
}

func (c *Checker) item(r *Report, obj Object) (sale.LineInput, bool) {
	var in sale.LineInput
	valid := true

	productID, ok := c.itemInt(r, obj, "productId")
	valid = valid && ok
	in.ProductID = productID

	quantity, ok := c.itemInt(r, obj, "quantity")
	valid = valid && ok
	in.Quantity = quantity

	price, inRange, ok := obj.Amount(r, "unitPrice", true)
	switch {
	case !ok:
		valid = false
	case !inRange:
		r.Add(AmountRange(obj.Field("unitPrice"), "0", MaxAmount.StringFixed(2), true))
		valid = false
	case !c.Amount(r, obj.Field("unitPrice"), price, true):
		valid = false
	default:
		in.UnitPrice = money.FromDecimal(price)
	}

	discount, inRange, ok := obj.Amount(r, "itemDiscount", false)
	switch {
	case !ok:
		if obj.Has("itemDiscount") {
			valid = false
		}
		in.ItemDiscount = money.Zero
	case !inRange:
		r.Add(AmountRange(obj.Field("itemDiscount"), "0", MaxAmount.StringFixed(2), false))
		valid = false
	case !c.Amount(r, obj.Field("itemDiscount"), discount, false):
		valid = false
	default:
		in.ItemDiscount = money.FromDecimal(discount)
	}

	if !valid {
		return sale.LineInput{}, false
	}
	if in.ItemDiscount.GreaterThan(in.UnitPrice.MulInt(in.Quantity)) {
		r.Add(ExceedsGross(obj.Field("itemDiscount")))
		return sale.LineInput{}, false
	}
	return in, true
}

func (c *Checker) itemInt(r *Report, obj Object, name string) (int64, bool) {
	v, inRange, ok := obj.Integer(r, name, true)
	if !ok {
		return 0, false
	}
	if !inRange || !c.InRange(v, 1, MaxID) {
		r.Add(ItemIntRange(obj.Field(name), name, 1, MaxID))
		return 0, false
	}
	return v, true
}

// queryInt parses an integer query or path value. Non-numeric and fractional
// input is syntactic; numeric input outside [minV, maxV] is semantic.
func (c *Checker) queryInt(r *Report, field, raw string, minV, maxV int64) (int64, bool) {
	if !digitsOnly.MatchString(raw) {
		r.Add(WrongType(field, "an integer"))
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !c.InRange(v, minV, maxV) {
		r.Add(IntRange(field, minV, maxV))
		return 0, false
	}
	return v, true
}

// DecodeID validates a sale or product identifier from the path.
func (c *Checker) DecodeID(raw string) (int64, Result) {
	var r Report
	id, _ := c.queryInt(&r, "id", raw, 1, MaxID)
	return id, r.Result()
}

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or an RFC 3339 timestamp. For a calendar
// date, end selects the start of the following day.
func parseDate(raw string, end bool) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		if end {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		if end {
			t = t.Add(time.Microsecond)
		}
		return t, true
	}
	return time.Time{}, false
}

// DecodeFilter validates the list query parameters.
func (c *Checker) DecodeFilter(q url.Values) (sale.Filter, Result) {
	var (
		r Report
		f sale.Filter
	)

	if q.Has("page") {
		if v, ok := c.queryInt(&r, "page", q.Get("page"), 1, MaxID); ok {
			f.Page = int(v)
		}
	}
	if q.Has("limit") {
		if v, ok := c.queryInt(&r, "limit", q.Get("limit"), 1, MaxLimit); ok {
			f.Limit = int(v)
		}
	}
	if q.Has("search") {
		if v, ok := c.Text(&r, "search", q.Get("search"), maxSearchLen); ok {
			f.Search = v
		}
	}
	if q.Has("status") {
		if s := q.Get("status"); c.OneOf(&r, "status", s, statusNames()) {
			st := sale.Status(s)
			f.Status = &st
		}
	}

	var from, to time.Time
	if q.Has("dateFrom") {
		t, ok := parseDate(strings.TrimSpace(q.Get("dateFrom")), false)
		if ok {
			from = t
			f.From = &from
		} else {
			r.Add(InvalidDate("dateFrom"))
		}
	}
	if q.Has("dateTo") {
		t, ok := parseDate(strings.TrimSpace(q.Get("dateTo")), true)
		if ok {
			to = t
			f.Before = &to
		} else {
			r.Add(InvalidDate("dateTo"))
		}
	}
	if f.From != nil && f.Before != nil && !f.From.Before(*f.Before) {
		r.Add(DateOrder("dateFrom", "dateTo"))
	}

	return f, r.Result()
}
