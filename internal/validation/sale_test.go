package validation

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/sales-api/internal/domain/sale"
)

const validBody = `{
	"code": "V-001",
	"customerName": "João da Silva",
	"saleDiscount": 10,
	"items": [
		{"productId": 1, "quantity": 2, "unitPrice": 50},
		{"productId": 2, "quantity": 3, "unitPrice": "30.00", "itemDiscount": 0}
	]
}`

func messages(res Result) []string {
	out := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		out[i] = e.Message
	}
	return out
}

func containsMessage(t *testing.T, res Result, substr string) {
	t.Helper()
	for _, m := range messages(res) {
		if strings.Contains(m, substr) {
			return
		}
	}
	t.Fatalf("no error message contains %q: %v", substr, messages(res))
}

func TestDecodeDraft_Valid(t *testing.T) {
	c := NewChecker()

	d, res := c.DecodeDraft([]byte(validBody))
	require.True(t, res.OK(), "unexpected errors: %v", messages(res))

	assert.Equal(t, "V-001", d.Code)
	assert.Equal(t, "João da Silva", d.CustomerName)
	assert.Equal(t, sale.Status(""), d.Status)
	require.NotNil(t, d.SaleDiscount)
	assert.Equal(t, "10.00", d.SaleDiscount.String())
	require.Len(t, d.Items, 2)
	assert.Equal(t, int64(1), d.Items[0].ProductID)
	assert.Equal(t, int64(2), d.Items[0].Quantity)
	assert.Equal(t, "50.00", d.Items[0].UnitPrice.String())
	assert.Equal(t, "0.00", d.Items[0].ItemDiscount.String())
	assert.Equal(t, "30.00", d.Items[1].UnitPrice.String())
}

func TestDecodeDraft_TrimsText(t *testing.T) {
	c := NewChecker()

	d, res := c.DecodeDraft([]byte(`{"code":"  A1  ","customerName":" Ana ","status":"completed","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`))
	require.True(t, res.OK(), "unexpected errors: %v", messages(res))
	assert.Equal(t, "A1", d.Code)
	assert.Equal(t, "Ana", d.CustomerName)
	assert.Equal(t, sale.StatusCompleted, d.Status)
	assert.Nil(t, d.SaleDiscount)
}

func TestDecodeDraft_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
		wantSubstr string
	}{
		{
			name:       "empty items",
			body:       `{"code":"A","customerName":"B","items":[]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items",
			wantSubstr: "at least one item",
		},
		{
			name:       "missing items",
			body:       `{"code":"A","customerName":"B"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items",
			wantSubstr: "required",
		},
		{
			name:       "null items",
			body:       `{"code":"A","customerName":"B","items":null}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items",
			wantSubstr: "required",
		},
		{
			name:       "items not an array",
			body:       `{"code":"A","customerName":"B","items":"abc"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items",
			wantSubstr: "must be an array",
		},
		{
			name:       "fractional product id with tiny exponent",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1e-31,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items[0].productId",
			wantSubstr: "must be an integer",
		},
		{
			name:       "quantity with huge exponent",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":1e40,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].quantity",
			wantSubstr: "valid quantity",
		},
		{
			name: "gross total over storable maximum",
			body: `{"code":"A","customerName":"B","items":[` +
				strings.Repeat(`{"productId":1,"quantity":2147483647,"unitPrice":99999999.99},`, 4) +
				`{"productId":1,"quantity":2147483647,"unitPrice":99999999.99}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items",
			wantSubstr: "gross total exceeds the maximum",
		},
		{
			name:       "fractional product id",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1.5,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items[0].productId",
			wantSubstr: "must be an integer",
		},
		{
			name:       "product id over max",
			body:       `{"code":"A","customerName":"B","items":[{"productId":2147483648,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].productId",
			wantSubstr: "integer between 1 and 2147483647",
		},
		{
			name:       "product id object",
			body:       `{"code":"A","customerName":"B","items":[{"productId":{"$gt":0},"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items[0].productId",
			wantSubstr: "integer",
		},
		{
			name:       "negative quantity",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":-1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].quantity",
			wantSubstr: "valid quantity",
		},
		{
			name:       "zero quantity",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":0,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].quantity",
			wantSubstr: "valid quantity",
		},
		{
			name:       "item not an object",
			body:       `{"code":"A","customerName":"B","items":[1]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items[0]",
			wantSubstr: "must be an object",
		},
		{
			name:       "zero unit price",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":0}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].unitPrice",
			wantSubstr: "greater than 0",
		},
		{
			name:       "unit price above max",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":100000000}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].unitPrice",
			wantSubstr: "at most 99999999.99",
		},
		{
			name:       "unit price with three decimals",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":10.999}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].unitPrice",
			wantSubstr: "at most 2 decimal places",
		},
		{
			name:       "unit price as text",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":"ten"}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items[0].unitPrice",
			wantSubstr: "must be a number",
		},
		{
			name:       "missing unit price",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items[0].unitPrice",
			wantSubstr: "is required",
		},
		{
			name:       "negative item discount",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":5,"itemDiscount":-1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].itemDiscount",
			wantSubstr: "between 0 and 99999999.99",
		},
		{
			name:       "item discount above gross",
			body:       `{"code":"A","customerName":"B","items":[{"productId":1,"quantity":2,"unitPrice":5,"itemDiscount":10.01}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "items[0].itemDiscount",
			wantSubstr: "exceeds",
		},
		{
			name:       "sale discount precision",
			body:       `{"code":"A","customerName":"B","saleDiscount":"1.001","items":[{"productId":1,"quantity":1,"unitPrice":5}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "saleDiscount",
			wantSubstr: "at most 2 decimal places",
		},
		{
			name:       "sale discount boolean",
			body:       `{"code":"A","customerName":"B","saleDiscount":true,"items":[{"productId":1,"quantity":1,"unitPrice":5}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "saleDiscount",
			wantSubstr: "must be a number",
		},
		{
			name:       "script in code",
			body:       `{"code":"<script>alert(1)</script>","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "code",
			wantSubstr: "invalid characters",
		},
		{
			name:       "sql in customer name",
			body:       `{"code":"A","customerName":"x'; DROP TABLE sales; --","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "customerName",
			wantSubstr: "invalid characters",
		},
		{
			name:       "command injection in code",
			body:       `{"code":"A; rm -rf /","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "code",
			wantSubstr: "invalid characters",
		},
		{
			name:       "empty code",
			body:       `{"code":"","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "code",
			wantSubstr: "between 1 and 50 characters",
		},
		{
			name:       "whitespace code",
			body:       `{"code":"   ","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "code",
			wantSubstr: "between 1 and 50 characters",
		},
		{
			name:       "code too long",
			body:       `{"code":"` + strings.Repeat("A", 51) + `","customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "code",
			wantSubstr: "between 1 and 50 characters",
		},
		{
			name:       "code number",
			body:       `{"code":123,"customerName":"B","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "code",
			wantSubstr: "must be a string",
		},
		{
			name:       "invalid status",
			body:       `{"code":"A","customerName":"B","status":"Aberta","items":[{"productId":1,"quantity":1,"unitPrice":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "status",
			wantSubstr: "must be one of: open, completed, cancelled",
		},
		{
			name:       "not json",
			body:       `code=A`,
			wantStatus: http.StatusBadRequest,
			wantField:  "body",
			wantSubstr: "JSON object",
		},
		{
			name:       "array body",
			body:       `[]`,
			wantStatus: http.StatusBadRequest,
			wantField:  "body",
			wantSubstr: "JSON object",
		},
		{
			name:       "mixed syntactic and semantic",
			body:       `{"code":"<b>","items":[]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "customerName",
			wantSubstr: "is required",
		},
	}

	c := NewChecker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := c.DecodeDraft([]byte(tt.body))
			require.False(t, res.OK())
			assert.Equal(t, tt.wantStatus, res.Status, "errors: %v", messages(res))

			var fields []string
			for _, e := range res.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.wantField)
			containsMessage(t, res, tt.wantSubstr)
		})
	}
}

func TestDecodeDraft_IntegralExponent(t *testing.T) {
	c := NewChecker()
	d, res := c.DecodeDraft([]byte(`{"code":"A","customerName":"B","items":[{"productId":100e-2,"quantity":3.0,"unitPrice":1}]}`))
	require.True(t, res.OK(), "errors: %v", messages(res))
	require.Len(t, d.Items, 1)
	assert.Equal(t, int64(1), d.Items[0].ProductID)
	assert.Equal(t, int64(3), d.Items[0].Quantity)
}

func TestDecodeDraft_GrossTotalAtMaximum(t *testing.T) {
	body := `{"code":"A","customerName":"B","items":[` +
		strings.Repeat(`{"productId":1,"quantity":2147483647,"unitPrice":99999999.99},`, 3) +
		`{"productId":1,"quantity":2147483647,"unitPrice":99999999.99}]}`

	c := NewChecker()
	d, res := c.DecodeDraft([]byte(body))
	require.True(t, res.OK(), "errors: %v", messages(res))
	assert.Len(t, d.Items, 4)

	_, res = c.DecodePatch([]byte(`{"items":[` +
		strings.Repeat(`{"productId":1,"quantity":2147483647,"unitPrice":99999999.99},`, 5) +
		`{"productId":1,"quantity":1,"unitPrice":1}]}`))
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	containsMessage(t, res, "gross total exceeds the maximum")
}

func TestDecodePatch(t *testing.T) {
	c := NewChecker()

	t.Run("empty patch", func(t *testing.T) {
		p, res := c.DecodePatch([]byte(`{}`))
		require.True(t, res.OK())
		assert.Nil(t, p.Code)
		assert.Nil(t, p.Items)
	})

	t.Run("partial fields", func(t *testing.T) {
		p, res := c.DecodePatch([]byte(`{"customerName":"Maria","status":"cancelled","saleDiscount":"5.5"}`))
		require.True(t, res.OK(), "unexpected errors: %v", messages(res))
		require.NotNil(t, p.CustomerName)
		assert.Equal(t, "Maria", *p.CustomerName)
		require.NotNil(t, p.Status)
		assert.Equal(t, sale.StatusCancelled, *p.Status)
		require.NotNil(t, p.SaleDiscount)
		assert.Equal(t, "5.50", p.SaleDiscount.String())
	})

	t.Run("empty items array", func(t *testing.T) {
		_, res := c.DecodePatch([]byte(`{"items":[]}`))
		assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
		containsMessage(t, res, "at least one item")
	})

	t.Run("replacement items", func(t *testing.T) {
		p, res := c.DecodePatch([]byte(`{"items":[{"productId":3,"quantity":4,"unitPrice":2.5}]}`))
		require.True(t, res.OK(), "unexpected errors: %v", messages(res))
		require.Len(t, p.Items, 1)
		assert.Equal(t, "2.50", p.Items[0].UnitPrice.String())
	})

	t.Run("null fields are ignored", func(t *testing.T) {
		p, res := c.DecodePatch([]byte(`{"code":null,"saleDiscount":null}`))
		require.True(t, res.OK())
		assert.Nil(t, p.Code)
		assert.Nil(t, p.SaleDiscount)
	})
}

func TestDecodeID(t *testing.T) {
	tests := []struct {
		raw        string
		wantStatus int
		wantID     int64
	}{
		{raw: "1", wantID: 1},
		{raw: "2147483647", wantID: 2147483647},
		{raw: "abc", wantStatus: http.StatusBadRequest},
		{raw: "1.5", wantStatus: http.StatusBadRequest},
		{raw: "", wantStatus: http.StatusBadRequest},
		{raw: "0", wantStatus: http.StatusUnprocessableEntity},
		{raw: "-1", wantStatus: http.StatusUnprocessableEntity},
		{raw: "2147483648", wantStatus: http.StatusUnprocessableEntity},
		{raw: "99999999999999999999999", wantStatus: http.StatusUnprocessableEntity},
	}

	c := NewChecker()
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, res := c.DecodeID(tt.raw)
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantStatus == 0 {
				assert.Equal(t, tt.wantID, id)
			} else {
				containsMessage(t, res, "id must be an integer")
			}
		})
	}
}

func TestDecodeFilter(t *testing.T) {
	c := NewChecker()

	t.Run("defaults", func(t *testing.T) {
		f, res := c.DecodeFilter(url.Values{})
		require.True(t, res.OK())
		assert.Zero(t, f.Page)
		assert.Zero(t, f.Limit)
		assert.Nil(t, f.From)
		assert.Nil(t, f.Before)
	})

	t.Run("all parameters", func(t *testing.T) {
		q := url.Values{
			"page":     {"2"},
			"limit":    {"25"},
			"search":   {" joão "},
			"status":   {"open"},
			"dateFrom": {"2026-01-01"},
			"dateTo":   {"2026-01-31"},
		}
		f, res := c.DecodeFilter(q)
		require.True(t, res.OK(), "unexpected errors: %v", messages(res))

		assert.Equal(t, 2, f.Page)
		assert.Equal(t, 25, f.Limit)
		assert.Equal(t, "joão", f.Search)
		require.NotNil(t, f.Status)
		assert.Equal(t, sale.StatusOpen, *f.Status)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *f.From)
		assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *f.Before)
	})

	t.Run("rfc3339 dates", func(t *testing.T) {
		f, res := c.DecodeFilter(url.Values{"dateFrom": {"2026-03-01T10:00:00Z"}})
		require.True(t, res.OK())
		assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *f.From)
	})

	tests := []struct {
		name       string
		q          url.Values
		wantStatus int
		wantSubstr string
	}{
		{name: "page negative", q: url.Values{"page": {"-1"}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "page must be an integer between"},
		{name: "page zero", q: url.Values{"page": {"0"}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "page must be an integer between"},
		{name: "page text", q: url.Values{"page": {"abc"}}, wantStatus: http.StatusBadRequest, wantSubstr: "page must be an integer"},
		{name: "page fraction", q: url.Values{"page": {"1.5"}}, wantStatus: http.StatusBadRequest, wantSubstr: "page must be an integer"},
		{name: "page null", q: url.Values{"page": {"null"}}, wantStatus: http.StatusBadRequest, wantSubstr: "page must be an integer"},
		{name: "limit over max", q: url.Values{"limit": {"101"}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "between 1 and 100"},
		{name: "limit zero", q: url.Values{"limit": {"0"}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "between 1 and 100"},
		{name: "bad date", q: url.Values{"dateFrom": {"01/02/2026"}}, wantStatus: http.StatusBadRequest, wantSubstr: "ISO 8601"},
		{name: "impossible date", q: url.Values{"dateTo": {"2026-13-45"}}, wantStatus: http.StatusBadRequest, wantSubstr: "ISO 8601"},
		{name: "reversed dates", q: url.Values{"dateFrom": {"2026-02-01"}, "dateTo": {"2026-01-01"}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "must not be after"},
		{name: "search injection", q: url.Values{"search": {"' OR 1=1 --"}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "invalid characters"},
		{name: "search too long", q: url.Values{"search": {strings.Repeat("a", 256)}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "between 1 and 255"},
		{name: "search empty", q: url.Values{"search": {""}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "between 1 and 255"},
		{name: "invalid status", q: url.Values{"status": {"paid"}}, wantStatus: http.StatusUnprocessableEntity, wantSubstr: "must be one of"},
		{name: "mixed", q: url.Values{"page": {"abc"}, "limit": {"500"}}, wantStatus: http.StatusBadRequest, wantSubstr: "between 1 and 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := c.DecodeFilter(tt.q)
			assert.Equal(t, tt.wantStatus, res.Status, "errors: %v", messages(res))
			containsMessage(t, res, tt.wantSubstr)
		})
	}
}
