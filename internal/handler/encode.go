package handler

import (
	"strconv"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/sales-api/internal/domain/money"
	"github.com/xenking/sales-api/internal/domain/product"
	"github.com/xenking/sales-api/internal/domain/sale"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func fieldMoney(e *jx.Encoder, name string, m money.Money) {
	e.FieldStart(name)
	e.Str(m.String())
}

func fieldTime(e *jx.Encoder, name string, t time.Time) {
	e.FieldStart(name)
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	fieldMoney(e, "price", p.Price)
	e.ObjEnd()
}

func encodeItem(e *jx.Encoder, it sale.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(it.ID)
	e.FieldStart("productId")
	e.Int64(it.ProductID)
	e.FieldStart("productName")
	e.Str(it.ProductName)
	e.FieldStart("quantity")
	e.Int64(it.Quantity)
	fieldMoney(e, "unitPrice", it.UnitPrice)
	fieldMoney(e, "itemDiscount", it.ItemDiscount)
	fieldMoney(e, "grossValue", it.Gross)
	fieldMoney(e, "total", it.Total)
	e.ObjEnd()
}

func encodeSale(e *jx.Encoder, s *sale.Sale) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(s.ID)
	e.FieldStart("code")
	e.Str(s.Code)
	e.FieldStart("customerName")
	e.Str(s.CustomerName)
	e.FieldStart("status")
	e.Str(string(s.Status))
	fieldTime(e, "createdAt", s.CreatedAt)
	fieldTime(e, "updatedAt", s.UpdatedAt)
	fieldMoney(e, "saleDiscount", s.SaleDiscount)
	fieldMoney(e, "grossTotal", s.GrossTotal)
	fieldMoney(e, "total", s.Total)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range s.Items {
		encodeItem(e, it)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeList(e *jx.Encoder, res *sale.ListResult) {
	e.ObjStart()
	e.FieldStart("sales")
	e.ArrStart()
	for i := range res.Sales {
		encodeSale(e, &res.Sales[i])
	}
	e.ArrEnd()

	e.FieldStart("pagination")
	e.ObjStart()
	e.FieldStart("page")
	e.Int(res.Pagination.Page)
	e.FieldStart("limit")
	e.Int(res.Pagination.Limit)
	e.FieldStart("total")
	e.Int64(res.Pagination.Total)
	e.FieldStart("totalPages")
	e.Int(res.Pagination.TotalPages)
	e.ObjEnd()

	e.FieldStart("summary")
	e.ObjStart()
	fieldMoney(e, "totalAmount", res.Summary.TotalAmount)
	e.FieldStart("saleCount")
	e.Int64(res.Summary.SaleCount)
	e.FieldStart("itemQuantity")
	e.Int64(res.Summary.ItemQuantity)
	e.ObjEnd()
	e.ObjEnd()
}
