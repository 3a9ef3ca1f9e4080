package sale

import "github.com/xenking/sales-api/internal/domain/money"

// LineInput is one item of a totals calculation.
type LineInput struct {
	ProductID    int64
	Quantity     int64
	UnitPrice    money.Money
	ItemDiscount money.Money
}

// CalculationRequest is the input of ComputeTotals. A nil SaleDiscount means
// no sale-level discount was requested.
type CalculationRequest struct {
	SaleDiscount *money.Money
	Items        []LineInput
}

// Line is a computed sale item.
type Line struct {
	ProductID    int64
	Quantity     int64
	UnitPrice    money.Money
	ItemDiscount money.Money
	Gross        money.Money
	Net          money.Money
}

// CalculationResult holds the monetary fields of a sale and its items.
//
// Invariants: GrossTotal = Σ Gross, SaleTotal = Σ Net,
// 0 ≤ SaleDiscount ≤ GrossTotal, and Σ ItemDiscount = SaleDiscount when a
// sale-level discount was distributed.
type CalculationResult struct {
	SaleDiscount money.Money
	SaleTotal    money.Money
	GrossTotal   money.Money
	Items        []Line
}

// ComputeTotals computes gross, discount and net values for a sale.
//
// A positive sale-level discount takes precedence: it is distributed with
// AllocateDiscount and replaces any item-level discounts. Otherwise the item
// discounts stand and the sale discount is their sum, clamped to the gross
// total. ComputeTotals is pure and safe for concurrent use.
func ComputeTotals(req CalculationRequest) CalculationResult {
	lines := make([]Line, len(req.Items))
	gross := make([]money.Money, len(req.Items))
	for i, in := range req.Items {
		price := money.FromDecimal(in.UnitPrice.Decimal())
		discount := money.FromDecimal(in.ItemDiscount.Decimal())
		g := price.MulInt(in.Quantity)

		lines[i] = Line{
			ProductID:    in.ProductID,
			Quantity:     in.Quantity,
			UnitPrice:    price,
			ItemDiscount: discount,
			Gross:        g,
			Net:          g.Sub(discount),
		}
		gross[i] = g
	}

	grossTotal := money.Sum(gross...)

	requested := money.Zero
	if req.SaleDiscount != nil {
		requested = clamp(*req.SaleDiscount, grossTotal)
	}

	var saleDiscount money.Money
	if requested.IsPositive() {
		shares := AllocateDiscount(gross, requested)
		for i := range lines {
			lines[i].ItemDiscount = shares[i]
			lines[i].Net = lines[i].Gross.Sub(shares[i])
		}
		saleDiscount = requested
	} else {
		itemDiscounts := make([]money.Money, len(lines))
		for i, l := range lines {
			itemDiscounts[i] = l.ItemDiscount
		}
		saleDiscount = clamp(money.Sum(itemDiscounts...), grossTotal)
	}

	nets := make([]money.Money, len(lines))
	for i, l := range lines {
		nets[i] = l.Net
	}

	return CalculationResult{
		SaleDiscount: saleDiscount,
		SaleTotal:    money.Sum(nets...),
		GrossTotal:   grossTotal,
		Items:        lines,
	}
}

// clamp limits v to [0, upper].
func clamp(v, upper money.Money) money.Money {
	if v.IsNegative() {
		return money.Zero
	}
	return money.Min(v, upper)
}
