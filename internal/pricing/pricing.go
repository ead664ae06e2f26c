// Package pricing — чистый расчёт сумм корзины и заказа.
package pricing

import "github.com/shopspring/decimal"

// Line минимальный вход калькулятора: цена за единицу и количество.
type Line struct {
	UnitPrice float64
	Quantity  int64
}

// Totals результат расчёта. Total всегда равен Subtotal + Tax.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// ComputeTotals считает subtotal, tax и total по списку позиций.
// Внутри используется decimal, чтобы промежуточные суммы не накапливали
// ошибку float64; округление до копеек не выполняется — это дело
// презентационного слоя. Пустой список даёт нулевые суммы.
func ComputeTotals(lines []Line, taxRate float64) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		price := decimal.NewFromFloat(l.UnitPrice)
		qty := decimal.NewFromInt(l.Quantity)
		subtotal = subtotal.Add(price.Mul(qty))
	}
	tax := subtotal.Mul(decimal.NewFromFloat(taxRate))
	st := subtotal.InexactFloat64()
	tx := tax.InexactFloat64()
	// total складывается уже из float-значений, чтобы инвариант
	// Total == Subtotal + Tax держался и после конверсии
	return Totals{Subtotal: st, Tax: tx, Total: st + tx}
}

// ItemCount суммарное количество единиц по всем позициям.
func ItemCount(lines []Line) int64 {
	var n int64
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Round2 округляет до двух знаков. Только для отображения сумм,
// в расчётах не участвует.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
