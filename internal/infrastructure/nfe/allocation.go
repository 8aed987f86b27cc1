package nfe

import "github.com/shopspring/decimal"

// allocate reparte total entre las líneas en proporción a weights, redondeando cada
// parte a 2 decimales. La diferencia de redondeo queda en la última línea con peso,
// así la suma de las partes es exactamente el total.
func allocate(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	for i := range out {
		out[i] = decimal.Zero
	}
	if total.IsZero() || len(weights) == 0 {
		return out
	}
	sum := decimal.Zero
	last := -1
	for i, w := range weights {
		if w.IsPositive() {
			sum = sum.Add(w)
			last = i
		}
	}
	if last < 0 {
		return out
	}
	assigned := decimal.Zero
	for i, w := range weights {
		if !w.IsPositive() || i == last {
			continue
		}
		part := total.Mul(w).Div(sum).Round(2)
		out[i] = part
		assigned = assigned.Add(part)
	}
	out[last] = total.Round(2).Sub(assigned)
	return out
}
