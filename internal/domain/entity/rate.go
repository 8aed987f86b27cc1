package entity

import "github.com/shopspring/decimal"

// RateUnit unidad explícita de un porcentaje cargado desde las matrices.
type RateUnit uint8

const (
	UnitFraction RateUnit = iota // 0.18
	UnitPercent                  // 18
)

// Rate porcentaje con unidad explícita. La unidad se decide al ingerir la matriz,
// nunca durante el cálculo.
type Rate struct {
	Value decimal.Decimal
	Unit  RateUnit
}

// Fraction construye una tasa ya expresada como fracción.
func Fraction(v decimal.Decimal) Rate { return Rate{Value: v, Unit: UnitFraction} }

// Percent construye una tasa expresada como porcentaje entero.
func Percent(v decimal.Decimal) Rate { return Rate{Value: v, Unit: UnitPercent} }

// LegacyRate aplica la convención de las planillas: valores mayores que 1 son
// porcentajes ("70" = 70%), el resto ya es fracción ("0.7").
func LegacyRate(v decimal.Decimal) Rate {
	if v.GreaterThan(decimal.NewFromInt(1)) {
		return Percent(v)
	}
	return Fraction(v)
}

// Fraction devuelve la tasa como fracción (18% -> 0.18) sin redondeo.
func (r Rate) Fraction() decimal.Decimal {
	if r.Unit == UnitPercent {
		return r.Value.Shift(-2)
	}
	return r.Value
}
