package fiscal

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Límites de los montos aceptados. Un exponente enorme ("1e30000000") obligaría a
// Round2 a construir enteros gigantes; esos valores valen cero como cualquier basura.
const (
	maxNumberLen = 40
	maxExponent  = 18
)

// OnlyDigits devuelve solo los dígitos de s ("0903.00.91" -> "09030091").
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseDecimal convierte montos escritos en formato brasileño o internacional.
// Acepta "1.234,56", "1234,56" y "1234.56". Cualquier valor no interpretable vale cero,
// igual que los que exceden maxNumberLen caracteres o tienen exponente fuera de ±maxExponent.
func ParseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" || len(s) > maxNumberLen {
		return decimal.Zero
	}
	if strings.Contains(s, ".") && strings.Contains(s, ",") && strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero
	}
	return d
}

// ParseFlag interpreta columnas booleanas de las planillas (SIM/NAO, 1/0, TRUE/FALSE...).
// known es false cuando el valor no es interpretable.
func ParseFlag(s string) (value bool, known bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "TRUE", "T", "SIM", "S", "Y", "YES", "OK", "ATIVO", "APLICA":
		return true, true
	case "0", "FALSE", "F", "NAO", "NÃO", "N", "NO", "INATIVO", "NAO APLICA", "NÃO APLICA", "N/A", "NA":
		return false, true
	}
	return false, false
}

// FormatBRL formatea un monto con dos decimales en notación pt-BR ("1.234,56").
func FormatBRL(d decimal.Decimal) string {
	return toBR(d.StringFixed(2))
}

// FormatPercent formatea una fracción como porcentaje pt-BR ("0.18" -> "18,00%").
func FormatPercent(fraction decimal.Decimal) string {
	return FormatBRL(fraction.Shift(2)) + "%"
}

// FormatQuantity formatea cantidades con hasta 4 decimales ("3" -> "3", "1.5" -> "1,5").
func FormatQuantity(d decimal.Decimal) string {
	return toBR(d.Round(4).String())
}

// toBR pasa "-1234567.8" a "-1.234.567,8" sin perder dígitos.
func toBR(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}
