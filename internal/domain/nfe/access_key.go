// Package nfe contiene reglas de dominio de la NF-e modelo 55 que no dependen del
// formato de entrada: chave de acesso y consistencia del documento.
package nfe

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// ErrInvalidAccessKey chave de acesso con formato o dígito verificador inválido.
var ErrInvalidAccessKey = errors.New("chave de acesso inválida")

// AccessKeyParams componentes de la chave de acesso (44 dígitos) en el orden del leiaute:
// cUF + AAMM + CNPJ + mod + serie + nNF + tpEmis + cNF + cDV.
type AccessKeyParams struct {
	UF           string // sigla; se convierte al código IBGE
	YearMonth    string // AAMM de la emisión
	CNPJ         string
	Model        string // 55 = NF-e
	Series       string
	Number       string
	EmissionType string // tpEmis; 1 = normal
	NumericCode  string // cNF, 8 dígitos
}

// AccessKey chave decodificada.
type AccessKey struct {
	Key          string
	UF           string
	YearMonth    string
	CNPJ         string
	Model        string
	Series       string
	Number       string
	EmissionType string
	NumericCode  string
	CheckDigit   int
}

// BuildAccessKey arma la chave con su dígito verificador.
func BuildAccessKey(p AccessKeyParams) (string, error) {
	code, ok := fiscal.UFs[fiscal.NormalizeUF(p.UF)]
	if !ok {
		return "", fmt.Errorf("%w: UF %q", ErrInvalidAccessKey, p.UF)
	}
	cnpj := fiscal.OnlyDigits(p.CNPJ)
	if len(cnpj) != 14 {
		return "", fmt.Errorf("%w: CNPJ debe tener 14 dígitos", ErrInvalidAccessKey)
	}
	parts := []struct {
		value string
		width int
		name  string
	}{
		{p.YearMonth, 4, "AAMM"},
		{p.Model, 2, "mod"},
		{p.Series, 3, "serie"},
		{p.Number, 9, "nNF"},
		{p.EmissionType, 1, "tpEmis"},
		{p.NumericCode, 8, "cNF"},
	}
	base := code
	for i, part := range parts {
		d := fiscal.OnlyDigits(part.value)
		if d == "" || len(d) > part.width {
			return "", fmt.Errorf("%w: %s inválido (%q)", ErrInvalidAccessKey, part.name, part.value)
		}
		if i == 0 && len(d) != part.width {
			return "", fmt.Errorf("%w: AAMM debe tener 4 dígitos", ErrInvalidAccessKey)
		}
		base += leftPad(d, part.width)
		if i == 0 {
			base += cnpj
		}
	}
	return base + strconv.Itoa(accessKeyDigit(base)), nil
}

// ParseAccessKey valida y decodifica una chave (con o sin prefijo "NFe" y espacios).
func ParseAccessKey(key string) (AccessKey, error) {
	d := fiscal.OnlyDigits(key)
	if len(d) != 44 {
		return AccessKey{}, fmt.Errorf("%w: debe tener 44 dígitos, tiene %d", ErrInvalidAccessKey, len(d))
	}
	uf, ok := fiscal.UFByIBGE(d[0:2])
	if !ok {
		return AccessKey{}, fmt.Errorf("%w: código de UF %s desconocido", ErrInvalidAccessKey, d[0:2])
	}
	want := accessKeyDigit(d[:43])
	got := int(d[43] - '0')
	if want != got {
		return AccessKey{}, fmt.Errorf("%w: dígito verificador esperado %d, recibido %d", ErrInvalidAccessKey, want, got)
	}
	return AccessKey{
		Key:          d,
		UF:           uf,
		YearMonth:    d[2:6],
		CNPJ:         d[6:20],
		Model:        d[20:22],
		Series:       d[22:25],
		Number:       d[25:34],
		EmissionType: d[34:35],
		NumericCode:  d[35:43],
		CheckDigit:   got,
	}, nil
}

// accessKeyDigit módulo 11 con pesos 2..9 aplicados de derecha a izquierda.
func accessKeyDigit(base string) int {
	sum, w := 0, 2
	for i := len(base) - 1; i >= 0; i-- {
		sum += int(base[i]-'0') * w
		w++
		if w > 9 {
			w = 2
		}
	}
	dv := 11 - sum%11
	if dv >= 10 {
		return 0
	}
	return dv
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}
