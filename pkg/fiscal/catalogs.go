// Package fiscal contiene catálogos y utilidades del leiaute da NF-e (Brasil)
// usados por el motor de ICMS-ST y por los adaptadores de entrada.
package fiscal

import "strings"

// =============================================================================
// Unidades da Federação (tabela IBGE). Código de dos letras usado en enderEmit/UF
// y enderDest/UF.
// =============================================================================

// UFs válidas con su código IBGE.
var UFs = map[string]string{
	"RO": "11", "AC": "12", "AM": "13", "RR": "14", "PA": "15", "AP": "16", "TO": "17",
	"MA": "21", "PI": "22", "CE": "23", "RN": "24", "PB": "25", "PE": "26", "AL": "27",
	"SE": "28", "BA": "29",
	"MG": "31", "ES": "32", "RJ": "33", "SP": "35",
	"PR": "41", "SC": "42", "RS": "43",
	"MS": "50", "MT": "51", "GO": "52", "DF": "53",
}

// NormalizeUF devuelve la UF en mayúsculas y sin espacios.
func NormalizeUF(uf string) string {
	return strings.ToUpper(strings.TrimSpace(uf))
}

// ValidUF indica si la UF existe en la tabla IBGE.
func ValidUF(uf string) bool {
	_, ok := UFs[NormalizeUF(uf)]
	return ok
}

// WellFormedUF indica si el código tiene forma de UF (dos letras), exista o no en la tabla.
func WellFormedUF(uf string) bool {
	s := NormalizeUF(uf)
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// IsWildcardUF indica si el valor de la columna UF de una matriz aplica a cualquier destino.
func IsWildcardUF(uf string) bool {
	switch NormalizeUF(uf) {
	case "", "*", "TODAS", "TODOS", "ALL":
		return true
	}
	return false
}

// =============================================================================
// CST do ICMS (Tabela B do Anexo do Convênio SINIEF s/n de 1970) y CSOSN (Simples
// Nacional). Solo los códigos relacionados con ST llevan comentario propio.
// =============================================================================

const (
	CST00 = "00"
	CST10 = "10" // Tributada y con cobro del ICMS por ST
	CST20 = "20"
	CST30 = "30" // Exenta o no tributada y con cobro del ICMS por ST
	CST40 = "40"
	CST41 = "41"
	CST50 = "50"
	CST51 = "51"
	CST60 = "60" // ICMS cobrado anteriormente por ST
	CST70 = "70" // Con reducción de base y cobro del ICMS por ST
	CST90 = "90"

	CSOSN101 = "101"
	CSOSN102 = "102"
	CSOSN201 = "201" // Con permiso de crédito y cobro del ICMS por ST
	CSOSN202 = "202" // Sin permiso de crédito y cobro del ICMS por ST
	CSOSN203 = "203"
	CSOSN300 = "300"
	CSOSN400 = "400"
	CSOSN500 = "500" // ICMS cobrado anteriormente por ST o por anticipación
	CSOSN900 = "900"
)

// STSituations CST/CSOSN que indican cobro o retención de ICMS-ST en la operación.
var STSituations = map[string]bool{
	CST10: true, CST30: true, CST60: true, CST70: true,
	CSOSN201: true, CSOSN202: true, CSOSN203: true, CSOSN500: true,
}

// IsSTSituation indica si el CST/CSOSN (con o sin dígito de origen) es de ST.
// Acepta "060" (origen + CST) y "60".
func IsSTSituation(code string) bool {
	d := OnlyDigits(code)
	if STSituations[d] {
		return true
	}
	if len(d) == 3 && STSituations[d[1:]] {
		return true
	}
	return false
}

// UFByIBGE devuelve la sigla de la UF para un código IBGE ("13" -> "AM").
func UFByIBGE(code string) (string, bool) {
	for uf, c := range UFs {
		if c == code {
			return uf, true
		}
	}
	return "", false
}
