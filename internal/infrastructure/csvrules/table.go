// Package csvrules lee matrices de reglas de ST desde planillas CSV exportadas
// (una matriz por archivo) con los encabezados usados históricamente en las planillas.
package csvrules

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

type column int

const (
	colNCM column = iota
	colCEST
	colUF
	colApplies
	colMVA
	colInternalRate
	colMultiplier
	colCreditRate
	colCreditType
	colActive
	colCFOPFrom
	colCFOPTo
	colCSTInclude
	colCSTExclude
	colSegment
)

// headerAliases encabezados aceptados por columna, ya normalizados (mayúsculas, sin acentos).
var headerAliases = map[column][]string{
	colNCM:          {"NCM", "NCM_RAIZ", "NCM BASE", "NCMBASE", "COD_NCM", "CODIGO NCM"},
	colCEST:         {"CEST", "COD_CEST"},
	colUF:           {"UF", "UF_DESTINO", "UF DEST", "UF_DEST", "DESTINO"},
	colApplies:      {"APLICA_ST", "ST_APLICA", "APLICA SUBSTITUICAO", "ST", "TEM_ST", "ST_ATIVO", "SUBSTITUICAO"},
	colMVA:          {"MVA", "MVA %", "MVA_PERCENTUAL", "MVA_PERC", "MARGEM", "MARGEM (%)", "MARGEM_DE_VALOR_AGREGADO_MVA"},
	colInternalRate: {"ALI_INT", "ALIQ_INT", "ALIQUOTA_INTERNA", "ALIQ INTERNA", "ALIQUOTA INTERNA", "ALIQUOTA ICMS"},
	colMultiplier:   {"MULT_SEFAZ", "MULTIPLICADOR", "MULT", "ALI_INTER", "ALIQUOTA_INTER"},
	colCreditRate:   {"CREDITO_PRESUMIDO", "CRED_PRESUMIDO", "CREDITO", "PERC_CREDITO"},
	colCreditType:   {"TIPO_CREDITO", "CREDITO_TIPO", "BASE_CREDITO"},
	colActive:       {"ATIVO"},
	colCFOPFrom:     {"CFOP_INI", "CFOP_INICIAL", "CFOP_DE"},
	colCFOPTo:       {"CFOP_FIM", "CFOP_FINAL", "CFOP_ATE"},
	colCSTInclude:   {"CST_INCLUIR", "CST_INCLUI"},
	colCSTExclude:   {"CST_EXCLUIR", "CST_EXCLUI"},
	colSegment:      {"SEGMENTO", "DESCRICAO"},
}

// Parser implementa la lectura de una matriz desde CSV.
type Parser struct{}

// NewParser construye el parser.
func NewParser() *Parser { return &Parser{} }

// ParseTable lee una matriz. Detecta separador (";" o ","), BOM y archivos en
// Windows-1252. Las tasas siguen la convención de las planillas: > 1 es porcentaje.
// Las filas sin NCM se ignoran.
func (p *Parser) ParseTable(name string, r io.Reader) (entity.RuleTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return entity.RuleTable{}, fmt.Errorf("csvrules: leer %s: %w", name, err)
	}
	data, err = toUTF8(data)
	if err != nil {
		return entity.RuleTable{}, fmt.Errorf("csvrules: %s: %w", name, err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectComma(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return entity.RuleTable{}, fmt.Errorf("csvrules: %s: %w", name, err)
	}
	if len(records) == 0 {
		return entity.RuleTable{}, fmt.Errorf("csvrules: %s: archivo vacío", name)
	}

	idx := indexHeader(records[0])
	if _, ok := idx[colNCM]; !ok {
		return entity.RuleTable{}, fmt.Errorf("csvrules: %s: no se encontró columna de NCM en %v", name, records[0])
	}

	table := entity.RuleTable{Name: name}
	for _, rec := range records[1:] {
		get := func(c column) string {
			i, ok := idx[c]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		code := get(colNCM)
		if fiscal.OnlyDigits(code) == "" {
			continue
		}
		row := entity.RuleRow{
			Code:         code,
			CEST:         fiscal.OnlyDigits(get(colCEST)),
			UF:           get(colUF),
			Applies:      applicability(get(colApplies)),
			MVA:          rate(get(colMVA)),
			InternalRate: rate(get(colInternalRate)),
			Multiplier:   rate(get(colMultiplier)),
			CreditRate:   rate(get(colCreditRate)),
			CreditType:   creditType(get(colCreditType)),
			CFOPFrom:     get(colCFOPFrom),
			CFOPTo:       get(colCFOPTo),
			CSTInclude:   splitList(get(colCSTInclude)),
			CSTExclude:   splitList(get(colCSTExclude)),
			Segment:      get(colSegment),
		}
		if v, known := fiscal.ParseFlag(get(colActive)); known && !v {
			row.Inactive = true
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func indexHeader(header []string) map[column]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		k := normalizeHeader(h)
		if _, dup := pos[k]; !dup {
			pos[k] = i
		}
	}
	idx := make(map[column]int)
	for c, aliases := range headerAliases {
		for _, a := range aliases {
			if i, ok := pos[normalizeHeader(a)]; ok {
				idx[c] = i
				break
			}
		}
	}
	return idx
}

// stripAccents devuelve un transformer nuevo en cada uso; los encadenados guardan estado.
func stripAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// normalizeHeader mayúsculas, sin acentos, BOM ni espacios repetidos.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	if s, _, err := transform.String(stripAccents(), h); err == nil {
		h = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(h)), " ")
}

func rate(v string) *entity.Rate {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
	if v == "" || v == "-" {
		return nil
	}
	r := entity.LegacyRate(fiscal.ParseDecimal(v))
	return &r
}

// applicability interpreta APLICA_ST. Un texto libre con negación ("NÃO SUJEITO",
// "SEM ST", "ISENTO") vale No; la negación se evalúa antes que "SUJEITO"/"SUBSTITU".
func applicability(v string) entity.Applicability {
	if b, known := fiscal.ParseFlag(v); known {
		if b {
			return entity.ApplicabilityYes
		}
		return entity.ApplicabilityNo
	}
	s, _, err := transform.String(stripAccents(), v)
	if err != nil {
		s = v
	}
	s = strings.Join(strings.Fields(strings.ToUpper(s)), " ")
	switch {
	case s == "":
		return entity.ApplicabilityUnknown
	case negatedFlag(s):
		return entity.ApplicabilityNo
	case strings.Contains(s, "SUBSTITU"), strings.Contains(s, "SUJEITO"):
		return entity.ApplicabilityYes
	default:
		return entity.ApplicabilityUnknown
	}
}

func negatedFlag(s string) bool {
	for _, prefix := range []string{"NAO ", "NAO-", "SEM ", "N/"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return strings.Contains(s, "NAO SUJEITO") || strings.Contains(s, "NAO SUBSTITU") || strings.Contains(s, "ISENT")
}

func creditType(v string) entity.CreditType {
	s, _, _ := transform.String(stripAccents(), strings.ToUpper(strings.TrimSpace(v)))
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "BASE"), strings.Contains(s, "BC"):
		return entity.CreditOnBase
	default:
		return entity.CreditOnDebit
	}
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '|' || r == ' ' || r == '/' }) {
		if d := fiscal.OnlyDigits(part); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// detectComma elige el separador más frecuente en la primera línea.
func detectComma(data []byte) rune {
	first, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}

// toUTF8 quita el BOM y convierte desde Windows-1252 cuando el contenido no es UTF-8 válido.
func toUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("convertir desde Windows-1252: %w", err)
	}
	return out, nil
}
