// Package icmsst implementa el motor de cálculo del ICMS-ST: resolución de reglas
// por NCM/UF sobre las matrices y la memória de cálculo por línea de la NF-e.
//
// El paquete no hace I/O ni mantiene estado mutable: un Engine se construye a partir
// de un snapshot de matrices y puede usarse concurrentemente en solo lectura.
package icmsst

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// Defaults parámetros globales usados cuando la fila encontrada no trae el campo.
type Defaults struct {
	OriginRate   entity.Rate
	MVA          entity.Rate
	InternalRate entity.Rate
	Multiplier   entity.Rate
}

// DefaultParameters valores por defecto del motor: 7% origen, MVA 35%,
// alícuota interna 20% y multiplicador SEFAZ 19,47%.
func DefaultParameters() Defaults {
	return Defaults{
		OriginRate:   entity.Fraction(decimal.RequireFromString("0.07")),
		MVA:          entity.Fraction(decimal.RequireFromString("0.35")),
		InternalRate: entity.Fraction(decimal.RequireFromString("0.20")),
		Multiplier:   entity.Fraction(decimal.RequireFromString("0.1947")),
	}
}

// RuleQuery datos de la línea usados para elegir la regla. Solo NCM y UF de destino
// son obligatorios; CEST, CFOP y CST activan los filtros de las filas que los definen.
type RuleQuery struct {
	NCM           string
	CEST          string
	CFOP          string
	CST           string
	DestinationUF string
}

// ResolvedRule parámetros de la regla más específica, ya combinados con los defaults.
// Todas las tasas están expresadas como fracción.
type ResolvedRule struct {
	Source      string // nombre de la matriz de origen
	MatchedCode string // prefijo de NCM que casó
	MatchedCEST string
	Explicit    entity.Applicability
	Applies     bool

	OriginRate   decimal.Decimal
	MVA          decimal.Decimal
	InternalRate decimal.Decimal
	Multiplier   decimal.Decimal

	HasMultiplier bool // la fila definía multiplicador propio
	CreditRate    decimal.Decimal
	CreditType    entity.CreditType
}

// HasCredit indica si la regla define crédito presumido.
func (r ResolvedRule) HasCredit() bool {
	return r.CreditRate.IsPositive()
}

type compiledRow struct {
	row        entity.RuleRow
	source     string
	code       string
	cest       string
	uf         string
	cfopFrom   int
	cfopTo     int
	cstInclude map[string]bool
	cstExclude map[string]bool
}

// RuleResolver busca en todas las matrices la fila más específica para un NCM/UF.
// Es inmutable después de construido y seguro para acceso concurrente.
type RuleResolver struct {
	rows     []compiledRow
	defaults Defaults
}

// NewRuleResolver normaliza una única vez todas las filas del snapshot.
// Las filas sin NCM se descartan; matrices vacías producen un resolver que nunca encuentra regla.
func NewRuleResolver(m entity.Matrices, defaults Defaults) *RuleResolver {
	r := &RuleResolver{defaults: defaults}
	for _, t := range m.Tables {
		for _, row := range t.Rows {
			code := fiscal.OnlyDigits(row.Code)
			if code == "" {
				continue
			}
			r.rows = append(r.rows, compiledRow{
				row:        cloneRow(row),
				source:     t.Name,
				code:       code,
				cest:       fiscal.OnlyDigits(row.CEST),
				uf:         fiscal.NormalizeUF(row.UF),
				cfopFrom:   parseCFOP(row.CFOPFrom),
				cfopTo:     parseCFOP(row.CFOPTo),
				cstInclude: cstSet(row.CSTInclude),
				cstExclude: cstSet(row.CSTExclude),
			})
		}
	}
	return r
}

// Len número de filas utilizables.
func (r *RuleResolver) Len() int { return len(r.rows) }

// Resolve busca la regla para un NCM y una UF de destino. ok es false cuando ninguna
// fila de ninguna matriz aplica ("sin regla"); no es un error.
func (r *RuleResolver) Resolve(ncm, destinationUF string) (ResolvedRule, bool) {
	return r.ResolveQuery(RuleQuery{NCM: ncm, DestinationUF: destinationUF})
}

// ResolveQuery igual que Resolve pero considerando CEST, CFOP y CST de la línea.
// Gana el prefijo más largo; a igual longitud una fila con CEST gana a una genérica
// y, si persiste el empate, la primera encontrada.
func (r *RuleResolver) ResolveQuery(q RuleQuery) (ResolvedRule, bool) {
	ncm := fiscal.OnlyDigits(q.NCM)
	if ncm == "" {
		return ResolvedRule{}, false
	}
	uf := fiscal.NormalizeUF(q.DestinationUF)
	cest := fiscal.OnlyDigits(q.CEST)
	cfop := parseCFOP(q.CFOP)
	cst := fiscal.OnlyDigits(q.CST)

	var best *compiledRow
	bestLen, bestCEST := -1, false
	for i := range r.rows {
		c := &r.rows[i]
		if c.row.Inactive || !strings.HasPrefix(ncm, c.code) {
			continue
		}
		if !fiscal.IsWildcardUF(c.uf) && c.uf != uf {
			continue
		}
		if c.cest != "" && c.cest != cest {
			continue
		}
		if !c.acceptsCFOP(cfop) || !c.acceptsCST(cst) {
			continue
		}
		l := len(c.code)
		hasCEST := c.cest != ""
		if l > bestLen || (l == bestLen && hasCEST && !bestCEST) {
			best, bestLen, bestCEST = c, l, hasCEST
		}
	}
	if best == nil {
		return ResolvedRule{}, false
	}
	return r.merge(best), true
}

func (r *RuleResolver) merge(c *compiledRow) ResolvedRule {
	row := c.row
	res := ResolvedRule{
		Source:       c.source,
		MatchedCode:  c.code,
		MatchedCEST:  c.cest,
		Explicit:     row.Applies,
		OriginRate:   r.defaults.OriginRate.Fraction(),
		MVA:          r.defaults.MVA.Fraction(),
		InternalRate: r.defaults.InternalRate.Fraction(),
		Multiplier:   r.defaults.Multiplier.Fraction(),
		CreditType:   row.CreditType,
	}
	if row.MVA != nil {
		res.MVA = row.MVA.Fraction()
	}
	if row.InternalRate != nil {
		res.InternalRate = row.InternalRate.Fraction()
	}
	if row.Multiplier != nil {
		res.Multiplier = row.Multiplier.Fraction()
		res.HasMultiplier = true
	}
	if row.CreditRate != nil {
		res.CreditRate = row.CreditRate.Fraction()
		if res.CreditType == "" {
			res.CreditType = entity.CreditOnDebit
		}
	}

	// APLICA_ST = false siempre gana; si no, aplica cuando la fila trae algún parámetro de ST.
	switch {
	case row.Applies == entity.ApplicabilityNo:
		res.Applies = false
	case row.Applies == entity.ApplicabilityYes:
		res.Applies = true
	default:
		res.Applies = row.MVA != nil || row.InternalRate != nil || row.Multiplier != nil
	}
	return res
}

func (c *compiledRow) acceptsCFOP(cfop int) bool {
	if cfop == 0 {
		return true
	}
	if c.cfopFrom != 0 && cfop < c.cfopFrom {
		return false
	}
	if c.cfopTo != 0 && cfop > c.cfopTo {
		return false
	}
	return true
}

func (c *compiledRow) acceptsCST(cst string) bool {
	if cst == "" {
		return true
	}
	if len(c.cstInclude) > 0 && !matchCST(c.cstInclude, cst) {
		return false
	}
	if matchCST(c.cstExclude, cst) {
		return false
	}
	return true
}

// matchCST acepta el CST con o sin dígito de origen ("060" y "60").
func matchCST(set map[string]bool, cst string) bool {
	if set[cst] {
		return true
	}
	return len(cst) == 3 && set[cst[1:]]
}

func cstSet(codes []string) map[string]bool {
	if len(codes) == 0 {
		return nil
	}
	out := make(map[string]bool, len(codes))
	for _, c := range codes {
		if d := fiscal.OnlyDigits(c); d != "" {
			out[d] = true
		}
	}
	return out
}

func parseCFOP(s string) int {
	n, err := strconv.Atoi(fiscal.OnlyDigits(s))
	if err != nil {
		return 0
	}
	return n
}

func cloneRow(row entity.RuleRow) entity.RuleRow {
	row.CSTInclude = append([]string(nil), row.CSTInclude...)
	row.CSTExclude = append([]string(nil), row.CSTExclude...)
	row.MVA = cloneRate(row.MVA)
	row.InternalRate = cloneRate(row.InternalRate)
	row.Multiplier = cloneRate(row.Multiplier)
	row.CreditRate = cloneRate(row.CreditRate)
	return row
}

func cloneRate(r *entity.Rate) *entity.Rate {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
