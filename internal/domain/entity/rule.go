package entity

import "time"

// Applicability valor tri-estado de la columna APLICA_ST.
type Applicability uint8

const (
	ApplicabilityUnknown Applicability = iota
	ApplicabilityYes
	ApplicabilityNo
)

// CreditType base sobre la que se calcula el crédito presumido.
type CreditType string

const (
	CreditOnDebit CreditType = "DEBITO" // % sobre el ICMS teórico de destino
	CreditOnBase  CreditType = "BASE"   // % sobre la base de cálculo ST
)

// RuleRow una fila de una matriz de reglas (aliquotas, mva, multiplicadores,
// creditos_presumidos, st_regras...). Los campos nil están ausentes en la fila.
type RuleRow struct {
	Code string // NCM o prefijo de NCM, con o sin puntos
	CEST string // vacío = cualquier CEST
	UF   string // vacío o comodín = cualquier destino

	Applies      Applicability
	MVA          *Rate
	InternalRate *Rate
	Multiplier   *Rate
	CreditRate   *Rate
	CreditType   CreditType

	// Filtros de st_regras.
	Inactive   bool
	CFOPFrom   string
	CFOPTo     string
	CSTInclude []string
	CSTExclude []string

	Segment string // descripción o segmento, solo para auditoría
}

// RuleTable matriz nombrada. El orden de Rows se preserva.
type RuleTable struct {
	Name string
	Rows []RuleRow
}

// Matrices snapshot de solo lectura de todas las matrices de reglas.
// El orden de Tables define el desempate entre prefijos de igual longitud.
type Matrices struct {
	Tables   []RuleTable
	Version  string
	LoadedAt time.Time
}

// RowCount número total de filas en todas las tablas.
func (m Matrices) RowCount() int {
	n := 0
	for _, t := range m.Tables {
		n += len(t.Rows)
	}
	return n
}
