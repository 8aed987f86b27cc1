package icmsst_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
)

func pct(s string) *entity.Rate {
	r := entity.Percent(decimal.RequireFromString(s))
	return &r
}

func frac(s string) *entity.Rate {
	r := entity.Fraction(decimal.RequireFromString(s))
	return &r
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "esperado %s, obtenido %s %v", want, got.String(), msg)
}

// El prefijo más largo gana sin importar el orden de las tablas.
func TestResolve_PrefijoMasEspecificoGana(t *testing.T) {
	broad := entity.RuleTable{Name: "mva", Rows: []entity.RuleRow{{Code: "1234", MVA: pct("40")}}}
	narrow := entity.RuleTable{Name: "st_regras", Rows: []entity.RuleRow{{Code: "123456", MVA: pct("60")}}}

	for _, tables := range [][]entity.RuleTable{{broad, narrow}, {narrow, broad}} {
		r := icmsst.NewRuleResolver(entity.Matrices{Tables: tables}, icmsst.DefaultParameters())
		rule, ok := r.Resolve("12345678", "AM")
		require.True(t, ok)
		assert.Equal(t, "123456", rule.MatchedCode)
		assert.Equal(t, "st_regras", rule.Source)
		assertDec(t, "0.6", rule.MVA)
	}
}

func TestResolve_NormalizaNCMConPuntos(t *testing.T) {
	m := entity.Matrices{Tables: []entity.RuleTable{{Name: "mva", Rows: []entity.RuleRow{
		{Code: "0903.00.91", UF: "AM", MVA: pct("70")},
	}}}}
	r := icmsst.NewRuleResolver(m, icmsst.DefaultParameters())

	rule, ok := r.Resolve("0903.00.91", "am")
	require.True(t, ok)
	assert.Equal(t, "09030091", rule.MatchedCode)
	assert.True(t, rule.Applies)
}

func TestResolve_UFDebeCoincidirOSerComodin(t *testing.T) {
	m := entity.Matrices{Tables: []entity.RuleTable{{Name: "aliquotas", Rows: []entity.RuleRow{
		{Code: "2203", UF: "SP", InternalRate: pct("18")},
		{Code: "2204", UF: "TODAS", InternalRate: pct("25")},
		{Code: "2205", InternalRate: pct("12")},
	}}}}
	r := icmsst.NewRuleResolver(m, icmsst.DefaultParameters())

	_, ok := r.Resolve("22030000", "AM")
	assert.False(t, ok, "fila de SP no aplica a destino AM")

	rule, ok := r.Resolve("22030000", "SP")
	require.True(t, ok)
	assertDec(t, "0.18", rule.InternalRate)

	_, ok = r.Resolve("22040000", "RJ")
	assert.True(t, ok, "TODAS es comodín")

	_, ok = r.Resolve("22050000", "XX")
	assert.True(t, ok, "fila sin UF es agnóstica al destino")
}

func TestResolve_SinRegla(t *testing.T) {
	r := icmsst.NewRuleResolver(entity.Matrices{}, icmsst.DefaultParameters())
	_, ok := r.Resolve("12345678", "AM")
	assert.False(t, ok, "matrices vacías nunca encuentran regla")

	m := entity.Matrices{Tables: []entity.RuleTable{{Name: "mva", Rows: []entity.RuleRow{{Code: "9999", MVA: pct("30")}}}}}
	r = icmsst.NewRuleResolver(m, icmsst.DefaultParameters())
	_, ok = r.Resolve("12345678", "AM")
	assert.False(t, ok)
	_, ok = r.Resolve("", "AM")
	assert.False(t, ok, "NCM vacío no casa con nada")
}

func TestResolve_EmpateEsPrimeraEncontrada(t *testing.T) {
	m := entity.Matrices{Tables: []entity.RuleTable{
		{Name: "primera", Rows: []entity.RuleRow{{Code: "1234", MVA: pct("10")}}},
		{Name: "segunda", Rows: []entity.RuleRow{{Code: "1234", MVA: pct("20")}}},
	}}
	r := icmsst.NewRuleResolver(m, icmsst.DefaultParameters())
	rule, ok := r.Resolve("12345678", "SP")
	require.True(t, ok)
	assert.Equal(t, "primera", rule.Source)
}

func TestResolve_CombinaConDefaults(t *testing.T) {
	m := entity.Matrices{Tables: []entity.RuleTable{{Name: "mva", Rows: []entity.RuleRow{{Code: "3401", MVA: frac("0.5")}}}}}
	r := icmsst.NewRuleResolver(m, icmsst.DefaultParameters())
	rule, ok := r.Resolve("34011190", "SP")
	require.True(t, ok)
	assertDec(t, "0.5", rule.MVA)
	assertDec(t, "0.20", rule.InternalRate, "alícuota interna por defecto")
	assertDec(t, "0.1947", rule.Multiplier, "multiplicador por defecto")
	assertDec(t, "0.07", rule.OriginRate)
	assert.False(t, rule.HasMultiplier)
}

func TestResolve_Aplicabilidad(t *testing.T) {
	m := entity.Matrices{Tables: []entity.RuleTable{{Name: "st_regras", Rows: []entity.RuleRow{
		{Code: "1111", Applies: entity.ApplicabilityNo, MVA: pct("50")},
		{Code: "2222", Applies: entity.ApplicabilityYes},
		{Code: "3333"},
		{Code: "4444", Multiplier: pct("12")},
	}}}}
	r := icmsst.NewRuleResolver(m, icmsst.DefaultParameters())

	rule, ok := r.Resolve("11110000", "SP")
	require.True(t, ok)
	assert.False(t, rule.Applies, "APLICA_ST=false gana aunque haya MVA")

	rule, _ = r.Resolve("22220000", "SP")
	assert.True(t, rule.Applies)

	rule, ok = r.Resolve("33330000", "SP")
	require.True(t, ok)
	assert.False(t, rule.Applies, "sin bandera ni parámetros numéricos no aplica")

	rule, _ = r.Resolve("44440000", "SP")
	assert.True(t, rule.Applies, "multiplicador presente infiere aplicación")
	assert.True(t, rule.HasMultiplier)
}

func TestResolveQuery_CEST(t *testing.T) {
	m := entity.Matrices{Tables: []entity.RuleTable{{Name: "planilha", Rows: []entity.RuleRow{
		{Code: "0903.00.91", CEST: "0000000", UF: "AM", MVA: pct("70"), Applies: entity.ApplicabilityYes},
		{Code: "0903.00.91", CEST: "1234567", UF: "AM", MVA: pct("59"), Applies: entity.ApplicabilityYes},
		{Code: "0903.00.91", UF: "AM", MVA: pct("50"), Applies: entity.ApplicabilityYes},
	}}}}
	r := icmsst.NewRuleResolver(m, icmsst.DefaultParameters())

	tests := []struct {
		cest string
		mva  string
	}{
		{"0000000", "0.7"},
		{"1234567", "0.59"},
		{"9999999", "0.5"},
		{"", "0.5"},
	}
	for _, tt := range tests {
		rule, ok := r.ResolveQuery(icmsst.RuleQuery{NCM: "09030091", CEST: tt.cest, DestinationUF: "AM"})
		require.True(t, ok, "cest %q", tt.cest)
		assertDec(t, tt.mva, rule.MVA, "cest "+tt.cest)
	}
}

func TestResolveQuery_FiltrosCFOPyCST(t *testing.T) {
	m := entity.Matrices{Tables: []entity.RuleTable{{Name: "st_regras", Rows: []entity.RuleRow{
		{Code: "8708", CFOPFrom: "6101", CFOPTo: "6110", CSTExclude: []string{"60"}, MVA: pct("71.78")},
		{Code: "87", MVA: pct("30")},
		{Code: "8708", Inactive: true, MVA: pct("99")},
	}}}}
	r := icmsst.NewRuleResolver(m, icmsst.DefaultParameters())

	rule, _ := r.ResolveQuery(icmsst.RuleQuery{NCM: "87089990", CFOP: "6102", CST: "010", DestinationUF: "SP"})
	assert.Equal(t, "8708", rule.MatchedCode)

	rule, _ = r.ResolveQuery(icmsst.RuleQuery{NCM: "87089990", CFOP: "5102", DestinationUF: "SP"})
	assert.Equal(t, "87", rule.MatchedCode, "CFOP fuera del rango descarta la fila")

	rule, _ = r.ResolveQuery(icmsst.RuleQuery{NCM: "87089990", CFOP: "6102", CST: "060", DestinationUF: "SP"})
	assert.Equal(t, "87", rule.MatchedCode, "CST excluido descarta la fila")

	rule, _ = r.ResolveQuery(icmsst.RuleQuery{NCM: "87089990", DestinationUF: "SP"})
	assert.Equal(t, "8708", rule.MatchedCode, "sin CFOP/CST en la línea los filtros no se evalúan")
	assertDec(t, "0.7178", rule.MVA)
}

// Modificar las matrices después de construir no altera el resolver.
func TestNewRuleResolver_SnapshotInmutable(t *testing.T) {
	rows := []entity.RuleRow{{Code: "1234", MVA: pct("40")}}
	m := entity.Matrices{Tables: []entity.RuleTable{{Name: "mva", Rows: rows}}}
	r := icmsst.NewRuleResolver(m, icmsst.DefaultParameters())

	rows[0].Code = "9999"
	rows[0].MVA.Value = dec("99")

	rule, ok := r.Resolve("12345678", "SP")
	require.True(t, ok)
	assertDec(t, "0.4", rule.MVA)
}
