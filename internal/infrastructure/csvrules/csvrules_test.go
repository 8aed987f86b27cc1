package csvrules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
)

func assertFraction(t *testing.T, want string, r *entity.Rate) {
	t.Helper()
	require.NotNil(t, r)
	assert.Truef(t, decimal.RequireFromString(want).Equal(r.Fraction()), "esperado %s, obtenido %s", want, r.Fraction())
}

func TestLoadMatrices_DirectorioOrdenado(t *testing.T) {
	m, err := NewSource("testdata/matrizes").LoadMatrices(context.Background())
	require.NoError(t, err)

	require.Len(t, m.Tables, 2)
	assert.Equal(t, "mva", m.Tables[0].Name)
	assert.Equal(t, "st_regras", m.Tables[1].Name)
	assert.NotEmpty(t, m.Version)
	assert.Equal(t, 4, m.RowCount())

	mva := m.Tables[0].Rows
	assert.Equal(t, "0903.00.91", mva[0].Code)
	assert.Equal(t, "AM", mva[0].UF)
	assert.Equal(t, entity.ApplicabilityYes, mva[0].Applies)
	assertFraction(t, "0.70", mva[0].MVA)
	assertFraction(t, "0.18", mva[0].InternalRate)
	assert.Nil(t, mva[0].Multiplier)

	assertFraction(t, "0.4", mva[1].MVA)
	assert.Nil(t, mva[1].InternalRate, "celda vacía es ausencia")
	assert.Equal(t, entity.ApplicabilityUnknown, mva[1].Applies)
}

func TestParseTable_FiltrosYCredito(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "matrizes", "02_st_regras.csv"))
	require.NoError(t, err)
	defer f.Close()

	table, err := NewParser().ParseTable("st_regras", f)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	r := table.Rows[0]
	assert.Equal(t, "0107500", r.CEST)
	assertFraction(t, "0.10", r.CreditRate)
	assert.Equal(t, entity.CreditOnBase, r.CreditType)
	assert.Equal(t, []string{"40", "41", "50"}, r.CSTExclude)
	assert.Equal(t, "6101", r.CFOPFrom)
	assert.Equal(t, "6110", r.CFOPTo)
	assert.False(t, r.Inactive)

	assert.True(t, table.Rows[1].Inactive, "ATIVO=nao")
	assert.Equal(t, entity.CreditType(""), table.Rows[1].CreditType)
}

func TestParseTable_EncabezadosHistoricos(t *testing.T) {
	csv := "\xef\xbb\xbfNCM_RAIZ;UF_DESTINO;Margem (%);Alíquota Interna;MULT_SEFAZ;Substituição\n" +
		"3401;sp;35%;18;12,5;Sujeito a ST\n" +
		";SP;10;;;\n"

	table, err := NewParser().ParseTable("planilha", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1, "fila sin NCM se ignora")

	r := table.Rows[0]
	assert.Equal(t, "3401", r.Code)
	assertFraction(t, "0.35", r.MVA)
	assertFraction(t, "0.18", r.InternalRate)
	assertFraction(t, "0.125", r.Multiplier)
	assert.Equal(t, entity.ApplicabilityYes, r.Applies)
}

func TestParseTable_AplicaSTTextoLibre(t *testing.T) {
	tests := []struct {
		value string
		want  entity.Applicability
	}{
		{"NÃO SUJEITO", entity.ApplicabilityNo},
		{"NAO SUBSTITUIDO", entity.ApplicabilityNo},
		{"não sujeito a ST", entity.ApplicabilityNo},
		{"SEM ST", entity.ApplicabilityNo},
		{"Isento", entity.ApplicabilityNo},
		{"Produto isento de ST", entity.ApplicabilityNo},
		{"Sujeito a ST", entity.ApplicabilityYes},
		{"Substituição tributária", entity.ApplicabilityYes},
		{"NÃO", entity.ApplicabilityNo},
		{"SIM", entity.ApplicabilityYes},
		{"verificar", entity.ApplicabilityUnknown},
		{"", entity.ApplicabilityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			csv := "NCM;UF;APLICA_ST;MVA\n0903;AM;" + tt.value + ";70\n"
			table, err := NewParser().ParseTable("st_regras", strings.NewReader(csv))
			require.NoError(t, err)
			require.Len(t, table.Rows, 1)
			assert.Equal(t, tt.want, table.Rows[0].Applies)
		})
	}
}

func TestParseTable_Windows1252(t *testing.T) {
	csv := "NCM;DESCRI\xc7\xc3O;MVA\n2203;CERVEJA EM LATA;40\n"
	table, err := NewParser().ParseTable("bebidas", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "CERVEJA EM LATA", table.Rows[0].Segment)
}

func TestParseTable_SinColumnaNCM(t *testing.T) {
	_, err := NewParser().ParseTable("x", strings.NewReader("UF;MVA\nSP;40\n"))
	assert.Error(t, err)

	_, err = NewParser().ParseTable("x", strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadMatrices_DirectorioInexistente(t *testing.T) {
	_, err := NewSource("testdata/no-existe").LoadMatrices(context.Background())
	assert.Error(t, err)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "mva", TableName("matrizes/01_MVA.csv"))
	assert.Equal(t, "creditos_presumidos", TableName("/x/creditos_presumidos.csv"))
}
