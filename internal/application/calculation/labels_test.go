package calculation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
)

func fieldsByKey(fields []dto.MemoriaField) map[string]dto.MemoriaField {
	out := make(map[string]dto.MemoriaField, len(fields))
	for _, f := range fields {
		out[f.Key] = f
	}
	return out
}

func TestMemoriaFields_FormatoBrasileno(t *testing.T) {
	engine := icmsst.NewEngine(buchaMatrices(), icmsst.DefaultParameters())
	r := engine.Calculate(entity.TaxItem{
		Sequence: 3, ProductCode: "0903", NCM: "09030091", Quantity: dec("1"), UnitPrice: dec("1000"),
	}, "SP", "AM", false)

	fields := calculation.MemoriaFields(r.Memoria)
	require.NotEmpty(t, fields)
	assert.Equal(t, "sequence", fields[0].Key, "el orden de presentación empieza por el item")
	assert.Equal(t, "icms_st_due", fields[len(fields)-2].Key)

	byKey := fieldsByKey(fields)
	assert.Equal(t, "3", byKey["sequence"].Value)
	assert.Equal(t, "R$ 1.000,00", byKey["product_total"].Value)
	assert.Equal(t, "Base de cálculo ST", byKey["st_base"].Label)
	assert.Equal(t, "18,00%", byKey["internal_rate"].Value)
	assert.Equal(t, "7,00%", byKey["origin_rate"].Value)
	assert.Equal(t, "70,00%", byKey["mva_percent"].Value)
	assert.Equal(t, "mva / NCM 09030091", byKey["rule_source"].Value)
	_, hasCEST := byKey["cest"]
	assert.False(t, hasCEST, "texto vacío se omite")
}

func TestMemoriaFields_SinRegla(t *testing.T) {
	engine := icmsst.NewEngine(entity.Matrices{}, icmsst.DefaultParameters())
	r := engine.Calculate(entity.TaxItem{NCM: "1", Quantity: dec("1"), UnitPrice: dec("1")}, "SP", "AM", false)

	byKey := fieldsByKey(calculation.MemoriaFields(r.Memoria))
	assert.Equal(t, "Sem regra (parâmetros zerados)", byKey["rule_source"].Value)
	assert.Equal(t, icmsst.MVATypeNoST, byKey["mva_type"].Value)
}
