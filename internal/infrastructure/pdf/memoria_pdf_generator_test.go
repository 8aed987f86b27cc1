package pdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
)

func sampleRun(withDoc bool) (*icmsst.Run, []calculation.MemoriaPDFItem) {
	engine := icmsst.NewEngine(entity.Matrices{}, icmsst.DefaultParameters())
	res := engine.Calculate(entity.TaxItem{
		Sequence:    1,
		ProductCode: "P-01",
		Description: "Pimenta do reino",
		NCM:         "09030091",
		CFOP:        "6102",
		CST:         "010",
		Quantity:    decimal.NewFromInt(10),
		UnitPrice:   decimal.RequireFromString("12.5"),
	}, "SP", "AM", false)

	run := &icmsst.Run{
		ID:            "0b6f3c1e-3f4a-4a57-9d64-9a3b3b6f0c11",
		OriginUF:      "SP",
		DestinationUF: "AM",
		RulesVersion:  "csv-20260101",
		Results:       []icmsst.ComputationResult{res},
		Total:         res.ICMSSTDevido,
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if withDoc {
		run.Document = &entity.NFeHeader{
			AccessKey:   "35240811222333000181550010000123451123456787",
			Number:      "12345",
			Series:      "1",
			EmitterName: "Distribuidora Teste Ltda",
			EmitterCNPJ: "11222333000181",
			EmitterUF:   "SP",
			RecipientUF: "AM",
		}
	}
	return run, []calculation.MemoriaPDFItem{{Result: res, Fields: calculation.MemoriaFields(res.Memoria)}}
}

func TestGenerateMemoriaPDF(t *testing.T) {
	g := NewMarotoMemoriaGenerator()
	for _, withDoc := range []bool{false, true} {
		run, items := sampleRun(withDoc)
		b, err := g.GenerateMemoriaPDF(run, items)
		require.NoError(t, err)
		assert.True(t, len(b) > 4 && string(b[:4]) == "%PDF", "la salida debe ser un PDF")
	}
}

func TestGenerateMemoriaPDF_CorridaNula(t *testing.T) {
	_, err := NewMarotoMemoriaGenerator().GenerateMemoriaPDF(nil, nil)
	assert.Error(t, err)
}

func TestGroupKey(t *testing.T) {
	assert.Equal(t, "3524 0811", groupKey("35240811"))
	assert.Equal(t, "", groupKey(""))
}
