package calculation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/internal/domain"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
	"github.com/jhoicas/oraculo-icms/internal/domain/repository"
)

func newService(t *testing.T, runs *fakeRuns, parser calculation.InvoiceParser, pdf calculation.MemoriaPDFGenerator) *calculation.Service {
	t.Helper()
	p := calculation.NewEngineProvider(&fakeSource{matrices: buchaMatrices()}, "fake", icmsst.DefaultParameters(), nil)
	_, err := p.Reload(context.Background())
	require.NoError(t, err)
	var store repository.CalculationRunRepository
	if runs != nil {
		store = runs
	}
	return calculation.NewService(p, parser, store, pdf, calculation.Config{PersistRuns: runs != nil}, nil)
}

func buchaRequest() dto.CalculateRequest {
	return dto.CalculateRequest{
		OriginUF:      "sp",
		DestinationUF: "am",
		Items: []dto.TaxItemRequest{
			{ProductCode: "0903", Description: "BUCHA", NCM: "0903.00.91", CFOP: "5102", CST: "060",
				Quantity: dto.NewAmount("1"), UnitPrice: dto.NewAmount("100,00")},
			{ProductCode: "X", NCM: "99999999", Quantity: dto.NewAmount("2"), UnitPrice: dto.NewAmount("10")},
		},
	}
}

func TestCalculate_LoteConTotal(t *testing.T) {
	runs := newFakeRuns()
	svc := newService(t, runs, nil, nil)

	resp, err := svc.Calculate(context.Background(), "c1", "u1", buchaRequest())
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, "SP", resp.OriginUF)
	assert.Equal(t, "AM", resp.DestinationUF)
	assert.True(t, dec("21.46").Equal(resp.Items[0].ICMSSTDevido))
	assert.True(t, resp.Items[1].ICMSSTDevido.IsZero(), "sin regla no hay ST")
	assert.True(t, dec("21.46").Equal(resp.Total))
	assert.Equal(t, 2, resp.Items[1].Memoria.Sequence, "secuencia por posición")
	assert.Equal(t, "v1", resp.RulesVersion)
	assert.NotEmpty(t, resp.ID)
	assert.Empty(t, resp.Warnings)
	assert.NotEmpty(t, resp.Items[0].Display)

	stored, err := runs.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "c1", stored.CompanyID)
	assert.Equal(t, 2, stored.ItemCount)
}

func TestCalculate_EntradaInvalida(t *testing.T) {
	svc := newService(t, nil, nil, nil)

	req := buchaRequest()
	req.OriginUF = "S"
	_, err := svc.Calculate(context.Background(), "c1", "u1", req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = buchaRequest()
	req.Items = nil
	_, err = svc.Calculate(context.Background(), "c1", "u1", req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCalculate_UFFueraDeCatalogoAvisa(t *testing.T) {
	svc := newService(t, nil, nil, nil)
	req := buchaRequest()
	req.DestinationUF = "ZZ"

	resp, err := svc.Calculate(context.Background(), "c1", "u1", req)
	require.NoError(t, err)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "ZZ")
	assert.True(t, resp.Total.IsZero())
	assert.Empty(t, resp.ID, "sin repositorio no hay id")
}

func TestCalculate_MultiplicadorPorPeticion(t *testing.T) {
	svc := newService(t, nil, nil, nil)
	req := buchaRequest()
	on := true
	req.UseMultiplier = &on

	resp, err := svc.Calculate(context.Background(), "c1", "u1", req)
	require.NoError(t, err)
	assert.True(t, resp.UseMultiplier)
	assert.True(t, dec("18.11").Equal(resp.Items[0].Memoria.RetainedICMS))
}

func TestCalculate_FalloAlGuardarNoPierdeElCalculo(t *testing.T) {
	runs := newFakeRuns()
	runs.err = errBoom
	svc := newService(t, runs, nil, nil)

	resp, err := svc.Calculate(context.Background(), "c1", "u1", buchaRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.ID)
	assert.Len(t, resp.Warnings, 1)
	assert.True(t, dec("21.46").Equal(resp.Total))
}

func nfeDoc() *entity.NFeDocument {
	return &entity.NFeDocument{
		Header: entity.NFeHeader{Number: "77", EmitterUF: "SP", RecipientUF: "AM"},
		Items: []entity.TaxItem{{
			Sequence: 1, NCM: "09030091", Quantity: dec("1"), UnitPrice: dec("90"), Freight: dec("10"),
		}},
	}
}

func TestCalculateNFe_UFsDelDocumento(t *testing.T) {
	svc := newService(t, newFakeRuns(), fakeParser{doc: nfeDoc()}, nil)

	resp, err := svc.CalculateNFe(context.Background(), "c1", "u1", []byte("<nfe/>"), dto.NFeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SP", resp.OriginUF)
	assert.Equal(t, "AM", resp.DestinationUF)
	require.NotNil(t, resp.Document)
	assert.Equal(t, "77", resp.Document.Number)
	// 90 + 10 de flete = 100, mismo escenario de referencia.
	assert.True(t, dec("21.46").Equal(resp.Total))
}

func TestCalculateNFe_Opciones(t *testing.T) {
	svc := newService(t, nil, fakeParser{doc: nfeDoc()}, nil)
	off := false

	resp, err := svc.CalculateNFe(context.Background(), "c1", "u1", nil, dto.NFeOptions{
		DestinationUF:             "RJ",
		IncludeFreightInExemption: &off,
	})
	require.NoError(t, err)
	assert.Equal(t, "RJ", resp.DestinationUF)
	assert.False(t, resp.Items[0].Memoria.Parameters.IncludeFreight)
	assert.True(t, resp.Total.IsZero(), "la regla es solo para AM")
}

func TestCalculateNFe_DocumentoInvalido(t *testing.T) {
	svc := newService(t, nil, fakeParser{err: domain.ErrInvalidDocument}, nil)
	_, err := svc.CalculateNFe(context.Background(), "c1", "u1", nil, dto.NFeOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)

	empty := nfeDoc()
	empty.Items = nil
	svc = newService(t, nil, fakeParser{doc: empty}, nil)
	_, err = svc.CalculateNFe(context.Background(), "c1", "u1", nil, dto.NFeOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestGetRun(t *testing.T) {
	runs := newFakeRuns()
	svc := newService(t, runs, nil, nil)
	resp, err := svc.Calculate(context.Background(), "c1", "u1", buchaRequest())
	require.NoError(t, err)

	got, err := svc.GetRun(context.Background(), "c1", resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
	assert.True(t, resp.Total.Equal(got.Total))

	_, err = svc.GetRun(context.Background(), "otra", resp.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.GetRun(context.Background(), "c1", "no-es-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.GetRun(context.Background(), "c1", "6f1c1d3e-2b1a-4c1e-9a1b-3c1d2e3f4a5b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	runs := newFakeRuns()
	svc := newService(t, runs, nil, nil)
	for i := 0; i < 3; i++ {
		_, err := svc.Calculate(context.Background(), "c1", "u1", buchaRequest())
		require.NoError(t, err)
	}
	_, err := svc.Calculate(context.Background(), "c2", "u1", buchaRequest())
	require.NoError(t, err)

	list, err := svc.ListRuns(context.Background(), "c1", dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list.Runs, 2)
	assert.Equal(t, 3, list.Page.Total)
	assert.Equal(t, 2, list.Runs[0].Items)
}

func TestResolveRule(t *testing.T) {
	svc := newService(t, nil, nil, nil)

	res, err := svc.ResolveRule(dto.ResolveRuleRequest{NCM: "09030091", DestinationUF: "AM"})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "mva", res.Source)
	assert.True(t, dec("0.7").Equal(res.MVA))

	res, err = svc.ResolveRule(dto.ResolveRuleRequest{NCM: "09030091", DestinationUF: "SP"})
	require.NoError(t, err)
	assert.False(t, res.Found)

	_, err = svc.ResolveRule(dto.ResolveRuleRequest{DestinationUF: "SP"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDownloadMemoriaPDF(t *testing.T) {
	runs := newFakeRuns()
	pdf := &fakePDF{}
	svc := newService(t, runs, nil, pdf)
	resp, err := svc.Calculate(context.Background(), "c1", "u1", buchaRequest())
	require.NoError(t, err)

	b, name, err := svc.DownloadMemoriaPDF(context.Background(), "c1", resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(b))
	assert.Equal(t, "memoria-icms-st-"+resp.ID[:8]+".pdf", name)
	require.Len(t, pdf.items, 2)
	assert.NotEmpty(t, pdf.items[0].Fields)

	_, _, err = svc.DownloadMemoriaPDF(context.Background(), "c2", resp.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
