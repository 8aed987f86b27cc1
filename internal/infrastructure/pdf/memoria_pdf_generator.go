// Package pdf genera la memória de cálculo del ICMS-ST en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: título + corrida        │  UF origem → destino      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  NF-e: emitente / destinatário / chave (si vino de un XML)   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ITEM n: rótulo | valor (dos columnas por fila)              │
//	│  ...                                                         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL ICMS-ST DEVIDO                                        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorLight   = &props.Color{Red: 235, Green: 240, Blue: 247}
)

// URL de consulta pública de la NF-e codificada en el QR junto con la chave.
const consultaURL = "https://www.nfe.fazenda.gov.br/portal/consultaRecaptcha.aspx?tipoConteudo=7PhJ+gAVw2g=&nfe="

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoMemoriaGenerator implementa calculation.MemoriaPDFGenerator usando Maroto v2.
type MarotoMemoriaGenerator struct{}

// NewMarotoMemoriaGenerator construye el generador.
func NewMarotoMemoriaGenerator() *MarotoMemoriaGenerator { return &MarotoMemoriaGenerator{} }

// GenerateMemoriaPDF genera el PDF y devuelve sus bytes.
func (g *MarotoMemoriaGenerator) GenerateMemoriaPDF(run *icmsst.Run, items []calculation.MemoriaPDFItem) ([]byte, error) {
	if run == nil {
		return nil, fmt.Errorf("pdf: corrida nula")
	}
	author := "Oráculo ICMS"
	if run.Document != nil && run.Document.EmitterName != "" {
		author = run.Document.EmitterName
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Memória de cálculo ICMS-ST", true).
		WithAuthor(author, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(run))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	if run.Document != nil {
		m.AddRows(documentRows(run.Document)...)
		m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	}

	for _, it := range items {
		m.AddRows(itemRows(it)...)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(run))
	m.AddRows(footerRow(run))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(run *icmsst.Run) core.Row {
	created := ""
	if !run.CreatedAt.IsZero() {
		created = "Calculado em " + run.CreatedAt.Format("02/01/2006 15:04")
	}
	regime := "Saldo devedor"
	if run.UseMultiplier {
		regime = "Saldo devedor + multiplicador SEFAZ"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New("MEMÓRIA DE CÁLCULO ICMS-ST", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(created, "Cálculo avulso"), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(fmt.Sprintf("%s → %s", run.OriginUF, run.DestinationUF), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1,
			}),
			text.New(regime, props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
			text.New("Regras: "+nonEmpty(run.RulesVersion, "-"), props.Text{
				Size: 7, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func documentRows(h *entity.NFeHeader) []core.Row {
	rows := []core.Row{
		row.New(12).Add(
			col.New(6).Add(
				text.New("EMITENTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
				text.New(fmt.Sprintf("%s  |  CNPJ %s  |  %s",
					nonEmpty(h.EmitterName, "-"), nonEmpty(h.EmitterCNPJ, "-"), nonEmpty(h.EmitterUF, "-")),
					props.Text{Size: 7.5, Top: 6, Color: colorGray}),
			),
			col.New(6).Add(
				text.New("DESTINATÁRIO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
				text.New(fmt.Sprintf("%s  |  %s  |  %s",
					nonEmpty(h.RecipientName, "-"), nonEmpty(h.RecipientDoc, "-"), nonEmpty(h.RecipientUF, "-")),
					props.Text{Size: 7.5, Top: 6, Color: colorGray}),
			),
		),
	}
	if h.AccessKey == "" {
		return rows
	}
	return append(rows, row.New(24).Add(
		col.New(9).Add(
			text.New(fmt.Sprintf("NF-e %s  série %s  emitida em %s", nonEmpty(h.Number, "-"), nonEmpty(h.Series, "-"), nonEmpty(h.IssuedAt, "-")),
				props.Text{Style: fontstyle.Bold, Size: 8, Top: 2}),
			text.New("Chave de acesso:", props.Text{Size: 7, Top: 8, Color: colorGray}),
			text.New(groupKey(h.AccessKey), props.Text{Size: 8, Top: 12}),
			text.New(nonEmpty(h.NatureOfOperation, ""), props.Text{Size: 7, Top: 17, Color: colorGray}),
		),
		col.New(3).Add(code.NewQr(consultaURL+h.AccessKey, props.Rect{
			Percent: 90,
			Center:  true,
		})),
	))
}

// itemRows: título del ítem y los campos rotulados de la memória en pares.
func itemRows(it calculation.MemoriaPDFItem) []core.Row {
	mem := it.Result.Memoria
	title := fmt.Sprintf("ITEM %d  |  %s  |  NCM %s", mem.Sequence, nonEmpty(mem.Description, mem.ProductCode), nonEmpty(mem.NCM, "-"))
	rows := []core.Row{
		row.New(3),
		row.New(7).Add(col.New(12).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 1.5, Left: 1}),
		)).WithStyle(&props.Cell{BackgroundColor: colorLight}),
	}
	for i := 0; i < len(it.Fields); i += 2 {
		r := row.New(5).Add(fieldCols(it.Fields[i])...)
		if i+1 < len(it.Fields) {
			r.Add(fieldCols(it.Fields[i+1])...)
		} else {
			r.Add(col.New(6))
		}
		rows = append(rows, r)
	}
	return rows
}

func fieldCols(f dto.MemoriaField) []core.Col {
	bold := f.Key == "st_base" || f.Key == "icms_st_due"
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	return []core.Col{
		col.New(3).Add(text.New(f.Label, props.Text{Size: 7.5, Top: 1, Left: 1, Color: colorGray})),
		col.New(3).Add(text.New(f.Value, props.Text{Size: 7.5, Top: 1, Right: 2, Align: align.Right, Style: style})),
	}
}

func totalRow(run *icmsst.Run) core.Row {
	return row.New(12).Add(
		col.New(6).Add(text.New(fmt.Sprintf("%d item(ns) calculado(s)", len(run.Results)), props.Text{
			Size: 8, Top: 3, Color: colorGray,
		})),
		col.New(3).Add(text.New("TOTAL ICMS-ST DEVIDO:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 3, Right: 2,
		})),
		col.New(3).Add(text.New("R$ "+fiscal.FormatBRL(run.Total), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 3, Right: 1,
		})),
	)
}

func footerRow(run *icmsst.Run) core.Row {
	legend := "Valores arredondados a duas casas decimais (meio para cima) em cada etapa. " +
		"Documento de apoio à apuração, sem valor fiscal."
	if run.ID != "" {
		legend += " Corrida " + run.ID + "."
	}
	return row.New(10).Add(col.New(12).Add(
		text.New(legend, props.Text{Size: 6.5, Color: colorGray, Top: 3}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// groupKey separa la chave de acesso en bloques de 4 dígitos, como en el DANFE.
func groupKey(key string) string {
	var buf []byte
	for i := 0; i < len(key); i++ {
		if i > 0 && i%4 == 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, key[i])
	}
	return string(buf)
}
