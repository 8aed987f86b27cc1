package calculation

import (
	"context"
	"io"

	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
)

// RuleSource origen de las matrices de reglas (PostgreSQL, carpeta de CSV, ...).
type RuleSource interface {
	LoadMatrices(ctx context.Context) (entity.Matrices, error)
}

// InvoiceParser extrae cabecera, totales y líneas de una NF-e en XML.
type InvoiceParser interface {
	Parse(xml []byte) (*entity.NFeDocument, error)
}

// RuleTableParser lee una matriz de reglas desde un archivo tabular.
type RuleTableParser interface {
	ParseTable(name string, r io.Reader) (entity.RuleTable, error)
}

// RuleTableStore destino de las matrices importadas.
type RuleTableStore interface {
	ReplaceTable(ctx context.Context, table entity.RuleTable) error
}

// MemoriaPDFItem línea lista para imprimir: resultado y campos rotulados.
type MemoriaPDFItem struct {
	Result icmsst.ComputationResult
	Fields []dto.MemoriaField
}

// MemoriaPDFGenerator genera la memória de cálculo en PDF.
type MemoriaPDFGenerator interface {
	GenerateMemoriaPDF(run *icmsst.Run, items []MemoriaPDFItem) ([]byte, error)
}
