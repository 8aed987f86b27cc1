package repository

import (
	"context"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
)

// RuleMatrixRepository almacenamiento de las matrices de reglas de ST.
type RuleMatrixRepository interface {
	// Load lee todas las matrices en un snapshot consistente, en orden de prioridad.
	Load(ctx context.Context) (entity.Matrices, error)
	// ReplaceTable sustituye todas las filas de una matriz (la crea si no existe).
	ReplaceTable(ctx context.Context, table entity.RuleTable) error
}
