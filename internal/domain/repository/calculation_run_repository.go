package repository

import (
	"context"

	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
)

// CalculationRunRepository persistencia de corridas de cálculo.
type CalculationRunRepository interface {
	// Create asigna ID si viene vacío.
	Create(ctx context.Context, run *icmsst.Run) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*icmsst.Run, error)
	// ListByCompany devuelve corridas sin Results, más recientes primero, y el total.
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]icmsst.Run, int, error)
}
