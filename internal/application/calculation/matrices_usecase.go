package calculation

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/internal/domain"
	"github.com/jhoicas/oraculo-icms/pkg/logger"
)

// MatricesUseCase administración de las matrices: estado, recarga e importación.
type MatricesUseCase struct {
	engines *EngineProvider
	parser  RuleTableParser
	store   RuleTableStore // nil = importación deshabilitada (fuente de solo lectura)
	log     *logger.Logger
}

// NewMatricesUseCase construye el caso de uso.
func NewMatricesUseCase(engines *EngineProvider, parser RuleTableParser, store RuleTableStore, log *logger.Logger) *MatricesUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &MatricesUseCase{engines: engines, parser: parser, store: store, log: log.Component("matrices")}
}

// Status resumen del snapshot vigente.
func (uc *MatricesUseCase) Status() dto.MatricesStatusResponse {
	st := uc.engines.Current().Stats()
	return dto.MatricesStatusResponse{
		Tables:   st.Tables,
		Rows:     st.Rows,
		Usable:   st.Usable,
		Version:  st.Version,
		Source:   uc.engines.SourceName(),
		LoadedAt: uc.engines.LoadedAt(),
	}
}

// Reload recarga las matrices desde la fuente configurada.
func (uc *MatricesUseCase) Reload(ctx context.Context) (dto.MatricesStatusResponse, error) {
	if _, err := uc.engines.Reload(ctx); err != nil {
		return uc.Status(), err
	}
	return uc.Status(), nil
}

// Import reemplaza una matriz con el contenido de un archivo y recarga el motor.
func (uc *MatricesUseCase) Import(ctx context.Context, name string, r io.Reader) (dto.MatricesStatusResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return dto.MatricesStatusResponse{}, fmt.Errorf("%w: nombre de matriz vacío", domain.ErrInvalidInput)
	}
	if uc.store == nil || uc.parser == nil {
		return dto.MatricesStatusResponse{}, fmt.Errorf("%w: la fuente de matrices configurada es de solo lectura", domain.ErrForbidden)
	}
	table, err := uc.parser.ParseTable(name, r)
	if err != nil {
		return dto.MatricesStatusResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := uc.store.ReplaceTable(ctx, table); err != nil {
		return dto.MatricesStatusResponse{}, fmt.Errorf("matrices: guardar %s: %w", name, err)
	}
	uc.log.Info().Str("table", table.Name).Int("rows", len(table.Rows)).Msg("matriz importada")
	return uc.Reload(ctx)
}
