package calculation

import (
	"errors"
	"fmt"

	"github.com/jhoicas/oraculo-icms/internal/domain"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// MaxItemsPerRun límite de líneas por corrida.
const MaxItemsPerRun = 990 // una NF-e admite hasta 990 det

// validateOperation valida UFs y cantidad de líneas. Devuelve domain.ErrInvalidInput
// unido a cada problema encontrado.
func validateOperation(originUF, destinationUF string, items int) error {
	var errs []error
	if !fiscal.WellFormedUF(originUF) {
		errs = append(errs, fmt.Errorf("origin_uf inválida: %q", originUF))
	}
	if !fiscal.WellFormedUF(destinationUF) {
		errs = append(errs, fmt.Errorf("destination_uf inválida: %q", destinationUF))
	}
	if items == 0 {
		errs = append(errs, errors.New("se requiere al menos una línea"))
	}
	if items > MaxItemsPerRun {
		errs = append(errs, fmt.Errorf("máximo %d líneas por cálculo, se recibieron %d", MaxItemsPerRun, items))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{domain.ErrInvalidInput}, errs...)...)
	}
	return nil
}

// catalogWarnings avisos para UFs con forma válida pero fuera de la tabla IBGE.
func catalogWarnings(originUF, destinationUF string) []string {
	var out []string
	if !fiscal.ValidUF(originUF) {
		out = append(out, fmt.Sprintf("UF de origem %s não consta na tabela IBGE", fiscal.NormalizeUF(originUF)))
	}
	if !fiscal.ValidUF(destinationUF) {
		out = append(out, fmt.Sprintf("UF de destino %s não consta na tabela IBGE; nenhuma regra específica de UF será aplicada", fiscal.NormalizeUF(destinationUF)))
	}
	return out
}
