package calculation

import (
	"context"
	"fmt"

	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
)

// DownloadMemoriaPDF genera la memória de cálculo de una corrida guardada.
//
// Retorna:
//   - domain.ErrInvalidInput si runID no es un UUID.
//   - domain.ErrNotFound     si la corrida no existe o no se guardan corridas.
//   - domain.ErrForbidden    si la corrida es de otra empresa.
func (s *Service) DownloadMemoriaPDF(ctx context.Context, companyID, runID string) (pdfBytes []byte, filename string, err error) {
	run, err := s.loadRun(ctx, companyID, runID)
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err = RenderMemoria(run, s.pdf)
	if err != nil {
		return nil, "", err
	}
	return pdfBytes, memoriaFilename(run), nil
}

// RenderMemoria arma las líneas rotuladas y delega en el generador.
func RenderMemoria(run *icmsst.Run, generator MemoriaPDFGenerator) ([]byte, error) {
	if generator == nil {
		return nil, fmt.Errorf("pdf: generador no configurado")
	}
	items := make([]MemoriaPDFItem, 0, len(run.Results))
	for _, r := range run.Results {
		items = append(items, MemoriaPDFItem{Result: r, Fields: MemoriaFields(r.Memoria)})
	}
	b, err := generator.GenerateMemoriaPDF(run, items)
	if err != nil {
		return nil, fmt.Errorf("pdf: generar memória: %w", err)
	}
	return b, nil
}

func memoriaFilename(run *icmsst.Run) string {
	if run.Document != nil && run.Document.Number != "" {
		return fmt.Sprintf("memoria-icms-st-nfe-%s.pdf", run.Document.Number)
	}
	short := run.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("memoria-icms-st-%s.pdf", short)
}
