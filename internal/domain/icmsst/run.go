package icmsst

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
)

// Run corrida de cálculo: un lote de líneas, sus resultados y el contexto en que se calculó.
type Run struct {
	ID            string
	CompanyID     string
	UserID        string
	OriginUF      string
	DestinationUF string
	UseMultiplier bool
	RulesVersion  string
	Document      *entity.NFeHeader // nil cuando las líneas no vinieron de un XML
	Results       []ComputationResult
	ItemCount     int // en listados Results va vacío
	Total         decimal.Decimal
	CreatedAt     time.Time
}
