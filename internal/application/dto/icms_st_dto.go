package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// Amount monto aceptado como número JSON o como texto ("1.234,56", "R$ 10,00").
// Un valor ilegible se toma como cero, igual que un campo ausente.
type Amount struct {
	decimal.Decimal
}

// NewAmount atajo para construir montos en código y tests.
func NewAmount(s string) Amount {
	return Amount{Decimal: fiscal.ParseDecimal(s)}
}

// UnmarshalJSON acepta número, string o null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			a.Decimal = decimal.Zero
			return nil
		}
		a.Decimal = fiscal.ParseDecimal(s)
		return nil
	}
	a.Decimal = fiscal.ParseDecimal(string(b))
	return nil
}

// MarshalJSON serializa como string decimal, igual que decimal.Decimal.
func (a Amount) MarshalJSON() ([]byte, error) {
	return a.Decimal.MarshalJSON()
}

// TaxItemRequest línea de NF-e enviada directamente por el cliente.
type TaxItemRequest struct {
	Sequence     int    `json:"sequence,omitempty"` // nItem; si va en 0 se usa la posición
	ProductCode  string `json:"product_code"`
	Description  string `json:"description"`
	NCM          string `json:"ncm"`
	CEST         string `json:"cest,omitempty"`
	CFOP         string `json:"cfop"`
	CST          string `json:"cst"`
	Quantity     Amount `json:"quantity"`
	UnitPrice    Amount `json:"unit_price"`
	Freight      Amount `json:"freight"`
	OtherCharges Amount `json:"other_charges"`
	Discounts    Amount `json:"discounts"`
	IPI          Amount `json:"ipi"`
	OriginICMS   Amount `json:"origin_icms"`
	ExemptedICMS Amount `json:"exempted_icms"`
	// nil = incluir (por defecto el flete y las despesas integran la base desonerada)
	IncludeFreightInExemption *bool `json:"include_freight_in_exemption,omitempty"`
	IncludeOtherInExemption   *bool `json:"include_other_in_exemption,omitempty"`
}

// ToEntity traduce la línea al modelo de dominio. pos es la posición 0-based en el lote.
func (r TaxItemRequest) ToEntity(pos int) entity.TaxItem {
	seq := r.Sequence
	if seq <= 0 {
		seq = pos + 1
	}
	return entity.TaxItem{
		Sequence:                    seq,
		ProductCode:                 r.ProductCode,
		Description:                 r.Description,
		NCM:                         r.NCM,
		CEST:                        r.CEST,
		CFOP:                        r.CFOP,
		CST:                         r.CST,
		Quantity:                    r.Quantity.Decimal,
		UnitPrice:                   r.UnitPrice.Decimal,
		Freight:                     r.Freight.Decimal,
		OtherCharges:                r.OtherCharges.Decimal,
		Discounts:                   r.Discounts.Decimal,
		IPI:                         r.IPI.Decimal,
		OriginICMS:                  r.OriginICMS.Decimal,
		ExemptedICMS:                r.ExemptedICMS.Decimal,
		ExcludeFreightFromExemption: r.IncludeFreightInExemption != nil && !*r.IncludeFreightInExemption,
		ExcludeOtherFromExemption:   r.IncludeOtherInExemption != nil && !*r.IncludeOtherInExemption,
	}
}

// CalculateRequest body para POST /api/icms-st/calculate.
type CalculateRequest struct {
	OriginUF      string           `json:"origin_uf"`
	DestinationUF string           `json:"destination_uf"`
	UseMultiplier *bool            `json:"use_multiplier,omitempty"` // nil = valor de configuración
	Items         []TaxItemRequest `json:"items"`
}

// NFeOptions opciones del cálculo a partir de un XML (query string de POST /api/icms-st/nfe).
// Las UFs vacías se toman de emit/enderEmit y dest/enderDest.
type NFeOptions struct {
	OriginUF                  string `query:"origin_uf"`
	DestinationUF             string `query:"destination_uf"`
	UseMultiplier             *bool  `query:"use_multiplier"`
	IncludeFreightInExemption *bool  `query:"include_freight_in_exemption"`
	IncludeOtherInExemption   *bool  `query:"include_other_in_exemption"`
}

// MemoriaField valor de la memória con su rótulo en portugués, listo para mostrar.
type MemoriaField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// ItemResultResponse resultado de una línea.
type ItemResultResponse struct {
	BaseCalculoST decimal.Decimal `json:"base_calculo_st"`
	ICMSSTDevido  decimal.Decimal `json:"icms_st_devido"`
	Memoria       icmsst.Memoria  `json:"memoria"`
	Display       []MemoriaField  `json:"display"`
}

// CalculationResponse resultado de un cálculo completo (una corrida).
type CalculationResponse struct {
	ID            string               `json:"id,omitempty"` // vacío si la corrida no se persistió
	OriginUF      string               `json:"origin_uf"`
	DestinationUF string               `json:"destination_uf"`
	UseMultiplier bool                 `json:"use_multiplier"`
	RulesVersion  string               `json:"rules_version,omitempty"`
	Document      *entity.NFeHeader    `json:"document,omitempty"`
	Items         []ItemResultResponse `json:"items"`
	Total         decimal.Decimal      `json:"total_icms_st"`
	Warnings      []string             `json:"warnings,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// RunSummary fila del listado de corridas.
type RunSummary struct {
	ID            string          `json:"id"`
	OriginUF      string          `json:"origin_uf"`
	DestinationUF string          `json:"destination_uf"`
	AccessKey     string          `json:"access_key,omitempty"`
	Items         int             `json:"items"`
	Total         decimal.Decimal `json:"total_icms_st"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RunListResponse respuesta de GET /api/icms-st/runs.
type RunListResponse struct {
	Runs []RunSummary `json:"runs"`
	Page PageResponse `json:"page"`
}

// ResolveRuleRequest query de GET /api/icms-st/rules/resolve.
type ResolveRuleRequest struct {
	NCM           string `query:"ncm"`
	CEST          string `query:"cest"`
	CFOP          string `query:"cfop"`
	CST           string `query:"cst"`
	DestinationUF string `query:"uf"`
}

// ResolveRuleResponse regla que el motor usaría para la consulta.
type ResolveRuleResponse struct {
	Found        bool            `json:"found"`
	Source       string          `json:"source,omitempty"`
	MatchedCode  string          `json:"matched_code,omitempty"`
	MatchedCEST  string          `json:"matched_cest,omitempty"`
	AppliesST    bool            `json:"applies_st"`
	OriginRate   decimal.Decimal `json:"origin_rate"`
	MVA          decimal.Decimal `json:"mva"`
	InternalRate decimal.Decimal `json:"internal_rate"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	CreditRate   decimal.Decimal `json:"credit_rate"`
	CreditType   string          `json:"credit_type,omitempty"`
}

// MatricesStatusResponse estado del snapshot de matrices en memoria.
type MatricesStatusResponse struct {
	Tables   int       `json:"tables"`
	Rows     int       `json:"rows"`
	Usable   int       `json:"usable_rows"`
	Version  string    `json:"version,omitempty"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
}
