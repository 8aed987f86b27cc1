package icmsst

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
)

// Tipos de MVA informados en la memória.
const (
	MVATypeStandard = "MVA Padrão"
	MVATypeNoST     = "Sem ST"
)

// ResolvedParameters parámetros efectivamente usados en el cálculo de una línea.
// Las tasas son fracciones (0.18 = 18%).
type ResolvedParameters struct {
	OriginRate     decimal.Decimal   `json:"origin_rate"`
	MVA            decimal.Decimal   `json:"mva"`
	InternalRate   decimal.Decimal   `json:"internal_rate"`
	Multiplier     decimal.Decimal   `json:"multiplier"`
	IncludeFreight bool              `json:"include_freight"`
	IncludeOther   bool              `json:"include_other"`
	CreditRate     decimal.Decimal   `json:"credit_rate"`
	CreditType     entity.CreditType `json:"credit_type,omitempty"`
	AppliesST      bool              `json:"applies_st"`
	UseMultiplier  bool              `json:"use_multiplier"`
	RuleSource     string            `json:"rule_source,omitempty"` // vacío = sin regla
	MatchedCode    string            `json:"matched_code,omitempty"`
	MatchedCEST    string            `json:"matched_cest,omitempty"`
	OriginUF       string            `json:"origin_uf"`
	DestinationUF  string            `json:"destination_uf"`
}

// Memoria memória de cálculo de una línea: entradas ecoadas y cada valor intermedio.
// Los montos nombrados ya están redondeados a 2 decimales (HALF_UP).
type Memoria struct {
	Sequence    int    `json:"sequence"`
	ProductCode string `json:"product_code"`
	Description string `json:"description"`
	NCM         string `json:"ncm"`
	CEST        string `json:"cest,omitempty"`
	CFOP        string `json:"cfop"`
	CST         string `json:"cst"`

	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ProductTotal decimal.Decimal `json:"product_total"`
	Freight      decimal.Decimal `json:"freight"`
	IPI          decimal.Decimal `json:"ipi"`
	OtherCharges decimal.Decimal `json:"other_charges"`
	Discounts    decimal.Decimal `json:"discounts"`

	DeclaredOriginICMS   decimal.Decimal `json:"declared_origin_icms"`
	DeclaredExemptedICMS decimal.Decimal `json:"declared_exempted_icms"`

	OperationBase decimal.Decimal `json:"operation_base"`
	ExemptionBase decimal.Decimal `json:"exemption_base"`
	ExemptedICMS  decimal.Decimal `json:"exempted_icms"`
	NetSaleValue  decimal.Decimal `json:"net_sale_value"`

	MVAType         string          `json:"mva_type"`
	MVAPercent      decimal.Decimal `json:"mva_percent"`
	AggregatedValue decimal.Decimal `json:"aggregated_value"`
	STBase          decimal.Decimal `json:"st_base"`

	InternalRate               decimal.Decimal `json:"internal_rate"`
	TheoreticalDestinationICMS decimal.Decimal `json:"theoretical_destination_icms"`
	OriginICMSComputed         decimal.Decimal `json:"origin_icms_computed"`
	OutstandingBalance         decimal.Decimal `json:"outstanding_balance"`

	Multiplier   decimal.Decimal `json:"multiplier"` // fracción, sin redondear
	RetainedICMS decimal.Decimal `json:"retained_icms"`

	PresumedCredit decimal.Decimal `json:"presumed_credit"`
	ICMSSTDue      decimal.Decimal `json:"icms_st_due"`

	Parameters ResolvedParameters `json:"parameters"`
}

// ComputationResult resultado del cálculo de una línea.
type ComputationResult struct {
	BaseCalculoST decimal.Decimal `json:"base_calculo_st"`
	ICMSSTDevido  decimal.Decimal `json:"icms_st_devido"` // siempre >= 0
	Memoria       Memoria         `json:"memoria"`
}

var hundred = decimal.NewFromInt(100)

// Round2 redondea a 2 decimales, mitad hacia arriba (lejos de cero).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
