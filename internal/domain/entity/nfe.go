package entity

import "github.com/shopspring/decimal"

// NFeHeader datos de cabecera de la NF-e relevantes para la memória de cálculo.
type NFeHeader struct {
	AccessKey         string `json:"access_key"` // chave de acesso (44 dígitos)
	Model             string `json:"model"`
	Series            string `json:"series"`
	Number            string `json:"number"`
	IssuedAt          string `json:"issued_at"` // dhEmi tal cual viene en el XML
	NatureOfOperation string `json:"nature_of_operation"`

	EmitterName string `json:"emitter_name"`
	EmitterCNPJ string `json:"emitter_cnpj"`
	EmitterIE   string `json:"emitter_ie,omitempty"`
	EmitterUF   string `json:"emitter_uf"`

	RecipientName string `json:"recipient_name"`
	RecipientDoc  string `json:"recipient_doc"` // CNPJ o CPF
	RecipientIE   string `json:"recipient_ie,omitempty"`
	RecipientUF   string `json:"recipient_uf"`

	FreightMode string `json:"freight_mode,omitempty"` // modFrete: 0 CIF, 1 FOB, ...
}

// NFeTotals totales del grupo ICMSTot.
type NFeTotals struct {
	Products     decimal.Decimal `json:"products"`
	Freight      decimal.Decimal `json:"freight"`
	Insurance    decimal.Decimal `json:"insurance"`
	Discounts    decimal.Decimal `json:"discounts"`
	OtherCharges decimal.Decimal `json:"other_charges"`
	IPI          decimal.Decimal `json:"ipi"`
	ICMS         decimal.Decimal `json:"icms"`
	ICMSST       decimal.Decimal `json:"icms_st"`
	ExemptedICMS decimal.Decimal `json:"exempted_icms"`
	Invoice      decimal.Decimal `json:"invoice"`
}

// NFeDocument NF-e normalizada: cabecera, totales y líneas con flete y despesas ya prorrateados.
type NFeDocument struct {
	Header NFeHeader
	Totals NFeTotals
	Items  []TaxItem
}
