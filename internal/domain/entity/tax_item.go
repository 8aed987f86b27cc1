package entity

import "github.com/shopspring/decimal"

// TaxItem representa una línea (det) de la NF-e ya extraída por el adaptador de entrada.
// Es inmutable durante el cálculo; el flete y las otras despesas ya vienen prorrateados.
type TaxItem struct {
	Sequence    int    // nItem
	ProductCode string // cProd
	Description string // xProd
	NCM         string
	CEST        string
	CFOP        string
	CST         string // CST o CSOSN

	Quantity     decimal.Decimal // qCom
	UnitPrice    decimal.Decimal // vUnCom
	Freight      decimal.Decimal // vFrete
	OtherCharges decimal.Decimal // vOutro (despesas acessórias)
	Discounts    decimal.Decimal // vDesc
	IPI          decimal.Decimal // vIPI

	OriginICMS      decimal.Decimal // ICMS destacado en la origen
	ExemptedICMS    decimal.Decimal // vICMSDeson informado en el XML
	ExemptionReason string          // motDesICMS

	// Por defecto flete y otras despesas integran la base del ICMS desonerado (CIF).
	ExcludeFreightFromExemption bool
	ExcludeOtherFromExemption   bool
}
