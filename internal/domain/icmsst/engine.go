package icmsst

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
)

// Stats resumen del snapshot cargado en un Engine.
type Stats struct {
	Tables  int    `json:"tables"`
	Rows    int    `json:"rows"`
	Usable  int    `json:"usable_rows"`
	Version string `json:"version,omitempty"`
}

// Engine motor de cálculo del ICMS-ST sobre un snapshot inmutable de matrices.
// Recargar reglas significa construir un Engine nuevo y reemplazar la referencia.
type Engine struct {
	resolver *RuleResolver
	defaults Defaults
	stats    Stats
}

// NewEngine construye el motor. Matrices vacías son válidas: ninguna línea tendrá regla.
func NewEngine(m entity.Matrices, defaults Defaults) *Engine {
	resolver := NewRuleResolver(m, defaults)
	return &Engine{
		resolver: resolver,
		defaults: defaults,
		stats: Stats{
			Tables:  len(m.Tables),
			Rows:    m.RowCount(),
			Usable:  resolver.Len(),
			Version: m.Version,
		},
	}
}

// Resolver expone el resolver del snapshot (solo lectura).
func (e *Engine) Resolver() *RuleResolver { return e.resolver }

// Stats devuelve el resumen del snapshot.
func (e *Engine) Stats() Stats { return e.stats }

// Calculate calcula el ICMS-ST de una línea.
//
// Pipeline (montos redondeados a 2 decimales en el paso donde se nombran):
//
//	valor_produto    = qCom × vUnCom
//	base_oper        = valor_produto + frete + despesas
//	base_desonerado  = valor_produto (+ frete) (+ despesas)
//	icms_desonerado  = alíq_origem × base_desonerado
//	venda_desc       = base_oper − icms_desonerado
//	valor_agregado   = MVA × venda_desc
//	base_st          = venda_desc + valor_agregado
//	icms_teorico     = alíq_interna × base_st
//	saldo_devedor    = icms_teorico − icms_desonerado
//	icms_retido      = multiplicador × venda_desc
//	icms_st_devido   = max(0, saldo_devedor − crédito presumido)
//
// Sin regla (o APLICA_ST = false) MVA, alíquota interna y multiplicador valen cero,
// la base ST es la venda_desc y el ICMS-ST devido es cero.
func (e *Engine) Calculate(item entity.TaxItem, originUF, destinationUF string, useMultiplier bool) ComputationResult {
	rule, found := e.resolver.ResolveQuery(RuleQuery{
		NCM:           item.NCM,
		CEST:          item.CEST,
		CFOP:          item.CFOP,
		CST:           item.CST,
		DestinationUF: destinationUF,
	})

	p := ResolvedParameters{
		OriginRate:     e.defaults.OriginRate.Fraction(),
		IncludeFreight: !item.ExcludeFreightFromExemption,
		IncludeOther:   !item.ExcludeOtherFromExemption,
		UseMultiplier:  useMultiplier,
		OriginUF:       originUF,
		DestinationUF:  destinationUF,
		MVA:            decimal.Zero,
		InternalRate:   decimal.Zero,
		Multiplier:     decimal.Zero,
		CreditRate:     decimal.Zero,
	}
	if found {
		p.RuleSource = rule.Source
		p.MatchedCode = rule.MatchedCode
		p.MatchedCEST = rule.MatchedCEST
		p.OriginRate = rule.OriginRate
	}
	if found && rule.Applies {
		p.AppliesST = true
		p.MVA = rule.MVA
		p.InternalRate = rule.InternalRate
		if useMultiplier {
			p.Multiplier = rule.Multiplier
		}
		if rule.HasCredit() {
			p.CreditRate = rule.CreditRate
			p.CreditType = rule.CreditType
		}
	}
	return compute(item, p)
}

// CalculateBatch calcula todas las líneas en el orden recibido. total es la suma de
// los ICMS-ST devidos ya redondeados de cada línea.
func (e *Engine) CalculateBatch(items []entity.TaxItem, originUF, destinationUF string, useMultiplier bool) ([]ComputationResult, decimal.Decimal) {
	results := make([]ComputationResult, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		r := e.Calculate(it, originUF, destinationUF, useMultiplier)
		results = append(results, r)
		total = total.Add(r.ICMSSTDevido)
	}
	return results, total
}

func compute(item entity.TaxItem, p ResolvedParameters) ComputationResult {
	productTotal := Round2(item.Quantity.Mul(item.UnitPrice))
	operationBase := Round2(productTotal.Add(item.Freight).Add(item.OtherCharges))

	exemptionBase := productTotal
	if p.IncludeFreight {
		exemptionBase = exemptionBase.Add(item.Freight)
	}
	if p.IncludeOther {
		exemptionBase = exemptionBase.Add(item.OtherCharges)
	}
	exemptionBase = Round2(exemptionBase)

	exemptedICMS := Round2(p.OriginRate.Mul(exemptionBase))
	netSale := Round2(operationBase.Sub(exemptedICMS))
	aggregated := Round2(p.MVA.Mul(netSale))
	stBase := Round2(netSale.Add(aggregated))
	theoretical := Round2(p.InternalRate.Mul(stBase))
	originComputed := exemptedICMS

	balance := decimal.Zero
	if p.AppliesST {
		balance = Round2(theoretical.Sub(originComputed))
	}
	// El multiplicador no se redondea; solo el valor retenido.
	retained := Round2(p.Multiplier.Mul(netSale))

	credit := decimal.Zero
	if p.CreditRate.IsPositive() {
		switch p.CreditType {
		case entity.CreditOnBase:
			credit = Round2(stBase.Mul(p.CreditRate))
		default:
			credit = Round2(theoretical.Mul(p.CreditRate))
		}
	}

	due := balance.Sub(credit)
	if due.IsNegative() {
		due = decimal.Zero
	}

	mvaType := MVATypeNoST
	if p.AppliesST {
		mvaType = MVATypeStandard
	}

	m := Memoria{
		Sequence:    item.Sequence,
		ProductCode: item.ProductCode,
		Description: item.Description,
		NCM:         item.NCM,
		CEST:        item.CEST,
		CFOP:        item.CFOP,
		CST:         item.CST,

		Quantity:     item.Quantity,
		UnitPrice:    item.UnitPrice,
		ProductTotal: productTotal,
		Freight:      Round2(item.Freight),
		IPI:          Round2(item.IPI),
		OtherCharges: Round2(item.OtherCharges),
		Discounts:    Round2(item.Discounts),

		DeclaredOriginICMS:   Round2(item.OriginICMS),
		DeclaredExemptedICMS: Round2(item.ExemptedICMS),

		OperationBase: operationBase,
		ExemptionBase: exemptionBase,
		ExemptedICMS:  exemptedICMS,
		NetSaleValue:  netSale,

		MVAType:         mvaType,
		MVAPercent:      Round2(p.MVA.Mul(hundred)),
		AggregatedValue: aggregated,
		STBase:          stBase,

		InternalRate:               p.InternalRate,
		TheoreticalDestinationICMS: theoretical,
		OriginICMSComputed:         originComputed,
		OutstandingBalance:         balance,

		Multiplier:   p.Multiplier,
		RetainedICMS: retained,

		PresumedCredit: credit,
		ICMSSTDue:      due,

		Parameters: p,
	}

	return ComputationResult{
		BaseCalculoST: stBase,
		ICMSSTDevido:  due,
		Memoria:       m,
	}
}
