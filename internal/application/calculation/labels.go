package calculation

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindMoney
	kindQuantity
	kindRate    // fracción mostrada como porcentaje
	kindPercent // ya en porcentaje
)

type memoriaLabel struct {
	key   string
	label string
	kind  fieldKind
	get   func(m icmsst.Memoria) any
}

// Orden y rótulos de la memória de cálculo tal como se presentan al contribuyente.
var memoriaLabels = []memoriaLabel{
	{"sequence", "Item", kindText, func(m icmsst.Memoria) any { return strconv.Itoa(m.Sequence) }},
	{"product_code", "Código do produto", kindText, func(m icmsst.Memoria) any { return m.ProductCode }},
	{"description", "Descrição", kindText, func(m icmsst.Memoria) any { return m.Description }},
	{"ncm", "NCM", kindText, func(m icmsst.Memoria) any { return m.NCM }},
	{"cest", "CEST", kindText, func(m icmsst.Memoria) any { return m.CEST }},
	{"cfop", "CFOP", kindText, func(m icmsst.Memoria) any { return m.CFOP }},
	{"cst", "CST/CSOSN", kindText, func(m icmsst.Memoria) any { return m.CST }},
	{"quantity", "Quantidade", kindQuantity, func(m icmsst.Memoria) any { return m.Quantity }},
	{"unit_price", "Valor unitário", kindMoney, func(m icmsst.Memoria) any { return m.UnitPrice }},
	{"product_total", "Valor total do produto", kindMoney, func(m icmsst.Memoria) any { return m.ProductTotal }},
	{"freight", "Frete", kindMoney, func(m icmsst.Memoria) any { return m.Freight }},
	{"ipi", "IPI", kindMoney, func(m icmsst.Memoria) any { return m.IPI }},
	{"other_charges", "Despesas acessórias", kindMoney, func(m icmsst.Memoria) any { return m.OtherCharges }},
	{"operation_base", "Base da operação", kindMoney, func(m icmsst.Memoria) any { return m.OperationBase }},
	{"exemption_base", "Base do ICMS desonerado", kindMoney, func(m icmsst.Memoria) any { return m.ExemptionBase }},
	{"origin_rate", "Alíquota de origem", kindRate, func(m icmsst.Memoria) any { return m.Parameters.OriginRate }},
	{"exempted_icms", "ICMS desonerado", kindMoney, func(m icmsst.Memoria) any { return m.ExemptedICMS }},
	{"net_sale_value", "Venda com desconto do ICMS", kindMoney, func(m icmsst.Memoria) any { return m.NetSaleValue }},
	{"mva_type", "Tipo de MVA", kindText, func(m icmsst.Memoria) any { return m.MVAType }},
	{"mva_percent", "MVA (%)", kindPercent, func(m icmsst.Memoria) any { return m.MVAPercent }},
	{"aggregated_value", "Valor agregado", kindMoney, func(m icmsst.Memoria) any { return m.AggregatedValue }},
	{"st_base", "Base de cálculo ST", kindMoney, func(m icmsst.Memoria) any { return m.STBase }},
	{"internal_rate", "Alíquota interna (destino)", kindRate, func(m icmsst.Memoria) any { return m.InternalRate }},
	{"theoretical_destination_icms", "ICMS teórico no destino", kindMoney, func(m icmsst.Memoria) any { return m.TheoreticalDestinationICMS }},
	{"origin_icms_computed", "ICMS de origem calculado", kindMoney, func(m icmsst.Memoria) any { return m.OriginICMSComputed }},
	{"outstanding_balance", "Saldo devedor", kindMoney, func(m icmsst.Memoria) any { return m.OutstandingBalance }},
	{"multiplier", "Multiplicador SEFAZ", kindRate, func(m icmsst.Memoria) any { return m.Multiplier }},
	{"retained_icms", "ICMS retido (multiplicador)", kindMoney, func(m icmsst.Memoria) any { return m.RetainedICMS }},
	{"presumed_credit", "Crédito presumido", kindMoney, func(m icmsst.Memoria) any { return m.PresumedCredit }},
	{"icms_st_due", "ICMS-ST devido", kindMoney, func(m icmsst.Memoria) any { return m.ICMSSTDue }},
	{"rule_source", "Matriz aplicada", kindText, func(m icmsst.Memoria) any { return ruleLabel(m.Parameters) }},
}

// MemoriaFields devolve la memória en el orden de presentación con valores en formato pt-BR.
// Los campos de texto vacíos se omiten.
func MemoriaFields(m icmsst.Memoria) []dto.MemoriaField {
	out := make([]dto.MemoriaField, 0, len(memoriaLabels))
	for _, l := range memoriaLabels {
		v := formatValue(l.kind, l.get(m))
		if v == "" {
			continue
		}
		out = append(out, dto.MemoriaField{Key: l.key, Label: l.label, Value: v})
	}
	return out
}

func formatValue(kind fieldKind, v any) string {
	switch kind {
	case kindText:
		s, _ := v.(string)
		return s
	}
	d, ok := v.(decimal.Decimal)
	if !ok {
		return ""
	}
	switch kind {
	case kindMoney:
		return "R$ " + fiscal.FormatBRL(d)
	case kindQuantity:
		return fiscal.FormatQuantity(d)
	case kindRate:
		return fiscal.FormatPercent(d)
	case kindPercent:
		return fiscal.FormatBRL(d) + "%"
	}
	return d.String()
}

func ruleLabel(p icmsst.ResolvedParameters) string {
	switch {
	case p.RuleSource == "":
		return "Sem regra (parâmetros zerados)"
	case !p.AppliesST:
		return p.RuleSource + " / NCM " + p.MatchedCode + " (não sujeito a ST)"
	default:
		return p.RuleSource + " / NCM " + p.MatchedCode
	}
}
