package nfe

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// ErrInvalidNFe agrupa errores que impiden calcular sobre el documento.
var ErrInvalidNFe = errors.New("NF-e inválida para cálculo de ICMS-ST")

// tolerancia para comparar la suma de las líneas con el total declarado
var totalsTolerance = decimal.RequireFromString("0.05")

// ValidateDocument verifica lo mínimo para calcular: líneas presentes y UFs con forma válida.
func ValidateDocument(doc *entity.NFeDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", ErrInvalidNFe)
	}
	var errs []error
	if len(doc.Items) == 0 {
		errs = append(errs, errors.New("el documento no tiene líneas (det)"))
	}
	if uf := doc.Header.EmitterUF; uf != "" && !fiscal.WellFormedUF(uf) {
		errs = append(errs, fmt.Errorf("UF del emitente inválida: %q", uf))
	}
	if uf := doc.Header.RecipientUF; uf != "" && !fiscal.WellFormedUF(uf) {
		errs = append(errs, fmt.Errorf("UF del destinatario inválida: %q", uf))
	}
	for i, it := range doc.Items {
		if fiscal.OnlyDigits(it.NCM) == "" {
			errs = append(errs, fmt.Errorf("línea %d sin NCM", i+1))
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidNFe}, errs...)...)
	}
	return nil
}

// Inconsistencies observaciones que no impiden el cálculo: chave, CNPJ del emitente
// y totales de productos. Textos en portugués para mostrarse al usuario.
func Inconsistencies(doc *entity.NFeDocument) []string {
	if doc == nil {
		return nil
	}
	var out []string
	h := doc.Header

	if h.AccessKey != "" {
		key, err := ParseAccessKey(h.AccessKey)
		switch {
		case err != nil:
			out = append(out, "chave de acesso inválida: "+err.Error())
		default:
			if h.EmitterUF != "" && key.UF != fiscal.NormalizeUF(h.EmitterUF) {
				out = append(out, fmt.Sprintf("UF da chave (%s) difere da UF do emitente (%s)", key.UF, h.EmitterUF))
			}
			if h.EmitterCNPJ != "" && key.CNPJ != fiscal.OnlyDigits(h.EmitterCNPJ) {
				out = append(out, "CNPJ da chave difere do CNPJ do emitente")
			}
		}
	}
	if h.EmitterCNPJ != "" {
		if err := fiscal.ValidateCNPJ(h.EmitterCNPJ); err != nil {
			out = append(out, "CNPJ do emitente: "+err.Error())
		}
	}

	if doc.Totals.Products.IsPositive() {
		sum := decimal.Zero
		for _, it := range doc.Items {
			sum = sum.Add(it.Quantity.Mul(it.UnitPrice).Round(2))
		}
		if sum.Sub(doc.Totals.Products).Abs().GreaterThan(totalsTolerance) {
			out = append(out, fmt.Sprintf("soma dos produtos (%s) difere de vProd do total (%s)",
				sum.StringFixed(2), doc.Totals.Products.StringFixed(2)))
		}
	}
	for _, it := range doc.Items {
		if it.CST != "" && !fiscal.IsSTSituation(it.CST) && it.CEST != "" {
			out = append(out, fmt.Sprintf("item %d informa CEST com CST %s sem substituição tributária", it.Sequence, it.CST))
		}
	}
	return out
}
