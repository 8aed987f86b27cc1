// Package nfe lee el XML de la NF-e (modelo 55, leiaute 4.00) y lo normaliza a
// entity.NFeDocument para el motor de ICMS-ST.
package nfe

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/oraculo-icms/internal/domain"
	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// Parser adaptador de entrada XML -> NFeDocument.
type Parser struct{}

// NewParser construye el parser.
func NewParser() *Parser { return &Parser{} }

// Parse interpreta una NF-e sola o dentro de nfeProc. Flete y otras despesas que
// solo vienen en el total (ICMSTot) se prorratean entre las líneas por vProd.
func (p *Parser) Parse(b []byte) (*entity.NFeDocument, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, fmt.Errorf("%w: xml mal formado: %v", domain.ErrInvalidDocument, err)
	}
	inf := doc.FindElement("//infNFe")
	if inf == nil {
		return nil, fmt.Errorf("%w: no se encontró infNFe", domain.ErrInvalidDocument)
	}

	out := &entity.NFeDocument{
		Header: parseHeader(doc, inf),
		Totals: parseTotals(inf.FindElement("./total/ICMSTot")),
	}

	dets := inf.SelectElements("det")
	weights := make([]decimal.Decimal, 0, len(dets))
	itemFreight, itemOther := decimal.Zero, decimal.Zero
	for i, det := range dets {
		it, vProd := parseItem(det, i)
		out.Items = append(out.Items, it)
		weights = append(weights, vProd)
		itemFreight = itemFreight.Add(it.Freight)
		itemOther = itemOther.Add(it.OtherCharges)
	}

	if itemFreight.IsZero() && out.Totals.Freight.IsPositive() {
		for i, v := range allocate(out.Totals.Freight, weights) {
			out.Items[i].Freight = v
		}
	}
	if itemOther.IsZero() && out.Totals.OtherCharges.IsPositive() {
		for i, v := range allocate(out.Totals.OtherCharges, weights) {
			out.Items[i].OtherCharges = v
		}
	}
	return out, nil
}

func parseHeader(doc *etree.Document, inf *etree.Element) entity.NFeHeader {
	key := fiscal.OnlyDigits(inf.SelectAttrValue("Id", ""))
	if key == "" {
		key = fiscal.OnlyDigits(text(doc.FindElement("//protNFe/infProt"), "chNFe"))
	}
	ide := inf.SelectElement("ide")
	emit := inf.SelectElement("emit")
	dest := inf.SelectElement("dest")

	recipientDoc := text(dest, "CNPJ")
	if recipientDoc == "" {
		recipientDoc = text(dest, "CPF")
	}
	issued := text(ide, "dhEmi")
	if issued == "" {
		issued = text(ide, "dEmi") // leiaute 2.00
	}
	return entity.NFeHeader{
		AccessKey:         key,
		Model:             text(ide, "mod"),
		Series:            text(ide, "serie"),
		Number:            text(ide, "nNF"),
		IssuedAt:          issued,
		NatureOfOperation: text(ide, "natOp"),
		EmitterName:       text(emit, "xNome"),
		EmitterCNPJ:       text(emit, "CNPJ"),
		EmitterIE:         text(emit, "IE"),
		EmitterUF:         fiscal.NormalizeUF(text(emit, "enderEmit/UF")),
		RecipientName:     text(dest, "xNome"),
		RecipientDoc:      recipientDoc,
		RecipientIE:       text(dest, "IE"),
		RecipientUF:       fiscal.NormalizeUF(text(dest, "enderDest/UF")),
		FreightMode:       text(inf.SelectElement("transp"), "modFrete"),
	}
}

func parseTotals(tot *etree.Element) entity.NFeTotals {
	return entity.NFeTotals{
		Products:     amount(tot, "vProd"),
		Freight:      amount(tot, "vFrete"),
		Insurance:    amount(tot, "vSeg"),
		Discounts:    amount(tot, "vDesc"),
		OtherCharges: amount(tot, "vOutro"),
		IPI:          amount(tot, "vIPI"),
		ICMS:         amount(tot, "vICMS"),
		ICMSST:       amount(tot, "vST"),
		ExemptedICMS: amount(tot, "vICMSDeson"),
		Invoice:      amount(tot, "vNF"),
	}
}

// parseItem devuelve la línea y su vProd (peso del prorrateo).
func parseItem(det *etree.Element, pos int) (entity.TaxItem, decimal.Decimal) {
	prod := det.SelectElement("prod")
	seq, err := strconv.Atoi(det.SelectAttrValue("nItem", ""))
	if err != nil || seq <= 0 {
		seq = pos + 1
	}

	it := entity.TaxItem{
		Sequence:     seq,
		ProductCode:  text(prod, "cProd"),
		Description:  text(prod, "xProd"),
		NCM:          text(prod, "NCM"),
		CEST:         text(prod, "CEST"),
		CFOP:         text(prod, "CFOP"),
		Quantity:     amount(prod, "qCom"),
		UnitPrice:    amount(prod, "vUnCom"),
		Freight:      amount(prod, "vFrete"),
		OtherCharges: amount(prod, "vOutro"),
		Discounts:    amount(prod, "vDesc"),
	}

	if imposto := det.SelectElement("imposto"); imposto != nil {
		if icms := imposto.SelectElement("ICMS"); icms != nil {
			// un único grupo hijo: ICMS00, ICMS10, ..., ICMSSN500, ICMSSN900
			if groups := icms.ChildElements(); len(groups) > 0 {
				g := groups[0]
				it.CST = text(g, "CST")
				if it.CST == "" {
					it.CST = text(g, "CSOSN")
				}
				it.OriginICMS = amount(g, "vICMS")
				it.ExemptedICMS = amount(g, "vICMSDeson")
				it.ExemptionReason = text(g, "motDesICMS")
			}
		}
		it.IPI = amount(imposto, "IPI/IPITrib/vIPI")
	}

	vProd := amount(prod, "vProd")
	if vProd.IsZero() {
		vProd = it.Quantity.Mul(it.UnitPrice).Round(2)
	}
	return it, vProd
}

// text devuelve el texto del primer elemento en path relativo a el, o "".
func text(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	c := el.FindElement("./" + path)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

func amount(el *etree.Element, path string) decimal.Decimal {
	return fiscal.ParseDecimal(text(el, path))
}

// charsetReader acepta NF-e antiguas declaradas en ISO-8859-1 / windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	case "UTF-8", "UTF8", "":
		return input, nil
	}
	return nil, fmt.Errorf("codificación no soportada: %s", label)
}
