package http

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/internal/application/dto"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// ICMSSTHandler maneja los cálculos de ICMS-ST y la consulta de corridas (protegido).
type ICMSSTHandler struct {
	svc *calculation.Service
}

// NewICMSSTHandler construye el handler.
func NewICMSSTHandler(svc *calculation.Service) *ICMSSTHandler {
	return &ICMSSTHandler{svc: svc}
}

// Calculate calcula un lote de líneas enviado en JSON.
// POST /api/icms-st/calculate
func (h *ICMSSTHandler) Calculate(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CalculateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.svc.Calculate(c.UserContext(), companyID, GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CalculateNFe calcula todas las líneas de una NF-e. El XML va como cuerpo crudo
// o como archivo "file" en multipart/form-data.
// POST /api/icms-st/nfe?use_multiplier=&include_freight_in_exemption=&include_other_in_exemption=&origin_uf=&destination_uf=
func (h *ICMSSTHandler) CalculateNFe(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	xml, err := readXML(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: err.Error()})
	}
	opts := dto.NFeOptions{
		OriginUF:                  c.Query("origin_uf"),
		DestinationUF:             c.Query("destination_uf"),
		UseMultiplier:             queryFlag(c, "use_multiplier"),
		IncludeFreightInExemption: queryFlag(c, "include_freight_in_exemption"),
		IncludeOtherInExemption:   queryFlag(c, "include_other_in_exemption"),
	}
	out, err := h.svc.CalculateNFe(c.UserContext(), companyID, GetUserID(c), xml, opts)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListRuns lista las corridas de la empresa.
// GET /api/icms-st/runs?limit=&offset=
func (h *ICMSSTHandler) ListRuns(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	out, err := h.svc.ListRuns(c.UserContext(), companyID, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetRun devuelve una corrida guardada con su memória completa.
// GET /api/icms-st/runs/:id
func (h *ICMSSTHandler) GetRun(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.svc.GetRun(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// DownloadPDF descarga la memória de cálculo de una corrida en PDF.
// GET /api/icms-st/runs/:id/pdf
func (h *ICMSSTHandler) DownloadPDF(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	pdfBytes, filename, err := h.svc.DownloadMemoriaPDF(c.UserContext(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(pdfBytes)
}

// ResolveRule muestra la regla que el motor vigente aplicaría.
// GET /api/icms-st/rules/resolve?ncm=&uf=&cest=&cfop=&cst=
func (h *ICMSSTHandler) ResolveRule(c *fiber.Ctx) error {
	q := dto.ResolveRuleRequest{
		NCM:           c.Query("ncm"),
		CEST:          c.Query("cest"),
		CFOP:          c.Query("cfop"),
		CST:           c.Query("cst"),
		DestinationUF: c.Query("uf"),
	}
	out, err := h.svc.ResolveRule(q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func readXML(c *fiber.Ctx) ([]byte, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("archivo 'file' requerido")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("no se pudo abrir el archivo")
		}
		defer f.Close()
		buf, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("no se pudo leer el archivo")
		}
		return buf, nil
	}
	body := c.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("XML de la NF-e requerido")
	}
	return append([]byte(nil), body...), nil
}

// queryFlag nil cuando el parámetro no viene o no es interpretable.
func queryFlag(c *fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, known := fiscal.ParseFlag(raw)
	if !known {
		return nil
	}
	return &v
}
