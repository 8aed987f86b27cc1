package http

import (
	"bytes"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
	"github.com/jhoicas/oraculo-icms/internal/application/dto"
)

// AdminHandler administración de las matrices de reglas (rol admin).
type AdminHandler struct {
	uc *calculation.MatricesUseCase
}

// NewAdminHandler construye el handler.
func NewAdminHandler(uc *calculation.MatricesUseCase) *AdminHandler {
	return &AdminHandler{uc: uc}
}

// Status resumen del snapshot vigente.
// GET /api/admin/matrices
func (h *AdminHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.uc.Status())
}

// Reload reconstruye el motor desde la fuente. Si falla responde 503 y el motor anterior sigue activo.
// POST /api/admin/matrices/reload
func (h *AdminHandler) Reload(c *fiber.Ctx) error {
	out, err := h.uc.Reload(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Import reemplaza la matriz :name con el CSV del cuerpo y recarga.
// POST /api/admin/matrices/import/:name
func (h *AdminHandler) Import(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "CSV requerido"})
	}
	out, err := h.uc.Import(c.UserContext(), c.Params("name"), bytes.NewReader(body))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
