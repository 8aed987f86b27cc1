package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrInvalidDocument  = errors.New("documento fiscal inválido")
	ErrUnauthorized     = errors.New("no autorizado")
	ErrForbidden        = errors.New("acceso denegado")
	ErrRulesUnavailable = errors.New("matrices de reglas no disponibles")

	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
)
