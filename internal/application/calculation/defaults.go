package calculation

import (
	"strings"

	"github.com/jhoicas/oraculo-icms/internal/domain/entity"
	"github.com/jhoicas/oraculo-icms/internal/domain/icmsst"
	"github.com/jhoicas/oraculo-icms/pkg/fiscal"
)

// LegacyDefaults arma los parámetros globales a partir de los valores de configuración.
// Valores > 1 se leen como porcentaje ("7" = 7%); vacíos conservan el default del motor.
func LegacyDefaults(originRate, mva, internalRate, multiplier string) icmsst.Defaults {
	d := icmsst.DefaultParameters()
	set := func(dst *entity.Rate, raw string) {
		if strings.TrimSpace(raw) == "" {
			return
		}
		*dst = entity.LegacyRate(fiscal.ParseDecimal(raw))
	}
	set(&d.OriginRate, originRate)
	set(&d.MVA, mva)
	set(&d.InternalRate, internalRate)
	set(&d.Multiplier, multiplier)
	return d
}
