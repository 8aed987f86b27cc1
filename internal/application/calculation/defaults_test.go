package calculation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/oraculo-icms/internal/application/calculation"
)

func TestLegacyDefaults(t *testing.T) {
	d := calculation.LegacyDefaults("12", "0,4", "", "19.47")
	assert.True(t, dec("0.12").Equal(d.OriginRate.Fraction()), "12 es porcentaje")
	assert.True(t, dec("0.4").Equal(d.MVA.Fraction()), "coma decimal y fracción")
	assert.True(t, dec("0.20").Equal(d.InternalRate.Fraction()), "vacío conserva el default")
	assert.True(t, dec("0.1947").Equal(d.Multiplier.Fraction()))
}
