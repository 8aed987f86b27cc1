package dto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/oraculo-icms/internal/application/dto"
)

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name          string
		in            dto.PageRequest
		limit, offset int
	}{
		{"ceros usan el default", dto.PageRequest{}, dto.DefaultPageLimit, 0},
		{"límite acotado", dto.PageRequest{Limit: 500, Offset: 40}, dto.MaxPageLimit, 40},
		{"offset negativo", dto.PageRequest{Limit: 10, Offset: -3}, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var in struct {
		Quantity  dto.Amount `json:"quantity"`
		UnitPrice dto.Amount `json:"unit_price"`
		Freight   dto.Amount `json:"freight"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"quantity":1e30000000,"unit_price":"1.234,56","freight":null}`), &in))

	assert.True(t, in.Quantity.IsZero(), "exponente fuera de rango vale cero")
	assert.Equal(t, "1234.56", in.UnitPrice.String())
	assert.True(t, in.Freight.IsZero())
}
