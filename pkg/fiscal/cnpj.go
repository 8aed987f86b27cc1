package fiscal

import "fmt"

// pesos módulo 11 del CNPJ (Receita Federal). El primer dígito verificador usa
// los 12 primeros dígitos; el segundo usa los 13.
var (
	cnpjWeights1 = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidateCNPJ valida los dos dígitos verificadores de un CNPJ con o sin máscara.
// cnpj puede ser "11.222.333/0001-81" o "11222333000181".
func ValidateCNPJ(cnpj string) error {
	digits := OnlyDigits(cnpj)
	if len(digits) != 14 {
		return fmt.Errorf("fiscal: CNPJ debe tener 14 dígitos, se encontraron %d", len(digits))
	}
	allEqual := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return fmt.Errorf("fiscal: CNPJ con dígitos repetidos")
	}
	d1 := cnpjDigit(digits[:12], cnpjWeights1[:])
	d2 := cnpjDigit(digits[:12]+string(d1), cnpjWeights2[:])
	if digits[12] != d1 || digits[13] != d2 {
		return fmt.Errorf("fiscal: dígitos verificadores del CNPJ inválidos: esperado %c%c, recibido %s", d1, d2, digits[12:])
	}
	return nil
}

func cnpjDigit(base string, weights []int) byte {
	var sum int
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + (11 - r))
}
