package util

import (
	"errors"
	"strings"
	"unicode"
)

// ErrCPFInvalido indica CPF com tamanho, sequência ou dígito verificador incorretos.
var ErrCPFInvalido = errors.New("cpf inválido")

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obrigatório")
	}
	return nil
}

// NormalizeCity devolve a forma canônica usada como chave de cidade.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}

// OnlyDigits remove pontuação de documentos.
func OnlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCPF confere tamanho e os dois dígitos verificadores.
// Aceita o documento com ou sem máscara.
func ValidateCPF(cpf string) error {
	digits := OnlyDigits(cpf)
	if len(digits) != 11 {
		return ErrCPFInvalido
	}
	if strings.Count(digits, digits[:1]) == 11 {
		return ErrCPFInvalido
	}

	nums := make([]int, 11)
	for i := range digits {
		nums[i] = int(digits[i] - '0')
	}
	if checkDigit(nums[:9]) != nums[9] || checkDigit(nums[:10]) != nums[10] {
		return ErrCPFInvalido
	}
	return nil
}

func checkDigit(nums []int) int {
	weight := len(nums) + 1
	sum := 0
	for i, n := range nums {
		sum += n * (weight - i)
	}
	d := (sum * 10) % 11
	if d == 10 {
		return 0
	}
	return d
}
