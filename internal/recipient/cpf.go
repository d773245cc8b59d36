package recipient

import "strings"

// NormalizeCPF strips formatting characters from a CPF, keeping digits only.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF verifies the two check digits of a Brazilian CPF. Accepts
// formatted ("000.000.000-00") or bare input. Repeated-digit sequences are
// rejected even though their check digits match.
func ValidCPF(cpf string) bool {
	cpf = NormalizeCPF(cpf)
	if len(cpf) != 11 {
		return false
	}

	allSame := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	digit := func(i int) int { return int(cpf[i] - '0') }

	sum := 0
	for i := 0; i < 9; i++ {
		sum += digit(i) * (10 - i)
	}
	check1 := 0
	if rest := sum % 11; rest >= 2 {
		check1 = 11 - rest
	}
	if check1 != digit(9) {
		return false
	}

	sum = 0
	for i := 0; i < 10; i++ {
		sum += digit(i) * (11 - i)
	}
	check2 := 0
	if rest := sum % 11; rest >= 2 {
		check2 = 11 - rest
	}
	return check2 == digit(10)
}
