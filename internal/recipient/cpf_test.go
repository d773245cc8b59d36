package recipient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCPF(t *testing.T) {
	require.Equal(t, "52998224725", NormalizeCPF("529.982.247-25"))
	require.Equal(t, "52998224725", NormalizeCPF("52998224725"))
	require.Equal(t, "", NormalizeCPF("abc.def-gh"))
}

func TestValidCPF(t *testing.T) {
	tests := []struct {
		name  string
		cpf   string
		valid bool
	}{
		{"valid bare", "52998224725", true},
		{"valid formatted", "529.982.247-25", true},
		{"wrong first check digit", "52998224735", false},
		{"wrong second check digit", "52998224726", false},
		{"too short", "5299822472", false},
		{"too long", "529982247255", false},
		{"repeated digits pass checksum but are invalid", "11111111111", false},
		{"all zeros", "00000000000", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, ValidCPF(tt.cpf))
		})
	}
}

func TestValidLocation(t *testing.T) {
	require.True(t, ValidLocation("A", "1"))
	require.True(t, ValidLocation("B", "8"))
	require.True(t, ValidLocation("C", "Seguro"))
	require.True(t, ValidLocation("A", "Triagem"))
	require.True(t, ValidLocation("D", "Trabalhadores"))
	require.False(t, ValidLocation("A", "7"))
	require.False(t, ValidLocation("D", "4"))
	require.False(t, ValidLocation("E", "1"))
	require.False(t, ValidLocation("", ""))
}
