package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		input    string
		expected *float64
	}{
		{"R$ 1.234,56", ptr(1234.56)},
		{"R$ 3,500", ptr(3500)},
		{"R$ 85.000,00", ptr(85000)},
		{"1.234.567,89", ptr(1234567.89)},
		{"3,5", ptr(3.5)},
		{"12,50", ptr(12.5)},
		{"1,234,567", ptr(1234567)},
		{"12.5", ptr(12.5)},
		{"999.99", ptr(999.99)},
		{"1.000", ptr(1000)},
		{"1234.56", ptr(123456)},
		{"85000", ptr(85000)},
		{"-R$ 150,00", ptr(-150)},
		{"(2.500,00)", ptr(-2500)},
		{"US$ 10", ptr(10)},
		{"r$ 200", ptr(200)},
		{"abc", nil},
		{"", nil},
		{"R$", nil},
		{"12abc", nil},
		{"1,2,3,4.5", nil},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := ParseCurrency(tc.input)
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tc.expected, *got, 1e-9)
		})
	}
}

func TestParseCurrency_IsPure(t *testing.T) {
	for _, in := range []string{"R$ 1.234,56", "abc", "3,500"} {
		assert.Equal(t, ParseCurrency(in), ParseCurrency(in))
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"15/mar/24", "2024-03-15"},
		{"5/Fev/99", "1999-02-05"},
		{"01/DEZ/50", "2050-12-01"},
		{"01-aug-51", "1951-08-01"},
		{"15/03/2024", "2024-03-15"},
		{"1/2/2024", "2024-02-01"},
		{"2024-03-15", "2024-03-15"},
		{"2024-03-15T10:00:00Z", "2024-03-15"},
		{" 15/03/2024 ", "2024-03-15"},
		{"31/02/2024", ""},
		{"15/xyz/24", ""},
		{"13/13/2024", ""},
		{"March 15", ""},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := ParseDate(tc.input)
			if tc.expected == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.expected, *got)
		})
	}
}

func TestParseProjectClient(t *testing.T) {
	tests := []struct {
		input    string
		expected ProjectClient
	}{
		{"LF - Livia Assan", ProjectClient{Client: "Livia Assan", Project: "LF"}},
		{"AB12 - Maria", ProjectClient{Client: "Maria", Project: "AB12"}},
		{"Joao Silva - Casa de Praia", ProjectClient{Client: "Joao Silva", Project: "Casa de Praia"}},
		{"ABCDEF - Maria", ProjectClient{Client: "ABCDEF", Project: "Maria"}},
		{"Lf - Maria", ProjectClient{Client: "Lf", Project: "Maria"}},
		{"Residencia  Alves", ProjectClient{Project: "Residencia Alves"}},
		{"A-B", ProjectClient{Project: "A-B"}},
		{"", ProjectClient{}},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseProjectClient(tc.input))
		})
	}

	assert.True(t, HasProjectSeparator("LF  -  Livia"))
	assert.False(t, HasProjectSeparator("LF-Livia"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a \t b\n\nc  "))
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText("   "))
}

func TestFoldHeader(t *testing.T) {
	assert.Equal(t, "descricao", FoldHeader(" Descrição "))
	assert.Equal(t, "data de vencimento", FoldHeader("DATA_DE_VENCIMENTO"))
	assert.Equal(t, "signed date", FoldHeader("signedDate"))
	assert.Equal(t, "invoice number", FoldHeader("invoiceNumber"))
	assert.Equal(t, "acao", Fold("Ação"))
}

func TestToTime(t *testing.T) {
	tm, ok := ToTime("2024-03-15")
	require.True(t, ok)
	assert.Equal(t, "2024-03-15", FormatDate(tm))

	_, ok = ToTime("15/03/2024")
	assert.False(t, ok)
}

func ptr(f float64) *float64 {
	return &f
}
