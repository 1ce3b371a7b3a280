package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{666, "$6.66"},
		{1234, "$12.34"},
		{123456, "$1,234.56"},
		{123456789, "$1,234,567.89"},
		{-1234, "-$12.34"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCurrency(tt.cents))
	}
}

func TestMajorCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(1234), MajorToCents(12.34))
	assert.Equal(t, 12.34, CentsToMajor(1234))

	// Float noise from form parsing rounds to the nearest cent.
	assert.Equal(t, int64(1000), MajorToCents(9.999999999))
	assert.Equal(t, int64(-1234), MajorToCents(-12.34))
	assert.Equal(t, int64(0), MajorToCents(0))
}

func TestInvoiceStatusValid(t *testing.T) {
	assert.True(t, InvoiceStatusPending.Valid())
	assert.True(t, InvoiceStatusPaid.Valid())
	assert.False(t, InvoiceStatus("overdue").Valid())
	assert.False(t, InvoiceStatus("").Valid())
}
