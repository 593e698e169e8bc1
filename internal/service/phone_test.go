package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKenyanPhone(t *testing.T) {
	tests := []struct {
		in        string
		valid     bool
		formatted string
	}{
		{"0712345678", true, "+254712345678"},
		{"0112345678", true, "+254112345678"},
		{"712345678", true, "+254712345678"},
		{"254712345678", true, "+254712345678"},
		{"+254 712 345 678", true, "+254712345678"},
		{"(0712) 345-678", true, "+254712345678"},
		{"0812345678", false, "+254812345678"},
		{"07123", false, "07123"},
		{"+14155550100", false, "+14155550100"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidKenyanPhone(tt.in))
			assert.Equal(t, tt.formatted, FormatKenyanPhone(tt.in))
		})
	}
}

func TestSamePhone(t *testing.T) {
	assert.True(t, SamePhone("0712345678", "+254712345678"))
	assert.True(t, SamePhone("254 712 345 678", "712345678"))
	assert.False(t, SamePhone("0712345678", "0712345679"))
	assert.False(t, SamePhone("", ""))
}

func TestLastDigits(t *testing.T) {
	assert.Equal(t, "5678", lastDigits("+254 712 345 678", 4))
	assert.Equal(t, "12", lastDigits("12", 4))
	assert.Equal(t, 10, countDigits("0712-345-678"))
}
