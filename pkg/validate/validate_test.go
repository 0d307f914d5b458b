package validate_test

import (
	"testing"

	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/validate"
	"github.com/stretchr/testify/assert"
)

func TestCedula_Valid(t *testing.T) {
	valid := []string{
		"1710034065",
		"0602910945",
		"1717171712",
		"0926687856",
		"2200000004",
	}
	for _, c := range valid {
		assert.True(t, validate.Cedula(c), "expected %s to be valid", c)
	}
}

func TestCedula_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cedula string
	}{
		{"empty", ""},
		{"too short", "171003406"},
		{"too long", "17100340655"},
		{"non numeric", "17100340a5"},
		{"bad check digit", "1710034066"},
		{"province zero", "0010034065"},
		{"province too high", "2510034065"},
		{"third digit six or more", "1760034065"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, validate.Cedula(tt.cedula))
		})
	}
}

func TestCedula_CheckDigitZero(t *testing.T) {
	// Sum multiple of ten exercises the (10 - sum%10) % 10 wrap.
	assert.True(t, validate.Cedula("1800000000"))
}

func TestPlate(t *testing.T) {
	assert.True(t, validate.Plate("ABC1234"))
	assert.True(t, validate.Plate("ABC-1234"))
	assert.True(t, validate.Plate("PBX123"))

	assert.False(t, validate.Plate("abc1234"))
	assert.False(t, validate.Plate("AB1234"))
	assert.False(t, validate.Plate("ABCD1234"))
	assert.False(t, validate.Plate("ABC12345"))
	assert.False(t, validate.Plate(""))
}

func TestEmail(t *testing.T) {
	assert.True(t, validate.Email("agente@oland.ec"))
	assert.True(t, validate.Email("first.last+tag@example.com"))

	assert.False(t, validate.Email("not-an-email"))
	assert.False(t, validate.Email("missing@tld"))
	assert.False(t, validate.Email("@example.com"))
}
