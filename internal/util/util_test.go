package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIDMonotonic(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

func TestNormalizeMobile(t *testing.T) {
	cases := map[string]string{
		"+91 98765-43210": "9876543210",
		"09876543210":     "9876543210",
		"919876543210":    "9876543210",
		"9876543210":      "9876543210",
		"12345":           "12345",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeMobile(in), in)
	}
	assert.True(t, ValidMobile("9876543210"))
	assert.False(t, ValidMobile("1234567890"))
	assert.True(t, TenDigits("1234567890"))
	assert.False(t, TenDigits("12345abcde"))
}

func TestPAN(t *testing.T) {
	assert.Equal(t, "ABCDE1234F", NormalizePAN(" abcde 1234f "))
	assert.True(t, ValidPAN("ABCDE1234F"))
	assert.False(t, ValidPAN("ABCD1234F"))
}

func TestIFSCAndFSSAI(t *testing.T) {
	assert.True(t, ValidIFSC(NormalizeIFSC("sbin0001234")))
	assert.False(t, ValidIFSC("SBIN1001234"))

	assert.Equal(t, "12345678901234", NormalizeFSSAI("ka12345678901234"))
	assert.Equal(t, "12345678901234", NormalizeFSSAI("12345678901234"))
	assert.True(t, ValidFSSAI("12345678901234"))
	assert.False(t, ValidFSSAI("1234"))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "a@b.in", NormalizeEmail(" A@B.in "))
	assert.True(t, ValidEmail("a@b.in"))
	assert.False(t, ValidEmail("a@b"))
	assert.True(t, IsEmail("a@b.in"))
	assert.False(t, IsEmail("9876543210"))
}
