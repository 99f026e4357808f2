package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidStatus(t *testing.T) {
	for _, s := range Pipeline {
		assert.True(t, IsValidStatus(s), "pipeline status %q should be valid", s)
	}

	assert.False(t, IsValidStatus(""))
	assert.False(t, IsValidStatus("Closed"))
	assert.False(t, IsValidStatus("new"))
}

func TestIsValidProduct(t *testing.T) {
	for _, p := range Products {
		assert.True(t, IsValidProduct(p), "product %q should be valid", p)
	}

	assert.False(t, IsValidProduct(""))
	assert.False(t, IsValidProduct("5 kW"))
}

func TestSaleLineTotal(t *testing.T) {
	line := SaleLine{Quantity: 3, UnitPriceMinor: 250000}
	assert.Equal(t, int64(750000), line.Total())

	empty := SaleLine{}
	assert.Zero(t, empty.Total())
}
