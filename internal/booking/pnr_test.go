package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPNR_Format(t *testing.T) {
	for i := 0; i < 500; i++ {
		assert.True(t, ValidPNR(NewPNR()))
	}
}

func TestValidPNR(t *testing.T) {
	assert.True(t, ValidPNR("ABC123"))
	assert.False(t, ValidPNR("abc123"))
	assert.False(t, ValidPNR("AB1234"))
	assert.False(t, ValidPNR("ABC12"))
	assert.Equal(t, "ABC123", NormalizePNR("  abc123 "))
}
