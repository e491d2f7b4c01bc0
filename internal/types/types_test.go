package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		"zed123":     "ZED123",
		"  Zed123\n": "ZED123",
		"ZED123":     "ZED123",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCode(in), "%q", in)
	}
}
