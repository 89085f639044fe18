package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Müller", "muller"},
		{"  Andrea   MÜLLER ", "andrea muller"},
		{"Straße", "strasse"},
		{"Genève", "geneve"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), tt.in)
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"kartellrecht", "konferenz", "2025"}, Tokens("Kartellrecht-Konferenz, 2025!"))
	assert.Empty(t, Tokens(" -- "))
}
