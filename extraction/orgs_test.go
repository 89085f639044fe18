package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripLegalSuffixes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Siemens AG", "Siemens"},
		{"Müller & Co. KG", "Müller"},
		{"Acme Holdings GmbH & Co. KG", "Acme Holdings"},
		{"Bird & Bird LLP", "Bird & Bird"},
		{"Deloitte Touche Tohmatsu Limited", "Deloitte Touche Tohmatsu"},
		{"Nestlé S.A.", "Nestlé"},
		{"Example S.à r.l.", "Example"},
		{"Gleiss Lutz", "Gleiss Lutz"},
		{"GmbH", "GmbH"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, stripLegalSuffixes(tt.in))
		})
	}
}

func TestTokenOverlap(t *testing.T) {
	assert.Equal(t, 1.0, tokenOverlap(orgTokens(""), orgTokens("")))
	assert.Equal(t, unknownOrgOverlap, tokenOverlap(orgTokens("Google"), orgTokens("")))
	assert.Equal(t, 1.0, tokenOverlap(orgTokens("Google"), orgTokens("Google Cloud")))
	assert.Equal(t, 0.5, tokenOverlap(orgTokens("Gleiss Lutz"), orgTokens("Lutz Abel")))
	assert.Equal(t, 0.0, tokenOverlap(orgTokens("Siemens"), orgTokens("Bosch")))
}
