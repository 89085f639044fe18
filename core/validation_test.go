package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSearchRequest(t *testing.T) {
	from := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14)

	tests := []struct {
		name    string
		req     SearchRequest
		wantErr bool
	}{
		{"valid", SearchRequest{Term: "Kartellrecht", Country: "de", From: from, To: to}, false},
		{"industry only", SearchRequest{Industry: []string{"compliance"}, From: from, To: to}, false},
		{"country group", SearchRequest{Term: "x", Country: "dach", From: from, To: to}, false},
		{"missing window", SearchRequest{Term: "x"}, true},
		{"reversed window", SearchRequest{Term: "x", From: to, To: from}, true},
		{"bad country", SearchRequest{Term: "x", Country: "Germany", From: from, To: to}, true},
		{"no terms", SearchRequest{Industry: []string{"  "}, Country: "DE", From: from, To: to}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateSearchRequest(tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateSearchRequest_TermIsOptional(t *testing.T) {
	from := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	out, err := ValidateSearchRequest(SearchRequest{Country: "de", From: from, To: from.AddDate(0, 0, 14)})
	require.NoError(t, err)
	assert.Empty(t, out.Term)
	assert.Empty(t, out.Industry)
	assert.Equal(t, "DE", out.Country)
}

func TestValidateSearchRequest_Canonicalizes(t *testing.T) {
	from := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	req := SearchRequest{
		Term:     "  Kartell   recht ",
		Country:  " de ",
		From:     from,
		To:       from.AddDate(0, 0, 1),
		Industry: []string{" legal  tech ", ""},
	}

	out, err := ValidateSearchRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "Kartell recht", out.Term)
	assert.Equal(t, "DE", out.Country)
	assert.Equal(t, []string{"legal tech"}, out.Industry)
	assert.Equal(t, " legal  tech ", req.Industry[0], "input must not be mutated")
}
