// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"strings"
)

// ValidateSearchRequest validates a SearchRequest and returns its canonical form.
//
// Validation rules:
//   - From and To must be set, and From must not be after To
//   - Country, when present, must be a 2-letter code or a known country group
//   - Term and Industry are optional; a request without either searches for events generally
//
// Canonicalization trims terms, drops empty industry entries and uppercases the country.
func ValidateSearchRequest(r SearchRequest) (SearchRequest, error) {
	out := r.WithWindow(r.From, r.To)
	out.Term = strings.Join(strings.Fields(r.Term), " ")
	out.Country = strings.ToUpper(strings.TrimSpace(r.Country))

	industry := out.Industry[:0]
	for _, term := range out.Industry {
		term = strings.Join(strings.Fields(term), " ")
		if term != "" {
			industry = append(industry, term)
		}
	}
	out.Industry = industry

	if out.From.IsZero() || out.To.IsZero() {
		return SearchRequest{}, fmt.Errorf("%w: date window is required", ErrInvalidRequest)
	}
	if out.From.After(out.To) {
		return SearchRequest{}, fmt.Errorf("%w: window start %s is after end %s",
			ErrInvalidRequest, out.From.Format("2006-01-02"), out.To.Format("2006-01-02"))
	}
	if out.Country != "" {
		if _, group := CountryGroups[out.Country]; !group && !isAlpha2(out.Country) {
			return SearchRequest{}, fmt.Errorf("%w: unknown country %q", ErrInvalidRequest, out.Country)
		}
	}
	return out, nil
}

func isAlpha2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
