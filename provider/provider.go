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

// Package provider contains the discovery providers queried during fan-out,
// and the retry policy applied to every provider call.
//
// Providers only search. They may receive locale hints but nothing downstream
// assumes their results are geographically filtered.
package provider

import (
	"context"
	"time"

	"github.com/poiesic/scout/core"
)

// Filters carries optional hints for a provider search.
type Filters struct {
	Country  string // ISO 3166-1 alpha-2, may be empty
	Language string // ISO 639-1, may be empty
	From     time.Time
	To       time.Time
	Limit    int // Maximum results wanted, 0 means provider default
}

// Provider is a discovery backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name identifies the provider in cache keys, rate-limit state and logs.
	Name() string

	// Search runs one query. Errors should be *StatusError for HTTP failures,
	// or wrap core.ErrProviderMalformedResponse for undecodable bodies.
	Search(ctx context.Context, query string, filters Filters) ([]core.RawResult, error)
}

const (
	defaultLimit     = 20
	maxBodyBytes     = 4 << 20
	defaultUserAgent = "Mozilla/5.0 (compatible; scout/0.1; +https://github.com/poiesic/scout)"
)

func limitOrDefault(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	return n
}
