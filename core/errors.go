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

import "errors"

// Failure taxonomy shared by every stage of a run.
// Only ErrNoResults, ErrDeadlineExceeded and ErrInvalidRequest surface to callers;
// the rest are absorbed and logged by the stage that observed them.
var (
	// ErrProviderTimeout indicates a discovery or LLM call exceeded its own timeout.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderRateLimited indicates a provider answered 429 or the limiter denied admission.
	ErrProviderRateLimited = errors.New("provider rate limited")

	// ErrProviderMalformedResponse indicates a response that could not be decoded or violated its schema.
	ErrProviderMalformedResponse = errors.New("provider returned malformed response")

	// ErrCacheUnavailable indicates a cache tier could not be read or written.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrExtractionFailed indicates the extraction collaborator failed for one URL.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrQualityRejected marks a candidate that did not pass the quality gate.
	ErrQualityRejected = errors.New("quality rejected")

	// ErrDeadlineExceeded indicates the request deadline passed with nothing usable found.
	ErrDeadlineExceeded = errors.New("request deadline exceeded")

	// ErrNoResults indicates no variant produced results and no cache entry was hit.
	ErrNoResults = errors.New("no results from any provider or cache")

	// ErrInvalidRequest indicates a malformed SearchRequest.
	ErrInvalidRequest = errors.New("invalid search request")

	// ErrInvalidCandidate indicates a nil or otherwise unusable EventCandidate.
	ErrInvalidCandidate = errors.New("invalid event candidate")
)
