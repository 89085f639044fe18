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

// Package discovery turns one search request into many provider queries and
// merges what comes back.
//
// ExpandVariants builds a bounded set of query variants. The user's term is
// always the leading, quoted clause of every variant; event-type synonyms,
// location names and temporal terms follow it, and profile-derived industry
// terms come last.
//
// Fanout dispatches the variants on a bounded worker pool. Each variant is
// looked up in the cache before any network call, admitted by the rate
// limiter, retried with backoff on gateway-class failures and handed to a
// secondary provider when the primary is exhausted. Results are deduplicated
// by normalized URL and tagged with the provider, variant and date window
// that produced them. Aggregator domains are left in place for the rerank
// stage to deal with.
package discovery
