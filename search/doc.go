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

// Package search runs the end-to-end event discovery pipeline.
//
// One run takes a SearchRequest through these stages:
//   - Discovery fan-out over providers, with rate limiting and caching
//   - Aggregator filtering and relevance reranking
//   - Prioritization with an LLM scorer and a lexical fallback
//   - Extraction of event candidates from the kept URLs
//   - Validation, deduplication and the quality gate
//
// When too few candidates pass the gate, the date window is widened at most
// twice and the pipeline runs again for URLs not seen before. Results keep
// the tag of the window that produced them.
package search
