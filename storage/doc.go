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

// Package storage holds the persistence contracts and record codecs for scout.
//
// Two kinds of data are stored:
//
//   - Provider responses, as cache entries in the L2 and L3 tiers
//     (see the cache package for the Tier contract).
//   - Completed runs, through RunRepository.
//
// Backends live in subpackages:
//
//	storage/badger    embedded L3 tier and run repository
//	storage/postgres  shared L2 tier
//
// # Serialization
//
// Records are encoded with mus-go primitives (varint integers, length-prefixed
// strings). Every record starts with a format version so old data fails loudly
// with ErrSerializationFailed instead of decoding into garbage.
//
//	data := storage.MarshalRunResult(run)
//	run, err := storage.UnmarshalRunResult(data)
//
// # Thread Safety
//
// All repository and tier implementations must be safe for concurrent use.
package storage
