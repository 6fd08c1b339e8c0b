// Copyright 2025 Corvus Authors
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


// Package vector provides per-knowledge-base embedding indexes for
// similarity search over chunks.
//
// The only implementation is Flat, an exact brute-force cosine index.
// Vectors are stored unit-normalized, queries score every entry and the
// whole index round-trips to disk in a single file, which keeps the index
// trivially consistent with the chunk store it mirrors.
package vector
