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


// Package retrieval provides hybrid search over a knowledge base.
//
// A query runs two halves in parallel: vector similarity against the
// knowledge base's embedding index, and entity matching against the
// extracted graph evidence stored on chunks. The halves merge into one
// ranked result list; a chunk found by both is marked accordingly. A
// failing half degrades to empty rather than failing the search, so a
// knowledge base with one store disabled still answers from the other.
package retrieval
