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


// Package storage provides the storage abstraction layer for Corvus.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. It allows for different storage
// backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Architecture
//
// The storage layer follows the Repository pattern, one repository per
// aggregate:
//
//   - KnowledgeBaseRepository: knowledge bases and their counters
//   - DocumentRepository: documents and status transitions
//   - ChunkRepository: chunks, ordered per document
//   - ChatRepository: chat sessions and their message logs
//
// Stores bundles the four repositories of one backend.
//
// # Constructor Return Type Pattern
//
// Implementation packages return concrete types from their constructors and
// assert interface compliance with a package-level var check; consumers hold
// the storage interfaces.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
