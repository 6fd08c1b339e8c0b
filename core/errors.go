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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidKnowledgeBase indicates a KnowledgeBase failed validation.
	ErrInvalidKnowledgeBase = errors.New("invalid knowledge base")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidSession indicates a ChatSession failed validation.
	ErrInvalidSession = errors.New("invalid chat session")

	// ErrInvalidMessage indicates a ChatMessage failed validation.
	ErrInvalidMessage = errors.New("invalid chat message")

	// ErrEmptyContent indicates a required content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyName indicates a required name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidStatus indicates an invalid DocumentStatus value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrInvalidRole indicates an invalid MessageRole value.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrInvalidChunkParams indicates chunk size/overlap parameters are inconsistent.
	ErrInvalidChunkParams = errors.New("chunk overlap must be smaller than chunk size")
)
