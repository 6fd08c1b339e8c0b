package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for every persisted record type. These follow the shape the
// mus generator emits: one exported serializer value per type with Marshal,
// Unmarshal and Size methods, fields encoded in declaration order.

// IDMUS serializes core.ID values.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// time.Time is encoded as UnixMicro; the zero time maps to 0 both ways.

func marshalTime(t time.Time, bs []byte) int {
	var us int64
	if !t.IsZero() {
		us = t.UnixMicro()
	}
	return varint.Int64.Marshal(us, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || us == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var us int64
	if !t.IsZero() {
		us = t.UnixMicro()
	}
	return varint.Int64.Size(us)
}

func marshalIDSlice(vs []ID, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(vs), bs)
	for _, v := range vs {
		n += IDMUS.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalIDSlice(bs []byte) (vs []ID, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	vs = make([]ID, length)
	for i := range vs {
		var n1 int
		vs[i], n1, err = IDMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return vs, n, nil
}

func sizeIDSlice(vs []ID) (size int) {
	size = varint.PositiveInt.Size(len(vs))
	for _, v := range vs {
		size += IDMUS.Size(v)
	}
	return size
}

func marshalStringSlice(vs []string, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(vs), bs)
	for _, v := range vs {
		n += ord.String.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) (vs []string, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	vs = make([]string, length)
	for i := range vs {
		var n1 int
		vs[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return vs, n, nil
}

func sizeStringSlice(vs []string) (size int) {
	size = varint.PositiveInt.Size(len(vs))
	for _, v := range vs {
		size += ord.String.Size(v)
	}
	return size
}

// KnowledgeBaseMUS serializes KnowledgeBase records.
var KnowledgeBaseMUS = knowledgeBaseMUS{}

type knowledgeBaseMUS struct{}

func (knowledgeBaseMUS) Marshal(v KnowledgeBase, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += varint.Int.Marshal(int(v.DefaultChunkStrategy), bs[n:])
	n += varint.Int.Marshal(v.DefaultChunkSize, bs[n:])
	n += varint.Int.Marshal(v.DefaultChunkOverlap, bs[n:])
	n += ord.Bool.Marshal(v.EnableVectorStore, bs[n:])
	n += ord.Bool.Marshal(v.EnableGraphStore, bs[n:])
	n += ord.Bool.Marshal(v.EnableExtraction, bs[n:])
	n += ord.String.Marshal(v.EmbeddingModel, bs[n:])
	n += varint.Int.Marshal(v.DocumentCount, bs[n:])
	n += varint.Int.Marshal(v.TotalChunks, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (knowledgeBaseMUS) Unmarshal(bs []byte) (v KnowledgeBase, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	if v.Name, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Description, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var strategy int
	if strategy, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.DefaultChunkStrategy = ChunkStrategy(strategy)
	n += n1
	if v.DefaultChunkSize, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.DefaultChunkOverlap, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.EnableVectorStore, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.EnableGraphStore, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.EnableExtraction, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.DocumentCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.TotalChunks, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (knowledgeBaseMUS) Size(v KnowledgeBase) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Description)
	size += varint.Int.Size(int(v.DefaultChunkStrategy))
	size += varint.Int.Size(v.DefaultChunkSize)
	size += varint.Int.Size(v.DefaultChunkOverlap)
	size += ord.Bool.Size(v.EnableVectorStore)
	size += ord.Bool.Size(v.EnableGraphStore)
	size += ord.Bool.Size(v.EnableExtraction)
	size += ord.String.Size(v.EmbeddingModel)
	size += varint.Int.Size(v.DocumentCount)
	size += varint.Int.Size(v.TotalChunks)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

// DocumentMUS serializes Document records.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.KnowledgeBaseId, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Source, bs[n:])
	n += varint.Int.Marshal(int(v.ChunkStrategy), bs[n:])
	n += varint.Int.Marshal(v.ChunkSize, bs[n:])
	n += varint.Int.Marshal(v.ChunkOverlap, bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += ord.String.Marshal(v.ErrorMessage, bs[n:])
	n += varint.Int.Marshal(v.CharCount, bs[n:])
	n += varint.Int.Marshal(v.WordCount, bs[n:])
	n += varint.Int.Marshal(v.ChunkCount, bs[n:])
	n += varint.Int.Marshal(v.EntityCount, bs[n:])
	n += varint.Int.Marshal(v.RelationCount, bs[n:])
	n += ord.Bool.Marshal(v.VectorStored, bs[n:])
	n += ord.Bool.Marshal(v.GraphStored, bs[n:])
	n += varint.Int64.Marshal(int64(v.ProcessingTime), bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	n += marshalTime(v.ProcessedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	if v.KnowledgeBaseId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Source, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var iv int
	if iv, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.ChunkStrategy = ChunkStrategy(iv)
	n += n1
	if v.ChunkSize, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ChunkOverlap, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if iv, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Status = DocumentStatus(iv)
	n += n1
	if v.ErrorMessage, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CharCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.WordCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.EntityCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.RelationCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.VectorStored, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.GraphStored, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var dur int64
	if dur, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.ProcessingTime = time.Duration(dur)
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ProcessedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.KnowledgeBaseId)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Source)
	size += varint.Int.Size(int(v.ChunkStrategy))
	size += varint.Int.Size(v.ChunkSize)
	size += varint.Int.Size(v.ChunkOverlap)
	size += varint.Int.Size(int(v.Status))
	size += ord.String.Size(v.ErrorMessage)
	size += varint.Int.Size(v.CharCount)
	size += varint.Int.Size(v.WordCount)
	size += varint.Int.Size(v.ChunkCount)
	size += varint.Int.Size(v.EntityCount)
	size += varint.Int.Size(v.RelationCount)
	size += ord.Bool.Size(v.VectorStored)
	size += ord.Bool.Size(v.GraphStored)
	size += varint.Int64.Size(int64(v.ProcessingTime))
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	size += sizeTime(v.ProcessedAt)
	return size
}

// TripleMUS serializes Triple values.
var TripleMUS = tripleMUS{}

type tripleMUS struct{}

func (tripleMUS) Marshal(v Triple, bs []byte) (n int) {
	n = ord.String.Marshal(v.Subject, bs)
	n += ord.String.Marshal(string(v.SubjectType), bs[n:])
	n += ord.String.Marshal(v.Predicate, bs[n:])
	n += ord.String.Marshal(v.Object, bs[n:])
	n += ord.String.Marshal(string(v.ObjectType), bs[n:])
	n += raw.Float64.Marshal(v.Confidence, bs[n:])
	n += marshalIDSlice(v.ChunkIds, bs[n:])
	return n
}

func (tripleMUS) Unmarshal(bs []byte) (v Triple, n int, err error) {
	var n1 int
	v.Subject, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	var s string
	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.SubjectType = EntityType(s)
	n += n1
	if v.Predicate, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Object, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.ObjectType = EntityType(s)
	n += n1
	if v.Confidence, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.ChunkIds, n1, err = unmarshalIDSlice(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (tripleMUS) Size(v Triple) (size int) {
	size = ord.String.Size(v.Subject)
	size += ord.String.Size(string(v.SubjectType))
	size += ord.String.Size(v.Predicate)
	size += ord.String.Size(v.Object)
	size += ord.String.Size(string(v.ObjectType))
	size += raw.Float64.Size(v.Confidence)
	size += sizeIDSlice(v.ChunkIds)
	return size
}

func marshalTripleSlice(vs []Triple, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(vs), bs)
	for _, v := range vs {
		n += TripleMUS.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalTripleSlice(bs []byte) (vs []Triple, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	vs = make([]Triple, length)
	for i := range vs {
		var n1 int
		vs[i], n1, err = TripleMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return vs, n, nil
}

func sizeTripleSlice(vs []Triple) (size int) {
	size = varint.PositiveInt.Size(len(vs))
	for _, v := range vs {
		size += TripleMUS.Size(v)
	}
	return size
}

// ChunkMUS serializes Chunk records.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int.Marshal(v.StartPos, bs[n:])
	n += varint.Int.Marshal(v.EndPos, bs[n:])
	n += varint.Int.Marshal(v.CharCount, bs[n:])
	n += varint.Int.Marshal(v.WordCount, bs[n:])
	n += ord.String.Marshal(v.VectorId, bs[n:])
	n += ord.Bool.Marshal(v.HasEmbedding, bs[n:])
	n += ord.String.Marshal(v.EmbeddingModel, bs[n:])
	n += marshalStringSlice(v.Entities, bs[n:])
	n += marshalTripleSlice(v.Relations, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	if v.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.StartPos, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.EndPos, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CharCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.WordCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.VectorId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.HasEmbedding, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Entities, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Relations, n1, err = unmarshalTripleSlice(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += varint.Int.Size(v.Index)
	size += ord.String.Size(v.Content)
	size += varint.Int.Size(v.StartPos)
	size += varint.Int.Size(v.EndPos)
	size += varint.Int.Size(v.CharCount)
	size += varint.Int.Size(v.WordCount)
	size += ord.String.Size(v.VectorId)
	size += ord.Bool.Size(v.HasEmbedding)
	size += ord.String.Size(v.EmbeddingModel)
	size += sizeStringSlice(v.Entities)
	size += sizeTripleSlice(v.Relations)
	size += sizeTime(v.CreatedAt)
	return size
}

// ChatSessionMUS serializes ChatSession records.
var ChatSessionMUS = chatSessionMUS{}

type chatSessionMUS struct{}

func (chatSessionMUS) Marshal(v ChatSession, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.KnowledgeBaseId, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.Bool.Marshal(v.UseVectorSearch, bs[n:])
	n += ord.Bool.Marshal(v.UseGraphSearch, bs[n:])
	n += varint.Int.Marshal(v.SearchTopK, bs[n:])
	n += varint.Int.Marshal(v.MessageCount, bs[n:])
	n += varint.Int.Marshal(v.TotalTokens, bs[n:])
	n += marshalTime(v.LastActiveAt, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (chatSessionMUS) Unmarshal(bs []byte) (v ChatSession, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	if v.KnowledgeBaseId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UseVectorSearch, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UseGraphSearch, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.SearchTopK, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.MessageCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.TotalTokens, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.LastActiveAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (chatSessionMUS) Size(v ChatSession) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.KnowledgeBaseId)
	size += ord.String.Size(v.Title)
	size += ord.Bool.Size(v.UseVectorSearch)
	size += ord.Bool.Size(v.UseGraphSearch)
	size += varint.Int.Size(v.SearchTopK)
	size += varint.Int.Size(v.MessageCount)
	size += varint.Int.Size(v.TotalTokens)
	size += sizeTime(v.LastActiveAt)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

// ChatMessageMUS serializes ChatMessage records.
var ChatMessageMUS = chatMessageMUS{}

type chatMessageMUS struct{}

func (chatMessageMUS) Marshal(v ChatMessage, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.SessionId, bs[n:])
	n += varint.Int.Marshal(int(v.Role), bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.Bool.Marshal(v.Partial, bs[n:])
	n += varint.PositiveInt.Marshal(len(v.RetrievedChunks), bs[n:])
	for _, ref := range v.RetrievedChunks {
		n += IDMUS.Marshal(ref.ChunkId, bs[n:])
		n += IDMUS.Marshal(ref.DocumentId, bs[n:])
		n += raw.Float32.Marshal(ref.Score, bs[n:])
	}
	n += marshalStringSlice(v.RetrievedEntities, bs[n:])
	n += varint.Int.Marshal(v.TokenCount, bs[n:])
	n += varint.Int64.Marshal(int64(v.ProcessingTime), bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (chatMessageMUS) Unmarshal(bs []byte) (v ChatMessage, n int, err error) {
	var n1 int
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	if v.SessionId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var role int
	if role, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Role = MessageRole(role)
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Partial, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var length int
	if length, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if length > 0 {
		v.RetrievedChunks = make([]RetrievedChunkRef, length)
		for i := range v.RetrievedChunks {
			if v.RetrievedChunks[i].ChunkId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
				return v, n + n1, err
			}
			n += n1
			if v.RetrievedChunks[i].DocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
				return v, n + n1, err
			}
			n += n1
			if v.RetrievedChunks[i].Score, n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return v, n + n1, err
			}
			n += n1
		}
	}
	if v.RetrievedEntities, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.TokenCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var dur int64
	if dur, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.ProcessingTime = time.Duration(dur)
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (chatMessageMUS) Size(v ChatMessage) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.SessionId)
	size += varint.Int.Size(int(v.Role))
	size += ord.String.Size(v.Content)
	size += ord.Bool.Size(v.Partial)
	size += varint.PositiveInt.Size(len(v.RetrievedChunks))
	for _, ref := range v.RetrievedChunks {
		size += IDMUS.Size(ref.ChunkId)
		size += IDMUS.Size(ref.DocumentId)
		size += raw.Float32.Size(ref.Score)
	}
	size += sizeStringSlice(v.RetrievedEntities)
	size += varint.Int.Size(v.TokenCount)
	size += varint.Int64.Size(int64(v.ProcessingTime))
	size += sizeTime(v.CreatedAt)
	return size
}
