package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ChunkRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddChunks adds one or more chunks to storage. The knowledge-base index
// entry is derived from the chunk's parent document, which must already be
// stored.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	for _, c := range chunks {
		if err := core.ValidateChunk(c); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, c := range chunks {
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			c.Id = core.ID(id)
			c.CreatedAt = time.Now().UTC()

			key := makeRecordKey(chunkPrefix, c.Id)
			if err := tx.Set(key, storage.MarshalChunk(c)); err != nil {
				return err
			}

			// Document index, keyed by ordinal so iteration is in order.
			docKey := makeChunkDocKey(c.DocumentId, c.Index)
			if err := tx.Set(docKey, storage.MarshalID(c.Id)); err != nil {
				return err
			}

			// Knowledge-base index via the parent document.
			doc, err := readDocument(tx, makeRecordKey(docRecordPrefix, c.DocumentId))
			if err != nil {
				return err
			}
			if doc != nil {
				kbKey := makeIndexKey(chunkKBPrefix, uint64(doc.KnowledgeBaseId), uint64(c.Id))
				if err := tx.Set(kbKey, storage.MarshalID(c.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return chunks, err
}

// UpdateChunks updates existing chunks.
func (r *ChunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, c := range chunks {
			key := makeRecordKey(chunkPrefix, c.Id)
			old, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			if err := tx.Set(key, storage.MarshalChunk(c)); err != nil {
				return err
			}

			// Re-index if the ordinal moved.
			if old.DocumentId != c.DocumentId || old.Index != c.Index {
				if err := tx.Delete(makeChunkDocKey(old.DocumentId, old.Index)); err != nil {
					return err
				}
				if err := tx.Set(makeChunkDocKey(c.DocumentId, c.Index), storage.MarshalID(c.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return chunks, err
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(chunkPrefix, id)
		var err error
		result, err = readChunk(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunks retrieves multiple chunks by their IDs.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeRecordKey(chunkPrefix, id))
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListByDocument retrieves all chunks of a document in ordinal order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialIndexKey(chunkDocPrefix, uint64(docID))
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			chunk, err := readChunk(tx, makeRecordKey(chunkPrefix, chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// ListByKnowledgeBase retrieves all chunks across a knowledge base.
func (r *ChunkRepository) ListByKnowledgeBase(ctx context.Context, kbID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialIndexKey(chunkKBPrefix, uint64(kbID))
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			chunk, err := readChunk(tx, makeRecordKey(chunkPrefix, chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteByDocument removes all chunks of a document.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, docID core.ID) (int, error) {
	deleted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		chunks, err := r.listByDocumentTx(tx, docID)
		if err != nil {
			return err
		}

		doc, err := readDocument(tx, makeRecordKey(docRecordPrefix, docID))
		if err != nil {
			return err
		}

		for _, c := range chunks {
			if err := tx.Delete(makeChunkDocKey(c.DocumentId, c.Index)); err != nil {
				return err
			}
			if doc != nil {
				kbKey := makeIndexKey(chunkKBPrefix, uint64(doc.KnowledgeBaseId), uint64(c.Id))
				if err := tx.Delete(kbKey); err != nil {
					return err
				}
			}
			if err := tx.Delete(makeRecordKey(chunkPrefix, c.Id)); err != nil {
				return err
			}
			deleted++
		}
		return tx.Commit()
	}, true)
	return deleted, err
}

func (r *ChunkRepository) listByDocumentTx(tx *badger.Txn, docID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	prefix := makePartialIndexKey(chunkDocPrefix, uint64(docID))
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(prefix); iter.Valid(); iter.Next() {
		var chunkID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			chunkID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}

		chunk, err := readChunk(tx, makeRecordKey(chunkPrefix, chunkID))
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			results = append(results, chunk)
		}
	}
	return results, nil
}

// readChunk reads a chunk from the transaction.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}
