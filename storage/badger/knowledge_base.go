package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/storage"
)

// KnowledgeBaseRepository implements storage.KnowledgeBaseRepository for BadgerDB.
type KnowledgeBaseRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.KnowledgeBaseRepository = (*KnowledgeBaseRepository)(nil)

// NewKnowledgeBaseRepository creates a new KnowledgeBaseRepository.
func NewKnowledgeBaseRepository(backend *Backend) (*KnowledgeBaseRepository, error) {
	idSeq, err := backend.GetSequence(kbIDSeq)
	if err != nil {
		return nil, err
	}

	return &KnowledgeBaseRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *KnowledgeBaseRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *KnowledgeBaseRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddKnowledgeBase adds a knowledge base to storage.
func (r *KnowledgeBaseRepository) AddKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error) {
	if err := core.ValidateKnowledgeBase(kb); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		kb.Id = core.ID(id)
		kb.CreatedAt = time.Now().UTC()
		kb.UpdatedAt = kb.CreatedAt

		key := makeRecordKey(kbRecordPrefix, kb.Id)
		if err := tx.Set(key, storage.MarshalKnowledgeBase(kb)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return kb, err
}

// UpdateKnowledgeBase updates an existing knowledge base.
func (r *KnowledgeBaseRepository) UpdateKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error) {
	if err := core.ValidateKnowledgeBase(kb); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(kbRecordPrefix, kb.Id)
		old, err := readKnowledgeBase(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		kb.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalKnowledgeBase(kb)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return kb, err
}

// DeleteKnowledgeBase removes a knowledge base by ID.
func (r *KnowledgeBaseRepository) DeleteKnowledgeBase(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(kbRecordPrefix, id)
		old, err := readKnowledgeBase(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetKnowledgeBase retrieves a knowledge base by ID.
func (r *KnowledgeBaseRepository) GetKnowledgeBase(ctx context.Context, id core.ID) (*core.KnowledgeBase, error) {
	var result *core.KnowledgeBase
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(kbRecordPrefix, id)
		var err error
		result, err = readKnowledgeBase(tx, key)
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

// ListKnowledgeBases retrieves all knowledge bases, ordered by ID.
func (r *KnowledgeBaseRepository) ListKnowledgeBases(ctx context.Context) ([]*core.KnowledgeBase, error) {
	var results []*core.KnowledgeBase
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(kbRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var kb *core.KnowledgeBase
			err := iter.Item().Value(func(val []byte) error {
				var err error
				kb, err = storage.UnmarshalKnowledgeBase(val)
				return err
			})
			if err != nil {
				return err
			}
			if kb != nil {
				results = append(results, kb)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Record keys are "prefix:%d" strings, so iteration order is
	// lexicographic, not numeric.
	slices.SortFunc(results, func(a, b *core.KnowledgeBase) int {
		switch {
		case a.Id < b.Id:
			return -1
		case a.Id > b.Id:
			return 1
		}
		return 0
	})

	return results, nil
}

// AddCounts atomically adjusts the document and chunk counters.
func (r *KnowledgeBaseRepository) AddCounts(ctx context.Context, id core.ID, docDelta, chunkDelta int) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(kbRecordPrefix, id)
		kb, err := readKnowledgeBase(tx, key)
		if err != nil {
			return err
		}
		if kb == nil {
			return storage.ErrNotFound
		}

		kb.DocumentCount += docDelta
		kb.TotalChunks += chunkDelta
		if kb.DocumentCount < 0 {
			kb.DocumentCount = 0
		}
		if kb.TotalChunks < 0 {
			kb.TotalChunks = 0
		}
		kb.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalKnowledgeBase(kb)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readKnowledgeBase reads a knowledge base from the transaction.
func readKnowledgeBase(tx *badger.Txn, key []byte) (*core.KnowledgeBase, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var kb *core.KnowledgeBase
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		kb, unmarshalErr = storage.UnmarshalKnowledgeBase(val)
		return unmarshalErr
	})
	return kb, err
}
