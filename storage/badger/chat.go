package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/corvus-ai/corvus/core"
	"github.com/corvus-ai/corvus/storage"
)

// ChatRepository implements storage.ChatRepository for BadgerDB.
type ChatRepository struct {
	backend *Backend
	sesSeq  *badger.Sequence
	msgSeq  *badger.Sequence
}

var _ storage.ChatRepository = (*ChatRepository)(nil)

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(backend *Backend) (*ChatRepository, error) {
	sesSeq, err := backend.GetSequence(sessionIDSeq)
	if err != nil {
		return nil, err
	}
	msgSeq, err := backend.GetSequence(messageIDSeq)
	if err != nil {
		sesSeq.Release()
		return nil, err
	}

	return &ChatRepository{
		backend: backend,
		sesSeq:  sesSeq,
		msgSeq:  msgSeq,
	}, nil
}

// Close releases the ID sequences.
func (r *ChatRepository) Close() error {
	err := r.sesSeq.Release()
	if err2 := r.msgSeq.Release(); err == nil {
		err = err2
	}
	return err
}

// WithTransaction delegates to the backend.
func (r *ChatRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSession adds a chat session to storage.
func (r *ChatRepository) AddSession(ctx context.Context, s *core.ChatSession) (*core.ChatSession, error) {
	if err := core.ValidateSession(s); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.sesSeq)
		if err != nil {
			return err
		}
		s.Id = core.ID(id)
		s.CreatedAt = time.Now().UTC()
		s.UpdatedAt = s.CreatedAt
		s.LastActiveAt = s.CreatedAt

		key := makeRecordKey(sessionPrefix, s.Id)
		if err := tx.Set(key, storage.MarshalChatSession(s)); err != nil {
			return err
		}

		kbKey := makeIndexKey(sessionKBPrefix, uint64(s.KnowledgeBaseId), uint64(s.Id))
		if err := tx.Set(kbKey, storage.MarshalID(s.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return s, err
}

// UpdateSession updates an existing session.
func (r *ChatRepository) UpdateSession(ctx context.Context, s *core.ChatSession) (*core.ChatSession, error) {
	if err := core.ValidateSession(s); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(sessionPrefix, s.Id)
		old, err := readChatSession(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		s.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalChatSession(s)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return s, err
}

// DeleteSession removes a session and all of its messages.
func (r *ChatRepository) DeleteSession(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(sessionPrefix, id)
		s, err := readChatSession(tx, key)
		if err != nil {
			return err
		}
		if s == nil {
			return storage.ErrNotFound
		}

		// Delete messages and their index entries.
		prefix := makePartialIndexKey(messageSesPrefix, uint64(id))
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			var msgID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				msgID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}
			if err := tx.Delete(makeRecordKey(messagePrefix, msgID)); err != nil {
				iter.Close()
				return err
			}
			if err := tx.Delete(iter.Item().KeyCopy(nil)); err != nil {
				iter.Close()
				return err
			}
		}
		iter.Close()

		kbKey := makeIndexKey(sessionKBPrefix, uint64(s.KnowledgeBaseId), uint64(s.Id))
		if err := tx.Delete(kbKey); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSession retrieves a session by ID.
func (r *ChatRepository) GetSession(ctx context.Context, id core.ID) (*core.ChatSession, error) {
	var result *core.ChatSession
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(sessionPrefix, id)
		var err error
		result, err = readChatSession(tx, key)
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

// ListSessionsByKnowledgeBase retrieves all sessions of a knowledge base.
func (r *ChatRepository) ListSessionsByKnowledgeBase(ctx context.Context, kbID core.ID) ([]*core.ChatSession, error) {
	var results []*core.ChatSession
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialIndexKey(sessionKBPrefix, uint64(kbID))
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			var sesID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				sesID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			s, err := readChatSession(tx, makeRecordKey(sessionPrefix, sesID))
			if err != nil {
				return err
			}
			if s != nil {
				results = append(results, s)
			}
		}
		return nil
	}, false)
	return results, err
}

// AddMessages appends messages to their sessions.
func (r *ChatRepository) AddMessages(ctx context.Context, msgs ...*core.ChatMessage) ([]*core.ChatMessage, error) {
	for _, m := range msgs {
		if err := core.ValidateMessage(m); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, m := range msgs {
			id, err := nextID(r.msgSeq)
			if err != nil {
				return err
			}
			m.Id = core.ID(id)
			m.CreatedAt = time.Now().UTC()

			key := makeRecordKey(messagePrefix, m.Id)
			if err := tx.Set(key, storage.MarshalChatMessage(m)); err != nil {
				return err
			}

			sesKey := makeMessageSessionKey(m.SessionId, m.Id)
			if err := tx.Set(sesKey, storage.MarshalID(m.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return msgs, err
}

// ListMessages retrieves all messages of a session in conversation order.
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID core.ID) ([]*core.ChatMessage, error) {
	var results []*core.ChatMessage
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialIndexKey(messageSesPrefix, uint64(sessionID))
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			var msgID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				msgID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			m, err := readChatMessage(tx, makeRecordKey(messagePrefix, msgID))
			if err != nil {
				return err
			}
			if m != nil {
				results = append(results, m)
			}
		}
		return nil
	}, false)
	return results, err
}

// RecentMessages retrieves up to limit most recent messages, oldest first.
func (r *ChatRepository) RecentMessages(ctx context.Context, sessionID core.ID, limit int) ([]*core.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.ChatMessage
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialIndexKey(messageSesPrefix, uint64(sessionID))

		// Reverse iteration from the highest possible message ID in this
		// session collects the newest entries first.
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seekKey := makeMessageSessionKey(sessionID, core.ID(^uint64(0)))
		for iter.Seek(seekKey); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var msgID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				msgID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			m, err := readChatMessage(tx, makeRecordKey(messagePrefix, msgID))
			if err != nil {
				return err
			}
			if m != nil {
				results = append(results, m)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Collected newest first; flip to conversation order.
	slices.Reverse(results)
	return results, nil
}

// readChatSession reads a chat session from the transaction.
func readChatSession(tx *badger.Txn, key []byte) (*core.ChatSession, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var s *core.ChatSession
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		s, unmarshalErr = storage.UnmarshalChatSession(val)
		return unmarshalErr
	})
	return s, err
}

// readChatMessage reads a chat message from the transaction.
func readChatMessage(tx *badger.Txn, key []byte) (*core.ChatMessage, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var m *core.ChatMessage
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		m, unmarshalErr = storage.UnmarshalChatMessage(val)
		return unmarshalErr
	})
	return m, err
}
