package badger

import "github.com/corvus-ai/corvus/storage"

// NewStores builds all four repositories on one backend.
// Repositories opened so far are closed again if a later one fails.
func NewStores(backend *Backend) (*storage.Stores, error) {
	kbRepo, err := NewKnowledgeBaseRepository(backend)
	if err != nil {
		return nil, err
	}

	docRepo, err := NewDocumentRepository(backend)
	if err != nil {
		kbRepo.Close()
		return nil, err
	}

	chunkRepo, err := NewChunkRepository(backend)
	if err != nil {
		docRepo.Close()
		kbRepo.Close()
		return nil, err
	}

	chatRepo, err := NewChatRepository(backend)
	if err != nil {
		chunkRepo.Close()
		docRepo.Close()
		kbRepo.Close()
		return nil, err
	}

	return &storage.Stores{
		KnowledgeBases: kbRepo,
		Documents:      docRepo,
		Chunks:         chunkRepo,
		Chats:          chatRepo,
	}, nil
}
