package domain

import "errors"

var (
	// ErrDataDirNotFound signals that the corpus directory is missing or not a directory.
	ErrDataDirNotFound = errors.New("data directory not found")
	// ErrEmptyCorpus signals that no documents were loaded from the corpus directory.
	ErrEmptyCorpus = errors.New("no documents loaded")
	// ErrEmptyIndex signals that the vector index holds no entries.
	ErrEmptyIndex = errors.New("document index is empty")
	// ErrInvalidQuestion signals a question that failed validation.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatProviderError signals a chat-completion provider failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrVectorDimMismatch signals a query vector whose length differs from the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrCorruptStore signals a persisted vector store that cannot be read back.
	ErrCorruptStore = errors.New("corrupt vector store")
)
