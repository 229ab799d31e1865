package upsert

import "errors"

var (
	// ErrDuplicate means the node was already present when the write ran.
	ErrDuplicate = errors.New("duplicate node")

	// ErrUnsupportedMediaKind means the title kind has no node category.
	ErrUnsupportedMediaKind = errors.New("unsupported media kind")

	ErrNilTitle = errors.New("title cannot be nil")
)
