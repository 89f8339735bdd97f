package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrPropertyNotFound signals a missing property in the primary store.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrUnitNotFound signals a missing unit in the primary store.
	ErrUnitNotFound = errors.New("unit not found")
	// ErrQueueClosed signals an enqueue on a stopped write queue.
	ErrQueueClosed = errors.New("write queue closed")
	// ErrInvalidRequest signals a malformed search request or event payload.
	ErrInvalidRequest = errors.New("invalid request")
)
