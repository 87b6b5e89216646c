package common

import "errors"

var (
	ErrPoolExhausted   = errors.New("buffer pool exhausted: every frame is pinned")
	ErrInvalidUnpin    = errors.New("invalid unpin")
	ErrPageNotFound    = errors.New("page not resident in buffer pool")
	ErrPagePinned      = errors.New("page is pinned")
	ErrIO              = errors.New("i/o error")
	ErrOutOfStorage    = errors.New("out of storage: no page id left to allocate")
	ErrInvalidPoolSize = errors.New("pool size must be positive")
	ErrInvalidPageId   = errors.New("invalid page id")
)
