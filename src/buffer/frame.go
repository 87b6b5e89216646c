package buffer

import (
	"sync"

	"bufferpool-golang/src/common"
)

type frameState int

const (
	frameFree frameState = iota
	framePinned
	frameEvictable
)

func (s frameState) String() string {
	switch s {
	case frameFree:
		return "free"
	case framePinned:
		return "pinned"
	case frameEvictable:
		return "evictable"
	}
	return "unknown"
}

// Frame is an in-memory slot holding one page. Metadata is owned by the
// BufferPoolManager and only changes under its mutex.
//
// The embedded RWMutex latches the page contents: hold RLock to read Data and
// Lock to modify it. The pool never takes this latch itself, so it is safe to
// call pool methods while holding it.
type Frame struct {
	data     []byte
	pageId   common.PageId
	pinCount int
	isDirty  bool
	state    frameState
	sync.RWMutex
}

// Data returns the page bytes. Valid only while the caller holds a pin.
func (f *Frame) Data() []byte { return f.data }

// PageId returns the page held by the frame. Stable while the caller holds a pin.
func (f *Frame) PageId() common.PageId { return f.pageId }

func (f *Frame) reset() {
	for i := range f.data {
		f.data[i] = 0
	}
	f.pageId = common.InvalidPageId
	f.pinCount = 0
	f.isDirty = false
	f.state = frameFree
}
