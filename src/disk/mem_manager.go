package disk

import (
	"fmt"
	"sort"
	"sync"

	"bufferpool-golang/src/common"
)

type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
	OpAllocate
	OpDeallocate
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpAllocate:
		return "allocate"
	case OpDeallocate:
		return "deallocate"
	}
	return "unknown"
}

// Op is one call observed by a MemManager.
type Op struct {
	Kind   OpKind
	PageId common.PageId
}

// MemManager keeps pages in memory. Ids are handed out from 1 upwards and
// never reused. Reading an allocated page that was never written yields
// zeroes. Every call is recorded so tests can check I/O ordering, and
// failures can be injected per operation kind.
type MemManager struct {
	maxPages   int
	numPages   int
	allocated  map[common.PageId]bool
	pages      map[common.PageId][]byte
	ops        []Op
	readError  error
	writeError error
	mu         sync.Mutex
}

// NewMemManager creates an in-memory store. maxPages of zero means unbounded.
func NewMemManager(maxPages int) *MemManager {
	return &MemManager{
		maxPages:  maxPages,
		allocated: make(map[common.PageId]bool),
		pages:     make(map[common.PageId][]byte),
	}
}

func (mm *MemManager) AllocatePage() (common.PageId, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.maxPages > 0 && mm.numPages >= mm.maxPages {
		return common.InvalidPageId, common.ErrOutOfStorage
	}
	mm.numPages++
	pageId := common.PageId(mm.numPages)
	mm.allocated[pageId] = true
	mm.ops = append(mm.ops, Op{Kind: OpAllocate, PageId: pageId})
	return pageId, nil
}

func (mm *MemManager) DeallocatePage(pageId common.PageId) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if !mm.allocated[pageId] {
		return fmt.Errorf("%w: %d is not allocated", common.ErrInvalidPageId, pageId)
	}
	delete(mm.allocated, pageId)
	delete(mm.pages, pageId)
	mm.ops = append(mm.ops, Op{Kind: OpDeallocate, PageId: pageId})
	return nil
}

func (mm *MemManager) ReadPage(pageId common.PageId, data []byte) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.ops = append(mm.ops, Op{Kind: OpRead, PageId: pageId})
	if mm.readError != nil {
		return fmt.Errorf("%w: read page %d: %w", common.ErrIO, pageId, mm.readError)
	}
	if !mm.allocated[pageId] {
		return fmt.Errorf("%w: read page %d: not allocated", common.ErrIO, pageId)
	}
	stored, ok := mm.pages[pageId]
	if !ok {
		for i := range data {
			data[i] = 0
		}
		return nil
	}
	copy(data, stored)
	return nil
}

func (mm *MemManager) WritePage(pageId common.PageId, data []byte) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.ops = append(mm.ops, Op{Kind: OpWrite, PageId: pageId})
	if mm.writeError != nil {
		return fmt.Errorf("%w: write page %d: %w", common.ErrIO, pageId, mm.writeError)
	}
	if !mm.allocated[pageId] {
		return fmt.Errorf("%w: write page %d: not allocated", common.ErrIO, pageId)
	}
	stored := make([]byte, common.PageSize)
	copy(stored, data)
	mm.pages[pageId] = stored
	return nil
}

// FailReads makes every following read fail with err. Pass nil to recover.
func (mm *MemManager) FailReads(err error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.readError = err
}

// FailWrites makes every following write fail with err. Pass nil to recover.
func (mm *MemManager) FailWrites(err error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.writeError = err
}

// Pages lists the ids that have been written at least once, ascending.
func (mm *MemManager) Pages() []common.PageId {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	ids := make([]common.PageId, 0, len(mm.pages))
	for id := range mm.pages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PageData returns a copy of the stored bytes of a page.
func (mm *MemManager) PageData(pageId common.PageId) ([]byte, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	stored, ok := mm.pages[pageId]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), stored...), true
}

func (mm *MemManager) Ops() []Op {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return append([]Op(nil), mm.ops...)
}

func (mm *MemManager) ResetOps() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.ops = nil
}
