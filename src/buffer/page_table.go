package buffer

import (
	"github.com/puzpuzpuz/xsync/v3"

	"bufferpool-golang/src/common"
)

// pageTable maps resident page ids to frame indexes. Writers must hold the
// pool mutex; lookups may run without it.
type pageTable struct {
	m *xsync.MapOf[common.PageId, int]
}

func newPageTable() *pageTable {
	return &pageTable{m: xsync.NewMapOf[common.PageId, int]()}
}

func (pt *pageTable) lookup(pageId common.PageId) (int, bool) {
	return pt.m.Load(pageId)
}

func (pt *pageTable) bind(pageId common.PageId, frameId int) {
	pt.m.Store(pageId, frameId)
}

func (pt *pageTable) unbind(pageId common.PageId) {
	pt.m.Delete(pageId)
}

func (pt *pageTable) len() int {
	return pt.m.Size()
}

func (pt *pageTable) entries() map[common.PageId]int {
	out := make(map[common.PageId]int, pt.m.Size())
	pt.m.Range(func(pageId common.PageId, frameId int) bool {
		out[pageId] = frameId
		return true
	})
	return out
}
