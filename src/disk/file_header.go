package disk

import (
	"encoding/binary"

	"bufferpool-golang/src/common"
)

const (
	headerFixedSize = 8
	maxFreePages    = (common.PageSize - headerFixedSize) / 4
)

// headerPage is the decoded form of page 0 of a data file.
//
//	[0:4]  next page id to hand out
//	[4:8]  number of deallocated ids
//	[8:]   deallocated ids, oldest first
type headerPage struct {
	nextPageId common.PageId
	freePages  []common.PageId
}

func newHeaderPage() *headerPage {
	return &headerPage{nextPageId: common.HeaderPageId + 1}
}

func decodeHeaderPage(data []byte) *headerPage {
	hdr := &headerPage{
		nextPageId: common.PageId(binary.LittleEndian.Uint32(data[0:4])),
	}
	n := int(binary.LittleEndian.Uint32(data[4:8]))
	if n > maxFreePages {
		n = maxFreePages
	}
	hdr.freePages = make([]common.PageId, 0, n)
	for i := 0; i < n; i++ {
		off := headerFixedSize + 4*i
		hdr.freePages = append(hdr.freePages, common.PageId(binary.LittleEndian.Uint32(data[off:off+4])))
	}
	return hdr
}

func (hdr *headerPage) encode(data []byte) {
	for i := range data {
		data[i] = 0
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(hdr.nextPageId))
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(hdr.freePages)))
	for i, id := range hdr.freePages {
		off := headerFixedSize + 4*i
		binary.LittleEndian.PutUint32(data[off:off+4], uint32(id))
	}
}

func (hdr *headerPage) hasFreePage() bool {
	return len(hdr.freePages) > 0
}

func (hdr *headerPage) popFreePage() common.PageId {
	ret := hdr.freePages[0]
	hdr.freePages = hdr.freePages[1:]
	return ret
}

// pushFreePage records a deallocated id. It reports false when the id is
// already free or the header has no room left.
func (hdr *headerPage) pushFreePage(pageId common.PageId) bool {
	if len(hdr.freePages) >= maxFreePages {
		return false
	}
	for _, id := range hdr.freePages {
		if id == pageId {
			return false
		}
	}
	hdr.freePages = append(hdr.freePages, pageId)
	return true
}

func (hdr *headerPage) isFree(pageId common.PageId) bool {
	for _, id := range hdr.freePages {
		if id == pageId {
			return true
		}
	}
	return false
}
