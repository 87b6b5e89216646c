package buffer

import (
	"fmt"
	"sort"

	"bufferpool-golang/src/common"
)

type FrameInfo struct {
	FrameId  int           `json:"frame_id"`
	PageId   common.PageId `json:"page_id"`
	PinCount int           `json:"pin_count"`
	Dirty    bool          `json:"dirty"`
	State    string        `json:"state"`
}

// Snapshot is a consistent picture of the pool's bookkeeping.
type Snapshot struct {
	PoolId     string                `json:"pool_id"`
	PoolSize   int                   `json:"pool_size"`
	PageTable  map[common.PageId]int `json:"page_table"`
	Frames     []FrameInfo           `json:"frames"`
	FreeFrames []int                 `json:"free_frames"`
	DirtyPages []common.PageId       `json:"dirty_pages"`
	Replacer   ReplacerSnapshot      `json:"replacer"`
}

// PinCount returns the pin count of a resident page, or -1.
func (s Snapshot) PinCount(pageId common.PageId) int {
	frameId, ok := s.PageTable[pageId]
	if !ok {
		return -1
	}
	return s.Frames[frameId].PinCount
}

func (bpm *BufferPoolManager) Snapshot() Snapshot {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	snap := Snapshot{
		PoolId:     bpm.id,
		PoolSize:   bpm.size,
		PageTable:  bpm.pageTable.entries(),
		Frames:     make([]FrameInfo, bpm.size),
		FreeFrames: make([]int, 0, bpm.freeList.Len()),
		DirtyPages: []common.PageId{},
		Replacer:   bpm.replacer.Snapshot(),
	}
	for i := range bpm.frames {
		frame := &bpm.frames[i]
		snap.Frames[i] = FrameInfo{
			FrameId:  i,
			PageId:   frame.pageId,
			PinCount: frame.pinCount,
			Dirty:    frame.isDirty,
			State:    frame.state.String(),
		}
		if frame.state != frameFree && frame.isDirty {
			snap.DirtyPages = append(snap.DirtyPages, frame.pageId)
		}
	}
	for e := bpm.freeList.Front(); e != nil; e = e.Next() {
		snap.FreeFrames = append(snap.FreeFrames, e.Value.(int))
	}
	sort.Slice(snap.DirtyPages, func(i, j int) bool { return snap.DirtyPages[i] < snap.DirtyPages[j] })
	return snap
}

// validate cross-checks frames, page table, free list and replacer.
func (bpm *BufferPoolManager) validate() error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	inspector, _ := bpm.replacer.(interface{ isCandidate(int) bool })
	free := make(map[int]bool, bpm.freeList.Len())
	for e := bpm.freeList.Front(); e != nil; e = e.Next() {
		frameId := e.Value.(int)
		if free[frameId] {
			return fmt.Errorf("frame %d is on the free list twice", frameId)
		}
		free[frameId] = true
	}

	resident, evictable := 0, 0
	for i := range bpm.frames {
		frame := &bpm.frames[i]
		if frame.pinCount < 0 {
			return fmt.Errorf("frame %d has pin count %d", i, frame.pinCount)
		}
		candidate := inspector != nil && inspector.isCandidate(i)
		switch frame.state {
		case frameFree:
			if !free[i] {
				return fmt.Errorf("free frame %d is not on the free list", i)
			}
			if frame.pageId != common.InvalidPageId || frame.pinCount != 0 {
				return fmt.Errorf("free frame %d still holds %v", i, frame.pageId)
			}
			if candidate {
				return fmt.Errorf("free frame %d is a victim candidate", i)
			}
			continue
		case framePinned:
			if frame.pinCount == 0 {
				return fmt.Errorf("pinned frame %d has pin count 0", i)
			}
			if candidate {
				return fmt.Errorf("pinned frame %d is a victim candidate", i)
			}
		case frameEvictable:
			if frame.pinCount != 0 {
				return fmt.Errorf("evictable frame %d has pin count %d", i, frame.pinCount)
			}
			if inspector != nil && !candidate {
				return fmt.Errorf("evictable frame %d is not a victim candidate", i)
			}
			evictable++
		}
		if free[i] {
			return fmt.Errorf("occupied frame %d is on the free list", i)
		}
		resident++
		if frameId, ok := bpm.pageTable.lookup(frame.pageId); !ok || frameId != i {
			return fmt.Errorf("page table does not map %v to frame %d", frame.pageId, i)
		}
	}
	if resident != bpm.pageTable.len() {
		return fmt.Errorf("%d occupied frames but %d page table entries", resident, bpm.pageTable.len())
	}
	if evictable != bpm.replacer.Size() {
		return fmt.Errorf("%d evictable frames but replacer tracks %d", evictable, bpm.replacer.Size())
	}
	return nil
}
