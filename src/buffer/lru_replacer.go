package buffer

import (
	"container/list"
)

// LRUReplacer evicts the frame that has been unpinned the longest.
type LRUReplacer struct {
	dataList list.List
	index    map[int]*list.Element
}

func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		index: make(map[int]*list.Element),
	}
}

func (lru *LRUReplacer) Victim() (int, bool) {
	if len(lru.index) == 0 {
		return 0, false
	}
	elem := lru.dataList.Back()
	frameId := elem.Value.(int)
	lru.dataList.Remove(elem)
	delete(lru.index, frameId)
	return frameId, true
}

func (lru *LRUReplacer) Track(frameId int) {
	if elem, ok := lru.index[frameId]; ok {
		lru.dataList.MoveToFront(elem)
		return
	}
	lru.index[frameId] = lru.dataList.PushFront(frameId)
}

func (lru *LRUReplacer) Pin(frameId int) {
	if elem, ok := lru.index[frameId]; ok {
		lru.dataList.Remove(elem)
		delete(lru.index, frameId)
	}
}

func (lru *LRUReplacer) Size() int {
	return len(lru.index)
}

// Snapshot lists candidates from the next victim to the most recently unpinned.
func (lru *LRUReplacer) Snapshot() ReplacerSnapshot {
	snap := ReplacerSnapshot{
		Policy:     PolicyLRU,
		Candidates: make([]Candidate, 0, len(lru.index)),
	}
	for e := lru.dataList.Back(); e != nil; e = e.Prev() {
		snap.Candidates = append(snap.Candidates, Candidate{FrameId: e.Value.(int)})
	}
	return snap
}

func (lru *LRUReplacer) isCandidate(frameId int) bool {
	_, ok := lru.index[frameId]
	return ok
}
