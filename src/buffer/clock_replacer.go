package buffer

type clockSlot struct {
	candidate bool
	reference bool
}

// ClockReplacer implements second-chance replacement over frame indexes. The
// hand sweeps frames in index order; a candidate with its reference flag set
// loses the flag and is passed over once, the first candidate found without
// it is the victim.
type ClockReplacer struct {
	slots []clockSlot
	hand  int
	size  int
}

func NewClockReplacer(numFrames int) *ClockReplacer {
	return &ClockReplacer{
		slots: make([]clockSlot, numFrames),
	}
}

func (c *ClockReplacer) Track(frameId int) {
	slot := &c.slots[frameId]
	if !slot.candidate {
		slot.candidate = true
		c.size++
	}
	slot.reference = true
}

func (c *ClockReplacer) Pin(frameId int) {
	slot := &c.slots[frameId]
	if !slot.candidate {
		return
	}
	slot.candidate = false
	slot.reference = false
	c.size--
}

func (c *ClockReplacer) Victim() (int, bool) {
	if c.size == 0 {
		return 0, false
	}
	// Terminates within two sweeps: the first clears every reference flag.
	for {
		frameId := c.hand
		slot := &c.slots[frameId]
		c.hand = (c.hand + 1) % len(c.slots)
		if !slot.candidate {
			continue
		}
		if slot.reference {
			slot.reference = false
			continue
		}
		slot.candidate = false
		c.size--
		return frameId, true
	}
}

func (c *ClockReplacer) Size() int {
	return c.size
}

func (c *ClockReplacer) Snapshot() ReplacerSnapshot {
	snap := ReplacerSnapshot{
		Policy:     PolicyClock,
		Hand:       c.hand,
		Candidates: make([]Candidate, 0, c.size),
	}
	for frameId, slot := range c.slots {
		if slot.candidate {
			snap.Candidates = append(snap.Candidates, Candidate{FrameId: frameId, Reference: slot.reference})
		}
	}
	return snap
}

func (c *ClockReplacer) isCandidate(frameId int) bool {
	return c.slots[frameId].candidate
}
