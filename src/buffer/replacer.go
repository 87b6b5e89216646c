package buffer

import "fmt"

const (
	PolicyClock = "clock"
	PolicyLRU   = "lru"
)

// Replacer tracks the frames that may be evicted. Implementations are not
// safe for concurrent use; the pool calls them under its own mutex.
type Replacer interface {
	// Track makes a frame a victim candidate and records an access to it.
	Track(frameId int)
	// Pin withdraws a frame from candidacy.
	Pin(frameId int)
	// Victim picks a candidate and withdraws it, or reports false if there is none.
	Victim() (int, bool)
	Size() int
	Snapshot() ReplacerSnapshot
}

type Candidate struct {
	FrameId   int  `json:"frame_id"`
	Reference bool `json:"reference"`
}

type ReplacerSnapshot struct {
	Policy     string      `json:"policy"`
	Hand       int         `json:"hand"`
	Candidates []Candidate `json:"candidates"`
}

// NewReplacer builds the replacer named by policy for a pool of numFrames frames.
func NewReplacer(policy string, numFrames int) (Replacer, error) {
	switch policy {
	case PolicyClock, "":
		return NewClockReplacer(numFrames), nil
	case PolicyLRU:
		return NewLRUReplacer(), nil
	}
	return nil, fmt.Errorf("unknown replacer policy %q", policy)
}
