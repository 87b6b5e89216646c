package buffer

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"bufferpool-golang/src/common"
)

// Flusher periodically writes dirty pages back so that evictions find clean
// victims. Writes are throttled to a fixed number of pages per second.
type Flusher struct {
	bpm      *BufferPoolManager
	interval time.Duration
	limiter  *rate.Limiter
}

// NewFlusher creates a flusher for bpm. pagesPerSecond <= 0 disables throttling.
func NewFlusher(bpm *BufferPoolManager, interval time.Duration, pagesPerSecond int) *Flusher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(pagesPerSecond), pagesPerSecond)
	}
	return &Flusher{
		bpm:      bpm,
		interval: interval,
		limiter:  limiter,
	}
}

// Run flushes every interval until ctx is done.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := f.FlushOnce(ctx)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				f.bpm.logger.WithError(err).Warnf("Background flush failed after %d pages.", n)
			} else if n > 0 {
				f.bpm.logger.Debugf("Background flush wrote %d pages.", n)
			}
		}
	}
}

// FlushOnce writes the pages that are dirty right now and returns how many it
// wrote. Each page is read-latched while it is written, so writers holding
// the latch finish first. Flushing does not count as an access: the
// replacer state of a flushed page is left as it was.
func (f *Flusher) FlushOnce(ctx context.Context) (int, error) {
	flushed := 0
	var errs []error
	for _, pageId := range f.bpm.dirtyPages() {
		if err := f.limiter.Wait(ctx); err != nil {
			return flushed, err
		}
		ok, err := f.flushPage(pageId)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			flushed++
		}
	}
	return flushed, errors.Join(errs...)
}

func (f *Flusher) flushPage(pageId common.PageId) (bool, error) {
	frameId, ok := f.bpm.pageTable.lookup(pageId)
	if !ok {
		return false, nil
	}
	// The page may be evicted before the latch is taken; flushFrame checks
	// it again under the pool mutex.
	frame := &f.bpm.frames[frameId]
	frame.RLock()
	defer frame.RUnlock()
	return f.bpm.flushFrame(frameId, pageId)
}
