package buffer

import (
	"container/list"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ncw/directio"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"bufferpool-golang/src/common"
)

// DiskManager is the page store behind a pool. Buffers passed to ReadPage and
// WritePage are common.PageSize bytes long.
type DiskManager interface {
	ReadPage(pageId common.PageId, data []byte) error
	WritePage(pageId common.PageId, data []byte) error
	AllocatePage() (common.PageId, error)
	DeallocatePage(pageId common.PageId) error
}

type options struct {
	id         string
	logger     *log.Logger
	registerer prometheus.Registerer
}

type Option func(*options)

// WithId names the pool in logs and metrics. A random id is used otherwise.
func WithId(id string) Option {
	return func(o *options) { o.id = id }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer exports the pool's metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// BufferPoolManager caches pages of a DiskManager in a fixed set of frames.
//
// A single mutex covers the page table, the free list, frame metadata and the
// replacer, so a frame can never be pinned and evicted at the same time.
// Frame contents are latched separately by callers, see Frame.
type BufferPoolManager struct {
	id          string
	size        int
	frames      []Frame
	replacer    Replacer
	freeList    list.List
	pageTable   *pageTable
	diskManager DiskManager
	metrics     *Metrics
	logger      *log.Entry
	mu          sync.Mutex
}

// NewBufferPoolManager creates a pool of size frames. A nil replacer selects
// the clock policy.
func NewBufferPoolManager(size int, diskManager DiskManager, replacer Replacer, opts ...Option) (*BufferPoolManager, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", common.ErrInvalidPoolSize, size)
	}
	o := options{logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if replacer == nil {
		replacer = NewClockReplacer(size)
	}
	bpm := &BufferPoolManager{
		id:          o.id,
		size:        size,
		frames:      make([]Frame, size),
		replacer:    replacer,
		pageTable:   newPageTable(),
		diskManager: diskManager,
		logger:      o.logger.WithField("pool", o.id),
	}
	for i := 0; i < size; i++ {
		bpm.frames[i] = Frame{
			data:   directio.AlignedBlock(common.PageSize),
			pageId: common.InvalidPageId,
			state:  frameFree,
		}
		bpm.freeList.PushBack(i)
	}
	if o.registerer != nil {
		metrics, err := newMetrics(o.registerer, bpm)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		bpm.metrics = metrics
	}
	return bpm, nil
}

func (bpm *BufferPoolManager) Id() string { return bpm.id }

func (bpm *BufferPoolManager) Size() int { return bpm.size }

// FetchPage returns the frame holding pageId, pinned. The page is read from
// disk when it is not resident.
func (bpm *BufferPoolManager) FetchPage(pageId common.PageId) (*Frame, error) {
	if !pageId.IsValid() {
		return nil, fmt.Errorf("fetch %v: %w", pageId, common.ErrInvalidPageId)
	}
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if frameId, ok := bpm.pageTable.lookup(pageId); ok {
		bpm.pin(frameId)
		bpm.metrics.hit()
		return &bpm.frames[frameId], nil
	}
	bpm.metrics.miss()
	frameId, err := bpm.acquireFrame()
	if err != nil {
		return nil, fmt.Errorf("fetch %v: %w", pageId, err)
	}
	frame := &bpm.frames[frameId]
	if err := bpm.diskManager.ReadPage(pageId, frame.data); err != nil {
		bpm.metrics.ioError()
		bpm.releaseFrame(frameId)
		bpm.logger.WithError(err).Warnf("Cannot read page %d from disk.", pageId)
		return nil, fmt.Errorf("fetch %v: %w", pageId, err)
	}
	bpm.install(frameId, pageId)
	return frame, nil
}

// NewPage allocates a fresh page id and returns it with a zeroed, pinned frame.
func (bpm *BufferPoolManager) NewPage() (common.PageId, *Frame, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameId, err := bpm.acquireFrame()
	if err != nil {
		return common.InvalidPageId, nil, fmt.Errorf("new page: %w", err)
	}
	pageId, err := bpm.diskManager.AllocatePage()
	if err != nil {
		bpm.releaseFrame(frameId)
		bpm.logger.WithError(err).Errorf("Allocate page failed.")
		return common.InvalidPageId, nil, fmt.Errorf("new page: %w", err)
	}
	bpm.install(frameId, pageId)
	return pageId, &bpm.frames[frameId], nil
}

// UnpinPage releases one pin on pageId. isDirty marks the page modified; the
// flag stays set until the page is flushed.
func (bpm *BufferPoolManager) UnpinPage(pageId common.PageId, isDirty bool) error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameId, ok := bpm.pageTable.lookup(pageId)
	if !ok {
		bpm.logger.Warnf("Trying to unpin page %d, but the page is not in the buffer.", pageId)
		return fmt.Errorf("unpin %v: %w: page not resident", pageId, common.ErrInvalidUnpin)
	}
	frame := &bpm.frames[frameId]
	if frame.pinCount == 0 {
		bpm.logger.Warnf("Trying to unpin page %d, but page's pin count is zero.", pageId)
		return fmt.Errorf("unpin %v: %w: pin count is zero", pageId, common.ErrInvalidUnpin)
	}
	frame.pinCount--
	frame.isDirty = frame.isDirty || isDirty
	if frame.pinCount == 0 {
		frame.state = frameEvictable
		bpm.replacer.Track(frameId)
	}
	return nil
}

// FlushPage writes pageId to disk whether or not it is pinned or dirty, then
// marks it clean.
func (bpm *BufferPoolManager) FlushPage(pageId common.PageId) error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameId, ok := bpm.pageTable.lookup(pageId)
	if !ok {
		return fmt.Errorf("flush %v: %w", pageId, common.ErrPageNotFound)
	}
	if err := bpm.writeBack(&bpm.frames[frameId]); err != nil {
		return fmt.Errorf("flush %v: %w", pageId, err)
	}
	bpm.metrics.flush()
	return nil
}

// DeletePage drops an unpinned page from the pool and returns its id to the
// disk manager. The frame goes straight back to the free list.
func (bpm *BufferPoolManager) DeletePage(pageId common.PageId) error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameId, ok := bpm.pageTable.lookup(pageId)
	if !ok {
		return fmt.Errorf("delete %v: %w", pageId, common.ErrPageNotFound)
	}
	frame := &bpm.frames[frameId]
	if frame.pinCount > 0 {
		return fmt.Errorf("delete %v: %w (pin count %d)", pageId, common.ErrPagePinned, frame.pinCount)
	}
	if frame.isDirty {
		if err := bpm.writeBack(frame); err != nil {
			return fmt.Errorf("delete %v: %w", pageId, err)
		}
	}
	if err := bpm.diskManager.DeallocatePage(pageId); err != nil {
		bpm.logger.WithError(err).Errorf("Cannot deallocate page %d.", pageId)
		return fmt.Errorf("delete %v: %w", pageId, err)
	}
	bpm.replacer.Pin(frameId)
	bpm.pageTable.unbind(pageId)
	bpm.releaseFrame(frameId)
	return nil
}

// FlushAll writes every dirty resident page. It keeps going past failures
// and returns all of them joined.
func (bpm *BufferPoolManager) FlushAll() error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	var errs []error
	for i := range bpm.frames {
		frame := &bpm.frames[i]
		if frame.state == frameFree || !frame.isDirty {
			continue
		}
		if err := bpm.writeBack(frame); err != nil {
			errs = append(errs, fmt.Errorf("flush %v: %w", frame.pageId, err))
			continue
		}
		bpm.metrics.flush()
	}
	return errors.Join(errs...)
}

// Close flushes all dirty pages. The pool must not be used afterwards.
func (bpm *BufferPoolManager) Close() error {
	if err := bpm.FlushAll(); err != nil {
		bpm.logger.WithError(err).Errorf("Cannot flush pool on close.")
		return err
	}
	bpm.logger.Debugf("Buffer pool closed.")
	return nil
}

// IsResident reports whether pageId currently occupies a frame. It does not
// take the pool mutex, so the answer may be stale by the time it is used.
func (bpm *BufferPoolManager) IsResident(pageId common.PageId) bool {
	_, ok := bpm.pageTable.lookup(pageId)
	return ok
}

// acquireFrame returns a frame ready to receive a page: a free one if any,
// otherwise a victim that has been written back and unbound.
func (bpm *BufferPoolManager) acquireFrame() (int, error) {
	if bpm.freeList.Len() > 0 {
		elem := bpm.freeList.Front()
		bpm.freeList.Remove(elem)
		return elem.Value.(int), nil
	}
	frameId, found := bpm.replacer.Victim()
	if !found {
		bpm.metrics.exhaust()
		bpm.logger.Warnf("Buffer pool is full.")
		return 0, common.ErrPoolExhausted
	}
	frame := &bpm.frames[frameId]
	oldPageId := frame.pageId
	dirty := frame.isDirty
	if dirty {
		if err := bpm.writeBack(frame); err != nil {
			bpm.replacer.Track(frameId)
			bpm.logger.WithError(err).Errorf("Cannot write page %d back.", oldPageId)
			return 0, err
		}
	}
	bpm.pageTable.unbind(oldPageId)
	frame.reset()
	bpm.metrics.evict(dirty)
	bpm.logger.WithFields(log.Fields{
		"frame": frameId,
		"page":  oldPageId,
		"dirty": dirty,
	}).Debugf("Evicted page.")
	return frameId, nil
}

func (bpm *BufferPoolManager) install(frameId int, pageId common.PageId) {
	frame := &bpm.frames[frameId]
	frame.pageId = pageId
	frame.pinCount = 1
	frame.isDirty = false
	frame.state = framePinned
	bpm.pageTable.bind(pageId, frameId)
}

// releaseFrame returns an unbound frame to the free list.
func (bpm *BufferPoolManager) releaseFrame(frameId int) {
	bpm.frames[frameId].reset()
	bpm.freeList.PushBack(frameId)
}

func (bpm *BufferPoolManager) pin(frameId int) {
	frame := &bpm.frames[frameId]
	frame.pinCount++
	if frame.pinCount == 1 {
		frame.state = framePinned
		bpm.replacer.Pin(frameId)
	}
}

func (bpm *BufferPoolManager) writeBack(frame *Frame) error {
	if err := bpm.diskManager.WritePage(frame.pageId, frame.data); err != nil {
		bpm.metrics.ioError()
		return err
	}
	frame.isDirty = false
	return nil
}

// flushFrame writes frameId back if it still holds pageId and is dirty. The
// frame is neither pinned nor handed to the replacer, so its eviction order
// does not change.
func (bpm *BufferPoolManager) flushFrame(frameId int, pageId common.PageId) (bool, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frame := &bpm.frames[frameId]
	if frame.state == frameFree || frame.pageId != pageId || !frame.isDirty {
		return false, nil
	}
	if err := bpm.writeBack(frame); err != nil {
		return false, fmt.Errorf("flush %v: %w", pageId, err)
	}
	bpm.metrics.flush()
	return true, nil
}

func (bpm *BufferPoolManager) dirtyPages() []common.PageId {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	var pageIds []common.PageId
	for i := range bpm.frames {
		if bpm.frames[i].state != frameFree && bpm.frames[i].isDirty {
			pageIds = append(pageIds, bpm.frames[i].pageId)
		}
	}
	sort.Slice(pageIds, func(i, j int) bool { return pageIds[i] < pageIds[j] })
	return pageIds
}
