package disk

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/ncw/directio"
	log "github.com/sirupsen/logrus"

	"bufferpool-golang/src/common"
)

type Options struct {
	// DirectIO opens the data file with O_DIRECT. Not every filesystem
	// supports it (tmpfs does not).
	DirectIO bool
	// MaxPages caps the number of page ids the file hands out. Zero means
	// unbounded.
	MaxPages int
}

// DiskManager stores pages in a single file. Page 0 holds a header with the
// next unused page id and the list of deallocated ids; data pages start at 1.
type DiskManager struct {
	fileName      string
	options       Options
	header        *headerPage
	headerRawData []byte

	fi *os.File
	mu sync.Mutex
}

func NewDiskManager(fileName string, options Options) (*DiskManager, error) {
	var fi *os.File
	var err error
	if options.DirectIO {
		fi, err = directio.OpenFile(fileName, os.O_CREATE|os.O_RDWR|os.O_SYNC, 0644)
	} else {
		fi, err = os.OpenFile(fileName, os.O_CREATE|os.O_RDWR|os.O_SYNC, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", common.ErrIO, fileName, err)
	}
	dm := &DiskManager{
		fileName:      fileName,
		options:       options,
		headerRawData: directio.AlignedBlock(common.PageSize),
		fi:            fi,
	}
	size, err := dm.getFileSize()
	if err != nil {
		fi.Close()
		return nil, err
	}
	if size == 0 { // New file
		dm.header = newHeaderPage()
		if err := dm.writeHeaderPage(); err != nil {
			fi.Close()
			return nil, fmt.Errorf("write header page: %w", err)
		}
		log.WithField("file", fileName).Debugf("Created data file.")
	} else {
		if err := dm.readPageData(common.HeaderPageId, dm.headerRawData); err != nil {
			fi.Close()
			return nil, fmt.Errorf("read header page: %w", err)
		}
		dm.header = decodeHeaderPage(dm.headerRawData)
		log.WithFields(log.Fields{
			"file":       fileName,
			"nextPageId": dm.header.nextPageId,
			"freePages":  len(dm.header.freePages),
		}).Debugf("Opened data file.")
	}
	return dm, nil
}

func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.fi.Close()
}

// AllocatePage hands out a deallocated id if there is one, otherwise the next
// id past the end of the file. The page is zeroed on disk.
func (dm *DiskManager) AllocatePage() (common.PageId, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var pageId common.PageId
	reused := dm.header.hasFreePage()
	if reused {
		pageId = dm.header.popFreePage()
	} else {
		if dm.options.MaxPages > 0 && int(dm.header.nextPageId) > dm.options.MaxPages {
			return common.InvalidPageId, common.ErrOutOfStorage
		}
		pageId = dm.header.nextPageId
	}
	if err := dm.writePageData(pageId, directio.AlignedBlock(common.PageSize)); err != nil {
		if reused {
			dm.header.freePages = append([]common.PageId{pageId}, dm.header.freePages...)
		}
		return common.InvalidPageId, err
	}
	if !reused {
		dm.header.nextPageId++
	}
	if err := dm.writeHeaderPage(); err != nil {
		return common.InvalidPageId, fmt.Errorf("write header page: %w", err)
	}
	return pageId, nil
}

// DeallocatePage returns pageId to the free list. When the header has no room
// left the page stays allocated and ErrOutOfStorage is returned.
func (dm *DiskManager) DeallocatePage(pageId common.PageId) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.checkPageId(pageId); err != nil {
		return err
	}
	if !dm.header.pushFreePage(pageId) {
		log.WithField("pageId", pageId).Warnf("Free list is full, page stays allocated.")
		return fmt.Errorf("%w: deallocate page %d: free list is full", common.ErrOutOfStorage, pageId)
	}
	if err := dm.writeHeaderPage(); err != nil {
		return fmt.Errorf("write header page: %w", err)
	}
	return nil
}

func (dm *DiskManager) ReadPage(pageId common.PageId, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.checkPageId(pageId); err != nil {
		return err
	}
	if dm.options.DirectIO && !isAligned(data) {
		block := directio.AlignedBlock(common.PageSize)
		if err := dm.readPageData(pageId, block); err != nil {
			return err
		}
		copy(data, block)
		return nil
	}
	return dm.readPageData(pageId, data)
}

func (dm *DiskManager) WritePage(pageId common.PageId, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.checkPageId(pageId); err != nil {
		return err
	}
	if dm.options.DirectIO && !isAligned(data) {
		block := directio.AlignedBlock(common.PageSize)
		copy(block, data)
		data = block
	}
	return dm.writePageData(pageId, data)
}

// NumPages returns the number of page slots in the file, header included.
func (dm *DiskManager) NumPages() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return int(dm.header.nextPageId)
}

func (dm *DiskManager) checkPageId(pageId common.PageId) error {
	if pageId <= common.HeaderPageId || pageId >= dm.header.nextPageId {
		return fmt.Errorf("%w: %d", common.ErrInvalidPageId, pageId)
	}
	if dm.header.isFree(pageId) {
		return fmt.Errorf("%w: %d is deallocated", common.ErrInvalidPageId, pageId)
	}
	return nil
}

// isAligned reports whether b starts on a directio.AlignSize boundary.
func isAligned(b []byte) bool {
	align := uintptr(directio.AlignSize)
	if align == 0 {
		return true
	}
	if len(b) == 0 {
		return false
	}
	return uintptr(unsafe.Pointer(&b[0]))&(align-1) == 0
}

func (dm *DiskManager) getFileSize() (int64, error) {
	stat, err := dm.fi.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %w", common.ErrIO, dm.fileName, err)
	}
	return stat.Size(), nil
}

func (dm *DiskManager) readPageData(pageId common.PageId, data []byte) error {
	if len(data) < common.PageSize {
		return fmt.Errorf("%w: read page %d: buffer of %d bytes", common.ErrIO, pageId, len(data))
	}
	offset := int64(pageId) * common.PageSize
	n, err := dm.fi.ReadAt(data[:common.PageSize], offset)
	if err != nil {
		return fmt.Errorf("%w: read page %d: %w", common.ErrIO, pageId, err)
	}
	if n < common.PageSize {
		return fmt.Errorf("%w: read page %d: short read of %d bytes", common.ErrIO, pageId, n)
	}
	return nil
}

func (dm *DiskManager) writePageData(pageId common.PageId, data []byte) error {
	if len(data) < common.PageSize {
		return fmt.Errorf("%w: write page %d: buffer of %d bytes", common.ErrIO, pageId, len(data))
	}
	offset := int64(pageId) * common.PageSize
	if _, err := dm.fi.WriteAt(data[:common.PageSize], offset); err != nil {
		return fmt.Errorf("%w: write page %d: %w", common.ErrIO, pageId, err)
	}
	return nil
}

func (dm *DiskManager) writeHeaderPage() error {
	dm.header.encode(dm.headerRawData)
	return dm.writePageData(common.HeaderPageId, dm.headerRawData)
}
