package common

import "fmt"

// PageId identifies a page on disk. Ids are stable for the lifetime of the page.
type PageId int32

const (
	// InvalidPageId marks a frame that holds no page.
	InvalidPageId = PageId(-1)

	// HeaderPageId is reserved by file backed stores for their own metadata.
	HeaderPageId = PageId(0)

	PageSize = 4096
)

func (id PageId) IsValid() bool { return id >= 0 }

func (id PageId) String() string {
	if !id.IsValid() {
		return "page(invalid)"
	}
	return fmt.Sprintf("page(%d)", int32(id))
}
