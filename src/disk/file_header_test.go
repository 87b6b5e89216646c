package disk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"bufferpool-golang/src/common"
)

func TestHeaderEncodeDecode(t *testing.T) {
	data := make([]byte, common.PageSize)
	firstHdr := newHeaderPage()

	for i := 0; i < 50; i++ {
		switch rand.Intn(3) {
		case 0:
			firstHdr.pushFreePage(common.PageId(rand.Intn(1 << 16)))
		case 1:
			if firstHdr.hasFreePage() {
				firstHdr.popFreePage()
			}
		default:
			firstHdr.nextPageId = common.PageId(rand.Intn(1 << 16))
		}
	}
	firstHdr.encode(data)

	secondHdr := decodeHeaderPage(data)
	require.Equal(t, firstHdr.nextPageId, secondHdr.nextPageId)
	require.Equal(t, len(firstHdr.freePages), len(secondHdr.freePages))
	for i := range firstHdr.freePages {
		require.Equal(t, firstHdr.freePages[i], secondHdr.freePages[i])
	}
}

func TestPushFreePage(t *testing.T) {
	hdr := newHeaderPage()

	for i := 0; i < 10; i++ {
		require.True(t, hdr.pushFreePage(common.PageId(i)))
	}
	require.Equal(t, 10, len(hdr.freePages))
	require.False(t, hdr.pushFreePage(common.PageId(3)))
	require.Equal(t, 10, len(hdr.freePages))
}

func TestPushFreePageFull(t *testing.T) {
	hdr := newHeaderPage()
	for i := 0; i < maxFreePages; i++ {
		require.True(t, hdr.pushFreePage(common.PageId(i+1)))
	}
	require.False(t, hdr.pushFreePage(common.PageId(maxFreePages+1)))

	data := make([]byte, common.PageSize)
	hdr.encode(data)
	require.Equal(t, maxFreePages, len(decodeHeaderPage(data).freePages))
}

func TestPopFreePage(t *testing.T) {
	hdr := newHeaderPage()

	for i := 0; i < 10; i++ {
		hdr.pushFreePage(common.PageId(i))
	}
	for i := 0; i < 10; i++ {
		require.Equal(t, common.PageId(i), hdr.popFreePage())
	}
	require.False(t, hdr.hasFreePage())
}
