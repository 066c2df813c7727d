// Package pageformat decodes the 100-byte SQLite file header and the
// 8/12-byte B-tree page header that prefixes every page.
package pageformat

import (
	"encoding/binary"
	"fmt"

	"github.com/nnamm/litesql/internal/liteerr"
)

// FileHeaderSize is the fixed size, in bytes, of the file header at the
// start of page 1.
const FileHeaderSize = 100

var magic = [16]byte{'S', 'Q', 'L', 'i', 't', 'e', ' ', 'f', 'o', 'r', 'm', 'a', 't', ' ', '3', 0}

// FileHeader is the subset of the 100-byte file header this engine needs.
type FileHeader struct {
	PageSize       uint16
	FileChangeCntr uint32
	SchemaCookie   uint32
}

// ParseFileHeader validates the magic string and decodes the fixed-width
// big-endian fields of the 100-byte file header. A header page-size of 1
// means the real page size is 65536 (the one value uint16 can't represent).
func ParseFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) < FileHeaderSize {
		return FileHeader{}, liteerr.New("pageformat.ParseFileHeader", liteerr.SliceConversion,
			fmt.Errorf("need %d bytes, have %d", FileHeaderSize, len(buf)), nil)
	}
	for i := range magic {
		if buf[i] != magic[i] {
			return FileHeader{}, liteerr.New("pageformat.ParseFileHeader", liteerr.InvalidHeaderString,
				fmt.Errorf("bad magic %q", buf[:16]), nil)
		}
	}
	pageSize := binary.BigEndian.Uint16(buf[16:18])
	actual := uint32(pageSize)
	if pageSize == 1 {
		actual = 65536
	}
	if actual < 512 || actual > 65536 || actual&(actual-1) != 0 {
		return FileHeader{}, liteerr.New("pageformat.ParseFileHeader", liteerr.InvalidHeaderString,
			fmt.Errorf("invalid page size %d", actual), nil)
	}
	return FileHeader{
		PageSize:       pageSize,
		FileChangeCntr: binary.BigEndian.Uint32(buf[24:28]),
		SchemaCookie:   binary.BigEndian.Uint32(buf[40:44]),
	}, nil
}

// RealPageSize returns the real page size, accounting for the PageSize==1 => 65536 case.
func (h FileHeader) RealPageSize() int {
	if h.PageSize == 1 {
		return 65536
	}
	return int(h.PageSize)
}

// PageType identifies which of the four B-tree page variants a page header
// describes.
type PageType uint8

const (
	InteriorIndex PageType = 0x02
	InteriorTable PageType = 0x05
	LeafIndex     PageType = 0x0a
	LeafTable     PageType = 0x0d
)

func (t PageType) IsInterior() bool {
	return t == InteriorIndex || t == InteriorTable
}

func (t PageType) IsLeaf() bool {
	return t == LeafIndex || t == LeafTable
}

func (t PageType) IsIndex() bool {
	return t == InteriorIndex || t == LeafIndex
}

func (t PageType) IsTable() bool {
	return t == InteriorTable || t == LeafTable
}

func (t PageType) String() string {
	switch t {
	case InteriorIndex:
		return "interior_index"
	case InteriorTable:
		return "interior_table"
	case LeafIndex:
		return "leaf_index"
	case LeafTable:
		return "leaf_table"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// PageHeader is the decoded 8-byte (leaf) or 12-byte (interior) B-tree page
// header.
type PageHeader struct {
	PageType            PageType
	FirstFreeblock      uint16
	CellCount           uint16
	CellContentStart    uint16
	FragmentedFreeBytes uint8
	RightmostPointer    uint32 // valid iff PageType.IsInterior()
}

// ParsePageHeader decodes the page header starting at buf[offset] and
// returns it along with the offset just past the header (where the
// cell-pointer array begins).
func ParsePageHeader(buf []byte, offset int) (PageHeader, int, error) {
	if offset+8 > len(buf) {
		return PageHeader{}, 0, liteerr.New("pageformat.ParsePageHeader", liteerr.SliceConversion,
			fmt.Errorf("need 8 bytes at offset %d, have %d", offset, len(buf)-offset), nil)
	}
	pt := PageType(buf[offset])
	switch pt {
	case InteriorIndex, InteriorTable, LeafIndex, LeafTable:
	default:
		return PageHeader{}, 0, liteerr.New("pageformat.ParsePageHeader", liteerr.InvalidPageType,
			fmt.Errorf("unknown page type byte 0x%02x", buf[offset]), nil)
	}

	h := PageHeader{
		PageType:            pt,
		FirstFreeblock:      binary.BigEndian.Uint16(buf[offset+1 : offset+3]),
		CellCount:           binary.BigEndian.Uint16(buf[offset+3 : offset+5]),
		CellContentStart:    binary.BigEndian.Uint16(buf[offset+5 : offset+7]),
		FragmentedFreeBytes: buf[offset+7],
	}
	next := offset + 8
	if pt.IsInterior() {
		if next+4 > len(buf) {
			return PageHeader{}, 0, liteerr.New("pageformat.ParsePageHeader", liteerr.SliceConversion,
				fmt.Errorf("need 4 more bytes for rightmost pointer at offset %d", next), nil)
		}
		h.RightmostPointer = binary.BigEndian.Uint32(buf[next : next+4])
		next += 4
	}
	return h, next, nil
}
