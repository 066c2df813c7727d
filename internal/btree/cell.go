package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/nnamm/litesql/internal/liteerr"
	"github.com/nnamm/litesql/internal/record"
	"github.com/nnamm/litesql/internal/varint"
)

// interiorEntry is a parsed table-interior or index-interior cell: the
// child page it routes to, plus enough of the separator key to compare
// against a search target.
type interiorEntry struct {
	leftChild uint32
	rowid     int64        // table-interior: the separator rowid
	key       *record.Cell // index-interior: the separator's decoded record
}

// parseTableLeafCell decodes a table-leaf cell at buf[offset]: payload
// size, rowid, record header and body.
func parseTableLeafCell(buf []byte, offset int) (*record.Cell, error) {
	return record.DecodeLeafCell(buf, offset, true)
}

// parseTableInteriorCell decodes a table-interior cell: a 4-byte child page
// number followed by a varint rowid key.
func parseTableInteriorCell(buf []byte, offset int) (interiorEntry, error) {
	if offset+4 > len(buf) {
		return interiorEntry{}, liteerr.New("btree.parseTableInteriorCell", liteerr.SliceConversion,
			fmt.Errorf("need 4 bytes at offset %d", offset), nil)
	}
	child := binary.BigEndian.Uint32(buf[offset : offset+4])
	rowid, _, err := varint.Decode(buf, offset+4)
	if err != nil {
		return interiorEntry{}, err
	}
	return interiorEntry{leftChild: child, rowid: rowid}, nil
}

// parseIndexLeafCell decodes an index-leaf cell: identical to a table-leaf
// cell but without the separate rowid varint — the row-id is the last
// indexed column, text-encoded.
func parseIndexLeafCell(buf []byte, offset int) (*record.Cell, error) {
	return record.DecodeLeafCell(buf, offset, false)
}

// parseIndexInteriorCell decodes an index-interior cell: a 4-byte child
// page number followed by an index-leaf-shaped payload carrying the
// separator key.
func parseIndexInteriorCell(buf []byte, offset int) (interiorEntry, error) {
	if offset+4 > len(buf) {
		return interiorEntry{}, liteerr.New("btree.parseIndexInteriorCell", liteerr.SliceConversion,
			fmt.Errorf("need 4 bytes at offset %d", offset), nil)
	}
	child := binary.BigEndian.Uint32(buf[offset : offset+4])
	key, err := record.DecodeLeafCell(buf, offset+4, false)
	if err != nil {
		return interiorEntry{}, err
	}
	return interiorEntry{leftChild: child, key: key}, nil
}
