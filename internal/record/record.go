// Package record decodes SQLite records: the per-cell header of serial
// types and the column values they describe, exposed as a "lazy cell" that
// materializes each column on demand rather than eagerly parsing the whole
// row.
package record

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/nnamm/litesql/internal/liteerr"
	"github.com/nnamm/litesql/internal/varint"
)

// Cell is a lazily-decoded record: it knows where its column values begin
// and what serial type each one has, but doesn't materialize any value
// until Display or Compare is called. It holds only a reference to the page buffer it
// was built from and byte offsets into it — no copy of the raw bytes.
type Cell struct {
	buf         []byte // shared page buffer (or a sub-slice of one)
	rowid       int64  // table-leaf cells: decoded rowid; index cells: unused (see Rowid)
	hasRowid    bool   // true for table-leaf cells
	valuesBegin int    // offset, within buf, of the first column's bytes
	types       []SerialType
	rowidFromLastCol bool // true for index cells: rowid is the last column, int-text
}

// DecodeLeafCell decodes a table-leaf or index-leaf record's header
// (payload size, optional rowid, record-header size, then the serial
// types) starting at buf[offset]. For table-leaf cells (hasRowid==true) the
// rowid is read explicitly; for index-leaf cells (hasRowid==false) the
// rowid is derived from the last column's integer text each time Rowid()
// is called; it is not stored on the Cell.
func DecodeLeafCell(buf []byte, offset int, hasRowid bool) (*Cell, error) {
	payloadSize, n, err := varint.Decode(buf, offset)
	if err != nil {
		return nil, wrap("record.DecodeLeafCell", "payload_size", err)
	}
	offset += n

	var rowid int64
	if hasRowid {
		rowid, n, err = varint.Decode(buf, offset)
		if err != nil {
			return nil, wrap("record.DecodeLeafCell", "rowid", err)
		}
		offset += n
	}

	payloadEnd := offset + int(payloadSize)
	if payloadEnd > len(buf) {
		return nil, liteerr.New("record.DecodeLeafCell", liteerr.SliceConversion,
			fmt.Errorf("payload extends past buffer: need %d, have %d", payloadEnd, len(buf)), nil)
	}

	c, err := decodeRecordBody(buf, offset, payloadEnd)
	if err != nil {
		return nil, err
	}
	c.rowid = rowid
	c.hasRowid = hasRowid
	c.rowidFromLastCol = !hasRowid
	return c, nil
}

// decodeRecordBody decodes the record header (header-size varint then
// serial-type varints spanning exactly that many bytes) and records where
// the column values begin. end bounds the payload (exclusive).
func decodeRecordBody(buf []byte, start, end int) (*Cell, error) {
	headerSize, n, err := varint.Decode(buf, start)
	if err != nil {
		return nil, wrap("record.decodeRecordBody", "header_size", err)
	}
	headerEnd := start + int(headerSize)
	if headerEnd > end {
		return nil, liteerr.New("record.decodeRecordBody", liteerr.SliceConversion,
			fmt.Errorf("record header extends past payload: header end %d, payload end %d", headerEnd, end), nil)
	}

	pos := start + n
	var types []SerialType
	for pos < headerEnd {
		st, n2, err := varint.Decode(buf, pos)
		if err != nil {
			return nil, wrap("record.decodeRecordBody", "serial_type", err)
		}
		t := SerialType(st)
		if !t.Valid() {
			return nil, liteerr.New("record.decodeRecordBody", liteerr.InvalidVarint,
				fmt.Errorf("reserved serial type %d", st), nil)
		}
		types = append(types, t)
		pos += n2
	}

	return &Cell{buf: buf, valuesBegin: headerEnd, types: types}, nil
}

// NumColumns returns the number of columns in the record.
func (c *Cell) NumColumns() int { return len(c.types) }

// ColumnType returns the serial type of column i.
func (c *Cell) ColumnType(i int) SerialType { return c.types[i] }

func (c *Cell) columnOffset(i int) int {
	off := c.valuesBegin
	for j := 0; j < i; j++ {
		off += c.types[j].Size()
	}
	return off
}

// columnBytes returns the raw bytes for column i.
func (c *Cell) columnBytes(i int) ([]byte, error) {
	if i < 0 || i >= len(c.types) {
		return nil, fmt.Errorf("column index %d out of range [0,%d)", i, len(c.types))
	}
	off := c.columnOffset(i)
	size := c.types[i].Size()
	if off+size > len(c.buf) {
		return nil, fmt.Errorf("column %d extends past buffer: need %d, have %d", i, off+size, len(c.buf))
	}
	return c.buf[off : off+size], nil
}

// Display returns the textual rendition of column i used for output:
// NULL -> "NULL", ints -> base-10, text -> raw UTF-8, bool serial types ->
// "true"/"false", blobs -> lowercase hex.
func (c *Cell) Display(i int) (string, error) {
	return c.render(i, false)
}

// Compare returns the stable representation of column i used for predicate
// evaluation: identical to Display except text is wrapped in double quotes.
func (c *Cell) Compare(i int) (string, error) {
	return c.render(i, true)
}

func (c *Cell) render(i int, quoteText bool) (string, error) {
	if i < 0 || i >= len(c.types) {
		return "", fmt.Errorf("column index %d out of range [0,%d)", i, len(c.types))
	}
	t := c.types[i]
	data, err := c.columnBytes(i)
	if err != nil {
		return "", liteerr.New("record.Cell.render", liteerr.SliceConversion, err, map[string]any{"column": i})
	}

	switch t {
	case TypeNull:
		return "NULL", nil
	case TypeZero:
		return "false", nil
	case TypeOne:
		return "true", nil
	case TypeInt8:
		return strconv.FormatInt(int64(int8(data[0])), 10), nil
	case TypeInt16:
		return strconv.FormatInt(int64(int16(binary.BigEndian.Uint16(data))), 10), nil
	case TypeInt24:
		return strconv.FormatInt(signExtend(data, 3), 10), nil
	case TypeInt32:
		return strconv.FormatInt(int64(int32(binary.BigEndian.Uint32(data))), 10), nil
	case TypeInt48:
		return strconv.FormatInt(signExtend(data, 6), 10), nil
	case TypeInt64:
		return strconv.FormatInt(int64(binary.BigEndian.Uint64(data)), 10), nil
	case TypeFloat:
		bits := binary.BigEndian.Uint64(data)
		f := math.Float64frombits(bits)
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	default:
		if t.IsText() {
			s := string(data)
			if quoteText {
				return `"` + s + `"`, nil
			}
			return s, nil
		}
		if t.IsBlob() {
			return hex.EncodeToString(data), nil
		}
		return "", fmt.Errorf("unrenderable serial type %d", uint64(t))
	}
}

// signExtend interprets the first n big-endian bytes of data as a signed
// integer of n*8 bits and sign-extends it to int64. Used for the 24-bit and
// 48-bit integer serial types, which have no native Go integer width.
func signExtend(data []byte, n int) int64 {
	var v int64
	for i := 0; i < n; i++ {
		v = (v << 8) | int64(data[i])
	}
	signBit := int64(1) << uint(n*8-1)
	if v&signBit != 0 {
		v -= signBit << 1
	}
	return v
}

// Rowid returns the row identifier for this cell: the decoded rowid varint
// for table cells, or, for index cells, the integer value of the last
// indexed column (which must decode as integer text).
func (c *Cell) Rowid() (int64, error) {
	if c.hasRowid {
		return c.rowid, nil
	}
	if !c.rowidFromLastCol || len(c.types) == 0 {
		return 0, fmt.Errorf("cell carries no rowid")
	}
	last := len(c.types) - 1
	s, err := c.Display(last)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("last index column %q does not decode as an integer rowid: %w", s, err)
	}
	return v, nil
}

func wrap(op, what string, err error) error {
	return liteerr.New(op, liteerr.InvalidVarint, err, map[string]any{"field": what})
}
