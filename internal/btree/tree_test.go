package btree

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/nnamm/litesql/internal/pager"
	"github.com/nnamm/litesql/internal/predicate"
	"github.com/nnamm/litesql/internal/record"
)

const pageSize = 512

// fakeFile is an in-memory ReaderAt backing a set of fixed-size pages.
// The pager parses page 1's header at byte 100 (after the file header), so
// the fixtures below, which put every page header at byte 0, start at page 2.
type fakeFile struct {
	pages map[int][]byte // 1-based page number -> full page bytes
}

func newFakeFile() *fakeFile { return &fakeFile{pages: make(map[int][]byte)} }

func (f *fakeFile) ReadAt(p []byte, off int64) (int, error) {
	pageNum := int(off)/pageSize + 1
	buf, ok := f.pages[pageNum]
	if !ok {
		buf = make([]byte, pageSize)
	}
	n := copy(p, buf)
	return n, nil
}

func (f *fakeFile) setPage(num int, buf []byte) {
	full := make([]byte, pageSize)
	copy(full, buf)
	f.pages[num] = full
}

func putCellPtrs(buf []byte, headerEnd int, offsets []int) {
	for i, off := range offsets {
		pos := headerEnd + i*2
		binary.BigEndian.PutUint16(buf[pos:pos+2], uint16(off))
	}
}

func encodeVarint(v uint64) []byte {
	if v < 0x80 {
		return []byte{byte(v)}
	}
	return []byte{byte((v>>7)&0x7f) | 0x80, byte(v & 0x7f)}
}

// buildTableLeafCell builds a raw table-leaf cell carrying a single int8
// column equal to the low byte of rowid.
func buildTableLeafCell(rowid int64) []byte {
	col := []byte{byte(rowid)}
	types := []record.SerialType{record.TypeInt8}

	var headerBody []byte
	for _, t := range types {
		headerBody = append(headerBody, encodeVarint(uint64(t))...)
	}
	headerSize := len(headerBody) + 1
	header := append(encodeVarint(uint64(headerSize)), headerBody...)
	payload := append(header, col...)
	cell := append(encodeVarint(uint64(len(payload))), encodeVarint(uint64(rowid))...)
	return append(cell, payload...)
}

// buildLeafTablePage builds a leaf-table page containing one cell per rowid.
func buildLeafTablePage(rowids []int64) []byte {
	buf := make([]byte, pageSize)
	buf[0] = 0x0d // leaf_table
	headerEnd := 8

	var cellBytes [][]byte
	for _, rowid := range rowids {
		cellBytes = append(cellBytes, buildTableLeafCell(rowid))
	}

	contentStart := pageSize
	offsets := make([]int, len(cellBytes))
	for i := len(cellBytes) - 1; i >= 0; i-- {
		contentStart -= len(cellBytes[i])
		copy(buf[contentStart:], cellBytes[i])
		offsets[i] = contentStart
	}

	binary.BigEndian.PutUint16(buf[3:5], uint16(len(cellBytes)))
	binary.BigEndian.PutUint16(buf[5:7], uint16(contentStart))
	putCellPtrs(buf, headerEnd, offsets)
	return buf
}

type interiorTableEntry struct {
	child  uint32
	sepKey int64
}

// buildInteriorTablePage builds a table-interior page with the given
// (childPage, separatorRowid) entries plus a rightmost pointer.
func buildInteriorTablePage(entries []interiorTableEntry, rightmost uint32) []byte {
	buf := make([]byte, pageSize)
	buf[0] = 0x05 // interior_table
	headerEnd := 12

	var cellBytes [][]byte
	for _, e := range entries {
		var cell bytes.Buffer
		var childBuf [4]byte
		binary.BigEndian.PutUint32(childBuf[:], e.child)
		cell.Write(childBuf[:])
		cell.Write(encodeVarint(uint64(e.sepKey)))
		cellBytes = append(cellBytes, cell.Bytes())
	}

	contentStart := pageSize
	offsets := make([]int, len(cellBytes))
	for i := len(cellBytes) - 1; i >= 0; i-- {
		contentStart -= len(cellBytes[i])
		copy(buf[contentStart:], cellBytes[i])
		offsets[i] = contentStart
	}

	binary.BigEndian.PutUint16(buf[3:5], uint16(len(cellBytes)))
	binary.BigEndian.PutUint16(buf[5:7], uint16(contentStart))
	binary.BigEndian.PutUint32(buf[8:12], rightmost)
	putCellPtrs(buf, headerEnd, offsets)
	return buf
}

func TestEnumerateTableLeafOnly(t *testing.T) {
	f := newFakeFile()
	f.setPage(2, buildLeafTablePage([]int64{1, 2, 3}))
	p := pager.New(f, pageSize)
	tr := New(p)

	cells, err := tr.EnumerateTable(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 3 {
		t.Fatalf("got %d cells, want 3", len(cells))
	}
}

func TestEnumerateTableRecursesInterior(t *testing.T) {
	f := newFakeFile()
	f.setPage(4, buildInteriorTablePage([]interiorTableEntry{{child: 2, sepKey: 10}}, 3))
	f.setPage(2, buildLeafTablePage([]int64{1, 2}))
	f.setPage(3, buildLeafTablePage([]int64{10, 11, 12}))

	p := pager.New(f, pageSize)
	tr := New(p)

	cells, err := tr.EnumerateTable(4)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 5 {
		t.Fatalf("got %d cells, want 5", len(cells))
	}
}

// TestFindRowsPartitionBoundaries exercises the exact partition boundaries:
// an interior page with separators [10, 20] routes rowid 9 to the leftmost
// child, 10..19 to the middle child (the upper bound is exclusive so a
// rowid equal to a separator routes to the *next* partition), and 20+ to
// the rightmost pointer.
func TestFindRowsPartitionBoundaries(t *testing.T) {
	f := newFakeFile()
	f.setPage(5, buildInteriorTablePage([]interiorTableEntry{
		{child: 2, sepKey: 10},
		{child: 3, sepKey: 20},
	}, 4))
	f.setPage(2, buildLeafTablePage([]int64{5, 9}))
	f.setPage(3, buildLeafTablePage([]int64{10, 15, 19}))
	f.setPage(4, buildLeafTablePage([]int64{20, 25}))

	p := pager.New(f, pageSize)
	tr := New(p)

	want := map[int64]int{9: 2, 10: 3, 19: 3, 20: 4}
	for rowid, expectPage := range want {
		cells, err := tr.FindRows(5, map[int64]struct{}{rowid: {}})
		if err != nil {
			t.Fatalf("rowid %d: %v", rowid, err)
		}
		if len(cells) != 1 {
			t.Fatalf("rowid %d: got %d cells, want 1 (expected from page %d)", rowid, len(cells), expectPage)
		}
		got, err := cells[0].Rowid()
		if err != nil {
			t.Fatal(err)
		}
		if got != rowid {
			t.Errorf("rowid %d: returned cell has rowid %d", rowid, got)
		}
	}
}

func TestFindRowsMissingRowidReturnsEmpty(t *testing.T) {
	f := newFakeFile()
	f.setPage(2, buildLeafTablePage([]int64{1, 2, 3}))
	p := pager.New(f, pageSize)
	tr := New(p)

	cells, err := tr.FindRows(2, map[int64]struct{}{99: {}})
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 0 {
		t.Errorf("got %d cells, want 0", len(cells))
	}
}

func TestFindRowsEmptySetShortCircuits(t *testing.T) {
	f := newFakeFile()
	p := pager.New(f, pageSize)
	tr := New(p)

	cells, err := tr.FindRows(1, map[int64]struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	if cells != nil {
		t.Errorf("expected nil result for empty rowid set, got %v", cells)
	}
}

func TestFindRowsMultipleRowidsAcrossPartitions(t *testing.T) {
	f := newFakeFile()
	f.setPage(5, buildInteriorTablePage([]interiorTableEntry{
		{child: 2, sepKey: 10},
		{child: 3, sepKey: 20},
	}, 4))
	f.setPage(2, buildLeafTablePage([]int64{5, 9}))
	f.setPage(3, buildLeafTablePage([]int64{10, 15, 19}))
	f.setPage(4, buildLeafTablePage([]int64{20, 25}))

	p := pager.New(f, pageSize)
	tr := New(p)

	cells, err := tr.FindRows(5, map[int64]struct{}{9: {}, 15: {}, 25: {}})
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 3 {
		t.Fatalf("got %d cells, want 3", len(cells))
	}
	got := map[int64]bool{}
	for _, c := range cells {
		id, err := c.Rowid()
		if err != nil {
			t.Fatal(err)
		}
		got[id] = true
	}
	for _, want := range []int64{9, 15, 25} {
		if !got[want] {
			t.Errorf("missing rowid %d in result", want)
		}
	}
}

// buildIndexLeafCell builds an index-leaf cell with one text column (the
// indexed value) followed by the rowid as integer text, matching the
// "rowid is the last column" convention.
func buildIndexLeafCell(value string, rowid int64) []byte {
	rowidText := []byte(intToASCII(rowid))
	cols := [][]byte{[]byte(value), rowidText}
	types := []record.SerialType{
		record.SerialType(13 + 2*len(value)),
		record.SerialType(13 + 2*len(rowidText)),
	}

	var headerBody []byte
	for _, t := range types {
		headerBody = append(headerBody, encodeVarint(uint64(t))...)
	}
	headerSize := len(headerBody) + 1
	header := append(encodeVarint(uint64(headerSize)), headerBody...)
	var body []byte
	for _, c := range cols {
		body = append(body, c...)
	}
	payload := append(header, body...)
	return append(encodeVarint(uint64(len(payload))), payload...)
}

func intToASCII(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

func buildLeafIndexPage(entries []struct {
	value string
	rowid int64
}) []byte {
	buf := make([]byte, pageSize)
	buf[0] = 0x0a // leaf_index
	headerEnd := 8

	var cellBytes [][]byte
	for _, e := range entries {
		cellBytes = append(cellBytes, buildIndexLeafCell(e.value, e.rowid))
	}

	contentStart := pageSize
	offsets := make([]int, len(cellBytes))
	for i := len(cellBytes) - 1; i >= 0; i-- {
		contentStart -= len(cellBytes[i])
		copy(buf[contentStart:], cellBytes[i])
		offsets[i] = contentStart
	}

	binary.BigEndian.PutUint16(buf[3:5], uint16(len(cellBytes)))
	binary.BigEndian.PutUint16(buf[5:7], uint16(contentStart))
	putCellPtrs(buf, headerEnd, offsets)
	return buf
}

func TestIndexSearchLeafEquality(t *testing.T) {
	f := newFakeFile()
	f.setPage(2, buildLeafIndexPage([]struct {
		value string
		rowid int64
	}{
		{value: "Blue", rowid: 1},
		{value: "Red", rowid: 2},
	}))

	p := pager.New(f, pageSize)
	tr := New(p)

	rowids, err := tr.IndexSearch(2, predicate.Eq, "Red")
	if err != nil {
		t.Fatal(err)
	}
	if len(rowids) != 1 || rowids[0] != 2 {
		t.Errorf("rowids = %v, want [2]", rowids)
	}
}

func TestIndexSearchLeafRange(t *testing.T) {
	f := newFakeFile()
	f.setPage(2, buildLeafIndexPage([]struct {
		value string
		rowid int64
	}{
		{value: "Blue", rowid: 1},
		{value: "Green", rowid: 2},
		{value: "Red", rowid: 3},
	}))

	p := pager.New(f, pageSize)
	tr := New(p)

	rowids, err := tr.IndexSearch(2, predicate.Lt, "Red")
	if err != nil {
		t.Fatal(err)
	}
	if len(rowids) != 2 {
		t.Errorf("rowids = %v, want 2 entries < Red", rowids)
	}
}

func TestIndexSearchInteriorDescendsAndEmitsSeparator(t *testing.T) {
	f := newFakeFile()
	// interior page 4: one separator "Green" -> left child page 2, rightmost page 3
	buf := make([]byte, pageSize)
	buf[0] = 0x02 // interior_index
	headerEnd := 12
	sep := buildIndexLeafCell("Green", 2)
	var childBuf [4]byte
	binary.BigEndian.PutUint32(childBuf[:], 2)
	cell := append(append([]byte{}, childBuf[:]...), sep...)

	contentStart := pageSize - len(cell)
	copy(buf[contentStart:], cell)
	binary.BigEndian.PutUint16(buf[3:5], 1)
	binary.BigEndian.PutUint16(buf[5:7], uint16(contentStart))
	binary.BigEndian.PutUint32(buf[8:12], 3)
	putCellPtrs(buf, headerEnd, []int{contentStart})
	f.setPage(4, buf)

	f.setPage(2, buildLeafIndexPage([]struct {
		value string
		rowid int64
	}{{value: "Blue", rowid: 1}}))
	f.setPage(3, buildLeafIndexPage([]struct {
		value string
		rowid int64
	}{{value: "Red", rowid: 3}}))

	p := pager.New(f, pageSize)
	tr := New(p)

	rowids, err := tr.IndexSearch(4, predicate.Eq, "Green")
	if err != nil {
		t.Fatal(err)
	}
	if len(rowids) != 1 || rowids[0] != 2 {
		t.Errorf("rowids = %v, want [2] (separator itself)", rowids)
	}
}
