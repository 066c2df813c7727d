// Package pager provides random-access page reads against an open SQLite
// database file, exposing each page as an immutable, shared byte buffer.
package pager

import (
	"fmt"
	"io"

	"github.com/nnamm/litesql/internal/liteerr"
	"github.com/nnamm/litesql/internal/pageformat"
)

// Option configures a Pager at construction time.
type Option func(*options)

type options struct {
	cacheSize int
}

// WithPageCacheSize enables a bounded page cache of the given capacity (in
// pages). A capacity of 0 (the default) disables caching: every ReadPage
// call performs a fresh file read and returns a fresh buffer.
func WithPageCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// ReaderAt is the file capability the pager needs; *os.File satisfies it.
type ReaderAt interface {
	io.ReaderAt
}

// Page is an immutable, shared view of one on-disk page: its raw bytes, the
// decoded page header, and the byte offset (into Bytes) where the
// cell-pointer array begins. Every cell and column value derived from a
// Page holds only offsets into Page.Bytes — no copy of the underlying
// buffer is ever made.
type Page struct {
	Number       int
	Bytes        []byte
	Header       pageformat.PageHeader
	CellPtrStart int // offset where the cell-pointer array begins
}

// HeaderEnd is the offset where the cell-pointer array begins.
func (p *Page) HeaderEnd() int { return p.CellPtrStart }

// CellOffset returns the absolute byte offset of the i'th cell, reading it
// out of the cell-pointer array.
func (p *Page) CellOffset(i int) (int, error) {
	pos := p.CellPtrStart + i*2
	if pos+2 > len(p.Bytes) {
		return 0, liteerr.New("Page.CellOffset", liteerr.SliceConversion,
			fmt.Errorf("cell pointer %d out of range (page %d)", i, p.Number), nil)
	}
	return int(p.Bytes[pos])<<8 | int(p.Bytes[pos+1]), nil
}

// Pager reads fixed-size pages from an open, read-only database file.
type Pager struct {
	r          ReaderAt
	pageSize   int
	cache      map[int]*Page
	cacheOrder []int
	cacheCap   int
}

// New creates a Pager reading pageSize-byte pages from r.
func New(r ReaderAt, pageSize int, opts ...Option) *Pager {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pager{r: r, pageSize: pageSize, cacheCap: o.cacheSize}
	if p.cacheCap > 0 {
		p.cache = make(map[int]*Page, p.cacheCap)
	}
	return p
}

// PageSize returns the fixed page size this pager was constructed with.
func (p *Pager) PageSize() int { return p.pageSize }

// ReadPage reads page number pageNum (1-based; page 0 is not addressable)
// into a freshly allocated buffer and parses its page header; with caching
// enabled, a page still in the cache is returned as the same *Page. Page 1's
// header starts at byte 100 (after the file header); every other page's
// header starts at byte 0.
func (p *Pager) ReadPage(pageNum int) (*Page, error) {
	if pageNum < 1 {
		return nil, liteerr.New("Pager.ReadPage", liteerr.InvalidPageType,
			fmt.Errorf("page number %d is not addressable", pageNum), nil)
	}
	if p.cache != nil {
		if pg, ok := p.cache[pageNum]; ok {
			return pg, nil
		}
	}

	buf := make([]byte, p.pageSize)
	offset := int64(pageNum-1) * int64(p.pageSize)
	n, err := p.r.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, liteerr.New("Pager.ReadPage", liteerr.Io, err, map[string]any{"page": pageNum})
	}
	if n != p.pageSize {
		return nil, liteerr.New("Pager.ReadPage", liteerr.Io,
			fmt.Errorf("short read: got %d bytes, want %d", n, p.pageSize),
			map[string]any{"page": pageNum})
	}

	headerOffset := 0
	if pageNum == 1 {
		headerOffset = pageformat.FileHeaderSize
	}
	header, next, err := pageformat.ParsePageHeader(buf, headerOffset)
	if err != nil {
		return nil, liteerr.New("Pager.ReadPage", liteerr.InvalidPageType, err, map[string]any{"page": pageNum})
	}

	pg := &Page{Number: pageNum, Bytes: buf, Header: header, CellPtrStart: next}
	p.storeInCache(pageNum, pg)
	return pg, nil
}

func (p *Pager) storeInCache(pageNum int, pg *Page) {
	if p.cache == nil {
		return
	}
	if len(p.cacheOrder) >= p.cacheCap {
		oldest := p.cacheOrder[0]
		p.cacheOrder = p.cacheOrder[1:]
		delete(p.cache, oldest)
	}
	p.cache[pageNum] = pg
	p.cacheOrder = append(p.cacheOrder, pageNum)
}
