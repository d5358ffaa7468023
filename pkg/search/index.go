package search

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"chronicler/pkg/logline"
)

// blockLines is the number of lines sharing one bloom filter. Literal
// queries skip whole blocks whose filter rules the needle out.
const blockLines = 512

// filterFalsePositive is the accepted bloom false-positive rate; a
// false positive only costs a linear scan of one block.
const filterFalsePositive = 0.01

// Index stores ingested lines in sequence order and answers queries
// with forward-only cursors. Append may run concurrently with any
// number of cursors; cursors scan an immutable snapshot, so a query
// never blocks ingestion and already-returned matches are never
// re-ordered or invalidated.
type Index struct {
	mu     sync.RWMutex
	lines  []logline.Line
	blocks []*block
}

type block struct {
	filter *bloom.BloomFilter
	count  int
}

func (b *block) full() bool {
	return b.count >= blockLines
}

// mayContain reports whether a line containing all trigrams could be
// in the block. Bloom filters never report false negatives, so a
// false result is a safe skip. Only call on full blocks; their
// filters are immutable.
func (b *block) mayContain(tris []string) bool {
	for _, t := range tris {
		if !b.filter.TestString(t) {
			return false
		}
	}
	return true
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Append adds ingested lines. Lines must arrive in increasing sequence
// order (the ingestion pipeline guarantees this).
func (ix *Index) Append(lines ...logline.Line) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, line := range lines {
		cur := ix.openBlock()
		folded := strings.ToLower(line.Raw)
		for i := 0; i+3 <= len(folded); i++ {
			cur.filter.AddString(folded[i : i+3])
		}
		cur.count++
		ix.lines = append(ix.lines, line)
	}
}

// openBlock returns the block accepting the next line. Callers hold
// the write lock.
func (ix *Index) openBlock() *block {
	if n := len(ix.blocks); n > 0 && !ix.blocks[n-1].full() {
		return ix.blocks[n-1]
	}
	b := &block{
		// Rough trigram estimate: block lines at chat-line length.
		filter: bloom.NewWithEstimates(uint(blockLines)*96, filterFalsePositive),
	}
	ix.blocks = append(ix.blocks, b)
	return b
}

// Len returns the number of indexed lines.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.lines)
}

// snapshot captures the current lines and the completed blocks. Lines
// are immutable and the slices are append-only, so the snapshot stays
// valid without holding the lock.
func (ix *Index) snapshot() ([]logline.Line, []*block) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	complete := len(ix.blocks)
	if complete > 0 && !ix.blocks[complete-1].full() {
		complete--
	}
	return ix.lines, ix.blocks[:complete]
}

// Search returns a cursor over lines matching q, starting at the first
// line whose sequence index is at least fromSeq. The cursor is lazy
// and restartable: after it drains, further Next calls pick up lines
// ingested since.
func (ix *Index) Search(q Query, fromSeq uint64) *Cursor {
	return &Cursor{ix: ix, q: q, tris: q.trigrams(), fromSeq: fromSeq, pos: -1}
}

// Cursor walks matching lines in increasing sequence order.
// A Cursor is not safe for concurrent use; run one per goroutine.
type Cursor struct {
	ix      *Index
	q       Query
	tris    []string
	fromSeq uint64
	pos     int // index into the lines snapshot of the next candidate
	lastSeq uint64
	any     bool
}

// Next returns the next matching line. It returns io.EOF when the
// index is currently drained; calling Next again later continues with
// lines ingested since. Cancelling ctx interrupts a long scan between
// matches with no partial-result corruption.
func (c *Cursor) Next(ctx context.Context) (*logline.Line, error) {
	lines, blocks := c.ix.snapshot()

	if c.pos < 0 {
		// First call: locate the resume point by sequence index.
		c.pos = sort.Search(len(lines), func(i int) bool {
			return lines[i].Seq >= c.fromSeq
		})
	}

	for c.pos < len(lines) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Skip completed blocks the filter rules out. The open block
		// is always scanned linearly.
		if len(c.tris) > 0 && c.pos%blockLines == 0 {
			if bi := c.pos / blockLines; bi < len(blocks) && !blocks[bi].mayContain(c.tris) {
				c.pos += blockLines
				continue
			}
		}

		line := lines[c.pos]
		c.pos++
		if c.q.Match(line.Raw) {
			c.lastSeq = line.Seq
			c.any = true
			return &line, nil
		}
	}

	return nil, io.EOF
}

// LastSeq returns the sequence index of the last returned match; ok is
// false before the first match. Resume a later query from LastSeq+1.
func (c *Cursor) LastSeq() (uint64, bool) {
	return c.lastSeq, c.any
}
