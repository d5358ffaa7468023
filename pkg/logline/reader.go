package logline

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"os"
)

// Reader provides an iterator over log lines.
// Implementations must be safe for sequential access (not concurrent).
type Reader interface {
	// Next returns the next line. Returns io.EOF when exhausted.
	Next(ctx context.Context) (*Line, error)

	// Close releases any resources held by the reader.
	Close() error
}

// FileReader reads one chat-log file from start to end through a
// Tokenizer, so its lines carry the same offsets and timestamps the
// live ingestion path produces.
type FileReader struct {
	lf        LogFile
	file      *os.File
	tokenizer *Tokenizer
	buf       []byte
	queue     []Line
	done      bool
}

// NewFileReader creates a Reader over one discovered log file. Sequence
// indexes start at startSeq.
func NewFileReader(lf LogFile, startSeq uint64) *FileReader {
	return &FileReader{
		lf:        lf,
		tokenizer: NewTokenizer(lf.Path, lf.Date, 0, startSeq),
	}
}

// Next returns the next line in file order.
func (r *FileReader) Next(ctx context.Context) (*Line, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if len(r.queue) > 0 {
			line := r.queue[0]
			r.queue = r.queue[1:]
			return &line, nil
		}
		if r.done {
			return nil, io.EOF
		}

		if r.file == nil {
			f, err := os.Open(r.lf.Path) // #nosec G304 -- user-provided paths are expected
			if err != nil {
				return nil, fmt.Errorf("opening chat log %s: %w", r.lf.Path, err)
			}
			r.file = f
			r.buf = make([]byte, 64*1024)
		}

		n, err := r.file.Read(r.buf)
		if n > 0 {
			r.queue = r.tokenizer.Feed(r.buf[:n])
		}
		if err == io.EOF {
			r.done = true
			// A final line without a terminator still counts when
			// reading a finished file.
			if r.tokenizer.Pending() {
				r.queue = append(r.queue, r.tokenizer.Feed([]byte{'\n'})...)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", r.lf.Path, err)
		}
	}
}

// Close releases the underlying file.
func (r *FileReader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// MergedReader combines multiple Readers into a single stream ordered
// by timestamp (oldest first), for tallies that span daily log
// rollovers. Untimestamped lines inherit their file's last seen
// timestamp so snapshot continuation lines stay with their neighbors.
// Output lines are renumbered with fresh sequence indexes.
type MergedReader struct {
	readers []Reader
	heap    *lineHeap
	seq     uint64
	started bool
}

// NewMergedReader creates a Reader that merges its inputs by timestamp.
func NewMergedReader(readers ...Reader) *MergedReader {
	return &MergedReader{
		readers: readers,
		heap:    &lineHeap{},
	}
}

// Next returns the next line in timestamp order across all readers.
// Returns io.EOF when all readers are exhausted.
func (m *MergedReader) Next(ctx context.Context) (*Line, error) {
	if !m.started {
		m.started = true
		heap.Init(m.heap)
		for i, r := range m.readers {
			if err := m.refill(ctx, i, r, 0); err != nil {
				return nil, err
			}
		}
	}

	if m.heap.Len() == 0 {
		return nil, io.EOF
	}

	item := heap.Pop(m.heap).(*heapItem)
	line := item.line

	if err := m.refill(ctx, item.readerIdx, m.readers[item.readerIdx], item.order); err != nil {
		return nil, err
	}

	line.Seq = m.seq
	m.seq++
	return line, nil
}

// refill reads the next line from one reader into the heap.
func (m *MergedReader) refill(ctx context.Context, idx int, r Reader, lastOrder int64) error {
	line, err := r.Next(ctx)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	order := lastOrder
	if line.Timestamp != nil {
		order = line.Timestamp.Unix()
	}
	heap.Push(m.heap, &heapItem{line: line, readerIdx: idx, order: order})
	return nil
}

// Close releases all reader resources.
func (m *MergedReader) Close() error {
	var firstErr error
	for _, r := range m.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// heapItem wraps a Line with its reader index for the priority queue.
type heapItem struct {
	line      *Line
	readerIdx int
	order     int64
}

// lineHeap implements heap.Interface for timestamp-ordered merging.
type lineHeap []*heapItem

func (h lineHeap) Len() int { return len(h) }

func (h lineHeap) Less(i, j int) bool {
	if h[i].order != h[j].order {
		return h[i].order < h[j].order
	}
	if h[i].readerIdx != h[j].readerIdx {
		return h[i].readerIdx < h[j].readerIdx
	}
	return h[i].line.Offset < h[j].line.Offset
}

func (h lineHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *lineHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapItem))
}

func (h *lineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}
