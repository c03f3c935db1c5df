// Package blockq contains a queue of audio blocks with a movable write index.
package blockq

import (
	"errors"
	"io"
)

// ErrFull is returned when a push would exceed the maximum length.
var ErrFull = errors.New("queue is full")

// Queue is a queue of byte blocks.
// Data is read from the head and written at the write index,
// which can be moved with Seek. Gaps left by forward seeks are
// filled with zeros, data overlapped by backward seeks is overwritten.
//
// It is not safe for concurrent use.
type Queue struct {
	// maximum length in bytes. Zero means unlimited.
	MaxLength int

	chunks [][]byte
	length int
	read   int64
	write  int64
}

// Len returns the amount of queued bytes.
func (q *Queue) Len() int {
	return q.length
}

// ReadIndex returns the absolute read index.
func (q *Queue) ReadIndex() int64 {
	return q.read
}

// WriteIndex returns the absolute write index.
func (q *Queue) WriteIndex() int64 {
	return q.write
}

// SeekWrite moves the write index by the given amount of bytes.
func (q *Queue) SeekWrite(offset int64) {
	q.write += offset
}

// Push copies a block at the write index and advances it.
func (q *Queue) Push(b []byte) error {
	end := q.read + int64(q.length)

	// skip data that has already been read
	if q.write < q.read {
		skip := q.read - q.write
		if skip >= int64(len(b)) {
			q.write += int64(len(b))
			return nil
		}
		b = b[skip:]
		q.write = q.read
	}

	newEnd := max(end, q.write+int64(len(b)))
	if q.MaxLength > 0 && newEnd-q.read > int64(q.MaxLength) {
		return ErrFull
	}

	switch {
	case q.write >= end:
		if gap := q.write - end; gap > 0 {
			q.chunks = append(q.chunks, make([]byte, gap))
		}
		q.chunks = append(q.chunks, append([]byte(nil), b...))

	default:
		flat := q.flatten(int(newEnd - q.read))
		copy(flat[q.write-q.read:], b)
		q.chunks = [][]byte{flat}
	}

	q.length = int(newEnd - q.read)
	q.write += int64(len(b))
	return nil
}

func (q *Queue) flatten(size int) []byte {
	flat := make([]byte, size)
	pos := 0
	for _, c := range q.chunks {
		pos += copy(flat[pos:], c)
	}
	return flat
}

// Chunks returns up to maxVecs slices that cover up to limit bytes from the head,
// without removing them.
func (q *Queue) Chunks(maxVecs int, limit int) [][]byte {
	var ret [][]byte
	n := 0

	for _, c := range q.chunks {
		if len(ret) >= maxVecs || n >= limit {
			break
		}

		if len(c) > limit-n {
			c = c[:limit-n]
		}

		ret = append(ret, c)
		n += len(c)
	}

	return ret
}

// Drop removes n bytes from the head.
func (q *Queue) Drop(n int) {
	if n > q.length {
		n = q.length
	}

	q.read += int64(n)
	q.length -= n

	for n > 0 {
		c := q.chunks[0]
		if len(c) > n {
			q.chunks[0] = c[n:]
			return
		}

		n -= len(c)
		q.chunks[0] = nil
		q.chunks = q.chunks[1:]
	}
}

// Read implements io.Reader.
func (q *Queue) Read(p []byte) (int, error) {
	if q.length == 0 {
		return 0, io.EOF
	}

	n := 0
	for _, c := range q.Chunks(len(q.chunks), len(p)) {
		n += copy(p[n:], c)
	}

	q.Drop(n)
	return n, nil
}

// Flush drops all queued data and moves the write index to the read index.
func (q *Queue) Flush() {
	q.Drop(q.length)
	q.chunks = nil
	q.write = q.read
}
