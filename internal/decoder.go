package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

var errNullRecord = errors.New("null is not a record")

const (
	DefaultChunkSize    = 32 * 1024
	DefaultMaxLineBytes = 8 << 20
)

// LineBuffer accumulates bytes from a chunked stream and hands back complete
// newline-terminated lines. After Next reports false the buffer holds at most
// one unterminated line.
type LineBuffer struct {
	buf   []byte
	start int
}

// Write appends a chunk. Lines returned by earlier calls to Next are
// invalidated.
func (b *LineBuffer) Write(p []byte) {
	if b.start > 0 {
		n := copy(b.buf, b.buf[b.start:])
		b.buf = b.buf[:n]
		b.start = 0
	}
	b.buf = append(b.buf, p...)
}

// Next removes the next complete line from the front of the buffer and returns
// it without its trailing newline.
func (b *LineBuffer) Next() ([]byte, bool) {
	i := bytes.IndexByte(b.buf[b.start:], '\n')
	if i < 0 {
		return nil, false
	}
	line := b.buf[b.start : b.start+i]
	b.start += i + 1
	if b.start == len(b.buf) {
		b.buf = b.buf[:0]
		b.start = 0
	}
	return line, true
}

// Pending reports the number of buffered bytes not yet terminated by a newline.
func (b *LineBuffer) Pending() int {
	return len(b.buf) - b.start
}

// Reset drops any buffered bytes.
func (b *LineBuffer) Reset() {
	b.buf = b.buf[:0]
	b.start = 0
}

type DecodeOptions struct {
	ChunkSize    int
	MaxLineBytes int // <0 disables the limit
}

func (o DecodeOptions) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

func (o DecodeOptions) maxLineBytes() int {
	if o.MaxLineBytes == 0 {
		return DefaultMaxLineBytes
	}
	return o.MaxLineBytes
}

// DecodeLines reads r chunk by chunk and yields one item per non-blank NDJSON
// line, in arrival order. Malformed lines are yielded as *DecodeError and
// decoding continues with the next line. A read failure is yielded once as a
// *TransportError and ends the sequence. Bytes after the last newline are
// dropped at EOF. DecodeLines never closes r.
func DecodeLines[T any](r io.Reader, opts DecodeOptions) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var (
			zero       T
			lines      LineBuffer
			lineNo     int
			discarding bool
		)
		chunk := make([]byte, opts.chunkSize())
		maxLine := opts.maxLineBytes()

		for {
			n, err := r.Read(chunk)
			if n > 0 {
				lines.Write(chunk[:n])
				for {
					line, ok := lines.Next()
					if !ok {
						break
					}
					lineNo++
					if discarding {
						// tail of an over-long line already reported
						discarding = false
						continue
					}
					if maxLine > 0 && len(line) > maxLine {
						if !yield(zero, &DecodeError{Line: lineNo, Err: ErrLineTooLong}) {
							return
						}
						continue
					}
					item, emit, derr := decodeLine[T](line, lineNo)
					if !emit {
						continue
					}
					if !yield(item, derr) {
						return
					}
				}
				if maxLine > 0 && lines.Pending() > maxLine {
					lines.Reset()
					if !discarding {
						discarding = true
						if !yield(zero, &DecodeError{Line: lineNo + 1, Err: ErrLineTooLong}) {
							return
						}
					}
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(zero, ClassifyTransport("read stream", "", err))
				return
			}
		}
	}
}

// decodeLine reports emit=false for blank lines, which produce no item.
func decodeLine[T any](line []byte, lineNo int) (item T, emit bool, err error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return item, false, nil
	}
	if !utf8.Valid(line) {
		return item, true, &DecodeError{Line: lineNo, Err: ErrInvalidEncoding}
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return item, true, &DecodeError{Line: lineNo, Err: errNullRecord}
	}
	if jerr := json.Unmarshal(line, &item); jerr != nil {
		var zero T
		return zero, true, &DecodeError{Line: lineNo, Err: jerr}
	}
	return item, true, nil
}

// SearchStream is the open result of a streaming search. It can be iterated
// once; the underlying connection is released when iteration ends for any
// reason or when Close is called.
type SearchStream struct {
	body    io.ReadCloser
	release func()
	opts    DecodeOptions
	observe func(error)

	used      atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewSearchStream(body io.ReadCloser, release func(), opts DecodeOptions, observe func(error)) *SearchStream {
	return &SearchStream{
		body:    body,
		release: release,
		opts:    opts,
		observe: observe,
	}
}

// All yields each decoded memory or a per-line error. A second call yields a
// single ErrStreamConsumed.
func (s *SearchStream) All() iter.Seq2[Memory, error] {
	return func(yield func(Memory, error) bool) {
		if !s.used.CompareAndSwap(false, true) {
			yield(Memory{}, ErrStreamConsumed)
			return
		}
		defer s.Close()

		for mem, err := range DecodeLines[Memory](s.body, s.opts) {
			if s.observe != nil {
				s.observe(err)
			}
			if !yield(mem, err) {
				return
			}
		}
	}
}

// Close releases the connection. It is safe to call more than once and
// concurrently with iteration.
func (s *SearchStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
		if s.release != nil {
			s.release()
		}
	})
	return s.closeErr
}
