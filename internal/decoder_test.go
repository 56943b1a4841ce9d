package internal

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

type record struct {
	ID string `json:"id"`
}

type decoded struct {
	ids  []string
	errs []error
}

func collect(t *testing.T, r io.Reader, opts DecodeOptions) decoded {
	t.Helper()
	var out decoded
	for rec, err := range DecodeLines[record](r, opts) {
		if err != nil {
			out.errs = append(out.errs, err)
			continue
		}
		out.ids = append(out.ids, rec.ID)
	}
	return out
}

func TestLineBuffer(t *testing.T) {
	var b LineBuffer

	b.Write([]byte("ab\ncd"))
	line, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, "ab", string(line))

	_, ok = b.Next()
	assert.False(t, ok)
	assert.Equal(t, 2, b.Pending())

	b.Write([]byte("e\n\n"))
	line, ok = b.Next()
	require.True(t, ok)
	assert.Equal(t, "cde", string(line))

	line, ok = b.Next()
	require.True(t, ok)
	assert.Empty(t, line)
	assert.Equal(t, 0, b.Pending())

	b.Write([]byte("partial"))
	b.Reset()
	assert.Equal(t, 0, b.Pending())
}

func TestDecodeLinesSplitAcrossChunks(t *testing.T) {
	r := &chunkReader{chunks: []string{`{"id":"a"}` + "\n" + `{"id":"b`, `"}` + "\n"}}

	got := collect(t, r, DecodeOptions{})
	assert.Empty(t, got.errs)
	assert.Equal(t, []string{"a", "b"}, got.ids)
}

func TestDecodeLinesEverySplitOffset(t *testing.T) {
	payload := `{"id":"a"}` + "\n" + `{"id":"bb","content":"x\ny"}` + "\n" + `{"id":"ccc"}` + "\n"

	for i := 0; i <= len(payload); i++ {
		r := &chunkReader{chunks: []string{payload[:i], payload[i:]}}
		got := collect(t, r, DecodeOptions{})
		assert.Empty(t, got.errs, "split at %d", i)
		assert.Equal(t, []string{"a", "bb", "ccc"}, got.ids, "split at %d", i)
	}
}

func TestDecodeLinesOneByteReads(t *testing.T) {
	payload := `{"id":"a"}` + "\n" + `{"id":"b"}` + "\n"

	got := collect(t, iotest.OneByteReader(strings.NewReader(payload)), DecodeOptions{ChunkSize: 1})
	assert.Empty(t, got.errs)
	assert.Equal(t, []string{"a", "b"}, got.ids)
}

func TestDecodeLinesInvalidLine(t *testing.T) {
	payload := `{"id":"a"}` + "\nnot json\n" + `{"id":"c"}` + "\n"

	got := collect(t, strings.NewReader(payload), DecodeOptions{})
	assert.Equal(t, []string{"a", "c"}, got.ids)
	require.Len(t, got.errs, 1)

	var de *DecodeError
	require.True(t, errors.As(got.errs[0], &de))
	assert.Equal(t, 2, de.Line)
}

func TestDecodeLinesBlankLines(t *testing.T) {
	payload := "\n   \n" + `{"id":"a"}` + "\n\r\n\n"

	got := collect(t, strings.NewReader(payload), DecodeOptions{})
	assert.Empty(t, got.errs)
	assert.Equal(t, []string{"a"}, got.ids)
}

func TestDecodeLinesDropsTrailingPartial(t *testing.T) {
	payload := `{"id":"a"}` + "\n" + `{"id":"b"}`

	got := collect(t, strings.NewReader(payload), DecodeOptions{})
	assert.Empty(t, got.errs)
	assert.Equal(t, []string{"a"}, got.ids)
}

func TestDecodeLinesCRLF(t *testing.T) {
	payload := `{"id":"a"}` + "\r\n" + `{"id":"b"}` + "\r\n"

	got := collect(t, strings.NewReader(payload), DecodeOptions{})
	assert.Empty(t, got.errs)
	assert.Equal(t, []string{"a", "b"}, got.ids)
}

func TestDecodeLinesInvalidUTF8(t *testing.T) {
	payload := "{\"id\":\"\xff\"}\n" + `{"id":"b"}` + "\n"

	got := collect(t, strings.NewReader(payload), DecodeOptions{})
	assert.Equal(t, []string{"b"}, got.ids)
	require.Len(t, got.errs, 1)
	assert.ErrorIs(t, got.errs[0], ErrInvalidEncoding)
}

func TestDecodeLinesNullRecord(t *testing.T) {
	got := collect(t, strings.NewReader("null\n"), DecodeOptions{})
	assert.Empty(t, got.ids)
	require.Len(t, got.errs, 1)

	var de *DecodeError
	assert.True(t, errors.As(got.errs[0], &de))
}

func TestDecodeLinesReadFailure(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader(`{"id":"a"}`+"\n"+`{"id":"b`), iotest.ErrReader(boom))

	got := collect(t, r, DecodeOptions{})
	assert.Equal(t, []string{"a"}, got.ids)
	require.Len(t, got.errs, 1)

	var te *TransportError
	require.True(t, errors.As(got.errs[0], &te))
	assert.ErrorIs(t, got.errs[0], boom)
}

func TestDecodeLinesLineTooLong(t *testing.T) {
	payload := `{"id":"a"}` + "\n" +
		`{"id":"` + strings.Repeat("x", 40) + `"}` + "\n" +
		`{"id":"c"}` + "\n"

	got := collect(t, strings.NewReader(payload), DecodeOptions{ChunkSize: 4, MaxLineBytes: 16})
	assert.Equal(t, []string{"a", "c"}, got.ids)
	require.Len(t, got.errs, 1)

	var de *DecodeError
	require.True(t, errors.As(got.errs[0], &de))
	assert.Equal(t, 2, de.Line)
	assert.ErrorIs(t, got.errs[0], ErrLineTooLong)
}

func TestDecodeLinesLineTooLongInSingleChunk(t *testing.T) {
	payload := `{"id":"a"}` + "\n" +
		`{"id":"` + strings.Repeat("x", 41) + `"}` + "\n" +
		`{"id":"c"}` + "\n"

	got := collect(t, strings.NewReader(payload), DecodeOptions{ChunkSize: 4096, MaxLineBytes: 16})
	assert.Equal(t, []string{"a", "c"}, got.ids)
	require.Len(t, got.errs, 1)

	var de *DecodeError
	require.True(t, errors.As(got.errs[0], &de))
	assert.Equal(t, 2, de.Line)
	assert.ErrorIs(t, got.errs[0], ErrLineTooLong)
}

func TestDecodeLinesLineTooLongInCompletingChunk(t *testing.T) {
	long := `{"id":"` + strings.Repeat("x", 41) + `"}` // 50 bytes
	r := &chunkReader{chunks: []string{
		long[:16], long[16:32], long[32:48],
		long[48:] + "\n" + `{"id":"c"}` + "\n",
	}}

	got := collect(t, r, DecodeOptions{ChunkSize: 16, MaxLineBytes: 48})
	assert.Equal(t, []string{"c"}, got.ids)
	require.Len(t, got.errs, 1)

	var de *DecodeError
	require.True(t, errors.As(got.errs[0], &de))
	assert.Equal(t, 1, de.Line)
	assert.ErrorIs(t, got.errs[0], ErrLineTooLong)
}

func TestDecodeLinesLineAtLimit(t *testing.T) {
	line := `{"id":"` + strings.Repeat("x", 7) + `"}` // 16 bytes
	got := collect(t, strings.NewReader(line+"\n"), DecodeOptions{MaxLineBytes: 16})
	assert.Empty(t, got.errs)
	assert.Equal(t, []string{strings.Repeat("x", 7)}, got.ids)
}

func TestDecodeLinesUnlimitedLine(t *testing.T) {
	long := strings.Repeat("x", 100)
	payload := `{"id":"` + long + `"}` + "\n"

	got := collect(t, strings.NewReader(payload), DecodeOptions{ChunkSize: 8, MaxLineBytes: -1})
	assert.Empty(t, got.errs)
	assert.Equal(t, []string{long}, got.ids)
}

func TestDecodeLinesStopsOnBreak(t *testing.T) {
	payload := `{"id":"a"}` + "\n" + `{"id":"b"}` + "\n"

	var ids []string
	for rec, err := range DecodeLines[record](strings.NewReader(payload), DecodeOptions{}) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
		break
	}
	assert.Equal(t, []string{"a"}, ids)
}

type trackingBody struct {
	io.Reader
	closed int
}

func (b *trackingBody) Close() error {
	b.closed++
	return nil
}

func newTrackedStream(payload string) (*SearchStream, *trackingBody, *int) {
	body := &trackingBody{Reader: strings.NewReader(payload)}
	released := 0
	stream := NewSearchStream(body, func() { released++ }, DecodeOptions{}, nil)
	return stream, body, &released
}

func TestSearchStreamAll(t *testing.T) {
	payload := `{"id":"a","content":"first","score":0.9}` + "\n" +
		"garbage\n" +
		`{"id":"b","content":"second","score":0.5}` + "\n"
	stream, body, released := newTrackedStream(payload)

	var ids []string
	var errs []error
	for mem, err := range stream.All() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ids = append(ids, mem.ID)
	}

	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Len(t, errs, 1)
	assert.Equal(t, 1, body.closed)
	assert.Equal(t, 1, *released)
}

func TestSearchStreamBreakClosesBody(t *testing.T) {
	payload := `{"id":"a"}` + "\n" + `{"id":"b"}` + "\n"
	stream, body, released := newTrackedStream(payload)

	for range stream.All() {
		break
	}

	assert.Equal(t, 1, body.closed)
	assert.Equal(t, 1, *released)
}

func TestSearchStreamSingleUse(t *testing.T) {
	stream, _, _ := newTrackedStream(`{"id":"a"}` + "\n")

	for range stream.All() {
	}

	var errs []error
	for _, err := range stream.All() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStreamConsumed)
}

func TestSearchStreamCloseIdempotent(t *testing.T) {
	stream, body, released := newTrackedStream(`{"id":"a"}` + "\n")

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	assert.Equal(t, 1, body.closed)
	assert.Equal(t, 1, *released)
}

func TestSearchStreamObserve(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(`{"id":"a"}` + "\nbad\n")}
	var seen []error
	stream := NewSearchStream(body, nil, DecodeOptions{}, func(err error) { seen = append(seen, err) })

	for range stream.All() {
	}

	require.Len(t, seen, 2)
	assert.NoError(t, seen[0])
	assert.Error(t, seen[1])
}
