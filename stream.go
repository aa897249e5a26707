package fetch

import (
	"fmt"
	"io"
	"sync"
)

// chunkSize is the read granularity for body accumulation and teeing.
const chunkSize = 32 * 1024

// emptyStream is the null body stream: reads yield EOF immediately.
type emptyStream struct{}

func (emptyStream) Read([]byte) (int, error) { return 0, io.EOF }
func (emptyStream) Close() error             { return nil }

// coercingReader normalizes an arbitrary source reader into the pipeline's
// byte-stream shape: zero-length reads are retried rather than surfaced as
// empty chunks, and read failures are tagged as system errors naming the
// request URL.
type coercingReader struct {
	r   io.Reader
	url string
}

func (c *coercingReader) Read(p []byte) (int, error) {
	for {
		n, err := c.r.Read(p)
		if err != nil && err != io.EOF {
			return n, wrapError(KindSystem, err,
				fmt.Sprintf("Invalid response body while trying to fetch %s: %s", c.url, err.Error()))
		}
		if n == 0 && err == nil {
			continue
		}
		return n, err
	}
}

func (c *coercingReader) Close() error {
	if rc, ok := c.r.(io.Closer); ok {
		return rc.Close()
	}
	return nil
}

// teeState is the shared side of a pull-based stream tee. Whichever branch
// reads first pulls a chunk from the source, keeps it, and queues a copy for
// the other branch, so both observe every chunk regardless of read order.
// The faster branch's surplus is buffered until the slower branch drains it.
type teeState struct {
	mu     sync.Mutex
	src    io.Reader
	srcErr error
	done   bool
	closed int
}

// teeBranch is one consumer of a teed stream.
type teeBranch struct {
	state   *teeState
	other   *teeBranch
	queue   [][]byte
	pending []byte
	closed  bool
}

// teeStream splits r into two independent byte streams. Closing both
// branches closes the underlying reader, if it is a Closer.
func teeStream(r io.Reader) (*teeBranch, *teeBranch) {
	state := &teeState{src: r}
	a := &teeBranch{state: state}
	b := &teeBranch{state: state}
	a.other = b
	b.other = a
	return a, b
}

func (t *teeBranch) Read(p []byte) (int, error) {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	for len(t.pending) == 0 {
		if len(t.queue) > 0 {
			t.pending = t.queue[0]
			t.queue = t.queue[1:]
			continue
		}
		if t.state.done {
			if t.state.srcErr != nil {
				return 0, t.state.srcErr
			}
			return 0, io.EOF
		}
		buf := make([]byte, chunkSize)
		n, err := t.state.src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			t.pending = chunk
			cp := make([]byte, n)
			copy(cp, chunk)
			t.other.queue = append(t.other.queue, cp)
		}
		if err != nil {
			t.state.done = true
			if err != io.EOF {
				t.state.srcErr = err
			}
		}
	}

	n := copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

// Close releases this branch. The source is closed once both branches are.
func (t *teeBranch) Close() error {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.state.closed++
	if t.state.closed == 2 {
		t.state.done = true
		if rc, ok := t.state.src.(io.Closer); ok {
			return rc.Close()
		}
	}
	return nil
}
