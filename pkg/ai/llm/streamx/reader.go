package streamx

import (
	"bytes"
	"io"
)

// transformReader wraps a response body with a Transform so the SDK's own
// SSE parser reads the already-cleaned stream.
type transformReader struct {
	src       io.ReadCloser
	transform *Transform
	buf       bytes.Buffer
	chunk     []byte
	done      bool
	err       error
}

// NewReader returns a ReadCloser that applies the transform to everything
// read from src. On EOF or a read error the transform is flushed first, so
// buffered tool input from a truncated stream still reaches the caller
// before the error does.
func NewReader(src io.ReadCloser, transform *Transform) io.ReadCloser {
	return &transformReader{
		src:       src,
		transform: transform,
		chunk:     make([]byte, 4096),
	}
}

func (r *transformReader) Read(p []byte) (int, error) {
	for r.buf.Len() == 0 && !r.done {
		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.buf.Write(r.transform.Process(r.chunk[:n]))
		}
		if err != nil {
			r.buf.Write(r.transform.Flush())
			r.done = true
			r.err = err
		}
	}

	if r.buf.Len() > 0 {
		return r.buf.Read(p)
	}
	if r.err != nil {
		return 0, r.err
	}
	return 0, io.EOF
}

func (r *transformReader) Close() error {
	return r.src.Close()
}
