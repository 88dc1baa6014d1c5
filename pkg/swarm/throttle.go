package swarm

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// throttledReader wraps an io.Reader with a shared rate.Limiter so every
// stream drawing from one limiter is bounded by the same aggregate
// bytes/sec budget. A nil limiter disables throttling.
type throttledReader struct {
	io.Reader
	limiter *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	n, err := t.Reader.Read(p)
	if n > 0 && t.limiter != nil {
		if waitErr := t.limiter.WaitN(context.Background(), n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

// throttledWriter wraps an io.Writer the same way, for the upload direction.
type throttledWriter struct {
	io.Writer
	limiter *rate.Limiter
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	if t.limiter != nil {
		if err := t.limiter.WaitN(context.Background(), len(p)); err != nil {
			return 0, err
		}
	}
	return t.Writer.Write(p)
}

// ThrottleReader interposes a bandwidth limit on r. A nil limiter returns r
// unchanged.
func ThrottleReader(r io.Reader, limiter *rate.Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &throttledReader{Reader: r, limiter: limiter}
}

// ThrottleWriter interposes a bandwidth limit on w. A nil limiter returns w
// unchanged.
func ThrottleWriter(w io.Writer, limiter *rate.Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &throttledWriter{Writer: w, limiter: limiter}
}
