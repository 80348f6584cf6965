package serial

import (
	"context"
	"io"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/binclock/pkg/framework"
)

const (
	// DefaultQueueSize is the number of complete lines buffered.
	DefaultQueueSize = 16
	// MaxLineLen bounds a line, extra bytes are dropped.
	MaxLineLen = 256
)

// LineReader splits a byte stream into newline terminated lines.
type LineReader struct {
	Reader io.Reader

	lines chan string
	done  chan struct{}
}

// NewLineReader creates a LineReader buffering up to size lines.
func NewLineReader(r io.Reader, size int) *LineReader {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &LineReader{
		Reader: r,
		lines:  make(chan string, size),
		done:   make(chan struct{}),
	}
}

// Name implements framework.Named.
func (r *LineReader) Name() string {
	return "line-reader"
}

// Run implements framework.Runnable. A Reader which is also an io.Closer is
// closed when Run returns.
func (r *LineReader) Run(ctx context.Context) error {
	defer close(r.done)
	if r.Reader == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	if closer, ok := r.Reader.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, func() error {
			return r.readLoop(ctx)
		})
	}
	return r.readLoop(ctx)
}

func (r *LineReader) readLoop(ctx context.Context) error {
	buf := make([]byte, 1)
	line := make([]byte, 0, MaxLineLen)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Reader.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return err
		}
		// ports with a read timeout return nothing when idle.
		if n == 0 {
			continue
		}
		if buf[0] != '\n' {
			if len(line) < MaxLineLen {
				line = append(line, buf[0])
			}
			continue
		}
		glog.V(2).Infof("line received: %q", line)
		if err := r.Inject(ctx, string(line)); err != nil {
			return err
		}
		line = line[:0]
	}
}

// Inject queues a line as if it had been received. It blocks while the
// queue is full.
func (r *LineReader) Inject(ctx context.Context, line string) error {
	select {
	case <-r.done:
		return ErrQueueClosed
	default:
	}
	select {
	case r.lines <- line:
		return nil
	case <-r.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryReadLine takes the oldest pending line without blocking.
func (r *LineReader) TryReadLine() (string, bool) {
	select {
	case line := <-r.lines:
		return line, true
	default:
		return "", false
	}
}

// ReadLine waits for the next line.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-r.lines:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.done:
	}
	// lines queued before the reader stopped are still delivered.
	if line, ok := r.TryReadLine(); ok {
		return line, nil
	}
	return "", ErrQueueClosed
}

// Pending returns the number of queued lines.
func (r *LineReader) Pending() int {
	return len(r.lines)
}
