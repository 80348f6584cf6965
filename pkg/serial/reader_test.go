package serial

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitPending(t *testing.T, r *LineReader, n int) {
	deadline := time.Now().Add(time.Second)
	for r.Pending() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expect %d pending lines, got %d", n, r.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLineReaderSplitsLines(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewLineReader(pr, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	_, ok := r.TryReadLine()
	assert.False(t, ok)

	go io.WriteString(pw, "1435\r\nabcd\n25")
	waitPending(t, r, 2)

	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, "1435\r", line)
	line, ok = r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, "abcd", line)
	_, ok = r.TryReadLine()
	assert.False(t, ok, "partial line must not be delivered")

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
	assert.Equal(t, ErrQueueClosed, r.Inject(context.Background(), "x"))
}

func TestLineReaderStopsAtEOF(t *testing.T) {
	r := NewLineReader(strings.NewReader("0900\n"), 0)
	assert.Equal(t, io.EOF, r.Run(context.Background()))
	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, "0900", line)
}

func TestLineReaderTruncatesLongLines(t *testing.T) {
	long := strings.Repeat("9", MaxLineLen+10)
	r := NewLineReader(strings.NewReader(long+"\n"), 1)
	r.Run(context.Background())
	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Len(t, line, MaxLineLen)
}

func TestInjectBlocksWhenFull(t *testing.T) {
	r := NewLineReader(nil, 1)
	require.NoError(t, r.Inject(context.Background(), "1200"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, r.Inject(ctx, "1300"))

	line, ok := r.TryReadLine()
	require.True(t, ok)
	assert.Equal(t, "1200", line)
}

func TestConsolePrintlnUsesCRLF(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	require.NoError(t, c.Println("Time synchronized to: 14:35"))
	assert.Equal(t, "Time synchronized to: 14:35\r\n", buf.String())

	var nilConsole *Console
	assert.NoError(t, nilConsole.Println("ignored"))
}

func TestReadLine(t *testing.T) {
	r := NewLineReader(strings.NewReader("1200\n"), 2)
	require.Equal(t, io.EOF, r.Run(context.Background()))
	line, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1200", line)
	_, err = r.ReadLine(context.Background())
	assert.Equal(t, ErrQueueClosed, err)

	idle := NewLineReader(nil, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = idle.ReadLine(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
}
