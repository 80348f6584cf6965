package serial

import (
	"io"
	"sync"
)

// Console writes CRLF terminated lines.
type Console struct {
	Writer io.Writer

	lock sync.Mutex
}

// NewConsole creates a Console.
func NewConsole(w io.Writer) *Console {
	return &Console{Writer: w}
}

// Println writes one line.
func (c *Console) Println(line string) error {
	if c == nil || c.Writer == nil {
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	_, err := io.WriteString(c.Writer, line+"\r\n")
	return err
}
