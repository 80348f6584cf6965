package serial

import (
	"fmt"
	"time"

	bugst "go.bug.st/serial"
)

// DefaultBaudRate is the console speed.
const DefaultBaudRate = 9600

// ReadTimeout lets a blocked read notice cancellation.
const ReadTimeout = 100 * time.Millisecond

// Port is an open serial port.
type Port = bugst.Port

// Open opens the named port in 8N1 mode.
func Open(name string, baud int) (Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := bugst.Open(name, &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", name, err)
	}
	if err = port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %v", name, err)
	}
	return port, nil
}

// Ports lists the serial ports of the host.
func Ports() ([]string, error) {
	return bugst.GetPortsList()
}
