package sh

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/binclock/pkg/remote"
	"github.com/robotalks/binclock/pkg/serial"
)

// Link carries lines to a clock and its responses back.
type Link interface {
	Name() string
	Send(line string) error
	// Receive waits for the next response.
	Receive(ctx context.Context) (*remote.ClockStatus, error)
	Close() error
}

// SerialLink talks to a clock on a serial console.
type SerialLink struct {
	name    string
	reader  *serial.LineReader
	console *serial.Console
	cancel  func()
	done    chan struct{}
}

// NewSerialLink starts reading responses from port, which is closed with
// the link.
func NewSerialLink(name string, port io.ReadWriteCloser) *SerialLink {
	ctx, cancel := context.WithCancel(context.Background())
	l := &SerialLink{
		name:    name,
		reader:  serial.NewLineReader(port, 0),
		console: serial.NewConsole(port),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(l.done)
		l.reader.Run(ctx)
	}()
	return l
}

// OpenSerial opens a serial port as a Link.
func OpenSerial(name string, baud int) (*SerialLink, error) {
	port, err := serial.Open(name, baud)
	if err != nil {
		return nil, err
	}
	return NewSerialLink(name, port), nil
}

// Name implements Link.
func (l *SerialLink) Name() string {
	return l.name
}

// Send implements Link.
func (l *SerialLink) Send(line string) error {
	return l.console.Println(line)
}

// Receive implements Link.
func (l *SerialLink) Receive(ctx context.Context) (*remote.ClockStatus, error) {
	line, err := l.reader.ReadLine(ctx)
	if err != nil {
		return nil, err
	}
	return &remote.ClockStatus{Message: strings.TrimSpace(line)}, nil
}

// Close implements Link.
func (l *SerialLink) Close() error {
	l.cancel()
	<-l.done
	return nil
}

// MQTTLink talks to a clock through its remote bridge.
type MQTTLink struct {
	id       string
	queue    *remote.Queue
	statusCh chan *remote.ClockStatus
}

// ConnectTimeout bounds connecting to a broker.
const ConnectTimeout = 5 * time.Second

// DialMQTT connects to the broker and follows the status of device id.
func DialMQTT(brokerURL, id string) (*MQTTLink, error) {
	opts, topicPrefix, err := remote.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	l := &MQTTLink{
		id:       id,
		queue:    remote.NewQueue(opts, topicPrefix),
		statusCh: make(chan *remote.ClockStatus, serial.DefaultQueueSize),
	}
	l.queue.Sub(id+"/"+remote.TopicStatus, l.handleStatus)
	token := l.queue.Connect()
	if !token.WaitTimeout(ConnectTimeout) {
		l.queue.Close()
		return nil, fmt.Errorf("connect %s: timeout", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %v", brokerURL, err)
	}
	return l, nil
}

// Name implements Link.
func (l *MQTTLink) Name() string {
	return l.id
}

// Send implements Link.
func (l *MQTTLink) Send(line string) error {
	token := l.queue.PubWith(l.id+"/"+remote.TopicSync, []byte(line), 1, false)
	if !token.WaitTimeout(ConnectTimeout) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

// Receive implements Link.
func (l *MQTTLink) Receive(ctx context.Context) (*remote.ClockStatus, error) {
	select {
	case s := <-l.statusCh:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements Link.
func (l *MQTTLink) Close() error {
	return l.queue.Close()
}

func (l *MQTTLink) handleStatus(topic string, payload []byte) {
	s := &remote.ClockStatus{}
	if err := proto.Unmarshal(payload, s); err != nil {
		return
	}
	select {
	case l.statusCh <- s:
	default:
	}
}
