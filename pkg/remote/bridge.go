package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/binclock/pkg/binclock"
)

// Topics under <prefix><id>/.
const (
	TopicSync   = "sync"
	TopicStatus = "status"
	TopicMeta   = "meta"
)

// Version is announced in DeviceMeta.
const Version = "1.0"

// Injector accepts lines as if they had been received on the console.
type Injector interface {
	Inject(ctx context.Context, line string) error
}

// Bridge forwards sync payloads from MQTT into the clock and publishes the
// clock status.
type Bridge struct {
	Queue *Queue
	ID    string
	Lines Injector
	// InjectTimeout bounds how long a payload waits for a full queue.
	InjectTimeout time.Duration

	meta []byte
}

// NewBridge creates a Bridge connected to brokerURL when Run.
func NewBridge(brokerURL, id string, lines Injector) (*Bridge, error) {
	if id == "" {
		return nil, fmt.Errorf("device id is required")
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL %q: %v", brokerURL, err)
	}
	// clear the retained meta when the device vanishes.
	opts.SetBinaryWill(topicPrefix+id+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("binclock:" + id)
	}
	b := &Bridge{ID: id, Lines: lines, InjectTimeout: time.Second}
	b.meta, err = proto.Marshal(&DeviceMeta{ID: id, Version: Version})
	if err != nil {
		return nil, err
	}
	b.Queue = NewQueue(opts, topicPrefix)
	b.Queue.OnConnect = func(*Queue) { b.announce() }
	return b, nil
}

// Topic returns the full topic relative to the prefix.
func (b *Bridge) Topic(name string) string {
	return b.ID + "/" + name
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "mqtt-bridge"
}

// Run implements framework.Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	b.Queue.Sub(b.Topic(TopicSync), func(topic string, payload []byte) {
		b.HandleSync(ctx, payload)
	})
	b.Queue.Connect()
	<-ctx.Done()
	b.Queue.PubWith(b.Topic(TopicMeta), nil, 1, true).WaitTimeout(time.Second)
	b.Queue.Close()
	return ctx.Err()
}

// HandleSync queues a sync payload as one console line.
func (b *Bridge) HandleSync(ctx context.Context, payload []byte) {
	timeout := b.InjectTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	injectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := b.Lines.Inject(injectCtx, string(payload)); err != nil {
		glog.Warningf("drop sync %q: %v", payload, err)
	}
}

// Publish sends the status, it can be used as binclock.Controller.OnStatus.
func (b *Bridge) Publish(s binclock.Status) {
	data, err := proto.Marshal(NewClockStatus(s))
	if err != nil {
		glog.Errorf("encode status: %v", err)
		return
	}
	if b.Queue.Client.IsConnected() {
		b.Queue.Pub(b.Topic(TopicStatus), data)
	}
}

func (b *Bridge) announce() {
	b.Queue.PubWith(b.Topic(TopicMeta), b.meta, 1, true)
}
