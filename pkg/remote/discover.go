package remote

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
)

// DefaultDiscoverTimeout defines how long Discover collects announcements.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Discover collects the retained announcements of devices under the topic
// prefix of brokerURL.
func Discover(ctx context.Context, brokerURL string, timeout time.Duration) ([]*DeviceMeta, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	q := NewQueue(opts, topicPrefix)
	var (
		lock    sync.Mutex
		devices []*DeviceMeta
	)
	q.Sub("+/"+TopicMeta, func(topic string, payload []byte) {
		if meta := decodeMeta(topic, payload); meta != nil {
			lock.Lock()
			devices = append(devices, meta)
			lock.Unlock()
		}
	})
	token := q.Connect()
	defer q.Close()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	select {
	case <-time.After(timeout):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	lock.Lock()
	defer lock.Unlock()
	return devices, nil
}

// decodeMeta returns nil for cleared announcements.
func decodeMeta(topic string, payload []byte) *DeviceMeta {
	if len(payload) == 0 {
		return nil
	}
	meta := &DeviceMeta{}
	if err := proto.Unmarshal(payload, meta); err != nil {
		glog.Warningf("bad announcement on %q: %v", topic, err)
		return nil
	}
	if meta.ID == "" {
		meta.ID = strings.SplitN(topic, "/", 2)[0]
	}
	return meta
}
