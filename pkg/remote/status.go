package remote

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/binclock/pkg/binclock"
)

// ClockStatus is published after every processed sync line.
type ClockStatus struct {
	Synchronized bool   `protobuf:"varint,1,opt,name=synchronized,proto3" json:"synchronized,omitempty"`
	Hour         int32  `protobuf:"varint,2,opt,name=hour,proto3" json:"hour,omitempty"`
	Minute       int32  `protobuf:"varint,3,opt,name=minute,proto3" json:"minute,omitempty"`
	Second       int32  `protobuf:"varint,4,opt,name=second,proto3" json:"second,omitempty"`
	Message      string `protobuf:"bytes,5,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *ClockStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ClockStatus) Reset() { *m = ClockStatus{} }

// String implements proto.Message.
func (m *ClockStatus) String() string { return proto.CompactTextString(m) }

// NewClockStatus converts a controller status.
func NewClockStatus(s binclock.Status) *ClockStatus {
	m := &ClockStatus{Synchronized: s.Synchronized, Message: s.Message}
	if s.Synchronized {
		m.Hour = int32(s.Time.Hour())
		m.Minute = int32(s.Time.Minute())
		m.Second = int32(s.Time.Second())
	}
	return m
}

// DeviceMeta is the retained announcement of a device.
type DeviceMeta struct {
	ID      string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Version string `protobuf:"bytes,2,opt,name=version,proto3" json:"version,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *DeviceMeta) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DeviceMeta) Reset() { *m = DeviceMeta{} }

// String implements proto.Message.
func (m *DeviceMeta) String() string { return proto.CompactTextString(m) }
