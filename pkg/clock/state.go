// Package clock keeps the time of day once it has been synchronized.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/robotalks/binclock/pkg/timesync"
)

// State is the software clock. Before the first Apply it is not
// synchronized and its time is meaningless.
type State struct {
	Clock clockwork.Clock

	synchronized bool
	base         time.Time
	setAt        time.Time
}

// NewState creates an unsynchronized State on clk, or on the real clock
// when clk is nil.
func NewState(clk clockwork.Clock) *State {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &State{Clock: clk}
}

// Synchronized tells whether a time has ever been applied.
func (s *State) Synchronized() bool {
	return s.synchronized
}

// Apply sets the time of day to cmd with seconds reset, keeping the current
// date. It marks the state synchronized.
func (s *State) Apply(cmd timesync.Command) {
	ref := s.Clock.Now()
	if s.synchronized {
		ref = s.Now()
	}
	y, m, d := ref.Date()
	s.base = time.Date(y, m, d, cmd.Hour, cmd.Minute, 0, 0, ref.Location())
	s.setAt = s.Clock.Now()
	s.synchronized = true
}

// Now returns the current time: the applied time plus the time elapsed
// since it was applied.
func (s *State) Now() time.Time {
	return s.base.Add(s.Clock.Since(s.setAt))
}

// Hour returns the hour of day, 0 to 23.
func (s *State) Hour() int {
	return s.Now().Hour()
}

// Minute returns the minute, 0 to 59.
func (s *State) Minute() int {
	return s.Now().Minute()
}
