// Package timesync parses HHMM time synchronization commands.
package timesync

import (
	"fmt"
	"strconv"
	"strings"
)

// Console messages.
const (
	Banner           = "Send time in HHMM format (e.g., 1435 for 14:35)"
	MsgInvalidInput  = "Invalid input. Please use HHMM for time."
	MsgInvalidFormat = "Invalid format. Please use HHMM (e.g., 1435 for 14:35)."
	MsgInvalidTime   = "Invalid time. Please use HHMM with 00 <= HH < 24 and 00 <= MM < 60."
)

// CommandLen is the length of a command after trimming.
const CommandLen = 4

// Command is a requested time of day.
type Command struct {
	Hour   int
	Minute int
}

// String formats the command as HH:MM.
func (c Command) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// FormatSynchronized returns the acknowledgement for an applied command.
func FormatSynchronized(c Command) string {
	return "Time synchronized to: " + c.String()
}

// Stage tells which layer rejected a line.
type Stage int

// Stages.
const (
	StageIntake Stage = iota
	StageParse
)

func (s Stage) String() string {
	switch s {
	case StageIntake:
		return "intake"
	case StageParse:
		return "parse"
	}
	return "stage(" + strconv.Itoa(int(s)) + ")"
}

// FormatError reports a line which is not HHMM.
type FormatError struct {
	Input string
	Stage Stage
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: malformed time %q", e.Stage, e.Input)
}

// Diagnostic returns the console message.
func (e *FormatError) Diagnostic() string {
	if e.Stage == StageIntake {
		return MsgInvalidInput
	}
	return MsgInvalidFormat
}

// RangeError reports a well-formed command out of the valid range.
type RangeError struct {
	Hour   int
	Minute int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("time out of range: hour %d, minute %d", e.Hour, e.Minute)
}

// Diagnostic returns the console message.
func (e *RangeError) Diagnostic() string {
	return MsgInvalidTime
}

// Diagnosed is implemented by errors that carry a console message.
type Diagnosed interface {
	error
	Diagnostic() string
}

// Diagnostic returns the console message for err, falling back to the
// intake message for errors without one.
func Diagnostic(err error) string {
	if d, ok := err.(Diagnosed); ok {
		return d.Diagnostic()
	}
	return MsgInvalidInput
}

// Parser converts lines into Commands.
type Parser struct {
	// Lenient converts fields the way a leading-integer conversion does:
	// leading digits are used and a field without digits becomes 0.
	// Otherwise non-digit content is rejected.
	Lenient bool
}

// ParseLine validates a raw line at intake and parses it.
func (p Parser) ParseLine(line string) (Command, error) {
	s := strings.TrimSpace(line)
	if len(s) != CommandLen {
		return Command{}, &FormatError{Input: s, Stage: StageIntake}
	}
	if p.Lenient {
		if leadingInt(s) < 0 {
			return Command{}, &FormatError{Input: s, Stage: StageIntake}
		}
	} else if !allDigits(s) {
		return Command{}, &FormatError{Input: s, Stage: StageIntake}
	}
	return p.Parse(s)
}

// Parse converts a trimmed 4 character string into a Command.
func (p Parser) Parse(raw string) (Command, error) {
	s := strings.TrimSpace(raw)
	if len(s) != CommandLen {
		return Command{}, &FormatError{Input: s, Stage: StageParse}
	}
	hh, mm := s[0:2], s[2:4]
	var cmd Command
	if p.Lenient {
		cmd.Hour, cmd.Minute = leadingInt(hh), leadingInt(mm)
	} else {
		if !allDigits(s) {
			return Command{}, &FormatError{Input: s, Stage: StageParse}
		}
		cmd.Hour, _ = strconv.Atoi(hh)
		cmd.Minute, _ = strconv.Atoi(mm)
	}
	if cmd.Hour < 0 || cmd.Hour > 23 || cmd.Minute < 0 || cmd.Minute > 59 {
		return Command{}, &RangeError{Hour: cmd.Hour, Minute: cmd.Minute}
	}
	return cmd, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// leadingInt converts an optional sign followed by leading digits, skipping
// leading spaces. Anything else yields 0.
func leadingInt(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
