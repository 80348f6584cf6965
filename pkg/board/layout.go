// Package board maps LED banks and the loading animation onto the GPIO
// outputs of a board.
package board

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/robotalks/binclock/pkg/display"
)

// Bank widths.
const (
	HourBits   = 4
	MinuteBits = 6
)

// ErrNoLayout indicates a layout without any outputs.
var ErrNoLayout = errors.New("no outputs in layout")

// StepDef is an animation step in a layout file.
type StepDef struct {
	Pin  string        `yaml:"pin"`
	Hold time.Duration `yaml:"hold"`
}

// Layout names the outputs, least significant bit first.
type Layout struct {
	HourPins   []string      `yaml:"hour_pins"`
	MinutePins []string      `yaml:"minute_pins"`
	Animation  []StepDef     `yaml:"animation"`
	On         time.Duration `yaml:"on,omitempty"`
}

// Default returns the reference wiring.
func Default() *Layout {
	return &Layout{
		HourPins:   []string{"GPIO13", "GPIO15", "GPIO18", "GPIO20"},
		MinutePins: []string{"GPIO7", "GPIO6", "GPIO5", "GPIO4", "GPIO3", "GPIO2"},
		Animation: []StepDef{
			{Pin: "GPIO15", Hold: 150 * time.Millisecond},
			{Pin: "GPIO13", Hold: 200 * time.Millisecond},
			{Pin: "GPIO7", Hold: 50 * time.Millisecond},
			{Pin: "GPIO6", Hold: 50 * time.Millisecond},
			{Pin: "GPIO5", Hold: 50 * time.Millisecond},
			{Pin: "GPIO4", Hold: 50 * time.Millisecond},
			{Pin: "GPIO3", Hold: 50 * time.Millisecond},
			{Pin: "GPIO2", Hold: 200 * time.Millisecond},
			{Pin: "GPIO20", Hold: 150 * time.Millisecond},
			{Pin: "GPIO18", Hold: 50 * time.Millisecond},
		},
		On: display.DefaultOn,
	}
}

// Decode reads a YAML layout.
func Decode(r io.Reader) (*Layout, error) {
	l := &Layout{}
	if err := yaml.NewDecoder(r).Decode(l); err != nil {
		return nil, fmt.Errorf("decode layout: %v", err)
	}
	return l, l.Validate()
}

// Load reads a layout file, an empty path gives the reference layout.
func Load(path string) (*Layout, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes the layout as YAML.
func (l *Layout) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(l)
}

// Validate checks the banks are wide enough for 12-hour time.
func (l *Layout) Validate() error {
	if len(l.HourPins) == 0 && len(l.MinutePins) == 0 {
		return ErrNoLayout
	}
	if len(l.HourPins) < HourBits {
		return fmt.Errorf("hour bank needs %d pins, got %d", HourBits, len(l.HourPins))
	}
	if len(l.MinutePins) < MinuteBits {
		return fmt.Errorf("minute bank needs %d pins, got %d", MinuteBits, len(l.MinutePins))
	}
	for n, step := range l.Animation {
		if step.Pin == "" {
			return fmt.Errorf("animation step %d: missing pin", n)
		}
		if step.Hold < 0 {
			return fmt.Errorf("animation step %d: negative hold", n)
		}
	}
	return nil
}

// Resolver finds an output by name.
type Resolver func(name string) gpio.PinIO

// Board holds the resolved outputs.
type Board struct {
	Hours     display.Bank
	Minutes   display.Bank
	Animation []display.Step
	On        time.Duration
}

// Banks returns all banks.
func (b *Board) Banks() []display.Bank {
	return []display.Bank{b.Hours, b.Minutes}
}

// Open resolves every pin of the layout, using gpioreg when resolve is nil.
func (l *Layout) Open(resolve Resolver) (*Board, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if resolve == nil {
		resolve = gpioreg.ByName
	}
	pins := make(map[string]gpio.PinOut)
	lookup := func(name string) (gpio.PinOut, error) {
		if p, ok := pins[name]; ok {
			return p, nil
		}
		p := resolve(name)
		if p == nil {
			return nil, fmt.Errorf("unknown pin %q", name)
		}
		pins[name] = p
		return p, nil
	}
	bank := func(names []string) (display.Bank, error) {
		b := make(display.Bank, len(names))
		for n, name := range names {
			p, err := lookup(name)
			if err != nil {
				return nil, err
			}
			b[n] = p
		}
		return b, nil
	}

	b := &Board{On: l.On}
	var err error
	if b.Hours, err = bank(l.HourPins); err != nil {
		return nil, err
	}
	if b.Minutes, err = bank(l.MinutePins); err != nil {
		return nil, err
	}
	for _, def := range l.Animation {
		p, err := lookup(def.Pin)
		if err != nil {
			return nil, err
		}
		b.Animation = append(b.Animation, display.Step{Output: p, Hold: def.Hold})
	}
	return b, nil
}
