// Package display drives banks of discrete LED outputs.
package display

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"

	fx "github.com/robotalks/binclock/pkg/framework"
)

// Bank is an ordered group of outputs rendering one value, least
// significant bit first. Its length bounds the representable value.
type Bank []gpio.PinOut

// Max returns the largest value the bank can show.
func (b Bank) Max() uint {
	return (1 << uint(len(b))) - 1
}

// PinError reports an output that could not be driven.
type PinError struct {
	Pin   string
	Level gpio.Level
	Err   error
}

// Error implements error.
func (e *PinError) Error() string {
	return fmt.Sprintf("drive %s %s: %v", e.Pin, e.Level, e.Err)
}

// Unwrap returns the driver error.
func (e *PinError) Unwrap() error {
	return e.Err
}

// Render drives every output of the bank: output i is High iff bit i of
// value is set. Bits beyond the bank are ignored.
func Render(value uint, bank Bank) error {
	var errs fx.AggregatedError
	for i, out := range bank {
		errs.Add(drive(out, gpio.Level(value&(1<<uint(i)) != 0)))
	}
	return errs.Aggregate()
}

// Clear drives every output of the banks Low.
func Clear(banks ...Bank) error {
	var errs fx.AggregatedError
	for _, bank := range banks {
		for _, out := range bank {
			errs.Add(drive(out, gpio.Low))
		}
	}
	return errs.Aggregate()
}

func drive(out gpio.PinOut, l gpio.Level) error {
	if err := out.Out(l); err != nil {
		return &PinError{Pin: out.Name(), Level: l, Err: err}
	}
	return nil
}
