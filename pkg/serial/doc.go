// Package serial carries the line based console protocol over a serial
// port.
//
// Reading happens on a separate goroutine which hands complete lines to
// the control loop through a bounded queue, so the loop only ever performs
// a non-blocking check for a pending line.
package serial
