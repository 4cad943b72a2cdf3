// Package streams bundles the input and outputs of a command so that they
// can be swapped for buffers in tests.
package streams

import (
	"bytes"
	"io"
	"os"
)

// IO is embedded in the options of every command. Commands printing a
// report on Out send their logs to ErrOut.
type IO struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// NewStdIO returns the process streams.
func NewStdIO() IO {
	return IO{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

// NewTestIO returns an IO backed by buffers, along with the buffers.
func NewTestIO() (IO, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	return IO{
		In:     in,
		Out:    out,
		ErrOut: errOut,
	}, in, out, errOut
}
