//go:build !windows

package tty

import (
	"os"
)

// DefaultPath is the controlling terminal of the process
const DefaultPath = "/dev/tty"

func openSession(path string) (*session, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	// O_APPEND has no effect on a terminal; on a regular file standing
	// in for one it keeps the prompt from overwriting the answer.
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		in.Close()
		return nil, err
	}

	return &session{in: in, out: out}, nil
}
