// Package tty opens the controlling terminal for the retry dialogue,
// independently of stdin/stdout/stderr.
//
// On unix this is /dev/tty. Windows has no such device file; the
// console is reached through CONIN$ (input) and CONOUT$ (output), which
// refer to the console attached to the process even when the standard
// handles are redirected.
package tty

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

// Device is an interactive terminal that can be opened for one
// prompt/answer exchange.
type Device interface {
	// Open returns a fresh handle; writes go to the terminal output,
	// reads come from the terminal input. The caller must Close it.
	Open() (io.ReadWriteCloser, error)
	// Path names the device in diagnostics.
	Path() string
}

// File is the platform terminal device, or any file standing in for it
type File struct {
	path string
}

// New returns the device at path, or the platform default when empty
func New(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{path: path}
}

// Path returns the device path
func (f *File) Path() string {
	return f.path
}

// Open opens separate input and output handles on the device
func (f *File) Open() (io.ReadWriteCloser, error) {
	s, err := openSession(f.path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// session pairs the input and output handles of one exchange
type session struct {
	in  *os.File
	out *os.File
}

func (s *session) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

func (s *session) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// Close closes both handles
func (s *session) Close() error {
	return errors.Join(s.out.Close(), s.in.Close())
}

// Fd returns the input descriptor
func (s *session) Fd() uintptr {
	return s.in.Fd()
}

// IsInteractive reports whether rw is backed by a real terminal.
// Handles that are not files (or plain files used in place of the
// device) report false.
func IsInteractive(rw io.ReadWriteCloser) bool {
	f, ok := rw.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
