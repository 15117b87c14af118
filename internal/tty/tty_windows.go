//go:build windows

package tty

import (
	"os"

	"golang.org/x/sys/windows"
)

// DefaultPath is the console input device. Output goes to CONOUT$.
const DefaultPath = "CONIN$"

const consoleOutput = "CONOUT$"

func openSession(path string) (*session, error) {
	outPath := path
	if path == DefaultPath {
		outPath = consoleOutput
	}

	in, err := openConsole(path, windows.GENERIC_READ|windows.GENERIC_WRITE)
	if err != nil {
		return nil, err
	}

	out, err := openConsole(outPath, windows.GENERIC_WRITE)
	if err != nil {
		in.Close()
		return nil, err
	}

	return &session{in: in, out: out}, nil
}

func openConsole(path string, access uint32) (*os.File, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateFile(
		name,
		access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(h), path), nil
}
