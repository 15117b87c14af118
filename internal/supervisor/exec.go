package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// Launcher runs the mail command once with the given input on stdin
// and reports how it terminated. A non-zero exit is a normal Exit,
// not an error; errors are always *Error.
type Launcher interface {
	Launch(ctx context.Context, name string, args []string, input []byte) (Exit, error)
}

// ExecLauncher runs the command as a child process. stdout and stderr
// are handed to the child as they are, so an *os.File is inherited.
type ExecLauncher struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecLauncher creates a launcher; nil writers mean os.Stdout/os.Stderr
func NewExecLauncher(stdout, stderr io.Writer) *ExecLauncher {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &ExecLauncher{Stdout: stdout, Stderr: stderr}
}

// Launch starts name with args, writes input to its stdin, closes it
// and waits for termination.
func (l *ExecLauncher) Launch(ctx context.Context, name string, args []string, input []byte) (Exit, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Exit{Code: NoExitCode, Reason: ExitReasonUnknown}, NewError(ErrorKindLaunch, name, err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return Exit{Code: NoExitCode, Reason: ExitReasonUnknown}, NewError(ErrorKindLaunch, name, err)
	}
	pid := cmd.Process.Pid

	if err := writeAndClose(stdin, input); err != nil {
		// Reap the child so it does not outlive us as a zombie.
		_ = cmd.Wait()
		return Exit{PID: pid, Code: NoExitCode, Reason: ExitReasonUnknown}, NewError(ErrorKindWrite, name, err)
	}

	return classifyWait(name, pid, cmd.Wait())
}

// writeAndClose writes all of input and always closes w, so the child
// sees EOF even when the write fails halfway.
func writeAndClose(w io.WriteCloser, input []byte) error {
	var werr error
	if len(input) > 0 {
		_, werr = w.Write(input)
	}
	cerr := w.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func classifyWait(name string, pid int, err error) (Exit, error) {
	if err == nil {
		return Exit{PID: pid, Code: 0, Reason: ExitReasonSuccess}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Exit{PID: pid, Code: NoExitCode, Reason: ExitReasonUnknown}, NewError(ErrorKindWait, name, err)
	}

	exit := Exit{PID: pid, Code: exitErr.ExitCode(), Reason: ExitReasonError}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		exit.Reason = DetermineExitReason(exit.Code, status)
		if status.Signaled() {
			exit.Signal = SignalName(status.Signal())
		}
	}
	return exit, nil
}
