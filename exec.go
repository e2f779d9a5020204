package memrun

import (
	"context"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sys/unix"

	"github.com/joshrwolf/memrun/internal/sys"
)

// replaceProcess substitutes the calling process's image with the staged
// one. On success it does not return; the original control flow is
// abandoned entirely. On failure the process continues unchanged, the
// memory file is closed, and the exec error is returned.
func replaceProcess(s sys.Interface, f *memFile, argv, envp []string) error {
	err := s.Exec(f.Path(), argv, envp)
	// Only reached when the exec failed.
	_ = f.Close()
	return syscallError("execve", err)
}

// forkAndWait runs the staged image in a child process and blocks until it
// terminates. The child side lives entirely inside sys.StartProcess: on exec
// failure the child exits immediately with the exec errno as its status, so
// the caller's logic can never run twice. The parent closes its reference to
// the memory file as soon as the child exists, then waits on that specific
// pid.
//
// There is no timeout: a hang in the executed program hangs the caller.
func forkAndWait(ctx context.Context, s sys.Interface, f *memFile, argv, envp []string) (int, error) {
	pid, err := s.StartProcess(f.Path(), argv, envp)
	if err != nil {
		_ = f.Close()
		return 0, syscallError("fork", err)
	}
	_ = f.Close()
	clog.FromContext(ctx).Debug("forked child", "pid", pid)

	ws, err := s.Wait(pid)
	if err != nil {
		return 0, syscallError("wait4", err)
	}
	return decodeStatus(ws), nil
}

// decodeStatus maps a raw wait status to a shell-style exit code: the
// child's own code for a normal exit, 128+signal when the child was killed
// by a signal.
func decodeStatus(ws unix.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}
