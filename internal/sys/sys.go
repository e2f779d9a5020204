// Package sys is the system-call boundary of memrun.
//
// It exposes the handful of primitives the runner needs (memfd creation,
// write, close, exec, fork+exec, wait) behind a small interface so the
// library above it can be exercised against a fake in tests. The real
// implementation lives in sys_linux.go and fork_linux.go.
package sys

import (
	"golang.org/x/sys/unix"
)

// Interface is the set of OS primitives memrun runs on.
type Interface interface {
	// MemfdCreate creates an anonymous memory-backed file descriptor.
	MemfdCreate(name string, flags int) (int, error)

	// Write writes p to fd, returning the number of bytes written. Like
	// the underlying system call it may write fewer bytes than requested.
	Write(fd int, p []byte) (int, error)

	// Close closes fd.
	Close(fd int) error

	// Exec replaces the current process image. It returns only on
	// failure.
	Exec(path string, argv, envp []string) error

	// StartProcess forks and executes path in the child, returning the
	// child pid. A returned error means the fork itself failed and no
	// child exists. If the child's exec fails, the child terminates
	// immediately with the exec errno as its exit status; it never
	// returns into the caller's code.
	StartProcess(path string, argv, envp []string) (int, error)

	// Wait blocks until the child with the given pid terminates and
	// returns its raw wait status.
	Wait(pid int) (unix.WaitStatus, error)
}
