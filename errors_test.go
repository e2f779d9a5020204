package memrun

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func TestSyscallError(t *testing.T) {
	err := &SyscallError{Op: "memfd_create", Errno: unix.ENOSYS}

	if !errors.Is(err, unix.ENOSYS) {
		t.Errorf("errors.Is(err, ENOSYS) = false")
	}
	msg := err.Error()
	if !strings.Contains(msg, "memfd_create") {
		t.Errorf("message %q missing operation name", msg)
	}
	if !strings.Contains(msg, "38") { // ENOSYS on Linux
		t.Errorf("message %q missing raw errno", msg)
	}
}

func TestShortWriteError(t *testing.T) {
	bare := &ShortWriteError{Written: 3, Expected: 10}
	if bare.Unwrap() != nil {
		t.Errorf("bare short write unwraps to %v, want nil", bare.Unwrap())
	}
	if !strings.Contains(bare.Error(), "3 of 10") {
		t.Errorf("message %q missing byte counts", bare.Error())
	}

	wrapped := &ShortWriteError{Written: 3, Expected: 10, Err: unix.EIO}
	if !errors.Is(wrapped, unix.EIO) {
		t.Errorf("errors.Is(wrapped, EIO) = false")
	}
}

func TestSyscallErrorHelperNonErrno(t *testing.T) {
	plain := errors.New("not an errno")
	err := syscallError("write", plain)
	if _, ok := err.(*SyscallError); ok {
		t.Errorf("non-errno error should not become *SyscallError")
	}
	if !errors.Is(err, plain) {
		t.Errorf("wrapped error lost its cause: %v", err)
	}
}
