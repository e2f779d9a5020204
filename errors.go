package memrun

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Validation errors. These are detected before any system call is made, so
// correcting the input and retrying is always safe.
var (
	// ErrInvalidELF means the image is too short to hold an ELF
	// identification header, or the magic bytes are wrong.
	ErrInvalidELF = errors.New("not a valid ELF image")

	// ErrTooManyArgs means the argument list (including argv[0]) exceeds
	// MaxArgs entries.
	ErrTooManyArgs = errors.New("too many arguments")

	// ErrArgTooLong means an argument exceeds MaxStringLen characters.
	ErrArgTooLong = errors.New("argument too long")

	// ErrTooManyEnvVars means the environment exceeds MaxEnv entries.
	ErrTooManyEnvVars = errors.New("too many environment variables")

	// ErrEnvVarTooLong means an environment entry exceeds MaxStringLen
	// characters.
	ErrEnvVarTooLong = errors.New("environment variable too long")
)

// SyscallError reports a failed system call by operation name and raw errno.
// Unwrap returns the unix.Errno so callers can match specific codes with
// errors.Is, or map them to symbolic text themselves.
type SyscallError struct {
	Op    string
	Errno unix.Errno
}

func (e *SyscallError) Error() string {
	return fmt.Sprintf("%s: %v (errno %d)", e.Op, e.Errno, int(e.Errno))
}

func (e *SyscallError) Unwrap() error {
	return e.Errno
}

// ShortWriteError reports that the image could not be fully written to the
// memory file: Written < Expected. Err holds the underlying write error when
// the kernel reported one; it is nil for a silent short write.
type ShortWriteError struct {
	Written  int
	Expected int
	Err      error
}

func (e *ShortWriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wrote %d of %d image bytes: %v", e.Written, e.Expected, e.Err)
	}
	return fmt.Sprintf("wrote %d of %d image bytes", e.Written, e.Expected)
}

func (e *ShortWriteError) Unwrap() error {
	return e.Err
}

func syscallError(op string, err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return &SyscallError{Op: op, Errno: errno}
	}
	return fmt.Errorf("%s: %w", op, err)
}
