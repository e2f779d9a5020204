package memrun

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sys/unix"

	"github.com/joshrwolf/memrun/internal/sys"
)

// minImageSize is the ELF identification header (e_ident). Anything shorter
// cannot be a loadable image.
const minImageSize = 16

const defaultMemfdName = "memrun"

// Validate checks that image looks like an ELF binary: at least minImageSize
// bytes long and starting with the ELF magic. Nothing beyond that is
// checked; segment tables, architecture, and dynamic-linking needs are the
// caller's responsibility.
func Validate(image []byte) error {
	if len(image) < minImageSize {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidELF, len(image), minImageSize)
	}
	if image[0] != 0x7f || image[1] != 'E' || image[2] != 'L' || image[3] != 'F' {
		return fmt.Errorf("%w: bad magic %x", ErrInvalidELF, image[:4])
	}
	return nil
}

// memFile is an exclusively owned anonymous memory-backed file holding a
// staged image. It is addressable for exec through its /proc path.
type memFile struct {
	fd     int
	s      sys.Interface
	closed bool
}

// Path returns the path form of the descriptor, suitable for execve.
func (f *memFile) Path() string {
	return fmt.Sprintf("/proc/self/fd/%d", f.fd)
}

// Close releases the descriptor. Only the first call closes; later calls
// are no-ops, so every error path can close unconditionally without risking
// a double close.
func (f *memFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if err := f.s.Close(f.fd); err != nil {
		return syscallError("close", err)
	}
	return nil
}

// stage creates a memory-backed file and writes the image into it. On any
// failure after creation the descriptor is closed before returning. The
// write loop retries interruptions and accumulates partial writes until the
// image is complete; a write error or a silent short write surfaces as
// *ShortWriteError with the progress made.
func stage(ctx context.Context, s sys.Interface, name string, image []byte) (*memFile, error) {
	if name == "" {
		name = defaultMemfdName
	}

	fd, err := s.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, syscallError("memfd_create", err)
	}
	f := &memFile{fd: fd, s: s}

	written := 0
	for written < len(image) {
		n, err := s.Write(fd, image[written:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n > 0 {
			written += n
		}
		if err != nil {
			_ = f.Close()
			return nil, &ShortWriteError{Written: written, Expected: len(image), Err: err}
		}
		if n <= 0 {
			// Success reported with no progress made.
			_ = f.Close()
			return nil, &ShortWriteError{Written: written, Expected: len(image)}
		}
	}

	clog.FromContext(ctx).Debug("staged image", "fd", fd, "bytes", written)
	return f, nil
}
