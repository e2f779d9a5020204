package memrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/joshrwolf/memrun/internal/sys"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		image   []byte
		wantErr bool
	}{
		{
			name:    "nil",
			image:   nil,
			wantErr: true,
		},
		{
			name:    "empty",
			image:   []byte{},
			wantErr: true,
		},
		{
			name:    "magic only",
			image:   []byte{0x7f, 'E', 'L', 'F'},
			wantErr: true,
		},
		{
			name:    "one byte short of minimum",
			image:   append([]byte{0x7f, 'E', 'L', 'F'}, make([]byte, minImageSize-5)...),
			wantErr: true,
		},
		{
			name:  "exactly minimum size",
			image: append([]byte{0x7f, 'E', 'L', 'F'}, make([]byte, minImageSize-4)...),
		},
		{
			name:    "wrong magic",
			image:   bytes.Repeat([]byte{0x7f}, 64),
			wantErr: true,
		},
		{
			name:    "plain text",
			image:   []byte("#!/bin/sh\necho not an elf\n"),
			wantErr: true,
		},
		{
			name:  "trailing garbage is fine",
			image: append(validImage(), bytes.Repeat([]byte{0xff}, 1000)...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.image)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidELF) {
				t.Errorf("Validate() error = %v, want ErrInvalidELF", err)
			}
		})
	}
}

func TestStageAccumulatesPartialWrites(t *testing.T) {
	// The kernel may write fewer bytes than requested; the stager must
	// keep going until the image is complete.
	fake := &fakeSys{
		writeFn: func(call int, p []byte) (int, error) {
			n := 5
			if n > len(p) {
				n = len(p)
			}
			return n, nil
		},
	}
	img := validImage()

	f, err := stage(context.Background(), fake, "", img)
	if err != nil {
		t.Fatalf("stage() error = %v", err)
	}
	defer f.Close()

	if !bytes.Equal(fake.written.Bytes(), img) {
		t.Errorf("staged %d bytes, want %d", fake.written.Len(), len(img))
	}
	if fake.writeCalls < 2 {
		t.Errorf("expected multiple writes, got %d", fake.writeCalls)
	}
}

func TestStageRetriesEINTR(t *testing.T) {
	fake := &fakeSys{
		writeFn: func(call int, p []byte) (int, error) {
			if call < 3 {
				return 0, unix.EINTR
			}
			return len(p), nil
		},
	}
	img := validImage()

	f, err := stage(context.Background(), fake, "", img)
	if err != nil {
		t.Fatalf("stage() error = %v", err)
	}
	defer f.Close()

	if !bytes.Equal(fake.written.Bytes(), img) {
		t.Errorf("staged %d bytes after EINTR retries, want %d", fake.written.Len(), len(img))
	}
}

func TestStageShortWrite(t *testing.T) {
	// Success reported with no progress: the stager must give up, report
	// how far it got, and close the descriptor.
	fake := &fakeSys{
		writeFn: func(call int, p []byte) (int, error) {
			if call == 0 {
				return 10, nil
			}
			return 0, nil
		},
	}
	img := validImage()

	_, err := stage(context.Background(), fake, "", img)

	var shortErr *ShortWriteError
	if !errors.As(err, &shortErr) {
		t.Fatalf("stage() error = %v, want *ShortWriteError", err)
	}
	if shortErr.Written != 10 || shortErr.Expected != len(img) {
		t.Errorf("ShortWriteError = (%d, %d), want (10, %d)", shortErr.Written, shortErr.Expected, len(img))
	}
	if shortErr.Written >= shortErr.Expected {
		t.Errorf("Written %d not < Expected %d", shortErr.Written, shortErr.Expected)
	}
	if len(fake.closed) != 1 {
		t.Errorf("descriptor closed %d times, want exactly once", len(fake.closed))
	}
}

func TestStageWriteError(t *testing.T) {
	fake := &fakeSys{
		writeFn: func(call int, p []byte) (int, error) {
			if call == 0 {
				return 8, nil
			}
			return 0, unix.EIO
		},
	}
	img := validImage()

	_, err := stage(context.Background(), fake, "", img)

	var shortErr *ShortWriteError
	if !errors.As(err, &shortErr) {
		t.Fatalf("stage() error = %v, want *ShortWriteError", err)
	}
	if shortErr.Written != 8 {
		t.Errorf("Written = %d, want 8", shortErr.Written)
	}
	if !errors.Is(err, unix.EIO) {
		t.Errorf("error does not unwrap to EIO: %v", err)
	}
	if len(fake.closed) != 1 {
		t.Errorf("descriptor closed %d times, want exactly once", len(fake.closed))
	}
}

func TestStageMemfdFailure(t *testing.T) {
	fake := &fakeSys{memfdErr: unix.ENOSYS}

	_, err := stage(context.Background(), fake, "", validImage())

	var sysErr *SyscallError
	if !errors.As(err, &sysErr) || sysErr.Op != "memfd_create" {
		t.Fatalf("stage() error = %v, want *SyscallError{Op: memfd_create}", err)
	}
	if len(fake.closed) != 0 {
		t.Errorf("closed %v with no descriptor created", fake.closed)
	}
}

func TestMemFileCloseOnce(t *testing.T) {
	fake := &fakeSys{}
	f, err := stage(context.Background(), fake, "", validImage())
	if err != nil {
		t.Fatalf("stage() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := f.Close(); err != nil {
			t.Errorf("Close() #%d error = %v", i, err)
		}
	}
	if len(fake.closed) != 1 {
		t.Errorf("underlying close called %d times, want 1", len(fake.closed))
	}
}

// TestStageRealMemfd stages through the real kernel and reads the image back
// through the /proc path form.
func TestStageRealMemfd(t *testing.T) {
	img := validImage()

	f, err := stage(context.Background(), sys.Linux{}, "memrun-test", img)
	if errors.Is(err, unix.ENOSYS) {
		t.Skip("memfd_create not supported")
	}
	if err != nil {
		t.Fatalf("stage() error = %v", err)
	}
	defer f.Close()

	got, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("reading back %s: %v", f.Path(), err)
	}
	if !bytes.Equal(got, img) {
		t.Errorf("read back %d bytes, want the original %d", len(got), len(img))
	}

	if err := f.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
