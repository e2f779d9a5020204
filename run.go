// Package memrun executes ELF binaries directly from memory on Linux,
// without ever writing them to persistent storage.
//
// The image is staged into an anonymous memory-backed file (memfd_create)
// and executed through its /proc/self/fd path, either in a child process
// whose exit status is reported back, or by replacing the calling process's
// own image.
//
// Linux only (memfd_create, Linux 3.17+). The environment passed to the
// image is empty unless Options.Env or Options.InheritEnv says otherwise.
// Forking from a multi-threaded caller carries only the calling thread into
// the child, a platform constraint the child-side exec is designed around.
package memrun

import (
	"context"

	"github.com/chainguard-dev/clog"

	"github.com/joshrwolf/memrun/internal/sys"
)

// Run executes an in-memory ELF binary in a child process and returns its
// exit code: fork mode, no arguments, empty environment, default argv[0].
func Run(ctx context.Context, image []byte) (int, error) {
	return RunWithOptions(ctx, image, Options{})
}

// RunWithOptions executes an in-memory ELF binary according to opts.
//
// In fork mode (the default) it blocks until the child terminates and
// returns its decoded exit status; a child killed by a signal reports
// 128+signal. In replace mode it does not return on success; on failure the
// calling process continues unchanged and the exec error is returned.
//
// All argument and environment validation happens before any system call,
// so invalid input never leaves OS-level side effects behind.
func RunWithOptions(ctx context.Context, image []byte, opts Options) (int, error) {
	return run(ctx, sys.Linux{}, image, opts)
}

func run(ctx context.Context, s sys.Interface, image []byte, opts Options) (int, error) {
	if err := Validate(image); err != nil {
		return 0, err
	}
	argv, err := buildArgv(opts)
	if err != nil {
		return 0, err
	}
	envp, err := buildEnvp(opts)
	if err != nil {
		return 0, err
	}

	f, err := stage(ctx, s, opts.Name, image)
	if err != nil {
		return 0, err
	}
	if argv[0] == "" {
		argv[0] = f.Path()
	}

	log := clog.FromContext(ctx)
	if opts.Replace {
		log.Debug("replacing process image", "path", f.Path())
		return 0, replaceProcess(s, f, argv, envp)
	}

	code, err := forkAndWait(ctx, s, f, argv, envp)
	if err != nil {
		return 0, err
	}
	log.Debug("child finished", "code", code)
	return code, nil
}
