package memrun

import (
	"fmt"
	"os"
)

// buildArgv assembles the argument vector: the Argv0 override (or an empty
// placeholder the caller fills in with the staged image path) followed by
// Args in order. The count check runs before the per-entry length checks,
// and lengths are checked in list order.
//
// This is pure validation and assembly; it happens before any system call
// so that invalid input never creates OS-level side effects. The memory
// file path substituted for an empty argv[0] is at most a couple dozen
// bytes and can never violate the length limit.
func buildArgv(opts Options) ([]string, error) {
	total := 1 + len(opts.Args)
	if total > MaxArgs {
		return nil, fmt.Errorf("%w: %d entries (limit %d)", ErrTooManyArgs, total, MaxArgs)
	}
	if len(opts.Argv0) > MaxStringLen {
		return nil, fmt.Errorf("argv0: %w: %d bytes (limit %d)", ErrArgTooLong, len(opts.Argv0), MaxStringLen)
	}

	argv := make([]string, 0, total)
	argv = append(argv, opts.Argv0)
	for i, arg := range opts.Args {
		if len(arg) > MaxStringLen {
			return nil, fmt.Errorf("arg %d: %w: %d bytes (limit %d)", i, ErrArgTooLong, len(arg), MaxStringLen)
		}
		argv = append(argv, arg)
	}
	return argv, nil
}

// buildEnvp assembles the environment: the caller's environment first when
// InheritEnv is set, then Env in order. Entries are passed through verbatim;
// "KEY=VALUE" structure is deliberately not enforced. The count check runs
// before the per-entry length checks.
func buildEnvp(opts Options) ([]string, error) {
	var env []string
	if opts.InheritEnv {
		env = append(env, os.Environ()...)
	}
	env = append(env, opts.Env...)

	if len(env) > MaxEnv {
		return nil, fmt.Errorf("%w: %d entries (limit %d)", ErrTooManyEnvVars, len(env), MaxEnv)
	}
	for i, e := range env {
		if len(e) > MaxStringLen {
			return nil, fmt.Errorf("env %d: %w: %d bytes (limit %d)", i, ErrEnvVarTooLong, len(e), MaxStringLen)
		}
	}
	return env, nil
}
