package memrun

// Limits on the argument and environment lists. They mirror the fixed
// capacities of the execve marshalling layer; inputs are rejected before any
// system call when a limit is exceeded.
const (
	// MaxArgs is the maximum number of argv entries, including argv[0].
	MaxArgs = 32

	// MaxEnv is the maximum number of environment entries.
	MaxEnv = 64

	// MaxStringLen is the maximum length of a single argument or
	// environment entry, in bytes.
	MaxStringLen = 256
)

// Options configures how an in-memory image is executed.
//
// The zero value runs the image in a child process with no arguments, an
// empty environment, and the memory file path as argv[0].
type Options struct {
	// Replace substitutes the calling process's image instead of forking.
	// On success the call never returns.
	Replace bool

	// Args are passed to the image as argv[1:], in order. At most
	// MaxArgs-1 entries of at most MaxStringLen bytes each.
	Args []string

	// Env is the environment for the image, conventionally "KEY=VALUE".
	// Entries are passed through verbatim; no structure is enforced. At
	// most MaxEnv entries of at most MaxStringLen bytes each.
	Env []string

	// InheritEnv prepends the calling process's environment to Env. The
	// combined list is still subject to the MaxEnv and MaxStringLen
	// limits.
	InheritEnv bool

	// Argv0 overrides the program name the image sees. Default is the
	// memory file path (/proc/self/fd/N).
	Argv0 string

	// Name is the memory file name shown in /proc. Default "memrun". Has
	// no effect on execution.
	Name string
}
