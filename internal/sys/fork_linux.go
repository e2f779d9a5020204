package sys

import (
	"runtime"
	"syscall"
	"unsafe" // also required for go:linkname

	"golang.org/x/sys/unix"
)

// The runtime's fork hooks, reached the same way the syscall package reaches
// them. They quiesce signal handling around the clone so the child starts in
// a sane state.
//
//go:linkname runtimeBeforeFork syscall.runtime_BeforeFork
func runtimeBeforeFork()

//go:linkname runtimeAfterFork syscall.runtime_AfterFork
func runtimeAfterFork()

//go:linkname runtimeAfterForkInChild syscall.runtime_AfterForkInChild
func runtimeAfterForkInChild()

func (Linux) StartProcess(path string, argv, envp []string) (int, error) {
	// All marshalling happens before the fork; the child may not allocate.
	pathp, err := syscall.BytePtrFromString(path)
	if err != nil {
		return 0, err
	}
	argvp, err := syscall.SlicePtrFromStrings(argv)
	if err != nil {
		return 0, err
	}
	envpp, err := syscall.SlicePtrFromStrings(envp)
	if err != nil {
		return 0, err
	}

	// ForkLock keeps other threads from creating file descriptors that
	// would leak into the child without close-on-exec.
	syscall.ForkLock.Lock()
	pid, errno := forkExec(pathp, argvp, envpp)
	syscall.ForkLock.Unlock()

	runtime.KeepAlive(pathp)
	runtime.KeepAlive(argvp)
	runtime.KeepAlive(envpp)

	if errno != 0 {
		return 0, errno
	}
	return pid, nil
}

// forkExec clones the process and execs path in the child. Only the parent
// returns. If the exec fails, the child exits immediately with the exec
// errno as its status so the parent's wait can surface the cause; there is
// no code path returning the child into Go.
//
// Between clone and execve the child may only issue raw system calls: the Go
// runtime in the child inherits only the forking thread and is not safe to
// re-enter.
//
//go:norace
func forkExec(path *byte, argv, envp []*byte) (int, syscall.Errno) {
	runtimeBeforeFork()
	pid, _, err1 := syscall.RawSyscall6(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0, 0, 0, 0)
	if err1 != 0 {
		runtimeAfterFork()
		return 0, err1
	}
	if pid != 0 {
		// Parent.
		runtimeAfterFork()
		return int(pid), 0
	}

	// Child.
	runtimeAfterForkInChild()
	_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE,
		uintptr(unsafe.Pointer(path)),
		uintptr(unsafe.Pointer(&argv[0])),
		uintptr(unsafe.Pointer(&envp[0])))
	for {
		syscall.RawSyscall(unix.SYS_EXIT_GROUP, uintptr(err1), 0, 0)
	}
}
