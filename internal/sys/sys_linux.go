package sys

import (
	"golang.org/x/sys/unix"
)

// Linux implements Interface with real system calls.
type Linux struct{}

var _ Interface = Linux{}

func (Linux) MemfdCreate(name string, flags int) (int, error) {
	return unix.MemfdCreate(name, flags)
}

func (Linux) Write(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

func (Linux) Close(fd int) error {
	return unix.Close(fd)
}

func (Linux) Exec(path string, argv, envp []string) error {
	// unix.Exec handles argv/envp marshalling and only returns on error.
	return unix.Exec(path, argv, envp)
}

func (Linux) Wait(pid int) (unix.WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ws, err
		}
		if wpid == pid {
			return ws, nil
		}
	}
}
