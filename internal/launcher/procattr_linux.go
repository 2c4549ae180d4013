package launcher

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// procAttr asks the kernel to deliver SIGKILL to the server if the
// supervising process dies, so a crashed daemon never leaks a GPU worker.
func procAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Pdeathsig: unix.SIGKILL,
	}
}
