//go:build !linux

package launcher

import "syscall"

func procAttr() *syscall.SysProcAttr {
	return nil
}
