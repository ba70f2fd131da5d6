//go:build unix

package fsutil

import (
	"os"
	"syscall"
)

func setNonBlocking(f *os.File) error {
	return syscall.SetNonblock(int(f.Fd()), true)
}
