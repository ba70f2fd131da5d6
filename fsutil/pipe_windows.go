//go:build windows

package fsutil

import (
	"fmt"
	"os"
)

// Anonymous pipes on Windows are always blocking; overlapped I/O would need
// named pipes, which nothing above this layer requires yet.
func setNonBlocking(f *os.File) error {
	return fmt.Errorf("fsutil: non-blocking pipe ends are not supported on windows")
}
