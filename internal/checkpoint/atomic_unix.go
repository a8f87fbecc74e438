//go:build !windows

package checkpoint

import (
	"os"

	"github.com/google/renameio/v2"
)

// atomicWriteFile writes data to path atomically via renameio's
// write-to-temp-then-rename pattern, so a crash mid-write never leaves a
// half-written checkpoint behind.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
