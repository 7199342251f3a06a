//go:build !linux

package filestat

import (
	"os"
)

// entryTimes recovers only the portable modification time on platforms
// without a known stat structure.
func entryTimes(info os.FileInfo) statTimes {
	return statTimes{modification: info.ModTime()}
}
