//go:build linux

package filestat

import (
	"os"
	"syscall"
	"time"
)

// entryTimes recovers modification, access and inode change times from the
// underlying stat structure.
func entryTimes(info os.FileInfo) statTimes {
	times := statTimes{modification: info.ModTime()}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return times
	}

	times.access = time.Unix(stat.Atim.Sec, stat.Atim.Nsec)
	times.change = time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)

	return times
}
