//go:build darwin

package banner

import (
	"time"

	"golang.org/x/sys/unix"
)

// getSystemUptime returns the system uptime on macOS from the
// kern.boottime sysctl.
func getSystemUptime() time.Duration {
	tv, err := unix.SysctlTimeval("kern.boottime")
	if err != nil {
		return 0
	}
	return time.Since(time.Unix(tv.Sec, int64(tv.Usec)*1000))
}
