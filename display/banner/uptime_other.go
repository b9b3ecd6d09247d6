//go:build !linux && !darwin

package banner

import "time"

// getSystemUptime returns 0 on platforms without an uptime source. The
// banner omits the uptime line in that case.
func getSystemUptime() time.Duration {
	return 0
}
