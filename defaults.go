/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"sync/atomic"
	"time"

	"github.com/northrend-labs/subproc/pconf"
)

// defaultTerminateToKillDelay mirrors pconf.defaultSpawnDefaults's own
// fallback, used when no SpawnDefaults has ever been installed
const defaultTerminateToKillDelay = 5 * time.Second

// currentSpawnDefaults holds the process-wide pconf.SpawnDefaults every
// Start call consults. nil until SetSpawnDefaults is called, which
// Start treats as "no overrides configured"
var currentSpawnDefaults atomic.Pointer[pconf.SpawnDefaults]

// SetSpawnDefaults installs defaults as the SpawnDefaults Start and
// GracefulStop consult from then on. Typically wired to pconf.Load at
// startup and to pconf.Watch's onChange for hot reload
func SetSpawnDefaults(defaults *pconf.SpawnDefaults) {
	currentSpawnDefaults.Store(defaults)
}

// defaultPipeBufferSize returns the configured DefaultPipeBufferSize, or
// 0 if none is installed
func defaultPipeBufferSize() int {
	d := currentSpawnDefaults.Load()
	if d == nil {
		return 0
	}
	return d.DefaultPipeBufferSize
}

// terminateToKillDelay returns the configured SIGTERM-to-SIGKILL
// escalation delay GracefulStop uses, or defaultTerminateToKillDelay if
// no SpawnDefaults has been installed
func terminateToKillDelay() time.Duration {
	d := currentSpawnDefaults.Load()
	if d == nil {
		return defaultTerminateToKillDelay
	}
	return d.TerminateToKillDelay
}
