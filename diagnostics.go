/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"sync"
	"time"

	"github.com/elastic/go-sysinfo"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/plog"
)

var parentStartOnce sync.Once
var parentStartTime time.Time
var parentStartErr error

// ParentStartTime returns this process's own start time, consulted
// once and cached. Start logs it alongside the first child it spawns
// so a debug trace can correlate a long-lived parent's age against the
// children it creates over its lifetime
func ParentStartTime() (startTime time.Time, err error) {
	parentStartOnce.Do(func() {
		host, hostErr := sysinfo.Host()
		if hostErr != nil {
			parentStartErr = perrs.Errorf("parent start time: %w", hostErr)
			return
		}
		parentStartTime = host.Info().BootTime
		if proc, procErr := sysinfo.Self(); procErr == nil {
			if info, infoErr := proc.Info(); infoErr == nil {
				parentStartTime = info.StartTime
			}
		}
	})
	if parentStartErr != nil {
		plog.Debug("ParentStartTime: %s", perrs.Short(parentStartErr))
	}
	return parentStartTime, parentStartErr
}
