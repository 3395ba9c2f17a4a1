/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"context"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/plog"
)

// GracefulStop sends SIGTERM, then escalates to SIGKILL if the child
// has not exited within the pconf.SpawnDefaults.TerminateToKillDelay
// installed via SetSpawnDefaults (5s if none was ever installed). It
// is built directly on Terminate, WaitForTermination and Kill; it does
// not go through TerminateAfter
func GracefulStop(ctx context.Context, p *Subprocess) (exitStatus int32, err error) {
	if _, sendErr := p.Terminate(ctx); sendErr != nil {
		return 0, perrs.Errorf("graceful stop: %w", sendErr)
	}

	escalate, cancel := context.WithTimeout(ctx, terminateToKillDelay())
	defer cancel()

	exitStatus, waitErr := p.WaitForTermination(escalate)
	if waitErr == nil {
		return exitStatus, nil
	}
	if ctx.Err() != nil {
		return 0, perrs.Errorf("graceful stop: %w", ctx.Err())
	}

	plog.Debug("GracefulStop: pid=%d did not exit within grace period, sending SIGKILL", p.pid)
	if _, sendErr := p.Kill(ctx); sendErr != nil {
		return 0, perrs.Errorf("graceful stop: %w", sendErr)
	}
	return p.WaitForTermination(ctx)
}
