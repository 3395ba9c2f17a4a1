/*
© 2026–present Northrend Labs
ISC License
*/

// Package pconf loads and watches the on-disk defaults subproc.Start
// callers may use to pre-fill pipe-buffer size hints and the
// terminate-then-kill escalation delay, instead of hard-coding them at
// every call site.
//   - grounded on github.com/haraldrudell/parl/yamler and
//     github.com/haraldrudell/parl/watchfs: YAML for the file format,
//     fsnotify for change notification
package pconf

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/northrend-labs/subproc/internal/perrs"
)

// SpawnDefaults are the tunables a deployment may want to change
// without a rebuild
type SpawnDefaults struct {
	// DefaultPipeBufferSize, if non-zero, is applied as the size hint
	// to every StdinPipe/StreamPipe that does not specify one of its own
	DefaultPipeBufferSize int `yaml:"defaultPipeBufferSize"`
	// TerminateToKillDelay is how long subproc.GracefulStop waits
	// between SIGTERM and SIGKILL once installed via SetSpawnDefaults
	TerminateToKillDelay time.Duration `yaml:"terminateToKillDelay"`
}

// defaultSpawnDefaults mirrors the zero-config behavior subproc had
// before pconf existed: no size hint, a five-second grace period
func defaultSpawnDefaults() *SpawnDefaults {
	return &SpawnDefaults{TerminateToKillDelay: 5 * time.Second}
}

// Load reads and parses path as YAML into a SpawnDefaults, starting
// from defaultSpawnDefaults() so a partial file only overrides the
// fields it sets
func Load(path string) (defaults *SpawnDefaults, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrs.Errorf("pconf load: %w", err)
	}
	defaults = defaultSpawnDefaults()
	if err = yaml.Unmarshal(data, defaults); err != nil {
		return nil, perrs.Errorf("pconf load: %w", err)
	}
	return defaults, nil
}
