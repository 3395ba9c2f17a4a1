/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/northrend-labs/subproc/internal/perrs"
	"github.com/northrend-labs/subproc/internal/plog"
)

var devNullOnce sync.Once
var devNullFD int
var devNullErr error

var firstStartOnce sync.Once

// sharedDevNull opens /dev/null read-write, close-on-exec, once per
// process and reuses it across every Discard stream (spec.md §4.8 step
// 2: "open /dev/null read-write once with close-on-exec and reuse it
// across streams")
func sharedDevNull() (fd int, err error) {
	devNullOnce.Do(func() {
		devNullFD, devNullErr = unix.Open("/dev/null", unix.O_RDWR|unix.O_CLOEXEC, 0)
	})
	return devNullFD, devNullErr
}

// spawnPlan accumulates the two descriptor sets of spec.md §4.8 step 1
// plus the three child-side descriptors fork/exec will dup2 into place
type spawnPlan struct {
	childFD [3]int // stdin, stdout, stderr as seen by the child

	closeAfterSpawn       []int
	closeAfterTermination []int

	input  *Input  // nil unless Stdin requested a pipe
	output [2]*Output // [stdout, stderr]; nil entries mean discard/file
}

// Start is the Initialization Pipeline (spec.md §4.8): it provisions
// stdin/stdout/stderr, starts the termination watcher paused, invokes
// the Fork/Exec Engine, and on success returns a running Subprocess
func Start(params Params) (proc *Subprocess, initErr *InitError) {
	firstStartOnce.Do(func() {
		if startTime, err := ParentStartTime(); err == nil {
			plog.Debug("Start: parent running since %s", startTime)
		}
	})

	plan, err := buildSpawnPlan(params)
	if err != nil {
		return nil, err
	}

	watcher := newTerminationWatcher(nil) // onExit wired once proc exists, see below

	pid, forkErr := forkExec(params.ExecutablePath, params.Arguments, params.Environment,
		plan.childFD[0], plan.childFD[1], plan.childFD[2])
	if forkErr != nil {
		closeAll(plan.closeAfterSpawn)
		closeAll(plan.closeAfterTermination)
		watcher.cancel()
		return nil, forkErr
	}

	closeAll(plan.closeAfterSpawn)

	proc = newSubprocess(pid, plan.input, plan.output[0], plan.output[1])
	watcher.onExit = proc.onTermination
	proc.watcher = watcher
	watcher.resume(pid)

	plog.Debug("Start: pid=%d executablePath=%s", pid, params.ExecutablePath)
	return proc, nil
}

// buildSpawnPlan realizes spec.md §4.8 steps 1-2
func buildSpawnPlan(params Params) (plan *spawnPlan, initErr *InitError) {
	plan = &spawnPlan{}

	stdinFD, input, err := provisionStdin(params.Stdin, plan)
	if err != nil {
		closeAll(plan.closeAfterSpawn)
		closeAll(plan.closeAfterTermination)
		return nil, newInitError(StageStdin, ReasonPipeOpenFailed, err)
	}
	plan.childFD[0] = stdinFD
	plan.input = input

	stdoutFD, stdoutOutput, err := provisionStream(params.Stdout, plan)
	if err != nil {
		closeAll(plan.closeAfterSpawn)
		closeAll(plan.closeAfterTermination)
		return nil, newInitError(StageStdout, ReasonPipeOpenFailed, err)
	}
	plan.childFD[1] = stdoutFD
	plan.output[0] = stdoutOutput

	stderrFD, stderrOutput, err := provisionStream(params.Stderr, plan)
	if err != nil {
		closeAll(plan.closeAfterSpawn)
		closeAll(plan.closeAfterTermination)
		return nil, newInitError(StageStderr, ReasonPipeOpenFailed, err)
	}
	plan.childFD[2] = stderrFD
	plan.output[1] = stderrOutput

	return plan, nil
}

func provisionStdin(cfg StdinConfig, plan *spawnPlan) (childFD int, input *Input, err error) {
	switch cfg.kind {
	case stdinNone:
		fd, err := sharedDevNull()
		if err != nil {
			return 0, nil, perrs.Errorf("stdin /dev/null: %w", err)
		}
		return fd, nil, nil

	case stdinFile:
		if cfg.closeAfterSpawn {
			plan.closeAfterSpawn = append(plan.closeAfterSpawn, cfg.fd)
		}
		return cfg.fd, nil, nil

	default: // stdinPipe
		return provisionStdinPipe(cfg, plan)
	}
}

// provisionStdinPipe creates the pipe whose read end becomes the
// child's stdin and whose write end is wrapped as Input
func provisionStdinPipe(cfg StdinConfig, plan *spawnPlan) (childFD int, input *Input, err error) {
	var fds [2]int
	if err = pipe2CloExec(fds[:]); err != nil {
		return 0, nil, perrs.Errorf("stdin pipe: %w", err)
	}
	readFD, writeFD := fds[0], fds[1]

	if err = setNonblocking(writeFD); err != nil {
		unix.Close(readFD)
		unix.Close(writeFD)
		return 0, nil, perrs.Errorf("stdin pipe nonblocking: %w", err)
	}
	bufferSize := cfg.bufferSize
	if bufferSize <= 0 {
		bufferSize = defaultPipeBufferSize()
	}
	if bufferSize > 0 {
		if err = setPipeBufferSize(writeFD, bufferSize); err != nil {
			unix.Close(readFD)
			unix.Close(writeFD)
			return 0, nil, perrs.Errorf("stdin pipe buffer size: %w", err)
		}
	}

	plan.closeAfterSpawn = append(plan.closeAfterSpawn, readFD)
	plan.closeAfterTermination = append(plan.closeAfterTermination, writeFD)
	return readFD, newInput(writeFD), nil
}

func provisionStream(cfg StreamConfig, plan *spawnPlan) (childFD int, output *Output, err error) {
	switch cfg.kind {
	case streamDiscard:
		fd, err := sharedDevNull()
		if err != nil {
			return 0, nil, perrs.Errorf("stream /dev/null: %w", err)
		}
		return fd, nil, nil

	case streamFile:
		if cfg.closeAfterSpawn {
			plan.closeAfterSpawn = append(plan.closeAfterSpawn, cfg.fd)
		}
		return cfg.fd, nil, nil

	default: // streamPipe
		var fds [2]int
		if err = pipe2CloExec(fds[:]); err != nil {
			return 0, nil, perrs.Errorf("stream pipe: %w", err)
		}
		readFD, writeFD := fds[0], fds[1]

		if err = setNonblocking(readFD); err != nil {
			unix.Close(readFD)
			unix.Close(writeFD)
			return 0, nil, perrs.Errorf("stream pipe nonblocking: %w", err)
		}
		bufferSize := cfg.bufferSize
		if bufferSize <= 0 {
			bufferSize = defaultPipeBufferSize()
		}
		if bufferSize > 0 {
			if err = setPipeBufferSize(writeFD, bufferSize); err != nil {
				unix.Close(readFD)
				unix.Close(writeFD)
				return 0, nil, perrs.Errorf("stream pipe buffer size: %w", err)
			}
		}

		plan.closeAfterSpawn = append(plan.closeAfterSpawn, writeFD)
		plan.closeAfterTermination = append(plan.closeAfterTermination, readFD)
		return writeFD, newOutput(readFD), nil
	}
}

// pipe2CloExec creates a pipe with both ends close-on-exec; fork/exec
// clears CLOEXEC on exactly the one end it dup2s into the child
func pipe2CloExec(fds []int) (err error) {
	var p [2]int
	if err = unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return err
	}
	fds[0], fds[1] = p[0], p[1]
	return nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}
