/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/northrend-labs/subproc/internal/perrs"
)

const (
	binTrue  = "/bin/true"
	binFalse = "/bin/false"
	binSleep = "/bin/sleep"
	binCat   = "/bin/cat"
	binWC    = "/usr/bin/wc"
	binGrep  = "/usr/bin/grep"
)

func TestStartNormalExit(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binTrue,
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exitStatus, err := proc.WaitForTermination(ctx)
	if err != nil {
		t.Fatalf("WaitForTermination: %s", perrs.Short(err))
	}
	if exitStatus != 0 {
		t.Errorf("exitStatus: %d exp 0", exitStatus)
	}
}

func TestStartNonzeroExit(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binFalse,
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exitStatus, err := proc.WaitForTermination(ctx)
	if err != nil {
		t.Fatalf("WaitForTermination: %s", perrs.Short(err))
	}
	if exitStatus != 1 {
		t.Errorf("exitStatus: %d exp 1", exitStatus)
	}
}

func TestStartNoSuchExecutable(t *testing.T) {
	_, initErr := Start(Params{
		ExecutablePath: "/no/such/executable",
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr == nil {
		t.Fatal("Start: missing InitError")
	}
	if !initErr.IsNoSuchFileOrDirectory() {
		t.Errorf("Start: %s exp IsNoSuchFileOrDirectory", perrs.Short(initErr))
	}
}

func TestSendSignalKill(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binSleep,
		Arguments:      Arguments{Args: []ArgValue{Arg("86400")}},
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sent, err := proc.Kill(ctx)
	if err != nil {
		t.Fatalf("Kill: %s", perrs.Short(err))
	}
	if !sent {
		t.Fatal("Kill: sent=false")
	}

	exitStatus, err := proc.WaitForTermination(ctx)
	if err != nil {
		t.Fatalf("WaitForTermination: %s", perrs.Short(err))
	}
	if exitStatus != -int32(SIGKILL) {
		t.Errorf("exitStatus: %d exp %d", exitStatus, -int32(SIGKILL))
	}
}

func TestSendSignalAfterTerminated(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binTrue,
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := proc.WaitForTermination(ctx); err != nil {
		t.Fatalf("WaitForTermination: %s", perrs.Short(err))
	}

	sent, err := proc.SendSignal(ctx, SIGTERM)
	if err != nil {
		t.Fatalf("SendSignal: %s", perrs.Short(err))
	}
	if sent {
		t.Error("SendSignal: sent=true after termination, want false")
	}
}

func TestWaitForTerminationCancellation(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binSleep,
		Arguments:      Arguments{Args: []ArgValue{Arg("86400")}},
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}
	defer proc.Kill(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := proc.WaitForTermination(ctx)
	if err == nil {
		t.Fatal("WaitForTermination: missing error on cancellation")
	}
}

func TestMultipleWaiters(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binSleep,
		Arguments:      Arguments{Args: []ArgValue{Arg("0.2")}},
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const waiterCount = 5
	results := make(chan int32, waiterCount)
	for i := 0; i < waiterCount; i++ {
		go func() {
			exitStatus, err := proc.WaitForTermination(ctx)
			if err != nil {
				t.Errorf("WaitForTermination: %s", perrs.Short(err))
				return
			}
			results <- exitStatus
		}()
	}
	for i := 0; i < waiterCount; i++ {
		if exitStatus := <-results; exitStatus != 0 {
			t.Errorf("waiter %d: exitStatus %d exp 0", i, exitStatus)
		}
	}
}

func TestInputOutputRoundTrip(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binCat,
		Stdin:          StdinPipe(),
		Stdout:         StreamPipe(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const message = "round trip through cat\n"
	if _, _, err := proc.Stdin.WriteString(ctx, message); err != nil {
		t.Fatalf("WriteString: %s", perrs.Short(err))
	}
	if err := proc.Stdin.Close(); err != nil {
		t.Fatalf("Stdin Close: %s", perrs.Short(err))
	}

	data, err := proc.Stdout.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %s", perrs.Short(err))
	}
	// WriteString NUL-terminates; cat echoes the NUL back too
	got := strings.TrimSuffix(string(data), "\x00")
	if got != message {
		t.Errorf("round trip: got %q exp %q", got, message)
	}

	if _, err := proc.WaitForTermination(ctx); err != nil {
		t.Fatalf("WaitForTermination: %s", perrs.Short(err))
	}
}

func TestReadOutputAndWait(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binCat,
		Stdin:          StdinPipe(),
		Stdout:         StreamPipe(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const payload = "some output\nmore output\n"
	if _, _, err := proc.Stdin.WriteAll(ctx, []byte(payload)); err != nil {
		t.Fatalf("WriteAll: %s", perrs.Short(err))
	}
	if err := proc.Stdin.Close(); err != nil {
		t.Fatalf("Stdin Close: %s", perrs.Short(err))
	}

	exitStatus, stdout, _, err := proc.ReadOutputAndWait(ctx, true, false)
	if err != nil {
		t.Fatalf("ReadOutputAndWait: %s", perrs.Short(err))
	}
	if exitStatus != 0 {
		t.Errorf("exitStatus: %d exp 0", exitStatus)
	}
	if string(stdout) != payload {
		t.Errorf("stdout: %q exp %q", stdout, payload)
	}
}

func TestTerminateAfter(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binSleep,
		Arguments:      Arguments{Args: []ArgValue{Arg("86400")}},
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}

	ctx := context.Background()
	outcome := TerminateAfter(ctx, proc, SIGTERM, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if outcome.Err != nil {
		t.Fatalf("TerminateAfter: %s", perrs.Short(outcome.Err))
	}
	if outcome.Cancelled {
		t.Fatal("TerminateAfter: unexpectedly cancelled")
	}
	if outcome.Value != 42 {
		t.Errorf("TerminateAfter value: %d exp 42", outcome.Value)
	}
	exitStatus, terminated := proc.IsTerminated()
	if !terminated {
		t.Fatal("TerminateAfter: process not terminated after return")
	}
	if exitStatus != -int32(SIGTERM) {
		t.Errorf("TerminateAfter exitStatus: %d exp %d", exitStatus, -int32(SIGTERM))
	}
}

func TestThreeStagePipeline(t *testing.T) {
	cat, initErr := Start(Params{
		ExecutablePath: binCat,
		Stdin:          StdinPipe(),
		Stdout:         StreamPipe(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start cat: %s", perrs.Short(initErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const lines = "alpha\nbeta\ngamma\n"
	if _, _, err := cat.Stdin.WriteAll(ctx, []byte(lines)); err != nil {
		t.Fatalf("WriteAll: %s", perrs.Short(err))
	}
	if err := cat.Stdin.Close(); err != nil {
		t.Fatalf("Stdin Close: %s", perrs.Short(err))
	}
	catOut, err := cat.Stdout.ReadAll(ctx)
	if err != nil {
		t.Fatalf("cat ReadAll: %s", perrs.Short(err))
	}
	if _, err := cat.WaitForTermination(ctx); err != nil {
		t.Fatalf("cat WaitForTermination: %s", perrs.Short(err))
	}

	grep, initErr := Start(Params{
		ExecutablePath: binGrep,
		Arguments:      Arguments{Args: []ArgValue{Arg("-o"), Arg("a")}},
		Stdin:          StdinPipe(),
		Stdout:         StreamPipe(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start grep: %s", perrs.Short(initErr))
	}
	if _, _, err := grep.Stdin.WriteAll(ctx, catOut); err != nil {
		t.Fatalf("WriteAll grep: %s", perrs.Short(err))
	}
	if err := grep.Stdin.Close(); err != nil {
		t.Fatalf("grep Stdin Close: %s", perrs.Short(err))
	}
	grepOut, err := grep.Stdout.ReadAll(ctx)
	if err != nil {
		t.Fatalf("grep ReadAll: %s", perrs.Short(err))
	}
	if _, err := grep.WaitForTermination(ctx); err != nil {
		t.Fatalf("grep WaitForTermination: %s", perrs.Short(err))
	}

	wc, initErr := Start(Params{
		ExecutablePath: binWC,
		Arguments:      Arguments{Args: []ArgValue{Arg("-l")}},
		Stdin:          StdinPipe(),
		Stdout:         StreamPipe(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start wc: %s", perrs.Short(initErr))
	}
	if _, _, err := wc.Stdin.WriteAll(ctx, grepOut); err != nil {
		t.Fatalf("WriteAll wc: %s", perrs.Short(err))
	}
	if err := wc.Stdin.Close(); err != nil {
		t.Fatalf("wc Stdin Close: %s", perrs.Short(err))
	}
	exitStatus, wcOut, _, err := wc.ReadOutputAndWait(ctx, true, false)
	if err != nil {
		t.Fatalf("wc ReadOutputAndWait: %s", perrs.Short(err))
	}
	if exitStatus != 0 {
		t.Errorf("wc exitStatus: %d exp 0", exitStatus)
	}
	if got := strings.TrimSpace(string(wcOut)); got != "5" {
		t.Errorf("wc -l: got %q exp %q (2 in alpha, 1 in beta, 2 in gamma)", got, "5")
	}
}

func TestLateCancelOfWait(t *testing.T) {
	proc, initErr := Start(Params{
		ExecutablePath: binSleep,
		Arguments:      Arguments{Args: []ArgValue{Arg("2")}},
		Stdin:          StdinNone(),
		Stdout:         StreamDiscard(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start: %s", perrs.Short(initErr))
	}

	detachedCtx, detachedCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer detachedCancel()
	detachedErrCh := make(chan error, 1)
	go func() {
		_, err := proc.WaitForTermination(detachedCtx)
		detachedErrCh <- err
	}()

	mainCtx, mainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer mainCancel()
	exitStatus, err := proc.WaitForTermination(mainCtx)
	if err != nil {
		t.Fatalf("main WaitForTermination: %s", perrs.Short(err))
	}
	if exitStatus != 0 {
		t.Errorf("main exitStatus: %d exp 0", exitStatus)
	}

	if detachedErr := <-detachedErrCh; detachedErr == nil {
		t.Error("detached WaitForTermination: missing CancellationError")
	}
}

// writeAllRetrying feeds all of p to in, pausing briefly and retrying
// whenever the pipe is full, since Input.WriteAll returns at the first
// write that would block
func writeAllRetrying(ctx context.Context, in *Input, p []byte) {
	for len(p) > 0 && ctx.Err() == nil {
		n, _, err := in.WriteAll(ctx, p)
		if err != nil {
			return
		}
		p = p[n:]
		if len(p) > 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

func TestLargeOutputCollectVsDiscard(t *testing.T) {
	bigLine := strings.Repeat("x", 8192) + "\n"
	var bigFile strings.Builder
	for i := 0; i < 64; i++ {
		bigFile.WriteString(bigLine)
	}
	payload := []byte(bigFile.String())

	collector, initErr := Start(Params{
		ExecutablePath: binCat,
		Stdin:          StdinPipe(),
		Stdout:         StreamPipe(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start collector: %s", perrs.Short(initErr))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() {
		writeAllRetrying(ctx, collector.Stdin, payload)
		collector.Stdin.Close()
	}()
	exitStatus, stdout, _, err := collector.ReadOutputAndWait(ctx, true, false)
	if err != nil {
		t.Fatalf("collector ReadOutputAndWait: %s", perrs.Short(err))
	}
	if exitStatus != 0 {
		t.Errorf("collector exitStatus: %d exp 0", exitStatus)
	}
	if len(stdout) != len(payload) {
		t.Errorf("collector stdout len: %d exp %d", len(stdout), len(payload))
	}

	discarder, initErr := Start(Params{
		ExecutablePath: binCat,
		Stdin:          StdinPipe(),
		Stdout:         StreamPipe(),
		Stderr:         StreamDiscard(),
	})
	if initErr != nil {
		t.Fatalf("Start discarder: %s", perrs.Short(initErr))
	}
	go func() {
		writeAllRetrying(ctx, discarder.Stdin, payload)
		discarder.Stdin.Close()
	}()
	exitStatus, stdout, _, err = discarder.ReadOutputAndWait(ctx, false, false)
	if err != nil {
		t.Fatalf("discarder ReadOutputAndWait: %s", perrs.Short(err))
	}
	if exitStatus != 0 {
		t.Errorf("discarder exitStatus: %d exp 0", exitStatus)
	}
	if len(stdout) != 0 {
		t.Errorf("discarder stdout len: %d exp 0", len(stdout))
	}
}
