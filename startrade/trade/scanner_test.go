package trade

import (
	"context"
	"testing"
	"time"

	"github.com/hyeseon-dev/startrade/startrade/ledger"
)

// A scan request arriving while a pass is in flight must not start a second
// pass; it flips the rerun flag and the running pass loops once more.
func TestScanRequestsWhileScanningTriggersRerun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	row := ledger.Row{"Alice", "Card X", "Bob", "Card Y"}
	if err := f.gw.AppendRows(ctx, testSheets.Requests, []ledger.Row{row}); err != nil {
		t.Fatalf("failed to append request row: %v", err)
	}

	// Hold the trade lock so the first pass blocks inside its iteration.
	f.engine.mu.Lock()

	done := make(chan struct{})
	go func() {
		f.engine.ScanRequests(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		f.engine.sfMu.Lock()
		defer f.engine.sfMu.Unlock()
		return f.engine.scanning
	}, "first pass never started")

	// Second caller must return immediately with the rerun flag set.
	f.engine.ScanRequests(ctx)
	f.engine.sfMu.Lock()
	rerun := f.engine.rerun
	f.engine.sfMu.Unlock()
	if !rerun {
		f.engine.mu.Unlock()
		t.Fatal("concurrent scan request did not set the rerun flag")
	}

	f.engine.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan never finished after the lock was released")
	}

	f.engine.sfMu.Lock()
	scanning, rerun := f.engine.scanning, f.engine.rerun
	f.engine.sfMu.Unlock()
	if scanning {
		t.Error("scanning flag still set after the pass finished")
	}
	if rerun {
		t.Error("rerun flag was not consumed by the extra pass")
	}

	// The rerun pass saw an already-initiated row: one offer, one DM per side.
	if got := f.engine.Registry().Len(); got != 1 {
		t.Errorf("registry holds %d offers, want 1", got)
	}
	if got := len(f.notifier.Sent); got != 2 {
		t.Errorf("%d notifications delivered, want 2", got)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}
