package wap_test

import (
	"testing"
	"time"

	"github.com/pruiz/wapbox/internal/wap"
)

func drainEvent(t *testing.T, ch <-chan wap.WAPEvent, timeout time.Duration) wap.WAPEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for timer event")
		return wap.WAPEvent{}
	}
}

func TestWheelFiresAfterDuration(t *testing.T) {
	t.Parallel()

	w := wap.NewWheel()
	defer w.Close()

	out := make(chan wap.WAPEvent, 1)
	timer := w.NewTimer(out)
	w.Start(timer, 10*time.Millisecond, wap.WAPEvent{Kind: wap.EvTimerTOA, TimerID: 1})

	ev := drainEvent(t, out, time.Second)
	if ev.Kind != wap.EvTimerTOA || ev.TimerID != 1 {
		t.Errorf("got event %+v, want Kind=EvTimerTOA TimerID=1", ev)
	}
}

func TestWheelStopPreventsDelivery(t *testing.T) {
	t.Parallel()

	w := wap.NewWheel()
	defer w.Close()

	out := make(chan wap.WAPEvent, 1)
	timer := w.NewTimer(out)
	w.Start(timer, 20*time.Millisecond, wap.WAPEvent{Kind: wap.EvTimerTOR})
	w.Stop(timer)

	select {
	case ev := <-out:
		t.Fatalf("unexpected event delivered after Stop: %+v", ev)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestWheelActiveReflectsState(t *testing.T) {
	t.Parallel()

	w := wap.NewWheel()
	defer w.Close()

	out := make(chan wap.WAPEvent, 1)
	timer := w.NewTimer(out)
	if w.Active(timer) {
		t.Error("freshly created timer should not be active")
	}

	w.Start(timer, time.Hour, wap.WAPEvent{})
	if !w.Active(timer) {
		t.Error("timer should be active after Start")
	}

	w.Stop(timer)
	if w.Active(timer) {
		t.Error("timer should not be active after Stop")
	}
}

func TestWheelRestartReplacesDeadlineInPlace(t *testing.T) {
	t.Parallel()

	w := wap.NewWheel()
	defer w.Close()

	out := make(chan wap.WAPEvent, 1)
	timer := w.NewTimer(out)
	w.Start(timer, time.Hour, wap.WAPEvent{Kind: wap.EvTimerTOA, TimerID: 1})
	// Re-arm with a much sooner deadline and a different owned event;
	// only the second event should ever be delivered.
	w.Start(timer, 10*time.Millisecond, wap.WAPEvent{Kind: wap.EvTimerTOW, TimerID: 2})

	ev := drainEvent(t, out, time.Second)
	if ev.Kind != wap.EvTimerTOW || ev.TimerID != 2 {
		t.Errorf("got event %+v, want the re-armed event (Kind=EvTimerTOW TimerID=2)", ev)
	}
}

func TestWheelOrdersMultipleTimersByDeadline(t *testing.T) {
	t.Parallel()

	w := wap.NewWheel()
	defer w.Close()

	out := make(chan wap.WAPEvent, 3)
	t1 := w.NewTimer(out)
	t2 := w.NewTimer(out)
	t3 := w.NewTimer(out)

	w.Start(t3, 30*time.Millisecond, wap.WAPEvent{TimerID: 3})
	w.Start(t1, 10*time.Millisecond, wap.WAPEvent{TimerID: 1})
	w.Start(t2, 20*time.Millisecond, wap.WAPEvent{TimerID: 2})

	first := drainEvent(t, out, time.Second)
	second := drainEvent(t, out, time.Second)
	third := drainEvent(t, out, time.Second)

	if first.TimerID != 1 || second.TimerID != 2 || third.TimerID != 3 {
		t.Errorf("delivery order = %d, %d, %d, want 1, 2, 3", first.TimerID, second.TimerID, third.TimerID)
	}
}

func TestWheelCloseStopsWatcherGoroutine(t *testing.T) {
	t.Parallel()

	w := wap.NewWheel()
	out := make(chan wap.WAPEvent, 1)
	timer := w.NewTimer(out)
	w.Start(timer, time.Hour, wap.WAPEvent{})

	// Close must return promptly and leave no running watcher behind;
	// goleak.VerifyTestMain in testmain_test.go catches a leaked
	// goroutine if this ever regresses.
	w.Close()
}
