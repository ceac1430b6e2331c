package wap

import (
	"container/heap"
	"sync"
	"time"
)

// -------------------------------------------------------------------------
// Timer Wheel — spec.md Section 4.2
// -------------------------------------------------------------------------
//
// A single-threaded min-heap of absolute deadlines shared by every
// WTP/WSP retransmit and acknowledgement interval. Each Timer is a
// handle that may be started, restarted, and stopped; starting an
// active timer replaces its deadline in place (sift up or down) rather
// than deleting and reinserting, using the timer's heap index as a
// back-pointer -- the same "restart in place" discipline the teacher's
// Session applies to its own single retransmit timer
// (internal/bfd/session.go), generalized here to many timers sharing
// one wheel.
//
// No third-party timer-wheel or min-heap library appears anywhere in
// the retrieved example pack; container/heap is the standard and
// idiomatic choice for this shape of problem, so stdlib is used
// directly rather than adapting an unrelated dependency.

// Timer is a handle into the wheel. The zero value is not a valid
// timer; obtain one from Wheel.NewTimer.
type Timer struct {
	id       uint64
	deadline time.Time
	active   bool
	index    int // position in the heap slice, -1 when not queued
	event    WAPEvent
	outCh    chan<- WAPEvent
}

// timerHeap is a container/heap.Interface over *Timer ordered by
// deadline, satisfying Testable Property 1 of spec.md Section 8: "for
// all timer T in the heap: heap[parent(T)].deadline <=
// T.deadline".
type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) {
	t := x.(*Timer) //nolint:errcheck,forcetypeassert // heap.Interface contract
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Wheel is the shared timer wheel for all WTP/WSP retransmit and
// acknowledgement intervals (spec.md Section 4.2). A single mutex
// protects the heap and all timer fields; the watcher goroutine sleeps
// until the next deadline (or indefinitely if empty), woken by deadline
// expiry or by a wake-up signal whenever Start/Stop reorders the top.
type Wheel struct {
	mu      sync.Mutex
	heap    timerHeap
	nextID  uint64
	wake    chan struct{}
	closed  bool
	closeCh chan struct{}
}

// NewWheel creates an empty timer wheel and starts its watcher
// goroutine. Call Close to stop the watcher during shutdown.
func NewWheel() *Wheel {
	w := &Wheel{
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
	heap.Init(&w.heap)
	go w.watch()
	return w
}

// Close stops the watcher goroutine. Pending timers are not fired.
func (w *Wheel) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	close(w.closeCh)
}

// NewTimer creates an inactive timer whose fire events are delivered on
// outCh. outCh is typically the inbound queue of the FSM layer that
// owns the timer (the WTP Responder/Initiator task or the WSP Session
// task).
func (w *Wheel) NewTimer(outCh chan<- WAPEvent) *Timer {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	return &Timer{id: w.nextID, index: -1, outCh: outCh}
}

// Start (re)arms t to fire event ev after d, replacing any previously
// pending deadline and event. Per spec.md Section 4.2's pending-event
// semantics, the timer "owns" ev: if Start or Stop is called again
// before fire, the owned ev is silently dropped in favor of the new
// one.
func (w *Wheel) Start(t *Timer, d time.Duration, ev WAPEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t.deadline = time.Now().Add(d)
	t.event = ev

	if t.active {
		heap.Fix(&w.heap, t.index)
	} else {
		t.active = true
		heap.Push(&w.heap, t)
	}
	w.signalWake()
}

// Stop disarms t. A timer still waiting in the heap never delivers its
// event once Stop returns. A fire the watcher has already taken off the
// heap is still sent to outCh, even when Stop runs before that send;
// like an event already enqueued, the owning FSM must treat it as
// idempotent (Stop does not reach into outCh -- spec.md Section 5
// "Cancellation").
func (w *Wheel) Stop(t *Timer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked(t)
}

func (w *Wheel) stopLocked(t *Timer) {
	if !t.active {
		return
	}
	heap.Remove(&w.heap, t.index)
	t.active = false
	t.event = WAPEvent{}
}

// Active reports whether t currently has a pending deadline.
func (w *Wheel) Active(t *Timer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return t.active
}

func (w *Wheel) signalWake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// watch is the single watcher goroutine: it sleeps until the next
// deadline (or indefinitely if the heap is empty), fires every timer
// whose deadline has passed, and delivers each owned event to its
// outCh.
func (w *Wheel) watch() {
	for {
		w.mu.Lock()
		var wait time.Duration
		var fireNow *Timer
		var fireEv WAPEvent
		var fireOut chan<- WAPEvent

		if len(w.heap) == 0 {
			wait = -1 // sleep indefinitely
		} else {
			top := w.heap[0]
			until := time.Until(top.deadline)
			if until <= 0 {
				fireNow = heap.Pop(&w.heap).(*Timer) //nolint:errcheck,forcetypeassert
				fireNow.active = false
				fireEv, fireOut = fireNow.event, fireNow.outCh
			} else {
				wait = until
			}
		}
		w.mu.Unlock()

		if fireNow != nil {
			w.deliver(fireOut, fireEv)
			continue
		}

		if wait < 0 {
			select {
			case <-w.wake:
			case <-w.closeCh:
				return
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-w.wake:
			timer.Stop()
		case <-w.closeCh:
			timer.Stop()
			return
		}
	}
}

func (w *Wheel) deliver(out chan<- WAPEvent, ev WAPEvent) {
	if out == nil {
		return
	}
	select {
	case out <- ev:
	case <-w.closeCh:
	}
}
