package wap

import (
	"time"
)

// -------------------------------------------------------------------------
// WTP Responder State Machine — spec.md Section 4.5
// -------------------------------------------------------------------------
//
// Grounded on internal/bfd/fsm.go's pure-transition-function discipline
// and internal/bfd/session.go's stateful wrapper (applyFSMEvent ->
// executeFSMActions). Unlike BFD's FSM, several Responder transitions
// are guarded by mutable counters (aec, rcr) rather than being a clean
// (state, event) -> (state, actions) map, so the transition function
// below is an explicit per-state switch instead of a lookup table. It
// takes the *ResponderMachine plus an event, updates the machine in
// place and returns the actions, performing no I/O itself; it is just
// not table-driven like the BFD FSM that inspired it.

// ResponderState enumerates the WTP Responder's five states (spec.md
// Section 4.5).
type ResponderState uint8

const (
	RStateListen ResponderState = iota + 1
	RStateTIDOKWait
	RStateInvokeRespWait
	RStateResultWait
	RStateResultRespWait
)

// String renders the responder state name for logging.
func (s ResponderState) String() string {
	switch s {
	case RStateListen:
		return "LISTEN"
	case RStateTIDOKWait:
		return "TIDOK_WAIT"
	case RStateInvokeRespWait:
		return "INVOKE_RESP_WAIT"
	case RStateResultWait:
		return "RESULT_WAIT"
	case RStateResultRespWait:
		return "RESULT_RESP_WAIT"
	default:
		return unknownStr
	}
}

// Responder tuning constants (spec.md Section 6).
const (
	AECMax  = 6
	MaxRCR  = 8

	timerAWithUserAck    = 4 * time.Second
	timerAWithoutUserAck = 3 * time.Second
	timerRWithUserAck    = 7 * time.Second
	timerRWithoutUserAck = 5 * time.Second
)

// ResponderMachine is a single WTP Responder transaction (spec.md
// Section 3). Uniquely identified by (Addr, TID); owned exclusively by
// the WTP Responder task.
type ResponderMachine struct {
	Handle Handle
	State  ResponderState

	Addr AddrTuple
	TID  uint16
	TCL  uint8

	UAck        bool
	AEC         uint8
	RCR         uint8
	RID         bool
	AckPDUSent  bool
	PackedResult []byte

	DeferredInvoke WAPEvent

	Timer *Timer
}

// ResponderTable is the slotted arena of live Responder machines,
// grounded on internal/bfd/manager.go's map-of-sessions-by-discriminator
// (here: by (Addr,TID) for creation and by Handle for event routing).
// Touched only by the WTP Responder task -- no internal locking beyond
// what's needed for TID cache access, per spec.md Section 5 "Shared
// structures with locks".
type ResponderTable struct {
	byKey     map[responderKey]*ResponderMachine
	byHandle  map[Handle]*ResponderMachine
	nextHandle uint32
	wheel     *Wheel
	outCh     chan<- WAPEvent // Responder task's own inbound queue, for timer delivery
	tids      *TIDCache
}

type responderKey struct {
	addr AddrTuple
	tid  uint16
}

// NewResponderTable creates an empty Responder machine table.
func NewResponderTable(wheel *Wheel, outCh chan<- WAPEvent, tids *TIDCache) *ResponderTable {
	return &ResponderTable{
		byKey:    make(map[responderKey]*ResponderMachine),
		byHandle: make(map[Handle]*ResponderMachine),
		wheel:    wheel,
		outCh:    outCh,
		tids:     tids,
	}
}

// Lookup finds a machine by (addr, tid).
func (t *ResponderTable) Lookup(addr AddrTuple, tid uint16) (*ResponderMachine, bool) {
	m, ok := t.byKey[responderKey{addr, tid}]
	return m, ok
}

// ByHandle finds a machine by its handle.
func (t *ResponderTable) ByHandle(h Handle) (*ResponderMachine, bool) {
	m, ok := t.byHandle[h]
	return m, ok
}

// Create allocates a new Responder machine in RStateListen for
// (addr, tid). The sole entry point for responder creation is an
// RcvInvoke, per spec.md Section 3 invariants.
func (t *ResponderTable) Create(addr AddrTuple, tid uint16) *ResponderMachine {
	t.nextHandle++
	m := &ResponderMachine{
		Handle: Handle(t.nextHandle),
		State:  RStateListen,
		Addr:   addr,
		TID:    tid,
	}
	m.Timer = t.wheel.NewTimer(t.outCh)
	t.byKey[responderKey{addr, tid}] = m
	t.byHandle[m.Handle] = m
	return m
}

// Destroy removes a machine from the table and stops its timer
// (spec.md Section 3 "Lifecycle": "removed from the global list and
// dropped").
func (t *ResponderTable) Destroy(m *ResponderMachine) {
	t.wheel.Stop(m.Timer)
	delete(t.byKey, responderKey{m.Addr, m.TID})
	delete(t.byHandle, m.Handle)
}

// ackTimerInterval returns the ack-interval duration per whether the
// user acknowledgement option is in effect (spec.md Section 6).
func ackTimerInterval(uAck bool) time.Duration {
	if uAck {
		return timerAWithUserAck
	}
	return timerAWithoutUserAck
}

func resultTimerInterval(uAck bool) time.Duration {
	if uAck {
		return timerRWithUserAck
	}
	return timerRWithoutUserAck
}

// HandleRcvInvoke processes an RcvInvoke event against the Responder
// layer: finding or creating a machine and applying the LISTEN/
// TIDOK_WAIT/RESULT_WAIT transitions of spec.md Section 4.5 that react
// to a (re)received Invoke PDU. Returns the actions the caller (the WTP
// Responder task) must execute.
func (t *ResponderTable) HandleRcvInvoke(addr AddrTuple, pdu *WTPPDU) []Action {
	m, exists := t.Lookup(addr, pdu.TID)
	if !exists {
		return t.handleNewInvoke(addr, pdu)
	}

	switch m.State {
	case RStateTIDOKWait:
		if pdu.RID {
			return []Action{{Kind: ActRetransmit, Addr: addr, Raw: ackVerifyRaw(pdu.TID)}}
		}
		return nil

	case RStateResultWait:
		if pdu.RID && m.AckPDUSent {
			return []Action{{Kind: ActRetransmit, Addr: addr, Raw: ackProviderRaw(pdu.TID)}}
		}
		return nil

	case RStateResultRespWait:
		if pdu.RID && len(m.PackedResult) > 0 {
			FlipRID(m.PackedResult)
			return []Action{{Kind: ActRetransmit, Addr: addr, Raw: m.PackedResult}}
		}
		return nil

	case RStateInvokeRespWait, RStateListen:
		// Duplicate Invoke while a machine is mid-flight with nothing
		// queued to retransmit: silently dropped (spec.md Section 8
		// Testable Property 2).
		return nil

	default:
		return nil
	}
}

func (t *ResponderTable) handleNewInvoke(addr AddrTuple, pdu *WTPPDU) []Action {
	if pdu.TCL == 0 {
		// Class 0: dispatch directly, no machine, no state change
		// (spec.md Section 4.5 LISTEN).
		return []Action{{Kind: ActEmitUp, Event: WAPEvent{
			Kind: EvSUnitMethodInvokeInd, Addr: addr, Body: pdu.UserData,
		}}}
	}

	if pdu.TIDNew {
		// A peer announcing tid_new always takes the TIDOK_WAIT detour,
		// even though Reset leaves a real (zero-valued) cache entry
		// behind: Validate must never run against that entry, or every
		// tid_new Invoke in the lower half of the TID space would pass
		// the window test and skip verification entirely.
		t.tids.Reset(addr)
	} else if t.tids.Validate(addr, pdu.TID) {
		return t.acceptInvoke(addr, pdu)
	}

	if _, cached := t.tids.Lookup(addr); !cached || pdu.TIDNew {
		// No entry yet (or peer announced restart): verify with the
		// peer before creating the machine (spec.md Section 4.3/4.5
		// TIDOK_WAIT).
		m := t.Create(addr, pdu.TID)
		m.State = RStateTIDOKWait
		m.TCL = pdu.TCL
		m.UAck = pdu.UAck
		m.DeferredInvoke = WAPEvent{
			Kind: EvTRInvokeInd, Addr: addr, Handle: m.Handle, Body: pdu.UserData,
		}
		return []Action{{Kind: ActRetransmit, Addr: addr, Raw: ackVerifyRaw(pdu.TID)}}
	}

	// Window test failed: out-of-window TID, reject (spec.md Section 8
	// Scenario 3).
	return []Action{{Kind: ActSendPDU, Addr: addr, PDU: &WTPPDU{
		Type: PDUAbort, TID: pdu.TID, GTR: true, TTR: true,
		AbortType: AbortTypeProvider, AbortReason: AbortInvalidTID,
	}}}
}

func (t *ResponderTable) acceptInvoke(addr AddrTuple, pdu *WTPPDU) []Action {
	m := t.Create(addr, pdu.TID)
	m.TCL = pdu.TCL
	m.UAck = pdu.UAck
	m.State = RStateInvokeRespWait

	ev := WAPEvent{Kind: EvTRInvokeInd, Addr: addr, Handle: m.Handle, Body: pdu.UserData}
	actions := []Action{{Kind: ActEmitUp, Event: ev}}
	actions = append(actions, t.armTimerA(m)...)
	return actions
}

func (t *ResponderTable) armTimerA(m *ResponderMachine) []Action {
	interval := ackTimerInterval(m.UAck)
	return []Action{{
		Kind: ActStartTimer, Timer: m.Timer, Interval: interval,
		Event: WAPEvent{Kind: EvTimerTOA, Handle: m.Handle, Addr: m.Addr},
	}}
}

func (t *ResponderTable) armTimerR(m *ResponderMachine) []Action {
	interval := resultTimerInterval(m.UAck)
	return []Action{{
		Kind: ActStartTimer, Timer: m.Timer, Interval: interval,
		Event: WAPEvent{Kind: EvTimerTOR, Handle: m.Handle, Addr: m.Addr},
	}}
}

// HandleRcvAck processes an RcvAck event addressed to machine m
// (spec.md Section 4.5 TIDOK_WAIT, RESULT_RESP_WAIT).
func (t *ResponderTable) HandleRcvAck(m *ResponderMachine, pdu *WTPPDU) []Action {
	switch m.State {
	case RStateTIDOKWait:
		if !pdu.TIDVerify {
			return nil
		}
		t.tids.Set(m.Addr, m.TID)
		m.State = RStateInvokeRespWait
		actions := []Action{{Kind: ActEmitUp, Event: m.DeferredInvoke}}
		actions = append(actions, t.armTimerA(m)...)
		return actions

	case RStateResultRespWait:
		ev := WAPEvent{Kind: EvTRResultCnf, Handle: m.Handle, Addr: m.Addr}
		actions := []Action{
			{Kind: ActStopTimer, Timer: m.Timer},
			{Kind: ActEmitUp, Event: ev},
			{Kind: ActDestroyMachine},
		}
		m.State = RStateListen
		return actions

	default:
		return nil
	}
}

// HandleRcvAbort processes an RcvAbort event addressed to machine m.
func (t *ResponderTable) HandleRcvAbort(m *ResponderMachine, pdu *WTPPDU) []Action {
	ev := WAPEvent{Kind: EvTRAbortInd, Handle: m.Handle, Addr: m.Addr, AbortReason: pdu.AbortReason}
	m.State = RStateListen
	return []Action{
		{Kind: ActStopTimer, Timer: m.Timer},
		{Kind: ActEmitUp, Event: ev},
		{Kind: ActDestroyMachine},
	}
}

// HandleRcvErrorPDU implements the LISTEN "malformed PDU" transition
// (spec.md Section 4.5): reply Abort(PROTOERR), stay in LISTEN. There
// is no machine to create for an unparseable PDU.
func HandleRcvErrorPDU(addr AddrTuple, tid uint16) []Action {
	return []Action{{Kind: ActSendPDU, Addr: addr, PDU: &WTPPDU{
		Type: PDUAbort, TID: tid, GTR: true, TTR: true,
		AbortType: AbortTypeProvider, AbortReason: AbortProtoErr,
	}}}
}

// HandleInvokeRes processes a TR_Invoke_Res service event (spec.md
// Section 4.5 INVOKE_RESP_WAIT): for tcl=2, arm timer A and move to
// RESULT_WAIT awaiting the application's eventual TR_Result_Req.
func (t *ResponderTable) HandleInvokeRes(m *ResponderMachine) []Action {
	if m.State != RStateInvokeRespWait || m.TCL != 2 {
		return nil
	}
	m.State = RStateResultWait
	return t.armTimerA(m)
}

// HandleTimerTOA processes a TimerTO_A firing for machine m (spec.md
// Section 4.5 INVOKE_RESP_WAIT). A stale fire that arrives after the
// machine has already left INVOKE_RESP_WAIT is silently ignored --
// the state check below is what spec.md Section 5 calls the "no-op"
// fallback for a race the timer wheel's Stop() didn't catch in time.
func (t *ResponderTable) HandleTimerTOA(m *ResponderMachine) []Action {
	if m.State != RStateInvokeRespWait {
		return nil
	}

	if m.TCL == 2 && !m.UAck {
		m.AckPDUSent = true
		m.State = RStateResultWait
		return []Action{{Kind: ActSendPDU, Addr: m.Addr, PDU: &WTPPDU{
			Type: PDUAck, TID: m.TID, GTR: true, TTR: true,
		}}}
	}

	if m.UAck && m.AEC < AECMax {
		m.AEC++
		return t.armTimerA(m)
	}

	// AEC exhausted: abort locally and upward (spec.md Section 4.5).
	ev := WAPEvent{Kind: EvTRAbortInd, Handle: m.Handle, Addr: m.Addr, AbortReason: AbortProtoErr}
	m.State = RStateListen
	return []Action{
		{Kind: ActSendPDU, Addr: m.Addr, PDU: &WTPPDU{
			Type: PDUAbort, TID: m.TID, GTR: true, TTR: true,
			AbortType: AbortTypeProvider, AbortReason: AbortNoResponse,
		}},
		{Kind: ActEmitUp, Event: ev},
		{Kind: ActDestroyMachine},
	}
}

// HandleResultReq processes a TR_Result_Req service event (spec.md
// Section 4.5 RESULT_WAIT -> RESULT_RESP_WAIT): pack and send the
// Result PDU, reset RCR, start timer R.
func (t *ResponderTable) HandleResultReq(m *ResponderMachine, resultData []byte, buf []byte) []Action {
	if m.State != RStateResultWait {
		return nil
	}

	pdu := &WTPPDU{Type: PDUResult, TID: m.TID, GTR: true, TTR: true, ResultData: resultData}
	n, err := MarshalWTPPDU(pdu, buf)
	if err != nil {
		return nil
	}
	packed := make([]byte, n)
	copy(packed, buf[:n])
	m.PackedResult = packed
	m.RCR = 0
	m.State = RStateResultRespWait

	actions := []Action{{Kind: ActSendPDU, Addr: m.Addr, PDU: pdu}}
	actions = append(actions, t.armTimerR(m)...)
	return actions
}

// HandleTimerTOR processes a TimerTO_R firing for machine m in
// RESULT_RESP_WAIT (spec.md Section 4.5, Section 8 Scenario 4).
func (t *ResponderTable) HandleTimerTOR(m *ResponderMachine) []Action {
	if m.State != RStateResultRespWait {
		return nil
	}

	if m.RCR < MaxRCR {
		FlipRID(m.PackedResult)
		m.RCR++
		actions := []Action{{Kind: ActRetransmit, Addr: m.Addr, Raw: m.PackedResult}}
		actions = append(actions, t.armTimerR(m)...)
		return actions
	}

	ev := WAPEvent{Kind: EvTRAbortInd, Handle: m.Handle, Addr: m.Addr, AbortReason: AbortNoResponse}
	m.State = RStateListen
	return []Action{
		{Kind: ActEmitUp, Event: ev},
		{Kind: ActDestroyMachine},
	}
}

// HandleAbortReq processes a TR_Abort_Req service event (spec.md
// Section 4.5 INVOKE_RESP_WAIT): send Abort(USER, reason), die.
func (t *ResponderTable) HandleAbortReq(m *ResponderMachine, reason AbortReason) []Action {
	if m.State == RStateListen {
		return nil
	}
	m.State = RStateListen
	return []Action{
		{Kind: ActSendPDU, Addr: m.Addr, PDU: &WTPPDU{
			Type: PDUAbort, TID: m.TID, GTR: true, TTR: true,
			AbortType: AbortTypeUser, AbortReason: reason,
		}},
		{Kind: ActDestroyMachine},
	}
}

// ackVerifyRaw/ackProviderRaw build the small fixed Ack PDUs used by
// the retransmit paths above without needing a scratch buffer from the
// caller -- these PDUs are always exactly 4 bytes (the 3-byte header,
// TID included, plus 1 body byte), so a small stack buffer suffices.
func ackVerifyRaw(tid uint16) []byte {
	return marshalSmallAck(tid, true)
}

func ackProviderRaw(tid uint16) []byte {
	return marshalSmallAck(tid, false)
}

func marshalSmallAck(tid uint16, verify bool) []byte {
	var buf [8]byte
	pdu := &WTPPDU{Type: PDUAck, TID: tid, GTR: true, TTR: true, TIDVerify: verify}
	n, err := MarshalWTPPDU(pdu, buf[:])
	if err != nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out
}

