package wap

// -------------------------------------------------------------------------
// WTP Initiator State Machine — spec.md Section 4.6
// -------------------------------------------------------------------------
//
// Grounded on the same pattern as wtp_responder.go (itself grounded on
// internal/bfd/fsm.go's pure-transition discipline). The Initiator side
// is the gateway's own client role toward the bearerbox's WTP peer: it
// originates a single Invoke (tcl=1, no Result expected -- the ack
// itself confirms delivery) and waits for the peer's Ack.

// InitiatorState enumerates the WTP Initiator's two states (spec.md
// Section 4.6).
type InitiatorState uint8

const (
	IStateNull InitiatorState = iota + 1
	IStateResultWait
)

// String renders the initiator state name for logging.
func (s InitiatorState) String() string {
	switch s {
	case IStateNull:
		return "INITIATOR_NULL_STATE"
	case IStateResultWait:
		return "INITIATOR_RESULT_WAIT"
	default:
		return unknownStr
	}
}

// InitiatorMachine is a single WTP Initiator transaction: an Invoke this
// gateway originated toward a peer and the Ack it is waiting on
// (spec.md Section 4.6).
type InitiatorMachine struct {
	Handle Handle
	State  InitiatorState

	Addr AddrTuple
	TID  uint16

	RCR          uint8
	TIDOKSent    bool
	PackedInvoke []byte

	Timer *Timer
}

// InitiatorTable is the slotted arena of live Initiator machines, keyed
// by handle for event routing and by (Addr, TID) for incoming Ack/Abort
// demultiplexing -- mirrors ResponderTable.
type InitiatorTable struct {
	byKey      map[responderKey]*InitiatorMachine
	byHandle   map[Handle]*InitiatorMachine
	nextHandle uint32
	wheel      *Wheel
	outCh      chan<- WAPEvent
	tids       *TIDAllocator
}

// NewInitiatorTable creates an empty Initiator machine table.
func NewInitiatorTable(wheel *Wheel, outCh chan<- WAPEvent, tids *TIDAllocator) *InitiatorTable {
	return &InitiatorTable{
		byKey:    make(map[responderKey]*InitiatorMachine),
		byHandle: make(map[Handle]*InitiatorMachine),
		wheel:    wheel,
		outCh:    outCh,
		tids:     tids,
	}
}

// Lookup finds a machine by (addr, tid).
func (t *InitiatorTable) Lookup(addr AddrTuple, tid uint16) (*InitiatorMachine, bool) {
	m, ok := t.byKey[responderKey{addr, tid}]
	return m, ok
}

// ByHandle finds a machine by its handle.
func (t *InitiatorTable) ByHandle(h Handle) (*InitiatorMachine, bool) {
	m, ok := t.byHandle[h]
	return m, ok
}

// Destroy removes a machine from the table and stops its timer.
func (t *InitiatorTable) Destroy(m *InitiatorMachine) {
	t.wheel.Stop(m.Timer)
	delete(t.byKey, responderKey{m.Addr, m.TID})
	delete(t.byHandle, m.Handle)
}

// HandleInvokeReqTCL1 processes a TR_Invoke_Req(tcl=1) service event
// (spec.md Section 4.6 NULL -> RESULT_WAIT): allocates a TID, packs and
// sends the Invoke PDU, arms timer R.
func (t *InitiatorTable) HandleInvokeReqTCL1(addr AddrTuple, userData []byte, buf []byte) (*InitiatorMachine, []Action) {
	tid, wrapped := t.tids.Next()

	t.nextHandle++
	m := &InitiatorMachine{
		Handle: Handle(t.nextHandle),
		State:  IStateResultWait,
		Addr:   addr,
		TID:    tid,
	}
	m.Timer = t.wheel.NewTimer(t.outCh)

	pdu := &WTPPDU{
		Type: PDUInvoke, TID: tid, GTR: true, TTR: true,
		TIDNew: wrapped, UAck: false, TCL: 1, UserData: userData,
	}
	n, err := MarshalWTPPDU(pdu, buf)
	if err != nil {
		return nil, nil
	}
	packed := make([]byte, n)
	copy(packed, buf[:n])
	m.PackedInvoke = packed

	t.byKey[responderKey{addr, tid}] = m
	t.byHandle[m.Handle] = m

	actions := []Action{
		{Kind: ActSendPDU, Addr: addr, PDU: pdu},
		{Kind: ActStartTimer, Timer: m.Timer, Interval: timerRWithoutUserAck,
			Event: WAPEvent{Kind: EvTimerTOR, Handle: m.Handle, Addr: addr}},
	}
	return m, actions
}

// HandleInvokeReqTCL0 implements the stateless NULL + TR_Invoke_Req(tcl=0)
// transition: pack and send, no machine retained (spec.md Section 4.6).
func HandleInvokeReqTCL0(addr AddrTuple, userData []byte, buf []byte) []Action {
	pdu := &WTPPDU{Type: PDUInvoke, TID: 0, GTR: true, TTR: true, TCL: 0, UserData: userData}
	if _, err := MarshalWTPPDU(pdu, buf); err != nil {
		return nil
	}
	return []Action{{Kind: ActSendPDU, Addr: addr, PDU: pdu}}
}

// HandleTimerTOR processes a TimerTO_R firing for machine m in
// RESULT_WAIT (spec.md Section 4.6): retransmit the Invoke with RID=1
// up to MaxRCR times while no tid-verify Ack has arrived, then abort
// locally.
func (t *InitiatorTable) HandleTimerTOR(m *InitiatorMachine) []Action {
	if m.State != IStateResultWait {
		return nil
	}

	if m.RCR >= MaxRCR {
		ev := WAPEvent{Kind: EvTRAbortInd, Handle: m.Handle, Addr: m.Addr, AbortReason: AbortNoResponse}
		m.State = IStateNull
		return []Action{
			{Kind: ActEmitUp, Event: ev},
			{Kind: ActDestroyMachine},
		}
	}

	if m.TIDOKSent {
		// Already confirmed TID verification; retransmit is governed
		// by the RcvAck(tid_ok=1) branch restarting the timer, not by
		// this path firing again with a stale Invoke.
		return nil
	}

	FlipRID(m.PackedInvoke)
	m.RCR++
	return []Action{
		{Kind: ActRetransmit, Addr: m.Addr, Raw: m.PackedInvoke},
		{Kind: ActStartTimer, Timer: m.Timer, Interval: timerRWithoutUserAck,
			Event: WAPEvent{Kind: EvTimerTOR, Handle: m.Handle, Addr: m.Addr}},
	}
}

// HandleRcvAck processes an incoming Ack PDU for machine m (spec.md
// Section 4.6 RESULT_WAIT).
func (t *InitiatorTable) HandleRcvAck(m *InitiatorMachine, pdu *WTPPDU) []Action {
	if m.State != IStateResultWait {
		return nil
	}

	if !pdu.TIDVerify {
		ev := WAPEvent{Kind: EvTRInvokeCnf, Handle: m.Handle, Addr: m.Addr}
		m.State = IStateNull
		return []Action{
			{Kind: ActStopTimer, Timer: m.Timer},
			{Kind: ActEmitUp, Event: ev},
			{Kind: ActDestroyMachine},
		}
	}

	if m.RCR >= MaxRCR {
		return nil
	}

	m.TIDOKSent = true
	m.RCR++
	return []Action{
		{Kind: ActSendPDU, Addr: m.Addr, PDU: &WTPPDU{
			Type: PDUAck, TID: m.TID, GTR: true, TTR: true, TIDVerify: true,
		}},
		{Kind: ActStartTimer, Timer: m.Timer, Interval: timerRWithoutUserAck,
			Event: WAPEvent{Kind: EvTimerTOR, Handle: m.Handle, Addr: m.Addr}},
	}
}

// HandleRcvAbort processes an incoming Abort PDU for machine m.
func (t *InitiatorTable) HandleRcvAbort(m *InitiatorMachine, pdu *WTPPDU) []Action {
	ev := WAPEvent{Kind: EvTRAbortInd, Handle: m.Handle, Addr: m.Addr, AbortReason: pdu.AbortReason}
	m.State = IStateNull
	return []Action{
		{Kind: ActStopTimer, Timer: m.Timer},
		{Kind: ActEmitUp, Event: ev},
		{Kind: ActDestroyMachine},
	}
}
