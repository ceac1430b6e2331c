package wap

import "time"

// -------------------------------------------------------------------------
// Action — side effects returned by every FSM transition
// -------------------------------------------------------------------------
//
// Every FSM in this package (WTP Responder, WTP Initiator, WSP Session,
// WSP Method) is implemented as handler functions that take the machine
// and an event, update the machine's state in place, and return the
// []Action list for the caller to perform: the transition itself never
// performs I/O.
// This mirrors internal/bfd/fsm.go's ApplyEvent/Action/FSMResult shape,
// generalized from BFD's fixed six-action enum to a small tagged struct
// because WTP/WSP actions need to carry a payload (which PDU to send,
// which event to forward and to whom, which timer to arm and for how
// long) that BFD's simpler "set a diagnostic bit" actions did not.

// ActionKind tags which side effect an Action requests.
type ActionKind uint8

const (
	// ActSendPDU requests marshaling and sending Action.PDU to Action.Addr
	// via the bearerbox outbound queue.
	ActSendPDU ActionKind = iota + 1

	// ActRetransmit requests sending Action.Raw verbatim to Action.Addr.
	// On the stored last-packed PDU retransmit paths of spec.md Section
	// 4.5/4.6 the FSM has already set the RID bit via FlipRID; the
	// rebuilt Ack PDUs of the TIDOK_WAIT/RESULT_WAIT paths go out with
	// RID clear.
	ActRetransmit

	// ActEmitUp requests delivering Action.Event to the queue of the
	// layer above (WTP -> WSP session layer, WSP -> application layer).
	ActEmitUp

	// ActEmitAbortLocal requests synthesizing a TR_Abort_Ind/S_Disconnect_Ind
	// style event locally (no wire traffic), e.g. for retransmission
	// exhaustion (spec.md Section 7(c)).
	ActEmitAbortLocal

	// ActStartTimer (re)arms Action.Timer to fire Action.Event after
	// Action.Interval.
	ActStartTimer

	// ActStopTimer disarms Action.Timer.
	ActStopTimer

	// ActDestroyMachine requests the owning table remove this machine
	// (spec.md Section 3 "Lifecycle").
	ActDestroyMachine

	// ActCacheTID requests TIDCache.Set(Action.Addr, Action.TID).
	ActCacheTID

	// ActResetTIDCache requests TIDCache.Reset(Action.Addr).
	ActResetTIDCache
)

// Action is one side effect a transition function asks its caller to
// perform. Only the fields relevant to Kind are populated; the rest are
// zero.
type Action struct {
	Kind ActionKind

	Addr AddrTuple

	PDU *WTPPDU
	Raw []byte // pre-marshaled bytes for ActRetransmit

	Event WAPEvent

	Timer    *Timer
	Interval time.Duration

	TID uint16
}
