package wap

// -------------------------------------------------------------------------
// Abort reasons — spec.md Section 6 "Internal constants"
// -------------------------------------------------------------------------

// AbortReason enumerates the WTP/WSP abort reasons shared by both layers.
type AbortReason uint8

const (
	AbortProtoErr AbortReason = iota + 1
	AbortDisconnect
	AbortSuspend
	AbortResume
	AbortCongestion
	AbortConnectErr
	AbortMRUExceeded
	AbortMORExceeded
	AbortPeerReq
	AbortNetErr
	AbortUserReq
	AbortNoResponse
	AbortInvalidTID
	AbortNotImplementedSAR
	AbortWTPVersionZero
)

// String renders the abort reason for logging.
func (a AbortReason) String() string {
	switch a {
	case AbortProtoErr:
		return "PROTOERR"
	case AbortDisconnect:
		return "DISCONNECT"
	case AbortSuspend:
		return "SUSPEND"
	case AbortResume:
		return "RESUME"
	case AbortCongestion:
		return "CONGESTION"
	case AbortConnectErr:
		return "CONNECTERR"
	case AbortMRUExceeded:
		return "MRUEXCEEDED"
	case AbortMORExceeded:
		return "MOREXCEEDED"
	case AbortPeerReq:
		return "PEERREQ"
	case AbortNetErr:
		return "NETERR"
	case AbortUserReq:
		return "USERREQ"
	case AbortNoResponse:
		return "NORESPONSE"
	case AbortInvalidTID:
		return "INVALIDTID"
	case AbortNotImplementedSAR:
		return "NOTIMPLEMENTEDSAR"
	case AbortWTPVersionZero:
		return "WTPVERSIONZERO"
	default:
		return unknownStr
	}
}

// unknownStr is the string representation for unrecognized enum values,
// matching the teacher's packet.go constant of the same name/purpose.
const unknownStr = "Unknown"

// -------------------------------------------------------------------------
// EventKind — the ~25 WAPEvent variants of spec.md Section 3
// -------------------------------------------------------------------------

// EventKind tags which variant of WAPEvent a given value carries.
type EventKind uint8

const (
	// Datagram boundary events (spec.md Section 3).
	EvTDUnitdataInd EventKind = iota + 1
	EvTDUnitdataReq

	// WTP wire events: decoded PDUs plus source tuple.
	EvRcvInvoke
	EvRcvAck
	EvRcvAbort
	EvRcvErrorPDU

	// WTP service interface events.
	EvTRInvokeInd
	EvTRInvokeRes
	EvTRInvokeReq
	EvTRInvokeCnf
	EvTRResultInd
	EvTRResultRes
	EvTRResultReq
	EvTRResultCnf
	EvTRAbortInd
	EvTRAbortReq

	// WSP service interface events.
	EvSConnectInd
	EvSConnectRes
	EvSDisconnectInd
	EvSMethodInvokeInd
	EvSMethodInvokeRes
	EvSMethodResultReq
	EvSMethodResultCnf
	EvSMethodAbortInd
	EvSUnitMethodInvokeInd
	EvSUnitMethodResultReq

	// Internal events.
	EvDisconnect
	EvSuspend
	EvRelease
	EvAbort
	EvTimerTOA
	EvTimerTOR
	EvTimerTOW
)

// String returns a human-readable event kind name for logging.
func (k EventKind) String() string {
	switch k {
	case EvTDUnitdataInd:
		return "T-DUnitdata.ind"
	case EvTDUnitdataReq:
		return "T-DUnitdata.req"
	case EvRcvInvoke:
		return "RcvInvoke"
	case EvRcvAck:
		return "RcvAck"
	case EvRcvAbort:
		return "RcvAbort"
	case EvRcvErrorPDU:
		return "RcvErrorPDU"
	case EvTRInvokeInd:
		return "TR-Invoke.ind"
	case EvTRInvokeRes:
		return "TR-Invoke.res"
	case EvTRInvokeReq:
		return "TR-Invoke.req"
	case EvTRInvokeCnf:
		return "TR-Invoke.cnf"
	case EvTRResultInd:
		return "TR-Result.ind"
	case EvTRResultRes:
		return "TR-Result.res"
	case EvTRResultReq:
		return "TR-Result.req"
	case EvTRResultCnf:
		return "TR-Result.cnf"
	case EvTRAbortInd:
		return "TR-Abort.ind"
	case EvTRAbortReq:
		return "TR-Abort.req"
	case EvSConnectInd:
		return "S-Connect.ind"
	case EvSConnectRes:
		return "S-Connect.res"
	case EvSDisconnectInd:
		return "S-Disconnect.ind"
	case EvSMethodInvokeInd:
		return "S-MethodInvoke.ind"
	case EvSMethodInvokeRes:
		return "S-MethodInvoke.res"
	case EvSMethodResultReq:
		return "S-MethodResult.req"
	case EvSMethodResultCnf:
		return "S-MethodResult.cnf"
	case EvSMethodAbortInd:
		return "S-MethodAbort.ind"
	case EvSUnitMethodInvokeInd:
		return "S-Unit-MethodInvoke.ind"
	case EvSUnitMethodResultReq:
		return "S-Unit-MethodResult.req"
	case EvDisconnect:
		return "Disconnect-Event"
	case EvSuspend:
		return "Suspend-Event"
	case EvRelease:
		return "Release-Event"
	case EvAbort:
		return "Abort-Event"
	case EvTimerTOA:
		return "TimerTO-A"
	case EvTimerTOR:
		return "TimerTO-R"
	case EvTimerTOW:
		return "TimerTO-W"
	default:
		return unknownStr
	}
}

// Handle identifies the FSM instance an event is addressed to or
// originates from: a WTP machine id or a WSP session/method id,
// depending on context. Handles are small stable integers per spec.md
// Section 9's "machine table + intrusive links -> ownership" redesign
// note -- events carry ids, not pointers.
type Handle uint32

// WAPEvent is the single tagged-union value carrying any of the ~25
// event variants of spec.md Section 3. Rather than one struct type per
// variant (which the source's C macros generated), a single struct
// with a Kind tag and the union of possible fields is used: idiomatic
// Go has no compile-time sum type, and this keeps allocation and
// passing-by-value cheap for the hot path (every PDU and every timer
// fire is a WAPEvent). Unused fields for a given Kind are simply zero.
type WAPEvent struct {
	Kind EventKind

	Addr   AddrTuple
	Handle Handle

	UserData []byte // T_DUnitdata_Ind/Req payload

	PDU *WTPPDU // decoded WTP wire PDU (RcvInvoke/RcvAck/RcvAbort/RcvErrorPDU)

	AbortReason AbortReason

	SessionID uint32
	Headers   []Header // textual headers, decoded

	RequestCaps []Capability
	ReplyCaps   []Capability

	Status int
	Body   []byte
	URL    string

	TimerID uint64
}

// NewDatagramEvent builds a T_DUnitdata_Ind/Req event.
func NewDatagramEvent(kind EventKind, addr AddrTuple, userData []byte) WAPEvent {
	return WAPEvent{Kind: kind, Addr: addr, UserData: userData}
}
