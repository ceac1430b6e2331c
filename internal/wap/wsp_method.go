package wap

// -------------------------------------------------------------------------
// WSP Method State Machine — spec.md Section 4.8
// -------------------------------------------------------------------------
//
// Grounded on the same per-state-function discipline as the WTP FSMs.
// A Method is a child of exactly one Session (spec.md Section 3); its
// transitions run on the session's task, so no locking is needed beyond
// what SessionTable itself provides.

// MethodState enumerates the WSP Method's states (spec.md Section 4.8).
type MethodState uint8

const (
	MethodStateNull MethodState = iota + 1
	MethodStateHolding
	MethodStateRequesting
	MethodStateProcessing
	MethodStateReplying
)

// String renders the method state name for logging.
func (s MethodState) String() string {
	switch s {
	case MethodStateNull:
		return "NULL_METHOD"
	case MethodStateHolding:
		return "HOLDING"
	case MethodStateRequesting:
		return "REQUESTING"
	case MethodStateProcessing:
		return "PROCESSING"
	case MethodStateReplying:
		return "REPLYING"
	default:
		return unknownStr
	}
}

// Method is a single WSP method transaction (spec.md Section 3 "WSP
// Method Machine"). TransactionID equals the owning WTP machine's
// handle.
type Method struct {
	TransactionID Handle
	SessionID     uint32
	State         MethodState
	Addr          AddrTuple

	DeferredInvoke WAPEvent
}

// NewMethod creates a method machine in HOLDING. HandleInvokeIndMethod
// (spec.md Section 4.7) passes it straight on to
// HandleMethodReleaseEvent, so a method created there has moved on to
// REQUESTING by the time that call returns.
func NewMethod(h Handle, sessionID uint32, addr AddrTuple) *Method {
	return &Method{TransactionID: h, SessionID: sessionID, State: MethodStateHolding, Addr: addr}
}

// HandleMethodReleaseEvent processes the Release_Event transition
// (spec.md Section 4.8) of a method NewMethod created in HOLDING:
// dispatch S_MethodInvoke_Ind upward
// (which triggers the HTTP fetch in the application layer), move to
// REQUESTING. body is the Invoke PDU's data, shaped like
// DecodeUnitInvoke's connectionless counterpart: a method code byte, a
// uintvar URI length, the URI bytes, a uintvar headers length, then the
// header bytes themselves. The method code is carried on through in
// ev.Status so the application layer knows Get from Post.
func HandleMethodReleaseEvent(m *Method, body []byte) []Action {
	methodCode, url, headers, content := DecodeMethodInvokeBody(body)
	ev := WAPEvent{
		Kind: EvSMethodInvokeInd, Addr: m.Addr, SessionID: m.SessionID,
		Handle: m.TransactionID, URL: url, Headers: headers, Status: methodCode, Body: content,
	}
	m.State = MethodStateRequesting
	return []Action{{Kind: ActEmitUp, Event: ev}}
}

// DecodeMethodInvokeBody extracts the method code, request URI, header
// list and trailing content (present on Post) from a connection-mode
// Invoke PDU body. Malformed input yields zero values for whatever
// field the parse failed on, matching the gateway's general "drop what
// can't be decoded" stance (spec.md Section 4.9) rather than aborting
// the transaction outright. Also used directly for a class-0 (tcl=0)
// WTP Invoke body, which carries the identical layout with no owning
// transaction.
func DecodeMethodInvokeBody(body []byte) (methodCode int, url string, headers []Header, content []byte) {
	ctx := NewParseContext(body)

	methodByte, err := ctx.ReadByte()
	if err != nil {
		return 0, "", nil, nil
	}
	methodCode = int(methodByte)

	uriLen, err := ctx.ReadUintvar()
	if err != nil {
		return methodCode, "", nil, nil
	}
	uriBytes, err := ctx.ReadBytes(int(uriLen))
	if err != nil {
		return methodCode, "", nil, nil
	}

	headersLen, err := ctx.ReadUintvar()
	if err != nil {
		return methodCode, string(uriBytes), nil, nil
	}
	headerBytes, err := ctx.ReadBytes(int(headersLen))
	if err != nil {
		return methodCode, string(uriBytes), nil, nil
	}

	headers, _, _ = DecodeHeaders(headerBytes)
	content, _ = ctx.ReadBytes(ctx.Remaining())
	return methodCode, string(uriBytes), headers, content
}

// HandleMethodInvokeRes processes the REQUESTING + S_MethodInvoke_Res
// transition (spec.md Section 4.8): send TR_Invoke_Res to WTP, move to
// PROCESSING.
func HandleMethodInvokeRes(m *Method) []Action {
	if m.State != MethodStateRequesting {
		return nil
	}
	m.State = MethodStateProcessing
	return []Action{{Kind: ActEmitUp, Event: WAPEvent{
		Kind: EvTRInvokeRes, Handle: m.TransactionID, Addr: m.Addr,
	}}}
}

// HandleMethodResultReq processes the PROCESSING + S_MethodResult_Req
// transition (spec.md Section 4.8): pack the Reply PDU body (status +
// encoded headers + content) and emit TR_Result_Req down to WTP, which
// owns packing/tracking/retransmitting the actual Result PDU
// (wtp_responder.go's HandleResultReq); move to REPLYING.
func HandleMethodResultReq(m *Method, status int, headers []Header, content []byte) []Action {
	if m.State != MethodStateProcessing {
		return nil
	}
	m.State = MethodStateReplying

	ob := NewOctBuf(len(content) + 64)
	ob.WriteByte(byte(status))
	ob.WriteBytes(EncodeHeaders(headers))
	ob.WriteBytes(content)

	return []Action{{Kind: ActEmitUp, Event: WAPEvent{
		Kind: EvTRResultReq, Handle: m.TransactionID, Addr: m.Addr, Body: ob.Bytes(),
	}}}
}

// HandleMethodResultCnf processes the REPLYING + TR_Result_Cnf
// transition (spec.md Section 4.8): the machine dies, back to
// NULL_METHOD (represented by removal from the owning session).
func HandleMethodResultCnf(m *Method) []Action {
	m.State = MethodStateNull
	return []Action{{Kind: ActDestroyMachine}}
}

// HandleMethodAbortEvent processes "Any + Abort_Event(reason)" (spec.md
// Section 4.8): TR_Abort_Req to WTP, dispatch S_MethodAbort_Ind upward
// unless the method was already in NULL, then drop.
func HandleMethodAbortEvent(m *Method, reason AbortReason) []Action {
	if m.State == MethodStateNull {
		return []Action{{Kind: ActDestroyMachine}}
	}

	actions := []Action{
		{Kind: ActEmitUp, Event: WAPEvent{Kind: EvTRAbortReq, Handle: m.TransactionID, Addr: m.Addr, AbortReason: reason}},
		{Kind: ActEmitUp, Event: WAPEvent{Kind: EvSMethodAbortInd, Addr: m.Addr, SessionID: m.SessionID, Handle: m.TransactionID, AbortReason: reason}},
	}
	m.State = MethodStateNull
	actions = append(actions, Action{Kind: ActDestroyMachine})
	return actions
}
