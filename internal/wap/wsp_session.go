package wap

// -------------------------------------------------------------------------
// WSP Session State Machine — spec.md Section 4.7
// -------------------------------------------------------------------------
//
// Grounded on internal/bfd/manager.go's Manager: a map of live instances
// keyed by a stable id, Create/Destroy lifecycle, and a per-instance
// worker dispatching events into its owned state. Here the "instance"
// is a session, and each session additionally owns a map of child
// Method machines (wsp_method.go) -- the session and method layers
// share one task and queue per spec.md Section 5, so SessionTable
// methods are never called concurrently with each other.

// SessionState enumerates the WSP Session's states (spec.md Section
// 4.7). TERMINATING is listed as parenthetical in the condensed table;
// this gateway collapses it into the NULL_SESSION transition since no
// observable event distinguishes a terminating session from a dead one
// once its Disconnect_Event has been dispatched to every child.
type SessionState uint8

const (
	SessionStateNull SessionState = iota + 1
	SessionStateConnecting
	SessionStateConnecting2
	SessionStateConnected
)

// String renders the session state name for logging.
func (s SessionState) String() string {
	switch s {
	case SessionStateNull:
		return "NULL_SESSION"
	case SessionStateConnecting:
		return "CONNECTING"
	case SessionStateConnecting2:
		return "CONNECTING_2"
	case SessionStateConnected:
		return "CONNECTED"
	default:
		return unknownStr
	}
}

const (
	defaultClientSDUSize = 1400
	defaultServerSDUSize = 0 // unlimited
	defaultMethodMOR     = 255
	defaultPushMOR       = 1
)

// Session is a single WSP session (spec.md Section 3 "WSP Session
// Machine").
type Session struct {
	SessionID     uint32
	State         SessionState
	ConnectHandle Handle // WTP machine handle for the Connect transaction
	Addr          AddrTuple

	ClientSDUSize uint32
	ServerSDUSize uint32
	MethodMOR     uint8
	PushMOR       uint8

	HTTPHeaders []Header
	RequestCaps []Capability
	ReplyCaps   []Capability

	Methods map[Handle]*Method
	Cookies *CookieJar
}

// SessionTable is the slotted arena of live sessions, keyed by id and,
// for the "unique session per client tuple" invariant (spec.md Section
// 3), by AddrTuple.
type SessionTable struct {
	byID      map[uint32]*Session
	byAddr    map[AddrTuple]*Session
	nextID    uint32
}

// NewSessionTable creates an empty session table.
func NewSessionTable() *SessionTable {
	return &SessionTable{
		byID:   make(map[uint32]*Session),
		byAddr: make(map[AddrTuple]*Session),
	}
}

// ByID finds a session by id.
func (t *SessionTable) ByID(id uint32) (*Session, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// ByAddr finds the (unique) session for a client tuple.
func (t *SessionTable) ByAddr(addr AddrTuple) (*Session, bool) {
	s, ok := t.byAddr[addr]
	return s, ok
}

// All returns every currently live session, for inspection endpoints
// (spec.md Section 4.14 "admin server").
func (t *SessionTable) All() []*Session {
	out := make([]*Session, 0, len(t.byID))
	for _, s := range t.byID {
		out = append(out, s)
	}
	return out
}

// HandleInvokeIndConnect processes the NULL_SESSION + TR_Invoke_Ind
// (tcl=2, Connect) transition (spec.md Section 4.7): dispatch
// S_Connect_Ind upward and remember the connect handle for CONNECTING.
// Returns a placeholder session not yet registered in the table --
// registration happens once the application replies (HandleConnectRes),
// so a session with no accepted reply never occupies the addr-keyed
// slot. body is the Connect PDU payload with its leading PDU-type byte
// already stripped by the caller: a version byte, a uintvar capability
// length, the capability block of that length, then the header block
// filling whatever remains.
func (t *SessionTable) HandleInvokeIndConnect(addr AddrTuple, connectHandle Handle, body []byte) (*Session, []Action) {
	capBlock, headerBlock := splitConnectBody(body)
	caps, _ := DecodeCapabilities(capBlock)
	headers, _, _ := DecodeHeaders(headerBlock)

	s := &Session{
		State:         SessionStateConnecting,
		ConnectHandle: connectHandle,
		Addr:          addr,
		RequestCaps:   caps,
		HTTPHeaders:   headers,
		Methods:       make(map[Handle]*Method),
		Cookies:       NewCookieJar(),
	}

	ev := WAPEvent{
		Kind: EvSConnectInd, Addr: addr, RequestCaps: caps, Headers: headers,
	}
	return s, []Action{{Kind: ActEmitUp, Event: ev}}
}

// HandleConnectRes processes the CONNECTING + S_Connect_Res transition
// (spec.md Section 4.7): evict any prior session for the same client
// tuple, assign a session id, sanitize/default the reply capabilities,
// register the session, and move to CONNECTING_2 awaiting TR_Result_Cnf
// of the ConnectReply PDU the caller packs and sends.
func (t *SessionTable) HandleConnectRes(s *Session, replyCaps []Capability) []Action {
	var actions []Action

	if old, ok := t.byAddr[s.Addr]; ok {
		actions = append(actions, t.killSessionActions(old, AbortDisconnect)...)
	}

	t.nextID++
	s.SessionID = t.nextID
	s.ReplyCaps = SanitizeCapabilities(s.RequestCaps, replyCaps)
	applySessionDefaults(s)
	s.State = SessionStateConnecting2

	t.byID[s.SessionID] = s
	t.byAddr[s.Addr] = s

	actions = append(actions, Action{Kind: ActEmitUp, Event: WAPEvent{
		Kind: EvTRResultReq, Handle: s.ConnectHandle, Addr: s.Addr, Body: buildConnectReplyBody(s),
	}})
	return actions
}

// splitConnectBody separates the Connect PDU's capability block from
// its trailing header block given the version-stripped layout
// documented on HandleInvokeIndConnect. A malformed or absent capability
// length yields an empty capability block and treats the whole body as
// headers, matching the package's general "drop what can't be decoded"
// stance rather than aborting the transaction.
func splitConnectBody(body []byte) (capBlock, headerBlock []byte) {
	ctx := NewParseContext(body)
	if _, err := ctx.ReadByte(); err != nil { // version
		return nil, body
	}
	capLen, err := ctx.ReadUintvar()
	if err != nil {
		return nil, body
	}
	capBlock, err = ctx.ReadBytes(int(capLen))
	if err != nil {
		return nil, body
	}
	headerBlock, _ = ctx.ReadBytes(ctx.Remaining())
	return capBlock, headerBlock
}

// applySessionDefaults fills the well-known capability defaults not
// present in s.ReplyCaps into the session's own numeric fields (spec.md
// Section 4.7 (b)): client SDU size, server SDU size (0 = unlimited),
// method-MOR (255 if unspecified), push-MOR echoed from the peer.
func applySessionDefaults(s *Session) {
	s.ClientSDUSize = defaultClientSDUSize
	s.ServerSDUSize = defaultServerSDUSize
	s.MethodMOR = defaultMethodMOR
	s.PushMOR = defaultPushMOR

	for _, c := range s.RequestCaps {
		switch c.ID {
		case CapClientSDUSize:
			s.ClientSDUSize = bytesToUint32(c.Value)
		case CapPushMOR:
			if len(c.Value) > 0 {
				s.PushMOR = c.Value[0]
			}
		case CapMethodMOR:
			if len(c.Value) > 0 {
				s.MethodMOR = c.Value[0]
			}
		}
	}
	// ReplyCaps carries whatever this gateway actually negotiated, so it
	// takes precedence over the peer's proposal above for the two
	// capabilities the gateway itself can override.
	for _, c := range s.ReplyCaps {
		switch c.ID {
		case CapServerSDUSize:
			s.ServerSDUSize = bytesToUint32(c.Value)
		case CapMethodMOR:
			if len(c.Value) > 0 {
				s.MethodMOR = c.Value[0]
			}
		}
	}
}

func bytesToUint32(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = (v << 8) | uint32(c)
	}
	return v
}

// buildConnectReplyBody packs the ConnectReply PDU body: session id,
// capability length, then the encoded reply capability list (spec.md
// Section 4.7), mirroring the Connect body layout HandleInvokeIndConnect
// parses. No reply headers are ever sent: this gateway's session layer
// has nothing of its own to tell the client beyond the capability
// negotiation outcome.
func buildConnectReplyBody(s *Session) []byte {
	capBytes := EncodeCapabilities(s.ReplyCaps)
	ob := NewOctBuf(len(capBytes) + 16)
	ob.WriteUintvar(s.SessionID)
	ob.WriteUintvar(uint32(len(capBytes)))
	ob.WriteBytes(capBytes)
	return ob.Bytes()
}

// HandleResultCnf processes the CONNECTING_2 + TR_Result_Cnf transition
// when the confirmed handle matches the session's connect_handle
// (spec.md Section 4.7): moves to CONNECTED.
func (t *SessionTable) HandleResultCnf(s *Session, handle Handle) []Action {
	if s.State != SessionStateConnecting2 || handle != s.ConnectHandle {
		return nil
	}
	s.State = SessionStateConnected
	return nil
}

// HandleInvokeIndMethod processes the CONNECTED + TR_Invoke_Ind(tcl=2,
// Get|Post) transition (spec.md Section 4.7): creates a method machine
// and dispatches its triggering event; the session itself stays
// CONNECTED.
func (t *SessionTable) HandleInvokeIndMethod(s *Session, methodHandle Handle, body []byte) []Action {
	if s.State != SessionStateConnected {
		return nil
	}
	m := NewMethod(methodHandle, s.SessionID, s.Addr)
	s.Methods[methodHandle] = m
	return HandleMethodReleaseEvent(m, body)
}

// HandleAbortOnConnectHandle processes "Any + RcvAbort on connect
// handle" (spec.md Section 4.7): abort all method machines with
// DISCONNECT, dispatch S_Disconnect_Ind(reason), tear the session down.
func (t *SessionTable) HandleAbortOnConnectHandle(s *Session, reason AbortReason) []Action {
	return t.terminateSession(s, reason)
}

// HandleInvokeIndDisconnect processes "Any + TR_Invoke_Ind(tcl=0,
// Disconnect)" (spec.md Section 4.7).
func (t *SessionTable) HandleInvokeIndDisconnect(s *Session) []Action {
	return t.terminateSession(s, AbortDisconnect)
}

// HandleResumePDU implements "Resume PDU is rejected with
// Abort(DISCONNECT)" (spec.md Section 4.7): session resume is an
// explicit non-goal.
func HandleResumePDU(addr AddrTuple, tid uint16) []Action {
	return []Action{{Kind: ActSendPDU, Addr: addr, PDU: &WTPPDU{
		Type: PDUAbort, TID: tid, GTR: true, TTR: true,
		AbortType: AbortTypeProvider, AbortReason: AbortDisconnect,
	}}}
}

func (t *SessionTable) terminateSession(s *Session, reason AbortReason) []Action {
	var actions []Action
	for h, m := range s.Methods {
		for _, a := range HandleMethodAbortEvent(m, reason) {
			if a.Kind == ActDestroyMachine {
				continue
			}
			actions = append(actions, a)
		}
		delete(s.Methods, h)
	}
	actions = append(actions, Action{Kind: ActEmitUp, Event: WAPEvent{
		Kind: EvSDisconnectInd, Addr: s.Addr, SessionID: s.SessionID, AbortReason: reason,
	}})
	s.State = SessionStateNull
	delete(t.byID, s.SessionID)
	delete(t.byAddr, s.Addr)
	return actions
}

// killSessionActions forces Disconnect_Event delivery on an existing
// session being displaced by a fresh Connect from the same client tuple
// (spec.md Section 3 invariant: "establishing a new session on an
// existing tuple forces a Disconnect_Event on the old session").
func (t *SessionTable) killSessionActions(old *Session, reason AbortReason) []Action {
	return t.terminateSession(old, reason)
}

// RemoveMethod detaches a finished method machine from its owning
// session (called by the method FSM's terminal transition).
func (s *Session) RemoveMethod(h Handle) {
	delete(s.Methods, h)
}
