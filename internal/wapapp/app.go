// Package wapapp wires the WTP and WSP state machines of internal/wap
// into a single running gateway: one goroutine fans in inbound
// datagrams, timer fires, and HTTP fetch completions, and drives every
// FSM transition from that one place.
//
// Grounded on internal/bfd/session.go's applyFSMEvent/executeFSMActions
// split (a pure transition function plus a stateful loop that performs
// the actions it returns), generalized from one BFD session's single
// event queue to the several machine tables (Responder, Initiator,
// Session, Method) this gateway's protocol stack is built from. Those
// tables share mutable maps with no independently schedulable workload
// between them -- a Connect always touches the Responder table and the
// Session table in the same breath -- so running them on one goroutine
// avoids inventing locking those functions were never written to need.
// Genuine concurrency is kept where the workload actually is
// concurrent: internal/fetch.Pool's worker goroutines, the timer
// wheel's own watcher goroutine, and the bearerbox connection's reader,
// each reporting back into this goroutine's single select loop over a
// channel.
package wapapp

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/pruiz/wapbox/internal/bearerbox"
	"github.com/pruiz/wapbox/internal/compile"
	"github.com/pruiz/wapbox/internal/fetch"
	wapmetrics "github.com/pruiz/wapbox/internal/metrics"
	"github.com/pruiz/wapbox/internal/urlmap"
	"github.com/pruiz/wapbox/internal/wap"
)

// Wire-level constants used to disambiguate what a TR_Invoke_Ind's body
// represents: the WSP layer's own PDU-type byte for Connect/Disconnect,
// and the documented method-code ranges for Get/Post (spec.md Section
// 4.8's Invoke body layout has no separate "kind" tag, so the first
// body octet is the only signal available).
const (
	wspPDUTypeConnect    = 0x01
	wspPDUTypeDisconnect = 0x05
	methodGetLow         = 0x40
	methodGetHigh        = 0x5F
	methodPostLow        = 0x60
	methodPostHigh       = 0x7F
)

type invokeKind uint8

const (
	invokeUnknown invokeKind = iota
	invokeConnect
	invokeDisconnect
	invokeMethod
)

func classifyInvoke(body []byte) invokeKind {
	if len(body) == 0 {
		return invokeUnknown
	}
	switch {
	case body[0] == wspPDUTypeConnect:
		return invokeConnect
	case body[0] == wspPDUTypeDisconnect:
		return invokeDisconnect
	case body[0] >= methodGetLow && body[0] <= methodPostHigh:
		return invokeMethod
	default:
		return invokeUnknown
	}
}

// Deps is the collaborator set an Engine is built from. Wheel and Conn
// must be supplied by the caller; the rest fall back to harmless
// defaults so tests can construct a minimal Engine.
type Deps struct {
	Wheel    *wap.Wheel
	Fetch    *fetch.Pool
	URLMap   *urlmap.Map
	Compiler compile.Compiler
	Conn     *bearerbox.Conn
	Metrics  *wapmetrics.Collector
	Logger   *slog.Logger
}

type pendingFetchKind uint8

const (
	pendingFetchMethod pendingFetchKind = iota + 1
	pendingFetchUnit
)

// pendingFetch is the context an in-flight fetch.Request carries back
// to whichever WSP machinery started it.
type pendingFetch struct {
	kind    pendingFetchKind
	addr    wap.AddrTuple
	session *wap.Session
	handle  wap.Handle
	txID    byte
	reqURL  string
}

// Engine is the single-goroutine WAP gateway application: the FSM
// tables plus the bookkeeping needed to route events between them and
// the outside world.
type Engine struct {
	deps Deps
	self chan wap.WAPEvent

	tids     *wap.TIDCache
	tidAlloc *wap.TIDAllocator

	responders *wap.ResponderTable
	initiators *wap.InitiatorTable
	sessions   *wap.SessionTable

	// methodOwner/connectOwner index WTP transaction handles back to
	// their owning session, since neither WAPEvent nor Action carries
	// a generic machine or session reference (spec.md Section 3's
	// "handles, not pointers" design means the Engine has to keep this
	// index itself).
	methodOwner  map[wap.Handle]*wap.Session
	connectOwner map[wap.Handle]*wap.Session

	pending map[uint32]pendingFetch
}

// New builds an Engine over deps. deps.Wheel and deps.Conn are the
// caller's responsibility; Logger/Compiler are defaulted when absent so
// a zero-ish Deps is still usable in tests.
func New(deps Deps) *Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Compiler == nil {
		deps.Compiler = compile.PassThrough
	}

	self := make(chan wap.WAPEvent, 256)
	tids := wap.NewTIDCache()
	tidAlloc := wap.NewTIDAllocator()

	return &Engine{
		deps:         deps,
		self:         self,
		tids:         tids,
		tidAlloc:     tidAlloc,
		responders:   wap.NewResponderTable(deps.Wheel, self, tids),
		initiators:   wap.NewInitiatorTable(deps.Wheel, self, tidAlloc),
		sessions:     wap.NewSessionTable(),
		methodOwner:  make(map[wap.Handle]*wap.Session),
		connectOwner: make(map[wap.Handle]*wap.Session),
		pending:      make(map[uint32]pendingFetch),
	}
}

// Sessions exposes the live session table for the admin server.
func (e *Engine) Sessions() *wap.SessionTable { return e.sessions }

// Run is the engine's single event loop: it fans in inbound datagrams,
// timer fires (via e.self), and fetch completions until ctx is
// cancelled or datagrams is closed.
func (e *Engine) Run(ctx context.Context, datagrams <-chan wap.Datagram) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case dg, ok := <-datagrams:
			if !ok {
				return nil
			}
			e.handleDatagram(dg)

		case ev := <-e.self:
			e.handleTimerFire(ev)

		case res, ok := <-e.deps.Fetch.Results():
			if !ok {
				continue
			}
			e.handleFetchResult(res)
		}
	}
}

// -------------------------------------------------------------------------
// Inbound datagram routing
// -------------------------------------------------------------------------

func (e *Engine) handleDatagram(dg wap.Datagram) {
	class, pdu := wap.Route(dg)
	switch class {
	case wap.RouteConnectionless:
		e.handleConnectionless(dg)
	case wap.RouteResponder:
		e.handleResponderPDU(dg.SrcAddr, pdu)
	case wap.RouteInitiator:
		e.handleInitiatorPDU(dg.SrcAddr, pdu)
	case wap.RouteErrorPDU:
		e.handleRouteError(dg)
	}
}

func (e *Engine) handleRouteError(dg wap.Datagram) {
	tid, ok := wap.TIDFromHeader(dg.Data)
	if !ok {
		return
	}
	e.execute(wap.HandleRcvErrorPDU(dg.SrcAddr, tid))
}

func (e *Engine) handleResponderPDU(addr wap.AddrTuple, pdu *wap.WTPPDU) {
	switch pdu.Type {
	case wap.PDUInvoke:
		e.execute(e.responders.HandleRcvInvoke(addr, pdu))
	case wap.PDUAck:
		if m, ok := e.responders.Lookup(addr, pdu.TID); ok {
			e.runResponder(m, e.responders.HandleRcvAck(m, pdu))
		}
	case wap.PDUAbort:
		if m, ok := e.responders.Lookup(addr, pdu.TID); ok {
			e.runResponder(m, e.responders.HandleRcvAbort(m, pdu))
		}
	}
}

func (e *Engine) handleInitiatorPDU(addr wap.AddrTuple, pdu *wap.WTPPDU) {
	switch pdu.Type {
	case wap.PDUAck:
		if m, ok := e.initiators.Lookup(addr, pdu.TID); ok {
			e.runInitiator(m, e.initiators.HandleRcvAck(m, pdu))
		}
	case wap.PDUAbort:
		if m, ok := e.initiators.Lookup(addr, pdu.TID); ok {
			e.runInitiator(m, e.initiators.HandleRcvAbort(m, pdu))
		}
	}
}

func (e *Engine) handleConnectionless(dg wap.Datagram) {
	txID, ev, err := wap.DecodeUnitInvoke(dg.SrcAddr, dg.Data)
	if err != nil {
		e.deps.Logger.Debug("drop malformed connectionless datagram",
			slog.String("addr", dg.SrcAddr.String()), slog.String("error", err.Error()))
		return
	}

	e.startFetch(pendingFetch{
		kind: pendingFetchUnit, addr: dg.SrcAddr, txID: txID, reqURL: ev.URL,
	}, ev.URL, httpMethodFor(ev.Status), wapHeadersToHTTP(ev.Headers), ev.Body, nil)
}

// -------------------------------------------------------------------------
// Timer fires
// -------------------------------------------------------------------------

func (e *Engine) handleTimerFire(ev wap.WAPEvent) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordTimerFire()
	}

	switch ev.Kind {
	case wap.EvTimerTOA:
		if m, ok := e.responders.ByHandle(ev.Handle); ok {
			e.runResponder(m, e.responders.HandleTimerTOA(m))
		}

	case wap.EvTimerTOR:
		if m, ok := e.responders.ByHandle(ev.Handle); ok {
			e.runResponder(m, e.responders.HandleTimerTOR(m))
			return
		}
		if m, ok := e.initiators.ByHandle(ev.Handle); ok {
			e.runInitiator(m, e.initiators.HandleTimerTOR(m))
		}
	}
}

// -------------------------------------------------------------------------
// WAPEvent dispatch -- the fan-in point for every ActEmitUp action
// -------------------------------------------------------------------------

func (e *Engine) dispatchEvent(ev wap.WAPEvent) {
	switch ev.Kind {
	case wap.EvTRInvokeInd:
		e.handleTRInvokeInd(ev)

	case wap.EvTRInvokeRes:
		if m, ok := e.responders.ByHandle(ev.Handle); ok {
			e.runResponder(m, e.responders.HandleInvokeRes(m))
		}

	case wap.EvTRResultReq:
		if m, ok := e.responders.ByHandle(ev.Handle); ok {
			buf := make([]byte, len(ev.Body)+32)
			e.runResponder(m, e.responders.HandleResultReq(m, ev.Body, buf))
		}

	case wap.EvTRResultCnf:
		e.handleTRResultCnf(ev)

	case wap.EvTRAbortReq:
		if m, ok := e.responders.ByHandle(ev.Handle); ok {
			e.runResponder(m, e.responders.HandleAbortReq(m, ev.AbortReason))
		}

	case wap.EvTRAbortInd:
		e.handleTRAbortInd(ev)

	case wap.EvSMethodInvokeInd:
		e.handleSMethodInvokeInd(ev)

	case wap.EvSUnitMethodInvokeInd:
		// Only reached via a class-0 WTP Invoke (spec.md Section
		// 4.5's tcl=0 LISTEN branch): unconfirmed, no Result PDU
		// exists to carry a reply back on. True connectionless WSP
		// datagrams are completed directly by handleConnectionless
		// without round-tripping through this event.
		e.deps.Logger.Debug("dropping class-0 invoke, no reply path", slog.String("url", ev.URL))

	case wap.EvSDisconnectInd:
		e.handleSDisconnectInd(ev)

	case wap.EvSConnectInd, wap.EvSMethodAbortInd, wap.EvTRInvokeCnf:
		// Informational: nothing further for the Engine to do beyond
		// what the triggering call site already handled.

	default:
		e.deps.Logger.Debug("unrouted wap event", slog.String("kind", ev.Kind.String()))
	}
}

func (e *Engine) handleTRInvokeInd(ev wap.WAPEvent) {
	switch classifyInvoke(ev.Body) {
	case invokeConnect:
		s, actions := e.sessions.HandleInvokeIndConnect(ev.Addr, ev.Handle, ev.Body[1:])
		e.connectOwner[ev.Handle] = s
		e.execute(actions)

		// Drive the Responder machine's own INVOKE_RESP_WAIT ->
		// RESULT_WAIT step: the Method flow does this via its own
		// EvTRInvokeRes emission (HandleMethodInvokeRes), but Connect
		// has no equivalent application-layer round trip to trigger
		// it from, since this gateway auto-admits every session.
		if m, ok := e.responders.ByHandle(ev.Handle); ok {
			e.runResponder(m, e.responders.HandleInvokeRes(m))
		}

		e.execute(e.sessions.HandleConnectRes(s, nil))
		if e.deps.Metrics != nil {
			e.deps.Metrics.SessionCreated()
		}

	case invokeDisconnect:
		s, ok := e.sessions.ByAddr(ev.Addr)
		if !ok {
			return
		}
		e.execute(e.sessions.HandleInvokeIndDisconnect(s))

	case invokeMethod:
		s, ok := e.sessions.ByAddr(ev.Addr)
		if !ok {
			return
		}
		e.methodOwner[ev.Handle] = s
		e.execute(e.sessions.HandleInvokeIndMethod(s, ev.Handle, ev.Body))

	default:
		e.deps.Logger.Debug("drop invoke with unrecognized wsp pdu type", slog.String("addr", ev.Addr.String()))
	}
}

func (e *Engine) handleTRResultCnf(ev wap.WAPEvent) {
	if s, ok := e.connectOwner[ev.Handle]; ok {
		e.sessions.HandleResultCnf(s, ev.Handle)
		delete(e.connectOwner, ev.Handle)
		return
	}
	if s, ok := e.methodOwner[ev.Handle]; ok {
		if m, ok := s.Methods[ev.Handle]; ok {
			e.runMethod(s, m, wap.HandleMethodResultCnf(m))
			if e.deps.Metrics != nil {
				e.deps.Metrics.RecordMethod("ok")
			}
		}
	}
}

func (e *Engine) handleTRAbortInd(ev wap.WAPEvent) {
	if s, ok := e.connectOwner[ev.Handle]; ok {
		delete(e.connectOwner, ev.Handle)
		e.execute(e.sessions.HandleAbortOnConnectHandle(s, ev.AbortReason))
		return
	}
	if s, ok := e.methodOwner[ev.Handle]; ok {
		if m, ok := s.Methods[ev.Handle]; ok {
			e.runMethod(s, m, wap.HandleMethodAbortEvent(m, ev.AbortReason))
			if e.deps.Metrics != nil {
				e.deps.Metrics.RecordMethod("abort")
			}
		}
	}
}

func (e *Engine) handleSDisconnectInd(ev wap.WAPEvent) {
	for h, owner := range e.methodOwner {
		if owner.SessionID == ev.SessionID {
			delete(e.methodOwner, h)
		}
	}
	for h, owner := range e.connectOwner {
		if owner.SessionID == ev.SessionID {
			delete(e.connectOwner, h)
		}
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.SessionDestroyed()
	}
}

func (e *Engine) handleSMethodInvokeInd(ev wap.WAPEvent) {
	s, ok := e.methodOwner[ev.Handle]
	if !ok {
		return
	}
	if _, ok := s.Methods[ev.Handle]; !ok {
		return
	}

	e.startFetch(pendingFetch{
		kind: pendingFetchMethod, addr: ev.Addr, session: s, handle: ev.Handle, reqURL: ev.URL,
	}, ev.URL, httpMethodFor(ev.Status), wapHeadersToHTTP(ev.Headers), ev.Body, s.Cookies)
}

// -------------------------------------------------------------------------
// Fetching
// -------------------------------------------------------------------------

func (e *Engine) startFetch(pf pendingFetch, rawURL, method string, headers http.Header, body []byte, jar *wap.CookieJar) {
	finalURL := rawURL
	if e.deps.URLMap != nil {
		finalURL, _ = e.deps.URLMap.Match(rawURL)
	}
	pf.reqURL = finalURL

	applyCookies(headers, jar, finalURL)

	id, err := e.deps.Fetch.StartRequest(fetch.Request{
		Method: method, URL: finalURL, Headers: headers, Body: body,
	})
	if err != nil {
		e.deps.Logger.Warn("start fetch failed", slog.String("url", finalURL), slog.String("error", err.Error()))
		e.failFetch(pf)
		return
	}
	e.pending[id] = pf
}

func (e *Engine) failFetch(pf pendingFetch) {
	status := wspStatusFromHTTP(http.StatusServiceUnavailable)
	switch pf.kind {
	case pendingFetchMethod:
		e.completeMethod(pf, status, nil, nil)
	case pendingFetchUnit:
		e.completeUnit(pf, status, nil, nil)
	}
}

func (e *Engine) handleFetchResult(res fetch.Result) {
	pf, ok := e.pending[res.ID]
	if !ok {
		return
	}
	delete(e.pending, res.ID)

	httpStatus := res.Status
	body := res.Body
	var headers []wap.Header

	if res.Err != nil {
		e.deps.Logger.Warn("origin fetch failed", slog.String("url", pf.reqURL), slog.String("error", res.Err.Error()))
		httpStatus = http.StatusGatewayTimeout
		body = nil
	} else {
		headers = httpHeadersToWAP(res.Headers)

		if pf.kind == pendingFetchMethod && pf.session != nil {
			storeCookies(pf.session.Cookies, res.FinalURL, res.Headers)
		}

		if compiled, err := e.deps.Compiler(body, contentTypeCharset(res.Headers.Get("Content-Type"))); err == nil {
			body = compiled
		}

		if pf.kind == pendingFetchMethod && pf.session != nil && pf.session.ClientSDUSize > 0 &&
			len(body) > int(pf.session.ClientSDUSize) {
			// 413 is a request-side status, used only because WSP has no
			// "response too large" code: an imperfect mapping, kept as is.
			httpStatus = http.StatusRequestEntityTooLarge
			body = nil
		}
	}

	status := wspStatusFromHTTP(httpStatus)
	switch pf.kind {
	case pendingFetchMethod:
		e.completeMethod(pf, status, headers, body)
	case pendingFetchUnit:
		e.completeUnit(pf, status, headers, body)
	}
}

func (e *Engine) completeMethod(pf pendingFetch, status int, headers []wap.Header, body []byte) {
	s := pf.session
	if s == nil {
		return
	}
	m, ok := s.Methods[pf.handle]
	if !ok {
		return
	}
	e.runMethod(s, m, wap.HandleMethodInvokeRes(m))
	e.runMethod(s, m, wap.HandleMethodResultReq(m, status, headers, body))
}

func (e *Engine) completeUnit(pf pendingFetch, status int, headers []wap.Header, body []byte) {
	reply := wap.EncodeUnitResult(pf.txID, status, headers, body)
	e.sendDatagram(pf.addr, reply)
}

// -------------------------------------------------------------------------
// Cookie round-tripping
// -------------------------------------------------------------------------

// applyCookies sets the outgoing Cookie header from whatever the jar
// holds for rawURL's host and path. jar is nil for connectionless
// fetches, which carry no session and therefore no cookie state.
func applyCookies(headers http.Header, jar *wap.CookieJar, rawURL string) {
	if jar == nil {
		return
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	if v := jar.HeaderValue(u.Hostname(), u.Path); v != "" {
		headers.Set("Cookie", v)
	}
}

// storeCookies records every Set-Cookie header from a fetch response
// into jar. (&http.Response{Header: ...}).Cookies() is reused here
// rather than a hand-rolled parser: Set-Cookie's quoting and
// attribute-separator rules are exactly what net/http already
// implements correctly.
func storeCookies(jar *wap.CookieJar, rawURL string, respHeaders http.Header) {
	if jar == nil {
		return
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}

	now := time.Now()
	resp := &http.Response{Header: respHeaders}
	for _, c := range resp.Cookies() {
		domain := c.Domain
		if domain == "" {
			domain = u.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}

		maxAge := c.MaxAge
		switch {
		case maxAge == 0 && !c.Expires.IsZero():
			maxAge = int(time.Until(c.Expires).Seconds())
		case maxAge == 0:
			maxAge = -1
		}

		jar.Store(wap.Cookie{
			Name: c.Name, Value: c.Value, Domain: domain, Path: path,
			MaxAge: maxAge, Birth: now,
		})
	}
}

// -------------------------------------------------------------------------
// PDU send path
// -------------------------------------------------------------------------

func (e *Engine) sendPDU(addr wap.AddrTuple, pdu *wap.WTPPDU) {
	buf := make([]byte, pduBufSize(pdu))
	n, err := wap.MarshalWTPPDU(pdu, buf)
	if err != nil {
		e.deps.Logger.Warn("marshal wtp pdu", slog.String("type", pdu.Type.String()), slog.String("error", err.Error()))
		return
	}
	e.sendDatagram(addr, buf[:n])
}

func pduBufSize(pdu *wap.WTPPDU) int {
	return len(pdu.UserData) + len(pdu.ResultData) + len(pdu.TPI) + 16
}

func (e *Engine) sendDatagram(addr wap.AddrTuple, payload []byte) {
	if err := bearerbox.Send(e.deps.Conn, addr, payload); err != nil {
		e.deps.Logger.Warn("send to bearerbox failed", slog.String("addr", addr.String()), slog.String("error", err.Error()))
	}
}

// -------------------------------------------------------------------------
// Action execution
// -------------------------------------------------------------------------

// execute runs an action list that is guaranteed not to contain
// ActDestroyMachine -- every call site below either comes from a
// function that never emits it, or (terminateSession) has already
// filtered it out.
func (e *Engine) execute(actions []wap.Action) {
	for _, a := range actions {
		e.execute1(a)
	}
}

func (e *Engine) execute1(a wap.Action) {
	switch a.Kind {
	case wap.ActSendPDU:
		e.sendPDU(a.Addr, a.PDU)
	case wap.ActRetransmit:
		e.sendDatagram(a.Addr, a.Raw)
	case wap.ActEmitUp, wap.ActEmitAbortLocal:
		e.dispatchEvent(a.Event)
	case wap.ActStartTimer:
		e.deps.Wheel.Start(a.Timer, a.Interval, a.Event)
	case wap.ActStopTimer:
		e.deps.Wheel.Stop(a.Timer)
	case wap.ActCacheTID:
		e.tids.Set(a.Addr, a.TID)
	case wap.ActResetTIDCache:
		e.tids.Reset(a.Addr)
	case wap.ActDestroyMachine:
		e.deps.Logger.Warn("unrouted ActDestroyMachine dropped")
	}
}

// runResponder executes actions returned for machine m, destroying it
// in the table (rather than dropping the action) whenever
// ActDestroyMachine appears -- the one action kind a generic execute
// loop cannot handle, since Action carries no machine reference.
func (e *Engine) runResponder(m *wap.ResponderMachine, actions []wap.Action) {
	for _, a := range actions {
		if a.Kind == wap.ActDestroyMachine {
			e.responders.Destroy(m)
			continue
		}
		e.execute1(a)
	}
}

func (e *Engine) runInitiator(m *wap.InitiatorMachine, actions []wap.Action) {
	for _, a := range actions {
		if a.Kind == wap.ActDestroyMachine {
			e.initiators.Destroy(m)
			continue
		}
		e.execute1(a)
	}
}

func (e *Engine) runMethod(s *wap.Session, m *wap.Method, actions []wap.Action) {
	for _, a := range actions {
		if a.Kind == wap.ActDestroyMachine {
			s.RemoveMethod(m.TransactionID)
			delete(e.methodOwner, m.TransactionID)
			continue
		}
		e.execute1(a)
	}
}

// -------------------------------------------------------------------------
// HTTP <-> WSP header/status conversions
// -------------------------------------------------------------------------

func wapHeadersToHTTP(headers []wap.Header) http.Header {
	h := make(http.Header, len(headers))
	for _, hd := range headers {
		h.Add(hd.Name, hd.Value)
	}
	return h
}

func httpHeadersToWAP(headers http.Header) []wap.Header {
	out := make([]wap.Header, 0, len(headers))
	for name, values := range headers {
		for _, v := range values {
			out = append(out, wap.Header{Name: name, Value: v})
		}
	}
	return out
}

// wspStatusFromHTTP maps an HTTP status code onto its WAP-230 WSP
// status code: the class digit shifted into the high nibble, the
// within-class offset in the low nibble (200 -> 0x20, 404 -> 0x44,
// 502 -> 0x52).
func wspStatusFromHTTP(status int) int {
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	return ((status / 100) << 4) | (status % 100)
}

func contentTypeCharset(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// httpMethodFor maps a WSP method code (spec.md Section 4.8's documented
// wire ranges: Get 0x40-0x5F, Post 0x60-0x7F) onto the HTTP method to
// fetch with.
func httpMethodFor(wspMethodCode int) string {
	if wspMethodCode >= methodPostLow && wspMethodCode <= methodPostHigh {
		return http.MethodPost
	}
	return http.MethodGet
}
