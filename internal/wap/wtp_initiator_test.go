package wap_test

import (
	"testing"

	"github.com/pruiz/wapbox/internal/wap"
)

func newInitiatorTable(t *testing.T) (*wap.InitiatorTable, chan wap.WAPEvent) {
	t.Helper()
	wheel := wap.NewWheel()
	t.Cleanup(wheel.Close)
	out := make(chan wap.WAPEvent, 16)
	return wap.NewInitiatorTable(wheel, out, wap.NewTIDAllocator()), out
}

func TestInitiatorInvokeReqTCL1SendsInvokeAndArmsTimer(t *testing.T) {
	t.Parallel()
	table, _ := newInitiatorTable(t)
	addr := testAddr(t)
	buf := make([]byte, 64)

	m, actions := table.HandleInvokeReqTCL1(addr, []byte("push-payload"), buf)
	if m == nil {
		t.Fatal("HandleInvokeReqTCL1 returned a nil machine")
	}
	if m.State != wap.IStateResultWait {
		t.Errorf("State = %v, want RESULT_WAIT", m.State)
	}
	a, ok := findAction(actions, wap.ActSendPDU)
	if !ok || a.PDU.Type != wap.PDUInvoke || a.PDU.TCL != 1 {
		t.Fatalf("actions = %+v, want ActSendPDU carrying a tcl=1 Invoke", actions)
	}
	if _, ok := findAction(actions, wap.ActStartTimer); !ok {
		t.Error("actions missing ActStartTimer")
	}
	if got, ok := table.ByHandle(m.Handle); !ok || got != m {
		t.Error("machine not registered by handle")
	}
}

func TestInitiatorTimerTORRetransmitsThenAbortsOnRCRExhaustion(t *testing.T) {
	t.Parallel()
	table, _ := newInitiatorTable(t)
	addr := testAddr(t)
	buf := make([]byte, 64)
	m, _ := table.HandleInvokeReqTCL1(addr, []byte("payload"), buf)

	for i := 0; i < wap.MaxRCR; i++ {
		actions := table.HandleTimerTOR(m)
		a, ok := findAction(actions, wap.ActRetransmit)
		if !ok || a.Raw[0]&1 == 0 {
			t.Fatalf("retransmit %d: actions = %+v, want ActRetransmit with RID set", i, actions)
		}
		if m.State != wap.IStateResultWait {
			t.Fatalf("retransmit %d: State = %v, want unchanged RESULT_WAIT", i, m.State)
		}
	}

	final := table.HandleTimerTOR(m)
	ev, ok := findAction(final, wap.ActEmitUp)
	if !ok || ev.Event.Kind != wap.EvTRAbortInd || ev.Event.AbortReason != wap.AbortNoResponse {
		t.Errorf("final actions = %+v, want ActEmitUp carrying AbortNoResponse", final)
	}
	if _, ok := findAction(final, wap.ActDestroyMachine); !ok {
		t.Error("final actions missing ActDestroyMachine")
	}
	if m.State != wap.IStateNull {
		t.Errorf("State after RCR exhaustion = %v, want NULL", m.State)
	}
}

func TestInitiatorTimerTORNoOpOnceTIDOKSent(t *testing.T) {
	t.Parallel()
	table, _ := newInitiatorTable(t)
	addr := testAddr(t)
	buf := make([]byte, 64)
	m, _ := table.HandleInvokeReqTCL1(addr, []byte("payload"), buf)

	verify := &wap.WTPPDU{Type: wap.PDUAck, GTR: true, TTR: true, TID: m.TID, TIDVerify: true}
	table.HandleRcvAck(m, verify)
	if !m.TIDOKSent {
		t.Fatal("TIDOKSent was never set by the verifying Ack")
	}

	if actions := table.HandleTimerTOR(m); actions != nil {
		t.Errorf("HandleTimerTOR after TIDOKSent = %+v, want nil (retransmit governed by RcvAck instead)", actions)
	}
}

func TestInitiatorRcvAckNonVerifyCompletesInvokeCnf(t *testing.T) {
	t.Parallel()
	table, _ := newInitiatorTable(t)
	addr := testAddr(t)
	buf := make([]byte, 64)
	m, _ := table.HandleInvokeReqTCL1(addr, []byte("payload"), buf)

	ack := &wap.WTPPDU{Type: wap.PDUAck, GTR: true, TTR: true, TID: m.TID, TIDVerify: false}
	actions := table.HandleRcvAck(m, ack)

	if _, ok := findAction(actions, wap.ActStopTimer); !ok {
		t.Error("actions missing ActStopTimer")
	}
	ev, ok := findAction(actions, wap.ActEmitUp)
	if !ok || ev.Event.Kind != wap.EvTRInvokeCnf {
		t.Errorf("actions = %+v, want ActEmitUp carrying EvTRInvokeCnf", actions)
	}
	if _, ok := findAction(actions, wap.ActDestroyMachine); !ok {
		t.Error("actions missing ActDestroyMachine")
	}
	if m.State != wap.IStateNull {
		t.Errorf("State = %v, want NULL", m.State)
	}
}

func TestInitiatorRcvAckVerifySendsAckAndRestartsTimer(t *testing.T) {
	t.Parallel()
	table, _ := newInitiatorTable(t)
	addr := testAddr(t)
	buf := make([]byte, 64)
	m, _ := table.HandleInvokeReqTCL1(addr, []byte("payload"), buf)

	verify := &wap.WTPPDU{Type: wap.PDUAck, GTR: true, TTR: true, TID: m.TID, TIDVerify: true}
	actions := table.HandleRcvAck(m, verify)

	a, ok := findAction(actions, wap.ActSendPDU)
	if !ok || a.PDU.Type != wap.PDUAck || !a.PDU.TIDVerify {
		t.Fatalf("actions = %+v, want ActSendPDU carrying a tid-verify Ack", actions)
	}
	if _, ok := findAction(actions, wap.ActStartTimer); !ok {
		t.Error("actions missing ActStartTimer")
	}
	if !m.TIDOKSent || m.RCR != 1 {
		t.Errorf("m = %+v, want TIDOKSent=true RCR=1", m)
	}
	if m.State != wap.IStateResultWait {
		t.Errorf("State = %v, want unchanged RESULT_WAIT", m.State)
	}
}

func TestInitiatorRcvAckVerifyIgnoredAfterRCRExhausted(t *testing.T) {
	t.Parallel()
	table, _ := newInitiatorTable(t)
	addr := testAddr(t)
	buf := make([]byte, 64)
	m, _ := table.HandleInvokeReqTCL1(addr, []byte("payload"), buf)
	m.RCR = wap.MaxRCR

	verify := &wap.WTPPDU{Type: wap.PDUAck, GTR: true, TTR: true, TID: m.TID, TIDVerify: true}
	if actions := table.HandleRcvAck(m, verify); actions != nil {
		t.Errorf("HandleRcvAck at RCR exhaustion = %+v, want nil", actions)
	}
}

func TestInitiatorRcvAbortEmitsUpAndDestroys(t *testing.T) {
	t.Parallel()
	table, _ := newInitiatorTable(t)
	addr := testAddr(t)
	buf := make([]byte, 64)
	m, _ := table.HandleInvokeReqTCL1(addr, []byte("payload"), buf)

	abort := &wap.WTPPDU{Type: wap.PDUAbort, TID: m.TID, AbortReason: wap.AbortDisconnect}
	actions := table.HandleRcvAbort(m, abort)

	ev, ok := findAction(actions, wap.ActEmitUp)
	if !ok || ev.Event.Kind != wap.EvTRAbortInd || ev.Event.AbortReason != wap.AbortDisconnect {
		t.Errorf("actions = %+v, want ActEmitUp carrying AbortDisconnect", actions)
	}
	if _, ok := findAction(actions, wap.ActDestroyMachine); !ok {
		t.Error("actions missing ActDestroyMachine")
	}
	if m.State != wap.IStateNull {
		t.Errorf("State = %v, want NULL", m.State)
	}
}

func TestInitiatorInvokeReqTCL0IsStatelessSend(t *testing.T) {
	t.Parallel()
	addr := testAddr(t)
	buf := make([]byte, 32)

	actions := wap.HandleInvokeReqTCL0(addr, []byte("unit-data"), buf)
	a, ok := findAction(actions, wap.ActSendPDU)
	if !ok || a.PDU.Type != wap.PDUInvoke || a.PDU.TCL != 0 {
		t.Errorf("actions = %+v, want a single ActSendPDU carrying a tcl=0 Invoke", actions)
	}
}
