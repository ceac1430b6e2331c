package wap_test

import (
	"errors"
	"testing"

	"github.com/pruiz/wapbox/internal/wap"
)

func TestWTPPDUInvokeRoundTrip(t *testing.T) {
	t.Parallel()

	pdu := &wap.WTPPDU{
		Type:     wap.PDUInvoke,
		GTR:      true,
		TTR:      true,
		RID:      false,
		TID:      0x1234,
		TCL:      2,
		UAck:     true,
		UserData: []byte("GET / HTTP"),
	}

	buf := make([]byte, 64)
	n, err := wap.MarshalWTPPDU(pdu, buf)
	if err != nil {
		t.Fatalf("MarshalWTPPDU: %v", err)
	}

	var got wap.WTPPDU
	if err := wap.UnmarshalWTPPDU(buf[:n], &got); err != nil {
		t.Fatalf("UnmarshalWTPPDU: %v", err)
	}

	if got.Type != wap.PDUInvoke {
		t.Errorf("Type = %v, want Invoke", got.Type)
	}
	if got.TID != pdu.TID {
		t.Errorf("TID = %#x, want %#x", got.TID, pdu.TID)
	}
	if got.TCL != pdu.TCL {
		t.Errorf("TCL = %d, want %d", got.TCL, pdu.TCL)
	}
	if !got.UAck {
		t.Error("UAck = false, want true")
	}
	if string(got.UserData) != string(pdu.UserData) {
		t.Errorf("UserData = %q, want %q", got.UserData, pdu.UserData)
	}
}

func TestWTPPDUResultRoundTrip(t *testing.T) {
	t.Parallel()

	pdu := &wap.WTPPDU{Type: wap.PDUResult, GTR: true, TTR: true, TID: 7, ResultData: []byte{1, 2, 3}}
	buf := make([]byte, 32)
	n, err := wap.MarshalWTPPDU(pdu, buf)
	if err != nil {
		t.Fatalf("MarshalWTPPDU: %v", err)
	}

	var got wap.WTPPDU
	if err := wap.UnmarshalWTPPDU(buf[:n], &got); err != nil {
		t.Fatalf("UnmarshalWTPPDU: %v", err)
	}
	if string(got.ResultData) != string(pdu.ResultData) {
		t.Errorf("ResultData = %v, want %v", got.ResultData, pdu.ResultData)
	}
}

func TestWTPPDUAckRoundTrip(t *testing.T) {
	t.Parallel()

	pdu := &wap.WTPPDU{Type: wap.PDUAck, GTR: true, TTR: true, TID: 99, TIDVerify: true}
	buf := make([]byte, 16)
	n, err := wap.MarshalWTPPDU(pdu, buf)
	if err != nil {
		t.Fatalf("MarshalWTPPDU: %v", err)
	}

	var got wap.WTPPDU
	if err := wap.UnmarshalWTPPDU(buf[:n], &got); err != nil {
		t.Fatalf("UnmarshalWTPPDU: %v", err)
	}
	if !got.TIDVerify {
		t.Error("TIDVerify = false, want true")
	}
}

func TestWTPPDUAbortRoundTrip(t *testing.T) {
	t.Parallel()

	pdu := &wap.WTPPDU{
		Type: wap.PDUAbort, GTR: true, TTR: true, TID: 1,
		AbortType: wap.AbortTypeProvider, AbortReason: wap.AbortProtoErr,
	}
	buf := make([]byte, 16)
	n, err := wap.MarshalWTPPDU(pdu, buf)
	if err != nil {
		t.Fatalf("MarshalWTPPDU: %v", err)
	}

	var got wap.WTPPDU
	if err := wap.UnmarshalWTPPDU(buf[:n], &got); err != nil {
		t.Fatalf("UnmarshalWTPPDU: %v", err)
	}
	if got.AbortType != wap.AbortTypeProvider {
		t.Errorf("AbortType = %v, want AbortTypeProvider", got.AbortType)
	}
	if got.AbortReason != wap.AbortProtoErr {
		t.Errorf("AbortReason = %v, want AbortProtoErr", got.AbortReason)
	}
}

func TestWTPPDUTIDHighBitFlip(t *testing.T) {
	t.Parallel()

	// A receive-side TID with the high bit already clear should be sent
	// back with the high bit set on the wire, and vice versa.
	pdu := &wap.WTPPDU{Type: wap.PDUAck, GTR: true, TTR: true, TID: 0x0001}
	buf := make([]byte, 16)
	n, err := wap.MarshalWTPPDU(pdu, buf)
	if err != nil {
		t.Fatalf("MarshalWTPPDU: %v", err)
	}

	wireTID, ok := wap.TIDFromHeader(buf[:n])
	if !ok {
		t.Fatal("TIDFromHeader returned ok=false")
	}
	// TIDFromHeader XORs the wire bit off just like UnmarshalWTPPDU, so
	// it should recover the original receive-perspective TID.
	if wireTID != pdu.TID {
		t.Errorf("TIDFromHeader = %#x, want %#x", wireTID, pdu.TID)
	}
}

func TestUnmarshalWTPPDUTooShort(t *testing.T) {
	t.Parallel()

	var pdu wap.WTPPDU
	err := wap.UnmarshalWTPPDU([]byte{0x01}, &pdu)
	if !errors.Is(err, wap.ErrPDUTooShort) {
		t.Errorf("err = %v, want ErrPDUTooShort", err)
	}
}

func TestUnmarshalWTPPDURejectsSAR(t *testing.T) {
	t.Parallel()

	// GTR=0 (bit 2 of byte 0 clear) signals a segmented PDU.
	b0 := byte(wap.PDUInvoke) << 3
	buf := []byte{b0, 0x00, 0x01, 0x00}
	var pdu wap.WTPPDU
	err := wap.UnmarshalWTPPDU(buf, &pdu)
	if !errors.Is(err, wap.ErrPDUSARRequested) {
		t.Errorf("err = %v, want ErrPDUSARRequested", err)
	}
}

func TestUnmarshalWTPPDURejectsBadTCL(t *testing.T) {
	t.Parallel()

	b0 := byte(wap.PDUInvoke)<<3 | (1 << 2) | (1 << 1)
	invokeByte := byte(0x03) // TCL = 3, out of range
	buf := []byte{b0, 0x00, 0x01, invokeByte}
	var pdu wap.WTPPDU
	err := wap.UnmarshalWTPPDU(buf, &pdu)
	if !errors.Is(err, wap.ErrPDUBadTCL) {
		t.Errorf("err = %v, want ErrPDUBadTCL", err)
	}
}

func TestUnmarshalWTPPDURejectsUnknownType(t *testing.T) {
	t.Parallel()

	b0 := byte(0x0F)<<3 | (1 << 2) | (1 << 1)
	buf := []byte{b0, 0x00, 0x01}
	var pdu wap.WTPPDU
	err := wap.UnmarshalWTPPDU(buf, &pdu)
	if !errors.Is(err, wap.ErrPDUUnknownType) {
		t.Errorf("err = %v, want ErrPDUUnknownType", err)
	}
}

func TestFlipRIDSetsBit(t *testing.T) {
	t.Parallel()

	packed := []byte{0x08, 0x00, 0x00}
	wap.FlipRID(packed)
	if packed[0]&1 == 0 {
		t.Error("FlipRID did not set the RID bit")
	}

	wap.FlipRID(nil) // must not panic
}
