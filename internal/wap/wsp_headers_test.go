package wap_test

import (
	"testing"

	"github.com/pruiz/wapbox/internal/wap"
)

func findHeader(headers []wap.Header, name string) (wap.Header, bool) {
	for _, h := range headers {
		if h.Name == name {
			return h, true
		}
	}
	return wap.Header{}, false
}

func TestDecodeHeadersContentLengthShortInteger(t *testing.T) {
	t.Parallel()

	buf := []byte{0x8D, 0xAA} // Content-Length (0x0D), short-integer 42
	headers, warnings, err := wap.DecodeHeaders(buf)
	if err != nil {
		t.Fatalf("DecodeHeaders: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	h, ok := findHeader(headers, "Content-Length")
	if !ok || h.Value != "42" {
		t.Errorf("Content-Length = %v, ok=%v, want 42, true", h, ok)
	}
}

func TestDecodeHeadersContentTypeTextString(t *testing.T) {
	t.Parallel()

	buf := append([]byte{0x91}, []byte("text/plain\x00")...)
	headers, _, err := wap.DecodeHeaders(buf)
	if err != nil {
		t.Fatalf("DecodeHeaders: %v", err)
	}
	h, ok := findHeader(headers, "Content-Type")
	if !ok || h.Value != "text/plain" {
		t.Errorf("Content-Type = %v, ok=%v, want text/plain, true", h, ok)
	}
}

func TestDecodeHeadersDateLongInteger(t *testing.T) {
	t.Parallel()

	buf := []byte{0x92, 0x02, 0x03, 0xE8} // Date (0x12), 2-byte big-endian 0x03E8 = 1000
	headers, _, err := wap.DecodeHeaders(buf)
	if err != nil {
		t.Fatalf("DecodeHeaders: %v", err)
	}
	h, ok := findHeader(headers, "Date")
	if !ok || h.Value != "1000" {
		t.Errorf("Date = %v, ok=%v, want 1000, true", h, ok)
	}
}

func TestDecodeHeadersLiteralFieldName(t *testing.T) {
	t.Parallel()

	buf := append([]byte("X-Custom\x00"), []byte("hello\x00")...)
	headers, _, err := wap.DecodeHeaders(buf)
	if err != nil {
		t.Fatalf("DecodeHeaders: %v", err)
	}
	h, ok := findHeader(headers, "X-Custom")
	if !ok || h.Value != "hello" {
		t.Errorf("X-Custom = %v, ok=%v, want hello, true", h, ok)
	}
}

func TestDecodeHeadersUnknownWellKnownFieldWarnsAndDrops(t *testing.T) {
	t.Parallel()

	buf := []byte{0xBF, 0x81} // field number 0x3F, not in the default table
	headers, warnings, err := wap.DecodeHeaders(buf)
	if err != nil {
		t.Fatalf("DecodeHeaders: %v", err)
	}
	if len(headers) != 0 {
		t.Errorf("headers = %v, want none (unknown field dropped)", headers)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
}

func TestEncodeHeadersContentLengthRoundTrip(t *testing.T) {
	t.Parallel()

	in := []wap.Header{{Name: "Content-Length", Value: "42"}}
	enc := wap.EncodeHeaders(in)
	out, _, err := wap.DecodeHeaders(enc)
	if err != nil {
		t.Fatalf("DecodeHeaders(EncodeHeaders(...)): %v", err)
	}
	h, ok := findHeader(out, "Content-Length")
	if !ok || h.Value != "42" {
		t.Errorf("round trip = %v, ok=%v, want 42, true", h, ok)
	}
}

func TestEncodeHeadersLiteralFieldRoundTrip(t *testing.T) {
	t.Parallel()

	in := []wap.Header{{Name: "X-Wapbox-Test", Value: "value1"}}
	enc := wap.EncodeHeaders(in)
	out, _, err := wap.DecodeHeaders(enc)
	if err != nil {
		t.Fatalf("DecodeHeaders(EncodeHeaders(...)): %v", err)
	}
	h, ok := findHeader(out, "X-Wapbox-Test")
	if !ok || h.Value != "value1" {
		t.Errorf("round trip = %v, ok=%v, want value1, true", h, ok)
	}
}

func TestCapabilitiesRoundTripWellKnown(t *testing.T) {
	t.Parallel()

	in := []wap.Capability{{ID: wap.CapMethodMOR, Value: []byte{5}}}
	enc := wap.EncodeCapabilities(in)
	out, err := wap.DecodeCapabilities(enc)
	if err != nil {
		t.Fatalf("DecodeCapabilities: %v", err)
	}
	if len(out) != 1 || out[0].ID != wap.CapMethodMOR || len(out[0].Value) != 1 || out[0].Value[0] != 5 {
		t.Errorf("DecodeCapabilities() = %+v, want [{ID:%d Value:[5]}]", out, wap.CapMethodMOR)
	}
}

func TestCapabilitiesRoundTripLiteral(t *testing.T) {
	t.Parallel()

	in := []wap.Capability{{ID: -1, Name: "x-wapbox-ext", Value: []byte{1, 2}}}
	enc := wap.EncodeCapabilities(in)
	out, err := wap.DecodeCapabilities(enc)
	if err != nil {
		t.Fatalf("DecodeCapabilities: %v", err)
	}
	if len(out) != 1 || out[0].Name != "x-wapbox-ext" || len(out[0].Value) != 2 {
		t.Errorf("DecodeCapabilities() = %+v, want literal x-wapbox-ext with 2-byte value", out)
	}
}

func TestSanitizeCapabilitiesStripsHeaderCodePages(t *testing.T) {
	t.Parallel()

	requested := []wap.Capability{{ID: wap.CapClientSDUSize, Value: []byte{0x04, 0x00}}}
	reply := []wap.Capability{{ID: wap.CapHeaderCodePages, Value: []byte{1}}}

	out := wap.SanitizeCapabilities(requested, reply)
	for _, c := range out {
		if c.ID == wap.CapHeaderCodePages {
			t.Errorf("SanitizeCapabilities() kept forbidden CapHeaderCodePages: %+v", out)
		}
	}
}

func TestSanitizeCapabilitiesStripsIdenticalToRequest(t *testing.T) {
	t.Parallel()

	requested := []wap.Capability{{ID: wap.CapPushMOR, Value: []byte{1}}}
	reply := []wap.Capability{{ID: wap.CapPushMOR, Value: []byte{1}}}

	out := wap.SanitizeCapabilities(requested, reply)
	for _, c := range out {
		if c.ID == wap.CapPushMOR {
			t.Errorf("SanitizeCapabilities() kept a reply identical to the request: %+v", out)
		}
	}
}

func TestSanitizeCapabilitiesEchoesPushMORFromRequestWhenUnanswered(t *testing.T) {
	t.Parallel()

	requested := []wap.Capability{{ID: wap.CapPushMOR, Value: []byte{7}}}
	var reply []wap.Capability

	out := wap.SanitizeCapabilities(requested, reply)
	found := false
	for _, c := range out {
		if c.ID == wap.CapPushMOR && len(c.Value) == 1 && c.Value[0] == 7 {
			found = true
		}
	}
	if !found {
		t.Errorf("SanitizeCapabilities() = %+v, want CapPushMOR echoed from request", out)
	}
}

func capByID(caps []wap.Capability, id int) (wap.Capability, bool) {
	for _, c := range caps {
		if c.ID == id {
			return c, true
		}
	}
	return wap.Capability{}, false
}

// TestSanitizeCapabilitiesScenario6EchoesNonDefaultProposals exercises
// the negotiation scenario where the peer proposes values other than
// this gateway's hardcoded defaults and the application answers with an
// empty reply: every known capability must echo what the peer asked
// for, and the one capability this gateway doesn't implement at all
// must come back as an explicit same-ID refusal rather than be dropped.
func TestSanitizeCapabilitiesScenario6EchoesNonDefaultProposals(t *testing.T) {
	t.Parallel()

	requested := []wap.Capability{
		{ID: wap.CapMethodMOR, Value: []byte{4}},
		{ID: wap.CapClientSDUSize, Value: []byte{0x08, 0x00}}, // 2048
		{ID: 0x7A, Value: []byte{0x01}},
	}
	out := wap.SanitizeCapabilities(requested, nil)

	methodMOR, ok := capByID(out, wap.CapMethodMOR)
	if !ok || len(methodMOR.Value) != 1 || methodMOR.Value[0] != 4 {
		t.Errorf("method-MOR = %+v, ok=%v, want echoed value 4", methodMOR, ok)
	}

	sduSize, ok := capByID(out, wap.CapClientSDUSize)
	if !ok || len(sduSize.Value) != 2 || sduSize.Value[0] != 0x08 || sduSize.Value[1] != 0x00 {
		t.Errorf("client-SDU-size = %+v, ok=%v, want echoed value 2048", sduSize, ok)
	}

	unknown, ok := capByID(out, 0x7A)
	if !ok || len(unknown.Value) != 0 {
		t.Errorf("capability 0x7A = %+v, ok=%v, want a same-ID empty-value refusal", unknown, ok)
	}
}
