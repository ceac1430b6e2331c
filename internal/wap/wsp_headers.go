package wap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// -------------------------------------------------------------------------
// WSP Header Codec — spec.md Section 4.9
// -------------------------------------------------------------------------
//
// No single teacher file matches a textual/binary header codec shape
// (BFD has no such layer); grounded on the teacher's codec discipline
// in internal/bfd/packet.go -- fixed small per-field decode functions,
// a cursor type carrying position and validity, sentinel errors for
// every rejection -- applied here to the WSP well-known header set.
// ParseContext/OctBuf from octstr.go are that cursor.

// Header is one decoded textual header: a canonical field name plus its
// value in string form. Multi-valued fields (Accept, Accept-Charset,
// ...) are represented as repeated Header entries with the same Name,
// matching the wire form where each binary-encoded value is its own
// field occurrence.
type Header struct {
	Name  string
	Value string
}

// Capability is one decoded capability negotiation record (spec.md
// Section 4.7): either a well-known numeric identifier or a literal
// name, plus its raw value bytes (interpretation depends on which
// capability it is).
type Capability struct {
	ID    int // -1 if Name is a literal
	Name  string
	Value []byte
}

// Well-known capability identifiers (spec.md Section 4.7).
const (
	CapClientSDUSize   = 0x00
	CapServerSDUSize   = 0x01
	CapProtocolOptions = 0x02
	CapMethodMOR       = 0x03
	CapPushMOR         = 0x04
	CapExtendedMethods = 0x05
	CapHeaderCodePages = 0x06
	CapAliases         = 0x07
)

// ErrHeaderTruncated signals a header field that ends before its value
// shape is fully readable.
var ErrHeaderTruncated = errors.New("wap: header field truncated")

// wellKnownField is one entry of a WSP header code-page table.
type wellKnownField struct {
	name   string
	decode func(ctx *ParseContext) (string, error)
}

// defaultCodePageFields is code-page 1 (the default page), built from
// the well-known field list of spec.md Section 4.9. Index is the
// 7-bit well-known field number (header byte with the high bit
// masked off).
var defaultCodePageFields = map[byte]wellKnownField{
	0x00: {"Accept", decodeAcceptLike},
	0x01: {"Accept-Charset", decodeAcceptLike},
	0x02: {"Accept-Encoding", decodeAcceptLike},
	0x03: {"Accept-Language", decodeAcceptLike},
	0x04: {"Accept-Ranges", decodeToken},
	0x05: {"Age", decodeLongInt},
	0x06: {"Allow", decodeToken},
	0x07: {"Authorization", decodeCredentials},
	0x08: {"Cache-Control", decodeCacheControl},
	0x09: {"Connection", decodeToken},
	0x0A: {"Content-Base", decodeString},
	0x0B: {"Content-Encoding", decodeToken},
	0x0C: {"Content-Language", decodeToken},
	0x0D: {"Content-Length", decodeLongInt},
	0x0E: {"Content-Location", decodeString},
	0x0F: {"Content-MD5", decodeOpaqueHex},
	0x10: {"Content-Range", decodeContentRange},
	0x11: {"Content-Type", decodeContentType},
	0x12: {"Date", decodeDate},
	0x13: {"Etag", decodeString},
	0x14: {"Expires", decodeDate},
	0x15: {"From", decodeString},
	0x16: {"Host", decodeString},
	0x17: {"If-Modified-Since", decodeDate},
	0x18: {"If-Match", decodeString},
	0x19: {"If-None-Match", decodeString},
	0x1A: {"If-Range", decodeString},
	0x1B: {"If-Unmodified-Since", decodeDate},
	0x1C: {"Location", decodeString},
	0x1D: {"Last-Modified", decodeDate},
	0x1E: {"Max-Forwards", decodeLongInt},
	0x1F: {"Pragma", decodeToken},
	0x20: {"Proxy-Authenticate", decodeCredentials},
	0x21: {"Proxy-Authorization", decodeCredentials},
	0x22: {"Public", decodeToken},
	0x23: {"Range", decodeString},
	0x24: {"Referer", decodeString},
	0x25: {"Retry-After", decodeDate},
	0x26: {"Server", decodeString},
	0x27: {"Transfer-Encoding", decodeToken},
	0x28: {"Upgrade", decodeString},
	0x29: {"User-Agent", decodeString},
	0x2A: {"Vary", decodeToken},
	0x2B: {"Via", decodeString},
	0x2C: {"Warning", decodeString},
	0x2D: {"WWW-Authenticate", decodeCredentials},
	0x2E: {"Content-Disposition", decodeString},
	0x2F: {"X-WAP.TOD", decodeDate},
}

// -------------------------------------------------------------------------
// Per-shape value decoders (spec.md Section 4.9 table)
// -------------------------------------------------------------------------

// readValue reads one field value in any of the four physical shapes
// the codec supports (spec.md Section 4.9) and returns its raw decoded
// form: a string for text/quoted, the integer rendered as a decimal
// string for short/long integer, or the length-prefixed bytes, returned
// undecoded as raw, for structured fields.
func readValue(ctx *ParseContext) (text string, raw []byte, err error) {
	b, err := ctx.PeekByte()
	if err != nil {
		return "", nil, err
	}

	switch {
	case b == 127:
		_, _ = ctx.ReadByte()
		s, err := ctx.ReadCString()
		if err != nil {
			return "", nil, err
		}
		return s, nil, nil

	case b&0x80 != 0:
		_, _ = ctx.ReadByte()
		return strconv.Itoa(int(b & 0x7F)), nil, nil

	case b >= 32 && b <= 126:
		s, err := ctx.ReadCString()
		if err != nil {
			return "", nil, err
		}
		return s, nil, nil

	case b < 31:
		_, _ = ctx.ReadByte()
		data, err := ctx.ReadBytes(int(b))
		if err != nil {
			return "", nil, err
		}
		return "", data, nil

	case b == 31:
		_, _ = ctx.ReadByte()
		n, err := ctx.ReadUintvar()
		if err != nil {
			return "", nil, err
		}
		data, err := ctx.ReadBytes(int(n))
		if err != nil {
			return "", nil, err
		}
		return "", data, nil

	default:
		return "", nil, fmt.Errorf("wap: header value shape 0x%02x: %w", b, ErrHeaderTruncated)
	}
}

func decodeString(ctx *ParseContext) (string, error) {
	text, raw, err := readValue(ctx)
	if err != nil {
		return "", err
	}
	if raw != nil {
		return string(raw), nil
	}
	return text, nil
}

func decodeToken(ctx *ParseContext) (string, error) { return decodeString(ctx) }

// decodeLongInt decodes a short-integer or a 1..4-byte big-endian
// long-integer form, returning its decimal string form.
func decodeLongInt(ctx *ParseContext) (string, error) {
	b, err := ctx.PeekByte()
	if err != nil {
		return "", err
	}
	if b&0x80 != 0 {
		_, _ = ctx.ReadByte()
		return strconv.Itoa(int(b & 0x7F)), nil
	}
	_, _ = ctx.ReadByte() // length octet
	v, err := ctx.ReadUintBigEndian(int(b))
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(v), 10), nil
}

// decodeDate decodes the length-prefixed big-endian seconds-since-epoch
// form used by Date/Expires/If-Modified-Since/etc (spec.md Section
// 4.9's "Canonical value forms"). WSP allows up to 30 octets for a date
// value; every octet read is shifted big-endian into a uint64, so an
// encoding wider than 8 octets keeps only its low 64 bits rather than
// being rejected outright.
func decodeDate(ctx *ParseContext) (string, error) {
	n, err := ctx.ReadByte()
	if err != nil {
		return "", err
	}
	raw, err := ctx.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	var v uint64
	for _, c := range raw {
		v = (v << 8) | uint64(c)
	}
	return strconv.FormatUint(v, 10), nil
}

// decodeOpaqueHex decodes a length-prefixed opaque blob (Content-MD5)
// and renders it as lowercase hex for textual-header representation.
func decodeOpaqueHex(ctx *ParseContext) (string, error) {
	_, raw, err := readValue(ctx)
	if err != nil {
		return "", err
	}
	const hexDigits = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(raw) * 2)
	for _, c := range raw {
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0F])
	}
	return sb.String(), nil
}

// decodeAcceptLike decodes an Accept/Accept-Charset/Accept-Language/
// Accept-Encoding value, folding a trailing q-value parameter into
// ";q=" textual form per spec.md Section 4.9's q-value canonicalisation
// (1..100 -> 0.00..0.99, 101..1000 -> 0.000..0.900).
func decodeAcceptLike(ctx *ParseContext) (string, error) {
	s, err := decodeString(ctx)
	if err != nil {
		return "", err
	}
	if ctx.AtLimit() {
		return s, nil
	}

	b, err := ctx.PeekByte()
	if err != nil || !(b&0x80 != 0 || b < 31) {
		// No well-known-integer-shaped byte follows: the remainder
		// belongs to the next field, not a q-value parameter of this
		// one.
		return s, nil
	}

	q, err := decodeQValue(ctx)
	if err != nil {
		return s, nil //nolint:nilerr // trailing q-value is optional; absence is not an error
	}
	return s + ";q=" + q, nil
}

func decodeQValue(ctx *ParseContext) (string, error) {
	v, err := decodeLongInt(ctx)
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return "", err
	}
	return formatQValue(n), nil
}

// formatQValue renders the WSP integer q-value encoding as a decimal
// string (spec.md Section 4.9): 1..100 => 0.00..0.99 in hundredths,
// 101..1000 => 0.000..0.900 in thousandths offset by 100.
func formatQValue(n int) string {
	switch {
	case n >= 1 && n <= 100:
		return fmt.Sprintf("0.%02d", n-1)
	case n >= 101 && n <= 1000:
		return fmt.Sprintf("0.%03d", n-100)
	default:
		return "0"
	}
}

// encodeQValue is the inverse of formatQValue for the subset of
// precision the WSP encoding can represent (two decimal digits).
func encodeQValue(q float64) byte {
	if q < 0 {
		q = 0
	}
	if q > 0.99 {
		q = 0.99
	}
	return byte(q*100+0.5) + 1
}

func decodeCredentials(ctx *ParseContext) (string, error) { return decodeString(ctx) }

func decodeCacheControl(ctx *ParseContext) (string, error) { return decodeToken(ctx) }

func decodeContentType(ctx *ParseContext) (string, error) { return decodeString(ctx) }

func decodeContentRange(ctx *ParseContext) (string, error) {
	_, raw, err := readValue(ctx)
	if err != nil {
		return "", err
	}
	inner := NewParseContext(raw)
	first, err := inner.ReadUintvar()
	if err != nil {
		return "", err
	}
	total, err := inner.ReadUintvar()
	if err != nil {
		return strconv.FormatUint(uint64(first), 10) + "-/*", nil //nolint:nilerr // total is optional
	}
	return fmt.Sprintf("%d-/%d", first, total), nil
}

// -------------------------------------------------------------------------
// Header block decode / encode
// -------------------------------------------------------------------------

// DecodeHeaders decodes a binary WSP header block into textual Header
// records, tracking code-page switches (spec.md Section 4.9
// "Code-page switching": byte 0x7F followed by a page id). Only page 1
// (the default) has a well-known table in this gateway; switching to
// any other page makes subsequent well-known field numbers undecodable
// and they are dropped with a warning, matching "unknown well-known
// field numbers produce a warning and the field is dropped".
func DecodeHeaders(buf []byte) ([]Header, []string, error) {
	ctx := NewParseContext(buf)
	var headers []Header
	var warnings []string
	page := byte(1)

	for ctx.Remaining() > 0 {
		b, err := ctx.PeekByte()
		if err != nil {
			return headers, warnings, err
		}

		if b == 0x7F {
			_, _ = ctx.ReadByte()
			p, err := ctx.ReadByte()
			if err != nil {
				return headers, warnings, err
			}
			page = p
			continue
		}

		if b&0x80 != 0 {
			_, _ = ctx.ReadByte()
			fieldNum := b & 0x7F
			if page != 1 {
				warnings = append(warnings, fmt.Sprintf("wsp header: unknown field 0x%02x on code-page %d", fieldNum, page))
				skipUnknownValue(ctx)
				continue
			}
			wf, ok := defaultCodePageFields[fieldNum]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("wsp header: unknown well-known field 0x%02x", fieldNum))
				skipUnknownValue(ctx)
				continue
			}
			v, err := wf.decode(ctx)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("wsp header: %s: %v", wf.name, err))
				continue
			}
			headers = append(headers, Header{Name: wf.name, Value: v})
			continue
		}

		// Literal (application-defined) field name: a null-terminated
		// string, per spec.md Section 4.9 "unknown names are
		// null-terminated literal strings".
		name, err := ctx.ReadCString()
		if err != nil {
			return headers, warnings, err
		}
		v, err := decodeString(ctx)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("wsp header: %s: %v", name, err))
			continue
		}
		headers = append(headers, Header{Name: name, Value: v})
	}

	return headers, warnings, nil
}

// skipUnknownValue consumes one value's worth of octets without
// interpreting it, used to resynchronize after a field this gateway
// cannot decode (spec.md Section 4.9: dropped, not fatal).
func skipUnknownValue(ctx *ParseContext) {
	_, _, _ = readValue(ctx)
}

// reverseFieldIndex maps a well-known field name back to its code-page
// 1 byte, built once from defaultCodePageFields for EncodeHeaders.
var reverseFieldIndex = buildReverseFieldIndex()

func buildReverseFieldIndex() map[string]byte {
	m := make(map[string]byte, len(defaultCodePageFields))
	for code, wf := range defaultCodePageFields {
		m[wf.name] = code
	}
	return m
}

// EncodeHeaders packs textual Header records back into a binary WSP
// header block. Fields recognized in the default code-page table are
// emitted as a well-known short-integer name byte; everything else is
// emitted as a literal null-terminated name. Values are always emitted
// in the simplest applicable shape (text-string, or short/long integer
// for a field this gateway knows is numeric) -- this keeps
// unpack(pack(h)) equal to h modulo the canonicalisation spec.md
// Section 4.9 allows (case, whitespace, q-value precision), which is
// the only round-trip law this codec promises.
func EncodeHeaders(headers []Header) []byte {
	ob := NewOctBuf(64)
	for _, h := range headers {
		if code, ok := reverseFieldIndex[h.Name]; ok {
			ob.WriteByte(code | 0x80)
		} else {
			ob.WriteCString(h.Name)
		}
		encodeHeaderValue(ob, h.Name, h.Value)
	}
	return ob.Bytes()
}

// numericHeaders lists the fields this gateway always re-encodes in
// integer form, mirroring decodeLongInt/decodeDate on the decode side.
var numericHeaders = map[string]bool{
	"Content-Length": true, "Age": true, "Max-Forwards": true,
}

var dateHeaders = map[string]bool{
	"Date": true, "Expires": true, "If-Modified-Since": true,
	"If-Unmodified-Since": true, "Last-Modified": true, "Retry-After": true,
	"X-WAP.TOD": true,
}

func encodeHeaderValue(ob *OctBuf, name, value string) {
	switch {
	case numericHeaders[name]:
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			ob.WriteCString(value)
			return
		}
		encodeLongInt(ob, n)

	case dateHeaders[name]:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			ob.WriteCString(value)
			return
		}
		encodeDate(ob, n)

	default:
		ob.WriteCString(value)
	}
}

func encodeLongInt(ob *OctBuf, v uint64) {
	if v <= 0x7F {
		ob.WriteByte(byte(v) | 0x80)
		return
	}
	var tmp [4]byte
	n := 0
	for shift := 24; shift >= 0; shift -= 8 {
		b := byte(v >> uint(shift))
		if n == 0 && b == 0 && shift != 0 {
			continue
		}
		tmp[n] = b
		n++
	}
	if n == 0 {
		n = 1
	}
	ob.WriteByte(byte(n))
	ob.WriteBytes(tmp[:n])
}

func encodeDate(ob *OctBuf, v uint64) {
	var tmp [8]byte
	n := 0
	started := false
	for shift := 56; shift >= 0; shift -= 8 {
		b := byte(v >> uint(shift))
		if !started && b == 0 && shift != 0 {
			continue
		}
		started = true
		tmp[n] = b
		n++
	}
	if n == 0 {
		n = 1
	}
	ob.WriteByte(byte(n))
	ob.WriteBytes(tmp[:n])
}

// -------------------------------------------------------------------------
// Capability negotiation codec — spec.md Section 4.7
// -------------------------------------------------------------------------

// DecodeCapabilities decodes the varint-length-prefixed capability
// records the peer sends at Connect time (spec.md Section 4.7).
func DecodeCapabilities(buf []byte) ([]Capability, error) {
	ctx := NewParseContext(buf)
	var caps []Capability

	for ctx.Remaining() > 0 {
		length, err := ctx.ReadUintvar()
		if err != nil {
			return caps, err
		}
		if err := ctx.PushLimit(int(length)); err != nil {
			return caps, err
		}

		idByte, err := ctx.PeekByte()
		if err != nil {
			ctx.PopLimit()
			return caps, err
		}

		var capa Capability
		if idByte&0x80 != 0 {
			_, _ = ctx.ReadByte()
			capa.ID = int(idByte & 0x7F)
		} else {
			name, err := ctx.ReadCString()
			if err != nil {
				ctx.PopLimit()
				return caps, err
			}
			capa.ID = -1
			capa.Name = name
		}
		capa.Value, _ = ctx.ReadBytes(ctx.Remaining())
		ctx.PopLimit()
		caps = append(caps, capa)
	}

	return caps, nil
}

// EncodeCapabilities packs capability records back to wire form.
func EncodeCapabilities(caps []Capability) []byte {
	ob := NewOctBuf(32)
	for _, c := range caps {
		inner := NewOctBuf(len(c.Value) + 4)
		if c.ID >= 0 {
			inner.WriteByte(byte(c.ID) | 0x80)
		} else {
			inner.WriteCString(c.Name)
		}
		inner.WriteBytes(c.Value)
		ob.WriteUintvar(uint32(inner.Len()))
		ob.WriteBytes(inner.Bytes())
	}
	return ob.Bytes()
}

// SanitizeCapabilities implements spec.md Section 4.7's reply
// processing: (a) forbidden features (header code pages) are removed
// from the application's reply; (b) any reply identical to the peer's
// proposal is dropped; (c) each known capability the reply leaves
// unanswered is filled in with the hardcoded default when the peer did
// not propose it, with the peer's value when that differs from the
// default, and not at all when the proposal equals the default.
// Unknown proposals get an empty-value refusal record. A reply that
// merely equals a default is kept.
func SanitizeCapabilities(requested, reply []Capability) []Capability {
	forbidden := map[int]bool{
		CapExtendedMethods: false, // extended methods: no gateway-side restriction
		CapHeaderCodePages: true,
	}

	reqByID := make(map[int]Capability, len(requested))
	for _, c := range requested {
		if c.ID >= 0 {
			reqByID[c.ID] = c
		}
	}

	out := make([]Capability, 0, len(reply))
	seen := make(map[int]bool, len(reply))
	for _, c := range reply {
		if c.ID >= 0 && forbidden[c.ID] {
			continue
		}
		if c.ID >= 0 {
			seen[c.ID] = true
			if req, ok := reqByID[c.ID]; ok && bytesEqual(req.Value, c.Value) {
				continue
			}
		}
		out = append(out, c)
	}

	out = appendCapabilityDefaults(out, reqByID, seen)
	return out
}

// knownCapabilityIDs are the well-known capabilities this gateway has
// an explicit default or echo policy for (spec.md Section 4.7 (b)).
// Anything else the peer proposed and the application left unanswered
// gets a refusal record, not silent omission.
var knownCapabilityIDs = map[int]bool{
	CapClientSDUSize:   true,
	CapServerSDUSize:   true,
	CapProtocolOptions: true,
	CapMethodMOR:       true,
	CapPushMOR:         true,
}

func appendCapabilityDefaults(out []Capability, reqByID map[int]Capability, seen map[int]bool) []Capability {
	addDefault := func(id int, value []byte) {
		if seen[id] {
			return
		}
		req, requested := reqByID[id]
		if !requested {
			out = append(out, Capability{ID: id, Value: value})
			return
		}
		if bytesEqual(req.Value, value) {
			return
		}
		// The peer proposed something other than our default: honour
		// what it asked for rather than overwriting it with the
		// hardcoded default (spec.md Section 8 Scenario 6).
		out = append(out, Capability{ID: id, Value: req.Value})
	}

	addDefault(CapClientSDUSize, nil)
	addDefault(CapServerSDUSize, nil) // 0 => unlimited, represented as empty/zero value
	addDefault(CapProtocolOptions, []byte{0})
	addDefault(CapMethodMOR, []byte{255})
	addDefault(CapPushMOR, []byte{1})

	for id, req := range reqByID {
		if seen[id] || knownCapabilityIDs[id] {
			continue
		}
		// A capability this gateway does not implement at all: refuse
		// it explicitly with a same-ID, empty-value record rather than
		// dropping it, so the peer does not assume it was granted.
		out = append(out, Capability{ID: req.ID, Name: req.Name, Value: nil})
	}

	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
