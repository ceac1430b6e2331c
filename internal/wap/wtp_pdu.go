package wap

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// -------------------------------------------------------------------------
// WTP PDU Codec — spec.md Section 4.4
// -------------------------------------------------------------------------
//
// Grounded on internal/bfd/packet.go's marshal/unmarshal discipline:
// fixed-offset field packing in Marshal*, a decodeHeader/validateHeader
// split in Unmarshal*, sentinel errors for every rejection reason.

// PDUType identifies the WTP PDU type carried in the 3-octet common
// header (spec.md Section 4.4).
type PDUType uint8

const (
	PDUInvoke           PDUType = 1
	PDUResult           PDUType = 2
	PDUAck              PDUType = 3
	PDUAbort            PDUType = 4
	PDUSegmentedInvoke  PDUType = 5
	PDUSegmentedResult  PDUType = 6
	PDUNegativeAck      PDUType = 7
)

// String renders the PDU type name for logging.
func (t PDUType) String() string {
	switch t {
	case PDUInvoke:
		return "Invoke"
	case PDUResult:
		return "Result"
	case PDUAck:
		return "Ack"
	case PDUAbort:
		return "Abort"
	case PDUSegmentedInvoke:
		return "SegmentedInvoke"
	case PDUSegmentedResult:
		return "SegmentedResult"
	case PDUNegativeAck:
		return "NegativeAck"
	default:
		return unknownStr
	}
}

// AbortType distinguishes a provider-originated from a user-originated
// Abort PDU (spec.md Section 4.4).
type AbortType uint8

const (
	AbortTypeProvider AbortType = 0
	AbortTypeUser     AbortType = 1
)

// wtpHeaderSize is the size in octets of the common header: one octet of
// CON | PDU-type | GTR | TTR | RID followed by the 2-octet TID (spec.md
// Section 4.4).
const wtpHeaderSize = 3

// tidHighBit is the bit toggled between peers when forming the
// send-side TID from the receive-side TID (spec.md Section 4.4:
// "SendTID = RcvTID XOR 0x8000").
const tidHighBit = 0x8000

// Sentinel errors for WTP PDU decoding.
var (
	ErrPDUTooShort     = errors.New("wap: wtp pdu shorter than header")
	ErrPDUBadVersion   = errors.New("wap: wtp pdu version must be 0")
	ErrPDUUnknownType  = errors.New("wap: wtp pdu unknown type")
	ErrPDUSARRequested = errors.New("wap: wtp pdu requests unsupported segmentation")
	ErrPDUBadTCL       = errors.New("wap: wtp invoke tcl out of range")
	ErrPDUBufTooSmall  = errors.New("wap: buffer too small to marshal wtp pdu")
)

// WTPPDU is the decoded form of any WTP wire PDU. Not every field
// applies to every PDU type; Type selects which fields are meaningful,
// mirroring the teacher's single ControlPacket struct covering every
// BFD packet shape.
type WTPPDU struct {
	Type PDUType
	GTR  bool // Group Trailer -- part of the SAR indication; always true here (no SAR)
	TTR  bool // Transmission Trailer -- ditto
	RID  bool // Retransmission Indicator

	TID uint16 // receive-perspective TID (high bit already normalized off)

	// Invoke-only fields.
	InvokeVersion uint8 // must be 0
	TIDNew        bool
	UAck          bool
	TCL           uint8 // 0, 1, or 2
	UserData      []byte

	// Result-only fields.
	ResultData []byte

	// Ack-only fields.
	TIDVerify bool

	// Abort-only fields.
	AbortType   AbortType
	AbortReason AbortReason

	// TPI (transport information items) trailer, present iff the high
	// CON bit of byte 0 is set. Stored as raw undecoded octets; no TPI
	// semantics are defined by this gateway beyond round-tripping them.
	TPI []byte
}

// conBit is the high bit of header byte 0 flagging a TPI trailer.
const conBit = 0x80

// pduTypeShift/pduTypeMask extract the 4-bit PDU type from header byte 0.
const (
	pduTypeShift = 3
	pduTypeMask  = 0x0F
)

// MarshalWTPPDU packs pdu into buf (which must be large enough) and
// returns the number of bytes written.
func MarshalWTPPDU(pdu *WTPPDU, buf []byte) (int, error) {
	ob := NewOctBuf(len(buf))

	var b0 byte
	b0 |= byte(pdu.Type) << pduTypeShift
	if pdu.GTR {
		b0 |= 1 << 2
	}
	if pdu.TTR {
		b0 |= 1 << 1
	}
	if pdu.RID {
		b0 |= 1
	}
	ob.WriteByte(b0)

	sendTID := pdu.TID ^ tidHighBit
	ob.WriteUint16(sendTID)

	switch pdu.Type {
	case PDUInvoke:
		var b3 byte
		b3 |= (pdu.InvokeVersion & 0x03) << 6
		if pdu.TIDNew {
			b3 |= 1 << 5
		}
		if pdu.UAck {
			b3 |= 1 << 4
		}
		b3 |= pdu.TCL & 0x03
		ob.WriteByte(b3)
		ob.WriteBytes(pdu.UserData)

	case PDUResult:
		ob.WriteBytes(pdu.ResultData)

	case PDUAck:
		var b3 byte
		if pdu.TIDVerify {
			b3 |= 1 << 7
		}
		ob.WriteByte(b3)

	case PDUAbort:
		ob.WriteByte(byte(pdu.AbortType) & 0x07)
		ob.WriteByte(byte(pdu.AbortReason))

	case PDUSegmentedInvoke, PDUSegmentedResult, PDUNegativeAck:
		// Not implemented: SAR and negative-ack are out of scope
		// (spec.md Section 1 Non-goals). Encoding these types is
		// never reached by the FSMs in this gateway.
		return 0, fmt.Errorf("marshal wtp pdu: %w", ErrPDUSARRequested)

	default:
		return 0, fmt.Errorf("marshal wtp pdu: %w", ErrPDUUnknownType)
	}

	if len(pdu.TPI) > 0 {
		ob.buf[0] |= conBit
		ob.WriteBytes(pdu.TPI)
	}

	if len(buf) < ob.Len() {
		return 0, fmt.Errorf("marshal wtp pdu: need %d bytes, got %d: %w",
			ob.Len(), len(buf), ErrPDUBufTooSmall)
	}
	n := copy(buf, ob.Bytes())
	return n, nil
}

// UnmarshalWTPPDU decodes a WTP wire PDU from buf into pdu.
//
// Validation performed per spec.md Section 4.4: version must be 0; SAR
// flags (GTR=0 or TTR=0) are rejected with ErrPDUSARRequested (caller
// replies Abort(NOTIMPLEMENTEDSAR)); TCL > 2 is rejected with
// ErrPDUBadTCL (caller replies Abort(PROTOERR)); unknown PDU type is
// rejected with ErrPDUUnknownType (caller replies Abort(PROTOERR)).
func UnmarshalWTPPDU(buf []byte, pdu *WTPPDU) error {
	if len(buf) < wtpHeaderSize {
		return ErrPDUTooShort
	}

	b0 := buf[0]
	hasTPI := b0&conBit != 0
	pdu.Type = PDUType((b0 >> pduTypeShift) & pduTypeMask)
	pdu.GTR = b0&(1<<2) != 0
	pdu.TTR = b0&(1<<1) != 0
	pdu.RID = b0&1 != 0

	rcvTID := binary.BigEndian.Uint16(buf[1:3])
	pdu.TID = rcvTID ^ tidHighBit

	if !pdu.GTR || !pdu.TTR {
		return ErrPDUSARRequested
	}

	body := buf[3:]

	switch pdu.Type {
	case PDUInvoke:
		if len(body) < 1 {
			return ErrPDUTooShort
		}
		pdu.InvokeVersion = (body[0] >> 6) & 0x03
		if pdu.InvokeVersion != 0 {
			return ErrPDUBadVersion
		}
		pdu.TIDNew = body[0]&(1<<5) != 0
		pdu.UAck = body[0]&(1<<4) != 0
		pdu.TCL = body[0] & 0x03
		if pdu.TCL > 2 {
			return ErrPDUBadTCL
		}
		rest := body[1:]
		pdu.UserData, rest = splitTPI(rest, hasTPI)
		pdu.TPI = rest

	case PDUResult:
		pdu.ResultData, pdu.TPI = splitTPI(body, hasTPI)

	case PDUAck:
		if len(body) < 1 {
			return ErrPDUTooShort
		}
		pdu.TIDVerify = body[0]&(1<<7) != 0
		pdu.TPI = bodyTPI(body[1:], hasTPI)

	case PDUAbort:
		if len(body) < 2 {
			return ErrPDUTooShort
		}
		pdu.AbortType = AbortType(body[0] & 0x07)
		pdu.AbortReason = AbortReason(body[1])
		pdu.TPI = bodyTPI(body[2:], hasTPI)

	case PDUSegmentedInvoke, PDUSegmentedResult, PDUNegativeAck:
		return ErrPDUSARRequested

	default:
		return ErrPDUUnknownType
	}

	return nil
}

// splitTPI separates a body's user-data payload from its trailing TPI
// block when hasTPI is set; WTP itself carries no length prefix on the
// user-data portion, so without TPI the entire remainder is user data.
func splitTPI(body []byte, hasTPI bool) (data, tpi []byte) {
	if !hasTPI {
		return body, nil
	}
	// TPI items are self-delimited by their own length octets; this
	// gateway does not interpret TPI contents (spec.md Section 4.4
	// treats them as "optional trailers"), so the whole remainder past
	// the fixed fields is kept as an opaque TPI blob and no user data
	// is assumed to follow it.
	return nil, body
}

func bodyTPI(body []byte, hasTPI bool) []byte {
	if !hasTPI {
		return nil
	}
	return body
}

// TIDFromHeader extracts the receive-perspective TID from a WTP PDU's
// raw header bytes without fully decoding the PDU, for use when
// UnmarshalWTPPDU itself has already rejected the datagram (spec.md
// Section 4.5's malformed-PDU reply still needs the right TID to echo
// back to the peer).
func TIDFromHeader(buf []byte) (uint16, bool) {
	if len(buf) < wtpHeaderSize {
		return 0, false
	}
	return binary.BigEndian.Uint16(buf[1:3]) ^ tidHighBit, true
}

// FlipRID sets the RID bit (octet 0, bit 0) of a previously packed PDU
// in place, used by the Responder/Initiator retransmit paths (spec.md
// Section 4.5: "Retransmission ... bit-flips the RID bit in place ...
// before sending again if not already set").
func FlipRID(packed []byte) {
	if len(packed) == 0 {
		return
	}
	packed[0] |= 1
}
