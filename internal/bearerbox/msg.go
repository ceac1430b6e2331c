// Package bearerbox implements the TCP control channel to the peer
// bearerbox process (spec.md Section 6 "Bearerbox channel").
//
// Grounded on internal/netio/listener.go/sender.go/receiver.go's split
// of socket concerns into a framing/IO layer (this file and conn.go)
// and a read-loop-plus-demux layer (receiver.go), re-expressed for a
// single length-prefixed TCP stream instead of a raw UDP socket with
// BFD-specific TTL/GTSM socket options.
package bearerbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrFrameTooLarge guards against a corrupt or hostile length prefix
// causing an unbounded allocation.
var ErrFrameTooLarge = errors.New("bearerbox: frame exceeds maximum size")

// ErrUnknownMsgKind indicates a frame carried an unrecognized type
// discriminator byte.
var ErrUnknownMsgKind = errors.New("bearerbox: unknown message kind")

// maxFrameSize bounds a single length-prefixed frame (spec.md Section
// 6 names no explicit datagram size ceiling; this matches the gateway's
// own client SDU size default of 1400 bytes with generous headroom for
// the wdp_datagram envelope fields).
const maxFrameSize = 1 << 20

// MsgKind discriminates the two message shapes carried over the
// channel (spec.md Section 6: "a serialised Msg structure of type
// wdp_datagram" plus "a periodic heartbeat message").
type MsgKind uint8

const (
	MsgDatagram MsgKind = iota + 1
	MsgHeartbeat
)

// Msg is one framed message on the bearerbox channel (spec.md Section
// 6). For MsgDatagram, SourceAddress/SourcePort/DestinationAddress/
// DestinationPort/UserData are populated; for MsgHeartbeat, only
// Load1Avg is meaningful.
type Msg struct {
	Kind MsgKind

	SourceAddress      string
	SourcePort         uint16
	DestinationAddress string
	DestinationPort    uint16
	UserData           []byte

	Load1Avg float64
}

// marshal encodes a Msg as kind byte + fields, without the outer
// length prefix (conn.go adds that).
func marshal(m Msg) ([]byte, error) {
	switch m.Kind {
	case MsgDatagram:
		return marshalDatagram(m), nil
	case MsgHeartbeat:
		return marshalHeartbeat(m), nil
	default:
		return nil, fmt.Errorf("marshal msg: %w", ErrUnknownMsgKind)
	}
}

func marshalDatagram(m Msg) []byte {
	buf := make([]byte, 0, 16+len(m.SourceAddress)+len(m.DestinationAddress)+len(m.UserData))
	buf = append(buf, byte(MsgDatagram))
	buf = appendLenPrefixedString(buf, m.SourceAddress)
	buf = appendUint16(buf, m.SourcePort)
	buf = appendLenPrefixedString(buf, m.DestinationAddress)
	buf = appendUint16(buf, m.DestinationPort)
	buf = appendLenPrefixedBytes(buf, m.UserData)
	return buf
}

func marshalHeartbeat(m Msg) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(MsgHeartbeat)
	binary.BigEndian.PutUint64(buf[1:], math.Float64bits(m.Load1Avg))
	return buf
}

// unmarshal decodes a Msg from a frame's payload (without the outer
// length prefix).
func unmarshal(frame []byte) (Msg, error) {
	if len(frame) == 0 {
		return Msg{}, fmt.Errorf("unmarshal msg: empty frame")
	}

	switch MsgKind(frame[0]) {
	case MsgDatagram:
		return unmarshalDatagram(frame[1:])
	case MsgHeartbeat:
		return unmarshalHeartbeat(frame[1:])
	default:
		return Msg{}, fmt.Errorf("unmarshal msg: kind %d: %w", frame[0], ErrUnknownMsgKind)
	}
}

func unmarshalDatagram(b []byte) (Msg, error) {
	srcAddr, b, err := readLenPrefixedString(b)
	if err != nil {
		return Msg{}, fmt.Errorf("read source_address: %w", err)
	}
	srcPort, b, err := readUint16(b)
	if err != nil {
		return Msg{}, fmt.Errorf("read source_port: %w", err)
	}
	dstAddr, b, err := readLenPrefixedString(b)
	if err != nil {
		return Msg{}, fmt.Errorf("read destination_address: %w", err)
	}
	dstPort, b, err := readUint16(b)
	if err != nil {
		return Msg{}, fmt.Errorf("read destination_port: %w", err)
	}
	userData, _, err := readLenPrefixedBytes(b)
	if err != nil {
		return Msg{}, fmt.Errorf("read user_data: %w", err)
	}

	return Msg{
		Kind:               MsgDatagram,
		SourceAddress:      srcAddr,
		SourcePort:         srcPort,
		DestinationAddress: dstAddr,
		DestinationPort:    dstPort,
		UserData:           userData,
	}, nil
}

func unmarshalHeartbeat(b []byte) (Msg, error) {
	if len(b) < 8 {
		return Msg{}, fmt.Errorf("unmarshal heartbeat: short frame")
	}
	bits := binary.BigEndian.Uint64(b)
	return Msg{Kind: MsgHeartbeat, Load1Avg: math.Float64frombits(bits)}, nil
}

// -------------------------------------------------------------------------
// Wire primitives
// -------------------------------------------------------------------------

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint16(b []byte) (uint16, []byte, error) {
	if len(b) < 2 {
		return 0, nil, fmt.Errorf("short buffer")
	}
	return binary.BigEndian.Uint16(b), b[2:], nil
}

func appendLenPrefixedString(buf []byte, s string) []byte {
	return appendLenPrefixedBytes(buf, []byte(s))
}

func appendLenPrefixedBytes(buf []byte, b []byte) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(b)))
	buf = append(buf, tmp[:]...)
	return append(buf, b...)
}

func readLenPrefixedBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("short length prefix")
	}
	n := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, fmt.Errorf("short payload: want %d, have %d", n, len(b))
	}
	return b[:n], b[n:], nil
}

func readLenPrefixedString(b []byte) (string, []byte, error) {
	raw, rest, err := readLenPrefixedBytes(b)
	if err != nil {
		return "", nil, err
	}
	return string(raw), rest, nil
}
