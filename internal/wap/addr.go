package wap

import (
	"net/netip"
	"strconv"
)

// AddrTuple is the immutable four-tuple identifying a peer endpoint pair:
// the wireless client's address/port and the gateway's own address/port
// that a datagram arrived on or will be sent from.
//
// AddrTuple is compared structurally (it is a plain comparable struct),
// matching the WDP/WTP notion of an "address tuple" used to key both the
// TID validation cache (wap.md Section 4.3) and WSP session lookup
// (wap.md Section 4.7: "A WSP session for a given client tuple is
// unique").
type AddrTuple struct {
	RemoteAddr netip.Addr
	RemotePort uint16
	LocalAddr  netip.Addr
	LocalPort  uint16
}

// NewAddrTuple constructs an AddrTuple from its four components.
func NewAddrTuple(remoteAddr netip.Addr, remotePort uint16, localAddr netip.Addr, localPort uint16) AddrTuple {
	return AddrTuple{
		RemoteAddr: remoteAddr,
		RemotePort: remotePort,
		LocalAddr:  localAddr,
		LocalPort:  localPort,
	}
}

// Equal reports whether two address tuples are structurally identical.
// Exists alongside Go's native `==` comparability so callers that hold
// an AddrTuple behind an interface can still compare without a type
// assertion, and to document the invariant explicitly (spec.md Testable
// Properties: "wap_addr_tuple_duplicate(t) == t structurally").
func (a AddrTuple) Equal(b AddrTuple) bool {
	return a == b
}

// String renders the tuple as "remote:port->local:port" for logging.
func (a AddrTuple) String() string {
	return a.RemoteAddr.String() + ":" + strconv.Itoa(int(a.RemotePort)) + "->" +
		a.LocalAddr.String() + ":" + strconv.Itoa(int(a.LocalPort))
}
