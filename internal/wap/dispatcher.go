package wap

// -------------------------------------------------------------------------
// Dispatcher — spec.md Section 4.11
// -------------------------------------------------------------------------
//
// Grounded on internal/bfd/manager.go's Demux (single entry point that
// decides which session a received packet belongs to), generalized
// from BFD's "look up by discriminator or source address" routing to
// WAP's two-level decision: connectionless-WSP vs. WTP by destination
// port, then Responder vs. Initiator by the TID high bit as seen from
// the receiver.

// Datagram is the decoded wdp_datagram envelope the bearerbox
// collaborator hands the dispatcher (spec.md Section 6 "Bearerbox
// channel").
type Datagram struct {
	SrcAddr AddrTuple
	DstPort uint16
	Data    []byte
}

// RouteClass identifies which worker queue a datagram belongs to
// (spec.md Section 4.11).
type RouteClass uint8

const (
	RouteConnectionless RouteClass = iota + 1
	RouteResponder
	RouteInitiator
	RouteErrorPDU
)

// Route decides, for a single inbound datagram, which layer's queue it
// belongs to and (for WTP datagrams) decodes the PDU. It never mutates
// state; the caller (the one dispatcher task, per spec.md Section 5)
// is responsible for enqueuing the result to the chosen layer's queue.
//
// Per spec.md Section 4.11: "decide Responder vs Initiator by the top
// bit of the TID in the wire form (peer-generated TIDs have the high
// bit clear when viewed from the receiver)" -- a peer-originated
// transaction (routed to the Responder machinery) carries TID high bit
// 0 on the wire; a reply to a gateway-originated transaction (routed to
// the Initiator machinery) carries it set. UnmarshalWTPPDU already XORs
// this bit off into PDU.TID, so the routing decision reads the raw wire
// byte directly rather than the decoded PDU.
func Route(dg Datagram) (RouteClass, *WTPPDU) {
	if dg.DstPort == ConnectionlessPort {
		return RouteConnectionless, nil
	}

	if len(dg.Data) < wtpHeaderSize {
		return RouteErrorPDU, nil
	}

	wireTIDHigh := dg.Data[1]&0x80 != 0

	var pdu WTPPDU
	if err := UnmarshalWTPPDU(dg.Data, &pdu); err != nil {
		return RouteErrorPDU, nil
	}

	if wireTIDHigh {
		return RouteInitiator, &pdu
	}
	return RouteResponder, &pdu
}
