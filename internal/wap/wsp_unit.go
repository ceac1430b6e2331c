package wap

// -------------------------------------------------------------------------
// Connectionless WSP — spec.md Section 4.10
// -------------------------------------------------------------------------
//
// One state, one datagram in, one datagram out: no machine table, no
// timers, no retransmits, no duplicate suppression. Grounded on the
// same decode/encode helpers as wsp_method.go's Reply-PDU body packing,
// since the wire body shape is identical (status + headers + content);
// what differs is the envelope (a leading transaction-ID byte instead
// of a WTP header) and the complete absence of any transaction state.

// ConnectionlessPort is WSP's well-known connectionless service access
// point, distinct from the connection-oriented port (spec.md Section
// 4.11).
const ConnectionlessPort = 9200

// DecodeUnitInvoke strips the leading transaction-ID byte from a
// connectionless datagram and decodes the remaining WSP Get/Post PDU,
// returning the transaction id, the method, and the event to dispatch
// upward as S_Unit_MethodInvoke_Ind (spec.md Section 4.10).
func DecodeUnitInvoke(addr AddrTuple, datagram []byte) (txID byte, ev WAPEvent, err error) {
	if len(datagram) < 2 {
		return 0, WAPEvent{}, ErrPDUTooShort
	}
	txID = datagram[0]
	ctx := NewParseContext(datagram[1:])

	methodByte, err := ctx.ReadByte()
	if err != nil {
		return 0, WAPEvent{}, err
	}

	uriLen, err := ctx.ReadUintvar()
	if err != nil {
		return 0, WAPEvent{}, err
	}
	uriBytes, err := ctx.ReadBytes(int(uriLen))
	if err != nil {
		return 0, WAPEvent{}, err
	}

	headersLen, err := ctx.ReadUintvar()
	if err != nil {
		return 0, WAPEvent{}, err
	}
	headerBytes, err := ctx.ReadBytes(int(headersLen))
	if err != nil {
		return 0, WAPEvent{}, err
	}
	headers, _, _ := DecodeHeaders(headerBytes)

	body, _ := ctx.ReadBytes(ctx.Remaining())

	ev = WAPEvent{
		Kind: EvSUnitMethodInvokeInd, Addr: addr,
		URL: string(uriBytes), Headers: headers, Body: body,
		Status: int(methodByte),
	}
	return txID, ev, nil
}

// EncodeUnitResult packs a connectionless Reply PDU (status + headers +
// body), prepends the transaction-ID byte, for the T_DUnitdata_Req
// response path (spec.md Section 4.10).
func EncodeUnitResult(txID byte, status int, headers []Header, content []byte) []byte {
	ob := NewOctBuf(len(content) + 64)
	ob.WriteByte(txID)
	ob.WriteByte(byte(status))
	ob.WriteBytes(EncodeHeaders(headers))
	ob.WriteBytes(content)
	return ob.Bytes()
}
