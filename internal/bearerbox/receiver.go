package bearerbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/pruiz/wapbox/internal/wap"
)

// ErrNotConnected indicates an operation was attempted before Dial
// succeeded or after the connection was lost.
var ErrNotConnected = errors.New("bearerbox: not connected")

// Receiver reads framed messages from a Conn and converts each
// wdp_datagram into a wap.Datagram for the dispatcher's inbound queue.
//
// Grounded on internal/netio/receiver.go's Receiver: a read loop that
// blocks on socket I/O, unmarshals, and hands the result to a
// decoupled consumer. Non-datagram messages are skipped and a datagram
// with an unparseable address is logged and dropped; a failed frame
// read stops the loop.
type Receiver struct {
	conn   *Conn
	out    chan<- wap.Datagram
	logger *slog.Logger
}

// NewReceiver creates a Receiver that pushes decoded datagrams onto out.
func NewReceiver(conn *Conn, out chan<- wap.Datagram, logger *slog.Logger) *Receiver {
	return &Receiver{
		conn:   conn,
		out:    out,
		logger: logger.With(slog.String("component", "bearerbox.receiver")),
	}
}

// Run reads frames until ctx is cancelled or a read fails. Cancellation
// returns nil; any ReadMsg error (a closed connection, a malformed or
// oversized frame) ends the loop and is returned wrapped.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		m, err := r.conn.ReadMsg()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bearerbox receiver: %w", err)
		}

		if m.Kind != MsgDatagram {
			continue
		}

		dg, ok := r.toDatagram(m)
		if !ok {
			continue
		}

		select {
		case r.out <- dg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Receiver) toDatagram(m Msg) (wap.Datagram, bool) {
	srcAddr, err := netip.ParseAddr(m.SourceAddress)
	if err != nil {
		r.logger.Warn("drop datagram with invalid source_address",
			slog.String("source_address", m.SourceAddress), slog.String("error", err.Error()))
		return wap.Datagram{}, false
	}
	dstAddr, err := netip.ParseAddr(m.DestinationAddress)
	if err != nil {
		r.logger.Warn("drop datagram with invalid destination_address",
			slog.String("destination_address", m.DestinationAddress), slog.String("error", err.Error()))
		return wap.Datagram{}, false
	}

	return wap.Datagram{
		SrcAddr: wap.AddrTuple{
			RemoteAddr: srcAddr,
			RemotePort: m.SourcePort,
			LocalAddr:  dstAddr,
			LocalPort:  m.DestinationPort,
		},
		DstPort: m.DestinationPort,
		Data:    m.UserData,
	}, true
}

// Send frames a WSP/WTP response datagram and writes it to the
// bearerbox channel (the "outbound-to-bearerbox" task of spec.md
// Section 5).
func Send(conn *Conn, addr wap.AddrTuple, payload []byte) error {
	if conn == nil {
		return ErrNotConnected
	}
	return conn.WriteMsg(Msg{
		Kind:               MsgDatagram,
		SourceAddress:      addr.LocalAddr.String(),
		SourcePort:         addr.LocalPort,
		DestinationAddress: addr.RemoteAddr.String(),
		DestinationPort:    addr.RemotePort,
		UserData:           payload,
	})
}
