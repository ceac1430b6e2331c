package bearerbox

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// ErrSocketClosed mirrors netio's UDPSender error shape: an operation
// was attempted on a connection that has already been closed.
var ErrSocketClosed = errors.New("bearerbox: connection closed")

// Conn is a framed TCP connection to the bearerbox process. Each frame
// is a 4-byte big-endian length prefix followed by a marshaled Msg
// (spec.md Section 6: "length-prefixed messages").
type Conn struct {
	nc     net.Conn
	r      *bufio.Reader
	mu     sync.Mutex
	closed bool
}

// NewConnFromNetConn wraps an already-established net.Conn (e.g., a
// net.Pipe() half in tests) as a framed bearerbox Conn.
func NewConnFromNetConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, r: bufio.NewReader(nc)}
}

// Dial connects to the bearerbox control channel at addr
// ("host:port").
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial bearerbox %s: %w", addr, err)
	}
	return &Conn{nc: nc, r: bufio.NewReader(nc)}, nil
}

// WriteMsg frames and writes a single Msg. Safe for concurrent use.
func (c *Conn) WriteMsg(m Msg) error {
	payload, err := marshal(m)
	if err != nil {
		return fmt.Errorf("write msg: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("write msg: %w", ErrSocketClosed)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(payload)))

	if _, err := c.nc.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := c.nc.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadMsg blocks for the next framed Msg. Not safe for concurrent use
// with other ReadMsg calls (the channel has exactly one reader goroutine,
// spec.md Section 5's "bearerbox reader" task).
func (c *Conn) ReadMsg() (Msg, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(c.r, lenPrefix[:]); err != nil {
		return Msg{}, fmt.Errorf("read frame length: %w", err)
	}

	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameSize {
		return Msg{}, fmt.Errorf("read frame: %d bytes: %w", n, ErrFrameTooLarge)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(c.r, frame); err != nil {
		return Msg{}, fmt.Errorf("read frame payload: %w", err)
	}

	m, err := unmarshal(frame)
	if err != nil {
		return Msg{}, fmt.Errorf("read msg: %w", err)
	}
	return m, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.nc.Close(); err != nil {
		return fmt.Errorf("close bearerbox connection: %w", err)
	}
	return nil
}
