package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

// maxFrameSize bounds a single control message. Signaling payloads are
// small; anything larger is a broken or hostile peer.
const maxFrameSize = 4 * 1024 * 1024

// Peer wraps one connection and speaks length-prefixed codec frames.
type Peer struct {
	codec   *protocol.Codec
	conn    net.Conn
	writeMu sync.Mutex
	readMu  sync.Mutex
}

func NewPeer(conn net.Conn) *Peer {
	return &Peer{
		codec: protocol.NewCodec(),
		conn:  conn,
	}
}

func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

func (p *Peer) Close() error {
	return p.conn.Close()
}

func (p *Peer) Send(ctx context.Context, msg protocol.Message) error {
	data, err := p.codec.EncodeToBytes(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Type(), err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = p.conn.SetWriteDeadline(deadline)
	}

	if err := binary.Write(p.conn, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	if _, err := p.conn.Write(data); err != nil {
		return err
	}
	return nil
}

// Receive blocks until a full message arrives or the connection closes.
// Cancelling ctx only takes effect once the connection is closed by the
// owner; callers that need hard cancellation close the peer.
func (p *Peer) Receive(ctx context.Context) (protocol.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.readMu.Lock()
	defer p.readMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = p.conn.SetReadDeadline(deadline)
	}

	var length uint32
	if err := binary.Read(p.conn, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(p.conn, data); err != nil {
		return nil, err
	}

	return p.codec.DecodeFromBytes(data)
}
