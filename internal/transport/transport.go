// Package transport frames protocol messages over TCP connections.
package transport

import (
	"context"
	"net"
)

type Transport struct {
	listener net.Listener
}

func NewTransport(addr string) (*Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Transport{listener: ln}, nil
}

func (t *Transport) LocalAddr() net.Addr {
	return t.listener.Addr()
}

// Accept blocks until a peer connects or ctx is cancelled.
func (t *Transport) Accept(ctx context.Context) (*Peer, error) {
	type result struct {
		conn net.Conn
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		conn, err := t.listener.Accept()
		ch <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return NewPeer(res.conn), nil
	}
}

func (t *Transport) Close() error {
	return t.listener.Close()
}

// Dial connects to a remote transport endpoint.
func Dial(ctx context.Context, addr string) (*Peer, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewPeer(conn), nil
}
