package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

// DefaultSTUNConfig is used for every peer connection.
func DefaultSTUNConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// EnsureConnection sets up a data channel to the given peer if one is
// not already open. The peer with the lower id creates the channel;
// the other side waits for OnDataChannel, so both never race to offer.
func (c *Client) EnsureConnection(ctx context.Context, peerID string) error {
	c.mu.Lock()
	if _, ok := c.conns[peerID]; ok {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	pc, err := c.newPeerConnection(ctx, peerID)
	if err != nil {
		return err
	}

	if c.ID < peerID {
		ordered := true
		dc, err := pc.CreateDataChannel("transfer", &webrtc.DataChannelInit{Ordered: &ordered})
		if err != nil {
			return fmt.Errorf("creating data channel: %w", err)
		}
		c.setupDataChannel(peerID, dc)

		offer, err := pc.CreateOffer(nil)
		if err != nil {
			return fmt.Errorf("creating offer: %w", err)
		}
		if err := pc.SetLocalDescription(offer); err != nil {
			return err
		}
		return c.sendSignal(ctx, peerID, protocol.SignalOffer, offer)
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		c.setupDataChannel(peerID, dc)
	})
	return nil
}

func (c *Client) newPeerConnection(ctx context.Context, peerID string) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(DefaultSTUNConfig())
	if err != nil {
		return nil, fmt.Errorf("creating peer connection: %w", err)
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.Logger.Debugf("Connection to %s: %s", peerID, state)
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			c.closePeerConnection(peerID)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		if err := c.sendSignal(ctx, peerID, protocol.SignalCandidate, candidate.ToJSON()); err != nil {
			c.Logger.Warnf("Failed to send candidate to %s: %v", peerID, err)
		}
	})

	c.mu.Lock()
	c.conns[peerID] = pc
	c.mu.Unlock()
	return pc, nil
}

func (c *Client) setupDataChannel(peerID string, dc *webrtc.DataChannel) {
	c.mu.Lock()
	c.channels[peerID] = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		c.Logger.Infof("Data channel to %s open", peerID)
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.handleChannelMessage(peerID, msg)
	})
	dc.OnClose(func() {
		c.Logger.Debugf("Data channel to %s closed", peerID)
	})
}

func (c *Client) handleSignal(ctx context.Context, fwd *protocol.SignalForward) error {
	switch fwd.Kind {
	case protocol.SignalOffer:
		pc, err := c.connectionFor(ctx, fwd.FromPeerID)
		if err != nil {
			return err
		}
		var offer webrtc.SessionDescription
		if err := json.Unmarshal(fwd.Payload, &offer); err != nil {
			return fmt.Errorf("decoding offer: %w", err)
		}
		if err := pc.SetRemoteDescription(offer); err != nil {
			return err
		}
		answer, err := pc.CreateAnswer(nil)
		if err != nil {
			return err
		}
		if err := pc.SetLocalDescription(answer); err != nil {
			return err
		}
		return c.sendSignal(ctx, fwd.FromPeerID, protocol.SignalAnswer, answer)

	case protocol.SignalAnswer:
		pc, err := c.connectionFor(ctx, fwd.FromPeerID)
		if err != nil {
			return err
		}
		var answer webrtc.SessionDescription
		if err := json.Unmarshal(fwd.Payload, &answer); err != nil {
			return fmt.Errorf("decoding answer: %w", err)
		}
		return pc.SetRemoteDescription(answer)

	case protocol.SignalCandidate:
		pc, err := c.connectionFor(ctx, fwd.FromPeerID)
		if err != nil {
			return err
		}
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(fwd.Payload, &candidate); err != nil {
			return fmt.Errorf("decoding candidate: %w", err)
		}
		return pc.AddICECandidate(candidate)

	default:
		return fmt.Errorf("unknown signal kind %v", fwd.Kind)
	}
}

// connectionFor returns the peer connection for the given peer,
// creating an answering-side one on first contact.
func (c *Client) connectionFor(ctx context.Context, peerID string) (*webrtc.PeerConnection, error) {
	c.mu.Lock()
	pc, ok := c.conns[peerID]
	c.mu.Unlock()
	if ok {
		return pc, nil
	}

	pc, err := c.newPeerConnection(ctx, peerID)
	if err != nil {
		return nil, err
	}
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		c.setupDataChannel(peerID, dc)
	})
	return pc, nil
}

func (c *Client) sendSignal(ctx context.Context, peerID string, kind protocol.SignalKind, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.peer.Send(ctx, &protocol.Signal{
		Kind:         kind,
		TargetPeerID: peerID,
		Payload:      data,
	})
}

func (c *Client) closePeerConnection(peerID string) {
	c.mu.Lock()
	pc, hadConn := c.conns[peerID]
	dc := c.channels[peerID]
	delete(c.conns, peerID)
	delete(c.channels, peerID)
	c.mu.Unlock()

	if dc != nil {
		dc.Close()
	}
	if hadConn {
		pc.Close()
	}
}
