package coordinator

import (
	"testing"

	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

func TestRelayWithinRoom(t *testing.T) {
	state, _ := newTestState(t)

	roomID, _ := state.CreateRoom("", 0)
	alice := registerPeer(t, state)
	bob := registerPeer(t, state)
	state.JoinRoom(alice, &protocol.JoinRoom{RoomID: roomID, Identity: identity("alice")})
	state.JoinRoom(bob, &protocol.JoinRoom{RoomID: roomID, Identity: identity("bob")})

	delivery, ok := state.Relay(alice, &protocol.Signal{
		Kind:         protocol.SignalOffer,
		TargetPeerID: bob,
		Payload:      []byte(`{"sdp":"v=0"}`),
	})
	if !ok {
		t.Fatal("expected the signal to relay")
	}
	forward, isForward := delivery.Msg.(*protocol.SignalForward)
	if !isForward {
		t.Fatalf("expected SignalForward, got %T", delivery.Msg)
	}
	if forward.FromPeerID != alice || forward.Kind != protocol.SignalOffer {
		t.Fatalf("bad forward: from %s kind %v", forward.FromPeerID, forward.Kind)
	}
	if delivery.PeerID != bob {
		t.Fatalf("delivered to %s, want %s", delivery.PeerID, bob)
	}
}

func TestRelayDropsAcrossScopes(t *testing.T) {
	state, _ := newTestState(t)

	roomID, _ := state.CreateRoom("", 0)
	alice := registerPeer(t, state)
	bob := registerPeer(t, state)
	state.JoinRoom(alice, &protocol.JoinRoom{RoomID: roomID, Identity: identity("alice")})

	if _, ok := state.Relay(alice, &protocol.Signal{Kind: protocol.SignalCandidate, TargetPeerID: bob}); ok {
		t.Fatal("signal crossed a scope boundary")
	}
}

func TestRelayDropsUnknownTarget(t *testing.T) {
	state, _ := newTestState(t)

	alice := registerPeer(t, state)
	if _, ok := state.Relay(alice, &protocol.Signal{Kind: protocol.SignalAnswer, TargetPeerID: "ghost"}); ok {
		t.Fatal("signal relayed to a peer that does not exist")
	}
}

func TestRelayBetweenGlobalPeers(t *testing.T) {
	state, _ := newTestState(t)

	alice := registerPeer(t, state)
	bob := registerPeer(t, state)

	delivery, ok := state.Relay(alice, &protocol.Signal{Kind: protocol.SignalCandidate, TargetPeerID: bob})
	if !ok {
		t.Fatal("global peers should reach each other")
	}
	if delivery.PeerID != bob {
		t.Fatalf("delivered to %s, want %s", delivery.PeerID, bob)
	}
}
