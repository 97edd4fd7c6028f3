package coordinator

import (
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

// Relay forwards a signaling message to its target peer. A signal is
// only relayed between peers sharing a scope: both in the same room, or
// both in the global pool. Anything else is dropped; the caller decides
// whether to log it.
func (s *State) Relay(fromPeerID string, sig *protocol.Signal) (Delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.peers[fromPeerID]
	if !ok {
		return Delivery{}, false
	}
	target, ok := s.peers[sig.TargetPeerID]
	if !ok {
		return Delivery{}, false
	}
	if from.RoomID != target.RoomID {
		return Delivery{}, false
	}

	return Delivery{
		PeerID: target.ID,
		Msg: &protocol.SignalForward{
			Kind:       sig.Kind,
			FromPeerID: fromPeerID,
			Payload:    sig.Payload,
		},
	}, true
}
