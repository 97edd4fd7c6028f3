package coordinator

import (
	"github.com/google/uuid"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

func defaultPeerID() string {
	return uuid.NewString()
}

// RegisterPeer creates a registry entry for a fresh connection and
// returns the assigned id plus the welcome traffic: the current global
// peer and file lists for the newcomer and a peer-joined broadcast for
// everyone else in the global scope.
func (s *State) RegisterPeer() (string, []Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newPeerID()
	peer := &Peer{ID: id}
	s.peers[id] = peer

	var deliveries []Delivery

	summaries := make([]protocol.PeerSummary, 0)
	for _, p := range s.globalPeersLocked() {
		summaries = append(summaries, protocol.PeerSummary{ID: p.ID, Identity: p.Identity, PublicKey: p.PublicKey})
	}

	deliveries = append(deliveries,
		Delivery{PeerID: id, Msg: &protocol.Welcome{PeerID: id}},
		Delivery{PeerID: id, Msg: &protocol.PeersList{Peers: summaries}},
		Delivery{PeerID: id, Msg: &protocol.FilesList{Files: s.globalFilesLocked()}},
	)

	for _, p := range s.globalPeersLocked() {
		if p.ID == id {
			continue
		}
		deliveries = append(deliveries, Delivery{PeerID: p.ID, Msg: &protocol.PeerJoined{PeerID: id}})
	}

	return id, deliveries
}

// UnregisterPeer removes a disconnected peer and cascades: room
// membership, owned files in both scopes, and any pending admission
// challenge. No dangling reference to the peer survives in any room.
func (s *State) UnregisterPeer(peerID string) []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	peer, ok := s.peers[peerID]
	if !ok {
		return nil
	}

	var deliveries []Delivery

	if peer.RoomID != "" {
		if room, ok := s.rooms[peer.RoomID]; ok {
			deliveries = append(deliveries, s.leaveRoomLocked(peer, room, "disconnected")...)
		}
	}

	for _, fileID := range peer.GlobalFiles {
		delete(s.globalFiles, fileID)
	}

	delete(s.challenges, peerID)
	delete(s.peers, peerID)

	globalFiles := s.globalFilesLocked()
	for _, p := range s.globalPeersLocked() {
		deliveries = append(deliveries,
			Delivery{PeerID: p.ID, Msg: &protocol.PeerLeft{PeerID: peerID}},
			Delivery{PeerID: p.ID, Msg: &protocol.FilesList{Files: globalFiles}},
		)
	}

	return deliveries
}

// PeerCount reports the number of connected peers.
func (s *State) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// PeerRoom reports the room the peer is currently in, if any.
func (s *State) PeerRoom(peerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[peerID]
	if !ok {
		return "", false
	}
	return p.RoomID, p.RoomID != ""
}
