package coordinator

import (
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/keys"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

// RoomInfo is the public view served by the HTTP API.
type RoomInfo struct {
	ID               string
	RequiresPassword bool
	MemberCount      int
	FileCount        int
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// CreateRoom registers a new room. The id is collision-checked against
// live rooms. A zero ttl means the room never expires on its own.
func (s *State) CreateRoom(password string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	for {
		candidate, err := s.newRoomID()
		if err != nil {
			return "", err
		}
		if _, taken := s.rooms[candidate]; !taken {
			id = candidate
			break
		}
	}

	room := &Room{
		ID:         id,
		CreatedAt:  s.now(),
		Members:    make(map[string]struct{}),
		Files:      make(map[string]protocol.FileRecord),
		PublicKeys: make(map[string][]byte),
	}
	if ttl > 0 {
		room.ExpiresAt = s.now().Add(ttl)
	}
	if password != "" {
		room.PasswordHash = keys.HashPassword(password)
	}

	s.rooms[id] = room
	return id, nil
}

// RoomInfo looks up a room's public data. A read that discovers an
// expired room deletes it before reporting ErrRoomExpired.
func (s *State) RoomInfo(roomID string) (RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return RoomInfo{}, ErrRoomNotFound
	}
	if room.expired(s.now()) {
		s.dropRoomLocked(room)
		return RoomInfo{}, ErrRoomExpired
	}

	return RoomInfo{
		ID:               room.ID,
		RequiresPassword: room.PasswordHash != "",
		MemberCount:      len(room.Members),
		FileCount:        len(room.Files),
		CreatedAt:        room.CreatedAt,
		ExpiresAt:        room.ExpiresAt,
	}, nil
}

// JoinRoom handles a join-room request. Password-less rooms admit
// directly. For password-gated rooms a request without a password gets
// a fresh challenge (replacing any outstanding one for this peer); a
// request carrying the password is checked inline.
func (s *State) JoinRoom(peerID string, req *protocol.JoinRoom) []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	peer, ok := s.peers[peerID]
	if !ok {
		return nil
	}

	room, ok := s.rooms[req.RoomID]
	if !ok {
		return []Delivery{errorTo(peerID, protocol.ErrRoomNotFound, "Room not found")}
	}
	if room.expired(s.now()) {
		s.dropRoomLocked(room)
		return []Delivery{errorTo(peerID, protocol.ErrRoomExpired, "Room expired")}
	}

	if room.PasswordHash != "" {
		if req.Password == "" {
			nonce, err := keys.NewChallenge()
			if err != nil {
				return []Delivery{errorTo(peerID, protocol.ErrInternal, "challenge generation failed")}
			}
			s.challenges[peerID] = &admissionChallenge{
				RoomID:    req.RoomID,
				Nonce:     nonce,
				IssuedAt:  s.now(),
				Identity:  req.Identity,
				PublicKey: req.PublicKey,
			}
			return []Delivery{{PeerID: peerID, Msg: &protocol.Challenge{Nonce: nonce}}}
		}

		if !keys.VerifyPassword(req.Password, room.PasswordHash) {
			return []Delivery{errorTo(peerID, protocol.ErrInvalidPassword, "Invalid password")}
		}
	}

	return s.joinLocked(peer, room, req.Identity, req.PublicKey)
}

// SubmitProof resolves a pending admission challenge. The challenge is
// consumed on first use regardless of outcome, so a failed proof forces
// the client to restart the handshake.
func (s *State) SubmitProof(peerID string, proof string) []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	peer, ok := s.peers[peerID]
	if !ok {
		return nil
	}

	challenge, ok := s.challenges[peerID]
	if !ok {
		return []Delivery{errorTo(peerID, protocol.ErrChallengeExpired, "No challenge found")}
	}
	delete(s.challenges, peerID)

	if s.now().Sub(challenge.IssuedAt) > s.challengeTimeout {
		return []Delivery{errorTo(peerID, protocol.ErrChallengeExpired, "Challenge expired")}
	}

	room, ok := s.rooms[challenge.RoomID]
	if !ok {
		return []Delivery{errorTo(peerID, protocol.ErrRoomNotFound, "Room not found")}
	}
	if room.expired(s.now()) {
		s.dropRoomLocked(room)
		return []Delivery{errorTo(peerID, protocol.ErrRoomExpired, "Room expired")}
	}

	if !keys.VerifyProof(proof, room.PasswordHash, challenge.Nonce) {
		return []Delivery{errorTo(peerID, protocol.ErrInvalidPassword, "Invalid password")}
	}

	return s.joinLocked(peer, room, challenge.Identity, challenge.PublicKey)
}

// LeaveRoom handles an explicit leave. The leaver is handed back the
// global peer and file lists; remaining members get a peer-left-room
// event with the exact ids of the files that vanished with the peer.
func (s *State) LeaveRoom(peerID, roomID string) []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	peer, ok := s.peers[peerID]
	if !ok || peer.RoomID != roomID {
		return nil
	}

	var deliveries []Delivery
	if room, ok := s.rooms[roomID]; ok {
		deliveries = append(deliveries, s.leaveRoomLocked(peer, room, "left")...)
	} else {
		peer.RoomID = ""
		peer.RoomFiles = nil
	}

	summaries := make([]protocol.PeerSummary, 0)
	for _, p := range s.globalPeersLocked() {
		summaries = append(summaries, protocol.PeerSummary{ID: p.ID, Identity: p.Identity, PublicKey: p.PublicKey})
	}

	deliveries = append(deliveries,
		Delivery{PeerID: peerID, Msg: &protocol.FilesList{Files: s.globalFilesLocked()}},
		Delivery{PeerID: peerID, Msg: &protocol.PeersList{Peers: summaries}},
	)
	return deliveries
}

// emptyRoomGrace is how long a created room may sit with no members
// before the sweep reclaims it. Rooms that empty out through leaves are
// deleted immediately; this only catches rooms nobody ever joined, so a
// never-used room can persist for the grace plus one sweep interval.
const emptyRoomGrace = 5 * time.Minute

// SweepRooms removes every room past its expiry, notifying members
// first, and reclaims rooms that never gained a member. The registry
// lock makes the sweep atomic against concurrent joins, so an expired
// id can never be resurrected mid-sweep.
func (s *State) SweepRooms() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var deliveries []Delivery

	for _, room := range s.rooms {
		if len(room.Members) == 0 && now.Sub(room.CreatedAt) > emptyRoomGrace {
			s.dropRoomLocked(room)
			continue
		}
		if !room.expired(now) {
			continue
		}

		globalFiles := s.globalFilesLocked()
		for memberID := range room.Members {
			deliveries = append(deliveries,
				Delivery{PeerID: memberID, Msg: &protocol.RoomExpired{RoomID: room.ID}},
				Delivery{PeerID: memberID, Msg: &protocol.FilesList{Files: globalFiles}},
			)
			if member, ok := s.peers[memberID]; ok {
				member.RoomID = ""
				member.RoomFiles = nil
			}
		}
		s.dropRoomLocked(room)
	}

	return deliveries
}

// SweepChallenges drops admission challenges older than the timeout.
func (s *State) SweepChallenges() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for peerID, c := range s.challenges {
		if now.Sub(c.IssuedAt) > s.challengeTimeout {
			delete(s.challenges, peerID)
			dropped++
		}
	}
	return dropped
}

// RoomActivity returns the join/leave log for a live room.
func (s *State) RoomActivity(roomID string) ([]ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.expired(s.now()) {
		s.dropRoomLocked(room)
		return nil, ErrRoomExpired
	}

	out := make([]ActivityEntry, len(room.Activity))
	copy(out, room.Activity)
	return out, nil
}

// RoomCount reports the number of live rooms.
func (s *State) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func (s *State) joinLocked(peer *Peer, room *Room, identity protocol.Identity, publicKey []byte) []Delivery {
	var deliveries []Delivery

	// A peer holds at most one room at a time.
	if peer.RoomID != "" && peer.RoomID != room.ID {
		if previous, ok := s.rooms[peer.RoomID]; ok {
			deliveries = append(deliveries, s.leaveRoomLocked(peer, previous, "left")...)
		}
	}

	room.Members[peer.ID] = struct{}{}
	if len(publicKey) > 0 {
		room.PublicKeys[peer.ID] = publicKey
		peer.PublicKey = publicKey
	}
	peer.Identity = identity
	peer.RoomID = room.ID

	room.Activity = append(room.Activity, ActivityEntry{
		At:     s.now(),
		PeerID: peer.ID,
		Name:   displayName(identity),
		Action: "joined",
	})

	deliveries = append(deliveries, Delivery{PeerID: peer.ID, Msg: &protocol.RoomJoined{
		RoomID: room.ID,
		Peers:  s.roomSummariesLocked(room),
		Files:  room.filesLocked(),
	}})

	joined := protocol.PeerSummary{ID: peer.ID, Identity: identity, PublicKey: publicKey}
	for memberID := range room.Members {
		if memberID == peer.ID {
			continue
		}
		deliveries = append(deliveries, Delivery{PeerID: memberID, Msg: &protocol.PeerJoinedRoom{Peer: joined}})
	}

	return deliveries
}

// leaveRoomLocked removes the peer from the room, drops its room-scoped
// files, and deletes the room when it empties. Deliveries cover the
// remaining members only.
func (s *State) leaveRoomLocked(peer *Peer, room *Room, action string) []Delivery {
	delete(room.Members, peer.ID)
	delete(room.PublicKeys, peer.ID)

	removed := append([]string{}, peer.RoomFiles...)
	for _, fileID := range removed {
		delete(room.Files, fileID)
	}
	peer.RoomFiles = nil
	peer.RoomID = ""

	room.Activity = append(room.Activity, ActivityEntry{
		At:     s.now(),
		PeerID: peer.ID,
		Name:   displayName(peer.Identity),
		Action: action,
	})

	var deliveries []Delivery
	roomFiles := room.filesLocked()
	for memberID := range room.Members {
		deliveries = append(deliveries,
			Delivery{PeerID: memberID, Msg: &protocol.PeerLeftRoom{PeerID: peer.ID, FilesRemoved: removed}},
			Delivery{PeerID: memberID, Msg: &protocol.FilesList{RoomID: room.ID, Files: roomFiles}},
		)
	}

	if len(room.Members) == 0 {
		s.dropRoomLocked(room)
	}

	return deliveries
}

func (s *State) dropRoomLocked(room *Room) {
	delete(s.rooms, room.ID)
}

func displayName(identity protocol.Identity) string {
	if identity.DisplayName == "" {
		return "Anonymous"
	}
	return identity.DisplayName
}

func errorTo(peerID string, code protocol.ErrorCode, msg string) Delivery {
	return Delivery{PeerID: peerID, Msg: &protocol.Error{Code: code, Message: msg}}
}
