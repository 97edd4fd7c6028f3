package coordinator

import (
	"errors"
	"sync"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/keys"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExpired  = errors.New("room expired")
)

// Delivery is one message addressed to one connected peer. State
// mutations return deliveries instead of writing to sockets so every
// transition stays testable without a network.
type Delivery struct {
	PeerID string
	Msg    protocol.Message
}

// Peer is the registry entry for one connection.
type Peer struct {
	ID        string
	RoomID    string
	Identity  protocol.Identity
	PublicKey []byte

	// Owned file ids, split by scope.
	GlobalFiles []string
	RoomFiles   []string
}

// Room groups peers and their file catalog behind an optional password
// gate and an optional expiry.
type Room struct {
	ID           string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	PasswordHash string

	Members    map[string]struct{}
	Files      map[string]protocol.FileRecord
	PublicKeys map[string][]byte
	Activity   []ActivityEntry
}

type ActivityEntry struct {
	At     time.Time
	PeerID string
	Name   string
	Action string
	File   string
}

func (r *Room) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// admissionChallenge is the pending half of the password handshake,
// keyed by peer id. At most one lives per peer.
type admissionChallenge struct {
	RoomID    string
	Nonce     string
	IssuedAt  time.Time
	Identity  protocol.Identity
	PublicKey []byte
}

// State owns every registry the coordinator mutates: peers, rooms,
// the global file catalog, and pending admission challenges. A single
// mutex serializes all transitions, which also serializes join/leave
// races against the expiry sweep.
type State struct {
	mu sync.Mutex

	peers       map[string]*Peer
	rooms       map[string]*Room
	globalFiles map[string]protocol.FileRecord
	challenges  map[string]*admissionChallenge

	challengeTimeout time.Duration

	// Injected for tests.
	now       func() time.Time
	newRoomID func() (string, error)
	newPeerID func() string
}

type StateOption func(*State)

func WithClock(now func() time.Time) StateOption {
	return func(s *State) { s.now = now }
}

func WithPeerIDs(gen func() string) StateOption {
	return func(s *State) { s.newPeerID = gen }
}

func WithChallengeTimeout(d time.Duration) StateOption {
	return func(s *State) { s.challengeTimeout = d }
}

func NewState(opts ...StateOption) *State {
	s := &State{
		peers:            make(map[string]*Peer),
		rooms:            make(map[string]*Room),
		globalFiles:      make(map[string]protocol.FileRecord),
		challenges:       make(map[string]*admissionChallenge),
		challengeTimeout: 5 * time.Minute,
		now:              time.Now,
		newRoomID:        keys.NewRoomID,
		newPeerID:        defaultPeerID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// globalPeersLocked returns peers not currently in any room.
func (s *State) globalPeersLocked() []*Peer {
	var out []*Peer
	for _, p := range s.peers {
		if p.RoomID == "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *State) globalFilesLocked() []protocol.FileRecord {
	out := make([]protocol.FileRecord, 0, len(s.globalFiles))
	for _, f := range s.globalFiles {
		out = append(out, f)
	}
	return out
}

func (r *Room) filesLocked() []protocol.FileRecord {
	out := make([]protocol.FileRecord, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, f)
	}
	return out
}

func (s *State) roomSummariesLocked(r *Room) []protocol.PeerSummary {
	out := make([]protocol.PeerSummary, 0, len(r.Members))
	for id := range r.Members {
		p, ok := s.peers[id]
		if !ok {
			continue
		}
		out = append(out, protocol.PeerSummary{
			ID:        p.ID,
			Identity:  p.Identity,
			PublicKey: r.PublicKeys[p.ID],
		})
	}
	return out
}
