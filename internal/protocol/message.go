package protocol

import "time"

type Message interface {
	Type() MessageType
}

// Identity is the user-facing identity a peer presents when joining a room.
type Identity struct {
	DisplayName  string
	ShortHash    string
	FullIdentity string
}

// PeerSummary describes one member of a room or the global scope.
type PeerSummary struct {
	ID        string
	Identity  Identity
	PublicKey []byte
}

// FileRecord describes a shared file. RoomID is empty for globally
// shared files.
type FileRecord struct {
	ID        string
	Name      string
	Size      int64
	MimeType  string
	OwnerID   string
	RoomID    string
	SharedAt  time.Time
	ExpiresAt time.Time
}

type Challenge struct {
	Nonce string
}

func (Challenge) Type() MessageType { return MsgChallenge }

type Error struct {
	Code    ErrorCode
	Message string
}

func (Error) Type() MessageType { return MsgError }

type FileAvailable struct {
	File FileRecord
}

func (FileAvailable) Type() MessageType { return MsgFileAvailable }

type FileRemoved struct {
	FileID string
	RoomID string
}

func (FileRemoved) Type() MessageType { return MsgFileRemoved }

type FileShared struct {
	FileID string
	Name   string
}

func (FileShared) Type() MessageType { return MsgFileShared }

type FilesList struct {
	RoomID string
	Files  []FileRecord
}

func (FilesList) Type() MessageType { return MsgFilesList }

type JoinRoom struct {
	RoomID    string
	Password  string
	Identity  Identity
	PublicKey []byte
}

func (JoinRoom) Type() MessageType { return MsgJoinRoom }

type LeaveRoom struct {
	RoomID string
}

func (LeaveRoom) Type() MessageType { return MsgLeaveRoom }

type PasswordProof struct {
	Proof string
}

func (PasswordProof) Type() MessageType { return MsgPasswordProof }

type PeerJoined struct {
	PeerID string
}

func (PeerJoined) Type() MessageType { return MsgPeerJoined }

type PeerJoinedRoom struct {
	Peer PeerSummary
}

func (PeerJoinedRoom) Type() MessageType { return MsgPeerJoinedRoom }

type PeerLeft struct {
	PeerID string
}

func (PeerLeft) Type() MessageType { return MsgPeerLeft }

type PeerLeftRoom struct {
	PeerID       string
	FilesRemoved []string
}

func (PeerLeftRoom) Type() MessageType { return MsgPeerLeftRoom }

type PeersList struct {
	Peers []PeerSummary
}

func (PeersList) Type() MessageType { return MsgPeersList }

type Ping struct{}

func (Ping) Type() MessageType { return MsgPing }

type Pong struct{}

func (Pong) Type() MessageType { return MsgPong }

type RoomExpired struct {
	RoomID string
}

func (RoomExpired) Type() MessageType { return MsgRoomExpired }

type RoomJoined struct {
	RoomID string
	Peers  []PeerSummary
	Files  []FileRecord
}

func (RoomJoined) Type() MessageType { return MsgRoomJoined }

type ShareFile struct {
	Name      string
	Size      int64
	MimeType  string
	ExpiresAt time.Time
}

func (ShareFile) Type() MessageType { return MsgShareFile }

// Signal carries an opaque connection-negotiation payload from the
// sender to TargetPeerID. The coordinator never inspects Payload.
type Signal struct {
	Kind         SignalKind
	TargetPeerID string
	Payload      []byte
}

func (Signal) Type() MessageType { return MsgSignal }

// SignalForward is a Signal re-addressed by the coordinator, tagged
// with the originating peer.
type SignalForward struct {
	Kind       SignalKind
	FromPeerID string
	Payload    []byte
}

func (SignalForward) Type() MessageType { return MsgSignalForward }

type UnshareFile struct {
	FileID string
	RoomID string
}

func (UnshareFile) Type() MessageType { return MsgUnshareFile }

// Welcome assigns the connection-scoped peer id.
type Welcome struct {
	PeerID string
}

func (Welcome) Type() MessageType { return MsgWelcome }
