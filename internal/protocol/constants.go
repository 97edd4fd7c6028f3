package protocol

const (
	// RoomIDLength is the fixed length of room identifiers.
	RoomIDLength = 9
	// ShortHashLength is the fixed length of identity short hashes.
	ShortHashLength = 6
	// NonceSize is the byte length of an admission challenge nonce.
	NonceSize = 32
)

type MessageType uint16

const (
	MsgPing           MessageType = 0x0001
	MsgPong           MessageType = 0x0002
	MsgWelcome        MessageType = 0x0003
	MsgJoinRoom       MessageType = 0x0010
	MsgPasswordProof  MessageType = 0x0011
	MsgLeaveRoom      MessageType = 0x0012
	MsgRoomJoined     MessageType = 0x0013
	MsgChallenge      MessageType = 0x0014
	MsgPeerJoinedRoom MessageType = 0x0015
	MsgPeerLeftRoom   MessageType = 0x0016
	MsgRoomExpired    MessageType = 0x0017
	MsgShareFile      MessageType = 0x0020
	MsgUnshareFile    MessageType = 0x0021
	MsgFileShared     MessageType = 0x0022
	MsgFileAvailable  MessageType = 0x0023
	MsgFileRemoved    MessageType = 0x0024
	MsgFilesList      MessageType = 0x0025
	MsgSignal         MessageType = 0x0030
	MsgSignalForward  MessageType = 0x0031
	MsgPeersList      MessageType = 0x0040
	MsgPeerJoined     MessageType = 0x0041
	MsgPeerLeft       MessageType = 0x0042
	MsgError          MessageType = 0x00FF
)

func (t MessageType) String() string {
	switch t {
	case MsgPing:
		return "PING"
	case MsgPong:
		return "PONG"
	case MsgWelcome:
		return "WELCOME"
	case MsgJoinRoom:
		return "JOIN_ROOM"
	case MsgPasswordProof:
		return "PASSWORD_PROOF"
	case MsgLeaveRoom:
		return "LEAVE_ROOM"
	case MsgRoomJoined:
		return "ROOM_JOINED"
	case MsgChallenge:
		return "PASSWORD_CHALLENGE"
	case MsgPeerJoinedRoom:
		return "PEER_JOINED_ROOM"
	case MsgPeerLeftRoom:
		return "PEER_LEFT_ROOM"
	case MsgRoomExpired:
		return "ROOM_EXPIRED"
	case MsgShareFile:
		return "SHARE_FILE"
	case MsgUnshareFile:
		return "UNSHARE_FILE"
	case MsgFileShared:
		return "FILE_SHARED"
	case MsgFileAvailable:
		return "FILE_AVAILABLE"
	case MsgFileRemoved:
		return "FILE_REMOVED"
	case MsgFilesList:
		return "FILES_LIST"
	case MsgSignal:
		return "SIGNAL"
	case MsgSignalForward:
		return "SIGNAL_FORWARD"
	case MsgPeersList:
		return "PEERS_LIST"
	case MsgPeerJoined:
		return "PEER_JOINED"
	case MsgPeerLeft:
		return "PEER_LEFT"
	case MsgError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type ErrorCode uint16

const (
	ErrUnknown          ErrorCode = 0x0000
	ErrInvalidMsg       ErrorCode = 0x0001
	ErrRoomNotFound     ErrorCode = 0x0002
	ErrRoomExpired      ErrorCode = 0x0003
	ErrInvalidPassword  ErrorCode = 0x0004
	ErrChallengeExpired ErrorCode = 0x0005
	ErrPeerNotFound     ErrorCode = 0x0006
	ErrFileNotFound     ErrorCode = 0x0007
	ErrInternal         ErrorCode = 0x00FF
)

func (e ErrorCode) String() string {
	switch e {
	case ErrUnknown:
		return "UNKNOWN"
	case ErrInvalidMsg:
		return "INVALID_MESSAGE"
	case ErrRoomNotFound:
		return "ROOM_NOT_FOUND"
	case ErrRoomExpired:
		return "ROOM_EXPIRED"
	case ErrInvalidPassword:
		return "INVALID_PASSWORD"
	case ErrChallengeExpired:
		return "CHALLENGE_EXPIRED"
	case ErrPeerNotFound:
		return "PEER_NOT_FOUND"
	case ErrFileNotFound:
		return "FILE_NOT_FOUND"
	case ErrInternal:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// SignalKind narrows relayed signaling payloads to the three
// connection-negotiation message kinds the relay accepts.
type SignalKind uint8

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalCandidate
)

func (k SignalKind) String() string {
	switch k {
	case SignalOffer:
		return "OFFER"
	case SignalAnswer:
		return "ANSWER"
	case SignalCandidate:
		return "CANDIDATE"
	default:
		return "UNKNOWN"
	}
}
