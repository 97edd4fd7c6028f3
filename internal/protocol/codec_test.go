package protocol

import (
	"bytes"
	"testing"
	"time"
)

func TestCodecJoinRoom(t *testing.T) {
	codec := NewCodec()
	var buf bytes.Buffer

	msg := &JoinRoom{
		RoomID:   "Ab3dEf9hK",
		Password: "hunter2",
		Identity: Identity{
			DisplayName: "alice",
			ShortHash:   "a1b2c3",
		},
		PublicKey: []byte("pem-bytes"),
	}

	if err := codec.Encode(&buf, msg); err != nil {
		t.Fatalf("Encode JoinRoom failed: %v", err)
	}

	decoded, err := codec.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode JoinRoom failed: %v", err)
	}

	decodedMsg, ok := decoded.(*JoinRoom)
	if !ok {
		t.Fatalf("Expected *JoinRoom, got %T", decoded)
	}

	if decodedMsg.RoomID != "Ab3dEf9hK" {
		t.Errorf("Expected room id 'Ab3dEf9hK', got %q", decodedMsg.RoomID)
	}

	if decodedMsg.Identity.ShortHash != "a1b2c3" {
		t.Errorf("ShortHash mismatch: %q", decodedMsg.Identity.ShortHash)
	}

	if !bytes.Equal(decodedMsg.PublicKey, []byte("pem-bytes")) {
		t.Error("PublicKey mismatch")
	}
}

func TestCodecRoomJoined(t *testing.T) {
	codec := NewCodec()
	var buf bytes.Buffer

	msg := &RoomJoined{
		RoomID: "Xy7pQr2sT",
		Peers: []PeerSummary{
			{ID: "peer-1", Identity: Identity{DisplayName: "alice"}},
			{ID: "peer-2", Identity: Identity{DisplayName: "bob"}},
		},
		Files: []FileRecord{
			{
				ID:        "peer-1-100-doc.pdf",
				Name:      "doc.pdf",
				Size:      1024,
				RoomID:    "Xy7pQr2sT",
				SharedAt:  time.Unix(1700000000, 0),
				ExpiresAt: time.Unix(1700003600, 0),
			},
		},
	}

	if err := codec.Encode(&buf, msg); err != nil {
		t.Fatalf("Encode RoomJoined failed: %v", err)
	}

	decoded, err := codec.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode RoomJoined failed: %v", err)
	}

	decodedMsg, ok := decoded.(*RoomJoined)
	if !ok {
		t.Fatalf("Expected *RoomJoined, got %T", decoded)
	}

	if len(decodedMsg.Peers) != 2 {
		t.Errorf("Expected 2 peers, got %d", len(decodedMsg.Peers))
	}

	if len(decodedMsg.Files) != 1 {
		t.Errorf("Expected 1 file, got %d", len(decodedMsg.Files))
	}

	if decodedMsg.Files[0].Name != "doc.pdf" {
		t.Errorf("Expected 'doc.pdf', got %q", decodedMsg.Files[0].Name)
	}

	if !decodedMsg.Files[0].SharedAt.Equal(msg.Files[0].SharedAt) {
		t.Errorf("SharedAt did not survive the wire: %v", decodedMsg.Files[0].SharedAt)
	}
	if !decodedMsg.Files[0].ExpiresAt.Equal(msg.Files[0].ExpiresAt) {
		t.Errorf("ExpiresAt did not survive the wire: %v", decodedMsg.Files[0].ExpiresAt)
	}
}

func TestCodecSignal(t *testing.T) {
	codec := NewCodec()
	var buf bytes.Buffer

	payload := []byte(`{"sdp":"v=0..."}`)
	msg := &Signal{Kind: SignalOffer, TargetPeerID: "peer-9", Payload: payload}

	if err := codec.Encode(&buf, msg); err != nil {
		t.Fatalf("Encode Signal failed: %v", err)
	}

	decoded, err := codec.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode Signal failed: %v", err)
	}

	decodedMsg, ok := decoded.(*Signal)
	if !ok {
		t.Fatalf("Expected *Signal, got %T", decoded)
	}

	if decodedMsg.Kind != SignalOffer {
		t.Errorf("Expected SignalOffer, got %v", decodedMsg.Kind)
	}

	if !bytes.Equal(decodedMsg.Payload, payload) {
		t.Error("Payload mismatch")
	}
}

func TestCodecEmptyFilesList(t *testing.T) {
	codec := NewCodec()
	var buf bytes.Buffer

	if err := codec.Encode(&buf, &FilesList{Files: []FileRecord{}}); err != nil {
		t.Fatalf("Encode empty FilesList failed: %v", err)
	}

	decoded, err := codec.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode empty FilesList failed: %v", err)
	}

	decodedMsg, ok := decoded.(*FilesList)
	if !ok {
		t.Fatalf("Expected *FilesList, got %T", decoded)
	}

	if len(decodedMsg.Files) != 0 {
		t.Errorf("Expected 0 files, got %d", len(decodedMsg.Files))
	}
}

func TestCodecError(t *testing.T) {
	codec := NewCodec()
	var buf bytes.Buffer

	msg := &Error{Code: ErrInvalidPassword, Message: "Invalid password"}

	if err := codec.Encode(&buf, msg); err != nil {
		t.Fatalf("Encode Error failed: %v", err)
	}

	decoded, err := codec.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode Error failed: %v", err)
	}

	decodedMsg, ok := decoded.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T", decoded)
	}

	if decodedMsg.Code != ErrInvalidPassword {
		t.Errorf("Expected ErrInvalidPassword, got %v", decodedMsg.Code)
	}
}

func TestCodecEncodeDecodeBytes(t *testing.T) {
	codec := NewCodec()

	data, err := codec.EncodeToBytes(&Welcome{PeerID: "peer-42"})
	if err != nil {
		t.Fatalf("EncodeToBytes failed: %v", err)
	}

	if len(data) == 0 {
		t.Error("Expected non-empty data")
	}

	decoded, err := codec.DecodeFromBytes(data)
	if err != nil {
		t.Fatalf("DecodeFromBytes failed: %v", err)
	}

	decodedMsg, ok := decoded.(*Welcome)
	if !ok {
		t.Fatalf("Expected *Welcome, got %T", decoded)
	}

	if decodedMsg.PeerID != "peer-42" {
		t.Errorf("Expected 'peer-42', got %q", decodedMsg.PeerID)
	}
}

func TestMessageTypeString(t *testing.T) {
	tests := []struct {
		expected string
		msgType  MessageType
	}{
		{"JOIN_ROOM", MsgJoinRoom},
		{"PASSWORD_CHALLENGE", MsgChallenge},
		{"SIGNAL_FORWARD", MsgSignalForward},
		{"FILES_LIST", MsgFilesList},
		{"ERROR", MsgError},
		{"UNKNOWN", MessageType(0xFFFE)},
	}

	for _, tt := range tests {
		if got := tt.msgType.String(); got != tt.expected {
			t.Errorf("%v.String() = %s, want %s", tt.msgType, got, tt.expected)
		}
	}
}

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrRoomNotFound, "ROOM_NOT_FOUND"},
		{ErrRoomExpired, "ROOM_EXPIRED"},
		{ErrInvalidPassword, "INVALID_PASSWORD"},
		{ErrChallengeExpired, "CHALLENGE_EXPIRED"},
		{ErrorCode(0xFFFE), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.expected {
			t.Errorf("%v.String() = %s, want %s", tt.code, got, tt.expected)
		}
	}
}

func TestSignalKindString(t *testing.T) {
	if SignalOffer.String() != "OFFER" || SignalAnswer.String() != "ANSWER" || SignalCandidate.String() != "CANDIDATE" {
		t.Error("SignalKind String() mismatch")
	}
	if SignalKind(99).String() != "UNKNOWN" {
		t.Error("Expected UNKNOWN for invalid kind")
	}
}
