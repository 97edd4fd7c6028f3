package protocol

import (
	"bytes"
	"encoding/gob"
	"io"
)

func init() {
	gob.Register(&Challenge{})
	gob.Register(&Error{})
	gob.Register(&FileAvailable{})
	gob.Register(&FileRemoved{})
	gob.Register(&FileShared{})
	gob.Register(&FilesList{})
	gob.Register(&JoinRoom{})
	gob.Register(&LeaveRoom{})
	gob.Register(&PasswordProof{})
	gob.Register(&PeerJoined{})
	gob.Register(&PeerJoinedRoom{})
	gob.Register(&PeerLeft{})
	gob.Register(&PeerLeftRoom{})
	gob.Register(&PeersList{})
	gob.Register(&Ping{})
	gob.Register(&Pong{})
	gob.Register(&RoomExpired{})
	gob.Register(&RoomJoined{})
	gob.Register(&ShareFile{})
	gob.Register(&Signal{})
	gob.Register(&SignalForward{})
	gob.Register(&UnshareFile{})
	gob.Register(&Welcome{})
}

type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Encode(w io.Writer, msg Message) error {
	return gob.NewEncoder(w).Encode(&msg)
}

func (c *Codec) Decode(r io.Reader) (Message, error) {
	var msg Message
	if err := gob.NewDecoder(r).Decode(&msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *Codec) EncodeToBytes(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) DecodeFromBytes(data []byte) (Message, error) {
	return c.Decode(bytes.NewReader(data))
}
