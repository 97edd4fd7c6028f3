package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/peer-drop/internal/config"
	"github.com/rudransh-shrivastava/peer-drop/internal/keys"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
	"github.com/rudransh-shrivastava/peer-drop/internal/scheduler"
	"github.com/rudransh-shrivastava/peer-drop/internal/store"
	"github.com/rudransh-shrivastava/peer-drop/internal/transport"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("client: not connected to a coordinator")
	ErrJoinFailed   = errors.New("client: join rejected")
)

// globalScope keys transfers between peers outside any room. Both ends
// derive the same key, so the chunk stream stays sealed on the wire.
const globalScope = "global"

// Client is the peer-side session with a coordinator. One goroutine
// owns the read loop; everything it learns lands in the mutable state
// behind mu or in one of the reply channels.
type Client struct {
	cfg    config.ClientConfig
	Logger *logrus.Logger

	peer *transport.Peer
	ID   string

	SharedFiles *store.SharedFileStore
	Transfers   *store.TransferStore
	Scheduler   *scheduler.Scheduler

	// OnProgress, when set, is called as download bytes arrive.
	OnProgress func(fileID string, received, total int64)

	mu       sync.Mutex
	roomID   string
	peers    map[string]protocol.PeerSummary
	files    map[string]protocol.FileRecord
	password string
	scopeKey []byte

	conns    map[string]*webrtc.PeerConnection
	channels map[string]*webrtc.DataChannel
	pending  map[uint64]pendingDownload
	incoming map[string]*incomingTransfer // keyed by file id

	welcomeCh chan string
	joinCh    chan error
	shareCh   chan *protocol.FileShared

	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(cfg config.ClientConfig, logger *logrus.Logger) (*Client, error) {
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(cfg.GateLimit, cfg.JumpThreshold,
		scheduler.WithTransferTimeout(cfg.TransferTimeout))

	return &Client{
		cfg:         cfg,
		Logger:      logger,
		SharedFiles: store.NewSharedFileStore(db),
		Transfers:   store.NewTransferStore(db),
		Scheduler:   sched,
		peers:       make(map[string]protocol.PeerSummary),
		files:       make(map[string]protocol.FileRecord),
		scopeKey:    keys.DeriveRoomKey(globalScope, ""),
		conns:       make(map[string]*webrtc.PeerConnection),
		channels:    make(map[string]*webrtc.DataChannel),
		pending:     make(map[uint64]pendingDownload),
		incoming:    make(map[string]*incomingTransfer),
		welcomeCh:   make(chan string, 1),
		joinCh:      make(chan error, 1),
		shareCh:     make(chan *protocol.FileShared, 1),
		done:        make(chan struct{}),
	}, nil
}

// Connect dials the coordinator and waits for the welcome carrying our
// peer id.
func (c *Client) Connect(ctx context.Context) error {
	peer, err := transport.Dial(ctx, c.cfg.CoordinatorAddr)
	if err != nil {
		return fmt.Errorf("dialing coordinator: %w", err)
	}
	c.peer = peer

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.readLoop(runCtx)
	go c.Scheduler.Watch(runCtx)

	select {
	case id := <-c.welcomeCh:
		c.ID = id
		c.Logger.Infof("Connected to coordinator as %s", id)
		return nil
	case <-ctx.Done():
		peer.Close()
		return ctx.Err()
	}
}

func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.peer != nil {
		c.peer.Close()
	}
	<-c.done
}

// RoomID returns the room this client currently occupies, if any.
func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// Peers returns the last known peer list for the current scope.
func (c *Client) Peers() []protocol.PeerSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.PeerSummary, 0, len(c.peers))
	for _, p := range c.peers {
		out = append(out, p)
	}
	return out
}

// Files returns the last known catalog for the current scope.
func (c *Client) Files() []protocol.FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.FileRecord, 0, len(c.files))
	for _, f := range c.files {
		out = append(out, f)
	}
	return out
}

// JoinRoom joins a room, answering a password challenge when the
// coordinator issues one.
func (c *Client) JoinRoom(ctx context.Context, roomID, password, displayName string) error {
	if c.peer == nil {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.password = password
	c.mu.Unlock()

	join := &protocol.JoinRoom{
		RoomID:   roomID,
		Identity: protocol.Identity{DisplayName: displayName},
	}
	if err := c.peer.Send(ctx, join); err != nil {
		return err
	}

	select {
	case err := <-c.joinCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LeaveRoom drops back into the global pool.
func (c *Client) LeaveRoom(ctx context.Context) error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	if roomID == "" {
		return nil
	}
	return c.peer.Send(ctx, &protocol.LeaveRoom{RoomID: roomID})
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		msg, err := c.peer.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.Logger.Warnf("Coordinator connection lost: %v", err)
			}
			return
		}
		c.handleMessage(ctx, msg)
	}
}

func (c *Client) handleMessage(ctx context.Context, msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Welcome:
		select {
		case c.welcomeCh <- m.PeerID:
		default:
		}

	case *protocol.Challenge:
		c.mu.Lock()
		proof := keys.ComputeProof(c.password, m.Nonce)
		c.mu.Unlock()
		if err := c.peer.Send(ctx, &protocol.PasswordProof{Proof: proof}); err != nil {
			c.Logger.Errorf("Failed to answer challenge: %v", err)
		}

	case *protocol.RoomJoined:
		c.mu.Lock()
		c.roomID = m.RoomID
		c.scopeKey = keys.DeriveRoomKey(m.RoomID, c.password)
		c.password = ""
		c.peers = make(map[string]protocol.PeerSummary)
		for _, p := range m.Peers {
			c.peers[p.ID] = p
		}
		c.files = make(map[string]protocol.FileRecord)
		for _, f := range m.Files {
			c.files[f.ID] = f
		}
		c.mu.Unlock()
		select {
		case c.joinCh <- nil:
		default:
		}

	case *protocol.RoomExpired:
		c.mu.Lock()
		c.roomID = ""
		c.scopeKey = keys.DeriveRoomKey(globalScope, "")
		c.mu.Unlock()
		c.Logger.Warnf("Room %s expired", m.RoomID)

	case *protocol.PeersList:
		c.mu.Lock()
		c.peers = make(map[string]protocol.PeerSummary)
		for _, p := range m.Peers {
			c.peers[p.ID] = p
		}
		c.mu.Unlock()

	case *protocol.FilesList:
		c.mu.Lock()
		c.files = make(map[string]protocol.FileRecord)
		for _, f := range m.Files {
			c.files[f.ID] = f
		}
		c.mu.Unlock()

	case *protocol.PeerJoined:
		c.Logger.Debugf("Peer %s joined", m.PeerID)

	case *protocol.PeerLeft:
		c.forgetPeer(m.PeerID)

	case *protocol.PeerJoinedRoom:
		c.mu.Lock()
		c.peers[m.Peer.ID] = m.Peer
		c.mu.Unlock()
		c.Logger.Infof("%s joined the room", m.Peer.Identity.DisplayName)

	case *protocol.PeerLeftRoom:
		c.forgetPeer(m.PeerID)
		c.mu.Lock()
		for _, fileID := range m.FilesRemoved {
			delete(c.files, fileID)
		}
		c.mu.Unlock()

	case *protocol.FileShared:
		select {
		case c.shareCh <- m:
		default:
		}

	case *protocol.FileAvailable:
		c.mu.Lock()
		c.files[m.File.ID] = m.File
		c.mu.Unlock()
		c.Logger.Infof("New file available: %s (%d bytes)", m.File.Name, m.File.Size)

	case *protocol.FileRemoved:
		c.mu.Lock()
		delete(c.files, m.FileID)
		c.mu.Unlock()

	case *protocol.SignalForward:
		if err := c.handleSignal(ctx, m); err != nil {
			c.Logger.Warnf("Signal from %s failed: %v", m.FromPeerID, err)
		}

	case *protocol.Pong:

	case *protocol.Error:
		c.handleError(m)

	default:
		c.Logger.Debugf("Unhandled message type %v", msg.Type())
	}
}

func (c *Client) handleError(m *protocol.Error) {
	c.Logger.Warnf("Coordinator error: %s (%s)", m.Message, m.Code)

	switch m.Code {
	case protocol.ErrRoomNotFound, protocol.ErrRoomExpired,
		protocol.ErrInvalidPassword, protocol.ErrChallengeExpired:
		select {
		case c.joinCh <- fmt.Errorf("%w: %s", ErrJoinFailed, m.Message):
		default:
		}
	}
}

func (c *Client) forgetPeer(peerID string) {
	c.mu.Lock()
	delete(c.peers, peerID)
	c.mu.Unlock()
	c.closePeerConnection(peerID)
}

// Ping checks the coordinator link is alive.
func (c *Client) Ping(ctx context.Context) error {
	if c.peer == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.peer.Send(ctx, &protocol.Ping{})
}
