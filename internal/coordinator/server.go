package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/config"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
	"github.com/rudransh-shrivastava/peer-drop/internal/transport"
)

const sessionSendBuffer = 64

// session is one connected peer. Outbound messages go through a
// buffered channel drained by a single writer goroutine, so State
// methods never block on a slow connection.
type session struct {
	peerID string
	peer   *transport.Peer
	out    chan protocol.Message
	done   chan struct{}
	once   sync.Once
}

func (se *session) close() {
	se.once.Do(func() {
		close(se.done)
		se.peer.Close()
	})
}

type Server struct {
	state     *State
	transport *transport.Transport
	logger    *slog.Logger
	cfg       config.CoordinatorConfig

	mu       sync.Mutex
	sessions map[string]*session

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewServer(cfg config.CoordinatorConfig, state *State, logger *slog.Logger) (*Server, error) {
	tr, err := transport.NewTransport(cfg.ListenAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		state:     state,
		transport: tr,
		logger:    logger,
		cfg:       cfg,
		sessions:  make(map[string]*session),
	}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.transport.LocalAddr().String()
}

// Start runs the accept loop and the background sweeps until ctx is
// cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.runSweeps(ctx)

	s.logger.Info("coordinator listening", "addr", s.transport.LocalAddr())

	for {
		peer, err := s.transport.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", "err", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConn(ctx, peer)
	}
}

// Shutdown stops accepting, disconnects every session, and waits for
// the handlers to drain.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.transport.Close()

	s.mu.Lock()
	for _, se := range s.sessions {
		se.close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) handleConn(ctx context.Context, peer *transport.Peer) {
	defer s.wg.Done()

	peerID, deliveries := s.state.RegisterPeer()
	se := &session{
		peerID: peerID,
		peer:   peer,
		out:    make(chan protocol.Message, sessionSendBuffer),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[peerID] = se
	s.mu.Unlock()

	s.logger.Info("peer connected", "peer", peerID, "addr", peer.RemoteAddr())

	s.wg.Add(1)
	go s.runWriter(ctx, se)
	s.dispatchAll(deliveries)

	for {
		msg, err := peer.Receive(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Debug("receive failed", "peer", peerID, "err", err)
			}
			break
		}
		s.handleMessage(se, msg)
	}

	se.close()

	s.mu.Lock()
	delete(s.sessions, peerID)
	s.mu.Unlock()

	s.dispatchAll(s.state.UnregisterPeer(peerID))
	s.logger.Info("peer disconnected", "peer", peerID)
}

func (s *Server) handleMessage(se *session, msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Ping:
		s.send(se.peerID, &protocol.Pong{})

	case *protocol.JoinRoom:
		s.dispatchAll(s.state.JoinRoom(se.peerID, m))

	case *protocol.PasswordProof:
		s.dispatchAll(s.state.SubmitProof(se.peerID, m.Proof))

	case *protocol.LeaveRoom:
		s.dispatchAll(s.state.LeaveRoom(se.peerID, m.RoomID))

	case *protocol.ShareFile:
		s.dispatchAll(s.state.ShareFile(se.peerID, m))

	case *protocol.UnshareFile:
		s.dispatchAll(s.state.UnshareFile(se.peerID, m))

	case *protocol.Signal:
		switch m.Kind {
		case protocol.SignalOffer, protocol.SignalAnswer, protocol.SignalCandidate:
			if delivery, ok := s.state.Relay(se.peerID, m); ok {
				s.dispatch(delivery)
			} else {
				s.logger.Debug("dropped signal", "from", se.peerID, "to", m.TargetPeerID)
			}
		default:
			s.send(se.peerID, &protocol.Error{Code: protocol.ErrInvalidMsg, Message: "unknown signal kind"})
		}

	default:
		s.logger.Warn("unexpected message", "peer", se.peerID, "type", msg.Type())
		s.send(se.peerID, &protocol.Error{Code: protocol.ErrInvalidMsg, Message: "unexpected message type"})
	}
}

func (s *Server) runWriter(ctx context.Context, se *session) {
	defer s.wg.Done()
	for {
		select {
		case msg := <-se.out:
			if err := se.peer.Send(ctx, msg); err != nil {
				s.logger.Debug("send failed", "peer", se.peerID, "err", err)
				se.close()
				return
			}
		case <-se.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) runSweeps(ctx context.Context) {
	defer s.wg.Done()

	roomTicker := time.NewTicker(s.cfg.RoomSweepInterval)
	challengeTicker := time.NewTicker(s.cfg.ChallengeSweepInterval)
	defer roomTicker.Stop()
	defer challengeTicker.Stop()

	for {
		select {
		case <-roomTicker.C:
			s.dispatchAll(s.state.SweepRooms())
			s.dispatchAll(s.state.SweepFiles())
		case <-challengeTicker.C:
			if dropped := s.state.SweepChallenges(); dropped > 0 {
				s.logger.Debug("expired challenges", "count", dropped)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) dispatchAll(deliveries []Delivery) {
	for _, d := range deliveries {
		s.dispatch(d)
	}
}

func (s *Server) dispatch(d Delivery) {
	s.send(d.PeerID, d.Msg)
}

// send is non-blocking. A peer whose buffer is full loses the message;
// the periodic list refreshes bring it back in sync.
func (s *Server) send(peerID string, msg protocol.Message) {
	s.mu.Lock()
	se, ok := s.sessions[peerID]
	s.mu.Unlock()
	if !ok {
		return
	}

	select {
	case se.out <- msg:
	default:
		s.logger.Warn("dropping message for slow peer", "peer", peerID, "type", msg.Type())
	}
}
