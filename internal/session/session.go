package session

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/flychess-backend/internal/engine"
	"github.com/DoyleJ11/flychess-backend/internal/lobby"
	"github.com/DoyleJ11/flychess-backend/internal/protocol"
	wire "github.com/DoyleJ11/flychess-backend/pkg/types"
)

// Seater hands out seats to new sessions and takes them back.
type Seater interface {
	Connect(ctx context.Context, session string, outbox chan protocol.Message) (engine.PlayerID, error)
	Disconnect(session string)
}

type Config struct {
	OutboxSize   int
	WriteTimeout time.Duration
	MaxFrameSize int
}

// Session owns one client connection.
type Session struct {
	id     string
	conn   net.Conn
	cfg    Config
	outbox chan protocol.Message
	player engine.PlayerID
	log    *zap.Logger

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func New(conn net.Conn, cfg Config, log *zap.Logger) *Session {
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		cfg:    cfg,
		outbox: make(chan protocol.Message, cfg.OutboxSize),
		log:    log.With(zap.String("session", id), zap.String("remote", conn.RemoteAddr().String())),
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Serve takes a seat, then reads requests into games until the peer goes away,
// ctx is cancelled or the stream breaks. The seat is always given back.
func (s *Session) Serve(ctx context.Context, seats Seater, games chan<- lobby.Msg) error {
	player, err := seats.Connect(ctx, s.id, s.outbox)
	if err != nil {
		s.log.Info("connection refused", zap.Error(err))
		if rerr := s.reject(err); rerr != nil {
			s.log.Debug("reject failed", zap.Error(rerr))
		}
		return errors.Wrap(err, "take seat failed")
	}
	s.player = player
	s.log = s.log.With(zap.Int("player", int(player)))
	s.log.Info("session started")
	defer seats.Disconnect(s.id)

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	err = s.readLoop(ctx, games)
	_ = s.Close()
	<-writerDone
	if err != nil {
		s.log.Warn("session ended", zap.Error(err))
	} else {
		s.log.Info("session ended")
	}
	return err
}

func (s *Session) readLoop(ctx context.Context, games chan<- lobby.Msg) error {
	dec := protocol.NewDecoder(s.conn, s.cfg.MaxFrameSize)
	for {
		msg, err := dec.Next()
		if err != nil {
			var unknown *protocol.UnknownTypeError
			if errors.As(err, &unknown) {
				s.log.Warn("skipping unknown message", zap.String("tag", unknown.Tag))
				continue
			}
			if s.closed() || errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "read frame failed")
		}

		cmd, ok := toEngineCommand(msg)
		if !ok {
			s.log.Warn("ignoring server-to-client message from client", zap.String("tag", msg.Tag()))
			continue
		}
		select {
		case games <- lobby.FromClient{Player: s.player, Session: s.id, Cmd: cmd}:
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		}
	}
}

// writeLoop drains the outbox until the lobby closes it or the session ends.
func (s *Session) writeLoop() {
	var buf []byte
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.outbox:
			if !ok {
				s.log.Debug("outbox closed by lobby")
				_ = s.Close()
				return
			}
			frame, err := protocol.AppendFrame(buf[:0], msg)
			if err != nil {
				s.log.Error("encode failed", zap.Error(err))
				continue
			}
			buf = frame
			if err := s.write(frame); err != nil {
				if !s.closed() {
					s.log.Warn("write failed", zap.Error(err))
				}
				_ = s.Close()
				return
			}
		}
	}
}

func (s *Session) write(frame []byte) error {
	if s.cfg.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return errors.Wrap(err, "set write deadline failed")
		}
	}
	_, err := s.conn.Write(frame)
	return errors.Wrap(err, "write frame failed")
}

// reject tells the peer why it was refused and closes the connection.
func (s *Session) reject(reason error) error {
	frame, err := protocol.Encode(protocol.Text{Body: wire.NoticeError + ":" + errors.Cause(reason).Error()})
	if err == nil {
		err = s.write(frame)
	}
	return multierr.Append(err, s.Close())
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func toEngineCommand(m protocol.Message) (engine.Command, bool) {
	switch msg := m.(type) {
	case protocol.Ready:
		return engine.Command{Type: engine.CmdReady}, true
	case protocol.PlaneOp:
		return engine.Command{Type: engine.CmdPlaneOp, Dice: int(msg.Dice), Plane: int(msg.Plane)}, true
	case protocol.FlyOver:
		return engine.Command{Type: engine.CmdFlyOver, Accept: msg.Accepted}, true
	default:
		return engine.Command{}, false
	}
}
