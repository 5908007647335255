package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/flychess-backend/internal/lobby"
	"github.com/DoyleJ11/flychess-backend/internal/session"
)

const maxAcceptDelay = time.Second

// Server accepts game connections and runs one session per connection.
type Server struct {
	ln    net.Listener
	seats session.Seater
	games chan<- lobby.Msg
	cfg   session.Config
	log   *zap.Logger
	wg    sync.WaitGroup
}

// Cfg configures a Server.
type Cfg func(*Server) error

func WithLogger(log *zap.Logger) Cfg {
	return func(s *Server) error {
		if log == nil {
			return errors.New("nil logger")
		}
		s.log = log
		return nil
	}
}

func WithSessionConfig(cfg session.Config) Cfg {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

// WithListener serves on an existing listener instead of calling Listen.
func WithListener(ln net.Listener) Cfg {
	return func(s *Server) error {
		s.ln = ln
		return nil
	}
}

func New(seats session.Seater, games chan<- lobby.Msg, cfgs ...Cfg) (*Server, error) {
	s := &Server{seats: seats, games: games, log: zap.NewNop()}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	return s, nil
}

func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", addr)
	}
	s.ln = ln
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled, then waits for every
// session to finish.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return errors.New("server is not listening")
	}
	stop := context.AfterFunc(ctx, func() { _ = s.ln.Close() })
	defer stop()
	defer s.wg.Wait()

	s.log.Info("accepting game connections", zap.String("addr", s.ln.Addr().String()))
	var delay time.Duration
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay = min(max(2*delay, 5*time.Millisecond), maxAcceptDelay)
			s.log.Warn("accept failed", zap.Error(err), zap.Duration("retry_in", delay))
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		delay = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess := session.New(conn, s.cfg, s.log)
			if err := sess.Serve(ctx, s.seats, s.games); err != nil {
				s.log.Debug("session closed with error", zap.String("session", sess.ID()), zap.Error(err))
			}
		}()
	}
}
