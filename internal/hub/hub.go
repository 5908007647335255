package hub

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/flychess-backend/internal/engine"
	"github.com/DoyleJ11/flychess-backend/internal/lobby"
	"github.com/DoyleJ11/flychess-backend/internal/protocol"
)

var ErrFull = errors.New("server full")
var ErrClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

// Connect asks for a seat for a new session. Reply must be buffered.
type Connect struct {
	Session string
	Outbox  chan protocol.Message
	Reply   chan Seat
}

type Seat struct {
	Player engine.PlayerID
	Err    error
}

type Disconnect struct {
	Session string
}

type GetSeats struct {
	Reply chan map[engine.PlayerID]string
}

type ShutdownHub struct{}

func (Connect) isHubMsg()     {}
func (Disconnect) isHubMsg()  {}
func (GetSeats) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

// Hub tracks which session holds which seat. Seat bookkeeping lives here,
// game consequences of joining and leaving are left to the lobby.
type Hub struct {
	inbox    chan HubMsg
	lobby    *lobby.Lobby
	capacity int
	seats    map[engine.PlayerID]string
	sessions map[string]engine.PlayerID
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, lb *lobby.Lobby, capacity int, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobby:    lb,
		capacity: capacity,
		seats:    make(map[engine.PlayerID]string),
		sessions: make(map[string]engine.PlayerID),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Connect seats session and registers outbox with the lobby.
func (h *Hub) Connect(ctx context.Context, session string, outbox chan protocol.Message) (engine.PlayerID, error) {
	reply := make(chan Seat, 1)
	select {
	case h.inbox <- Connect{Session: session, Outbox: outbox, Reply: reply}:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.ctx.Done():
		return 0, ErrClosed
	}
	select {
	case s := <-reply:
		return s.Player, s.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.ctx.Done():
		return 0, ErrClosed
	}
}

func (h *Hub) Disconnect(session string) {
	select {
	case h.inbox <- Disconnect{Session: session}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				msg.Reply <- h.connect(msg)

			case Disconnect:
				id, ok := h.sessions[msg.Session]
				if !ok {
					break
				}
				delete(h.sessions, msg.Session)
				delete(h.seats, id)
				h.log.Info("player disconnected", zap.Int("player", int(id)), zap.String("session", msg.Session))
				h.toLobby(lobby.Leave{Player: id, Session: msg.Session})

			case GetSeats:
				seats := make(map[engine.PlayerID]string, len(h.seats))
				for id, s := range h.seats {
					seats[id] = s
				}
				msg.Reply <- seats

			case ShutdownHub:
				clear(h.seats)
				clear(h.sessions)
				h.cancel()
			}
		}
	}
}

func (h *Hub) connect(msg Connect) Seat {
	if len(h.seats) >= h.capacity {
		return Seat{Err: ErrFull}
	}
	id := h.freeSeat()

	reply := make(chan error, 1)
	if !h.toLobby(lobby.Join{Player: id, Session: msg.Session, Outbox: msg.Outbox, Reply: reply}) {
		return Seat{Err: ErrClosed}
	}
	var err error
	select {
	case err = <-reply:
	case <-h.lobby.Done():
		err = ErrClosed
	case <-h.ctx.Done():
		err = ErrClosed
	}
	if err != nil {
		return Seat{Err: pkgerrors.Wrapf(err, "seat %d refused", id)}
	}

	h.seats[id] = msg.Session
	h.sessions[msg.Session] = id
	h.log.Info("player seated", zap.Int("player", int(id)), zap.String("session", msg.Session))
	return Seat{Player: id}
}

func (h *Hub) freeSeat() engine.PlayerID {
	for id := engine.PlayerID(1); int(id) <= h.capacity; id++ {
		if _, taken := h.seats[id]; !taken {
			return id
		}
	}
	return 0
}

func (h *Hub) toLobby(m lobby.Msg) bool {
	select {
	case h.lobby.Inbox() <- m:
		return true
	case <-h.lobby.Done():
		return false
	case <-h.ctx.Done():
		return false
	}
}
