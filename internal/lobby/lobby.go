package lobby

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/flychess-backend/internal/engine"
	"github.com/DoyleJ11/flychess-backend/internal/protocol"
	"github.com/DoyleJ11/flychess-backend/internal/store"
	"github.com/DoyleJ11/flychess-backend/internal/types"
	wire "github.com/DoyleJ11/flychess-backend/pkg/types"
)

const recordTimeout = 10 * time.Second

type Msg interface{ isLobbyMsg() }

// Join seats a connected player. Reply must be buffered; it receives nil or
// the reason the seat was refused.
type Join struct {
	Player  engine.PlayerID
	Session string
	Outbox  chan protocol.Message // closed by the lobby when the player is removed
	Reply   chan error
}

func (Join) isLobbyMsg() {}

type Leave struct {
	Player  engine.PlayerID
	Session string
}

func (Leave) isLobbyMsg() {}

type FromClient struct {
	Player  engine.PlayerID
	Session string
	Cmd     engine.Command
}

func (FromClient) isLobbyMsg() {}

// Watch registers a read-only spectator.
type Watch struct {
	ID     string
	Outbox chan types.ServerMessage
}

func (Watch) isLobbyMsg() {}

type Unwatch struct{ ID string }

func (Unwatch) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Version     int
	NumClients  int
	NumWatchers int
	State       engine.State
}

type client struct {
	session string
	outbox  chan protocol.Message
}

type Lobby struct {
	inbox    chan Msg
	state    engine.State
	version  int
	clients  map[engine.PlayerID]client
	watchers map[string]chan types.ServerMessage
	dropped  []engine.PlayerID
	started  time.Time
	log      *zap.Logger
	recorder store.Recorder
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

type Option func(*Lobby)

func WithLogger(log *zap.Logger) Option {
	return func(l *Lobby) { l.log = log }
}

// WithRecorder stores a result for every won game.
func WithRecorder(r store.Recorder) Option {
	return func(l *Lobby) { l.recorder = r }
}

func NewLobby(parent context.Context, initial engine.State, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:    make(chan Msg, 64),
		state:    initial,
		clients:  make(map[engine.PlayerID]client),
		watchers: make(map[string]chan types.ServerMessage),
		log:      zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.loop()
	return l
}

func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the loop has exited and every outbox is closed.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.join(msg)

			case Leave:
				if !l.registered(msg.Player, msg.Session) {
					l.log.Debug("ignoring leave from stale session",
						zap.Int("player", int(msg.Player)), zap.String("session", msg.Session))
					break
				}
				l.remove(msg.Player)
				l.apply(msg.Player, engine.Command{Type: engine.CmdLeave, Player: msg.Player})

			case FromClient:
				if !l.registered(msg.Player, msg.Session) {
					l.log.Debug("ignoring request from stale session",
						zap.Int("player", int(msg.Player)), zap.String("session", msg.Session))
					break
				}
				cmd := msg.Cmd
				cmd.Player = msg.Player
				switch cmd.Type {
				case engine.CmdReady, engine.CmdPlaneOp, engine.CmdFlyOver:
					l.apply(msg.Player, cmd)
				default:
					l.send(msg.Player, notice(wire.NoticeError, engine.ErrUnsupportedCommand))
				}

			case Watch:
				if old, ok := l.watchers[msg.ID]; ok {
					close(old)
				}
				l.watchers[msg.ID] = msg.Outbox
				l.notifyWatcher(msg.ID, msg.Outbox, l.snapshotMessage())

			case Unwatch:
				if ch, ok := l.watchers[msg.ID]; ok {
					close(ch)
					delete(l.watchers, msg.ID)
				}

			case GetState:
				msg.Reply <- View{
					Version:     l.version,
					NumClients:  len(l.clients),
					NumWatchers: len(l.watchers),
					State:       l.state.Clone(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
			l.settle()
		}
	}
}

func (l *Lobby) registered(id engine.PlayerID, session string) bool {
	c, ok := l.clients[id]
	return ok && c.session == session
}

func (l *Lobby) join(msg Join) {
	events, next, err := engine.Apply(l.state, engine.Command{Type: engine.CmdJoin, Player: msg.Player})
	if err != nil {
		msg.Reply <- err
		return
	}
	l.clients[msg.Player] = client{session: msg.Session, outbox: msg.Outbox}
	l.send(msg.Player, notice(wire.NoticeWelcome, msg.Player, engine.ColorOf(msg.Player)))
	l.send(msg.Player, protocol.GameState{Board: types.Snapshot(l.state.Board)})
	l.commit(events, next)
	msg.Reply <- nil
}

// apply runs cmd through the engine. Rejections go to the sender only and
// leave the state as it was.
func (l *Lobby) apply(sender engine.PlayerID, cmd engine.Command) {
	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		log := l.log.With(zap.Int("player", int(sender)), zap.String("cmd", string(cmd.Type)), zap.Error(err))
		if engine.IsValidation(err) {
			log.Debug("request rejected")
			l.send(sender, notice(wire.NoticeError, err))
			return
		}
		log.Error("request aborted, board left unchanged")
		l.send(sender, notice(wire.NoticeError, "internal error"))
		return
	}
	l.commit(events, next)
}

func (l *Lobby) commit(events []engine.Event, next engine.State) {
	l.state = next
	if len(events) == 0 {
		return
	}
	l.version++
	if engine.ContainsEvent(events, engine.EvtGameStarted) {
		l.started = time.Now()
	}
	l.publish(events)
	if won, ok := engine.FindEvent(events, engine.EvtGameWon); ok {
		l.record(won.Player)
	}
}

// publish turns events into notices, one board snapshot when pieces moved,
// and then the prompts for whoever acts next.
func (l *Lobby) publish(events []engine.Event) {
	var after []engine.Event
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtPlayerJoined:
			l.broadcast(notice(wire.NoticeJoined, ev.Player))
		case engine.EvtPlayerReady:
			l.broadcast(notice(wire.NoticeReady, ev.Player))
		case engine.EvtPlayerLeft:
			l.broadcast(notice(wire.NoticeLeft, ev.Player))
		case engine.EvtGameStarted:
			l.broadcast(notice(wire.NoticeGameStart))
		case engine.EvtGameReset:
			l.broadcast(notice(wire.NoticeGameReset))
		case engine.EvtPieceCaptured:
			l.broadcast(notice(wire.NoticeCapture, ev.Piece))
		case engine.EvtPieceFinished:
			l.broadcast(notice(wire.NoticeFinished, ev.Piece))
		default:
			after = append(after, ev)
		}
	}

	if engine.MutatesBoard(events) {
		l.broadcastBoard()
	}

	for _, ev := range after {
		switch ev.Type {
		case engine.EvtTurnAdvanced:
			l.promptTurn()
		case engine.EvtBonusRoll:
			l.broadcast(notice(wire.NoticeBonusRoll, ev.Player))
			l.promptTurn()
		case engine.EvtFlyOverOffered:
			l.send(ev.Player, notice(wire.NoticeChooseFly))
		case engine.EvtGameWon:
			l.broadcast(notice(wire.NoticeGameOver, ev.Player))
		case engine.EvtStalled:
			l.log.Warn("no connected player can take the turn")
			l.broadcast(notice(wire.NoticeStalled))
		}
	}
}

func (l *Lobby) promptTurn() {
	cur := l.state.Turn.Current
	for id := range l.clients {
		if id == cur {
			l.send(id, notice(wire.NoticeYourTurn))
		} else {
			l.send(id, notice(wire.NoticeWaiting, cur))
		}
	}
}

func (l *Lobby) record(winner engine.PlayerID) {
	res := store.Result{
		Winner:     int(winner),
		Players:    l.state.Desired,
		Moves:      l.state.Moves,
		StartedAt:  l.started,
		FinishedAt: time.Now(),
	}
	l.log.Info("game won", zap.Int("winner", res.Winner), zap.Int("moves", res.Moves))
	if l.recorder == nil {
		return
	}
	rec, log := l.recorder, l.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := rec.Record(ctx, res); err != nil {
			log.Warn("record match result failed", zap.Error(err))
		}
	}()
}

func (l *Lobby) broadcast(m protocol.Text) {
	for id := range l.clients {
		l.send(id, m)
	}
	l.notifyWatchers(types.ServerMessage{Type: "Notice", Version: l.version, Text: m.Body})
}

func (l *Lobby) broadcastBoard() {
	snap := protocol.GameState{Board: types.Snapshot(l.state.Board)}
	for id := range l.clients {
		l.send(id, snap)
	}
	l.notifyWatchers(l.snapshotMessage())
}

// send never blocks. A player whose outbox is full is removed and later
// processed as a leave.
func (l *Lobby) send(id engine.PlayerID, m protocol.Message) {
	c, ok := l.clients[id]
	if !ok {
		return
	}
	select {
	case c.outbox <- m:
	default:
		l.log.Warn("outbox full, dropping player", zap.Int("player", int(id)), zap.String("session", c.session))
		l.remove(id)
		l.dropped = append(l.dropped, id)
	}
}

func (l *Lobby) remove(id engine.PlayerID) {
	if c, ok := l.clients[id]; ok {
		close(c.outbox)
		delete(l.clients, id)
	}
}

// settle applies the leave for every player dropped while handling the last message.
func (l *Lobby) settle() {
	for len(l.dropped) > 0 {
		id := l.dropped[0]
		l.dropped = l.dropped[1:]
		l.apply(id, engine.Command{Type: engine.CmdLeave, Player: id})
	}
}

func (l *Lobby) snapshotMessage() types.ServerMessage {
	view := types.NewStateView(l.state)
	return types.ServerMessage{Type: "StateSnapshot", Version: l.version, State: &view}
}

func (l *Lobby) notifyWatchers(m types.ServerMessage) {
	for id, ch := range l.watchers {
		l.notifyWatcher(id, ch, m)
	}
}

func (l *Lobby) notifyWatcher(id string, ch chan types.ServerMessage, m types.ServerMessage) {
	select {
	case ch <- m:
	default:
		l.log.Debug("dropping slow spectator", zap.String("watcher", id))
		close(ch)
		delete(l.watchers, id)
	}
}

func (l *Lobby) shutdown() {
	for id, c := range l.clients {
		close(c.outbox)
		delete(l.clients, id)
	}
	for id, ch := range l.watchers {
		close(ch)
		delete(l.watchers, id)
	}
	l.cancel()
}

func notice(prefix string, args ...any) protocol.Text {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return protocol.Text{Body: strings.Join(parts, ":")}
}
