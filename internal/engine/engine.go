package engine

import (
	"errors"
)

// Rejected requests. The board is left untouched and only the sender is told.
var ErrNotYourTurn = errors.New("not your turn")
var ErrGameNotStarted = errors.New("game not started")
var ErrGameInProgress = errors.New("game in progress")
var ErrGameOver = errors.New("game already over")
var ErrAlreadyReady = errors.New("already ready")
var ErrWrongPhase = errors.New("unexpected request for this phase")
var ErrInvalidDice = errors.New("invalid dice value")
var ErrInvalidPlane = errors.New("invalid plane id")
var ErrInvalidPlayer = errors.New("invalid player id")
var ErrPieceFinished = errors.New("plane already finished")
var ErrSeatTaken = errors.New("seat already taken")
var ErrUnsupportedCommand = errors.New("unsupported command")

// Broken board invariants.
var ErrPieceNotFound = errors.New("piece not found on board")
var ErrCorruptBoard = errors.New("board invariant violated")

var validationErrors = []error{
	ErrNotYourTurn, ErrGameNotStarted, ErrGameInProgress, ErrGameOver, ErrAlreadyReady,
	ErrWrongPhase, ErrInvalidDice, ErrInvalidPlane, ErrInvalidPlayer, ErrPieceFinished,
	ErrSeatTaken, ErrUnsupportedCommand,
}

// IsValidation reports whether err is a rejected request rather than an internal failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type Phase string

const (
	PhaseAwaitingPlayers Phase = "awaiting_players"
	PhaseReady           Phase = "ready"
	PhaseRoll            Phase = "roll_and_choose_plane"
	PhaseFlyOver         Phase = "choose_fly_over"
	PhaseOver            Phase = "game_over"
)

func (p Phase) Active() bool { return p == PhaseRoll || p == PhaseFlyOver }

func (p Phase) Pregame() bool { return p == PhaseAwaitingPlayers || p == PhaseReady }

type Player struct {
	ID        PlayerID
	Color     Color
	Ready     bool
	Connected bool
}

type TurnContext struct {
	Current   PlayerID
	LastDice  int
	LastPiece PieceID
}

type State struct {
	Phase   Phase
	Desired int
	Players [MaxPlayers + 1]Player
	Board   Board
	Turn    TurnContext
	Winner  PlayerID
	Moves   int
}

// Clone returns a copy that shares nothing mutable with s.
func (s State) Clone() State {
	c := s
	c.Board = s.Board.Clone()
	return c
}

type CommandType string

const (
	CmdJoin    CommandType = "Join"
	CmdLeave   CommandType = "Leave"
	CmdReady   CommandType = "Ready"
	CmdPlaneOp CommandType = "PlaneOp"
	CmdFlyOver CommandType = "FlyOver"
)

type Command struct {
	Type   CommandType
	Player PlayerID
	Dice   int
	Plane  int
	Accept bool
}

type EventType string

const (
	EvtPlayerJoined    EventType = "PlayerJoined"
	EvtPlayerLeft      EventType = "PlayerLeft"
	EvtPlayerReady     EventType = "PlayerReady"
	EvtGameStarted     EventType = "GameStarted"
	EvtPieceLaunched   EventType = "PieceLaunched"
	EvtPieceMoved      EventType = "PieceMoved"
	EvtPieceCaptured   EventType = "PieceCaptured"
	EvtPieceFinished   EventType = "PieceFinished"
	EvtNoMove          EventType = "NoMove"
	EvtFlyOverOffered  EventType = "FlyOverOffered"
	EvtFlyOverTaken    EventType = "FlyOverTaken"
	EvtFlyOverDeclined EventType = "FlyOverDeclined"
	EvtTurnAdvanced    EventType = "TurnAdvanced"
	EvtBonusRoll       EventType = "BonusRoll"
	EvtGameWon         EventType = "GameWon"
	EvtStalled         EventType = "Stalled"
	EvtGameReset       EventType = "GameReset"
)

// MutatesBoard reports whether an event of this type changes piece placement.
func (t EventType) MutatesBoard() bool {
	switch t {
	case EvtGameStarted, EvtPieceLaunched, EvtPieceMoved, EvtPieceCaptured,
		EvtPieceFinished, EvtFlyOverTaken, EvtGameReset:
		return true
	}
	return false
}

type Event struct {
	Type   EventType
	Player PlayerID
	Piece  PieceID
	From   Tile
	To     Tile
}

// Apply validates cmd against s and returns the resulting events and state.
// s is never modified; on error the returned state is s itself.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if !cmd.Player.Valid() || int(cmd.Player) > s.Desired {
		return nil, s, ErrInvalidPlayer
	}

	switch cmd.Type {
	case CmdJoin:
		if !s.Phase.Pregame() {
			return nil, s, ErrGameInProgress
		}
		if s.Players[cmd.Player].Connected {
			return nil, s, ErrSeatTaken
		}
		newState := s.Clone()
		newState.Players[cmd.Player].Connected = true
		newState.Players[cmd.Player].Ready = false
		newState.Phase = pregamePhase(newState)
		return []Event{{Type: EvtPlayerJoined, Player: cmd.Player}}, newState, nil

	case CmdLeave:
		if !s.Players[cmd.Player].Connected {
			return nil, s, nil
		}
		return leave(s, cmd.Player)

	case CmdReady:
		if !s.Phase.Pregame() {
			return nil, s, ErrGameInProgress
		}
		if !s.Players[cmd.Player].Connected {
			return nil, s, ErrInvalidPlayer
		}
		if s.Players[cmd.Player].Ready {
			return nil, s, ErrAlreadyReady
		}
		newState := s.Clone()
		newState.Players[cmd.Player].Ready = true
		events := []Event{{Type: EvtPlayerReady, Player: cmd.Player}}
		if readyCount(newState) == newState.Desired && connectedCount(newState) == newState.Desired {
			events = append(events, start(&newState)...)
		}
		return events, newState, nil

	case CmdPlaneOp:
		if err := authorize(s, cmd.Player, PhaseRoll); err != nil {
			return nil, s, err
		}
		if cmd.Dice < MinDice || cmd.Dice > MaxDice {
			return nil, s, ErrInvalidDice
		}
		if cmd.Plane < 1 || cmd.Plane > PiecesPerPlayer {
			return nil, s, ErrInvalidPlane
		}
		piece := PieceOf(cmd.Player, cmd.Plane)
		if s.Board.IsFinished(piece) {
			return nil, s, ErrPieceFinished
		}
		return planeOp(s, piece, cmd.Dice)

	case CmdFlyOver:
		if err := authorize(s, cmd.Player, PhaseFlyOver); err != nil {
			return nil, s, err
		}
		return flyOver(s, cmd.Accept)

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func authorize(s State, p PlayerID, want Phase) error {
	switch {
	case s.Phase == PhaseOver:
		return ErrGameOver
	case s.Phase.Pregame():
		return ErrGameNotStarted
	case s.Turn.Current != p:
		return ErrNotYourTurn
	case s.Phase != want:
		return ErrWrongPhase
	}
	return nil
}

func start(s *State) []Event {
	s.Board = NewBoard()
	for p := PlayerID(1); int(p) <= s.Desired; p++ {
		for local := 1; local <= PiecesPerPlayer; local++ {
			piece := PieceOf(p, local)
			s.Board.place(piece, piece.HomeSlot())
		}
	}
	s.Phase = PhaseRoll
	s.Turn = TurnContext{Current: 1}
	s.Winner = 0
	s.Moves = 0
	return []Event{
		{Type: EvtGameStarted},
		{Type: EvtTurnAdvanced, Player: 1},
	}
}

func planeOp(s State, piece PieceID, dice int) ([]Event, State, error) {
	newState := s.Clone()
	newState.Turn.LastDice = dice
	newState.Turn.LastPiece = piece
	newState.Moves++

	from, ok := newState.Board.Locate(piece)
	if !ok {
		return nil, s, ErrPieceNotFound
	}

	var events []Event
	if IsAirport(from) {
		if dice < 5 {
			events = append(events, Event{Type: EvtNoMove, Player: piece.Owner(), Piece: piece, From: from, To: from})
			events = append(events, advance(&newState))
			return events, newState, nil
		}
		to := EntryTile(piece.Owner())
		if err := newState.Board.relocate(piece, from, to); err != nil {
			return nil, s, err
		}
		events = append(events, Event{Type: EvtPieceLaunched, Player: piece.Owner(), Piece: piece, From: from, To: to})
		captured, err := capture(&newState.Board, piece.Owner(), to)
		if err != nil {
			return nil, s, err
		}
		events = append(events, captured...)
		events = append(events, advance(&newState))
		return events, newState, nil
	}

	moved, offer, err := step(&newState.Board, piece, from, dice)
	if err != nil {
		return nil, s, err
	}
	events = append(events, moved...)
	if won, ok := checkWin(&newState); ok {
		return append(events, won), newState, nil
	}
	if offer {
		to, _ := newState.Board.Locate(piece)
		target, _ := FlyTarget(piece.Owner(), to)
		newState.Phase = PhaseFlyOver
		events = append(events, Event{Type: EvtFlyOverOffered, Player: piece.Owner(), Piece: piece, From: to, To: target})
		return events, newState, nil
	}
	events = append(events, advance(&newState))
	return events, newState, nil
}

// step advances piece one tile at a time, resolving captures on every tile it
// touches and bouncing back from the final tile. It reports whether the piece
// ended on a tile that earns a fly-over offer.
func step(b *Board, piece PieceID, from Tile, dice int) ([]Event, bool, error) {
	owner := piece.Owner()
	idx, ok := RouteIndex(owner, from)
	if !ok {
		return nil, false, ErrCorruptBoard
	}

	var events []Event
	cur := from
	dir := 1
	for i := 0; i < dice; i++ {
		if idx == FinalIndex {
			dir = -1
		}
		idx += dir
		next := RouteTile(owner, idx)
		if err := b.relocate(piece, cur, next); err != nil {
			return nil, false, err
		}
		cur = next
		captured, err := capture(b, owner, cur)
		if err != nil {
			return nil, false, err
		}
		events = append(events, captured...)
	}
	events = append(events, Event{Type: EvtPieceMoved, Player: owner, Piece: piece, From: from, To: cur})

	if idx == FinalIndex {
		if err := b.finish(piece, cur); err != nil {
			return nil, false, err
		}
		events = append(events, Event{Type: EvtPieceFinished, Player: owner, Piece: piece, From: cur, To: piece.HomeSlot()})
		return events, false, nil
	}
	return events, offersFlyOver(owner, cur), nil
}

// capture sends every foreign piece on t back to its own home slot.
func capture(b *Board, mover PlayerID, t Tile) ([]Event, error) {
	var events []Event
	for _, victim := range b.At(t) {
		if victim.Owner() == mover {
			continue
		}
		home := victim.HomeSlot()
		if err := b.relocate(victim, t, home); err != nil {
			return nil, err
		}
		events = append(events, Event{Type: EvtPieceCaptured, Player: victim.Owner(), Piece: victim, From: t, To: home})
	}
	return events, nil
}

func flyOver(s State, accept bool) ([]Event, State, error) {
	newState := s.Clone()
	piece := newState.Turn.LastPiece
	newState.Phase = PhaseRoll

	if !accept {
		events := []Event{{Type: EvtFlyOverDeclined, Player: piece.Owner(), Piece: piece}}
		return append(events, advance(&newState)), newState, nil
	}

	from, ok := newState.Board.Locate(piece)
	if !ok {
		return nil, s, ErrPieceNotFound
	}
	to, ok := FlyTarget(piece.Owner(), from)
	if !ok {
		return nil, s, ErrCorruptBoard
	}
	if err := newState.Board.relocate(piece, from, to); err != nil {
		return nil, s, err
	}
	events := []Event{{Type: EvtFlyOverTaken, Player: piece.Owner(), Piece: piece, From: from, To: to}}
	captured, err := capture(&newState.Board, piece.Owner(), to)
	if err != nil {
		return nil, s, err
	}
	events = append(events, captured...)
	if won, ok := checkWin(&newState); ok {
		return append(events, won), newState, nil
	}
	return append(events, advance(&newState)), newState, nil
}

func leave(s State, p PlayerID) ([]Event, State, error) {
	newState := s.Clone()
	newState.Players[p].Connected = false
	newState.Players[p].Ready = false
	events := []Event{{Type: EvtPlayerLeft, Player: p}}

	if connectedCount(newState) == 0 {
		return append(events, Event{Type: EvtGameReset}), NewState(s.Desired), nil
	}

	switch {
	case newState.Phase.Pregame():
		newState.Phase = pregamePhase(newState)
	case newState.Phase.Active() && newState.Turn.Current == p:
		events = append(events, advance(&newState))
	}
	return events, newState, nil
}

func checkWin(s *State) (Event, bool) {
	for p := PlayerID(1); int(p) <= s.Desired; p++ {
		if s.Board.FinishedCount(p) == PiecesPerPlayer {
			s.Phase = PhaseOver
			s.Winner = p
			return Event{Type: EvtGameWon, Player: p}, true
		}
	}
	return Event{}, false
}

func pregamePhase(s State) Phase {
	if connectedCount(s) < s.Desired {
		return PhaseAwaitingPlayers
	}
	return PhaseReady
}
