package engine

// advance hands the turn on after a resolved move. A six keeps the turn with a
// still-connected roller; otherwise the next connected player in seat order
// takes it. The scan is bounded so it terminates even if every seat is empty.
func advance(s *State) Event {
	cur := s.Turn.Current
	s.Phase = PhaseRoll
	if s.Turn.LastDice == MaxDice && cur.Valid() && s.Players[cur].Connected {
		return Event{Type: EvtBonusRoll, Player: cur}
	}

	next, ok := nextConnected(*s, cur)
	if !ok {
		s.Turn.Current = 0
		return Event{Type: EvtStalled}
	}
	s.Turn.Current = next
	s.Turn.LastDice = 0
	s.Turn.LastPiece = 0
	return Event{Type: EvtTurnAdvanced, Player: next}
}

// nextConnected probes at most Desired+1 seats after cur, wrapping 1..Desired.
func nextConnected(s State, cur PlayerID) (PlayerID, bool) {
	if s.Desired < 1 {
		return 0, false
	}
	id := cur
	for attempt := 0; attempt <= s.Desired; attempt++ {
		id = id%PlayerID(s.Desired) + 1
		if s.Players[id].Connected {
			return id, true
		}
	}
	return 0, false
}
