package engine

// NewState returns the pre-game state for a table of desired players.
func NewState(desired int) State {
	s := State{
		Phase:   PhaseAwaitingPlayers,
		Desired: desired,
		Board:   NewBoard(),
	}
	for p := PlayerID(1); p <= MaxPlayers; p++ {
		s.Players[p] = Player{ID: p, Color: ColorOf(p)}
	}
	return s
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func FindEvent(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}

func MutatesBoard(events []Event) bool {
	for _, event := range events {
		if event.Type.MutatesBoard() {
			return true
		}
	}
	return false
}

func connectedCount(s State) int {
	n := 0
	for p := PlayerID(1); int(p) <= s.Desired; p++ {
		if s.Players[p].Connected {
			n++
		}
	}
	return n
}

func readyCount(s State) int {
	n := 0
	for p := PlayerID(1); int(p) <= s.Desired; p++ {
		if s.Players[p].Connected && s.Players[p].Ready {
			n++
		}
	}
	return n
}

func (s State) ConnectedCount() int { return connectedCount(s) }

func (s State) ReadyCount() int { return readyCount(s) }
