package types

import (
	"github.com/DoyleJ11/flychess-backend/internal/engine"
	wire "github.com/DoyleJ11/flychess-backend/pkg/types"
)

type ServerMessage struct {
	Type    string     `json:"type"` // "StateSnapshot" | "Notice"
	Version int        `json:"version,omitempty"`
	State   *StateView `json:"state,omitempty"`
	Text    string     `json:"text,omitempty"`
}

type PlayerView struct {
	ID        int    `json:"id"`
	Color     string `json:"color"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

type StateView struct {
	Phase         string        `json:"phase"`
	Desired       int           `json:"desired_players"`
	CurrentPlayer int           `json:"current_player,omitempty"`
	LastDice      int           `json:"last_dice,omitempty"`
	Winner        int           `json:"winner,omitempty"`
	Moves         int           `json:"moves"`
	Players       []PlayerView  `json:"players"`
	Board         wire.Snapshot `json:"board"`
}

func NewStateView(s engine.State) StateView {
	v := StateView{
		Phase:         string(s.Phase),
		Desired:       s.Desired,
		CurrentPlayer: int(s.Turn.Current),
		LastDice:      s.Turn.LastDice,
		Winner:        int(s.Winner),
		Moves:         s.Moves,
		Board:         Snapshot(s.Board),
	}
	for p := engine.PlayerID(1); int(p) <= s.Desired; p++ {
		pl := s.Players[p]
		v.Players = append(v.Players, PlayerView{
			ID:        int(pl.ID),
			Color:     string(pl.Color),
			Ready:     pl.Ready,
			Connected: pl.Connected,
		})
	}
	return v
}

// Snapshot lists every tile, empty ones included, with finished pieces shown
// as wire.FinishedMarker on their home airport tile.
func Snapshot(b engine.Board) wire.Snapshot {
	snap := make(wire.Snapshot, engine.TileCount)
	for t := engine.Tile(1); t <= engine.TileCount; t++ {
		pieces := b.At(t)
		ids := make([]int, 0, len(pieces)+1)
		for _, id := range pieces {
			ids = append(ids, int(id))
		}
		if b.FinishedAt(t) {
			ids = append(ids, wire.FinishedMarker)
		}
		snap[int(t)] = ids
	}
	return snap
}
