package engine

import "slices"

type PlayerID int

type PieceID int

type Tile int

func (p PlayerID) Valid() bool { return p >= 1 && p <= MaxPlayers }

// PieceOf combines a player and a local plane index (1..4) into a global piece id.
func PieceOf(p PlayerID, local int) PieceID {
	return PieceID((int(p)-1)*PiecesPerPlayer + local)
}

func (id PieceID) Valid() bool { return id >= 1 && id <= PieceCount }

func (id PieceID) Owner() PlayerID { return PlayerID((int(id)-1)/PiecesPerPlayer + 1) }

func (id PieceID) Local() int { return (int(id)-1)%PiecesPerPlayer + 1 }

// HomeSlot is the airport tile the piece starts on, returns to when captured,
// and marks once it has finished.
func (id PieceID) HomeSlot() Tile {
	return layouts[id.Owner()].Airport + Tile(id.Local()-1)
}

// Board maps tiles to the pieces standing on them. Finished pieces are not on
// the board; their home slot carries a finished marker instead.
type Board struct {
	tiles    [TileCount + 1][]PieceID
	finished [AirportLast + 1]bool
}

func NewBoard() Board { return Board{} }

// Clone returns a deep copy so the receiver can serve as an immutable snapshot.
func (b Board) Clone() Board {
	var c Board
	for t, pieces := range b.tiles {
		if len(pieces) > 0 {
			c.tiles[t] = slices.Clone(pieces)
		}
	}
	c.finished = b.finished
	return c
}

// At returns a copy of the pieces on t in arrival order.
func (b Board) At(t Tile) []PieceID {
	if t < 1 || t > TileCount {
		return nil
	}
	return slices.Clone(b.tiles[t])
}

// FinishedAt reports whether airport tile t carries a finished marker.
func (b Board) FinishedAt(t Tile) bool {
	return IsAirport(t) && b.finished[t]
}

func (b Board) IsFinished(id PieceID) bool {
	return id.Valid() && b.finished[id.HomeSlot()]
}

func (b Board) Locate(id PieceID) (Tile, bool) {
	for t := Tile(1); t <= TileCount; t++ {
		if slices.Contains(b.tiles[t], id) {
			return t, true
		}
	}
	return 0, false
}

// FinishedCount returns how many of p's pieces have finished.
func (b Board) FinishedCount(p PlayerID) int {
	n := 0
	for local := 1; local <= PiecesPerPlayer; local++ {
		if b.finished[PieceOf(p, local).HomeSlot()] {
			n++
		}
	}
	return n
}

func (b *Board) place(id PieceID, t Tile) {
	b.tiles[t] = append(b.tiles[t], id)
}

func (b *Board) remove(id PieceID, t Tile) bool {
	i := slices.Index(b.tiles[t], id)
	if i < 0 {
		return false
	}
	b.tiles[t] = slices.Delete(b.tiles[t], i, i+1)
	return true
}

func (b *Board) relocate(id PieceID, from, to Tile) error {
	if !b.remove(id, from) {
		return ErrPieceNotFound
	}
	b.place(id, to)
	return nil
}

func (b *Board) finish(id PieceID, from Tile) error {
	if !b.remove(id, from) {
		return ErrPieceNotFound
	}
	b.finished[id.HomeSlot()] = true
	return nil
}

// Check verifies the board invariants: every piece stands on at most one tile,
// airport tiles hold only their owner's pieces, and a finished piece is off the board.
func (b Board) Check() error {
	var seen [PieceCount + 1]bool
	for t := Tile(1); t <= TileCount; t++ {
		for _, id := range b.tiles[t] {
			if !id.Valid() || seen[id] {
				return ErrCorruptBoard
			}
			seen[id] = true
			if IsAirport(t) && AirportOwner(t) != id.Owner() {
				return ErrCorruptBoard
			}
			if b.IsFinished(id) {
				return ErrCorruptBoard
			}
		}
	}
	return nil
}
